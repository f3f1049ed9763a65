package main

import (
	"context"
	"flag"

	"platescan/internal/app"
	"platescan/internal/engines"
	"platescan/internal/models"
	"platescan/processing/ocr"
	"platescan/processing/pipeline"
	"platescan/processing/plate"
)

func main() {
	var detect bool
	app.Command{
		Name: "plate-ocr",
		Flags: func(fs *flag.FlagSet) {
			fs.BoolVar(&detect, "detect", false, "locate the plate before reading it")
		},
		Run: func(ctx context.Context, env *app.Env, args []string) (any, bool) {
			if len(args) < 1 {
				return models.Fail("Usage: plate-ocr [-detect] <image_path> [ocr_method] [confidence_threshold]"), false
			}
			method := app.Arg(args, 1, ocr.MethodAuto)
			conf, err := app.ParseConfidence(args, 2)
			if err != nil {
				return models.Fail(err.Error()), false
			}

			reader, err := engines.NewRecognizer(ctx, env.Cfg.OCR, env.Log)
			if err != nil {
				return models.Fail(err.Error()), false
			}
			det := env.Detector(env.Cfg.Detector.PlateModels)
			defer det.Close()

			svc := pipeline.NewService(plate.NewService(det, env.Log), reader, env.Cfg.Crop, env.Log)
			res := svc.ReadImage(ctx, args[0], method, detect, conf)
			return res, res.Success
		},
	}.Exec()
}
