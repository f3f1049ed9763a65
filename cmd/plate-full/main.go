package main

import (
	"context"

	"platescan/internal/app"
	"platescan/internal/engines"
	"platescan/internal/models"
	"platescan/processing/ocr"
	"platescan/processing/pipeline"
	"platescan/processing/plate"
)

func main() {
	app.Command{
		Name:   "plate-full",
		Indent: true,
		Run: func(ctx context.Context, env *app.Env, args []string) (any, bool) {
			if len(args) < 1 {
				return models.Fail("Usage: plate-full <image_path> [confidence_threshold] [ocr_method] [output_path]"), false
			}
			path := args[0]
			conf, err := app.ParseConfidence(args, 1)
			if err != nil {
				return models.Fail(err.Error()), false
			}
			method := app.Arg(args, 2, ocr.MethodAuto)
			out := app.Arg(args, 3, "")

			reader, err := engines.NewRecognizer(ctx, env.Cfg.OCR, env.Log)
			if err != nil {
				return models.Fail(err.Error()), false
			}
			det := env.Detector(env.Cfg.Detector.PlateModels)
			defer det.Close()

			svc := pipeline.NewService(plate.NewService(det, env.Log), reader, env.Cfg.Crop, env.Log)
			res := svc.Process(ctx, path, conf, method)
			if res.Success && out != "" {
				svc.SaveAnnotated(ctx, path, &res, out)
			}
			return res, res.Success
		},
	}.Exec()
}
