package main

import (
	"context"

	"platescan/internal/app"
	"platescan/internal/imageio"
	"platescan/internal/models"
	"platescan/processing/plate"
)

func main() {
	app.Command{
		Name: "detect-plate",
		Run: func(ctx context.Context, env *app.Env, args []string) (any, bool) {
			if len(args) < 1 {
				return models.PlateResult{Error: "Image path is required"}, false
			}
			conf, err := app.ParseConfidence(args, 1)
			if err != nil {
				return models.PlateResult{Error: err.Error()}, false
			}

			det := env.Detector(env.Cfg.Detector.PlateModels)
			defer det.Close()

			res, img := plate.NewService(det, env.Log).Detect(ctx, args[0], conf)
			if out := app.Arg(args, 2, ""); res.Success && out != "" {
				if err := imageio.Save(out, plate.Annotate(img, res.Detections)); err != nil {
					env.Log.Warnf("Error drawing detections: %v", err)
				} else {
					res.AnnotatedImageSaved = out
				}
			}
			return res, res.Success
		},
	}.Exec()
}
