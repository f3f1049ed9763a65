package main

import (
	"context"

	"platescan/internal/app"
	"platescan/internal/models"
	"platescan/processing/vehicle"
)

func main() {
	app.Command{
		Name: "detect-vehicle",
		Run: func(ctx context.Context, env *app.Env, args []string) (any, bool) {
			if len(args) != 1 {
				return models.VehicleResult{Error: "Image path is required"}, false
			}

			det := env.Detector(env.Cfg.Detector.VehicleModels)
			defer det.Close()

			res := vehicle.NewService(det, env.Log).Detect(ctx, args[0])
			return res, res.Success
		},
	}.Exec()
}
