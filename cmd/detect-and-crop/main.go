package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"platescan/internal/app"
	"platescan/internal/models"
	"platescan/processing/crop"
)

func main() {
	app.Command{
		Name:   "detect-and-crop",
		Indent: true,
		Run: func(ctx context.Context, env *app.Env, args []string) (any, bool) {
			if len(args) < 1 {
				return models.Fail("Usage: detect-and-crop <image_path> [confidence_threshold]"), false
			}
			path := args[0]
			conf, err := app.ParseConfidence(args, 1)
			if err != nil {
				return models.Fail(err.Error()), false
			}

			wd, _ := os.Getwd()
			abs, _ := filepath.Abs(path)
			_, statErr := os.Stat(path)
			env.Log.Debugf("Starting detection with image_path=%q, confidence=%v", path, conf)
			env.Log.Debugf("Current working directory: %s", wd)
			env.Log.Debugf("Image file exists: %t (%s)", statErr == nil, abs)
			if statErr != nil {
				return models.Fail(fmt.Sprintf("Image file not found: %s", path)), false
			}

			runner := crop.NewCommandRunner(env.Cfg.Crop.DetectCommand, env.ConfigPath, env.Log)
			res := crop.NewService(runner, env.Cfg.Crop, env.Log).Process(ctx, path, conf)
			return res, res.Success
		},
	}.Exec()
}
