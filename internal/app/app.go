package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"platescan/internal/config"
	"platescan/internal/logging"
	"platescan/internal/models"
	"platescan/internal/protocol"
	detector "platescan/processing/detector"

	"github.com/sirupsen/logrus"
)

// Env is what every command receives after flag parsing.
type Env struct {
	ConfigPath string
	Cfg        *config.Config
	Log        *logrus.Logger
}

// Command describes one single-shot CLI. Run returns the payload and whether
// it represents success.
type Command struct {
	Name string
	// Indent selects the 2-space indented payload.
	Indent bool
	Flags  func(fs *flag.FlagSet)
	Run    func(ctx context.Context, env *Env, args []string) (any, bool)
}

// Main runs the command and returns the process exit code. Every failure,
// including a panic, is written as a failure payload.
func (c Command) Main(args []string, stdout, stderr io.Writer) (code int) {
	write := func(payload any, success bool) int {
		err := protocol.WriteResult(stdout, payload, c.Indent)
		if err == nil {
			return protocol.ExitCode(success)
		}
		fmt.Fprintf(stderr, "%s: write result: %v\n", c.Name, err)
		if err := protocol.WriteResult(stdout, models.Fail(fmt.Sprintf("Processing error: %v", err)), c.Indent); err != nil {
			fmt.Fprintf(stderr, "%s: write failure: %v\n", c.Name, err)
		}
		return 1
	}

	env := &Env{Log: logging.Discard()}
	defer func() {
		if r := recover(); r != nil {
			env.Log.Errorf("%s: panic: %v", c.Name, r)
			code = write(models.Fail(fmt.Sprintf("Processing error: %v", r)), false)
		}
	}()

	fs := flag.NewFlagSet(c.Name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.DefaultConfigPath, "path to a JSON, TOML or YAML config file")
	if c.Flags != nil {
		c.Flags(fs)
	}
	if err := fs.Parse(args); err != nil {
		return write(models.Fail(err.Error()), false)
	}

	env.ConfigPath = *configPath
	env.Cfg = config.LoadConfigFile(*configPath)
	env.Log = logging.NewWithOutput(stderr, env.Cfg.LogLevel)
	for _, w := range env.Cfg.Warnings {
		env.Log.Debug(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	payload, ok := c.Run(ctx, env, fs.Args())
	return write(payload, ok)
}

// Exec is the body of every main function.
func (c Command) Exec() {
	os.Exit(c.Main(os.Args[1:], os.Stdout, os.Stderr))
}

// ParseConfidence reads an optional confidence argument, falling back to the
// default when absent.
func ParseConfidence(args []string, i int) (float64, error) {
	if len(args) <= i || args[i] == "" {
		return config.DefaultConfidence, nil
	}
	v, err := strconv.ParseFloat(args[i], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
		return 0, fmt.Errorf("Invalid confidence threshold: %s", args[i])
	}
	return v, nil
}

// Arg returns args[i] or def.
func Arg(args []string, i int, def string) string {
	if len(args) > i && args[i] != "" {
		return args[i]
	}
	return def
}

// Detector returns a detector over the given model candidates that is only
// opened on first use.
func (e *Env) Detector(modelPaths []string) *detector.Lazy {
	return detector.NewLazy(func() (detector.Detector, error) {
		return detector.Open(e.Cfg, modelPaths, e.Log)
	})
}
