package crop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"platescan/internal/models"
	"platescan/internal/protocol"

	"github.com/sirupsen/logrus"
)

// DetectCommandName is the plate detection binary looked up next to the
// running executable when no command is configured.
const DetectCommandName = "detect-plate"

// Runner produces plate detections for an image.
type Runner interface {
	Run(ctx context.Context, imagePath string, conf float64) (*models.PlateResult, error)
}

// CommandRunner runs the plate detection command as a child process and reads
// the marker-framed payload from its stdout.
type CommandRunner struct {
	Command    string
	ConfigPath string
	Log        logrus.FieldLogger
}

func NewCommandRunner(command, configPath string, log logrus.FieldLogger) *CommandRunner {
	if command == "" {
		command = defaultCommand()
	}
	return &CommandRunner{Command: command, ConfigPath: configPath, Log: log}
}

func defaultCommand() string {
	exe, err := os.Executable()
	if err != nil {
		return DetectCommandName
	}
	candidate := filepath.Join(filepath.Dir(exe), DetectCommandName)
	if _, err := os.Stat(candidate); err != nil {
		return DetectCommandName
	}
	return candidate
}

func (r *CommandRunner) Run(ctx context.Context, imagePath string, conf float64) (*models.PlateResult, error) {
	var args []string
	if r.ConfigPath != "" {
		args = append(args, "-config", r.ConfigPath)
	}
	args = append(args, imagePath, strconv.FormatFloat(conf, 'f', -1, 64))

	cmd := exec.CommandContext(ctx, r.Command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.Log.Debugf("running %s %s", r.Command, strings.Join(args, " "))
	err := cmd.Run()
	if stderr.Len() > 0 {
		r.Log.Debugf("detection stderr: %s", strings.TrimSpace(stderr.String()))
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("Detection script failed: %v", err)
		}
		// A failed detection still exits 1 with a well-formed payload.
		var res models.PlateResult
		if perr := protocol.ParseResult(stdout.Bytes(), &res); perr == nil {
			return &res, nil
		}
		return nil, fmt.Errorf("Detection script failed: %s", strings.TrimSpace(stderr.String()))
	}

	var res models.PlateResult
	if err := protocol.ParseResult(stdout.Bytes(), &res); err != nil {
		if errors.Is(err, protocol.ErrNoResult) {
			return nil, errors.New("Could not find detection results in output")
		}
		return nil, fmt.Errorf("Error parsing detection results: %v", err)
	}
	return &res, nil
}
