package app

import (
	"bytes"
	"context"
	"flag"
	"math"
	"path/filepath"
	"testing"

	"platescan/internal/config"
	"platescan/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Value   string `json:"value,omitempty"`
}

func TestMainWritesPayload(t *testing.T) {
	var gotArgs []string
	var verbose bool
	cmd := Command{
		Name:  "test",
		Flags: func(fs *flag.FlagSet) { fs.BoolVar(&verbose, "v", false, "") },
		Run: func(_ context.Context, env *Env, args []string) (any, bool) {
			gotArgs = args
			require.NotNil(t, env.Cfg)
			return payload{Success: true, Value: "ok"}, true
		},
	}

	var stdout, stderr bytes.Buffer
	cfgPath := filepath.Join(t.TempDir(), "missing.toml")
	code := cmd.Main([]string{"-config", cfgPath, "-v", "img.jpg", "0.4"}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.True(t, verbose)
	assert.Equal(t, []string{"img.jpg", "0.4"}, gotArgs)

	var got payload
	require.NoError(t, protocol.ParseResult(stdout.Bytes(), &got))
	assert.Equal(t, payload{Success: true, Value: "ok"}, got)
}

func TestMainFailures(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		flags   func(*flag.FlagSet)
		run     func(context.Context, *Env, []string) (any, bool)
		wantErr string
	}{
		{
			name:    "failure payload",
			run:     func(context.Context, *Env, []string) (any, bool) { return payload{Error: "No detections found"}, false },
			wantErr: "No detections found",
		},
		{
			name:    "panic",
			run:     func(context.Context, *Env, []string) (any, bool) { panic("tensor shape") },
			wantErr: "Processing error: tensor shape",
		},
		{
			name:    "bad flag",
			args:    []string{"-bogus"},
			run:     func(context.Context, *Env, []string) (any, bool) { return payload{Success: true}, true },
			wantErr: "flag provided but not defined: -bogus",
		},
		{
			name: "payload json cannot encode",
			run: func(context.Context, *Env, []string) (any, bool) {
				return map[string]any{"success": true, "confidence_threshold": math.NaN()}, true
			},
			wantErr: "Processing error: encode result: json: unsupported value: NaN",
		},
		{
			name:    "panic in flag setup",
			flags:   func(*flag.FlagSet) { panic("bad flag") },
			run:     func(context.Context, *Env, []string) (any, bool) { return payload{Success: true}, true },
			wantErr: "Processing error: bad flag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := Command{Name: "test", Flags: tt.flags, Run: tt.run}.Main(tt.args, &stdout, &stderr)
			assert.Equal(t, 1, code)

			var got payload
			require.NoError(t, protocol.ParseResult(stdout.Bytes(), &got))
			assert.False(t, got.Success)
			assert.Equal(t, tt.wantErr, got.Error)
		})
	}
}

func TestParseConfidence(t *testing.T) {
	v, err := ParseConfidence([]string{"a.jpg"}, 1)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfidence, v)

	v, err = ParseConfidence([]string{"a.jpg", "0.6"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.6, v)

	_, err = ParseConfidence([]string{"a.jpg", "high"}, 1)
	assert.EqualError(t, err, "Invalid confidence threshold: high")

	for _, arg := range []string{"1.5", "-0.1", "NaN", "Inf", "-Inf"} {
		_, err = ParseConfidence([]string{"a.jpg", arg}, 1)
		assert.EqualError(t, err, "Invalid confidence threshold: "+arg)
	}
}

func TestArg(t *testing.T) {
	args := []string{"a.jpg", ""}
	assert.Equal(t, "a.jpg", Arg(args, 0, "x"))
	assert.Equal(t, "auto", Arg(args, 1, "auto"))
	assert.Equal(t, "auto", Arg(args, 5, "auto"))
}
