package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type BackendType string

const (
	BackendONNX   BackendType = "onnx"
	BackendRemote BackendType = "remote"

	DefaultConfigPath   string  = "platescan.json"
	DefaultConfidence   float64 = 0.25
	DefaultDetectorHost string  = "localhost:8080"

	envPrefix = "PLATESCAN_"
)

var BackendsList = [...]string{
	string(BackendONNX),
	string(BackendRemote),
}

type DetectorConfig struct {
	Backend        BackendType `json:"backend" toml:"backend" yaml:"backend"`
	VehicleModels  []string    `json:"vehicle_models" toml:"vehicle_models" yaml:"vehicle_models"`
	PlateModels    []string    `json:"plate_models" toml:"plate_models" yaml:"plate_models"`
	SharedLibrary  string      `json:"shared_library" toml:"shared_library" yaml:"shared_library"`
	InputSize      int         `json:"input_size" toml:"input_size" yaml:"input_size"`
	IoUThreshold   float32     `json:"iou_threshold" toml:"iou_threshold" yaml:"iou_threshold"`
	RemoteHost     string      `json:"remote_host" toml:"remote_host" yaml:"remote_host"`
	RemoteTimeout  int         `json:"remote_timeout_seconds" toml:"remote_timeout_seconds" yaml:"remote_timeout_seconds"`
	IntraOpThreads int         `json:"intra_op_threads" toml:"intra_op_threads" yaml:"intra_op_threads"`
}

type CropConfig struct {
	TempDir       string `json:"temp_dir" toml:"temp_dir" yaml:"temp_dir"`
	Padding       int    `json:"padding" toml:"padding" yaml:"padding"`
	TargetSize    int    `json:"target_size" toml:"target_size" yaml:"target_size"`
	DetectCommand string `json:"detect_command" toml:"detect_command" yaml:"detect_command"`
}

type OCRConfig struct {
	Languages      []string `json:"languages" toml:"languages" yaml:"languages"`
	Whitelist      string   `json:"whitelist" toml:"whitelist" yaml:"whitelist"`
	Engines        []string `json:"engines" toml:"engines" yaml:"engines"`
	RemoteURL      string   `json:"remote_url" toml:"remote_url" yaml:"remote_url"`
	RemoteToken    string   `json:"remote_token" toml:"remote_token" yaml:"remote_token"`
	RequestTimeout int      `json:"request_timeout_seconds" toml:"request_timeout_seconds" yaml:"request_timeout_seconds"`
	AWSRegion      string   `json:"aws_region" toml:"aws_region" yaml:"aws_region"`
}

type Config struct {
	LogLevel string `json:"log_level" toml:"log_level" yaml:"log_level"`

	Detector DetectorConfig `json:"detector" toml:"detector" yaml:"detector"`
	Crop     CropConfig     `json:"crop" toml:"crop" yaml:"crop"`
	OCR      OCRConfig      `json:"ocr" toml:"ocr" yaml:"ocr"`

	// Warnings collects problems met while loading, for the caller to log once
	// its logger exists.
	Warnings []string `json:"-" toml:"-" yaml:"-"`
}

func (c *Config) Save(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.NewEncoder(f).Encode(c)
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(f)
		defer enc.Close()
		return enc.Encode(c)
	default:
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	}
}

// LoadConfigFile never fails: a missing or broken file yields the defaults,
// and PLATESCAN_* variables (optionally from .env) are applied on top.
func LoadConfigFile(path string) *Config {
	var cfg *Config = NewDefaultConfig()

	var warnings []string
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		warnings = append(warnings, fmt.Sprintf("load .env: %v", err))
	}

	if _, err := os.Stat(path); err == nil {
		if err := decodeFile(path, cfg); err != nil {
			warnings = append(warnings, fmt.Sprintf("load config %s: %v, using defaults", path, err))
			cfg = NewDefaultConfig()
		}
	}
	cfg.Warnings = warnings

	applyEnv(cfg)
	ensureDefaults(cfg)
	return cfg
}

func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err = toml.NewDecoder(f).Decode(cfg)
	case ".yaml", ".yml":
		err = yaml.NewDecoder(f).Decode(cfg)
	default:
		err = json.NewDecoder(f).Decode(cfg)
	}
	return err
}

func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	setList := func(key string, dst *[]string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
			*dst = splitList(v)
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("LOG_LEVEL", &cfg.LogLevel)

	var backend string
	setString("DETECTOR_BACKEND", &backend)
	if backend != "" {
		cfg.Detector.Backend = BackendType(strings.ToLower(backend))
	}
	setList("VEHICLE_MODELS", &cfg.Detector.VehicleModels)
	setList("PLATE_MODELS", &cfg.Detector.PlateModels)
	setString("ONNX_LIBRARY", &cfg.Detector.SharedLibrary)
	setString("DETECTOR_HOST", &cfg.Detector.RemoteHost)
	setInt("INPUT_SIZE", &cfg.Detector.InputSize)

	setString("TEMP_DIR", &cfg.Crop.TempDir)
	setString("DETECT_COMMAND", &cfg.Crop.DetectCommand)
	setInt("CROP_PADDING", &cfg.Crop.Padding)

	setList("OCR_LANGUAGES", &cfg.OCR.Languages)
	setList("OCR_ENGINES", &cfg.OCR.Engines)
	setString("OCR_URL", &cfg.OCR.RemoteURL)
	setString("OCR_TOKEN", &cfg.OCR.RemoteToken)
	setString("AWS_REGION", &cfg.OCR.AWSRegion)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func ensureDefaults(cfg *Config) {
	def := NewDefaultConfig()

	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.Detector.Backend == "" {
		cfg.Detector.Backend = def.Detector.Backend
	}
	if cfg.Detector.InputSize <= 0 {
		cfg.Detector.InputSize = def.Detector.InputSize
	}
	if cfg.Detector.IoUThreshold <= 0 || cfg.Detector.IoUThreshold > 1 {
		cfg.Detector.IoUThreshold = def.Detector.IoUThreshold
	}
	if cfg.Detector.RemoteHost == "" {
		cfg.Detector.RemoteHost = def.Detector.RemoteHost
	}
	if cfg.Detector.RemoteTimeout <= 0 {
		cfg.Detector.RemoteTimeout = def.Detector.RemoteTimeout
	}
	if cfg.Crop.TempDir == "" {
		cfg.Crop.TempDir = def.Crop.TempDir
	}
	if cfg.Crop.Padding < 0 {
		cfg.Crop.Padding = 0
	}
	if cfg.Crop.TargetSize <= 0 {
		cfg.Crop.TargetSize = def.Crop.TargetSize
	}
	if cfg.OCR.Whitelist == "" {
		cfg.OCR.Whitelist = def.OCR.Whitelist
	}
	if len(cfg.OCR.Languages) == 0 {
		cfg.OCR.Languages = def.OCR.Languages
	}
	if len(cfg.OCR.Engines) == 0 {
		cfg.OCR.Engines = def.OCR.Engines
	}
	if cfg.OCR.RequestTimeout <= 0 {
		cfg.OCR.RequestTimeout = def.OCR.RequestTimeout
	}
}

func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Detector: DetectorConfig{
			Backend:       BackendONNX,
			VehicleModels: []string{"models/yolov8n.onnx"},
			PlateModels: []string{
				"models/license_plate_detector.onnx",
				"models/license_plate/license_plate_detector/weights/best.onnx",
				"models/license_plate/license_plate_detector/weights/last.onnx",
			},
			InputSize:      640,
			IoUThreshold:   0.45,
			RemoteHost:     DefaultDetectorHost,
			RemoteTimeout:  30,
			IntraOpThreads: 1,
		},
		Crop: CropConfig{
			TempDir:    "temp",
			Padding:    5,
			TargetSize: 300,
		},
		OCR: OCRConfig{
			Languages:      []string{"eng"},
			Whitelist:      "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789",
			Engines:        []string{"tesseract"},
			RequestTimeout: 60,
			AWSRegion:      "us-east-1",
		},
	}
}
