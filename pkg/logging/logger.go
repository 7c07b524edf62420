// Package logging builds the zap loggers used by the command line tools.
//
// Every tool logs human-readable lines to stdout and JSON lines to a rotating
// file under the log directory, so a batch run can be inspected afterwards.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	// Name is used as the log file name (<Dir>/<Name>.log).
	Name    string
	Dir     string
	Verbose bool
	// Console overrides stdout, mostly for tests.
	Console io.Writer
	// DisableFile skips the rotating file core.
	DisableFile bool
}

// New creates a logger that tees a console encoder and a JSON file encoder.
func New(opts Options) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Verbose {
		level.SetLevel(zapcore.DebugLevel)
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCfg := encCfg
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(console), level),
	}

	if !opts.DisableFile {
		if opts.Name == "" {
			return nil, fmt.Errorf("log name is required when file logging is enabled")
		}
		dir := opts.Dir
		if dir == "" {
			dir = "logs"
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   filepath.Join(dir, opts.Name+".log"),
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

// MustNew is New for main functions; it falls back to a production logger
// writing to stderr when the file core cannot be created.
func MustNew(opts Options) *zap.Logger {
	logger, err := New(opts)
	if err == nil {
		return logger
	}
	fmt.Fprintf(os.Stderr, "Failed to initialize file logger: %v\n", err)
	logger, err = zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}
