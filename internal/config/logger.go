package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

type LogConfig struct {
	Level       string `yaml:"level"`                 // none, normal or debug
	Destination string `yaml:"destination,omitempty"` // optional log file
	Mode        string `yaml:"mode,omitempty"`        // append or overwrite
}

// Build returns the program logger. Console output goes to stderr so command
// output on stdout stays clean. The returned close function releases the log
// file, if any.
func (conf *LogConfig) Build(console io.Writer) (*zap.Logger, func() error, error) {
	if console == nil {
		console = os.Stderr
	}
	noop := func() error { return nil }

	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	ec.TimeKey = zapcore.OmitKey
	ec.EncodeLevel = zapcore.CapitalLevelEncoder

	var consoleCore zapcore.Core
	switch conf.Level {
	case "normal":
		consoleCore = zapcore.NewCore(newEncoder(ec), zapcore.AddSync(console), zap.InfoLevel)
	case "debug":
		consoleCore = zapcore.NewCore(newEncoder(ec), zapcore.AddSync(console), zap.DebugLevel)
	case "none", "":
		consoleCore = zapcore.NewNopCore()
	default:
		return nil, noop, fmt.Errorf("invalid log level: %q", conf.Level)
	}

	fileCore := zapcore.NewNopCore()
	closer := noop
	if conf.Destination != "" && conf.Level != "none" {
		flags := os.O_CREATE | os.O_WRONLY
		if conf.Mode == "overwrite" {
			flags |= os.O_TRUNC
		} else {
			flags |= os.O_APPEND
		}
		f, err := os.OpenFile(conf.Destination, flags, 0644)
		if err != nil {
			return nil, noop, fmt.Errorf("unable to access file log destination (%s): %w", conf.Destination, err)
		}
		level := zap.InfoLevel
		if conf.Level == "debug" {
			level = zap.DebugLevel
		}
		fileCore = zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.Lock(f), level)
		closer = f.Close
	}

	return zap.New(zapcore.NewTee(consoleCore, fileCore)).Named("ereader"), closer, nil
}

// When logging errors to console do not print the verbose form.

type consoleEnc struct {
	zapcore.Encoder
}

func newEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return consoleEnc{zapcore.NewConsoleEncoder(cfg)}
}

func (c consoleEnc) Clone() zapcore.Encoder {
	return consoleEnc{c.Encoder.Clone()}
}

func (c consoleEnc) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	newFields := make([]zapcore.Field, 0, len(fields))
	for _, f := range fields {
		if f.Type == zapcore.ErrorType {
			if e, ok := f.Interface.(error); ok {
				f.Interface = errors.New(e.Error())
			}
		}
		newFields = append(newFields, f)
	}
	return c.Encoder.EncodeEntry(ent, newFields)
}
