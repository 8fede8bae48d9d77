package utils

import (
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewNodeLogger builds the operational logger for one relay node. Events
// always go to stderr; when basePath is non-empty they are additionally
// split into info.log and error.log under it. Chat output is not logged
// here, it goes to the display sink.
func NewNodeLogger(basePath string) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), zapcore.InfoLevel),
	}

	if basePath != "" {
		if err := os.MkdirAll(basePath, 0744); err != nil {
			log.Printf("failed to create log dir %s: %v", basePath, err)
		} else {
			infoOut := zapcore.AddSync(openLogFile(filepath.Join(basePath, "info.log")))
			errorOut := zapcore.AddSync(openLogFile(filepath.Join(basePath, "error.log")))

			infoLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l == zapcore.InfoLevel })
			errLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= zapcore.ErrorLevel })

			cores = append(cores,
				zapcore.NewCore(encoder, infoOut, infoLv),
				zapcore.NewCore(encoder, errorOut, errLv),
			)
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}

func openLogFile(path string) *os.File {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file %s: %v", path, err)
		return os.Stderr
	}
	return f
}
