package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	File      string `json:"file"`
	Level     string `json:"level"`
	FileCount int    `json:"file_count"`
	FileSize  int    `json:"file_size"`
	KeepDays  int    `json:"keep_days"`
	Console   bool   `json:"console"`
}

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

// Init builds the process logger. file may be empty, in which case only the
// console core is installed.
func Init(cfg Config) *zap.Logger {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			level = zapcore.InfoLevel
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core
	if cfg.File != "" {
		sink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.FileSize,
			MaxBackups: cfg.FileCount,
			MaxAge:     cfg.KeepDays,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, level))
	}
	if cfg.Console || cfg.File == "" {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stderr), level))
	}

	lg := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	mu.Lock()
	global = lg
	mu.Unlock()
	return lg
}

func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}
