// default logger
package log

import (
	"go.uber.org/zap"
)

func init() {
	// call InitLog outside if need change cfg
	InitLog(DefaultDebugCfg())
}

var L *zap.Logger

func InitLog(cfg zap.Config) {
	var err error
	if L, err = cfg.Build(); err != nil {
		panic(err)
	}
}

// InitLogByMode picks the cfg by name, anything but "prod" gets the debug cfg.
func InitLogByMode(mode string) {
	if mode == "prod" {
		InitLog(DefaultProdCfg())
		return
	}
	InitLog(DefaultDebugCfg())
}

func DefaultDebugCfg() zap.Config {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)

	return cfg
}

func DefaultProdCfg() zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)

	return cfg
}
