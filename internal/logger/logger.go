package logger

import "go.uber.org/zap"

// Log is a nop until Init runs, so packages can log unconditionally.
var Log = zap.NewNop()

func Init() {
	Log = zap.Must(zap.NewProduction())
}

func Sugar() *zap.SugaredLogger {
	return Log.Sugar()
}
