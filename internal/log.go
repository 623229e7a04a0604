package internal

import (
	"context"
	"github.com/inconshreveable/log15"
	"golang.ngrok.com/ngrok/log"
	"os"
)

func NewLogger(level string) log15.Logger {
	lvl, err := log15.LvlFromString(level)
	if err != nil {
		lvl = log15.LvlInfo
	}

	logger := log15.New("module", "tunnel")
	logger.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(os.Stderr, log15.TerminalFormat())))
	return logger
}

// ngrokLogger sends the ngrok SDK's log output through log15. The SDK is
// chatty, so anything below warn is dropped unless verbose is set.
type ngrokLogger struct {
	logger  log15.Logger
	verbose bool
}

func NewNgrokLogger(logger log15.Logger, verbose bool) log.Logger {
	return &ngrokLogger{logger: logger.New("component", "ngrok"), verbose: verbose}
}

func (l *ngrokLogger) Log(_ context.Context, level log.LogLevel, msg string, data map[string]interface{}) {
	ctx := make([]interface{}, 0, 2*len(data))
	for k, v := range data {
		ctx = append(ctx, k, v)
	}

	switch {
	case level <= log.LogLevelNone:
	case level == log.LogLevelError:
		l.logger.Error(msg, ctx...)
	case level == log.LogLevelWarn:
		l.logger.Warn(msg, ctx...)
	case !l.verbose:
	case level == log.LogLevelInfo:
		l.logger.Info(msg, ctx...)
	default:
		l.logger.Debug(msg, ctx...)
	}
}
