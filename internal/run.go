package internal

import (
	"context"
	"errors"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/inconshreveable/log15"
	"os"
	"path/filepath"
)

type Options struct {
	// Dir holds ngrok.yml, the url file and the pid file.
	Dir      string
	Getenv   func(string) string
	Tunneler Tunneler
	Logger   log15.Logger

	// Notify reports service state to a supervisor. Defaults to sd_notify.
	Notify func(state string) (bool, error)
}

// Run resolves the endpoint, opens the tunnel, publishes its URL and then
// accepts connections until ctx is cancelled. A tunnel failure is published
// in place of the URL and returned without ever listening.
func Run(ctx context.Context, opts Options) (err error) {
	logger := opts.Logger
	if logger == nil {
		logger = log15.New()
		logger.SetHandler(log15.DiscardHandler())
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	notify := opts.Notify
	if notify == nil {
		notify = func(state string) (bool, error) { return daemon.SdNotify(false, state) }
	}

	lock, err := AcquireInstanceLock(filepath.Join(opts.Dir, PIDFileName))
	if err != nil {
		return err
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil {
			logger.Warn("error releasing pid file", "err", rerr)
		}
	}()

	ep, err := ResolveEndpoint(ctx, getenv)
	if err != nil {
		return err
	}

	cfg, err := LoadTunnelConfig(opts.Dir, getenv)
	if err != nil {
		return err
	}
	if cfg.ConfigPath != "" {
		logger.Debug("using tunnel config file", "path", cfg.ConfigPath)
	}

	urlPath := filepath.Join(opts.Dir, URLFileName)
	tunnel, err := opts.Tunneler.Open(ctx, ep, cfg)
	if err != nil {
		var te *TunnelError
		if !errors.As(err, &te) {
			return err
		}
		if ctx.Err() != nil {
			logger.Info("shutting down before the tunnel was established")
			return nil
		}

		logger.Error("error opening tunnel", "err", te)
		if perr := Publish(urlPath, te.Error()); perr != nil {
			return errors.Join(err, perr)
		}
		return err
	}

	acceptor := NewAcceptor(ep.Host, ep.Port, logger)
	defer func() {
		if cerr := tunnel.Close(); cerr != nil {
			logger.Warn("error closing tunnel", "err", cerr)
		}
		err = errors.Join(err, acceptor.Close())
	}()

	ep.PublicURL = NormalizeURL(tunnel.URL())
	if err := Publish(urlPath, ep.PublicURL); err != nil {
		return err
	}
	logger.Info("hosting to the public URL", "url", ep.PublicURL)

	if err := acceptor.Listen(); err != nil {
		return err
	}

	if sent, nerr := notify(daemon.SdNotifyReady); nerr != nil {
		logger.Warn("failed to notify service manager of readiness", "err", nerr)
	} else if sent {
		logger.Debug("notified service manager of readiness")
	}

	err = acceptor.Serve(ctx)
	if _, nerr := notify(daemon.SdNotifyStopping); nerr != nil {
		logger.Warn("failed to notify service manager of shutdown", "err", nerr)
	}
	return err
}
