package internal

import (
	"context"
	"errors"
	"fmt"
	"github.com/inconshreveable/log15"
	"golang.ngrok.com/ngrok"
	"golang.ngrok.com/ngrok/config"
	"net/url"
	"strings"
)

// Tunnel is an open public endpoint. Close tears it down.
type Tunnel interface {
	URL() string
	Close() error
}

type Tunneler interface {
	Open(ctx context.Context, ep Endpoint, cfg TunnelConfig) (Tunnel, error)
}

// TunnelError is returned for every failure to establish a tunnel with the
// provider. It is the only error that gets published.
type TunnelError struct {
	Err error
}

func (e *TunnelError) Error() string { return e.Err.Error() }
func (e *TunnelError) Unwrap() error { return e.Err }

// NgrokTunneler forwards an ngrok HTTPS endpoint to the local endpoint.
type NgrokTunneler struct {
	Logger  log15.Logger
	Verbose bool
	Getenv  func(string) string
}

func (t NgrokTunneler) Open(ctx context.Context, ep Endpoint, cfg TunnelConfig) (Tunnel, error) {
	opts, err := t.connectOptions(cfg)
	if err != nil {
		return nil, &TunnelError{Err: err}
	}

	backend := &url.URL{Scheme: "http", Host: ep.Addr()}
	fwd, err := ngrok.ListenAndForward(ctx, backend, config.HTTPEndpoint(), opts...)
	if err != nil {
		return nil, &TunnelError{Err: fmt.Errorf("error creating ngrok tunnel: %w", err)}
	}
	return ngrokTunnel{fwd}, nil
}

// ngrokTunnel owns the session ListenAndForward created, so closing it tears
// down the whole agent connection and not only the forwarder.
type ngrokTunnel struct {
	ngrok.Forwarder
}

func (t ngrokTunnel) Close() error {
	return errors.Join(t.Forwarder.Close(), t.Forwarder.Session().Close())
}

func (t NgrokTunneler) connectOptions(cfg TunnelConfig) ([]ngrok.ConnectOption, error) {
	var fc FileConfig
	if cfg.ConfigPath != "" {
		var err error
		if fc, err = ReadConfigFile(cfg.ConfigPath); err != nil {
			return nil, err
		}
	}

	getenv := t.Getenv
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	var opts []ngrok.ConnectOption
	if token := AuthToken(cfg, fc, getenv); token != "" {
		opts = append(opts, ngrok.WithAuthtoken(token))
	}
	if region := fc.RegionName(); region != "" {
		opts = append(opts, ngrok.WithRegion(region))
	}
	if server := fc.Server(); server != "" {
		opts = append(opts, ngrok.WithServer(server))
	}
	if t.Logger != nil {
		opts = append(opts, ngrok.WithLogger(NewNgrokLogger(t.Logger, t.Verbose)))
	}
	return opts, nil
}

// AuthToken picks the token from the explicit configuration first, then the
// config file, then NGROK_AUTHTOKEN.
func AuthToken(cfg TunnelConfig, fc FileConfig, getenv func(string) string) string {
	if cfg.AuthToken != "" {
		return cfg.AuthToken
	}
	if token := fc.Token(); token != "" {
		return token
	}
	return getenv("NGROK_AUTHTOKEN")
}

func NormalizeURL(u string) string {
	if rest, ok := strings.CutPrefix(u, "http://"); ok {
		return "https://" + rest
	}
	return u
}
