package internal

import (
	"context"
	"fmt"
	"net"
	"strconv"
)

const DefaultPort = 4443

// Endpoint describes the local side of the tunnel and, once the tunnel is
// up, the public URL that reaches it.
type Endpoint struct {
	Host      string
	Port      int
	PublicURL string
}

func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// ResolveEndpoint looks up the loopback host and reads the listening port
// from the "port" environment variable.
func ResolveEndpoint(ctx context.Context, getenv func(string) string) (Endpoint, error) {
	port, err := ParsePort(getenv("port"))
	if err != nil {
		return Endpoint{}, err
	}

	host, err := LookupLocalhost(ctx)
	if err != nil {
		return Endpoint{}, err
	}

	return Endpoint{Host: host, Port: port}, nil
}

func ParsePort(s string) (int, error) {
	if s == "" {
		return DefaultPort, nil
	}

	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", s, err)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %d: out of range", port)
	}
	return port, nil
}

func LookupLocalhost(ctx context.Context) (string, error) {
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, "localhost")
	if err != nil {
		return "", fmt.Errorf("error looking up ip for hostname localhost: %w", err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no addresses found for hostname localhost")
	}

	for i := range addrs {
		if ipv4 := addrs[i].IP.To4(); ipv4 != nil {
			return ipv4.String(), nil
		}
	}
	return addrs[0].IP.String(), nil
}
