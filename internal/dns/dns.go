package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// publicServers are queried when the system resolver fails.
var publicServers = []string{
	"1.1.1.1",                // Cloudflare
	"1.0.0.1",                // Cloudflare
	"[2606:4700:4700::1111]", // Cloudflare
	"8.8.8.8",                // Google
	"8.8.4.4",                // Google
	"[2001:4860:4860::8888]", // Google
	"9.9.9.9",                // Quad9
	"149.112.112.112",        // Quad9
	"208.67.222.222",         // Cisco OpenDNS
}

var ErrNoAddress = errors.New("no addresses found")

// Resolver looks names up with the system resolver first and races a set of
// public DNS servers if that fails.
type Resolver struct {
	Servers      []string
	LocalTimeout time.Duration
	RaceTimeout  time.Duration
}

func NewResolver() *Resolver {
	return &Resolver{
		Servers:      publicServers,
		LocalTimeout: time.Second,
		RaceTimeout:  2 * time.Second,
	}
}

// Lookup returns one address for host, preferring IPv4. IP literals are
// returned unchanged.
func (r *Resolver) Lookup(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	local, cancel := context.WithTimeout(ctx, r.LocalTimeout)
	addr, err := lookup(local, &net.Resolver{}, host)
	cancel()
	if err == nil {
		return addr, nil
	}
	if len(r.Servers) == 0 {
		return "", err
	}
	return r.race(ctx, host)
}

// DialContext resolves the host part of addr with Lookup and dials the result.
// It fits websocket.Dialer.NetDialContext.
func (r *Resolver) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	ip, err := r.Lookup(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("dns lookup failed: %w", err)
	}

	var d net.Dialer
	return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
}

func (r *Resolver) race(ctx context.Context, host string) (string, error) {
	type result struct {
		addr string
		err  error
	}

	ctx, cancel := context.WithTimeout(ctx, r.RaceTimeout)
	defer cancel()

	results := make(chan result, len(r.Servers))
	for _, server := range r.Servers {
		go func() {
			addr, err := lookup(ctx, viaServer(server), host)
			results <- result{addr: addr, err: err}
		}()
	}

	for range r.Servers {
		select {
		case res := <-results:
			if res.err == nil {
				return res.addr, nil
			}
		case <-ctx.Done():
			return "", fmt.Errorf("public dns race for %s: %w", host, ctx.Err())
		}
	}
	return "", fmt.Errorf("failed to resolve %s: all %d public dns servers failed", host, len(r.Servers))
}

func viaServer(server string) *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(trimBrackets(server), "53"))
		},
	}
}

func lookup(ctx context.Context, r *net.Resolver, host string) (string, error) {
	addrs, err := r.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", ErrNoAddress
	}
	for _, a := range addrs {
		if net.ParseIP(a).To4() != nil {
			return a, nil
		}
	}
	return addrs[0], nil
}

func trimBrackets(s string) string {
	if len(s) > 1 && s[0] == '[' && s[len(s)-1] == ']' {
		return s[1 : len(s)-1]
	}
	return s
}
