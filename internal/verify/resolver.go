package verify

import (
	"context"
	"net"
	"time"
)

// TXTResolver looks up DNS TXT records for a hostname. The state machine
// only needs this one lookup, so tests swap in a fake.
type TXTResolver interface {
	LookupTXT(ctx context.Context, host string) ([]string, error)
}

var lookupTimeout = 5 * time.Second

// Resolver queries a pinned DNS server instead of whatever the OS is
// configured with, so verification sees the public view of the zone.
type Resolver struct {
	r *net.Resolver
}

// NewResolver pins lookups to the given server ("host:port"). An empty
// server falls back to the OS resolver.
func NewResolver(server string) *Resolver {
	r := &net.Resolver{}
	if server != "" {
		r = &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, server)
			},
		}
	}
	return &Resolver{r: r}
}

func (r *Resolver) LookupTXT(ctx context.Context, host string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	return r.r.LookupTXT(ctx, host)
}
