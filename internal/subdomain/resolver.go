// Package subdomain enumerates likely subdomains of a base domain via
// wordlist-driven DNS resolution.
package subdomain

import (
	"context"
	"errors"
	"net"
)

// ErrUnresolved is the normal outcome for a hostname with no DNS record.
var ErrUnresolved = errors.New("could not resolve host")

// Resolver maps a hostname to an address. Resolution failure is encoded as
// ErrUnresolved, never raised as an exceptional condition; a single attempt
// is made per call.
type Resolver interface {
	Resolve(ctx context.Context, host string) (string, error)
}

// NetResolver resolves through the system DNS.
type NetResolver struct {
	resolver *net.Resolver
}

// NewNetResolver builds a resolver on the default system configuration.
func NewNetResolver() *NetResolver {
	return &NetResolver{resolver: net.DefaultResolver}
}

// Resolve returns the first address of host, or ErrUnresolved.
func (r *NetResolver) Resolve(ctx context.Context, host string) (string, error) {
	addrs, err := r.resolver.LookupHost(ctx, host)
	if err != nil || len(addrs) == 0 {
		return "", ErrUnresolved
	}
	return addrs[0], nil
}
