// Package discovery lets a TCP caller find a host tool advertising itself
// over mDNS instead of hard-coding host:port, mirroring the advertise side
// a host tool's cmd/mdns.go implements for its own TCP service.
package discovery

import (
	"context"
	"fmt"
	"net"

	"github.com/grandcat/zeroconf"
)

// DefaultServiceType is the mDNS service type a host tool is expected to
// advertise when it wants to be auto-discovered rather than dialed at a
// known address.
const DefaultServiceType = "_gpu-host._tcp"

// Find browses for serviceType on the local network and returns the
// host/port of the first instance seen before ctx is done. It performs a
// single browse pass; there is no retry or backoff.
func Find(ctx context.Context, serviceType string) (host string, port int, err error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return "", 0, fmt.Errorf("discovery: new resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 4)
	browseCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := resolver.Browse(browseCtx, serviceType, "local.", entries); err != nil {
		return "", 0, fmt.Errorf("discovery: browse: %w", err)
	}

	select {
	case entry, ok := <-entries:
		if !ok || entry == nil {
			return "", 0, fmt.Errorf("discovery: no %s instance found", serviceType)
		}
		if len(entry.AddrIPv4) == 0 {
			return "", 0, fmt.Errorf("discovery: instance %s has no IPv4 address", entry.Instance)
		}
		return entry.AddrIPv4[0].String(), entry.Port, nil
	case <-ctx.Done():
		return "", 0, ctx.Err()
	}
}

// FindAddr is a convenience wrapper returning a dialable "host:port" string.
func FindAddr(ctx context.Context, serviceType string) (string, error) {
	host, port, err := Find(ctx, serviceType)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(host, fmt.Sprintf("%d", port)), nil
}
