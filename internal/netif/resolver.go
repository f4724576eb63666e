// Package netif discovers the IPv4 broadcast addresses of the host's
// network interfaces.
package netif

import (
	"context"
	"iter"
	"net/netip"

	"github.com/fgeck/magicpacket/internal/models"
	"github.com/rs/zerolog"
)

// InterfaceSource returns a fresh snapshot of the host's interfaces.
type InterfaceSource interface {
	Interfaces(ctx context.Context) ([]models.InterfaceView, error)
}

// Resolver turns interface snapshots into broadcast targets.
type Resolver struct {
	source InterfaceSource
	logger zerolog.Logger
}

// New creates a resolver backed by the platform's default source.
func New(logger zerolog.Logger) *Resolver {
	return &Resolver{
		source: DefaultSource(),
		logger: logger,
	}
}

// NewWithSource creates a resolver with a custom source (for testing).
func NewWithSource(logger zerolog.Logger, source InterfaceSource) *Resolver {
	return &Resolver{
		source: source,
		logger: logger,
	}
}

// Snapshot returns the raw interface views without any filtering.
func (r *Resolver) Snapshot(ctx context.Context) ([]models.InterfaceView, error) {
	return r.source.Interfaces(ctx)
}

// ResolveAll yields the broadcast address of every IPv4 address configured
// on an up, non-loopback interface. The host is queried each time the
// sequence is iterated. A host without such interfaces yields nothing.
func (r *Resolver) ResolveAll(ctx context.Context) iter.Seq[netip.Addr] {
	return func(yield func(netip.Addr) bool) {
		views, err := r.source.Interfaces(ctx)
		if err != nil {
			r.logger.Warn().Err(err).Msg("failed to enumerate network interfaces")
			return
		}

		for _, view := range views {
			if !Usable(view) {
				r.logger.Debug().
					Str("interface", view.Name).
					Bool("up", view.Up).
					Bool("loopback", view.Loopback).
					Msg("skipping interface")
				continue
			}

			for _, unicast := range view.Unicast {
				broadcast, ok := BroadcastFor(unicast.Address, unicast.Mask)
				if !ok {
					continue
				}

				r.logger.Debug().
					Str("interface", view.Name).
					Str("address", unicast.Address.String()).
					Str("broadcast", broadcast.String()).
					Msg("resolved broadcast address")

				if !yield(broadcast) {
					return
				}
			}
		}
	}
}

// Usable reports whether frames may be broadcast through view.
func Usable(view models.InterfaceView) bool {
	return view.Up && !view.Loopback
}
