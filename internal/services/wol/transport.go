package wol

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/fgeck/magicpacket/internal/magicpacket"
	"github.com/mdlayher/wol"
)

// Transport sends one magic packet datagram. Implementations must honour ctx.
type Transport interface {
	Send(ctx context.Context, dst netip.AddrPort, target magicpacket.MAC, password magicpacket.Password) error
}

// UDPTransport sends magic packets through a single mdlayher/wol client. The
// client socket is opened on first use and reused until Close.
type UDPTransport struct {
	mu     sync.Mutex
	client *wol.Client
	closed bool
}

// NewUDPTransport creates a transport; no socket is opened yet.
func NewUDPTransport() *UDPTransport {
	return &UDPTransport{}
}

func (t *UDPTransport) wolClient() (*wol.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, net.ErrClosed
	}
	if t.client != nil {
		return t.client, nil
	}

	client, err := wol.NewClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create WOL client: %w", err)
	}
	t.client = client

	return client, nil
}

// Send writes the magic packet for target to dst.
func (t *UDPTransport) Send(ctx context.Context, dst netip.AddrPort, target magicpacket.MAC, password magicpacket.Password) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := t.wolClient()
	if err != nil {
		return err
	}

	if err := client.WakePassword(dst.String(), target.HardwareAddr(), password); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}

	return nil
}

// Close releases the socket. Calling Close more than once is a no-op.
func (t *UDPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	if t.client == nil {
		return nil
	}
	return t.client.Close()
}
