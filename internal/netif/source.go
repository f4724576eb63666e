package netif

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"github.com/fgeck/magicpacket/internal/models"
)

// StdlibSource enumerates interfaces through the net package.
type StdlibSource struct{}

// Interfaces implements InterfaceSource.
func (StdlibSource) Interfaces(ctx context.Context) ([]models.InterfaceView, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("listing interfaces: %w", err)
	}

	views := make([]models.InterfaceView, 0, len(ifaces))
	for _, iface := range ifaces {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		addrs, err := iface.Addrs()
		if err != nil {
			return nil, fmt.Errorf("listing addresses of %s: %w", iface.Name, err)
		}

		views = append(views, viewFromInterface(iface, addrs))
	}

	return views, nil
}

func viewFromInterface(iface net.Interface, addrs []net.Addr) models.InterfaceView {
	view := models.InterfaceView{
		Name:     iface.Name,
		Up:       iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagRunning != 0,
		Loopback: iface.Flags&net.FlagLoopback != 0,
	}

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		if unicast, ok := unicastFromIPNet(ipNet); ok {
			view.Unicast = append(view.Unicast, unicast)
		}
	}

	return view
}

// unicastFromIPNet converts ipNet, giving non-IPv4 entries the 0.0.0.0 mask.
func unicastFromIPNet(ipNet *net.IPNet) (models.UnicastAddress, bool) {
	address, ok := netip.AddrFromSlice(ipNet.IP)
	if !ok {
		return models.UnicastAddress{}, false
	}
	address = address.Unmap()

	unicast := models.UnicastAddress{
		Address: address,
		Mask:    netip.IPv4Unspecified(),
	}
	if !address.Is4() {
		return unicast, true
	}

	mask := ipNet.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	if len(mask) == net.IPv4len {
		unicast.Mask = netip.AddrFrom4([4]byte(mask))
	}

	return unicast, true
}
