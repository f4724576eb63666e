//go:build linux

package netif

import (
	"context"
	"fmt"
	"net"

	"github.com/fgeck/magicpacket/internal/models"
	"github.com/vishvananda/netlink"
)

// DefaultSource returns the netlink backed source on Linux.
func DefaultSource() InterfaceSource {
	return NetlinkSource{}
}

// NetlinkSource enumerates interfaces and their IPv4 addresses over rtnetlink.
type NetlinkSource struct{}

// Interfaces implements InterfaceSource.
func (NetlinkSource) Interfaces(ctx context.Context) ([]models.InterfaceView, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("listing links: %w", err)
	}

	views := make([]models.InterfaceView, 0, len(links))
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attrs := link.Attrs()
		addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
		if err != nil {
			return nil, fmt.Errorf("listing addresses of %s: %w", attrs.Name, err)
		}

		views = append(views, viewFromLink(attrs, addrs))
	}

	return views, nil
}

func viewFromLink(attrs *netlink.LinkAttrs, addrs []netlink.Addr) models.InterfaceView {
	// Virtual links (tun, wireguard) never leave the unknown state.
	operUp := attrs.OperState == netlink.OperUp || attrs.OperState == netlink.OperUnknown

	view := models.InterfaceView{
		Name:     attrs.Name,
		Up:       attrs.Flags&net.FlagUp != 0 && operUp,
		Loopback: attrs.Flags&net.FlagLoopback != 0,
	}

	for _, addr := range addrs {
		if addr.IPNet == nil {
			continue
		}
		if unicast, ok := unicastFromIPNet(addr.IPNet); ok {
			view.Unicast = append(view.Unicast, unicast)
		}
	}

	return view
}
