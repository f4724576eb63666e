package main

import (
	"fmt"

	"github.com/fgeck/magicpacket/internal/netif"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List network interfaces and their broadcast addresses",
	Long: `List every network interface with its IPv4 addresses and the broadcast
address magic packets would be sent to. Loopback and down interfaces are
shown but skipped when broadcasting on all interfaces.`,
	Args: cobra.NoArgs,
	RunE: listInterfaces,
}

func listInterfaces(cmd *cobra.Command, args []string) error {
	resolver := netif.New(log.Logger)

	views, err := resolver.Snapshot(cmd.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to enumerate network interfaces")
		return err
	}

	for _, view := range views {
		state := "skipped"
		if netif.Usable(view) {
			state = "used"
		}
		fmt.Printf("%s (up: %v, loopback: %v, %s)\n", view.Name, view.Up, view.Loopback, state)

		for _, unicast := range view.Unicast {
			broadcast, ok := netif.BroadcastFor(unicast.Address, unicast.Mask)
			if !ok {
				fmt.Printf("  %s: no IPv4 broadcast\n", unicast.Address)
				continue
			}
			fmt.Printf("  %s mask %s -> %s\n", unicast.Address, unicast.Mask, broadcast)
		}
	}

	return nil
}
