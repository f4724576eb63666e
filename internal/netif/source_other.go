//go:build !linux

package netif

// DefaultSource returns the net package backed source.
func DefaultSource() InterfaceSource {
	return StdlibSource{}
}
