package wol

import (
	"context"
	"errors"
	"io"
	"iter"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/fgeck/magicpacket/internal/magicpacket"
	"github.com/fgeck/magicpacket/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentDatagram struct {
	payload []byte
	dst     netip.AddrPort
}

type mockTransport struct {
	mu       sync.Mutex
	sent     []sentDatagram
	sendFunc func(ctx context.Context, dst netip.AddrPort) error
	closed   int
}

func (m *mockTransport) Send(ctx context.Context, dst netip.AddrPort, target magicpacket.MAC, password magicpacket.Password) error {
	m.mu.Lock()
	m.sent = append(m.sent, sentDatagram{payload: magicpacket.Build(target, password), dst: dst})
	m.mu.Unlock()

	if m.sendFunc != nil {
		return m.sendFunc(ctx, dst)
	}
	return nil
}

func (m *mockTransport) Close() error {
	m.closed++
	return nil
}

func (m *mockTransport) destinations() []netip.AddrPort {
	m.mu.Lock()
	defer m.mu.Unlock()

	dsts := make([]netip.AddrPort, 0, len(m.sent))
	for _, d := range m.sent {
		dsts = append(dsts, d.dst)
	}
	return dsts
}

type mockResolver struct {
	addrs []netip.Addr
	calls int
}

func (m *mockResolver) ResolveAll(ctx context.Context) iter.Seq[netip.Addr] {
	return func(yield func(netip.Addr) bool) {
		m.calls++
		for _, addr := range m.addrs {
			if !yield(addr) {
				return
			}
		}
	}
}

type mockRecorder struct {
	mu       sync.Mutex
	sent     map[uint16]int
	failed   map[uint16]int
	outcomes []models.Outcome
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{sent: map[uint16]int{}, failed: map[uint16]int{}}
}

func (m *mockRecorder) DatagramSent(port uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[port]++
}

func (m *mockRecorder) DatagramFailed(port uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[port]++
}

func (m *mockRecorder) WakeFinished(outcome models.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func addrs(s ...string) []netip.Addr {
	out := make([]netip.Addr, 0, len(s))
	for _, a := range s {
		out = append(out, netip.MustParseAddr(a))
	}
	return out
}

func portsOf(addr string) []netip.AddrPort {
	a := netip.MustParseAddr(addr)
	return []netip.AddrPort{
		netip.AddrPortFrom(a, 0),
		netip.AddrPortFrom(a, 7),
		netip.AddrPortFrom(a, 9),
	}
}

func TestBroadcastOnSingleInterface_Success(t *testing.T) {
	transport := &mockTransport{}
	recorder := newMockRecorder()
	svc := NewWithClients(testLogger(), transport, &mockResolver{}, WithRecorder(recorder))

	result, err := svc.BroadcastOnSingleInterface(context.Background(), "AA:BB:CC:DD:EE:FF", "192.168.1.255", "", 0)

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCompleted, result.Outcome)
	assert.Equal(t, addrs("192.168.1.255"), result.Targets)
	assert.Equal(t, 3, result.DatagramsSent)
	assert.Empty(t, result.Failures)
	assert.Nil(t, result.Error)

	assert.Equal(t, portsOf("192.168.1.255"), transport.destinations())
	for _, d := range transport.sent {
		assert.Len(t, d.payload, magicpacket.FrameSize)
	}
	assert.Equal(t, map[uint16]int{0: 1, 7: 1, 9: 1}, recorder.sent)
	assert.Equal(t, []models.Outcome{models.OutcomeCompleted}, recorder.outcomes)
}

func TestBroadcastOnSingleInterface_WithPassword(t *testing.T) {
	transport := &mockTransport{}
	svc := NewWithClients(testLogger(), transport, &mockResolver{})

	_, err := svc.BroadcastOnSingleInterface(context.Background(), "AA:BB:CC:DD:EE:FF", "10.0.0.255", "a1b2c3d4e5f6", 0)

	require.NoError(t, err)
	require.Len(t, transport.sent, 3)
	for _, d := range transport.sent {
		assert.Len(t, d.payload, magicpacket.FrameSizeWithPassword6)
		assert.Equal(t, []byte{0xa1, 0xb2, 0xc3, 0xd4, 0xe5, 0xf6}, d.payload[magicpacket.FrameSize:])
	}
}

func TestBroadcastOnSingleInterface_Rejected(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		broadcast string
		password  string
		wantErr   error
	}{
		{"empty target", "", "192.168.1.255", "", magicpacket.ErrMissingValue},
		{"blank target", "   ", "192.168.1.255", "", magicpacket.ErrMissingValue},
		{"short target", "AABBCCDDEE", "192.168.1.255", "", magicpacket.ErrInvalidFormat},
		{"bad character", "AABB.CCDD.EEFF", "192.168.1.255", "", magicpacket.ErrInvalidFormat},
		{"bad password", "AA:BB:CC:DD:EE:FF", "192.168.1.255", "abc", magicpacket.ErrInvalidFormat},
		{"missing broadcast", "AA:BB:CC:DD:EE:FF", "", "", magicpacket.ErrMissingValue},
		{"ipv6 broadcast", "AA:BB:CC:DD:EE:FF", "ff02::1", "", magicpacket.ErrInvalidFormat},
		{"bad broadcast", "AA:BB:CC:DD:EE:FF", "not-an-ip", "", magicpacket.ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &mockTransport{}
			recorder := newMockRecorder()
			svc := NewWithClients(testLogger(), transport, &mockResolver{}, WithRecorder(recorder))

			result, err := svc.BroadcastOnSingleInterface(context.Background(), tt.target, tt.broadcast, tt.password, 0)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, models.OutcomeRejected, result.Outcome)
			assert.Empty(t, transport.sent)
			assert.Equal(t, []models.Outcome{models.OutcomeRejected}, recorder.outcomes)
		})
	}
}

func TestBroadcastOnAllInterfaces_EmptyTargetSendsNothing(t *testing.T) {
	transport := &mockTransport{}
	resolver := &mockResolver{addrs: addrs("192.168.1.255")}
	svc := NewWithClients(testLogger(), transport, resolver)

	result, err := svc.BroadcastOnAllInterfaces(context.Background(), "", "", 0)

	require.Error(t, err)
	assert.ErrorIs(t, err, magicpacket.ErrMissingValue)
	assert.Equal(t, models.OutcomeRejected, result.Outcome)
	assert.Empty(t, transport.sent)
	assert.Equal(t, 0, resolver.calls)
}

func TestBroadcastOnAllInterfaces_Success(t *testing.T) {
	transport := &mockTransport{}
	resolver := &mockResolver{addrs: addrs("192.168.1.255", "10.0.255.255")}
	svc := NewWithClients(testLogger(), transport, resolver)

	result, err := svc.BroadcastOnAllInterfaces(context.Background(), "aa-bb-cc-dd-ee-ff", "01020304", 0)

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCompleted, result.Outcome)
	assert.Equal(t, addrs("192.168.1.255", "10.0.255.255"), result.Targets)
	assert.Equal(t, 6, result.DatagramsSent)

	want := append(portsOf("192.168.1.255"), portsOf("10.0.255.255")...)
	assert.Equal(t, want, transport.destinations())
	for _, d := range transport.sent {
		assert.Len(t, d.payload, magicpacket.FrameSizeWithPassword4)
	}
}

func TestBroadcastOnAllInterfaces_NoInterfaces(t *testing.T) {
	transport := &mockTransport{}
	svc := NewWithClients(testLogger(), transport, &mockResolver{})

	result, err := svc.BroadcastOnAllInterfaces(context.Background(), "AA:BB:CC:DD:EE:FF", "", 0)

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCompleted, result.Outcome)
	assert.Empty(t, result.Targets)
	assert.Empty(t, transport.sent)
}

func TestBroadcastOnAllInterfaces_TransportFailuresAreIsolated(t *testing.T) {
	transport := &mockTransport{
		sendFunc: func(ctx context.Context, dst netip.AddrPort) error {
			if dst.Port() == 0 || dst.Addr() == netip.MustParseAddr("10.0.255.255") {
				return errors.New("network is unreachable")
			}
			return nil
		},
	}
	recorder := newMockRecorder()
	resolver := &mockResolver{addrs: addrs("192.168.1.255", "10.0.255.255", "172.16.7.255")}
	svc := NewWithClients(testLogger(), transport, resolver, WithRecorder(recorder))

	result, err := svc.BroadcastOnAllInterfaces(context.Background(), "AA:BB:CC:DD:EE:FF", "", 0)

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCompleted, result.Outcome)
	assert.Len(t, transport.sent, 9)
	assert.Equal(t, 4, result.DatagramsSent)
	require.Len(t, result.Failures, 5)

	assert.Equal(t, netip.MustParseAddrPort("192.168.1.255:0"), result.Failures[0].Destination)
	assert.Equal(t, netip.MustParseAddrPort("10.0.255.255:0"), result.Failures[1].Destination)
	assert.Equal(t, netip.MustParseAddrPort("10.0.255.255:7"), result.Failures[2].Destination)
	assert.Equal(t, netip.MustParseAddrPort("10.0.255.255:9"), result.Failures[3].Destination)
	assert.Equal(t, netip.MustParseAddrPort("172.16.7.255:0"), result.Failures[4].Destination)
	assert.Contains(t, result.Failures[0].Error(), "network is unreachable")

	assert.Equal(t, map[uint16]int{0: 3, 7: 1, 9: 1}, recorder.failed)
	assert.Equal(t, map[uint16]int{7: 2, 9: 2}, recorder.sent)
}

func TestBroadcastOnAllInterfaces_CancelledBeforeSend(t *testing.T) {
	transport := &mockTransport{}
	resolver := &mockResolver{addrs: addrs("192.168.1.255", "10.0.255.255")}
	svc := NewWithClients(testLogger(), transport, resolver)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.BroadcastOnAllInterfaces(ctx, "AA:BB:CC:DD:EE:FF", "", 0)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.OutcomeCancelled, result.Outcome)
	assert.Empty(t, transport.sent)
	assert.Empty(t, result.Targets)
}

func TestBroadcastOnAllInterfaces_CancelledAfterFirstAddress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport := &mockTransport{}
	transport.sendFunc = func(_ context.Context, _ netip.AddrPort) error {
		if len(transport.sent) == 3 {
			cancel()
		}
		return nil
	}
	resolver := &mockResolver{addrs: addrs("192.168.1.255", "10.0.255.255", "172.16.7.255")}
	svc := NewWithClients(testLogger(), transport, resolver)

	result, err := svc.BroadcastOnAllInterfaces(ctx, "AA:BB:CC:DD:EE:FF", "", 0)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.OutcomeCancelled, result.Outcome)
	assert.Equal(t, portsOf("192.168.1.255"), transport.destinations())
	assert.Equal(t, addrs("192.168.1.255"), result.Targets)
	assert.Equal(t, 3, result.DatagramsSent)
}

func TestBroadcastOnAllInterfaces_CancelledDuringSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport := &mockTransport{
		sendFunc: func(ctx context.Context, dst netip.AddrPort) error {
			if dst.Port() == 7 {
				cancel()
				return ctx.Err()
			}
			return nil
		},
	}
	resolver := &mockResolver{addrs: addrs("192.168.1.255", "10.0.255.255")}
	svc := NewWithClients(testLogger(), transport, resolver)

	result, err := svc.BroadcastOnAllInterfaces(ctx, "AA:BB:CC:DD:EE:FF", "", 0)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, transport.sent, 2)
	assert.Empty(t, result.Failures)
	assert.Equal(t, 1, result.DatagramsSent)
}

func TestBroadcastOnSingleInterface_Timeout(t *testing.T) {
	transport := &mockTransport{
		sendFunc: func(ctx context.Context, _ netip.AddrPort) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	svc := NewWithClients(testLogger(), transport, &mockResolver{})

	result, err := svc.BroadcastOnSingleInterface(context.Background(), "AA:BB:CC:DD:EE:FF", "192.168.1.255", "", 20*time.Millisecond)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, models.OutcomeCancelled, result.Outcome)
	assert.Len(t, transport.sent, 1)
}

func TestBroadcastOnAllInterfaces_Parallel(t *testing.T) {
	transport := &mockTransport{}
	resolver := &mockResolver{addrs: addrs("192.168.1.255", "10.0.255.255", "172.16.7.255", "10.1.255.255")}
	svc := NewWithClients(testLogger(), transport, resolver, WithParallelism(2))

	result, err := svc.BroadcastOnAllInterfaces(context.Background(), "AA:BB:CC:DD:EE:FF", "", 0)

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCompleted, result.Outcome)
	assert.ElementsMatch(t, resolver.addrs, result.Targets)
	assert.Equal(t, 12, result.DatagramsSent)
	assert.Len(t, transport.sent, 12)

	// Ports stay ordered per destination.
	byAddr := map[netip.Addr][]uint16{}
	for _, dst := range transport.destinations() {
		byAddr[dst.Addr()] = append(byAddr[dst.Addr()], dst.Port())
	}
	for _, addr := range resolver.addrs {
		assert.Equal(t, []uint16{0, 7, 9}, byAddr[addr])
	}
}

func TestBroadcastOnAllInterfaces_ParallelCancelledBeforeSend(t *testing.T) {
	transport := &mockTransport{}
	resolver := &mockResolver{addrs: addrs("192.168.1.255", "10.0.255.255")}
	svc := NewWithClients(testLogger(), transport, resolver, WithParallelism(4))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.BroadcastOnAllInterfaces(ctx, "AA:BB:CC:DD:EE:FF", "", 0)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.OutcomeCancelled, result.Outcome)
	assert.Empty(t, transport.sent)
}

func TestBroadcastOnAllInterfaces_ParallelCancelledMidFlight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := netip.MustParseAddr("192.168.1.255")
	second := netip.MustParseAddr("10.0.255.255")
	transport := &mockTransport{
		sendFunc: func(ctx context.Context, dst netip.AddrPort) error {
			if dst.Addr() == first {
				cancel()
			}
			<-ctx.Done()
			return ctx.Err()
		},
	}
	recorder := newMockRecorder()
	resolver := &mockResolver{addrs: addrs("192.168.1.255", "10.0.255.255", "172.16.7.255", "10.1.255.255")}
	svc := NewWithClients(testLogger(), transport, resolver, WithParallelism(2), WithRecorder(recorder))

	result, err := svc.BroadcastOnAllInterfaces(ctx, "AA:BB:CC:DD:EE:FF", "", 0)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.OutcomeCancelled, result.Outcome)
	assert.Zero(t, result.DatagramsSent)
	assert.Empty(t, result.Failures)
	assert.Equal(t, []models.Outcome{models.OutcomeCancelled}, recorder.outcomes)

	// Only the two destinations already in flight reached the transport, each
	// with a single datagram that was interrupted.
	dsts := transport.destinations()
	require.NotEmpty(t, dsts)
	assert.LessOrEqual(t, len(dsts), 2)
	for _, dst := range dsts {
		assert.Contains(t, []netip.Addr{first, second}, dst.Addr())
		assert.Equal(t, uint16(0), dst.Port())
	}
}

func TestSendMagicPacket(t *testing.T) {
	transport := &mockTransport{}
	svc := NewWithClients(testLogger(), transport, &mockResolver{})

	mac := magicpacket.MAC{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	result, err := svc.SendMagicPacket(context.Background(), mac, netip.MustParseAddr("192.168.1.255"), magicpacket.Password{1, 2, 3, 4})

	require.NoError(t, err)
	assert.Equal(t, 3, result.DatagramsSent)
	require.Len(t, transport.sent, 3)
	assert.Equal(t, []byte(magicpacket.Build(mac, magicpacket.Password{1, 2, 3, 4})), transport.sent[0].payload)
}

func TestSendMagicPacket_Rejected(t *testing.T) {
	transport := &mockTransport{}
	svc := NewWithClients(testLogger(), transport, &mockResolver{})
	mac := magicpacket.MAC{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}

	_, err := svc.SendMagicPacket(context.Background(), mac, netip.MustParseAddr("fe80::1"), nil)
	assert.ErrorIs(t, err, magicpacket.ErrInvalidFormat)

	_, err = svc.SendMagicPacket(context.Background(), mac, netip.MustParseAddr("192.168.1.255"), magicpacket.Password{1, 2})
	assert.ErrorIs(t, err, magicpacket.ErrInvalidFormat)

	assert.Empty(t, transport.sent)
}

func TestWake_ChoosesMode(t *testing.T) {
	transport := &mockTransport{}
	resolver := &mockResolver{addrs: addrs("10.0.255.255")}
	svc := NewWithClients(testLogger(), transport, resolver)

	_, err := svc.Wake(context.Background(), models.WakeConfig{MACAddress: "AA:BB:CC:DD:EE:FF"})
	require.NoError(t, err)
	assert.Equal(t, 1, resolver.calls)

	_, err = svc.Wake(context.Background(), models.WakeConfig{MACAddress: "AA:BB:CC:DD:EE:FF", BroadcastIP: "192.168.1.255"})
	require.NoError(t, err)
	assert.Equal(t, 1, resolver.calls)

	want := append(portsOf("10.0.255.255"), portsOf("192.168.1.255")...)
	assert.Equal(t, want, transport.destinations())
}

func TestClose(t *testing.T) {
	transport := &mockTransport{}
	svc := NewWithClients(testLogger(), transport, &mockResolver{})

	require.NoError(t, svc.Close())
	assert.Equal(t, 1, transport.closed)
}
