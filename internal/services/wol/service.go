// Package wol provides Wake-on-LAN operations.
package wol

import (
	"context"
	"fmt"
	"io"
	"iter"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/fgeck/magicpacket/internal/magicpacket"
	"github.com/fgeck/magicpacket/internal/models"
	"github.com/fgeck/magicpacket/internal/netif"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Ports every frame is sent to, in order: reserved, echo and discard.
var Ports = [...]uint16{0, 7, 9}

// Service defines the interface for Wake-on-LAN operations.
type Service interface {
	Wake(ctx context.Context, cfg models.WakeConfig) (*models.WakeResult, error)
	BroadcastOnAllInterfaces(ctx context.Context, target, password string, timeout time.Duration) (*models.WakeResult, error)
	BroadcastOnSingleInterface(ctx context.Context, target, broadcast, password string, timeout time.Duration) (*models.WakeResult, error)
	SendMagicPacket(ctx context.Context, target magicpacket.MAC, broadcast netip.Addr, password magicpacket.Password) (*models.WakeResult, error)
	Close() error
}

// Resolver yields the broadcast addresses of the local interfaces.
type Resolver interface {
	ResolveAll(ctx context.Context) iter.Seq[netip.Addr]
}

// Recorder receives counters about sent datagrams.
type Recorder interface {
	DatagramSent(port uint16)
	DatagramFailed(port uint16)
	WakeFinished(outcome models.Outcome)
}

type nopRecorder struct{}

func (nopRecorder) DatagramSent(uint16) {}

func (nopRecorder) DatagramFailed(uint16) {}

func (nopRecorder) WakeFinished(models.Outcome) {}

// Option configures an Impl.
type Option func(*Impl)

// WithRecorder reports datagram and outcome counters to r.
func WithRecorder(r Recorder) Option {
	return func(s *Impl) {
		s.recorder = r
	}
}

// WithParallelism sends to up to n destinations at once. Values below 2
// keep the default strictly sequential order.
func WithParallelism(n int) Option {
	return func(s *Impl) {
		s.parallelism = n
	}
}

// Impl implements the WOL Service interface.
type Impl struct {
	transport   Transport
	resolver    Resolver
	recorder    Recorder
	logger      zerolog.Logger
	parallelism int
}

// New creates a new WOL service sending over UDP.
func New(logger zerolog.Logger, opts ...Option) *Impl {
	return NewWithClients(logger, NewUDPTransport(), netif.New(logger), opts...)
}

// NewWithClients creates a new WOL service with a custom transport and
// resolver (for testing).
func NewWithClients(logger zerolog.Logger, transport Transport, resolver Resolver, opts ...Option) *Impl {
	s := &Impl{
		transport: transport,
		resolver:  resolver,
		recorder:  nopRecorder{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the transport.
func (s *Impl) Close() error {
	if c, ok := s.transport.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Wake broadcasts on cfg.BroadcastIP, or on every interface when it is empty.
func (s *Impl) Wake(ctx context.Context, cfg models.WakeConfig) (*models.WakeResult, error) {
	if strings.TrimSpace(cfg.BroadcastIP) == "" {
		return s.BroadcastOnAllInterfaces(ctx, cfg.MACAddress, cfg.Password, cfg.Timeout)
	}
	return s.BroadcastOnSingleInterface(ctx, cfg.MACAddress, cfg.BroadcastIP, cfg.Password, cfg.Timeout)
}

// BroadcastOnAllInterfaces sends the magic packet for target to the
// broadcast address of every usable interface.
func (s *Impl) BroadcastOnAllInterfaces(ctx context.Context, target, password string, timeout time.Duration) (*models.WakeResult, error) {
	start := time.Now()

	mac, pw, err := parseTarget(target, password)
	if err != nil {
		return s.reject(start, err)
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	s.logger.Info().
		Str("mac", mac.String()).
		Bool("password", pw != nil).
		Int("frame_bytes", len(magicpacket.Build(mac, pw))).
		Msg("sending WOL packet on all interfaces")

	result := &models.WakeResult{}
	err = s.dispatch(ctx, mac, pw, s.resolver.ResolveAll(ctx), result)
	return s.finish(result, start, err)
}

// BroadcastOnSingleInterface sends the magic packet for target to broadcast.
func (s *Impl) BroadcastOnSingleInterface(ctx context.Context, target, broadcast, password string, timeout time.Duration) (*models.WakeResult, error) {
	start := time.Now()

	mac, pw, err := parseTarget(target, password)
	if err != nil {
		return s.reject(start, err)
	}
	addr, err := magicpacket.ParseBroadcast(broadcast)
	if err != nil {
		return s.reject(start, err)
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	return s.sendTo(ctx, start, mac, addr, pw)
}

// SendMagicPacket sends the magic packet for an already parsed target.
func (s *Impl) SendMagicPacket(ctx context.Context, target magicpacket.MAC, broadcast netip.Addr, password magicpacket.Password) (*models.WakeResult, error) {
	start := time.Now()

	broadcast = broadcast.Unmap()
	if !broadcast.Is4() {
		return s.reject(start, fmt.Errorf("%w: broadcast address %s is not IPv4", magicpacket.ErrInvalidFormat, broadcast))
	}
	switch len(password) {
	case 0, 4, 6:
	default:
		return s.reject(start, fmt.Errorf("%w: password must be 4 or 6 bytes", magicpacket.ErrInvalidFormat))
	}

	return s.sendTo(ctx, start, target, broadcast, password)
}

func (s *Impl) sendTo(ctx context.Context, start time.Time, mac magicpacket.MAC, addr netip.Addr, pw magicpacket.Password) (*models.WakeResult, error) {
	s.logger.Info().
		Str("mac", mac.String()).
		Str("broadcast", addr.String()).
		Bool("password", len(pw) > 0).
		Int("frame_bytes", len(magicpacket.Build(mac, pw))).
		Msg("sending WOL packet")

	single := func(yield func(netip.Addr) bool) {
		yield(addr)
	}

	result := &models.WakeResult{}
	err := s.dispatch(ctx, mac, pw, single, result)
	return s.finish(result, start, err)
}

// PacketReport describes the datagrams of one SendPacket call.
type PacketReport struct {
	Sent     int
	Failures []models.TransportFailure
}

// Attempted returns the number of datagrams handed to the transport.
func (r PacketReport) Attempted() int {
	return r.Sent + len(r.Failures)
}

// SendPacket sends the magic packet for mac to addr on each of Ports, one
// after the other. A failed datagram is logged and recorded in the report
// without stopping the remaining ones; only cancellation of ctx returns an
// error.
func (s *Impl) SendPacket(ctx context.Context, mac magicpacket.MAC, pw magicpacket.Password, addr netip.Addr) (PacketReport, error) {
	var report PacketReport

	for _, port := range Ports {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		dst := netip.AddrPortFrom(addr, port)
		if err := s.transport.Send(ctx, dst, mac, pw); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}

			report.Failures = append(report.Failures, models.TransportFailure{Destination: dst, Err: err})
			s.recorder.DatagramFailed(port)
			s.logger.Warn().
				Err(err).
				Str("address", addr.String()).
				Uint16("port", port).
				Msg("broadcast failed")
			continue
		}

		report.Sent++
		s.recorder.DatagramSent(port)
		s.logger.Debug().
			Str("address", addr.String()).
			Uint16("port", port).
			Msg("datagram sent")
	}

	return report, nil
}

func (s *Impl) dispatch(ctx context.Context, mac magicpacket.MAC, pw magicpacket.Password, targets iter.Seq[netip.Addr], result *models.WakeResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var mu sync.Mutex
	record := func(addr netip.Addr, report PacketReport) {
		if report.Attempted() == 0 {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		result.Targets = append(result.Targets, addr)
		result.DatagramsSent += report.Sent
		result.Failures = append(result.Failures, report.Failures...)
	}

	if s.parallelism < 2 {
		for addr := range targets {
			report, err := s.SendPacket(ctx, mac, pw, addr)
			record(addr, report)
			if err != nil {
				return err
			}
		}
		return emptyRunErr(ctx, result)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	stopped := false
	for addr := range targets {
		if gctx.Err() != nil {
			stopped = true
			break
		}
		g.Go(func() error {
			report, err := s.SendPacket(gctx, mac, pw, addr)
			record(addr, report)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if stopped {
		return ctx.Err()
	}
	return emptyRunErr(ctx, result)
}

// emptyRunErr reports cancellation that stopped target resolution before
// anything was sent.
func emptyRunErr(ctx context.Context, result *models.WakeResult) error {
	if len(result.Targets) == 0 {
		return ctx.Err()
	}
	return nil
}

func (s *Impl) reject(start time.Time, err error) (*models.WakeResult, error) {
	result := &models.WakeResult{
		Outcome:  models.OutcomeRejected,
		Duration: time.Since(start),
		Error:    err,
	}
	s.recorder.WakeFinished(result.Outcome)
	s.logger.Debug().Err(err).Msg("WOL request rejected")
	return result, err
}

func (s *Impl) finish(result *models.WakeResult, start time.Time, err error) (*models.WakeResult, error) {
	result.Duration = time.Since(start)

	if err != nil {
		result.Outcome = models.OutcomeCancelled
		result.Error = fmt.Errorf("WOL broadcast cancelled: %w", err)
		s.recorder.WakeFinished(result.Outcome)
		s.logger.Warn().
			Err(err).
			Int("targets", len(result.Targets)).
			Int("sent", result.DatagramsSent).
			Msg("WOL broadcast cancelled")
		return result, result.Error
	}

	result.Outcome = models.OutcomeCompleted
	s.recorder.WakeFinished(result.Outcome)

	if len(result.Targets) == 0 {
		s.logger.Warn().Msg("no broadcast-capable interfaces found")
	}
	s.logger.Info().
		Int("targets", len(result.Targets)).
		Int("sent", result.DatagramsSent).
		Int("failed", len(result.Failures)).
		Dur("duration", result.Duration).
		Msg("WOL packets sent")

	return result, nil
}

func parseTarget(target, password string) (magicpacket.MAC, magicpacket.Password, error) {
	mac, err := magicpacket.ParseMAC(target)
	if err != nil {
		return mac, nil, fmt.Errorf("invalid MAC address: %w", err)
	}

	pw, err := magicpacket.ParsePassword(password)
	if err != nil {
		return mac, nil, fmt.Errorf("invalid SecureOn password: %w", err)
	}

	return mac, pw, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
