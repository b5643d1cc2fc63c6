package printer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/thearyadev/epson-esc-proxy/internal/escpos"
	"github.com/thearyadev/epson-esc-proxy/internal/metrics"
	"github.com/thearyadev/epson-esc-proxy/internal/raster"
	"github.com/thearyadev/epson-esc-proxy/internal/retry"
)

// feedLines clears the printed image past the cutter before cutting.
const feedLines = 6

// Sender is the transport surface the service drives. *Manager implements
// it; tests substitute fakes.
type Sender interface {
	Send(data []byte) error
	Reset()
}

// Service performs the hardware operations the bridge exposes: kicking the
// cash drawer and printing receipt rasters. All operations run under one
// lock because there is one physical device; concurrent requests queue here
// rather than interleaving bytes on the wire.
type Service struct {
	sender  Sender
	policy  retry.Policy
	log     *slog.Logger
	metrics *metrics.Metrics

	mu sync.Mutex
}

func NewService(sender Sender, policy retry.Policy, log *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		sender:  sender,
		policy:  policy,
		log:     log,
		metrics: m,
	}
}

// KickDrawer fires the drawer solenoid on the given connector pin.
func (s *Service) KickDrawer(ctx context.Context, pin int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.withRetry(ctx, "drawer_kick", func() error {
		return s.sender.Send(escpos.DrawerPulse(pin))
	})
	if err != nil {
		s.metrics.DrawerKicksTotal.WithLabelValues("failed").Inc()
		return err
	}

	s.metrics.DrawerKicksTotal.WithLabelValues("ok").Inc()
	s.log.Info("drawer kicked", "pin", pin)
	return nil
}

// PrintReceipt sends the raster followed by a feed and a full cut. The
// whole sequence goes out as one write; a retry resends it from the top.
func (s *Service) PrintReceipt(ctx context.Context, r raster.Raster) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload := receiptBytes(r)
	start := time.Now()

	err := s.withRetry(ctx, "print", func() error {
		return s.sender.Send(payload)
	})
	if err != nil {
		s.metrics.PrintsTotal.WithLabelValues("failed").Inc()
		return err
	}

	s.metrics.PrintsTotal.WithLabelValues("ok").Inc()
	s.metrics.PrintDurationSeconds.Observe(time.Since(start).Seconds())
	s.log.Info("receipt printed",
		"width_px", r.WidthPx(),
		"rows", r.Height,
		"bytes", len(payload),
	)
	return nil
}

// withRetry runs op under the service retry policy, force-resetting the
// transport after every failed attempt so the next one dials fresh.
func (s *Service) withRetry(ctx context.Context, operation string, op func() error) error {
	attempt := 0
	return retry.Do(ctx, s.policy, func() error {
		attempt++
		if attempt > 1 {
			s.metrics.RetryAttemptsTotal.WithLabelValues(operation).Inc()
		}
		err := op()
		if err != nil {
			s.log.Warn("printer operation failed",
				"operation", operation,
				"attempt", attempt,
				"max_attempts", s.policy.Attempts,
				"error", err,
			)
		}
		return err
	}, func() {
		s.sender.Reset()
		s.metrics.PrinterReconnectsTotal.Inc()
	})
}

func receiptBytes(r raster.Raster) []byte {
	img := escpos.RasterImage(r.WidthBytes, r.Height, r.Data)
	out := make([]byte, 0, len(img)+6)
	out = append(out, img...)
	out = append(out, escpos.Feed(feedLines)...)
	out = append(out, escpos.Cut()...)
	return out
}
