package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thearyadev/epson-esc-proxy/internal/epos"
	"github.com/thearyadev/epson-esc-proxy/internal/journal"
	"github.com/thearyadev/epson-esc-proxy/internal/metrics"
	"github.com/thearyadev/epson-esc-proxy/internal/raster"
)

// PrintService is the hardware surface the gateway drives.
type PrintService interface {
	KickDrawer(ctx context.Context, pin int) error
	PrintReceipt(ctx context.Context, r raster.Raster) error
}

// Gateway terminates the ePOS wire protocol. Every path answers the same
// way: GET is a health check, OPTIONS is a CORS preflight, POST is a print
// request. POS terminals do not handle failure responses gracefully, so a
// structurally readable POST is always acknowledged with HTTP 200 and the
// fixed envelope; printing itself is best-effort and its outcome goes to
// the log, the metrics, and the journal instead of the wire.
type Gateway struct {
	service      PrintService
	journal      *journal.Journal // nil when journaling is disabled
	metrics      *metrics.Metrics
	log          *slog.Logger
	paperWidthPx int
}

func NewGateway(service PrintService, j *journal.Journal, m *metrics.Metrics, log *slog.Logger, paperWidthPx int) *Gateway {
	return &Gateway{
		service:      service,
		journal:      j,
		metrics:      m,
		log:          log,
		paperWidthPx: paperWidthPx,
	}
}

// Handle answers any method on any path not claimed by the admin API.
func (g *Gateway) Handle(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodGet:
		c.Data(http.StatusOK, epos.ContentTypePlain, []byte(epos.HealthBanner))
	case http.MethodOptions:
		c.Header("Content-Length", "0")
		c.Status(http.StatusOK)
	case http.MethodPost:
		g.handlePrint(c)
	default:
		c.Status(http.StatusMethodNotAllowed)
	}
}

func (g *Gateway) handlePrint(c *gin.Context) {
	start := time.Now()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		// The only case that breaks the always-acknowledge rule: the
		// request never arrived intact, so there is nothing to ack.
		g.log.Error("request body read failed", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	req, parseErr := epos.Parse(string(body))

	job := &journal.Job{
		Intent:    intentLabel(req, parseErr),
		BodyBytes: len(body),
	}
	g.metrics.RequestsTotal.WithLabelValues(job.Intent).Inc()

	var firstErr error
	if parseErr != nil {
		g.log.Warn("image payload rejected", "error", parseErr, "bytes", len(body))
		firstErr = parseErr
	}

	ctx := c.Request.Context()

	// Drawer first. A combined request usually means "open the till and
	// print the receipt", and the till should not wait on a slow print.
	if req.Pulse != nil {
		if err := g.service.KickDrawer(ctx, req.Pulse.Pin); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if req.Image != nil {
		r, err := raster.Normalize(*req.Image, g.paperWidthPx)
		if err != nil {
			g.log.Warn("image payload not printable",
				"error", err,
				"declared_width", req.Image.Width,
				"declared_height", req.Image.Height,
				"bytes", len(req.Image.Data),
			)
			if firstErr == nil {
				firstErr = err
			}
		} else {
			job.WidthPx = r.WidthPx()
			job.Height = r.Height
			if err := g.service.PrintReceipt(ctx, r); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	// An image element with an undecodable payload still counts as carried
	// intent even though Parse could not hand back the bytes.
	recognized := req.Recognized() || parseErr != nil
	switch {
	case !recognized:
		g.log.Warn("no print intent in request body", "bytes", len(body))
		job.Status = journal.StatusSkipped
	case firstErr != nil:
		job.Status = journal.StatusFailed
		job.Error = firstErr.Error()
	default:
		job.Status = journal.StatusDone
	}

	c.Data(http.StatusOK, epos.ContentTypeXML, epos.ResponseEnvelope)

	job.DurationMS = time.Since(start).Milliseconds()
	if g.journal != nil {
		// Detached from the request context: the client may hang up the
		// moment the ack lands, and the record should still be written.
		if err := g.journal.Insert(context.Background(), job); err != nil {
			g.log.Warn("failed to journal request", "error", err)
		}
	}
}

func intentLabel(req epos.Request, parseErr error) string {
	hasImage := req.Image != nil || parseErr != nil
	switch {
	case req.Pulse != nil && hasImage:
		return journal.IntentPulseImage
	case req.Pulse != nil:
		return journal.IntentPulse
	case hasImage:
		return journal.IntentImage
	default:
		return journal.IntentUnrecognized
	}
}
