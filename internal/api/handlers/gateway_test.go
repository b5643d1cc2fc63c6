package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thearyadev/epson-esc-proxy/internal/api/middleware"
	"github.com/thearyadev/epson-esc-proxy/internal/epos"
	"github.com/thearyadev/epson-esc-proxy/internal/journal"
	"github.com/thearyadev/epson-esc-proxy/internal/metrics"
	"github.com/thearyadev/epson-esc-proxy/internal/raster"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeService struct {
	mu       sync.Mutex
	ops      []string
	kicks    []int
	rasters  []raster.Raster
	kickErr  error
	printErr error
}

func (f *fakeService) KickDrawer(ctx context.Context, pin int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "kick")
	f.kicks = append(f.kicks, pin)
	return f.kickErr
}

func (f *fakeService) PrintReceipt(ctx context.Context, r raster.Raster) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "print")
	f.rasters = append(f.rasters, r)
	return f.printErr
}

func newGatewayRouter(svc PrintService, j *journal.Journal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CORS())
	gw := NewGateway(svc, j, metrics.New(), discardLogger(), 576)
	r.NoRoute(gw.Handle)
	return r
}

func perform(r *gin.Engine, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func imageBody(width, height int, data []byte) []byte {
	var b bytes.Buffer
	b.WriteString(`<epos-print><image width="`)
	b.WriteString(strconv.Itoa(width))
	b.WriteString(`" height="`)
	b.WriteString(strconv.Itoa(height))
	b.WriteString(`">`)
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	b.WriteString(`</image></epos-print>`)
	return b.Bytes()
}

func TestHealthBanner(t *testing.T) {
	r := newGatewayRouter(&fakeService{}, nil)

	w := perform(r, http.MethodGet, "/anything/at/all", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, epos.HealthBanner, w.Body.String())
	assert.Equal(t, epos.ContentTypePlain, w.Header().Get("Content-Type"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflightEchoesOrigin(t *testing.T) {
	r := newGatewayRouter(&fakeService{}, nil)

	w := perform(r, http.MethodOptions, "/cgi-bin/epos/service.cgi", nil,
		map[string]string{"Origin": "http://foo"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.Bytes())
	assert.Equal(t, "http://foo", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
}

func TestPulseKicksDrawer(t *testing.T) {
	svc := &fakeService{}
	r := newGatewayRouter(svc, nil)

	w := perform(r, http.MethodPost, "/", []byte(`<epos-print><pulse drawer="2"/></epos-print>`), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, epos.ResponseEnvelope, w.Body.Bytes())
	assert.Equal(t, epos.ContentTypeXML, w.Header().Get("Content-Type"))
	require.Len(t, svc.kicks, 1)
	assert.Equal(t, 2, svc.kicks[0])
}

func TestImagePrintsCenteredRaster(t *testing.T) {
	svc := &fakeService{}
	r := newGatewayRouter(svc, nil)

	body := imageBody(16, 2, []byte{0xFF, 0xFF, 0xFF, 0xFF})
	w := perform(r, http.MethodPost, "/", body, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.rasters, 1)

	got := svc.rasters[0]
	assert.Equal(t, 72, got.WidthBytes, "centered onto 576px paper")
	assert.Equal(t, 2, got.Height)
	assert.Equal(t, byte(0xFF), got.Data[35])
	assert.Equal(t, byte(0xFF), got.Data[36])
	assert.Equal(t, byte(0x00), got.Data[0])
}

func TestKickBeforePrint(t *testing.T) {
	svc := &fakeService{}
	r := newGatewayRouter(svc, nil)

	body := []byte(`<epos-print><pulse/><image width="8" height="1">` +
		base64.StdEncoding.EncodeToString([]byte{0xAA}) + `</image></epos-print>`)
	w := perform(r, http.MethodPost, "/", body, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"kick", "print"}, svc.ops)
}

func TestPrinterFailureStillAcknowledged(t *testing.T) {
	svc := &fakeService{printErr: errors.New("connection refused")}
	r := newGatewayRouter(svc, nil)

	body := imageBody(576, 2, make([]byte, 144))
	w := perform(r, http.MethodPost, "/", body, map[string]string{"Origin": "http://pos.local"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, epos.ResponseEnvelope, w.Body.Bytes())
	assert.Equal(t, "http://pos.local", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnrecognizedBodyAcknowledged(t *testing.T) {
	svc := &fakeService{}
	r := newGatewayRouter(svc, nil)

	w := perform(r, http.MethodPost, "/", []byte("not xml at all"), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, epos.ResponseEnvelope, w.Body.Bytes())
	assert.Empty(t, svc.ops, "no hardware touched")
}

func TestImageShorterThanOneRowAcknowledged(t *testing.T) {
	svc := &fakeService{}
	r := newGatewayRouter(svc, nil)

	// "AAAA" decodes to 3 bytes, far short of one 576px row. The payload is
	// unprintable but the request is structurally fine, so the fixed ack
	// still goes out.
	w := perform(r, http.MethodPost, "/", []byte(`<image width="576" height="2">AAAA</image>`), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, epos.ResponseEnvelope, w.Body.Bytes())
	assert.Empty(t, svc.ops)
}

func TestOtherMethodsRejected(t *testing.T) {
	r := newGatewayRouter(&fakeService{}, nil)

	w := perform(r, http.MethodDelete, "/", nil, nil)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

type failingBody struct{}

func (failingBody) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestBodyReadFailure(t *testing.T) {
	r := newGatewayRouter(&fakeService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Body = io.NopCloser(failingBody{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestJournalRecordsOutcomes(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"), discardLogger())
	require.NoError(t, err)
	defer j.Close()

	svc := &fakeService{printErr: errors.New("printer off")}
	r := newGatewayRouter(svc, j)

	perform(r, http.MethodPost, "/", []byte(`<pulse drawer="0"/>`), nil)
	perform(r, http.MethodPost, "/", imageBody(8, 1, []byte{0x01}), nil)
	perform(r, http.MethodPost, "/", []byte("garbage"), nil)

	jobs, err := j.List(context.Background(), journal.Filter{})
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	byIntent := map[string]*journal.Job{}
	for _, job := range jobs {
		byIntent[job.Intent] = job
	}

	require.Contains(t, byIntent, journal.IntentPulse)
	assert.Equal(t, journal.StatusDone, byIntent[journal.IntentPulse].Status)

	require.Contains(t, byIntent, journal.IntentImage)
	assert.Equal(t, journal.StatusFailed, byIntent[journal.IntentImage].Status)
	assert.Contains(t, byIntent[journal.IntentImage].Error, "printer off")
	assert.Equal(t, 576, byIntent[journal.IntentImage].WidthPx, "journal records the raster as printed")
	assert.Equal(t, 1, byIntent[journal.IntentImage].Height)

	require.Contains(t, byIntent, journal.IntentUnrecognized)
	assert.Equal(t, journal.StatusSkipped, byIntent[journal.IntentUnrecognized].Status)
}

func TestUndecodableImageJournaledAsFailed(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"), discardLogger())
	require.NoError(t, err)
	defer j.Close()

	svc := &fakeService{}
	r := newGatewayRouter(svc, j)

	w := perform(r, http.MethodPost, "/", []byte(`<image width="8" height="1">!!!notbase64!!!</image>`), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, epos.ResponseEnvelope, w.Body.Bytes())
	assert.Empty(t, svc.ops)

	jobs, err := j.List(context.Background(), journal.Filter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, journal.IntentImage, jobs[0].Intent)
	assert.Equal(t, journal.StatusFailed, jobs[0].Status)
}
