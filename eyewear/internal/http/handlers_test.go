package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"visionassist/eyewear/internal/repository"
	"visionassist/eyewear/internal/service"
	"visionassist/eyewear/internal/session"
)

type fakeController struct {
	status     service.Status
	result     session.Result
	captureErr error
	textStatus service.TextStatus
	lastText   string
	ackErr     error
	frame      []byte
	frameErr   error
	acked      int
	textAcks   int
}

func (f *fakeController) Status() service.Status { return f.status }

func (f *fakeController) RequestCapture(context.Context) (session.Result, error) {
	return f.result, f.captureErr
}

func (f *fakeController) TextStatus(context.Context) (service.TextStatus, error) {
	status := f.textStatus
	f.textStatus.NewText = false
	return status, nil
}

func (f *fakeController) AckText(context.Context) error {
	f.textAcks++
	return nil
}

func (f *fakeController) LastText(context.Context) (string, error) { return f.lastText, nil }

func (f *fakeController) NarrationDone(context.Context) error {
	if f.ackErr != nil {
		return f.ackErr
	}
	f.acked++
	return nil
}

func (f *fakeController) Frame(context.Context) ([]byte, error) { return f.frame, f.frameErr }

type fakeReadings struct {
	readings []repository.Reading
	limit    int
	err      error
}

func (f *fakeReadings) ListRecent(_ context.Context, limit int) ([]repository.Reading, error) {
	f.limit = limit
	return f.readings, f.err
}

func newTestRouter(c Controller, readings ReadingLister) http.Handler {
	return NewRouter(NewHandler(c, readings, 10*time.Millisecond, zap.NewNop()))
}

func doGet(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	rr := doGet(t, newTestRouter(&fakeController{}, nil), "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestDistance(t *testing.T) {
	c := &fakeController{status: service.Status{Distance: 1200, Pattern: 1, Status: "CRITICAL", Mode: "navigation"}}
	rr := doGet(t, newTestRouter(c, nil), "/distance")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, float64(1200), body["distance"])
	assert.Equal(t, float64(1), body["pattern"])
	assert.Equal(t, false, body["paused"])
	assert.Equal(t, "CRITICAL", body["status"])
}

func TestCapture(t *testing.T) {
	c := &fakeController{frame: []byte{0xFF, 0xD8, 0xFF}}
	rr := doGet(t, newTestRouter(c, nil), "/capture")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/jpeg", rr.Header().Get("Content-Type"))
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, rr.Body.Bytes())

	c.frameErr = errors.New("no frame")
	rr = doGet(t, newTestRouter(c, nil), "/capture")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestOCR(t *testing.T) {
	tests := []struct {
		name       string
		result     session.Result
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "text",
			result:     session.Result{Outcome: session.OutcomeText, Text: "EXIT"},
			wantStatus: http.StatusOK,
			wantBody:   "EXIT",
		},
		{
			name:       "no text",
			result:     session.Result{Outcome: session.OutcomeNoText, Text: session.NoTextDetected},
			wantStatus: http.StatusOK,
			wantBody:   session.NoTextDetected,
		},
		{
			name:       "capture fault",
			result:     session.Result{Outcome: session.OutcomeCaptureError, Text: session.CaptureFailedText},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "Capture failed",
		},
		{
			name:       "in flight",
			err:        session.ErrCaptureInFlight,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "reading",
			err:        session.ErrReading,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "loop stopped",
			err:        service.ErrStopped,
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeController{result: tt.result, captureErr: tt.err}
			rr := doGet(t, newTestRouter(c, nil), "/ocr")
			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestOCRStatus_ConsumedOnce(t *testing.T) {
	c := &fakeController{textStatus: service.TextStatus{NewText: true, Reading: true, Text: "line1\nline2"}}
	router := newTestRouter(c, nil)

	rr := doGet(t, router, "/ocr_status")
	require.Equal(t, http.StatusOK, rr.Code)
	var status service.TextStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.True(t, status.NewText)
	assert.True(t, status.Reading)
	assert.Equal(t, "line1\nline2", status.Text)

	rr = doGet(t, router, "/ocr_status")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.False(t, status.NewText)
}

func TestOCRAckAndText(t *testing.T) {
	c := &fakeController{lastText: "PLATFORM 4"}
	router := newTestRouter(c, nil)

	rr := doGet(t, router, "/ocr_ack")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, c.textAcks)

	rr = doGet(t, router, "/getOcrText")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "PLATFORM 4", rr.Body.String())
}

func TestTTSDone(t *testing.T) {
	c := &fakeController{}
	router := newTestRouter(c, nil)

	rr := doGet(t, router, "/tts_done")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, c.acked)

	c.ackErr = session.ErrCaptureInFlight
	rr = doGet(t, router, "/tts_done")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestReadings(t *testing.T) {
	rr := doGet(t, newTestRouter(&fakeController{}, nil), "/readings")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	readings := &fakeReadings{readings: []repository.Reading{{CaptureID: "c-1", Outcome: "text", Text: "EXIT"}}}
	rr = doGet(t, newTestRouter(&fakeController{}, readings), "/readings?limit=5")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, readings.limit)

	var body struct {
		Items []repository.Reading `json:"items"`
		Total int                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, "EXIT", body.Items[0].Text)

	readings.err = errors.New("db down")
	rr = doGet(t, newTestRouter(&fakeController{}, readings), "/readings")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/distance", nil)
	rr := httptest.NewRecorder()
	newTestRouter(&fakeController{}, nil).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestStatusSocket(t *testing.T) {
	c := &fakeController{status: service.Status{Distance: 1500, Pattern: 2, Status: "WARNING", Mode: "navigation"}}
	srv := httptest.NewServer(newTestRouter(c, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/status"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 2; i++ {
		var status service.Status
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&status))
		assert.Equal(t, 1500, status.Distance)
		assert.Equal(t, "WARNING", status.Status)
	}
}
