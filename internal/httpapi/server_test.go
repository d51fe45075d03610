package httpapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/barscan/internal/barscan/service"
	"github.com/BrandonDHaskell/barscan/internal/barscan/store/memory"
	"github.com/BrandonDHaskell/barscan/internal/barscan/types"
	"github.com/BrandonDHaskell/barscan/internal/httpapi"
	"github.com/BrandonDHaskell/barscan/internal/scanlog"
	"github.com/BrandonDHaskell/barscan/internal/share"
)

type testEnv struct {
	handler  http.Handler
	session  *service.Session
	scanLog  *scanlog.Log
	history  *memory.ScanEventStore
	notices  *memory.NoticeBoard
	prefs    *memory.PreferenceStore
	shareDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	sl, err := scanlog.New(scanlog.Config{
		Path:     filepath.Join(dir, scanlog.DefaultFileName),
		Location: time.UTC,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sl.Close() })

	logger := zap.NewNop()
	sess := service.NewSession(service.DefaultAcceptedPayload)
	hist := memory.NewScanEventStore()
	prefs := memory.NewPreferenceStore()
	notices := memory.NewNoticeBoard(10, logger)
	shareDir := filepath.Join(dir, "outbox")

	freq := service.NewFrequencyController(sess, prefs, logger)
	t.Cleanup(freq.Close)

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:      logger,
		Session:     sess,
		ScanService: service.NewScanService(sess, sl, hist, logger),
		Frequency:   freq,
		Lifecycle:   service.NewLogLifecycle(sl, share.NewDirSharer(shareDir), notices, logger),
		ScanLog:     sl,
		History:     hist,
		Notices:     notices,
	})

	return &testEnv{
		handler:  srv.Handler(),
		session:  sess,
		scanLog:  sl,
		history:  hist,
		notices:  notices,
		prefs:    prefs,
		shareDir: shareDir,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}

type errorResp struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// Health & session
// ═══════════════════════════════════════════════════════════════════════════════

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSession_InitialSnapshot(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodGet, "/v1/session", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	snap := decode[types.SessionSnapshot](t, rr)
	assert.True(t, snap.ScanEnabled)
	assert.Equal(t, "Back Camera", snap.Camera)
	assert.Equal(t, "Testikoodi", snap.DefaultAccepted)
	assert.Zero(t, snap.FrequencyMs)
}

// ═══════════════════════════════════════════════════════════════════════════════
// Scan intake
// ═══════════════════════════════════════════════════════════════════════════════

func TestScan_JSON(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodPost, "/v1/scan", types.ScanInput{Symbology: "qr", Payload: "Testikoodi"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	res := decode[types.ScanResult](t, rr)
	assert.True(t, res.OK)
	assert.True(t, res.Matched)
	assert.Equal(t, "Valid", res.Status)
	assert.Equal(t, "Back Camera", res.Camera)

	b, err := e.scanLog.ReadAll()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(b), "Camera: Back Camera, Status: Valid, Data: Testikoodi\n"))
	assert.Len(t, e.history.Events(), 1)
}

func TestScan_GatedUntilArmed(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodPost, "/v1/scan", types.ScanInput{Symbology: "qr", Payload: "first"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = e.do(t, http.MethodPost, "/v1/scan", types.ScanInput{Symbology: "qr", Payload: "second"})
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "scan_disabled", decode[errorResp](t, rr).Error.Code)

	rr = e.do(t, http.MethodPost, "/v1/scan/arm", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[types.SessionSnapshot](t, rr).ScanEnabled)

	rr = e.do(t, http.MethodPost, "/v1/scan", types.ScanInput{Symbology: "qr", Payload: "third"})
	require.Equal(t, http.StatusOK, rr.Code)

	b, err := e.scanLog.ReadAll()
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "Data: first"))
	assert.True(t, strings.HasSuffix(lines[1], "Data: third"))
}

func TestScan_BadJSON(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/scan", strings.NewReader(`{"payload":`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "bad_json", decode[errorResp](t, rr).Error.Code)
	assert.True(t, e.session.ScanEnabled(), "a rejected body must not close the gate")
}

func protoScan(t *testing.T, e *testEnv, contentType, payload string) *httptest.ResponseRecorder {
	t.Helper()
	in, err := structpb.NewStruct(map[string]any{"symbology": "ean13", "payload": payload})
	require.NoError(t, err)
	body, err := proto.Marshal(in)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/scan", bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func TestScan_ProtobufContentTypeParams(t *testing.T) {
	for _, ct := range []string{"application/x-protobuf; charset=binary", "Application/Protobuf"} {
		e := newTestEnv(t)
		rr := protoScan(t, e, ct, "Testikoodi")
		require.Equal(t, http.StatusOK, rr.Code, "content-type %q: %s", ct, rr.Body.String())
		assert.Equal(t, "application/x-protobuf", rr.Header().Get("Content-Type"))
	}
}

func TestScan_Protobuf(t *testing.T) {
	e := newTestEnv(t)
	e.session.FlipFacing()

	rr := protoScan(t, e, "application/x-protobuf", "nope")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/x-protobuf", rr.Header().Get("Content-Type"))

	out := &structpb.Struct{}
	require.NoError(t, proto.Unmarshal(rr.Body.Bytes(), out))
	f := out.GetFields()
	assert.Equal(t, "nope", f["payload"].GetStringValue())
	assert.Equal(t, "Invalid", f["status"].GetStringValue())
	assert.Equal(t, "Front Camera", f["camera"].GetStringValue())
	assert.False(t, f["matched"].GetBoolValue())
}

// ═══════════════════════════════════════════════════════════════════════════════
// Session controls
// ═══════════════════════════════════════════════════════════════════════════════

func TestCameraFlip(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodPost, "/v1/camera/flip", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Front Camera", decode[types.SessionSnapshot](t, rr).Camera)

	rr = e.do(t, http.MethodPost, "/v1/camera/flip", nil)
	assert.Equal(t, "Back Camera", decode[types.SessionSnapshot](t, rr).Camera)
}

func TestValidation_UserAcceptedOverride(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodPut, "/v1/validation", types.ValidationRequest{UserAccepted: "ABC-123"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ABC-123", decode[types.SessionSnapshot](t, rr).UserAccepted)

	rr = e.do(t, http.MethodPost, "/v1/scan", types.ScanInput{Symbology: "code128", Payload: "ABC-123"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Valid", decode[types.ScanResult](t, rr).Status)
}

// ═══════════════════════════════════════════════════════════════════════════════
// Frequency
// ═══════════════════════════════════════════════════════════════════════════════

func TestFrequency_Toggle(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodGet, "/v1/frequency", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[types.FrequencyResponse](t, rr)
	assert.False(t, resp.Armed)
	require.Len(t, resp.Options, 4)

	rr = e.do(t, http.MethodPost, "/v1/frequency", types.FrequencyRequest{IntervalMs: 300000})
	require.Equal(t, http.StatusOK, rr.Code)
	resp = decode[types.FrequencyResponse](t, rr)
	assert.True(t, resp.Armed)
	assert.EqualValues(t, 300000, resp.IntervalMs)

	v, ok, err := e.prefs.GetString(t.Context(), service.FrequencyPreferenceKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "300000", v)

	rr = e.do(t, http.MethodGet, "/v1/session", nil)
	assert.EqualValues(t, 300000, decode[types.SessionSnapshot](t, rr).FrequencyMs)

	rr = e.do(t, http.MethodPost, "/v1/frequency", types.FrequencyRequest{IntervalMs: 300000})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[types.FrequencyResponse](t, rr).Armed)

	v, _, _ = e.prefs.GetString(t.Context(), service.FrequencyPreferenceKey)
	assert.Equal(t, service.FrequencyNone, v)
}

func TestFrequency_Invalid(t *testing.T) {
	e := newTestEnv(t)

	for _, ms := range []int64{1234, -30000, 30000 + 1<<58} {
		rr := e.do(t, http.MethodPost, "/v1/frequency", types.FrequencyRequest{IntervalMs: ms})
		require.Equal(t, http.StatusBadRequest, rr.Code, "ms=%d", ms)
		assert.Equal(t, "invalid_frequency", decode[errorResp](t, rr).Error.Code)
	}

	rr := e.do(t, http.MethodGet, "/v1/frequency", nil)
	assert.False(t, decode[types.FrequencyResponse](t, rr).Armed)
}

// ═══════════════════════════════════════════════════════════════════════════════
// Scan log lifecycle
// ═══════════════════════════════════════════════════════════════════════════════

func TestLog_MissingBeforeFirstScan(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodGet, "/v1/log", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = e.do(t, http.MethodGet, "/v1/log/status", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[types.LogStatus](t, rr).Exists)
}

func TestLog_ReadAndStatus(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodPost, "/v1/scan", types.ScanInput{Symbology: "qr", Payload: "Testikoodi"})

	rr := e.do(t, http.MethodGet, "/v1/log", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, rr.Body.String(), "Status: Valid, Data: Testikoodi")

	rr = e.do(t, http.MethodGet, "/v1/log/status", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	st := decode[types.LogStatus](t, rr)
	assert.True(t, st.Exists)
	assert.Positive(t, st.SizeBytes)
	assert.Contains(t, st.Size, "B")
	assert.NotEmpty(t, st.ModifiedAt)
}

func TestExport_CopiesToOutbox(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodPost, "/v1/scan", types.ScanInput{Symbology: "qr", Payload: "Testikoodi"})

	rr := e.do(t, http.MethodPost, "/v1/log/export", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	entries, err := os.ReadDir(e.shareDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "scan_events-"))

	ns := e.notices.Notices()
	require.NotEmpty(t, ns)
	assert.Equal(t, types.NoticeInfo, ns[len(ns)-1].Kind)
}

func TestDelete_RequiresConfirmation(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodPost, "/v1/scan", types.ScanInput{Symbology: "qr", Payload: "x"})

	rr := e.do(t, http.MethodDelete, "/v1/log", nil)
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "confirmation_required", decode[errorResp](t, rr).Error.Code)

	ok, err := e.scanLog.Exists()
	require.NoError(t, err)
	assert.True(t, ok, "declined delete must leave the log in place")
	assert.Empty(t, e.notices.Notices())
}

func TestDeleteThenExport_NotFound(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodPost, "/v1/scan", types.ScanInput{Symbology: "qr", Payload: "x"})

	rr := e.do(t, http.MethodDelete, "/v1/log?confirm=true", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = e.do(t, http.MethodPost, "/v1/log/export", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "log_not_found", decode[errorResp](t, rr).Error.Code)

	rr = e.do(t, http.MethodGet, "/v1/notices", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[struct {
		Notices []types.Notice `json:"notices"`
	}](t, rr)
	require.Len(t, body.Notices, 2)
	assert.Equal(t, types.NoticeInfo, body.Notices[0].Kind)
	assert.Equal(t, types.NoticeError, body.Notices[1].Kind)
}

// ═══════════════════════════════════════════════════════════════════════════════
// History
// ═══════════════════════════════════════════════════════════════════════════════

func TestRecentScans(t *testing.T) {
	e := newTestEnv(t)
	for _, p := range []string{"A", "B", "C"} {
		e.session.EnableScan()
		rr := e.do(t, http.MethodPost, "/v1/scan", types.ScanInput{Symbology: "qr", Payload: p})
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := e.do(t, http.MethodGet, "/v1/scans?limit=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Scans []struct {
			Payload string `json:"payload"`
			Status  string `json:"status"`
		} `json:"scans"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Scans, 2)
	assert.Equal(t, "Invalid", body.Scans[0].Status)
}

func TestRecentScans_BadLimit(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodGet, "/v1/scans?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
