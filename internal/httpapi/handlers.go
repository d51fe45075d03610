package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/barscan/internal/barscan/service"
	"github.com/BrandonDHaskell/barscan/internal/barscan/types"
	"github.com/BrandonDHaskell/barscan/internal/scanlog"
)

const (
	defaultScanLimit = 50
	maxScanLimit     = 500
)

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) snapshot() types.SessionSnapshot {
	snap := s.session.Snapshot()
	if s.frequency != nil {
		snap.FrequencyMs = s.frequency.State().Interval.Milliseconds()
	}
	return snap
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

// ── Scan intake ──────────────────────────────────────────────────────────────

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	proto := isProtobuf(r)

	var in types.ScanInput
	if proto {
		msg, err := readStruct(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_protobuf", "invalid protobuf body")
			return
		}
		in = scanInputFromStruct(msg)
	} else if !decodeJSON(w, r, &in) {
		return
	}

	res, err := s.scans.HandleScan(r.Context(), in)
	if err != nil {
		if errors.Is(err, service.ErrScanDisabled) {
			writeError(w, http.StatusConflict, "scan_disabled", err.Error())
			return
		}
		s.logger.Error("scan error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	if proto {
		msg, err := scanResultToStruct(res)
		if err != nil {
			s.logger.Error("scan result encode", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			return
		}
		writeProto(w, http.StatusOK, msg)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleArm(w http.ResponseWriter, _ *http.Request) {
	s.session.EnableScan()
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleFlip(w http.ResponseWriter, _ *http.Request) {
	s.session.FlipFacing()
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleSetValidation(w http.ResponseWriter, r *http.Request) {
	var req types.ValidationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.session.SetUserAccepted(req.UserAccepted)
	writeJSON(w, http.StatusOK, s.snapshot())
}

// ── Frequency ────────────────────────────────────────────────────────────────

func (s *Server) frequencyResponse() types.FrequencyResponse {
	st := s.frequency.State()
	return types.FrequencyResponse{
		Armed:      st.Armed(),
		IntervalMs: st.Interval.Milliseconds(),
		Options:    s.frequency.Options(),
	}
}

func (s *Server) handleGetFrequency(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.frequencyResponse())
}

func (s *Server) handleSelectFrequency(w http.ResponseWriter, r *http.Request) {
	var req types.FrequencyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	_, err := s.frequency.SelectMillis(r.Context(), req.IntervalMs)
	switch {
	case errors.Is(err, service.ErrInvalidFrequency):
		writeError(w, http.StatusBadRequest, "invalid_frequency", err.Error())
		return
	case errors.Is(err, service.ErrPreference):
		// The selection is live; only its persistence failed.
		s.notify(r.Context(), types.NoticeError, "Error", "Could not save the scan frequency.")
	case err != nil:
		s.logger.Error("frequency select error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, s.frequencyResponse())
}

// ── Scan log ─────────────────────────────────────────────────────────────────

func (s *Server) handleGetLog(w http.ResponseWriter, _ *http.Request) {
	b, err := s.scanLog.ReadAll()
	if errors.Is(err, scanlog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "log_not_found", "no scan log yet")
		return
	}
	if err != nil {
		s.logger.Error("read scan log", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="`+scanlog.DefaultFileName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (s *Server) handleLogStatus(w http.ResponseWriter, _ *http.Request) {
	size, mod, err := s.scanLog.Stat()
	if errors.Is(err, scanlog.ErrNotFound) {
		writeJSON(w, http.StatusOK, types.LogStatus{Exists: false})
		return
	}
	if err != nil {
		s.logger.Error("stat scan log", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, types.LogStatus{
		Exists:     true,
		SizeBytes:  size,
		Size:       humanize.Bytes(uint64(size)),
		ModifiedAt: mod.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	err := s.lifecycle.Export(r.Context())
	if err != nil {
		s.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleDeleteLog(w http.ResponseWriter, r *http.Request) {
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	c := service.ConfirmFunc(func(context.Context, string) (bool, error) {
		return confirmed, nil
	})

	if err := s.lifecycle.Delete(r.Context(), c); err != nil {
		s.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrLogNotFound):
		writeError(w, http.StatusNotFound, "log_not_found", err.Error())
	case errors.Is(err, service.ErrSharingUnavailable):
		writeError(w, http.StatusServiceUnavailable, "sharing_unavailable", err.Error())
	case errors.Is(err, service.ErrDeleteDeclined):
		writeError(w, http.StatusConflict, "confirmation_required", "pass confirm=true to delete the scan log")
	case errors.Is(err, service.ErrIO):
		s.logger.Error("scan log lifecycle", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "io_error", "scan log operation failed")
	default:
		s.logger.Error("scan log lifecycle", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}

// ── History & notices ────────────────────────────────────────────────────────

func (s *Server) handleRecentScans(w http.ResponseWriter, r *http.Request) {
	limit := defaultScanLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, maxScanLimit)
	}

	out := []scanRecordJSON{}
	if s.history != nil {
		recs, err := s.history.Recent(r.Context(), limit)
		if err != nil {
			s.logger.Error("recent scans", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			return
		}
		for _, rec := range recs {
			out = append(out, scanRecordToJSON(rec))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": out})
}

func (s *Server) handleNotices(w http.ResponseWriter, _ *http.Request) {
	ns := []types.Notice{}
	if s.notices != nil {
		ns = append(ns, s.notices.Notices()...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"notices": ns})
}

func (s *Server) notify(ctx context.Context, kind types.NoticeKind, title, msg string) {
	if s.notices == nil {
		return
	}
	s.notices.Notify(ctx, types.Notice{Kind: kind, Title: title, Message: msg, CreatedAt: time.Now().UTC()})
}

// ── Encoding helpers ─────────────────────────────────────────────────────────

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return false
	}
	return true
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}
