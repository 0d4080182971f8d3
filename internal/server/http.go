package server

import (
	"bufio"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/zeusync/drgpu/internal/core/config"
	"github.com/zeusync/drgpu/internal/core/observability/log"
)

type configsResponse struct {
	Default  string   `json:"default"`
	Profiles []string `json:"profiles"`
}

// handleAnalyze answers POST /api/v1/analyze?config=&kernel= with the JSON tree.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, err := readRequest(r, s.config.MaxReportSize)
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}

	doc, err := s.analyzer.Analyze(r.Context(), req)
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleConfigs(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, configsResponse{
		Default:  config.DefaultProfile,
		Profiles: config.List(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", log.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	if code >= http.StatusInternalServerError {
		s.logger.Error("Request failed", log.Int("code", code), log.Error(err))
	} else {
		s.logger.Debug("Request rejected", log.Int("code", code), log.Error(err))
	}
	s.writeJSON(w, code, Response{Error: err.Error()})
}

// instrument counts requests per route template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.Request(route, rec.status, time.Since(started))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, ErrHijackUnsupported
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func decodeJSON(data []byte, req *Request) error {
	if err := json.Unmarshal(data, req); err != nil {
		return errors.Wrap(ErrInvalidMessage, err.Error())
	}
	return nil
}

func parseKernel(v string) (int, error) {
	kernel, err := strconv.Atoi(v)
	if err != nil || kernel < 0 {
		return 0, errors.Wrapf(ErrInvalidMessage, "kernel %q", v)
	}
	return kernel, nil
}
