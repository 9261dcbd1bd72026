package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/flowc/pkg/cache"
	"github.com/matzehuels/flowc/pkg/session"
)

// FlowResponse is the body of GET /v2/flows.
type FlowResponse struct {
	Name   string `json:"name"`
	MinSdk string `json:"minSdk"`
	MaxSdk string `json:"maxSdk,omitempty"`
	Script string `json:"script"`
}

// APIKeyHeader carries the caller's API key identifier on POST /sessions.
const APIKeyHeader = "X-Api-Key-Id"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("healthy"))
}

func (s *Server) handleFlow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "Missing flow name")
		return
	}
	ref, ok := s.project.Flow(name)
	if !ok {
		writeError(w, http.StatusNotFound, "Flow not found")
		return
	}

	script, err := os.ReadFile(s.project.BundlePath(ref.Flow.Alias))
	if err != nil {
		s.logger.Error("bundle unreadable", "alias", ref.Flow.Alias, "error", err)
		writeError(w, http.StatusInternalServerError, "Script file not found")
		return
	}

	versions, err := s.versions.Load(ctx)
	if err != nil {
		s.logger.Warn("versions unavailable", "error", err)
	}
	iv, hasRange := versions[ref.Flow.Alias]

	// The key covers the served range as well as the bundle.
	bundleHash := cache.Hash(script)
	if hasRange {
		bundleHash += ":" + iv.String()
	}
	key := s.keyer.FlowKey(ref.Flow.Alias, bundleHash)
	var resp FlowResponse
	err = cache.GetJSON(ctx, s.cache, key, &resp)
	if err == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("cache read failed", "key", key, "error", err)
	}

	resp = FlowResponse{Name: ref.Flow.Alias, MinSdk: ref.Flow.MinSdkVersion, Script: string(script)}
	if hasRange {
		if resp.MinSdk == "" {
			resp.MinSdk = strconv.FormatUint(iv.Min(), 10)
		}
		if hi, bounded := iv.Max(); bounded {
			resp.MaxSdk = strconv.FormatUint(hi, 10)
		}
	}
	if resp.MinSdk == "" {
		s.logger.Info("no minimum SDK version for flow, defaulting to 1", "alias", ref.Flow.Alias)
		resp.MinSdk = "1"
	}

	if err := cache.SetJSON(ctx, s.cache, key, resp, cache.TTLFlow); err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := session.New(r.Header.Get(APIKeyHeader), s.sessionTTL)
	if err := s.sessions.Set(r.Context(), sess); err != nil {
		s.logger.Error("store session", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not create session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.logger.Error("load session", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not load session")
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
