package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/jonwraymond/abicache/auth"
	"github.com/jonwraymond/abicache/cache"
)

// SourceHeader reports whether an ABI came from the cache or a fetch.
const SourceHeader = "X-ABI-Source"

// ListResponse is the body of GET /v1/abi.
type ListResponse struct {
	Accounts []string    `json:"accounts"`
	Stats    cache.Stats `json:"stats"`
}

// PrefetchRequest is the body of POST /v1/abi:prefetch.
type PrefetchRequest struct {
	Accounts []string `json:"accounts"`
}

// PrefetchResponse is the body of a successful prefetch.
type PrefetchResponse struct {
	Accounts []string `json:"accounts"`
	Entries  int      `json:"entries"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r, "*", auth.ActionList); err != nil {
		writeError(w, r, err)
		return
	}

	keys := s.cache.Keys()
	if prefix := r.URL.Query().Get("prefix"); prefix != "" {
		keys = lo.Filter(keys, func(k string, _ int) bool { return strings.HasPrefix(k, prefix) })
	}
	writeJSON(w, http.StatusOK, ListResponse{Accounts: keys, Stats: s.cache.Stats()})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	account := r.PathValue("account")
	if err := s.authorize(r, account, auth.ActionRead); err != nil {
		writeError(w, r, err)
		return
	}

	source := "fetch"
	if _, ok := s.cache.Lookup(account); ok {
		source = "cache"
	}
	a, err := s.cache.GetABI(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set(SourceHeader, source)
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	account := r.PathValue("account")
	if err := s.authorize(r, account, auth.ActionRead); err != nil {
		writeError(w, r, err)
		return
	}

	source := "fetch"
	if _, ok := s.cache.Lookup(account); ok {
		source = "cache"
	}
	a, err := s.cache.GetABI(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := a.MarshalBinary()
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set(SourceHeader, source)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	account := r.PathValue("account")
	if err := s.authorize(r, account, auth.ActionWrite); err != nil {
		writeError(w, r, err)
		return
	}

	merge := false
	if v := r.URL.Query().Get("merge"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: merge=%q is not a boolean", ErrBadRequest, v))
			return
		}
		merge = b
	}

	body, err := s.readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(body) == 0 {
		writeError(w, r, fmt.Errorf("%w: empty body", ErrBadRequest))
		return
	}

	// The body is ABI JSON when it starts with '{', a binary abi_def otherwise.
	if err := s.cache.SetABI(account, body, merge); err != nil {
		writeError(w, r, err)
		return
	}
	a, _ := s.cache.Lookup(account)
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handlePrefetch(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req PrefetchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	accounts := lo.Uniq(lo.Compact(lo.Map(req.Accounts, func(a string, _ int) string { return strings.TrimSpace(a) })))
	if len(accounts) == 0 {
		writeError(w, r, fmt.Errorf("%w: no accounts", ErrBadRequest))
		return
	}
	if len(accounts) > s.maxPrefetch {
		writeError(w, r, fmt.Errorf("%w: %d accounts exceeds limit %d", ErrBadRequest, len(accounts), s.maxPrefetch))
		return
	}
	for _, account := range accounts {
		if err := s.authorize(r, account, auth.ActionPrefetch); err != nil {
			writeError(w, r, err)
			return
		}
	}

	if err := s.cache.Prefetch(r.Context(), lo.ToAnySlice(accounts)...); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PrefetchResponse{Accounts: accounts, Entries: s.cache.Len()})
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrBadRequest, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: read body: %w", ErrBadRequest, err)
	}
	return body, nil
}
