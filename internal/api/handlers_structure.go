package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dgallion1/docnav/internal/doctree"
	"github.com/dgallion1/docnav/internal/query"
	"github.com/dgallion1/docnav/internal/schema"
	"github.com/dgallion1/docnav/internal/store"
)

// stateView is the wire form of a store state.
type stateView struct {
	Status     store.Status       `json:"status"`
	Error      string             `json:"error,omitempty"`
	Violations []schema.Violation `json:"violations,omitempty"`
	UpdatedAt  time.Time          `json:"updated_at"`
	Version    uint64             `json:"version"`
	Nodes      int                `json:"nodes"`
	Tree       []*doctree.Node    `json:"tree,omitempty"`
}

func newStateView(st store.State, withTree bool) stateView {
	v := stateView{
		Status:    st.Status,
		Error:     st.Message(),
		UpdatedAt: st.UpdatedAt,
		Version:   st.Version,
		Nodes:     st.Snapshot.Len(),
	}
	var verr *schema.ValidationError
	if errors.As(st.Err, &verr) {
		v.Violations = verr.Violations
	}
	if withTree {
		v.Tree = st.Snapshot.Roots()
	}
	return v
}

// snapshot returns the current snapshot or writes 503 with the store status.
func (s *Server) snapshot(w http.ResponseWriter) (*query.Snapshot, bool) {
	st := s.store.State()
	if st.Snapshot == nil {
		writeJSON(w, http.StatusServiceUnavailable, newStateView(st, false))
		return nil, false
	}
	return st.Snapshot, true
}

func (s *Server) handleRawStructure(w http.ResponseWriter, r *http.Request) {
	if s.doc == nil {
		jsonError(w, "structure is not built by this server", http.StatusNotFound)
		return
	}
	data, builtAt := s.doc.Bytes()
	if data == nil {
		jsonError(w, "structure has not been built yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Last-Modified", builtAt.UTC().Format(http.TimeFormat))
	w.Write(data)
}

func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newStateView(s.store.State(), true))
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": snap.AllFiles()})
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		jsonError(w, "path query parameter is required", http.StatusBadRequest)
		return
	}
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	node, found := snap.FindByPath(path)
	if !found {
		jsonError(w, "no node with path "+strconv.Quote(path), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleBreadcrumb(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		jsonError(w, "url query parameter is required", http.StatusBadRequest)
		return
	}
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": snap.Breadcrumb(url)})
}

func (s *Server) handlePager(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		jsonError(w, "url query parameter is required", http.StatusBadRequest)
		return
	}
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	prev, next := snap.Pager(url)
	writeJSON(w, http.StatusOK, map[string]*doctree.Node{"prev": prev, "next": next})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if s.doc == nil {
		jsonError(w, "structure is not built by this server", http.StatusNotFound)
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		jsonError(w, "q query parameter is required", http.StatusBadRequest)
		return
	}
	results, err := s.doc.Select(q)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// handleRefetch rebuilds (when configured) and reloads the store. The load
// outlives a disconnecting client so the published state stays consistent.
func (s *Server) handleRefetch(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	if s.rebuild != nil {
		if err := s.rebuild(ctx); err != nil {
			s.log.Error("rebuild failed", "error", err)
			jsonError(w, "rebuild failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	// The body describes this call's load even if another one finished later.
	st, err := s.store.LoadState(ctx)
	code := http.StatusOK
	var verr *schema.ValidationError
	switch {
	case errors.As(err, &verr):
		code = http.StatusUnprocessableEntity
	case err != nil:
		code = http.StatusBadGateway
	}
	writeJSON(w, code, newStateView(st, false))
}
