package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/edp-labs/dataops/internal/dataset"
	"github.com/edp-labs/dataops/internal/diff"
	"github.com/edp-labs/dataops/internal/table"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// session identity

func (s *Server) identity(r *http.Request) (user, sid string, ok bool) {
	sess, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return "", "", false
	}
	user, uok := sess.Values["user"].(string)
	sid, sok := sess.Values["sid"].(string)
	return user, sid, uok && sok && user != ""
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := s.identity(r); !ok {
			writeError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ok, err := s.auth.Verify(r.Context(), req.Username, req.Password)
	if err != nil {
		s.logger.Error("login check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login unavailable")
		return
	}
	if !ok {
		s.metrics.loginFailures.Inc()
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	sess, _ := s.sessionStore.Get(r, sessionName)
	sess.Values["user"] = req.Username
	sess.Values["sid"] = newSessionID()
	if err := sess.Save(r, w); err != nil {
		writeError(w, http.StatusInternalServerError, "session save failed")
		return
	}
	s.metrics.logins.Inc()
	s.logger.Info("login", "user", req.Username)
	writeJSON(w, http.StatusOK, map[string]string{"user": req.Username})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := s.sessionStore.Get(r, sessionName)
	sess.Options.MaxAge = -1
	_ = sess.Save(r, w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// dataset endpoints

type datasetInfo struct {
	Name      string `json:"name"`
	Key       string `json:"key"`
	KeyColumn string `json:"key_column,omitempty"`
}

func (s *Server) handleListDatasets(w http.ResponseWriter, _ *http.Request) {
	defs := s.datasets.Definitions()
	out := make([]datasetInfo, 0, len(defs))
	for _, d := range defs {
		out = append(out, datasetInfo{Name: d.Name, Key: d.Key, KeyColumn: d.KeyColumn})
	}
	writeJSON(w, http.StatusOK, out)
}

type tablePayload struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

func toPayload(t *table.Table) tablePayload {
	return tablePayload{Header: t.Header, Rows: t.Rows}
}

func (p tablePayload) toTable() (*table.Table, error) {
	t := table.New(p.Header...)
	for _, row := range p.Rows {
		if err := t.Append(row); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	_, sid, _ := s.identity(r)

	snap, err := s.datasets.Load(r.Context(), name)
	if errors.Is(err, dataset.ErrUnknownDataset) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("dataset load failed", "dataset", name, "error", err)
		writeError(w, http.StatusBadGateway, "load failed")
		return
	}
	s.edits.put(sid, name, &editState{snapshot: snap, edited: snap.Table.Clone()})

	writeJSON(w, http.StatusOK, map[string]any{
		"dataset":   name,
		"etag":      snap.ETag,
		"loaded_at": snap.LoadedAt,
		"table":     toPayload(snap.Table),
	})
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	_, sid, _ := s.identity(r)

	st, ok := s.edits.get(sid, name)
	if !ok {
		writeError(w, http.StatusConflict, "no loaded snapshot; load the dataset first")
		return
	}
	var payload tablePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	edited, err := payload.toTable()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.edits.put(sid, name, &editState{snapshot: st.snapshot, edited: edited})
	writeJSON(w, http.StatusOK, map[string]any{"dataset": name, "rows": edited.NumRows()})
}

type changesPayload struct {
	Mode     string      `json:"mode"`
	Added    [][]string  `json:"added"`
	Deleted  [][]string  `json:"deleted"`
	Modified []rowChange `json:"modified"`
	Empty    bool        `json:"empty"`
}

type rowChange struct {
	Key    string   `json:"key"`
	Before []string `json:"before"`
	After  []string `json:"after"`
}

func toChangesPayload(c *diff.Changes) changesPayload {
	out := changesPayload{
		Mode:    string(c.Mode),
		Added:   c.Added,
		Deleted: c.Deleted,
		Empty:   c.Empty(),
	}
	for _, m := range c.Modified {
		out.Modified = append(out.Modified, rowChange{Key: m.Key, Before: m.Before, After: m.After})
	}
	return out
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	_, sid, _ := s.identity(r)

	st, ok := s.edits.get(sid, name)
	if !ok {
		writeError(w, http.StatusConflict, "no loaded snapshot; load the dataset first")
		return
	}
	changes, err := s.datasets.Review(st.snapshot, st.edited)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toChangesPayload(changes))
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	user, sid, _ := s.identity(r)

	st, ok := s.edits.get(sid, name)
	if !ok {
		writeError(w, http.StatusConflict, "no loaded snapshot; load the dataset first")
		return
	}
	res, err := s.datasets.Save(r.Context(), st.snapshot, st.edited, user)
	if errors.Is(err, dataset.ErrConflict) {
		s.metrics.saveConflicts.Inc()
		writeError(w, http.StatusConflict, "dataset changed since it was loaded; reload and retry")
		return
	}
	if err != nil {
		s.logger.Error("dataset save failed", "dataset", name, "error", err)
		writeError(w, http.StatusBadGateway, "save failed")
		return
	}

	s.metrics.saves.WithLabelValues(name).Inc()
	if res.NotifyError != "" {
		s.metrics.notifyFailures.Inc()
	}
	s.edits.drop(sid, name)

	writeJSON(w, http.StatusOK, map[string]any{
		"dataset":  name,
		"etag":     res.ETag,
		"added":    res.Added,
		"deleted":  res.Deleted,
		"modified": res.Modified,
		"notified": res.Notified,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusNotFound, "audit log not configured")
		return
	}
	name := chi.URLParam(r, "name")
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	events, err := s.audit.ListSaves(name, limit)
	if err != nil {
		s.logger.Error("history query failed", "dataset", name, "error", err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": chatReply(req.Message)})
}
