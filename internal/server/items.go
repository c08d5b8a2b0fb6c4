package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/thywilljoshua/slidecheck/internal/finding"
	"github.com/thywilljoshua/slidecheck/internal/report"
	"github.com/thywilljoshua/slidecheck/internal/store"
)

const maxJSONBody = 1 << 20

type itemWithChanges struct {
	store.Item
	Changes []report.Change `json:"changes"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	return dec.Decode(v)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	fileID, err := pathID(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}
	var f finding.Finding
	if err := decodeJSON(w, r, &f); err != nil {
		s.fail(w, r, http.StatusBadRequest, "invalid finding: "+err.Error(), err)
		return
	}
	f = f.WithDefaults()
	if err := finding.Validate(f); err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}
	if _, err := s.store.GetFile(r.Context(), fileID, s.opts.UserID); err != nil {
		s.failStore(w, r, err, "file not found")
		return
	}
	it, err := s.store.AddItemToLatest(r.Context(), fileID, s.opts.UserID, f)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, "adding item failed", err)
		return
	}
	s.log.Info("item added", zap.Int64("item_id", it.ID), zap.Int64("analysis_id", it.AnalysisID))
	writeJSON(w, http.StatusOK, it)
}

// ownedItem loads an item and checks it belongs to the server's user.
func (s *Server) ownedItem(w http.ResponseWriter, r *http.Request) (store.Item, bool) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error(), err)
		return store.Item{}, false
	}
	it, err := s.store.GetItem(r.Context(), id)
	if err != nil {
		s.failStore(w, r, err, "item not found")
		return store.Item{}, false
	}
	if it.UserID != s.opts.UserID {
		s.fail(w, r, http.StatusForbidden, "forbidden", nil)
		return store.Item{}, false
	}
	return it, true
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	before, ok := s.ownedItem(w, r)
	if !ok {
		return
	}
	var patch store.ItemPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.fail(w, r, http.StatusBadRequest, "invalid patch: "+err.Error(), err)
		return
	}
	if patch.Category != nil {
		c := finding.Category(strings.TrimSpace(string(*patch.Category)))
		patch.Category = &c
	}
	if err := finding.Validate(patch.Apply(before.Finding).WithDefaults()); err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}

	after, err := s.store.UpdateItem(r.Context(), before.ID, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.failStore(w, r, err, "item not found")
			return
		}
		s.fail(w, r, http.StatusInternalServerError, "updating item failed", err)
		return
	}
	changes := report.Changes(before.Finding, after.Finding)
	if changes == nil {
		changes = []report.Change{}
	}
	s.log.Info("item updated", zap.Int64("item_id", after.ID), zap.Int("changes", len(changes)))
	writeJSON(w, http.StatusOK, itemWithChanges{Item: after, Changes: changes})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	it, ok := s.ownedItem(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteItem(r.Context(), it.ID); err != nil {
		s.failStore(w, r, err, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
