package server

import (
	"net/http"
	"strings"

	"github.com/thywilljoshua/slidecheck/internal/store"
)

type messageRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.store.ListMessages(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, "listing messages failed", err)
		return
	}
	if msgs == nil {
		msgs = []store.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, "invalid message: "+err.Error(), err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.fail(w, r, http.StatusBadRequest, "text is required", nil)
		return
	}
	m, err := s.store.CreateMessage(r.Context(), req.Text)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, "saving message failed", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}
	if err := s.store.DeleteMessage(r.Context(), id); err != nil {
		s.failStore(w, r, err, "message not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
