package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/thywilljoshua/slidecheck/internal/logging"
	"github.com/thywilljoshua/slidecheck/internal/store"
)

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// fail writes {"detail": detail}. Server errors are logged with the cause.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, detail string, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.Int("status", status),
			logging.Text("detail", detail, 200),
			zap.Error(err),
			zap.String("request_id", RequestID(r.Context())))
	}
	writeJSON(w, status, errorBody{Detail: detail})
}

// failStore maps store errors: ErrNotFound becomes 404 with notFound as
// the detail, anything else a 500.
func (s *Server) failStore(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	if errors.Is(err, store.ErrNotFound) {
		s.fail(w, r, http.StatusNotFound, notFound, err)
		return
	}
	s.fail(w, r, http.StatusInternalServerError, "internal server error", err)
}

func (s *Server) failAnalysis(w http.ResponseWriter, r *http.Request, err error) {
	s.fail(w, r, http.StatusInternalServerError, fmt.Sprintf("解析に失敗しました: %v", err), err)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

// formBool parses an optional boolean form or query value.
func formBool(v string, def bool) (bool, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseBool(v)
}
