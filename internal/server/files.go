package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/thywilljoshua/slidecheck/internal/extract"
	"github.com/thywilljoshua/slidecheck/internal/store"
)

const uploadRejected = "pptx ファイルをアップロードしてください。"

var deckExts = []string{".pptx", ".pdf"}

type uploadResponse struct {
	FileID    int64  `json:"file_id"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	SHA256    string `json:"sha256"`
}

// managedFile mirrors the file card shape the frontend keeps in state.
type managedFile struct {
	ID                 string    `json:"id"`
	File               *struct{} `json:"file"`
	Name               string    `json:"name"`
	Size               int64     `json:"size"`
	UploadDate         string    `json:"uploadDate"`
	Status             string    `json:"status"`
	AnalysisResult     []any     `json:"analysisResult"`
	Error              *string   `json:"error"`
	IsBasisAugmented   bool      `json:"isBasisAugmented"`
	AugmentationStatus string    `json:"augmentationStatus"`
	AnalysisCount      int       `json:"analysisCount"`
}

func deckExt(name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range deckExts {
		if ext == e {
			return ext, true
		}
	}
	return "", false
}

// readUpload reads the multipart "file" field, enforcing the upload limit
// and the deck extension. It writes the error response itself and reports
// whether the caller should continue.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*multipart.FileHeader, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	f, hdr, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", s.opts.MaxUploadBytes), err)
			return nil, nil, false
		}
		s.fail(w, r, http.StatusBadRequest, "file is required", err)
		return nil, nil, false
	}
	defer f.Close()

	if _, ok := deckExt(hdr.Filename); !ok {
		s.fail(w, r, http.StatusBadRequest, uploadRejected, nil)
		return nil, nil, false
	}
	data, err := io.ReadAll(f)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, "reading upload failed", err)
		return nil, nil, false
	}
	return hdr, data, true
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	hdr, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	ext, _ := deckExt(hdr.Filename)
	obj, err := s.blobs.Put(data, ext)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, "storing upload failed", err)
		return
	}
	f, err := s.store.CreateFile(r.Context(), store.File{
		UserID:    s.opts.UserID,
		Filename:  filepath.Base(hdr.Filename),
		Path:      obj.Path,
		SHA256:    obj.SHA256,
		SizeBytes: obj.Size,
	})
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, "storing upload failed", err)
		return
	}
	s.log.Info("file uploaded",
		zap.Int64("file_id", f.ID),
		zap.String("filename", f.Filename),
		zap.Int64("size_bytes", f.SizeBytes))
	writeJSON(w, http.StatusOK, uploadResponse{
		FileID:    f.ID,
		Filename:  f.Filename,
		SizeBytes: f.SizeBytes,
		SHA256:    f.SHA256,
	})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.ListFiles(r.Context(), s.opts.UserID)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, "listing files failed", err)
		return
	}
	out := make([]managedFile, 0, len(files))
	for _, f := range files {
		status := "pending"
		if f.AnalysisCount > 0 {
			status = "success"
		}
		out = append(out, managedFile{
			ID:                 strconv.FormatInt(f.ID, 10),
			Name:               f.Filename,
			Size:               f.SizeBytes,
			UploadDate:         f.CreatedAt.UTC().Format(time.RFC3339),
			Status:             status,
			AnalysisResult:     []any{},
			AugmentationStatus: "idle",
			AnalysisCount:      f.AnalysisCount,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}
	f, err := s.store.GetFile(r.Context(), id, s.opts.UserID)
	if err != nil {
		s.failStore(w, r, err, "file not found")
		return
	}
	if err := s.store.DeleteFile(r.Context(), id); err != nil {
		s.failStore(w, r, err, "file not found")
		return
	}
	// Uploads are content-addressed; identical decks share one blob.
	inUse, err := s.store.PathInUse(r.Context(), f.Path)
	switch {
	case err != nil:
		s.log.Warn("checking blob references", zap.String("path", f.Path), zap.Error(err))
	case !inUse:
		if err := s.blobs.Remove(f.Path); err != nil {
			s.log.Warn("removing blob", zap.String("path", f.Path), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleConvertXML(w http.ResponseWriter, r *http.Request) {
	_, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	pretty, err := formBool(r.FormValue("pretty"), true)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, "pretty must be a boolean", err)
		return
	}
	xml, err := extract.ConvertBytes(data, pretty)
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat), errors.Is(err, extract.ErrLegacyFormat):
		s.fail(w, r, http.StatusBadRequest, err.Error(), err)
		return
	case err != nil:
		s.failAnalysis(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, xml)
}
