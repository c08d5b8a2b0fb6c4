package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/thywilljoshua/slidecheck/internal/extract"
	"github.com/thywilljoshua/slidecheck/internal/finding"
	"github.com/thywilljoshua/slidecheck/internal/report"
	"github.com/thywilljoshua/slidecheck/internal/review"
	"github.com/thywilljoshua/slidecheck/internal/store"
)

const analysisIDHeader = "X-Analysis-Id"

type analysisSummary struct {
	ID         int64     `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Model      string    `json:"model"`
	Status     string    `json:"status"`
	ItemsCount int       `json:"items_count"`
}

type analysisDetail struct {
	ID           int64           `json:"id"`
	FileID       int64           `json:"file_id"`
	CreatedAt    time.Time       `json:"created_at"`
	Model        string          `json:"model"`
	Status       string          `json:"status"`
	RulesVersion *string         `json:"rules_version"`
	ResultJSON   json.RawMessage `json:"result_json,omitempty"`
	Items        []store.Item    `json:"items"`
}

func newAnalysisDetail(a *store.Analysis, withResult bool) analysisDetail {
	items := a.Items
	if items == nil {
		items = []store.Item{}
	}
	d := analysisDetail{
		ID:           a.ID,
		FileID:       a.FileID,
		CreatedAt:    a.CreatedAt,
		Model:        a.Model,
		Status:       a.Status,
		RulesVersion: a.RulesVersion,
		Items:        items,
	}
	if withResult {
		d.ResultJSON = a.ResultJSON
	}
	return d
}

func itemFindings(items []store.Item) []finding.Finding {
	out := make([]finding.Finding, len(items))
	for i, it := range items {
		out[i] = it.Finding
	}
	return out
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	fileID, err := strconv.ParseInt(r.FormValue("file_id"), 10, 64)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, "file_id is required", err)
		return
	}
	enrich, err := formBool(r.FormValue("enrich"), false)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, "enrich must be a boolean", err)
		return
	}
	f, err := s.store.GetFile(r.Context(), fileID, s.opts.UserID)
	if err != nil {
		s.failStore(w, r, err, "file not found")
		return
	}
	path, err := s.blobs.Path(f.Path)
	if err != nil {
		s.failAnalysis(w, r, err)
		return
	}
	xml, err := extract.ConvertFile(path, false)
	if err != nil {
		s.failAnalysis(w, r, err)
		return
	}

	res, err := s.analyzer.Analyze(r.Context(), xml, review.Options{
		Rules:  r.FormValue("rules"),
		Enrich: enrich,
	})
	if err != nil {
		s.failAnalysis(w, r, err)
		return
	}
	a, err := s.store.SaveAnalysis(r.Context(), store.NewAnalysis{
		UserID:       s.opts.UserID,
		FileID:       f.ID,
		Model:        res.Model,
		RulesVersion: res.RulesVersion,
		Findings:     res.Findings,
	})
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, "saving analysis failed", err)
		return
	}
	s.log.Info("analysis saved",
		zap.Int64("analysis_id", a.ID),
		zap.Int64("file_id", f.ID),
		zap.Int("findings", len(res.Findings)),
		zap.Bool("enriched", res.Enriched))

	findings := res.Findings
	if findings == nil {
		findings = []finding.Finding{}
	}
	w.Header().Set(analysisIDHeader, strconv.FormatInt(a.ID, 10))
	writeJSON(w, http.StatusOK, findings)
}

// handleEnrichAnalysis runs the legal-basis pass over a stored analysis and
// persists the bases that changed.
func (s *Server) handleEnrichAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}
	a, err := s.store.GetAnalysis(r.Context(), id, s.opts.UserID)
	if err != nil {
		s.failStore(w, r, err, "analysis not found")
		return
	}
	enriched, err := s.analyzer.Enrich(r.Context(), itemFindings(a.Items))
	if err != nil {
		s.failAnalysis(w, r, err)
		return
	}

	changed := make(map[int64]string)
	for i := range a.Items {
		if enriched[i].Basis != a.Items[i].Basis {
			changed[a.Items[i].ID] = enriched[i].Basis
			a.Items[i].Basis = enriched[i].Basis
		}
	}
	if err := s.store.UpdateItemBasis(r.Context(), changed); err != nil {
		s.fail(w, r, http.StatusInternalServerError, "saving legal bases failed", err)
		return
	}
	s.log.Info("analysis enriched", zap.Int64("analysis_id", a.ID), zap.Int("updated", len(changed)))
	writeJSON(w, http.StatusOK, newAnalysisDetail(a, false).Items)
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	fileID, err := pathID(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}
	if _, err := s.store.GetFile(r.Context(), fileID, s.opts.UserID); err != nil {
		s.failStore(w, r, err, "file not found")
		return
	}
	analyses, err := s.store.ListAnalysesByFile(r.Context(), fileID, s.opts.UserID)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, "listing analyses failed", err)
		return
	}
	out := make([]analysisSummary, 0, len(analyses))
	for _, a := range analyses {
		out = append(out, analysisSummary{
			ID:         a.ID,
			CreatedAt:  a.CreatedAt,
			Model:      a.Model,
			Status:     a.Status,
			ItemsCount: a.ItemsCount,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}
	a, err := s.store.GetAnalysis(r.Context(), id, s.opts.UserID)
	if err != nil {
		s.failStore(w, r, err, "analysis not found")
		return
	}
	writeJSON(w, http.StatusOK, newAnalysisDetail(a, true))
}

func (s *Server) handleLatestAnalysis(w http.ResponseWriter, r *http.Request) {
	fileID, err := pathID(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}
	a, err := s.store.LatestAnalysis(r.Context(), fileID, s.opts.UserID)
	if err != nil {
		s.failStore(w, r, err, "no analysis found")
		return
	}
	writeJSON(w, http.StatusOK, newAnalysisDetail(a, false))
}

func (s *Server) handleExportAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}
	q := r.URL.Query()
	basis, err := formBool(q.Get("basis"), true)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, "basis must be a boolean", err)
		return
	}
	renderer, err := report.NewRenderer(q.Get("format"), basis)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}
	a, err := s.store.GetAnalysis(r.Context(), id, s.opts.UserID)
	if err != nil {
		s.failStore(w, r, err, "analysis not found")
		return
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, itemFindings(a.Items)); err != nil {
		s.fail(w, r, http.StatusInternalServerError, "rendering export failed", err)
		return
	}
	w.Header().Set("Content-Type", renderer.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="analysis-%d.%s"`, a.ID, renderer.Ext()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
