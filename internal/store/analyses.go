package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/thywilljoshua/slidecheck/internal/finding"
)

const (
	StatusSuccess = "success"

	// ManualEditModel marks analyses created to hold hand-added findings.
	ManualEditModel = "manual-edit"
)

// Analysis is one review run over a file.
type Analysis struct {
	ID           int64
	UserID       string
	FileID       int64
	Model        string
	Status       string
	RulesVersion *string
	ResultJSON   json.RawMessage
	CreatedAt    time.Time

	ItemsCount int
	Items      []Item
}

// NewAnalysis is the input to SaveAnalysis.
type NewAnalysis struct {
	UserID       string
	FileID       int64
	Model        string
	RulesVersion string // empty is stored as NULL
	Findings     []finding.Finding
}

// SaveAnalysis stores an analysis and its findings in one transaction. The
// findings are also kept verbatim as result_json.
func (s *Store) SaveAnalysis(ctx context.Context, in NewAnalysis) (*Analysis, error) {
	findings := in.Findings
	if findings == nil {
		findings = []finding.Finding{}
	}
	result, err := json.Marshal(findings)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var rules sql.NullString
	if in.RulesVersion != "" {
		rules = sql.NullString{String: in.RulesVersion, Valid: true}
	}
	created := s.timestamp()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO analyses (user_id, file_id, model, status, rules_version, result_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.UserID, in.FileID, in.Model, StatusSuccess, rules, string(result), created,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting analysis: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO analysis_items (analysis_id, slide_number, category, basis, issue, suggestion, correction_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	items := make([]Item, 0, len(findings))
	for _, f := range findings {
		f = f.WithDefaults()
		r, err := stmt.ExecContext(ctx, id, f.SlideNumber, string(f.Category), f.Basis, f.Issue, f.Suggestion, string(f.CorrectionType))
		if err != nil {
			return nil, fmt.Errorf("inserting item: %w", err)
		}
		itemID, err := r.LastInsertId()
		if err != nil {
			return nil, err
		}
		items = append(items, Item{ID: itemID, AnalysisID: id, UserID: in.UserID, Finding: f})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing analysis: %w", err)
	}

	a := &Analysis{
		ID:         id,
		UserID:     in.UserID,
		FileID:     in.FileID,
		Model:      in.Model,
		Status:     StatusSuccess,
		ResultJSON: result,
		CreatedAt:  parseTime(created),
		ItemsCount: len(items),
		Items:      items,
	}
	if rules.Valid {
		a.RulesVersion = &rules.String
	}
	return a, nil
}

const analysisColumns = `a.id, a.user_id, a.file_id, a.model, a.status, a.rules_version, a.result_json, a.created_at,
	(SELECT count(*) FROM analysis_items i WHERE i.analysis_id = a.id)`

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(sc scanner) (*Analysis, error) {
	var a Analysis
	var rules sql.NullString
	var result, created string
	if err := sc.Scan(&a.ID, &a.UserID, &a.FileID, &a.Model, &a.Status, &rules, &result, &created, &a.ItemsCount); err != nil {
		return nil, err
	}
	if rules.Valid {
		a.RulesVersion = &rules.String
	}
	a.ResultJSON = json.RawMessage(result)
	a.CreatedAt = parseTime(created)
	return &a, nil
}

// ListAnalysesByFile returns the file's analyses newest first, without
// items.
func (s *Store) ListAnalysesByFile(ctx context.Context, fileID int64, userID string) ([]*Analysis, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+analysisColumns+` FROM analyses a
		 WHERE a.file_id = ? AND a.user_id = ?
		 ORDER BY a.created_at DESC, a.id DESC`, fileID, userID)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	defer rows.Close()

	var out []*Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning analysis: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAnalysis returns an analysis owned by userID with its items.
func (s *Store) GetAnalysis(ctx context.Context, id int64, userID string) (*Analysis, error) {
	a, err := scanAnalysis(s.db.QueryRowContext(ctx,
		`SELECT `+analysisColumns+` FROM analyses a WHERE a.id = ? AND a.user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying analysis: %w", err)
	}
	if a.Items, err = s.listItems(ctx, a.ID); err != nil {
		return nil, err
	}
	return a, nil
}

// LatestAnalysis returns the newest analysis of a file with its items.
func (s *Store) LatestAnalysis(ctx context.Context, fileID int64, userID string) (*Analysis, error) {
	a, err := scanAnalysis(s.db.QueryRowContext(ctx,
		`SELECT `+analysisColumns+` FROM analyses a
		 WHERE a.file_id = ? AND a.user_id = ?
		 ORDER BY a.created_at DESC, a.id DESC LIMIT 1`, fileID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis for file %d: %w", fileID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest analysis: %w", err)
	}
	if a.Items, err = s.listItems(ctx, a.ID); err != nil {
		return nil, err
	}
	return a, nil
}
