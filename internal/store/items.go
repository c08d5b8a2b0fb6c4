package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/thywilljoshua/slidecheck/internal/finding"
)

// Item is a persisted finding. Items may be edited after the analysis.
type Item struct {
	ID         int64  `json:"id"`
	AnalysisID int64  `json:"-"`
	UserID     string `json:"-"`
	finding.Finding
}

// ItemPatch holds the fields to change; nil fields are left as they are.
type ItemPatch struct {
	SlideNumber    *int                    `json:"slideNumber"`
	Category       *finding.Category       `json:"category"`
	Basis          *string                 `json:"basis"`
	Issue          *string                 `json:"issue"`
	Suggestion     *string                 `json:"suggestion"`
	CorrectionType *finding.CorrectionType `json:"correctionType"`
}

// Apply returns f with the patch applied.
func (p ItemPatch) Apply(f finding.Finding) finding.Finding {
	if p.SlideNumber != nil {
		f.SlideNumber = *p.SlideNumber
	}
	if p.Category != nil {
		f.Category = *p.Category
	}
	if p.Basis != nil {
		f.Basis = *p.Basis
	}
	if p.Issue != nil {
		f.Issue = *p.Issue
	}
	if p.Suggestion != nil {
		f.Suggestion = *p.Suggestion
	}
	if p.CorrectionType != nil {
		f.CorrectionType = *p.CorrectionType
	}
	return f
}

const itemColumns = `i.id, i.analysis_id, a.user_id, i.slide_number, i.category, i.basis, i.issue, i.suggestion, i.correction_type`

func scanItem(sc scanner) (Item, error) {
	var it Item
	var category, correction string
	err := sc.Scan(&it.ID, &it.AnalysisID, &it.UserID, &it.SlideNumber, &category, &it.Basis, &it.Issue, &it.Suggestion, &correction)
	it.Category = finding.Category(category)
	it.CorrectionType = finding.CorrectionType(correction)
	return it, err
}

func (s *Store) listItems(ctx context.Context, analysisID int64) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM analysis_items i JOIN analyses a ON a.id = i.analysis_id
		 WHERE i.analysis_id = ? ORDER BY i.id`, analysisID)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// GetItem returns an item together with the owner of its analysis.
func (s *Store) GetItem(ctx context.Context, id int64) (Item, error) {
	it, err := scanItem(s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM analysis_items i JOIN analyses a ON a.id = i.analysis_id
		 WHERE i.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Item{}, fmt.Errorf("querying item: %w", err)
	}
	return it, nil
}

// AddItem appends a finding to an analysis. An unset correction type is
// stored as optional.
func (s *Store) AddItem(ctx context.Context, analysisID int64, f finding.Finding) (Item, error) {
	return addItem(ctx, s.db, analysisID, f)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func addItem(ctx context.Context, db execer, analysisID int64, f finding.Finding) (Item, error) {
	f = f.WithDefaults()
	res, err := db.ExecContext(ctx,
		`INSERT INTO analysis_items (analysis_id, slide_number, category, basis, issue, suggestion, correction_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		analysisID, f.SlideNumber, string(f.Category), f.Basis, f.Issue, f.Suggestion, string(f.CorrectionType))
	if err != nil {
		return Item{}, fmt.Errorf("inserting item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Item{}, err
	}
	return Item{ID: id, AnalysisID: analysisID, Finding: f}, nil
}

// AddItemToLatest appends a finding to the file's newest analysis,
// creating an empty manual-edit analysis first when the file has none.
func (s *Store) AddItemToLatest(ctx context.Context, fileID int64, userID string, f finding.Finding) (Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Item{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var analysisID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM analyses WHERE file_id = ? AND user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`, fileID, userID).Scan(&analysisID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx,
			`INSERT INTO analyses (user_id, file_id, model, status, rules_version, result_json, created_at)
			 VALUES (?, ?, ?, ?, NULL, '[]', ?)`,
			userID, fileID, ManualEditModel, StatusSuccess, s.timestamp())
		if err != nil {
			return Item{}, fmt.Errorf("creating manual-edit analysis: %w", err)
		}
		if analysisID, err = res.LastInsertId(); err != nil {
			return Item{}, err
		}
	case err != nil:
		return Item{}, fmt.Errorf("querying latest analysis: %w", err)
	}

	it, err := addItem(ctx, tx, analysisID, f)
	if err != nil {
		return Item{}, err
	}
	if err := tx.Commit(); err != nil {
		return Item{}, fmt.Errorf("committing item: %w", err)
	}
	it.UserID = userID
	return it, nil
}

// UpdateItem applies patch to an item and returns the stored result. A
// cleared correction type falls back to optional.
func (s *Store) UpdateItem(ctx context.Context, id int64, patch ItemPatch) (Item, error) {
	it, err := s.GetItem(ctx, id)
	if err != nil {
		return Item{}, err
	}
	f := patch.Apply(it.Finding).WithDefaults()
	_, err = s.db.ExecContext(ctx,
		`UPDATE analysis_items
		 SET slide_number = ?, category = ?, basis = ?, issue = ?, suggestion = ?, correction_type = ?
		 WHERE id = ?`,
		f.SlideNumber, string(f.Category), f.Basis, f.Issue, f.Suggestion, string(f.CorrectionType), id)
	if err != nil {
		return Item{}, fmt.Errorf("updating item: %w", err)
	}
	it.Finding = f
	return it, nil
}

// UpdateItemBasis sets the basis of several items in one transaction.
func (s *Store) UpdateItemBasis(ctx context.Context, basis map[int64]string) error {
	if len(basis) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE analysis_items SET basis = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("preparing update: %w", err)
	}
	defer stmt.Close()
	for id, b := range basis {
		res, err := stmt.ExecContext(ctx, b, id)
		if err != nil {
			return fmt.Errorf("updating item %d: %w", id, err)
		}
		if err := expectRow(res, "item", id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteItem removes an item.
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analysis_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return expectRow(res, "item", id)
}
