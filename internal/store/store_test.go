package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/thywilljoshua/slidecheck/internal/finding"
)

const user = "localuser"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "app.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	// Deterministic, strictly increasing clock.
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	var tick int
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func createFile(t *testing.T, s *Store, name string) File {
	t.Helper()
	f, err := s.CreateFile(context.Background(), File{
		UserID: user, Filename: name, Path: "ab/abc.pptx", SHA256: "abc", SizeBytes: 10,
	})
	require.NoError(t, err)
	return f
}

var sample = []finding.Finding{
	{SlideNumber: 1, Category: finding.CategoryTypo, Issue: "誤字", Suggestion: "修正", CorrectionType: finding.CorrectionRequired},
	{SlideNumber: 2, Category: finding.CategoryExpression, Basis: "4", Issue: "断定", Suggestion: "緩和"},
}

func TestFiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := createFile(t, s, "a.pptx")
	b := createFile(t, s, "b.pptx")
	assert.NotZero(t, a.ID)
	assert.False(t, a.CreatedAt.IsZero())

	got, err := s.GetFile(ctx, a.ID, user)
	require.NoError(t, err)
	assert.Equal(t, "a.pptx", got.Filename)
	assert.Equal(t, a.CreatedAt, got.CreatedAt)

	_, err = s.GetFile(ctx, a.ID, "someone-else")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.SaveAnalysis(ctx, NewAnalysis{UserID: user, FileID: b.ID, Model: "m", Findings: sample})
	require.NoError(t, err)

	files, err := s.ListFiles(ctx, user)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, b.ID, files[0].ID, "newest first")
	assert.Equal(t, 1, files[0].AnalysisCount)
	assert.Equal(t, 0, files[1].AnalysisCount)

	require.NoError(t, s.DeleteFile(ctx, b.ID))
	assert.ErrorIs(t, s.DeleteFile(ctx, b.ID), ErrNotFound)

	inUse, err := s.PathInUse(ctx, a.Path)
	require.NoError(t, err)
	assert.True(t, inUse, "a still references the shared blob")
	require.NoError(t, s.DeleteFile(ctx, a.ID))
	inUse, err = s.PathInUse(ctx, a.Path)
	require.NoError(t, err)
	assert.False(t, inUse)

	_, err = s.LatestAnalysis(ctx, b.ID, user)
	assert.ErrorIs(t, err, ErrNotFound, "analyses cascade with the file")
}

func TestSaveAndGetAnalysis(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	f := createFile(t, s, "deck.pptx")

	saved, err := s.SaveAnalysis(ctx, NewAnalysis{UserID: user, FileID: f.ID, Model: "gemini-2.5-flash", RulesVersion: "2024.1", Findings: sample})
	require.NoError(t, err)
	require.Len(t, saved.Items, 2)
	assert.Equal(t, finding.CorrectionOptional, saved.Items[1].CorrectionType)

	got, err := s.GetAnalysis(ctx, saved.ID, user)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, got.Status)
	require.NotNil(t, got.RulesVersion)
	assert.Equal(t, "2024.1", *got.RulesVersion)
	assert.Equal(t, 2, got.ItemsCount)
	assert.Equal(t, saved.Items, got.Items)

	var result []finding.Finding
	require.NoError(t, json.Unmarshal(got.ResultJSON, &result))
	assert.Equal(t, sample, result, "result_json keeps the pipeline output as returned")

	_, err = s.GetAnalysis(ctx, saved.ID, "other")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndLatestAnalysis(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	f := createFile(t, s, "deck.pptx")

	first, err := s.SaveAnalysis(ctx, NewAnalysis{UserID: user, FileID: f.ID, Model: "m1", Findings: sample})
	require.NoError(t, err)
	second, err := s.SaveAnalysis(ctx, NewAnalysis{UserID: user, FileID: f.ID, Model: "m2"})
	require.NoError(t, err)
	assert.Nil(t, second.RulesVersion)
	assert.JSONEq(t, `[]`, string(second.ResultJSON))

	list, err := s.ListAnalysesByFile(ctx, f.ID, user)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, 0, list[0].ItemsCount)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, 2, list[1].ItemsCount)

	latest, err := s.LatestAnalysis(ctx, f.ID, user)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Empty(t, latest.Items)
}

func TestItems(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	f := createFile(t, s, "deck.pptx")
	a, err := s.SaveAnalysis(ctx, NewAnalysis{UserID: user, FileID: f.ID, Model: "m", Findings: sample})
	require.NoError(t, err)

	added, err := s.AddItem(ctx, a.ID, finding.Finding{SlideNumber: 3, Category: "レイアウト", Issue: "文字が小さい"})
	require.NoError(t, err)
	assert.Equal(t, finding.CorrectionOptional, added.CorrectionType)

	item, err := s.GetItem(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, user, item.UserID)
	assert.Equal(t, finding.Category("レイアウト"), item.Category)

	basis := "5"
	ct := finding.CorrectionRequired
	updated, err := s.UpdateItem(ctx, added.ID, ItemPatch{Basis: &basis, CorrectionType: &ct})
	require.NoError(t, err)
	assert.Equal(t, "5", updated.Basis)
	assert.Equal(t, finding.CorrectionRequired, updated.CorrectionType)
	assert.Equal(t, "文字が小さい", updated.Issue, "unpatched fields are kept")

	cleared := finding.CorrectionType("")
	updated, err = s.UpdateItem(ctx, added.ID, ItemPatch{CorrectionType: &cleared})
	require.NoError(t, err)
	assert.Equal(t, finding.CorrectionOptional, updated.CorrectionType)
	item, err = s.GetItem(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, finding.CorrectionOptional, item.CorrectionType)

	require.NoError(t, s.UpdateItemBasis(ctx, map[int64]string{a.Items[1].ID: "4\n薬機法 第66条"}))
	item, err = s.GetItem(ctx, a.Items[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "4\n薬機法 第66条", item.Basis)
	assert.ErrorIs(t, s.UpdateItemBasis(ctx, map[int64]string{9999: "x"}), ErrNotFound)

	require.NoError(t, s.DeleteItem(ctx, added.ID))
	assert.ErrorIs(t, s.DeleteItem(ctx, added.ID), ErrNotFound)
	_, err = s.GetItem(ctx, added.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.UpdateItem(ctx, added.ID, ItemPatch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddItemToLatest(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	f := createFile(t, s, "deck.pptx")

	it, err := s.AddItemToLatest(ctx, f.ID, user, finding.Finding{SlideNumber: 1, Category: finding.CategoryTypo, Issue: "x"})
	require.NoError(t, err)

	latest, err := s.LatestAnalysis(ctx, f.ID, user)
	require.NoError(t, err)
	assert.Equal(t, ManualEditModel, latest.Model)
	require.Len(t, latest.Items, 1)
	assert.Equal(t, it.ID, latest.Items[0].ID)

	_, err = s.AddItemToLatest(ctx, f.ID, user, finding.Finding{SlideNumber: 2, Category: finding.CategoryTypo, Issue: "y"})
	require.NoError(t, err)
	list, err := s.ListAnalysesByFile(ctx, f.ID, user)
	require.NoError(t, err)
	require.Len(t, list, 1, "second item reuses the manual-edit analysis")
	assert.Equal(t, 2, list[0].ItemsCount)
}

func TestMessages(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	m1, err := s.CreateMessage(ctx, "first")
	require.NoError(t, err)
	_, err = s.CreateMessage(ctx, "second")
	require.NoError(t, err)

	list, err := s.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Text)

	require.NoError(t, s.DeleteMessage(ctx, m1.ID))
	assert.ErrorIs(t, s.DeleteMessage(ctx, m1.ID), ErrNotFound)
	list, err = s.ListMessages(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestOpen_MigratesCorrectionType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE analysis_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		analysis_id INTEGER NOT NULL,
		slide_number INTEGER NOT NULL,
		category TEXT NOT NULL,
		basis TEXT NOT NULL DEFAULT '',
		issue TEXT NOT NULL,
		suggestion TEXT NOT NULL DEFAULT ''
	)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	has, err := s.hasColumn("analysis_items", "correction_type")
	require.NoError(t, err)
	assert.True(t, has)
}
