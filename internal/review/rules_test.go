package review

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/thywilljoshua/slidecheck/internal/finding"
)

func TestDefaultRuleSet(t *testing.T) {
	rs := DefaultRuleSet()
	require.Len(t, rs.Rules, 9)
	assert.NotEmpty(t, rs.Version)

	text := rs.Format()
	assert.Contains(t, text, "ルール1: 誤植\n")
	assert.Contains(t, text, "ルール9: 一般広告表現\n")

	required := rs.labels(finding.CorrectionRequired)
	assert.Contains(t, required, "ルール2（製品名）")
	assert.NotContains(t, required, "ルール1（誤植）")
}

func TestParseRuleSet_Errors(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{name: "no rules", yaml: "name: x\nrules: []\n", errMsg: "has no rules"},
		{name: "missing title", yaml: "rules:\n  - id: \"1\"\n", errMsg: "id and title are required"},
		{name: "duplicate", yaml: "rules:\n  - {id: \"1\", title: a}\n  - {id: \"1\", title: b}\n", errMsg: "duplicate id"},
		{name: "bad correction", yaml: "rules:\n  - {id: \"1\", title: a, correction: 推奨}\n", errMsg: "invalid correction"},
		{name: "bad yaml", yaml: "rules: [", errMsg: "parsing rules"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRuleSet([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadLawSummary(t *testing.T) {
	s, err := LoadLawSummary("")
	require.NoError(t, err)
	assert.Contains(t, s, "第66条 誇大広告等の禁止")

	p := filepath.Join(t.TempDir(), "law.md")
	require.NoError(t, os.WriteFile(p, []byte("custom law"), 0o644))
	s, err = LoadLawSummary(p)
	require.NoError(t, err)
	assert.Equal(t, "custom law", s)

	_, err = LoadLawSummary(filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
}

func TestCatalog_ReloadKeepsPreviousOnError(t *testing.T) {
	c := NewCatalog(DefaultRuleSet())
	p := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(p, []byte("rules: ["), 0o644))

	_, err := c.Reload(p)
	require.Error(t, err)
	assert.Equal(t, DefaultRuleSet().Version, c.Current().Version)
}

func TestCatalog_Watch(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(p, []byte("version: v1\nrules:\n  - {id: \"1\", title: a}\n"), 0o644))

	c := NewCatalog(DefaultRuleSet())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx, p, zaptest.NewLogger(t)) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// Rewrite until the watcher has registered and picked up a change. The
	// interval exceeds the debounce so each write gets a chance to land.
	require.Eventually(t, func() bool {
		if c.Current().Version == "v2" {
			return true
		}
		_ = os.WriteFile(p, []byte("version: v2\nrules:\n  - {id: \"1\", title: b}\n"), 0o644)
		return false
	}, 10*time.Second, 2*reloadDebounce)

	require.NoError(t, os.WriteFile(p, []byte("rules: ["), 0o644))
	time.Sleep(2 * reloadDebounce)
	assert.Equal(t, "v2", c.Current().Version)
}
