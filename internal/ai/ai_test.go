package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain array", in: `[{"a":1}]`, want: `[{"a":1}]`},
		{name: "json fence", in: "```json\n[{\"a\":1}]\n```", want: `[{"a":1}]`},
		{name: "bare fence", in: "```\n{}\n```", want: `{}`},
		{name: "prose around array", in: "結果は以下です。\n[{\"issue\":\"[注]\"}]\n以上", want: `[{"issue":"[注]"}]`},
		{name: "skips unbalanced prefix", in: `note [1 then {"k":"v"}`, want: `{"k":"v"}`},
		{name: "no json", in: "no findings", want: "no findings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSON(tt.in))
		})
	}
}

func TestStatic(t *testing.T) {
	s := NewStatic("mock", map[string]string{"initial": "[]"})
	out, err := s.Generate(context.Background(), Request{Name: "initial", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
	assert.Equal(t, "mock", s.Model())

	_, err = s.Generate(context.Background(), Request{Name: "legal"})
	assert.ErrorContains(t, err, "legal")

	calls := s.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "p", calls[0].Prompt)
}

func TestStatic_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStatic("", nil).Generate(ctx, Request{Name: "initial"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "static", (&Static{}).Model())
}

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), "", "", 0)
	assert.Error(t, err)
}
