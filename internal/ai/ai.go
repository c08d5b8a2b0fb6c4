package ai

import (
	"context"
	"fmt"
	"sync"

	genai "google.golang.org/genai"
)

// Request is a single schema-constrained generation call.
type Request struct {
	// Name identifies the pass ("initial", "legal") for logs and canned
	// responses.
	Name        string
	Prompt      string
	Schema      *genai.Schema
	Temperature float32
}

// Generator produces a JSON text response for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Model() string
}

// Static returns canned responses keyed by request name. It records every
// request it receives.
type Static struct {
	Name      string
	Responses map[string]string

	mu    sync.Mutex
	calls []Request
}

// NewStatic returns a Static generator reporting model name.
func NewStatic(name string, responses map[string]string) *Static {
	return &Static{Name: name, Responses: responses}
}

func (s *Static) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	out, ok := s.Responses[req.Name]
	if !ok {
		return "", fmt.Errorf("no canned response for %q", req.Name)
	}
	return out, nil
}

func (s *Static) Model() string {
	if s.Name == "" {
		return "static"
	}
	return s.Name
}

// Calls returns a copy of the requests received so far.
func (s *Static) Calls() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.calls...)
}
