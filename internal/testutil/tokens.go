package testutil

import (
	"fmt"
	"sync"

	"texforge/internal/model"
)

// StubTokenSource returns sequential tokens: "token-1", "token-2", etc.
type StubTokenSource struct {
	mu      sync.Mutex
	counter int
}

func NewStubTokenSource() *StubTokenSource {
	return &StubTokenSource{}
}

func (s *StubTokenSource) NewToken() (model.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	return model.Token(fmt.Sprintf("token-%d", s.counter)), nil
}
