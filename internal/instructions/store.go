// Package instructions holds the system instruction text injected in front of
// every chat prompt.
package instructions

import "sync"

// Default is the instruction text a Store starts with when none is configured.
const Default = `You are WromGPT, a helpful and knowledgeable AI assistant.
You provide accurate, concise, and helpful responses to user queries.
Always maintain a professional and friendly tone.`

// Store is a lock-guarded instruction cell. The zero value is usable and
// holds the empty string.
type Store struct {
	mu   sync.RWMutex
	text string
}

// NewStore returns a Store holding initial.
func NewStore(initial string) *Store {
	return &Store{text: initial}
}

// Get returns the current instruction text.
func (s *Store) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// Set replaces the instruction text wholesale. Any string is accepted,
// including the empty string.
func (s *Store) Set(text string) {
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
}
