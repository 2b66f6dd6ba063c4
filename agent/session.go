package agent

import (
	"container/list"
	"encoding/base64"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// historyLimit caps a committed session history: the system seed plus the
// last two user/assistant pairs.
const historyLimit = 5

// SessionKey derives the session identifier for a caller working on one
// dataset file. Package and filename are base64-encoded so the caller token
// can be appended without delimiter ambiguity.
func SessionKey(pkg, filename, token string) string {
	return base64.StdEncoding.EncodeToString([]byte(pkg)) +
		base64.StdEncoding.EncodeToString([]byte(filename)) +
		token
}

// SessionStore holds per-session conversation histories in a bounded LRU
// cache. Reads and commits are turn-granular: GetOrCreate hands out a copy,
// the turn mutates it, Commit stores it back. Concurrent turns on the same
// key resolve last-writer-wins.
type SessionStore struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List
}

type sessionEntry struct {
	key     string
	history []*schema.Message
}

// NewSessionStore creates a SessionStore evicting least-recently-used
// sessions beyond capacity.
func NewSessionStore(capacity int) *SessionStore {
	if capacity <= 0 {
		capacity = 1
	}
	return &SessionStore{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// GetOrCreate returns a copy of the stored history for key, or seed when the
// session does not exist yet. A new session is not inserted until Commit, so
// a turn that fails early leaves no trace.
func (s *SessionStore) GetOrCreate(key string, seed []*schema.Message) []*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[key]; ok {
		s.order.MoveToFront(elem)
		return copyHistory(elem.Value.(*sessionEntry).history)
	}
	return copyHistory(seed)
}

// Commit stores the history for key, trimming it to the history limit and
// evicting the least-recently-used session if the store is full.
func (s *SessionStore) Commit(key string, history []*schema.Message) {
	history = trimHistory(history)

	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[key]; ok {
		elem.Value.(*sessionEntry).history = history
		s.order.MoveToFront(elem)
		return
	}

	if s.order.Len() >= s.capacity {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.entries, oldest.Value.(*sessionEntry).key)
		}
	}

	s.entries[key] = s.order.PushFront(&sessionEntry{key: key, history: history})
}

// Len reports the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// AppendTurn appends one user/assistant exchange and trims the history so it
// never exceeds the limit.
func AppendTurn(history []*schema.Message, userMessage, assistantMessage string) []*schema.Message {
	history = append(history,
		&schema.Message{Role: schema.User, Content: userMessage},
		&schema.Message{Role: schema.Assistant, Content: assistantMessage},
	)
	return trimHistory(history)
}

// trimHistory keeps the system seed and the last historyLimit-1 turns.
func trimHistory(history []*schema.Message) []*schema.Message {
	if len(history) <= historyLimit {
		return history
	}
	trimmed := make([]*schema.Message, 0, historyLimit)
	trimmed = append(trimmed, history[0])
	trimmed = append(trimmed, history[len(history)-(historyLimit-1):]...)
	return trimmed
}

func copyHistory(history []*schema.Message) []*schema.Message {
	if history == nil {
		return nil
	}
	out := make([]*schema.Message, len(history))
	copy(out, history)
	return out
}
