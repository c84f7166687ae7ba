// Package clientstate holds the small key/value state that belongs to a
// single browser: cart contents, language preference and the order
// cooldown. Nothing here is shared between browsers.
package clientstate

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/sessions"
)

// Fixed storage keys.
const (
	CartKey     = "flower-cart"
	LangKey     = "flower-lang"
	CooldownKey = "flower-order-cooldown"
)

// SessionName is the cookie that carries the client state.
const SessionName = "flower-state"

// Storage is the durable client-side key/value capability.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// Memory is an in-process Storage.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Memory) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

// Session is a Storage backed by a gorilla session cookie. Changes are
// written to the response by Save.
type Session struct {
	session *sessions.Session
	dirty   bool
}

// Open loads the client state for r. A missing or undecodable cookie gives
// an empty state rather than an error.
func Open(store sessions.Store, r *http.Request) *Session {
	session, err := store.Get(r, SessionName)
	if err != nil {
		slog.Warn("Discarding unreadable client state cookie", "error", err)
	}
	return &Session{session: session}
}

func (s *Session) Get(key string) (string, bool) {
	v, ok := s.session.Values[key].(string)
	return v, ok
}

func (s *Session) Set(key, value string) {
	s.session.Values[key] = value
	s.dirty = true
}

func (s *Session) Delete(key string) {
	if _, ok := s.session.Values[key]; ok {
		delete(s.session.Values, key)
		s.dirty = true
	}
}

// Save writes the cookie if anything changed. It must be called before the
// response body is written.
func (s *Session) Save(r *http.Request, w http.ResponseWriter) error {
	if !s.dirty {
		return nil
	}
	if err := s.session.Save(r, w); err != nil {
		return err
	}
	s.dirty = false
	return nil
}
