package persist

import (
	"encoding/json"
	"sync"
)

// Keys are independent: deleting one never disturbs the others.
const (
	KeyRoomID         = "room_id"
	KeyReconnectToken = "reconnect_token"
	KeyDisplayName    = "display_name"
	KeyPreviousTasks  = "previous_task_ids" // JSON array of task ids
	KeyLastSetup      = "last_setup"        // JSON object, last game's setup form
	KeySettings       = "settings"          // opaque JSON, user preferences
)

// Store is the durable key/value port for session-resumption data.
// Implemented by BoltStore; MemStore serves tests.
type Store interface {
	Get(key string) (string, bool, error)
	Put(key, value string) error
	Delete(key string) error
	Close() error
}

// PutJSON / GetJSON cover the JSON-valued keys (previous_task_ids, last_setup).

func PutJSON(s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put(key, string(b))
}

func GetJSON(s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, err
	}
	return true, nil
}

// MemStore is an in-memory Store for tests and ephemeral runs.
type MemStore struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{m: make(map[string]string)}
}

func (s *MemStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *MemStore) Put(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *MemStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *MemStore) Close() error { return nil }
