package settings

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// snapshot is an immutable view of the settings table.
type snapshot struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

// Store holds the latest settings snapshot. Readers never block a refresh.
type Store struct {
	current atomic.Pointer[snapshot]
}

// NewStore returns an empty Store.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&snapshot{values: map[string]json.RawMessage{}})
	return s
}

// Replace swaps in a new snapshot. Keys are trimmed and values copied.
func (s *Store) Replace(updatedAt time.Time, values map[string]json.RawMessage) {
	next := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		next[key] = bytes.Clone(v)
	}
	s.current.Store(&snapshot{updatedAt: updatedAt.UTC(), values: next})
}

// UpdatedAt returns the newest row timestamp of the loaded snapshot.
func (s *Store) UpdatedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.current.Load().updatedAt
}

// Value returns a copy of the raw value for key.
func (s *Store) Value(key string) (json.RawMessage, bool) {
	if s == nil {
		return nil, false
	}
	val, ok := s.current.Load().values[strings.TrimSpace(key)]
	if !ok {
		return nil, false
	}
	return bytes.Clone(val), true
}

// Int returns the integer value of key. Numbers, numeric strings and
// {"value": ...} wrappers are accepted.
func (s *Store) Int(key string) (int, bool) {
	raw, ok := s.Value(key)
	if !ok {
		return 0, false
	}
	return parseInt(raw)
}

func parseInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if errUnmarshal := json.Unmarshal(raw, &f); errUnmarshal == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	}
	var str string
	if errUnmarshal := json.Unmarshal(raw, &str); errUnmarshal == nil {
		parsed, errParse := strconv.Atoi(strings.TrimSpace(str))
		return parsed, errParse == nil
	}
	var wrapper struct {
		Value json.RawMessage `json:"value"`
	}
	if errUnmarshal := json.Unmarshal(raw, &wrapper); errUnmarshal == nil && len(wrapper.Value) > 0 {
		return parseInt(wrapper.Value)
	}
	return 0, false
}
