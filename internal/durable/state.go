package durable

import (
	"encoding/json"
	"fmt"
)

// State is the keyed state of one entity workflow.
//
// It is only ever touched from that workflow's coroutines, so it needs no locking.
// Durability comes from the workflow itself: replay rebuilds it from history and
// Snapshot carries it across continue-as-new.
type State struct {
	values map[string]json.RawMessage
}

// NewState restores a state from a snapshot. A nil snapshot yields an empty state.
func NewState(snapshot map[string]json.RawMessage) *State {
	values := make(map[string]json.RawMessage, len(snapshot))
	for k, v := range snapshot {
		values[k] = append(json.RawMessage(nil), v...)
	}
	return &State{values: values}
}

// Get decodes the value under key into out. It reports false when the key is unset.
func (s *State) Get(key string, out interface{}) (bool, error) {
	raw, ok := s.values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("decode state %q: %w", key, err)
	}
	return true, nil
}

func (s *State) Set(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode state %q: %w", key, err)
	}
	s.values[key] = raw
	return nil
}

func (s *State) Clear(key string) {
	delete(s.values, key)
}

func (s *State) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Snapshot returns a copy of every value, suitable as continue-as-new input.
func (s *State) Snapshot() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(s.values))
	for k, v := range s.values {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
