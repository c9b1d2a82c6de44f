package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Stats is the per-run analysis keyed by file path.
//
// Go maps are unordered, so Stats keeps its entries in insertion order and
// serializes as a JSON object whose keys appear in that order. This is the
// order the integrity report commits to.
type Stats struct {
	entries []*FileAnalysis
	index   map[string]int
}

// NewStats returns Stats holding analyses in order.
func NewStats(analyses ...*FileAnalysis) *Stats {
	s := &Stats{}
	for _, a := range analyses {
		s.Add(a)
	}
	return s
}

// Add records a, replacing any earlier analysis of the same path in place.
func (s *Stats) Add(a *FileAnalysis) {
	if a == nil {
		return
	}
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[a.Path]; ok {
		s.entries[i] = a
		return
	}
	s.index[a.Path] = len(s.entries)
	s.entries = append(s.entries, a)
}

// Get returns the analysis of path.
func (s *Stats) Get(path string) (*FileAnalysis, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.index[path]
	if !ok {
		return nil, false
	}
	return s.entries[i], true
}

// Len returns the number of analyzed files.
func (s *Stats) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// All returns the analyses in insertion order. The slice is a copy; the
// analyses are shared.
func (s *Stats) All() []*FileAnalysis {
	if s == nil {
		return nil
	}
	out := make([]*FileAnalysis, len(s.entries))
	copy(out, s.entries)
	return out
}

// MarshalJSON writes {"<path>": {...}, ...} in insertion order.
func (s *Stats) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if s != nil {
		for i, a := range s.entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(a.Path)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(a)
			if err != nil {
				return nil, fmt.Errorf("failed to encode analysis of %s: %w", a.Path, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a stats object, keeping the key order of the input.
func (s *Stats) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("stats must be a JSON object")
	}

	*s = Stats{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected stats key %v", keyTok)
		}
		var a FileAnalysis
		if err := dec.Decode(&a); err != nil {
			return fmt.Errorf("failed to decode analysis of %s: %w", key, err)
		}
		if a.Path == "" {
			a.Path = key
		}
		s.Add(&a)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
