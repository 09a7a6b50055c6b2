// Package idgen provides a narrow, fakeable UUID v4 source so identity
// minting (confirmation ids, credential key ids) can be pinned in tests.
package idgen

import "github.com/google/uuid"

// Generator yields UUID v4 strings.
type Generator interface {
	NewV4() string
}

// System is the production Generator backed by a CSPRNG.
type System struct{}

// NewV4 returns a fresh UUID v4 string.
func (System) NewV4() string { return uuid.NewString() }

// Sequence is a test Generator that replays a fixed list of ids, then
// repeats the final one if exhausted.
type Sequence struct {
	IDs []string
	n   int
}

// NewV4 returns the next id in the sequence.
func (s *Sequence) NewV4() string {
	if len(s.IDs) == 0 {
		return "00000000-0000-4000-8000-000000000000"
	}
	if s.n >= len(s.IDs) {
		return s.IDs[len(s.IDs)-1]
	}
	id := s.IDs[s.n]
	s.n++
	return id
}

// IsValidV4 reports whether raw parses as a UUID (in any textual form the
// uuid package accepts) whose version field is 4; other versions are
// rejected. The variant field is not checked.
func IsValidV4(raw string) bool {
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return false
	}
	return parsed.Version() == 4
}
