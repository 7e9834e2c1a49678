// Package prefixed_uuid provides UUID identifiers carrying a readable type prefix,
// rendered as "prefix-uuid" (for example "session-3f0c...").
package prefixed_uuid //nolint:revive // var-naming: using underscores for domain clarity

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PrefixedUUID represents a UUID with a prefix string.
type PrefixedUUID struct {
	Prefix string
	UUID   uuid.UUID
}

// New creates a new PrefixedUUID with the given prefix and a random v4 UUID.
func New(prefix string) PrefixedUUID {
	return PrefixedUUID{Prefix: prefix, UUID: uuid.New()}
}

// FromString parses a prefixed UUID string in the format "prefix-uuid".
// The prefix itself may not contain a dash.
func FromString(s string) (PrefixedUUID, error) {
	prefix, raw, found := strings.Cut(s, "-")
	if !found || prefix == "" {
		return PrefixedUUID{}, fmt.Errorf("invalid prefixed UUID format: %q", s)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return PrefixedUUID{}, fmt.Errorf("invalid UUID: %w", err)
	}

	return PrefixedUUID{Prefix: prefix, UUID: id}, nil
}

// Parse parses s and checks that it carries the expected prefix.
func Parse(prefix, s string) (PrefixedUUID, error) {
	p, err := FromString(s)
	if err != nil {
		return PrefixedUUID{}, err
	}
	if p.Prefix != prefix {
		return PrefixedUUID{}, fmt.Errorf("unexpected prefix %q, want %q", p.Prefix, prefix)
	}
	return p, nil
}

// String returns the prefixed UUID in the format "prefix-uuid".
func (p PrefixedUUID) String() string {
	return p.Prefix + "-" + p.UUID.String()
}

// IsZero returns true if the PrefixedUUID is uninitialized.
func (p PrefixedUUID) IsZero() bool {
	return p.Prefix == "" && p.UUID == uuid.Nil
}

// MarshalJSON serialises the PrefixedUUID as a JSON string.
func (p PrefixedUUID) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON deserialises a PrefixedUUID from a JSON string.
func (p *PrefixedUUID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid JSON string format: %w", err)
	}

	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
