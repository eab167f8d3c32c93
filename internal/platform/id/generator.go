package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
)

// Generator hands out fixture and prediction IDs.
type Generator interface {
	NewID() (string, error)
}

// Prefixed yields "<prefix>_<32 hex chars>" from 128 random bits.
type Prefixed string

func NewPrefixedGenerator(prefix string) Prefixed {
	return Prefixed(prefix)
}

func (p Prefixed) NewID() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	if p == "" {
		return hex.EncodeToString(raw[:]), nil
	}
	return string(p) + "_" + hex.EncodeToString(raw[:]), nil
}

// Sequence yields "<prefix>_1", "<prefix>_2", ... for readable test data.
// Not safe for concurrent use.
type Sequence struct {
	prefix string
	n      int
}

func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) NewID() (string, error) {
	s.n++
	return s.prefix + "_" + strconv.Itoa(s.n), nil
}
