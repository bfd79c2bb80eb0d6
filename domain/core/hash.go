package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Short returns the first 12 hex characters, enough for log lines
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// SpaceHash fingerprints a profile space (attributes, levels and ontology)
type SpaceHash Hash

func (h SpaceHash) String() string { return Hash(h).String() }
func (h SpaceHash) Short() string  { return Hash(h).Short() }

// ComputeSpaceHash hashes an ordered list of canonical parts. Order matters:
// attribute and parameter declaration order defines the encoding.
func ComputeSpaceHash(parts []string) SpaceHash {
	var data strings.Builder
	for i, part := range parts {
		data.WriteString(fmt.Sprintf("%d:%s;", i, part))
	}
	return SpaceHash(NewHash([]byte(data.String())))
}
