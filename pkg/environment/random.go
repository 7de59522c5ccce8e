package environment

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// Policy selects how the random draw for a window is seeded.
type Policy string

const (
	// PolicyDeterministic derives the seed from the world seed, location and window,
	// so every process computes the same context for the same key.
	PolicyDeterministic Policy = "deterministic"
	// PolicyEntropy seeds every computation from crypto/rand.
	PolicyEntropy Policy = "entropy"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyDeterministic, PolicyEntropy:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("unknown environment policy %q (want %q or %q)", s, PolicyDeterministic, PolicyEntropy)
	}
}

// SeedFunc returns the seed for one (location, window) computation.
type SeedFunc func(locationID string, w Window) (int64, error)

// DeterministicSeed hashes the world seed, location and window id together.
func DeterministicSeed(worldSeed int64) SeedFunc {
	return func(locationID string, w Window) (int64, error) {
		h := fnv.New64a()
		_, _ = fmt.Fprintf(h, "%d:%s:%d", worldSeed, locationID, w.ID)
		return int64(h.Sum64()), nil
	}
}

// EntropySeed reads a fresh seed from crypto/rand for every computation.
func EntropySeed() SeedFunc {
	return func(string, Window) (int64, error) {
		var b [8]byte
		if _, err := crand.Read(b[:]); err != nil {
			return 0, fmt.Errorf("read random seed: %w", err)
		}
		return int64(binary.LittleEndian.Uint64(b[:])), nil
	}
}

// SeedFor returns the SeedFunc for a policy.
func SeedFor(p Policy, worldSeed int64) SeedFunc {
	if p == PolicyEntropy {
		return EntropySeed()
	}
	return DeterministicSeed(worldSeed)
}

func seededRNG(seed int64) *rand.Rand {
	// #nosec G404 -- environment draws are not security sensitive.
	return rand.New(rand.NewPCG(seedWord(seed, "a"), seedWord(seed, "b")))
}

func seedWord(seed int64, salt string) uint64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%d:%s", seed, salt)
	return h.Sum64()
}
