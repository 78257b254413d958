/**
 * @description
 * Reference id allocation. Every ledger entry is tied to its type-specific
 * detail row by a shared numeric reference id; this allocator draws uniformly
 * random candidates and probes the transactions table for collisions.
 *
 * The existence probe is advisory: two allocators can observe "free" for the
 * same candidate before either inserts. The UNIQUE constraint on
 * transactions.reference_id is the authority, and the recorder treats a
 * constraint violation on a generated reference as "retry with a fresh
 * candidate". The retry budget bounds both loops so allocation never blocks
 * indefinitely, even under pathological collision contention.
 */

package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/kudipoint/ledger-service/internal/store"
)

const (
	// DefaultReferenceLength yields a 10^12 keyspace, matching the gateway
	// reference format used for airtime conversions.
	DefaultReferenceLength = 12

	// DefaultReferenceAttempts bounds the collision retry loop. At the default
	// length, exhausting this budget is astronomically unlikely before the
	// keyspace itself is nearly full.
	DefaultReferenceAttempts = 20
)

// ReferenceAllocator produces collision-free numeric reference identifiers.
type ReferenceAllocator struct {
	repo        store.Repository
	length      int
	maxAttempts int
}

// NewReferenceAllocator creates an allocator with the given id length and
// retry budget; zero values fall back to the defaults.
func NewReferenceAllocator(repo store.Repository, length, maxAttempts int) *ReferenceAllocator {
	if length <= 0 {
		length = DefaultReferenceLength
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultReferenceAttempts
	}
	return &ReferenceAllocator{repo: repo, length: length, maxAttempts: maxAttempts}
}

// Allocate returns a reference id not currently present in the transactions
// table. It fails with ErrExhaustedKeyspace once the retry budget is spent.
func (a *ReferenceAllocator) Allocate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		candidate, err := randomNumericString(a.length)
		if err != nil {
			return "", fmt.Errorf("failed to draw reference candidate: %w", err)
		}
		exists, err := a.repo.ReferenceExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("reference existence check failed: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", ErrExhaustedKeyspace
}

// randomNumericString draws a uniformly random numeric string of the requested
// length, zero-padded so every candidate has identical shape.
func randomNumericString(length int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
