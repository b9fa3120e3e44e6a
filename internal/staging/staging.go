// Package staging provides the short-lived staging area that holds documents
// between the first attach and the final submit of an intake session.
package staging

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"time"
)

// DocumentType tags a staged document with its category.
type DocumentType string

const (
	TypeCPI       DocumentType = "CPI"
	TypeHACCP     DocumentType = "HACCP"
	TypeAlcohol   DocumentType = "Lic.Alcohol"
	TypeFoodTruck DocumentType = "Mod.FoodTruck"
	TypeSecurity  DocumentType = "Lic.Security"
	TypeOther     DocumentType = "Other"
)

// Types lists the recognised document categories in presentation order.
var Types = []DocumentType{TypeCPI, TypeHACCP, TypeAlcohol, TypeFoodTruck, TypeSecurity, TypeOther}

// KnownType reports whether t is one of the recognised categories.
func KnownType(t DocumentType) bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// ErrSessionNotFound is returned for operations against a key that was never
// opened or was already destroyed.
var ErrSessionNotFound = errors.New("staging session not found")

// Item is one staged document. Items are immutable once appended; a session
// only ever appends or bulk-discards, never edits or reorders.
type Item struct {
	ID         string       `json:"id"`
	Type       DocumentType `json:"type"`
	Content    []byte       `json:"content"`
	Context    string       `json:"context"`
	Seq        int          `json:"seq"`
	AttachedAt time.Time    `json:"attached_at"`
}

// Key derives the staging key for one (activity, user) pair. Keying on the
// activity alone would let two staff members uploading to the same activity
// clobber each other's staged items, so the user ID is always part of the key.
// The hash keeps the key safe to use as a directory name or Redis key.
func Key(activity, userID string) string {
	sum := sha1.Sum([]byte(userID + "\x00" + activity))
	return hex.EncodeToString(sum[:])
}

// Store is a staging backend. Implementations must keep operations on
// different keys independent of each other: per-key isolation is the only
// safety boundary between concurrent sessions.
type Store interface {
	// Open creates an empty session for key. Opening a key that already has
	// a session is a no-op, so a double-invoked command never clobbers
	// staged items.
	Open(ctx context.Context, key string) error

	// Append adds item to the session. Returns ErrSessionNotFound if the
	// key was never opened or was already destroyed.
	Append(ctx context.Context, key string, item Item) error

	// List returns the staged items in attach order. An opened session with
	// no items yields an empty slice, not an error.
	List(ctx context.Context, key string) ([]Item, error)

	// Destroy removes the session and reclaims every backing resource.
	// Destroying a missing or already-destroyed session is a no-op.
	Destroy(ctx context.Context, key string) error
}
