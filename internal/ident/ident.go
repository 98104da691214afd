// Package ident generates the prefixed identifiers used as primary keys.
package ident

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Prefix tags one resource kind.
type Prefix string

const (
	User        Prefix = "USR"
	Career      Prefix = "CAR"
	Service     Prefix = "SRV"
	Contact     Prefix = "CNT"
	Project     Prefix = "PRJ"
	Application Prefix = "APP"
)

// suffixLen is the number of hex digits taken from a random v4 uuid. The
// first 15 digits of a v4 uuid are all random (the version nibble is the
// 13th), so the 16 digits used here carry 60 bits of entropy.
const suffixLen = 16

// MaxAttempts bounds CreateWithRetry.
const MaxAttempts = 3

// ErrExhausted is returned when every attempt collided.
var ErrExhausted = errors.New("ident: could not allocate a unique id")

// New returns a fresh identifier such as "CAR3F9A0C27D1E45B6A".
func New(p Prefix) string {
	id := uuid.New()
	return string(p) + strings.ToUpper(hex.EncodeToString(id[:])[:suffixLen])
}

// CreateWithRetry calls create with freshly generated ids until it succeeds,
// fails with an error other than conflict, or MaxAttempts ids were tried.
func CreateWithRetry(ctx context.Context, p Prefix, conflict error, create func(ctx context.Context, id string) error) (string, error) {
	return CreateWithRetryFrom(ctx, New(p), p, conflict, create)
}

// CreateWithRetryFrom is CreateWithRetry with a caller-chosen first id, used
// when the id must be known before the record is written.
func CreateWithRetryFrom(ctx context.Context, first string, p Prefix, conflict error, create func(ctx context.Context, id string) error) (string, error) {
	id := first
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if attempt > 0 {
			id = New(p)
		}
		err := create(ctx, id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, conflict) {
			return "", err
		}
	}
	return "", ErrExhausted
}
