package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string for a notification ID. ULIDs sort
// lexicographically by creation time, which keeps list pages stable when
// two notifications share a created_at timestamp.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
