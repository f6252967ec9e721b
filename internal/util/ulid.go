package util

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefixes for locally generated identifiers.
const (
	TempIDPrefix      = "temp_"
	OperationIDPrefix = "op_"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// NewULID generates a new ULID string.
// ULIDs are time-sortable unique identifiers.
func NewULID() string {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewTempID returns an identifier for a row the server has not stored yet.
func NewTempID() string {
	return TempIDPrefix + NewULID()
}

// IsTempID reports whether id was made by NewTempID.
func IsTempID(id string) bool {
	rest, ok := strings.CutPrefix(id, TempIDPrefix)
	return ok && ValidateULID(rest)
}

// NewOperationID returns an identifier for one optimistic operation.
func NewOperationID() string {
	return OperationIDPrefix + NewULID()
}

// ValidateULID checks if a string is a valid ULID.
func ValidateULID(s string) bool {
	_, err := ulid.Parse(s)
	return err == nil
}

// ShortID returns the last 7 characters of an ID in lowercase.
// For ULIDs, the last part has more entropy than the first (timestamp) part.
func ShortID(id string) string {
	if len(id) <= 7 {
		return strings.ToLower(id)
	}
	return strings.ToLower(id[len(id)-7:])
}
