package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random UUID string used as the primary key for
// events and reservations.
func NewID() string {
	return uuid.NewString()
}

// NewAdminKey returns a random admin key: a UUID with the dashes
// stripped (32 hex characters).  The raw key is shown to the event
// creator once; only its bcrypt hash is stored.
func NewAdminKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewJoinCode returns a short human-readable join code: the first
// group of a UUID, upper-cased (8 hex characters).  Like the admin
// key it is returned once and stored only as a hash.
func NewJoinCode() string {
	return strings.ToUpper(strings.SplitN(uuid.NewString(), "-", 2)[0])
}

// UserIDFromEmail derives a stable identity for an authenticated user
// from their normalized email address.  The ID is a name-based UUID,
// so the same email always maps to the same user ID and repeated
// logins keep the reservation idempotency key stable.
func UserIDFromEmail(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+normalized)).String()
}
