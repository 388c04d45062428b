// Package banlist implements the two-tier enforcement cache tracking
// banned IPs, banned users, and revoked token signatures. The fast tier
// is an in-process map checked on every request; the durable tier is
// the source of truth that survives restarts and is shared by every
// worker process pointing at the same store directory.
package banlist

import (
	"errors"
	"net/netip"
	"strings"
	"time"
)

// Kind is an identity class with its own independent ban set.
type Kind string

const (
	KindIP    Kind = "ip"
	KindUser  Kind = "user"
	KindToken Kind = "token"
)

// Kinds lists all identity kinds in a fixed order.
var Kinds = []Kind{KindIP, KindUser, KindToken}

// Valid reports whether k is a known identity kind.
func (k Kind) Valid() bool {
	switch k {
	case KindIP, KindUser, KindToken:
		return true
	}
	return false
}

// Record is one banned identity. ExpiresAt is persisted for the
// administrative surface but not enforced here; records without it
// never expire implicitly.
type Record struct {
	Value     string     `json:"value"`
	Reason    string     `json:"reason"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("banlist: store is closed")

	// ErrInvalidKind is returned for an unknown identity kind.
	ErrInvalidKind = errors.New("banlist: invalid identity kind")
)

// Normalize canonicalizes an identity value for its kind. IPv4-mapped
// IPv6 addresses are unmapped so "::ffff:1.2.3.4" and "1.2.3.4" are
// the same identity.
func Normalize(kind Kind, identity string) string {
	identity = strings.TrimSpace(identity)
	if kind != KindIP {
		return identity
	}
	if addr, err := netip.ParseAddr(identity); err == nil {
		return addr.Unmap().String()
	}
	// Not a parseable address; still strip the mapped prefix so a
	// malformed-but-prefixed value cannot dodge an existing ban.
	return strings.TrimPrefix(strings.ToLower(identity), "::ffff:")
}
