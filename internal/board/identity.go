package board

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IdentityKind tags which variant a card Identity carries.
type IdentityKind int

const (
	Generated IdentityKind = iota
	LocalTask
	Issue
	Special
)

func (k IdentityKind) String() string {
	switch k {
	case Generated:
		return "generated"
	case LocalTask:
		return "local"
	case Issue:
		return "issue"
	case Special:
		return "special"
	}
	return "unknown"
}

// Special card names.
const (
	StatusCard = "status-card"
	AboutCard  = "about-card"
)

const localPrefix = "local-"

// Identity is the stable key a card is saved under. The zero value means
// "not derived yet".
type Identity struct {
	Kind  IdentityKind
	value string
}

// IssueIdentity keys a card by its remote issue number.
func IssueIdentity(number int) Identity {
	return Identity{Kind: Issue, value: strconv.Itoa(number)}
}

// LocalTaskIdentity keys a card by its client-generated task id.
func LocalTaskIdentity(id string) Identity {
	return Identity{Kind: LocalTask, value: localPrefix + id}
}

// SpecialIdentity keys a semantic card such as StatusCard.
func SpecialIdentity(name string) Identity {
	return Identity{Kind: Special, value: name}
}

// NewGeneratedIdentity builds a fallback key from a timestamp and a random
// suffix.
func NewGeneratedIdentity(now time.Time) Identity {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return Identity{Kind: Generated, value: fmt.Sprintf("card-%d-%s", now.UnixMilli(), suffix)}
}

// ParseKey recovers an Identity from its persisted key.
func ParseKey(key string) Identity {
	switch {
	case key == StatusCard || key == AboutCard:
		return SpecialIdentity(key)
	case strings.HasPrefix(key, localPrefix):
		return Identity{Kind: LocalTask, value: key}
	}
	if n, err := strconv.Atoi(key); err == nil && n > 0 {
		return IssueIdentity(n)
	}
	return Identity{Kind: Generated, value: key}
}

// Key is the persisted form.
func (id Identity) Key() string { return id.value }

// IsZero reports whether the identity has not been derived.
func (id Identity) IsZero() bool { return id.value == "" }

func (id Identity) String() string { return id.value }

// DeriveIdentity picks the strongest identity a card qualifies for:
// special, then issue number, then local task id, then a generated key.
func DeriveIdentity(c *Card) Identity {
	switch {
	case c.Special != "":
		return SpecialIdentity(c.Special)
	case c.IssueNumber > 0:
		return IssueIdentity(c.IssueNumber)
	case c.LocalTaskID != "":
		return LocalTaskIdentity(c.LocalTaskID)
	}
	return NewGeneratedIdentity(time.Now())
}
