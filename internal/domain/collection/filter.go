package collection

import (
	"fmt"

	"github.com/kailas-cloud/vecspace/internal/domain"
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Owner   string
	Tag     string
	Privacy Privacy
	Offset  int
	Limit   int // 0 = no limit
}

// Matches reports whether c passes the owner, tag and privacy predicates.
func (f Filter) Matches(c Collection) bool {
	if f.Owner != "" && c.owner != f.Owner {
		return false
	}
	if f.Privacy != "" && c.privacy != f.Privacy {
		return false
	}
	if f.Tag != "" && !c.HasTag(f.Tag) {
		return false
	}
	return true
}

// DeletePolicy decides what happens to a collection that still has vectors.
type DeletePolicy string

const (
	// DeleteRejectIfNonEmpty fails with domain.ErrNotEmpty when vectors remain.
	DeleteRejectIfNonEmpty DeletePolicy = "reject"
	// DeleteCascade removes every mapping together with the collection.
	DeleteCascade DeletePolicy = "cascade"
)

// ParseDeletePolicy accepts "reject" or "cascade"; empty yields def.
func ParseDeletePolicy(s string, def DeletePolicy) (DeletePolicy, error) {
	switch DeletePolicy(s) {
	case "":
		return def, nil
	case DeleteRejectIfNonEmpty, DeleteCascade:
		return DeletePolicy(s), nil
	default:
		return "", fmt.Errorf("%w: unknown delete policy %q", domain.ErrInvalidSpec, s)
	}
}
