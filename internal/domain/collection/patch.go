package collection

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/vecspace/internal/domain"
)

// Patch is a partial metadata update. Nil fields are left unchanged.
// Dimension and Metric are accepted only to reject changes to them.
type Patch struct {
	Description *string
	Tags        *[]string
	Owner       *string
	Privacy     *Privacy
	Metadata    *domain.Blob

	Dimension *int
	Metric    *Metric
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Description == nil && p.Tags == nil && p.Owner == nil &&
		p.Privacy == nil && p.Metadata == nil && p.Dimension == nil && p.Metric == nil
}

// Apply returns a copy of c with the patch applied and lastUpdated bumped.
func (c Collection) Apply(p Patch) (Collection, error) {
	if p.Dimension != nil && *p.Dimension != c.dimension {
		return Collection{}, fmt.Errorf("%w: dimension of collection %q is fixed at %d",
			domain.ErrImmutableField, c.name, c.dimension)
	}
	if p.Metric != nil && *p.Metric != c.metric {
		return Collection{}, fmt.Errorf("%w: metric of collection %q is fixed at %s",
			domain.ErrImmutableField, c.name, c.metric)
	}

	if p.Description != nil {
		c.description = *p.Description
	}
	if p.Tags != nil {
		tags, err := normalizeTags(*p.Tags)
		if err != nil {
			return Collection{}, err
		}
		c.tags = tags
	}
	if p.Owner != nil {
		c.owner = *p.Owner
	}
	if p.Privacy != nil {
		if !p.Privacy.IsValid() {
			return Collection{}, fmt.Errorf("%w: unknown privacy %q", domain.ErrInvalidSpec, *p.Privacy)
		}
		c.privacy = *p.Privacy
	}
	if p.Metadata != nil {
		c.metadata = *p.Metadata
	}
	c.lastUpdated = max(time.Now().UnixMilli(), c.lastUpdated)
	return c, nil
}
