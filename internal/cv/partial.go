package cv

import (
	"strings"
	"time"
)

// Partial is the structured data recovered from an imported document.
// It seeds a new CV and carries no identity of its own.
type Partial struct {
	Title          string          `json:"title,omitempty"`
	Personal       Personal        `json:"personal"`
	Experience     []Experience    `json:"experience"`
	Education      []Education     `json:"education"`
	Skills         []Skill         `json:"skills"`
	Languages      []Language      `json:"languages"`
	Certifications []Certification `json:"certifications"`
	Projects       []Project       `json:"projects"`
}

// Empty reports whether the partial carries no data at all.
func (p Partial) Empty() bool {
	return p.Personal == (Personal{}) &&
		len(p.Experience) == 0 &&
		len(p.Education) == 0 &&
		len(p.Skills) == 0 &&
		len(p.Languages) == 0 &&
		len(p.Certifications) == 0 &&
		len(p.Projects) == 0
}

// FromPartial lays a partial over the skeleton. Absent sections become
// empty slices, never nil, so the result serialises with every key.
func FromPartial(p *Partial, id string, now time.Time) CV {
	out := Skeleton()
	out.ID = id
	out.Title = DefaultTitle
	out.Touch(now)

	if p == nil {
		return out
	}

	if title := strings.TrimSpace(p.Title); title != "" {
		out.Title = title
	}

	out.Personal = p.Personal.clone()
	out.Experience = orEmpty(p.Experience)
	out.Education = orEmpty(p.Education)
	out.Skills = orEmpty(p.Skills)
	out.Languages = orEmpty(p.Languages)
	out.Certifications = orEmpty(p.Certifications)
	out.Projects = orEmpty(p.Projects)

	// Share nothing with the partial.
	return out.Clone()
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
