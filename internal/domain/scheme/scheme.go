// Package scheme holds the public-assistance scheme aggregate.
package scheme

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// Field limits.
const (
	MaxIDLength          = 256
	MaxNameLength        = 512
	MaxDescriptionLength = 32 * 1024
)

// Status is the lifecycle state of a scheme.
type Status string

const (
	// Active schemes are returned by search.
	Active Status = "active"
	// Inactive schemes stay in the store but are never returned.
	Inactive Status = "inactive"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	return s == Active || s == Inactive
}

// VectorRow is the embedding of one scheme's searchable text.
type VectorRow struct {
	SchemeID string
	Status   Status
	Vector   []float32
}

// Scheme is an assistance scheme record (immutable value object).
type Scheme struct {
	id          string
	name        string
	agency      string
	description string
	link        string
	tags        []string
	status      Status
}

// New validates and creates a Scheme. An empty status defaults to Active.
func New(id, name, agency, description, link string, tags []string, status Status) (Scheme, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return Scheme{}, fmt.Errorf("scheme ID is required")
	}
	if len(id) > MaxIDLength {
		return Scheme{}, fmt.Errorf("scheme ID too long (max %d)", MaxIDLength)
	}
	if !idRegex.MatchString(id) {
		return Scheme{}, fmt.Errorf("scheme ID %q must contain only letters, digits, '.', '_' or '-'", id)
	}
	if name == "" {
		return Scheme{}, fmt.Errorf("scheme %s: name is required", id)
	}
	if len(name) > MaxNameLength {
		return Scheme{}, fmt.Errorf("scheme %s: name too long (max %d)", id, MaxNameLength)
	}
	if len(description) > MaxDescriptionLength {
		return Scheme{}, fmt.Errorf("scheme %s: description too long (max %d bytes)", id, MaxDescriptionLength)
	}
	if status == "" {
		status = Active
	}
	if !status.IsValid() {
		return Scheme{}, fmt.Errorf("scheme %s: invalid status %q", id, status)
	}

	return Scheme{
		id:          id,
		name:        name,
		agency:      strings.TrimSpace(agency),
		description: strings.TrimSpace(description),
		link:        strings.TrimSpace(link),
		tags:        normalizeTags(tags),
		status:      status,
	}, nil
}

// Reconstruct creates a Scheme without validation (storage hydration).
func Reconstruct(id, name, agency, description, link string, tags []string, status Status) Scheme {
	return Scheme{
		id: id, name: name, agency: agency, description: description,
		link: link, tags: tags, status: status,
	}
}

// ID returns the scheme identifier.
func (s *Scheme) ID() string { return s.id }

// Name returns the display name.
func (s *Scheme) Name() string { return s.name }

// Agency returns the administering agency.
func (s *Scheme) Agency() string { return s.agency }

// Description returns the free-text description.
func (s *Scheme) Description() string { return s.description }

// Link returns the scheme's public URL.
func (s *Scheme) Link() string { return s.link }

// Tags returns the category tags.
func (s *Scheme) Tags() []string { return s.tags }

// Status returns the lifecycle status.
func (s *Scheme) Status() Status { return s.status }

// IsActive reports whether the scheme may be returned by search.
func (s *Scheme) IsActive() bool { return s.status != Inactive }

// SearchableText is the text used both for lexical scoring and for the
// embedding stored in the vector index.
func (s *Scheme) SearchableText() string {
	parts := make([]string, 0, 3+len(s.tags))
	for _, p := range []string{s.name, s.agency, s.description} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	parts = append(parts, s.tags...)
	return strings.Join(parts, " ")
}

// normalizeTags trims, drops empties and de-duplicates case-insensitively,
// keeping the first spelling.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		k := strings.ToLower(t)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return slices.Clip(out)
}
