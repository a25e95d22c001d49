package domain

import "time"

// SiteEvent announces a committed change to a project's sections.
type SiteEvent struct {
	ProjectID  string    `json:"projectId"`
	Operation  string    `json:"operation"`
	SectionID  string    `json:"sectionId,omitempty"`
	Version    uint64    `json:"version"`
	Sections   int       `json:"sections"`
	OccurredAt time.Time `json:"occurredAt"`
}
