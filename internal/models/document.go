package models

import "time"

// Document is a knowledge-base entry used to ground generations with
// retrieved reference text.
type Document struct {
	ID             string    `json:"id" badgerhold:"key"`
	OrganizationID string    `json:"organization_id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Tags           []string  `json:"tags,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
