package domain

import (
	"time"
)

// EmploymentType enumerates the contract kinds a job can be published with.
type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full_time"
	EmploymentPartTime   EmploymentType = "part_time"
	EmploymentContract   EmploymentType = "contract"
	EmploymentInternship EmploymentType = "internship"
)

// RemoteOption describes how much remote work a job allows.
type RemoteOption string

const (
	RemoteNone    RemoteOption = "none"
	RemotePartial RemoteOption = "partial"
	RemoteFull    RemoteOption = "full"
)

// Job is a published job offer as rendered in the weekly letter.
type Job struct {
	ID             string         `json:"id" db:"id"`
	Title          string         `json:"title" db:"title"`
	Organization   string         `json:"organization" db:"organization"`
	Location       string         `json:"location" db:"location"`
	EmploymentType EmploymentType `json:"employment_type" db:"employment_type"`
	RemoteOption   RemoteOption   `json:"remote_option" db:"remote_option"`
	Tags           []string       `json:"tags" db:"tags"`
	URL            string         `json:"url" db:"url"`
	Pinned         bool           `json:"pinned" db:"pinned"`
	PublishedAt    time.Time      `json:"published_at" db:"published_at"`
}

// IsRemote reports whether the job allows any remote work.
func (j Job) IsRemote() bool {
	return j.RemoteOption == RemotePartial || j.RemoteOption == RemoteFull
}

// Bindings flattens the job into the map shape the template engine reads.
func (j Job) Bindings() map[string]interface{} {
	tags := make([]interface{}, len(j.Tags))
	for i, t := range j.Tags {
		tags[i] = t
	}
	return map[string]interface{}{
		"id":              j.ID,
		"title":           j.Title,
		"organization":    j.Organization,
		"location":        j.Location,
		"employment_type": string(j.EmploymentType),
		"remote_option":   string(j.RemoteOption),
		"remote":          j.IsRemote(),
		"tags":            tags,
		"url":             j.URL,
		"pinned":          j.Pinned,
		"published_at":    j.PublishedAt,
	}
}
