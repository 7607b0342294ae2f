// Package model defines the core types flowing through the ingestion pipeline.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Notice is a raw portal item as fetched from the source feed. Immutable once
// fetched; identity is the source-assigned ID.
type Notice struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"` // HTML as published
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fingerprint returns a content hash used to detect exact-duplicate notices
// that arrive under different source IDs.
func (n Notice) Fingerprint() string {
	h := sha256.Sum256([]byte(n.Title + "\n" + n.Content))
	return hex.EncodeToString(h[:])
}

// FormattedNotice is a notice that completed the extraction pipeline,
// ready for persistence and delivery.
type FormattedNotice struct {
	Notice
	Category     Category `json:"category"`
	MatchedJobID string   `json:"matched_job_id,omitempty"`
	JobCompany   string   `json:"job_company,omitempty"`
	JobRole      string   `json:"job_role,omitempty"`
	JobLocation  string   `json:"job_location,omitempty"`
	Package      string   `json:"package,omitempty"`
	Message      string   `json:"message"`
}

// MailMessage is a single inbox item from the mailbox feed.
type MailMessage struct {
	ID      string    `json:"id"`
	Subject string    `json:"subject"`
	Sender  string    `json:"sender"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}
