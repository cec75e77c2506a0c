package domain

import (
	"time"
	"unicode/utf8"
)

// Field limits shared by drafts and tickets.
const (
	MaxEmailLength    = 64
	MaxTitleLength    = 128
	MaxTextLength     = 2048
	MaxCategoryLength = 32
	MaxCategories     = 5
	MaxAssigneeLength = 64
)

// DraftTicket is an administrative proposal awaiting review. A live draft
// always has at least one linked UserRequest.
type DraftTicket struct {
	ID                 string
	Title              string
	Summary            string
	SuggestedSolutions string
	SuggestedAssignee  *string
	Deadline           *time.Time
	CreatedAt          time.Time

	Categories []string
	Assignees  []string
	Requests   []UserRequest
}

// RequestIDs returns the ids of the linked requests.
func (d *DraftTicket) RequestIDs() []string {
	ids := make([]string, 0, len(d.Requests))
	for _, req := range d.Requests {
		ids = append(ids, req.ID)
	}
	return ids
}

// Truncate shortens s to at most limit runes.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
