// Package ai holds the collaborators that turn raw request text into draft
// suggestions and that group similar drafts for consolidation.
package ai

import (
	"context"
	"errors"
)

// ErrMalformedResponse reports a collaborator reply that could not be
// normalized into a Suggestion.
var ErrMalformedResponse = errors.New("malformed AI response")

// Suggestion is the normalized proposal for a new draft.
type Suggestion struct {
	Title              string
	Summary            string
	SuggestedSolutions string
	Categories         []string
	SuggestedAssignee  string
}

// DraftDigest is the slice of a draft shown to the recommender.
type DraftDigest struct {
	ID      string
	Title   string
	Summary string
}

// Drafter proposes a draft for one request text. Any returned error is a
// hard failure for the caller.
type Drafter interface {
	Draft(ctx context.Context, text string) (*Suggestion, error)
}

// Recommender groups draft ids that look like the same underlying issue.
type Recommender interface {
	Recommend(ctx context.Context, drafts []DraftDigest) ([][]string, error)
}

// Collaborator implements both roles.
type Collaborator interface {
	Drafter
	Recommender
}
