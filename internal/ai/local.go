package ai

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/ceivoice/ticket-service/internal/domain"
)

const maxTitleWords = 10

var keywordCategories = []struct {
	category string
	assignee string
	keywords []string
}{
	{"network", "IT", []string{"wifi", "network", "vpn", "internet", "router", "connection"}},
	{"hardware", "IT", []string{"printer", "laptop", "monitor", "keyboard", "mouse", "screen"}},
	{"account", "Technical Support", []string{"password", "login", "account", "locked", "sign in", "2fa"}},
	{"billing", "Billing", []string{"invoice", "refund", "charge", "payment", "billing"}},
	{"software", "Technical Support", []string{"install", "crash", "update", "bug", "error", "app"}},
	{"hr", "HR", []string{"leave", "payroll", "salary", "vacation", "benefits"}},
}

// LocalDrafter is a deterministic collaborator used when no model endpoint
// is configured. It never fails.
type LocalDrafter struct{}

// NewLocalDrafter returns the keyword-based collaborator.
func NewLocalDrafter() *LocalDrafter {
	return &LocalDrafter{}
}

// Draft derives a title from the first words of text and categories from keywords.
func (LocalDrafter) Draft(_ context.Context, text string) (*Suggestion, error) {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)

	categories := []string{}
	assignee := ""
	for _, entry := range keywordCategories {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				categories = append(categories, entry.category)
				if assignee == "" {
					assignee = entry.assignee
				}
				break
			}
		}
		if len(categories) == domain.MaxCategories {
			break
		}
	}
	if len(categories) == 0 {
		categories = append(categories, "general")
	}

	return &Suggestion{
		Title:              domain.Truncate(titleFrom(text), domain.MaxTitleLength),
		Summary:            domain.Truncate(text, domain.MaxTextLength),
		SuggestedSolutions: "Pending review",
		Categories:         categories,
		SuggestedAssignee:  assignee,
	}, nil
}

// Recommend groups drafts whose titles share the same significant words.
func (LocalDrafter) Recommend(_ context.Context, drafts []DraftDigest) ([][]string, error) {
	if len(drafts) < 2 {
		return [][]string{}, nil
	}
	buckets := map[string][]string{}
	keys := []string{}
	for _, d := range drafts {
		key := fingerprint(d.Title)
		if key == "" {
			continue
		}
		if _, ok := buckets[key]; !ok {
			keys = append(keys, key)
		}
		buckets[key] = append(buckets[key], d.ID)
	}

	groups := [][]string{}
	for _, key := range keys {
		if len(buckets[key]) >= 2 {
			groups = append(groups, buckets[key])
		}
	}
	return groups, nil
}

func titleFrom(text string) string {
	firstLine := text
	if idx := strings.IndexAny(text, "\n.!?"); idx > 0 {
		firstLine = text[:idx]
	}
	words := strings.Fields(firstLine)
	if len(words) > maxTitleWords {
		words = words[:maxTitleWords]
	}
	if len(words) == 0 {
		return "Support request"
	}
	return strings.Join(words, " ")
}

func fingerprint(title string) string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	significant := words[:0]
	for _, w := range words {
		if len(w) > 3 {
			significant = append(significant, w)
		}
	}
	sort.Strings(significant)
	return strings.Join(significant, " ")
}
