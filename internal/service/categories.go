package service

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/ceivoice/ticket-service/internal/domain"
)

var categoryFolder = cases.Fold()

// CleanCategories trims and truncates each category and drops empties and
// case-insensitive duplicates in input order. The first spelling of a
// category wins.
func CleanCategories(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, category := range raw {
		normalized := strings.TrimSpace(domain.Truncate(strings.TrimSpace(category), domain.MaxCategoryLength))
		if normalized == "" {
			continue
		}
		key := categoryFolder.String(normalized)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

// NormalizeCategories cleans AI-suggested categories and keeps at most
// MaxCategories of them.
func NormalizeCategories(raw []string) []string {
	out := CleanCategories(raw)
	if len(out) > domain.MaxCategories {
		out = out[:domain.MaxCategories]
	}
	return out
}
