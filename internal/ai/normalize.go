package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ceivoice/ticket-service/internal/domain"
)

// ParseSuggestion decodes a JSON object produced by a language model and
// normalizes it: key aliases are folded, strings trimmed and truncated,
// non-string categories dropped.
func ParseSuggestion(raw string) (*Suggestion, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	alias(obj, "suggestedSolutions", "suggested_solutions", "suggested solutions")
	alias(obj, "suggestedAssignee", "assignee", "suggested_assignee")

	summary, err := stringField(obj, "summary", true)
	if err != nil {
		return nil, err
	}
	title, err := stringField(obj, "title", true)
	if err != nil {
		return nil, err
	}
	solutions, err := stringField(obj, "suggestedSolutions", true)
	if err != nil {
		return nil, err
	}
	assignee, err := stringField(obj, "suggestedAssignee", false)
	if err != nil {
		return nil, err
	}

	rawCategories, ok := obj["categories"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: .categories attribute not array type", ErrMalformedResponse)
	}
	categories := make([]string, 0, len(rawCategories))
	for _, item := range rawCategories {
		category, ok := item.(string)
		if !ok {
			continue
		}
		categories = append(categories, domain.Truncate(strings.TrimSpace(category), domain.MaxCategoryLength))
		if len(categories) == domain.MaxCategories {
			break
		}
	}

	return &Suggestion{
		Title:              domain.Truncate(title, domain.MaxTitleLength),
		Summary:            domain.Truncate(summary, domain.MaxTextLength),
		SuggestedSolutions: domain.Truncate(solutions, domain.MaxTextLength),
		Categories:         categories,
		SuggestedAssignee:  domain.Truncate(assignee, domain.MaxCategoryLength),
	}, nil
}

// ParseGroups decodes a list of id groups. Both a bare array and an object
// wrapping one array are accepted; ids may be strings or numbers.
func ParseGroups(raw string) ([][]string, error) {
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if obj, ok := decoded.(map[string]any); ok {
		decoded = nil
		for _, value := range obj {
			if arr, ok := value.([]any); ok {
				decoded = arr
				break
			}
		}
	}

	outer, ok := decoded.([]any)
	if !ok {
		return [][]string{}, nil
	}

	groups := make([][]string, 0, len(outer))
	for _, item := range outer {
		inner, ok := item.([]any)
		if !ok {
			continue
		}
		group := make([]string, 0, len(inner))
		for _, id := range inner {
			switch v := id.(type) {
			case string:
				group = append(group, strings.TrimSpace(v))
			case float64:
				group = append(group, fmt.Sprintf("%.0f", v))
			}
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func alias(obj map[string]any, canonical string, alternatives ...string) {
	if _, ok := obj[canonical]; ok {
		return
	}
	for _, alt := range alternatives {
		if value, ok := obj[alt]; ok {
			obj[canonical] = value
			return
		}
	}
}

func stringField(obj map[string]any, key string, required bool) (string, error) {
	value, present := obj[key]
	if !present || value == nil {
		if required {
			return "", fmt.Errorf("%w: .%s attribute missing", ErrMalformedResponse, key)
		}
		return "", nil
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: .%s attribute not string type", ErrMalformedResponse, key)
	}
	return strings.TrimSpace(s), nil
}
