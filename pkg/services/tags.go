package services

import "strings"

// BaseTag is applied to every synced customer regardless of template.
const BaseTag = "Signed Waiver"

// tagDelimiter is how Shopify stores a customer's tag list in one string.
const tagDelimiter = ", "

// TagClassifier maps waiver template identifiers to category tags using an
// injected lookup table, so new templates need a config change, not code.
type TagClassifier struct {
	categories map[string]string
}

// NewTagClassifier creates a classifier over the given template→category table.
func NewTagClassifier(categories map[string]string) *TagClassifier {
	return &TagClassifier{categories: categories}
}

// Classify returns the tag list for a template identifier: the base tag,
// followed by the template's category tag if the template is known.
func (c *TagClassifier) Classify(templateID string) []string {
	tags := []string{BaseTag}
	if category, ok := c.categories[templateID]; ok {
		tags = append(tags, category)
	}
	return tags
}

// MergeTags unions new tags into an existing delimiter-joined tag string,
// preserving the existing order and appending unseen tags. The union makes
// replayed waivers idempotent: applying the same tags twice is a no-op.
func MergeTags(existing string, tags []string) string {
	seen := make(map[string]bool)
	var merged []string

	for _, t := range strings.Split(existing, tagDelimiter) {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		merged = append(merged, t)
	}
	for _, t := range tags {
		if seen[t] {
			continue
		}
		seen[t] = true
		merged = append(merged, t)
	}

	return strings.Join(merged, tagDelimiter)
}

// JoinTags serializes a tag list for a customer create.
func JoinTags(tags []string) string {
	return strings.Join(tags, tagDelimiter)
}
