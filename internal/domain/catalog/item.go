package catalog

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/catalogq/internal/domain"
)

// MaxTags is the maximum number of tags per item.
const MaxTags = 32

// Item is a catalog entry that search filters over.
type Item struct {
	id          string
	title       string
	description string
	level       string
	language    string
	tags        []string
}

// NewItem validates and creates an Item. Tags, level and language are
// lower-cased so they compare equal to translated predicate values.
func NewItem(id, title, description, level, language string, tags []string) (Item, error) {
	if id == "" {
		return Item{}, fmt.Errorf("item id is required")
	}
	if strings.ContainsAny(id, " \t\n:") {
		return Item{}, fmt.Errorf("item id %q contains invalid characters", id)
	}
	if strings.TrimSpace(title) == "" {
		return Item{}, fmt.Errorf("title is required for item %q", id)
	}
	if len(tags) > MaxTags {
		return Item{}, fmt.Errorf("too many tags (max %d)", MaxTags)
	}

	norm := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = domain.Lower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if strings.Contains(t, ",") {
			return Item{}, fmt.Errorf("tag %q must not contain a comma", t)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		norm = append(norm, t)
	}

	return Item{
		id:          id,
		title:       strings.TrimSpace(title),
		description: description,
		level:       domain.Lower(strings.TrimSpace(level)),
		language:    domain.Lower(strings.TrimSpace(language)),
		tags:        norm,
	}, nil
}

// Reconstruct rebuilds an Item from storage without validation.
func Reconstruct(id, title, description, level, language string, tags []string) Item {
	return Item{
		id: id, title: title, description: description,
		level: level, language: language, tags: tags,
	}
}

// ID returns the item identifier.
func (i Item) ID() string { return i.id }

// Title returns the item title.
func (i Item) Title() string { return i.title }

// Description returns the item description.
func (i Item) Description() string { return i.description }

// Level returns the difficulty level.
func (i Item) Level() string { return i.level }

// Language returns the item language.
func (i Item) Language() string { return i.language }

// Tags returns the normalized tags.
func (i Item) Tags() []string { return i.tags }

// Page is the payload of one search: the matching items and the total count.
// An empty page is a valid, cacheable result.
type Page struct {
	Items []Item
	Total int
}

// Searchable attribute names an Item exposes to predicates.
const (
	AttrTag         = "tag"
	AttrLevel       = "level"
	AttrLanguage    = "language"
	AttrTitle       = "title"
	AttrDescription = "description"
)

// Attributes lists the searchable attribute names in a fixed order.
var Attributes = []string{AttrTag, AttrLevel, AttrLanguage, AttrTitle, AttrDescription}

// IsAttribute reports whether name is a searchable attribute.
func IsAttribute(name string) bool {
	for _, a := range Attributes {
		if a == name {
			return true
		}
	}
	return false
}

// Values returns the lower-cased values the item holds for attribute, or
// its searchable text (title and description) for freeTextField.
func (i Item) Values(attribute, freeTextField string) []string {
	switch attribute {
	case AttrTag:
		return i.tags
	case AttrLevel:
		return nonEmpty(i.level)
	case AttrLanguage:
		return nonEmpty(i.language)
	case AttrTitle:
		return nonEmpty(domain.Lower(i.title))
	case AttrDescription:
		return nonEmpty(domain.Lower(i.description))
	case freeTextField:
		return nonEmpty(domain.Lower(i.title), domain.Lower(i.description))
	}
	return nil
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
