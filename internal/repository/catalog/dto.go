package catalog

import (
	"strings"

	domcat "github.com/kailas-cloud/catalogq/internal/domain/catalog"
)

// Hash field names of a stored item.
const (
	fieldID          = "id"
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldLevel       = "level"
	fieldLanguage    = "language"
	fieldTags        = "tags"
)

// tagSeparator joins tags in the hash and splits them in the TAG index.
const tagSeparator = ","

var returnFields = []string{fieldID, fieldTitle, fieldDescription, fieldLevel, fieldLanguage, fieldTags}

func itemToHash(it domcat.Item) map[string]string {
	return map[string]string{
		fieldID:          it.ID(),
		fieldTitle:       it.Title(),
		fieldDescription: it.Description(),
		fieldLevel:       it.Level(),
		fieldLanguage:    it.Language(),
		fieldTags:        strings.Join(it.Tags(), tagSeparator),
	}
}

func itemFromHash(id string, m map[string]string) domcat.Item {
	if v := m[fieldID]; v != "" {
		id = v
	}
	var tags []string
	if raw := m[fieldTags]; raw != "" {
		tags = strings.Split(raw, tagSeparator)
	}
	return domcat.Reconstruct(id, m[fieldTitle], m[fieldDescription], m[fieldLevel], m[fieldLanguage], tags)
}
