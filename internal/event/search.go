package event

import (
	"fmt"
	"strings"
)

// Field restricts a search to one event attribute.
type Field string

const (
	FieldAny         Field = ""
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldLocation    Field = "location"
	FieldCategory    Field = "category"
)

func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldAny, FieldTitle, FieldDescription, FieldLocation, FieldCategory:
		return f, nil
	case "all", "any":
		return FieldAny, nil
	}
	return "", fmt.Errorf("unknown search field %q (want title, description, location or category)", s)
}

// Matches reports whether query occurs in the selected field,
// case-insensitively. An empty query matches everything.
func (e Event) Matches(query string, field Field) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	has := func(s string) bool { return strings.Contains(strings.ToLower(s), q) }
	category := func() bool {
		for _, c := range e.Categories {
			if has(c) {
				return true
			}
		}
		return false
	}
	switch field {
	case FieldTitle:
		return has(e.Title)
	case FieldDescription:
		return has(e.Description)
	case FieldLocation:
		return has(e.Location)
	case FieldCategory:
		return category()
	}
	return has(e.Title) || has(e.Description) || has(e.Location) || category()
}
