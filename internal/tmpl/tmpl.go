// Package tmpl expands the placeholders of a reminder message template.
package tmpl

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Vars holds the values substituted into a template.
type Vars struct {
	Title       string
	Body        string
	Description string
	Location    string
	Start       string // e.g. "09:30"
	Date        string // e.g. "Mon 2006-01-02"
	Method      string
	Lead        string // compact lead time, e.g. "15m"
	LeadSay     string // spoken lead time, e.g. "15 minutes"
}

var placeholder = regexp.MustCompile(`\{[A-Za-z]+\}`)

// Expand replaces template placeholders in s with runtime values.
// {title} is the event title as-is, {Title} title-cased; {lead} is
// compact and {Lead} spoken. Unknown placeholders are left untouched.
func Expand(s string, v Vars) string {
	values := v.table()
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		if val, ok := values[m]; ok {
			return val
		}
		return m
	})
}

// Validate reports the first placeholder Expand would not replace.
func Validate(s string) error {
	values := Vars{}.table()
	for _, m := range placeholder.FindAllString(s, -1) {
		if _, ok := values[m]; !ok {
			return fmt.Errorf("unknown placeholder %s", m)
		}
	}
	return nil
}

func (v Vars) table() map[string]string {
	return map[string]string{
		"{title}":       v.Title,
		"{Title}":       TitleCase(v.Title),
		"{body}":        v.Body,
		"{description}": v.Description,
		"{location}":    v.Location,
		"{start}":       v.Start,
		"{date}":        v.Date,
		"{method}":      strings.ToLower(v.Method),
		"{lead}":        v.Lead,
		"{Lead}":        v.LeadSay,
	}
}

// TitleCase uppercases the first rune of s.
func TitleCase(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

// SayMinutes renders a lead time in minutes for reading aloud:
// "1 hour and 30 minutes", "2 days", "now".
func SayMinutes(m int) string {
	if m <= 0 {
		return "now"
	}
	var parts []string
	for _, u := range []struct {
		size int
		name string
	}{{1440, "day"}, {60, "hour"}, {1, "minute"}} {
		if n := m / u.size; n > 0 {
			parts = append(parts, plural(n, u.name))
			m %= u.size
		}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}

// ShortMinutes renders a lead time compactly: "15m", "2h", "1d".
func ShortMinutes(m int) string {
	switch {
	case m == 0:
		return "0m"
	case m%(24*60) == 0:
		return fmt.Sprintf("%dd", m/(24*60))
	case m%60 == 0:
		return fmt.Sprintf("%dh", m/60)
	}
	return fmt.Sprintf("%dm", m)
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
