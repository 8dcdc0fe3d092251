// Package template implements the {@ColumnName} placeholder syntax used in
// step prompts. Substitution is a single literal pass: values inserted into
// the prompt are never re-scanned for placeholders.
package template

import (
	"fmt"
	"regexp"
	"strconv"
)

// placeholderPattern matches {@ColumnName} where ColumnName is one or more
// word characters. Column names are case-sensitive.
var placeholderPattern = regexp.MustCompile(`\{@(\w+)\}`)

// Extract returns every column name referenced by a template, in
// first-occurrence order. Duplicate references yield duplicate entries.
func Extract(tmpl string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(tmpl, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// Unique returns the distinct column names referenced by a template, in
// first-occurrence order. Intended for display only; substitution counting
// uses Extract.
func Unique(tmpl string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, name := range Extract(tmpl) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Substitute replaces every {@ColumnName} occurrence with the textual form of
// row[ColumnName]. Names absent from the row substitute the empty string.
// One pass over the original template: inserted values are never re-scanned.
func Substitute(tmpl string, row map[string]interface{}) string {
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := match[2 : len(match)-1]
		return Stringify(row[name])
	})
}

// Stringify renders a scalar cell value as text. Numbers render as their
// decimal text without trailing zero noise, nil as the empty string.
func Stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", v)
	}
}
