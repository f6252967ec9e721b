// Package filter narrows a record set by user-chosen criteria and derives the
// selectable options of each criterion from the data.
package filter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/imgajeed76/invgrid/internal/record"
)

// Type is the kind of input a filter presents.
type Type int

const (
	Dropdown Type = iota
	TextInput
	DateInput
	Radio
)

func (t Type) String() string {
	switch t {
	case Dropdown:
		return "dropdown"
	case TextInput:
		return "text"
	case DateInput:
		return "date"
	case Radio:
		return "radio"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// RangeType says which side of a date range a date filter bounds.
type RangeType int

const (
	From RangeType = iota
	To
)

// Option is an explicit choice of a dropdown or radio filter.
type Option struct {
	Value string
	Label string
}

// Definition describes one filter.
type Definition struct {
	ID    string
	Label string
	Type  Type

	// MultiSelect turns a dropdown into a set of checkboxes.
	MultiSelect bool

	// DataKey is the dot path of the field the filter reads; ID is used
	// when empty.
	DataKey string

	// Extract derives option values from a record instead of DataKey.
	Extract func(r record.Record) []string

	// Predicate replaces the built-in matching when set. It receives the
	// filter's own value and all current values.
	Predicate func(r record.Record, v Value, all Values) bool

	// Options are fixed choices; when present they are not derived from data.
	Options []Option

	// Default is the initial radio choice. The first option is used when empty.
	Default string

	Range       RangeType
	Placeholder string
}

// Key returns the field path the filter reads.
func (d Definition) Key() string {
	if d.DataKey != "" {
		return d.DataKey
	}
	return d.ID
}

// DefaultValue returns the initial value of the definition, in the shape
// its type requires.
func (d Definition) DefaultValue() Value {
	switch {
	case d.Type == Radio:
		if d.Default != "" {
			return Choice(d.Default)
		}
		if len(d.Options) > 0 {
			return Choice(d.Options[0].Value)
		}
		return Choice("")
	case d.Type == Dropdown && d.MultiSelect:
		return Multi{}
	case d.Type == DateInput:
		return Date("")
	}
	return Text("")
}

// Accepts reports whether v has the shape this definition requires.
func (d Definition) Accepts(v Value) bool {
	switch v.(type) {
	case Multi:
		return d.Type == Dropdown && d.MultiSelect
	case Text:
		return d.Type == TextInput || (d.Type == Dropdown && !d.MultiSelect)
	case Choice:
		return d.Type == Radio
	case Date:
		return d.Type == DateInput
	}
	return false
}

// OptionsFor returns the choices of a filter. Explicit options are returned
// as is; otherwise values are collected from data through Extract or the data
// key, deduplicated and sorted. Blank values contribute nothing.
func OptionsFor(def Definition, data []record.Record) []string {
	if len(def.Options) > 0 {
		out := make([]string, len(def.Options))
		for i, o := range def.Options {
			out[i] = o.Value
		}
		return out
	}

	seen := make(map[string]struct{})
	add := func(s string) {
		if s != "" {
			seen[s] = struct{}{}
		}
	}
	for _, r := range data {
		if r == nil {
			continue
		}
		if def.Extract != nil {
			for _, s := range def.Extract(r) {
				add(s)
			}
			continue
		}
		if v, ok := r.Lookup(def.Key()); ok {
			add(record.Stringify(v))
		}
	}

	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// SearchOptions narrows an option list to those containing term, ignoring case.
func SearchOptions(options []string, term string) []string {
	if strings.TrimSpace(term) == "" {
		return options
	}
	var out []string
	for _, o := range options {
		if record.ContainsFold(o, term) {
			out = append(out, o)
		}
	}
	return out
}

// Matches reports whether r passes def under the given values. An empty
// value matches everything; a predicate, when set, decides alone.
func Matches(r record.Record, def Definition, values Values) bool {
	v := values[def.ID]
	if v == nil || v.IsEmpty() {
		return true
	}
	if def.Predicate != nil {
		return def.Predicate(r, v, values)
	}

	raw, _ := r.Lookup(def.Key())
	switch fv := v.(type) {
	case Multi:
		return fv.Contains(record.Stringify(raw))
	case Text:
		return record.ContainsFold(record.Stringify(raw), string(fv))
	case Choice:
		return record.Stringify(raw) == string(fv)
	case Date:
		return matchDate(raw, fv, def.Range)
	}
	return true
}

// ApplyAll returns the records that match every definition, in input order.
func ApplyAll(data []record.Record, defs []Definition, values Values) []record.Record {
	out := make([]record.Record, 0, len(data))
	for _, r := range data {
		if r == nil {
			continue
		}
		ok := true
		for _, def := range defs {
			if !Matches(r, def, values) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, r)
		}
	}
	return out
}

// ═══════════════════════════════════════════════════════════════════════════
// Dates
// ═══════════════════════════════════════════════════════════════════════════

// ParseDDMMYY parses an 8 character "DD/MM/YY" value. Two digit years of 50
// and above are 19xx, below 50 are 20xx.
func ParseDDMMYY(s string) (time.Time, bool) {
	if len(s) != 8 {
		return time.Time{}, false
	}
	parts := strings.Split(s, "/")
	if len(parts) != 3 || len(parts[2]) != 2 {
		return time.Time{}, false
	}
	yy, err := strconv.Atoi(parts[2])
	if err != nil || yy < 0 {
		return time.Time{}, false
	}
	year := 2000 + yy
	if yy >= 50 {
		year = 1900 + yy
	}
	t, err := time.Parse("2006-01-02", fmt.Sprintf("%04d-%s-%s", year, parts[1], parts[0]))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

var recordDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123,
	"02/01/2006",
}

// ParseRecordDate parses the date formats the backend emits, truncated to
// the calendar day.
func ParseRecordDate(v any) (time.Time, bool) {
	s := strings.TrimSpace(record.Stringify(v))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range recordDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// matchDate fails open: a malformed bound or unparsable record date matches.
func matchDate(raw any, bound Date, rng RangeType) bool {
	limit, ok := ParseDDMMYY(string(bound))
	if !ok {
		return true
	}
	date, ok := ParseRecordDate(raw)
	if !ok {
		return true
	}
	if rng == From {
		return !date.Before(limit)
	}
	return !date.After(limit)
}
