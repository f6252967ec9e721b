package filter

import (
	"fmt"
	"strings"
)

// Value is the current value of one filter. The concrete type is fixed by the
// filter's definition:
//
//	Text    text filters and single-select dropdowns
//	Multi   multi-select dropdowns
//	Choice  radio groups
//	Date    date filters, "DD/MM/YY" or empty
type Value interface {
	// IsEmpty reports whether the value matches every record.
	IsEmpty() bool
	isValue()
}

// Text is a free-text or single-select value, matched as a case-insensitive
// substring.
type Text string

// Multi is the set of selected options of a multi-select dropdown.
type Multi []string

// Choice is the selected option of a radio group, matched exactly.
type Choice string

// Date is a "DD/MM/YY" boundary for a date range filter.
type Date string

func (v Text) IsEmpty() bool   { return strings.TrimSpace(string(v)) == "" }
func (v Multi) IsEmpty() bool  { return len(v) == 0 }
func (v Choice) IsEmpty() bool { return strings.TrimSpace(string(v)) == "" }
func (v Date) IsEmpty() bool   { return strings.TrimSpace(string(v)) == "" }

func (Text) isValue()   {}
func (Multi) isValue()  {}
func (Choice) isValue() {}
func (Date) isValue()   {}

// Contains reports whether option is selected.
func (v Multi) Contains(option string) bool {
	for _, o := range v {
		if o == option {
			return true
		}
	}
	return false
}

// Toggle returns a copy with option added or removed.
func (v Multi) Toggle(option string) Multi {
	out := make(Multi, 0, len(v)+1)
	found := false
	for _, o := range v {
		if o == option {
			found = true
			continue
		}
		out = append(out, o)
	}
	if !found {
		out = append(out, option)
	}
	return out
}

// Values maps filter id to its current value.
type Values map[string]Value

// Clone returns a copy of the map. Multi slices are copied too.
func (vs Values) Clone() Values {
	out := make(Values, len(vs))
	for k, v := range vs {
		if m, ok := v.(Multi); ok {
			v = append(Multi(nil), m...)
		}
		out[k] = v
	}
	return out
}

// String renders a value for display.
func String(v Value) string {
	switch x := v.(type) {
	case Text:
		return string(x)
	case Choice:
		return string(x)
	case Date:
		return string(x)
	case Multi:
		return strings.Join(x, ", ")
	}
	return ""
}

// Parse converts the textual form of a value into the shape def requires.
// Multi-select values are comma separated and repeats are kept once; an empty
// string clears the filter.
func Parse(def Definition, raw string) (Value, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case def.Type == Dropdown && def.MultiSelect:
		m := Multi{}
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" && !m.Contains(part) {
				m = append(m, part)
			}
		}
		return m, nil
	case def.Type == Radio:
		if raw == "" {
			return def.DefaultValue(), nil
		}
		for _, o := range def.Options {
			if strings.EqualFold(o.Value, raw) {
				return Choice(o.Value), nil
			}
		}
		return nil, fmt.Errorf("filter %s: unknown choice %q", def.ID, raw)
	case def.Type == DateInput:
		if raw != "" {
			if _, ok := ParseDDMMYY(raw); !ok {
				return nil, fmt.Errorf("filter %s: %q is not a DD/MM/YY date", def.ID, raw)
			}
		}
		return Date(raw), nil
	}
	return Text(raw), nil
}
