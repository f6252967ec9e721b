package config

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ConfigField represents metadata about a config field extracted from struct tags
type ConfigField struct {
	Key      string // e.g., "api.base_url"
	Default  string // default value as string
	Desc     string // description for help text
	Min      int    // minimum value for numeric fields
	Max      int    // maximum value for numeric fields
	HasMin   bool
	HasMax   bool
	Type     string // "string", "int", "float" or "bool"
	Category string // e.g., "api", "table", "log"
}

// fieldCache caches parsed config fields to avoid repeated reflection
var fieldCache []ConfigField

// getConfigFields extracts all config fields from Config using reflection
func getConfigFields() []ConfigField {
	if fieldCache != nil {
		return fieldCache
	}

	var fields []ConfigField
	cfg := &Config{}
	extractFields(reflect.TypeOf(cfg).Elem(), &fields)

	// Sort by key for consistent ordering
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Key < fields[j].Key
	})

	fieldCache = fields
	return fields
}

// extractFields recursively extracts config fields from a struct
func extractFields(t reflect.Type, fields *[]ConfigField) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		// Get the config key from tag
		configKey := field.Tag.Get("config")
		if configKey == "" {
			// Nested section struct
			if field.Type.Kind() == reflect.Struct && field.Tag.Get("toml") != "" {
				extractFields(field.Type, fields)
			}
			continue
		}

		cf := ConfigField{
			Key:      configKey,
			Default:  field.Tag.Get("default"),
			Desc:     field.Tag.Get("desc"),
			Category: strings.Split(configKey, ".")[0],
		}

		// Parse min/max for validation
		if minStr, ok := field.Tag.Lookup("min"); ok {
			cf.Min, _ = strconv.Atoi(minStr)
			cf.HasMin = true
		}
		if maxStr, ok := field.Tag.Lookup("max"); ok {
			cf.Max, _ = strconv.Atoi(maxStr)
			cf.HasMax = true
		}

		// Determine type
		switch field.Type.Kind() {
		case reflect.Int:
			cf.Type = "int"
		case reflect.Float64:
			cf.Type = "float"
		case reflect.Bool:
			cf.Type = "bool"
		case reflect.String:
			cf.Type = "string"
		}

		*fields = append(*fields, cf)
	}
}

// FindField finds a config field by key
func FindField(key string) (ConfigField, bool) {
	key = normalizeKey(key)
	for _, f := range getConfigFields() {
		if f.Key == key {
			return f, true
		}
	}
	return ConfigField{}, false
}

// normalizeKey handles key aliases
func normalizeKey(key string) string {
	aliases := map[string]string{
		"api.url":             "api.base_url",
		"api.timeout":         "api.timeout_seconds",
		"table.page_size":     "table.items_per_page",
		"table.per_page":      "table.items_per_page",
		"filter.debounce":     "filter.debounce_ms",
		"actions.stale":       "actions.discard_stale",
		"actions.notify":      "actions.notifications",
		"log.path":            "log.file",
		"table.row_id":        "table.row_identifier",
		"table.server_paging": "table.server_side",
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if normalized, ok := aliases[key]; ok {
		return normalized
	}
	return key
}

// fieldByKey finds the struct field behind a "section.name" key.
func fieldByKey(cfg *Config, key string) (reflect.Value, bool) {
	key = normalizeKey(key)

	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return reflect.Value{}, false
	}

	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	// Find the nested struct by toml tag
	var nestedValue reflect.Value
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("toml") == parts[0] {
			nestedValue = v.Field(i)
			break
		}
	}
	if !nestedValue.IsValid() || nestedValue.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}

	// Find the actual field within the nested struct by config tag
	nestedType := nestedValue.Type()
	for i := 0; i < nestedType.NumField(); i++ {
		if nestedType.Field(i).Tag.Get("config") == key {
			return nestedValue.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// getFieldValue gets a field value from the config using reflection
func getFieldValue(cfg *Config, key string) (string, bool) {
	fieldValue, ok := fieldByKey(cfg, key)
	if !ok {
		return "", false
	}
	switch fieldValue.Kind() {
	case reflect.String:
		return fieldValue.String(), true
	case reflect.Int:
		return strconv.FormatInt(fieldValue.Int(), 10), true
	case reflect.Float64:
		return strconv.FormatFloat(fieldValue.Float(), 'f', -1, 64), true
	case reflect.Bool:
		return strconv.FormatBool(fieldValue.Bool()), true
	}
	return "", false
}

// setFieldValue sets a field value on the config using reflection
func setFieldValue(cfg *Config, key, value string) error {
	field, ok := FindField(key)
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}

	fieldValue, ok := fieldByKey(cfg, field.Key)
	if !ok {
		return fmt.Errorf("field not found: %s", key)
	}

	switch fieldValue.Kind() {
	case reflect.String:
		fieldValue.SetString(value)
		return nil

	case reflect.Int:
		intVal, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid integer value: %s", value)
		}
		if err := validateInt(field, intVal); err != nil {
			return err
		}
		fieldValue.SetInt(int64(intVal))
		return nil

	case reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("invalid number: %s", value)
		}
		if field.HasMin && f < float64(field.Min) {
			return fmt.Errorf("value %s is below minimum %d", value, field.Min)
		}
		fieldValue.SetFloat(f)
		return nil

	case reflect.Bool:
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		fieldValue.SetBool(b)
		return nil
	}

	return fmt.Errorf("unsupported type for %s", key)
}

func validateInt(field ConfigField, v int) error {
	if field.HasMin && v < field.Min {
		return fmt.Errorf("value %d is below minimum %d", v, field.Min)
	}
	if field.HasMax && v > field.Max {
		return fmt.Errorf("value %d exceeds maximum %d", v, field.Max)
	}
	return nil
}

// parseBool accepts the usual spellings plus yes/no and on/off.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, fmt.Errorf("invalid boolean value: %s", s)
	}
	return b, nil
}

// ListKeys returns all available config keys
func ListKeys() []string {
	fields := getConfigFields()
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Key
	}
	return keys
}

// GetFieldsByCategory returns config fields grouped by category
func GetFieldsByCategory() map[string][]ConfigField {
	result := make(map[string][]ConfigField)
	for _, f := range getConfigFields() {
		result[f.Category] = append(result[f.Category], f)
	}
	return result
}

// GenerateHelpText generates help text for config options
func GenerateHelpText() string {
	var sb strings.Builder

	byCategory := GetFieldsByCategory()

	// Define category order and titles
	categories := []struct {
		key   string
		title string
	}{
		{"api", "Invoice server"},
		{"table", "Table"},
		{"filter", "Filters"},
		{"actions", "Actions"},
		{"log", "Logging"},
	}

	for _, cat := range categories {
		fields, ok := byCategory[cat.key]
		if !ok || len(fields) == 0 {
			continue
		}

		sb.WriteString(fmt.Sprintf("  %s:\n", cat.title))
		for _, f := range fields {
			defaultStr := ""
			if f.Default != "" {
				defaultStr = fmt.Sprintf(" (default: %s)", f.Default)
			}
			// Pad key to align descriptions
			sb.WriteString(fmt.Sprintf("    %-28s %s%s\n", f.Key, f.Desc, defaultStr))
		}
		sb.WriteString("\n")
	}

	return strings.TrimSuffix(sb.String(), "\n")
}
