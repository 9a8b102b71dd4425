package logging

import (
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// highlightKeys are printed first, in this order, on console output.
var highlightKeys = []string{
	FieldEventType,
	"status",
	"mode",
	"output_path",
	"device",
	"quality",
	"duration",
	"exit_code",
	"error",
	FieldErrorHint,
	FieldImpact,
}

var titleCaser = cases.Title(language.English)

func orderFields(fields []kv) []kv {
	if len(fields) < 2 {
		return fields
	}
	ordered := make([]kv, 0, len(fields))
	used := make([]bool, len(fields))
	for _, key := range highlightKeys {
		for idx, field := range fields {
			if !used[idx] && field.key == key {
				used[idx] = true
				ordered = append(ordered, field)
				break
			}
		}
	}
	for idx, field := range fields {
		if !used[idx] {
			ordered = append(ordered, field)
		}
	}
	return ordered
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldSessionID, FieldAction, FieldCommandID:
		return true
	default:
		return false
	}
}

func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	if v.Kind() == slog.KindBool {
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	value := formatValue(v)
	if key == "error" || key == "stderr" {
		const maxLen = 300
		if len(value) > maxLen {
			value = value[:maxLen] + "…"
		}
	}
	return value
}

func displayLabel(key string) string {
	switch key {
	case FieldEventType:
		return "Event"
	case FieldErrorHint:
		return "Hint"
	case "output_path":
		return "Output"
	case "exit_code":
		return "Exit Code"
	default:
		return titleizeKey(key)
	}
}

func titleizeKey(key string) string {
	if key == "" {
		return ""
	}
	return titleCaser.String(strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(key))
}
