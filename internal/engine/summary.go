package engine

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// SummarizeChanges renders a human-readable diff of what applying the
// suggestion would change on the document: one "path: old → new" line
// per differing field (nested fields use dotted paths), followed by one
// "+ description ($price × quantity)" line per suggested item. Both
// inputs are read-only. Lines within each object are emitted in sorted
// key order so the summary is deterministic.
func SummarizeChanges(s *Suggestion, doc *Invoice) string {
	if s == nil {
		return ""
	}

	var lines []string
	walkChanges(toJSONMap(s), toJSONMap(doc), "", &lines)

	for _, item := range s.Items {
		lines = append(lines, fmt.Sprintf("+ %s ($%s × %s)",
			item.Description,
			formatJSONNumber(float64(item.Price)),
			formatJSONNumber(float64(item.Quantity))))
	}

	return strings.Join(lines, "\n")
}

// walkChanges compares the suggestion's own keys against the document,
// recursing into nested objects present on both sides. The items list is
// skipped here and summarized separately; null values are skipped
// entirely.
func walkChanges(newObj, oldObj map[string]any, prefix string, lines *[]string) {
	keys := make([]string, 0, len(newObj))
	for k := range newObj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		newVal := newObj[key]
		if key == "items" || newVal == nil {
			continue
		}
		oldVal := oldObj[key]

		newNested, newIsObj := newVal.(map[string]any)
		oldNested, oldIsObj := oldVal.(map[string]any)
		if newIsObj && oldIsObj {
			walkChanges(newNested, oldNested, prefix+key+".", lines)
			continue
		}
		if !reflect.DeepEqual(newVal, oldVal) {
			*lines = append(*lines, fmt.Sprintf("%s%s: %s → %s",
				prefix, key, stringifyValue(oldVal), stringifyValue(newVal)))
		}
	}
}

func stringifyValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "_"
	case string:
		return val
	case float64:
		return formatJSONNumber(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

func formatJSONNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// toJSONMap flattens a value to its wire representation, which is the
// shape the diff walks: unset suggestion fields disappear, numbers
// become float64 on both sides.
func toJSONMap(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]any{}
	}
	return m
}
