package service

import (
	"encoding/json"
	"reflect"
	"sort"
)

// DiffFields compares two flat field maps by value and returns only the keys
// whose values differ. A nil old map means "record created": every new field
// is reported as changed and the old side stays empty. An empty result on
// both sides means nothing changed and no audit entry should be written.
func DiffFields(oldFields, newFields map[string]any) (oldChanged, newChanged map[string]any) {
	oldChanged = map[string]any{}
	newChanged = map[string]any{}

	for k, nv := range newFields {
		if oldFields == nil {
			newChanged[k] = nv
			continue
		}
		ov, ok := oldFields[k]
		if !ok {
			newChanged[k] = nv
			continue
		}
		if !reflect.DeepEqual(ov, nv) {
			oldChanged[k] = ov
			newChanged[k] = nv
		}
	}
	// keys removed outright
	for k, ov := range oldFields {
		if _, ok := newFields[k]; !ok {
			oldChanged[k] = ov
		}
	}
	return oldChanged, newChanged
}

// DiffEmpty reports whether a computed diff carries no change.
func DiffEmpty(oldChanged, newChanged map[string]any) bool {
	return len(oldChanged) == 0 && len(newChanged) == 0
}

// ListChanged compares two list-satellite snapshots as whole sets, ignoring
// element order. Row ids are already excluded from the field maps, so an
// unchanged list round-tripped through delete-and-reinsert compares equal
// even though every row got a new id.
func ListChanged(oldList, newList []map[string]any) bool {
	if len(oldList) != len(newList) {
		return true
	}
	return !reflect.DeepEqual(canonicalList(oldList), canonicalList(newList))
}

func canonicalList(list []map[string]any) []string {
	out := make([]string, 0, len(list))
	for _, m := range list {
		raw, _ := json.Marshal(m) // map keys marshal sorted
		out = append(out, string(raw))
	}
	sort.Strings(out)
	return out
}

// MarshalFields renders a field map for an audit_log JSONB column.
func MarshalFields(fields map[string]any) json.RawMessage {
	raw, err := json.Marshal(fields)
	if err != nil {
		return json.RawMessage("{}")
	}
	return raw
}

// MarshalListSnapshot renders a list-satellite snapshot for audit_log.
func MarshalListSnapshot(list []map[string]any) json.RawMessage {
	raw, err := json.Marshal(map[string]any{"items": list})
	if err != nil {
		return json.RawMessage("{}")
	}
	return raw
}
