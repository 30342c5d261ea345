package mount

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// RawMountTable is the legacy nested, denormalized mount table:
//
//	table[mountType][applicable][rootMountPath] = StorageOptions
//
//   - mountType is "user" or "group"
//   - applicable is a user or group id, or "all" for every user
//   - rootMountPath is "/<scopeEntity>/files/<mountPoint>"
//
// A config applicable to N entities appears N times with the same id and
// options. The JSON encoding of this type is the on-disk mount.json format.
type RawMountTable map[MountType]map[string]map[string]StorageOptions

// StorageOptions is one leaf of the legacy mount table.
type StorageOptions struct {
	ID       int            `json:"id"`
	Class    string         `json:"class"`
	Options  map[string]any `json:"options"`
	Priority *int           `json:"priority,omitempty"`

	// decodeErr is set when the JSON leaf could not be parsed. Codec.Decode
	// skips such leaves and reports them as ErrMalformedRecord.
	decodeErr error
}

// storageOptionsJSON mirrors StorageOptions with loosely typed fields: older
// writers stored ids and priorities as strings and empty options as [].
type storageOptionsJSON struct {
	ID       json.RawMessage `json:"id"`
	Class    string          `json:"class"`
	Options  json.RawMessage `json:"options"`
	Priority json.RawMessage `json:"priority,omitempty"`
}

// UnmarshalJSON accepts ids and priorities given either as numbers or as
// numeric strings, and an empty array for options.
//
// A leaf that cannot be parsed does not fail the surrounding document: the
// error is kept on the leaf so the rest of the table stays readable.
func (o *StorageOptions) UnmarshalJSON(data []byte) error {
	*o = StorageOptions{}
	if err := o.decode(data); err != nil {
		o.decodeErr = err
	}
	return nil
}

func (o *StorageOptions) decode(data []byte) error {
	var raw storageOptionsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := looseInt(raw.ID)
	if err != nil {
		return fmt.Errorf("invalid storage id: %w", err)
	}
	if id != nil {
		o.ID = *id
	}
	o.Class = raw.Class

	o.Options, err = looseOptions(raw.Options)
	if err != nil {
		return fmt.Errorf("invalid storage options: %w", err)
	}

	o.Priority, err = looseInt(raw.Priority)
	if err != nil {
		return fmt.Errorf("invalid storage priority: %w", err)
	}

	return nil
}

// looseOptions decodes backend options. Null yields nil and an empty array
// (an empty PHP array) yields an empty map.
func looseOptions(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if isEmptyArray(raw) {
		return map[string]any{}, nil
	}

	var options map[string]any
	if err := json.Unmarshal(raw, &options); err != nil {
		return nil, err
	}
	return options, nil
}

// isEmptyArray reports whether raw is "[]", allowing inner whitespace.
func isEmptyArray(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) < 2 || raw[0] != '[' || raw[len(raw)-1] != ']' {
		return false
	}
	return len(bytes.TrimSpace(raw[1:len(raw)-1])) == 0
}

// looseInt parses a JSON number or numeric string. Empty or null yields nil.
func looseInt(raw json.RawMessage) (*int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, err
		}
	} else {
		text = string(raw)
	}

	// Numbers may arrive as floats ("15.0") from some encoders.
	if value, err := strconv.Atoi(text); err == nil {
		return &value, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, err
	}
	value := int(f)
	return &value, nil
}

// add inserts a leaf, creating the intermediate levels as needed.
func (t RawMountTable) add(mountType MountType, applicable, rootPath string, options StorageOptions) {
	applicables, ok := t[mountType]
	if !ok {
		applicables = make(map[string]map[string]StorageOptions)
		t[mountType] = applicables
	}

	paths, ok := applicables[applicable]
	if !ok {
		paths = make(map[string]StorageOptions)
		applicables[applicable] = paths
	}

	paths[rootPath] = options
}

// Leaves returns the number of leaves in the table.
func (t RawMountTable) Leaves() int {
	count := 0
	for _, applicables := range t {
		for _, paths := range applicables {
			count += len(paths)
		}
	}
	return count
}

// Clone deep copies the table.
func (t RawMountTable) Clone() RawMountTable {
	if t == nil {
		return nil
	}

	clone := make(RawMountTable, len(t))
	for mountType, applicables := range t {
		for applicable, paths := range applicables {
			for rootPath, options := range paths {
				copied := options
				copied.Options = cloneOptions(options.Options)
				if options.Priority != nil {
					priority := *options.Priority
					copied.Priority = &priority
				}
				clone.add(mountType, applicable, rootPath, copied)
			}
		}
	}
	return clone
}

// MarshalTable encodes a table as indented legacy JSON. A nil table encodes
// as an empty object.
func MarshalTable(table RawMountTable) ([]byte, error) {
	if table == nil {
		table = RawMountTable{}
	}
	data, err := json.MarshalIndent(table, "", "\t")
	if err != nil {
		return nil, fmt.Errorf("failed to encode mount table: %w", err)
	}
	return data, nil
}

// UnmarshalTable decodes legacy JSON. Empty input, "null" and "[]" (what
// older writers produced for an empty table or level) yield an empty table.
//
// Leaves are decoded one by one: a leaf that cannot be parsed is kept with
// its error for Codec.Decode to skip, and only a broken table structure
// fails the whole document.
func UnmarshalTable(data []byte) (RawMountTable, error) {
	table := RawMountTable{}

	types, err := decodeLevel(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mount table: %w", err)
	}

	for mountType, rawApplicables := range types {
		applicables, err := decodeLevel(rawApplicables)
		if err != nil {
			return nil, fmt.Errorf("failed to decode mount table: %s: %w", mountType, err)
		}
		for applicable, rawPaths := range applicables {
			paths, err := decodeLevel(rawPaths)
			if err != nil {
				return nil, fmt.Errorf("failed to decode mount table: %s/%s: %w", mountType, applicable, err)
			}
			for rootPath, rawLeaf := range paths {
				var leaf StorageOptions
				_ = leaf.UnmarshalJSON(rawLeaf)
				table.add(MountType(mountType), applicable, rootPath, leaf)
			}
		}
	}
	return table, nil
}

// decodeLevel decodes one object level of the table into its raw members.
func decodeLevel(data []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || isEmptyArray(trimmed) {
		return nil, nil
	}

	var level map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &level); err != nil {
		return nil, err
	}
	return level, nil
}
