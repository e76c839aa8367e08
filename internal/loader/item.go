package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Item is one write: value for uid in field's shard.
//
// Value is loose input (a JSON scalar, json.Number, a list or its JSON
// text, or a value.Value); it is converted to the field's kind when applied.
type Item struct {
	Field string
	UID   int64
	Value any
}

// MarshalJSON encodes the item as [field, uid, value].
func (it Item) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{it.Field, it.UID, it.Value})
}

// UnmarshalJSON decodes [field, uid, value]. The uid may be a JSON integer
// or a string holding one; numbers in value are kept as json.Number.
func (it *Item) UnmarshalJSON(b []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return fmt.Errorf("item: %w", err)
	}
	if len(parts) != 3 {
		return fmt.Errorf("item: want [field, uid, value], got %d elements", len(parts))
	}

	if err := json.Unmarshal(parts[0], &it.Field); err != nil {
		return fmt.Errorf("item: field: %w", err)
	}

	uid, err := parseUID(parts[1])
	if err != nil {
		return fmt.Errorf("item: uid: %w", err)
	}
	it.UID = uid

	dec := json.NewDecoder(bytes.NewReader(parts[2]))
	dec.UseNumber()
	if err := dec.Decode(&it.Value); err != nil {
		return fmt.Errorf("item: value: %w", err)
	}
	return nil
}

func parseUID(raw json.RawMessage) (int64, error) {
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case json.Number:
		n = t
	case string:
		n = json.Number(strings.TrimSpace(t))
	default:
		return 0, fmt.Errorf("want integer, got %s", raw)
	}
	return strconv.ParseInt(n.String(), 10, 64)
}

// loadEvent is the object form of a batch: {"items": [...]}.
type loadEvent struct {
	Items []Item `json:"items"`
}

// DecodeItems reads a batch as either a bare JSON array of items or an
// object with an "items" array.
func DecodeItems(r io.Reader) ([]Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("read items: empty input")
	}

	if data[0] == '{' {
		var ev loadEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
		if ev.Items == nil {
			ev.Items = []Item{}
		}
		return ev.Items, nil
	}

	items := []Item{}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return items, nil
}
