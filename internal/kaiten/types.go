package kaiten

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Card is a board record as returned by GET /cards/{id}. The API exposes
// the same logical field through up to three container shapes at once:
// the custom_properties descriptor list, the flat properties map, and ad
// hoc top-level keys. All three are preserved here so that field
// resolution can probe them in order.
type Card struct {
	ID               int64            `json:"id"`
	Title            string           `json:"title"`
	CustomProperties []CustomProperty `json:"custom_properties,omitempty"`
	Properties       map[string]any   `json:"properties,omitempty"`

	// Extra holds top-level keys that are not part of the fixed schema,
	// e.g. "id_542109": 4. Populated during unmarshal.
	Extra map[string]any `json:"-"`
}

// CustomProperty is one entry of the descriptor-list shape. The API is
// inconsistent about id types (integers on some endpoints, numeric
// strings on others), so ids stay untyped until compared.
type CustomProperty struct {
	ID         any    `json:"id,omitempty"`
	PropertyID any    `json:"property_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Type       string `json:"type,omitempty"`
	Value      any    `json:"value,omitempty"`
}

// Option is a single select-field choice after normalization of the
// several id/label key spellings the API uses.
type Option struct {
	ID    int64
	Label string
}

// CardUpdate is the body for PATCH /cards/{id}. Select fields take a
// one-element array of option ids under their write key, everything else
// a plain scalar.
type CardUpdate struct {
	Properties map[string]any `json:"properties"`
}

// cardAlias breaks the UnmarshalJSON recursion.
type cardAlias Card

func (c *Card) UnmarshalJSON(data []byte) error {
	var a cardAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	delete(raw, "id")
	delete(raw, "title")
	delete(raw, "custom_properties")
	delete(raw, "properties")
	if len(raw) > 0 {
		a.Extra = raw
	}

	*c = Card(a)
	return nil
}

// IDString renders a descriptor id the way it is compared and used in
// write keys: integral floats lose the trailing ".0" that JSON decoding
// introduces, everything else goes through fmt.
func IDString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return IDString(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// AsInt64 converts an id-like value (number or numeric string) to int64.
func AsInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return int64(t), true
		}
		return 0, false
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
