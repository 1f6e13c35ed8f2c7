// Package fields locates and normalizes card field values. The board API
// exposes the same logical field through up to three shapes (descriptor
// list, flat properties map, top-level key); resolution probes them in a
// fixed precedence order and returns the first match.
package fields

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/stagegate/stagegate/internal/kaiten"
)

// CleanID strips the optional "id_" marker from a field identifier so it
// can be compared against raw property ids.
func CleanID(fieldID string) string {
	return strings.TrimPrefix(fieldID, "id_")
}

// PropertyID extracts the numeric property id from a field identifier,
// tolerating the "id_" prefix.
func PropertyID(fieldID string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(CleanID(fieldID)), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// matchesID compares a descriptor id (of whatever type the API returned)
// against the target identifier, both raw and prefix-stripped.
func matchesID(v any, fieldID, clean string) bool {
	if v == nil {
		return false
	}
	s := kaiten.IDString(v)
	return s == fieldID || s == clean
}

// Extract locates a field's raw value on a card. Precedence: descriptor
// list (matching internal id, property id, or name), then the flat
// properties map, then top-level keys (raw identifier, then prefixed).
func Extract(card *kaiten.Card, fieldID string) (any, bool) {
	if fieldID == "" {
		return nil, false
	}
	clean := CleanID(fieldID)

	for i := range card.CustomProperties {
		prop := &card.CustomProperties[i]
		if matchesID(prop.ID, fieldID, clean) ||
			matchesID(prop.PropertyID, fieldID, clean) ||
			(prop.Name != "" && prop.Name == fieldID) {
			return prop.Value, true
		}
	}

	if v, ok := card.Properties[fieldID]; ok {
		return v, true
	}

	if v, ok := card.Extra[fieldID]; ok {
		return v, true
	}
	if v, ok := card.Extra["id_"+clean]; ok {
		return v, true
	}

	return nil, false
}

// ExtractText returns a field's value as a string.
func ExtractText(card *kaiten.Card, fieldID string) (string, bool) {
	v, ok := Extract(card, fieldID)
	if !ok || v == nil {
		return "", false
	}
	return stringify(v), true
}

// ExtractNumeric returns a field's value parsed directly as a number;
// absent or unparseable values yield 0.
func ExtractNumeric(card *kaiten.Card, fieldID string) float64 {
	v, ok := Extract(card, fieldID)
	if !ok {
		return 0
	}
	f, _ := toFloat(v)
	return f
}

// FindProperty returns the full descriptor for a field, synthesizing one
// for flat-map hits (whose type is unknown and whose property id is the
// identifier itself). Used by write-back to learn a field's write key and
// declared type.
func FindProperty(card *kaiten.Card, fieldID string) (*kaiten.CustomProperty, bool) {
	if fieldID == "" {
		return nil, false
	}
	clean := CleanID(fieldID)

	for i := range card.CustomProperties {
		prop := &card.CustomProperties[i]
		if matchesID(prop.ID, fieldID, clean) ||
			matchesID(prop.PropertyID, fieldID, clean) ||
			(prop.Name != "" && prop.Name == fieldID) {
			return prop, true
		}
	}

	for _, key := range []string{fieldID, clean} {
		if v, ok := card.Properties[key]; ok {
			var propertyID any = clean
			if n, numeric := PropertyID(fieldID); numeric {
				propertyID = n
			}
			return &kaiten.CustomProperty{
				ID:         fieldID,
				PropertyID: propertyID,
				Type:       "unknown",
				Value:      v,
			}, true
		}
	}

	return nil, false
}

// Resolver turns raw field values into normalized criterion values,
// resolving select-option id lists to labels through the option cache and
// mapping labels onto scores.
type Resolver struct {
	options *kaiten.OptionCache
	scores  *ScoreTable
	logger  *slog.Logger
}

// NewResolver builds a Resolver. A nil scores table uses the defaults.
func NewResolver(options *kaiten.OptionCache, scores *ScoreTable, logger *slog.Logger) *Resolver {
	if scores == nil {
		scores = DefaultScores()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{options: options, scores: scores, logger: logger}
}

// Text resolves a field to its textual value. A one-element list is
// treated as a select-option id and resolved to its label.
func (r *Resolver) Text(ctx context.Context, card *kaiten.Card, fieldID string) (string, bool) {
	v, ok := Extract(card, fieldID)
	if !ok || v == nil {
		return "", false
	}
	if list, isList := v.([]any); isList {
		return r.selectLabel(ctx, fieldID, list)
	}
	return stringify(v), true
}

// Score resolves a field to its criterion score: plain numbers pass
// through, select-option lists resolve to labels first, and labels map
// through the score table. Unknown labels warn and score 0.
func (r *Resolver) Score(ctx context.Context, card *kaiten.Card, fieldID string) float64 {
	v, ok := Extract(card, fieldID)
	if !ok || v == nil {
		r.logger.WarnContext(ctx, "field not found on card", "field", fieldID, "card", card.ID)
		return 0
	}

	if f, numeric := toFloat(v); numeric {
		return f
	}

	label := ""
	switch t := v.(type) {
	case []any:
		resolved, ok := r.selectLabel(ctx, fieldID, t)
		if !ok {
			r.logger.WarnContext(ctx, "could not resolve select value", "field", fieldID, "card", card.ID)
			return 0
		}
		label = resolved
	case string:
		label = t
	default:
		label = stringify(v)
	}

	if score, ok := r.scores.Lookup(label); ok {
		return score
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(label), 64); err == nil {
		return f
	}
	r.logger.WarnContext(ctx, "unknown field label, scoring 0", "field", fieldID, "label", label, "card", card.ID)
	return 0
}

// selectLabel resolves the first option id of a select value list to its
// display label via the option cache.
func (r *Resolver) selectLabel(ctx context.Context, fieldID string, list []any) (string, bool) {
	if len(list) == 0 || r.options == nil {
		return "", false
	}
	propertyID, ok := PropertyID(fieldID)
	if !ok {
		r.logger.DebugContext(ctx, "field identifier is not a property id, cannot resolve select", "field", fieldID)
		return "", false
	}
	optionID, ok := kaiten.AsInt64(list[0])
	if !ok {
		return "", false
	}
	return r.options.Label(ctx, propertyID, optionID)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return kaiten.IDString(t)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
