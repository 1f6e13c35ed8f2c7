// Package reconcile writes classification outcomes back to the board and
// verifies they stuck. Each output field's update format depends on its
// declared type: select fields take a one-element option-id array under
// their write key, everything else a plain scalar.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/stagegate/stagegate/internal/fields"
	"github.com/stagegate/stagegate/internal/kaiten"
)

// ErrNoWritableFields is returned when none of the requested outcomes
// could be resolved into a writable value; no update request is sent in
// that case.
var ErrNoWritableFields = errors.New("no fields resolved to a writable value")

// CardAPI is the slice of the board client the reconciler needs.
type CardAPI interface {
	GetCard(ctx context.Context, cardID int64) (*kaiten.Card, error)
	UpdateCard(ctx context.Context, cardID int64, update kaiten.CardUpdate) error
}

// Reconciler applies outcome labels to a card's output fields.
type Reconciler struct {
	client  CardAPI
	options *kaiten.OptionCache
	logger  *slog.Logger

	// lookupPause spaces consecutive option-resolution fetches so a
	// single update does not trip the upstream limiter.
	lookupPause time.Duration

	// settleDelay is how long to wait after a successful write before
	// re-reading for verification.
	settleDelay time.Duration

	sleep func(time.Duration)
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// WithLookupPause overrides the delay between option lookups.
func WithLookupPause(d time.Duration) Option {
	return func(r *Reconciler) { r.lookupPause = d }
}

// WithSettleDelay overrides the delay before post-write verification.
func WithSettleDelay(d time.Duration) Option {
	return func(r *Reconciler) { r.settleDelay = d }
}

// WithSleep replaces the sleep function, letting tests run without
// wall-clock delays.
func WithSleep(fn func(time.Duration)) Option {
	return func(r *Reconciler) { r.sleep = fn }
}

// New creates a Reconciler over the given client and option cache.
func New(client CardAPI, options *kaiten.OptionCache, opts ...Option) *Reconciler {
	r := &Reconciler{
		client:      client,
		options:     options,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		lookupPause: 200 * time.Millisecond,
		settleDelay: 500 * time.Millisecond,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply writes the outcome labels to their output fields in one combined
// update, then re-reads the card to verify. Select fields whose label has
// no matching option id are omitted with a warning rather than written
// wrong. Verification mismatches are logged but do not fail the apply:
// the write call's own result is authoritative.
func (r *Reconciler) Apply(ctx context.Context, cardID int64, outcomes map[string]string) error {
	card, err := r.client.GetCard(ctx, cardID)
	if err != nil {
		return fmt.Errorf("fetching card %d: %w", cardID, err)
	}

	// Deterministic field order keeps lookup pacing and logs stable.
	fieldIDs := make([]string, 0, len(outcomes))
	for fieldID := range outcomes {
		if fieldID != "" {
			fieldIDs = append(fieldIDs, fieldID)
		}
	}
	sort.Strings(fieldIDs)

	properties := make(map[string]any)
	written := make(map[string]string)
	looked := make(map[int64]bool)

	for _, fieldID := range fieldIDs {
		label := outcomes[fieldID]

		var propertyID any
		propType := "unknown"
		if prop, ok := fields.FindProperty(card, fieldID); ok {
			propertyID = prop.PropertyID
			if propertyID == nil {
				propertyID = prop.ID
			}
			if prop.Type != "" {
				propType = prop.Type
			}
		} else {
			r.logger.WarnContext(ctx, "output field not found on card, falling back to identifier",
				"field", fieldID, "card", cardID)
		}
		if propertyID == nil {
			// Treat the identifier itself as the property id.
			if n, ok := fields.PropertyID(fieldID); ok {
				propertyID = n
			} else {
				propertyID = fields.CleanID(fieldID)
			}
		}

		writeKey := "id_" + kaiten.IDString(propertyID)

		if !selectLike(propType) {
			properties[writeKey] = label
			written[fieldID] = label
			continue
		}

		// All reference output fields are selects; an unknown type is
		// assumed select as well. The label must resolve to an option id
		// or the field is omitted from the write.
		pid, numeric := kaiten.AsInt64(propertyID)
		if !numeric {
			r.logger.WarnContext(ctx, "select field has non-numeric property id, skipping",
				"field", fieldID, "propertyID", propertyID)
			continue
		}
		if !looked[pid] && len(looked) > 0 {
			r.sleep(r.lookupPause)
		}
		looked[pid] = true

		optionID, ok := r.options.OptionID(ctx, pid, label)
		if !ok {
			r.logger.WarnContext(ctx, "no option id for outcome label, field omitted from write",
				"field", fieldID, "propertyID", pid, "label", label)
			continue
		}
		properties[writeKey] = []int64{optionID}
		written[fieldID] = label
	}

	if len(properties) == 0 {
		return fmt.Errorf("card %d: %w", cardID, ErrNoWritableFields)
	}

	update := kaiten.CardUpdate{Properties: properties}
	if err := r.client.UpdateCard(ctx, cardID, update); err != nil {
		return fmt.Errorf("updating card %d: %w", cardID, err)
	}

	r.verify(ctx, cardID, written)
	return nil
}

// verify re-reads the card and compares each written field against its
// expected label. Mismatches are advisory only.
func (r *Reconciler) verify(ctx context.Context, cardID int64, written map[string]string) {
	r.sleep(r.settleDelay)

	card, err := r.client.GetCard(ctx, cardID)
	if err != nil {
		r.logger.WarnContext(ctx, "could not re-read card for verification", "card", cardID, "error", err)
		return
	}

	for fieldID, expected := range written {
		actual, ok := r.resolvedValue(ctx, card, fieldID)
		if !ok {
			r.logger.WarnContext(ctx, "written field absent on re-read",
				"card", cardID, "field", fieldID, "expected", expected)
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(actual), strings.TrimSpace(expected)) {
			r.logger.WarnContext(ctx, "write verification mismatch",
				"card", cardID, "field", fieldID, "expected", expected, "actual", actual)
		}
	}
}

// resolvedValue reads a field back as text, resolving select-option id
// lists through the cache.
func (r *Reconciler) resolvedValue(ctx context.Context, card *kaiten.Card, fieldID string) (string, bool) {
	v, ok := fields.Extract(card, fieldID)
	if !ok || v == nil {
		return "", false
	}
	if list, isList := v.([]any); isList && len(list) > 0 {
		pid, okPID := fields.PropertyID(fieldID)
		optID, okOpt := kaiten.AsInt64(list[0])
		if okPID && okOpt {
			if label, found := r.options.Label(ctx, pid, optID); found {
				return label, true
			}
		}
		return fmt.Sprintf("%v", list[0]), true
	}
	return fmt.Sprintf("%v", v), true
}

func selectLike(propType string) bool {
	switch propType {
	case "select", "multi_select", "unknown", "":
		return true
	default:
		return false
	}
}
