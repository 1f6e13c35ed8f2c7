package kaiten

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// wrapperKeys is the probe order for select-values responses that wrap
// the option list in an object instead of returning a bare array.
var wrapperKeys = []string{"values", "data", "select_values", "items", "results", "options", "choices"}

// optionIDKeys and optionLabelKeys are the key spellings the API has been
// observed to use for an option's id and display label.
var (
	optionIDKeys    = []string{"id", "option_id", "value_id", "select_value_id"}
	optionLabelKeys = []string{"value", "name", "label", "text", "title"}
)

// parseSelectValues extracts option objects from a select-values response
// of unknown shape and normalizes them. Entries without a usable id are
// dropped.
func parseSelectValues(result any) []Option {
	list, ok := optionList(result)
	if !ok {
		return nil
	}

	opts := make([]Option, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		var opt Option
		hasID := false
		for _, key := range optionIDKeys {
			if v, present := obj[key]; present {
				if id, ok := AsInt64(v); ok {
					opt.ID = id
					hasID = true
					break
				}
			}
		}
		if !hasID {
			continue
		}
		for _, key := range optionLabelKeys {
			if v, present := obj[key]; present {
				if s, ok := v.(string); ok && s != "" {
					opt.Label = s
					break
				}
			}
		}
		opts = append(opts, opt)
	}
	return opts
}

func optionList(result any) ([]any, bool) {
	switch t := result.(type) {
	case []any:
		return t, true
	case map[string]any:
		for _, key := range wrapperKeys {
			if v, ok := t[key].([]any); ok {
				return v, true
			}
		}
		// Last resort: accept the first list-of-objects value whose
		// elements carry an id-like key.
		for _, v := range t {
			list, ok := v.([]any)
			if !ok || len(list) == 0 {
				continue
			}
			first, ok := list[0].(map[string]any)
			if !ok {
				continue
			}
			for _, key := range optionIDKeys {
				if _, present := first[key]; present {
					return list, true
				}
			}
		}
	}
	return nil, false
}

// OptionSource fetches the raw option list for a select field.
type OptionSource interface {
	GetSelectValues(ctx context.Context, propertyID int64) ([]Option, error)
}

// OptionCache memoizes select-field options per property id for the life
// of the process. Empty or failed fetches are not cached so that a later
// call can retry after a transient upstream hiccup. Safe for concurrent
// use; a duplicate fetch for the same key is wasteful but harmless since
// entries are idempotent.
type OptionCache struct {
	src    OptionSource
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[int64][]Option
}

// NewOptionCache creates an empty cache backed by src.
func NewOptionCache(src OptionSource, logger *slog.Logger) *OptionCache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &OptionCache{
		src:     src,
		logger:  logger,
		entries: make(map[int64][]Option),
	}
}

// Resolve returns the options of a select field, fetching on first use.
func (c *OptionCache) Resolve(ctx context.Context, propertyID int64) ([]Option, error) {
	c.mu.RLock()
	opts, ok := c.entries[propertyID]
	c.mu.RUnlock()
	if ok {
		return opts, nil
	}

	opts, err := c.src.GetSelectValues(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if len(opts) == 0 {
		c.logger.DebugContext(ctx, "select field returned no options, not caching", "propertyID", propertyID)
		return nil, nil
	}

	c.mu.Lock()
	c.entries[propertyID] = opts
	c.mu.Unlock()
	return opts, nil
}

// Label resolves an option id to its display label.
func (c *OptionCache) Label(ctx context.Context, propertyID, optionID int64) (string, bool) {
	opts, err := c.Resolve(ctx, propertyID)
	if err != nil {
		c.logger.DebugContext(ctx, "select values lookup failed", "propertyID", propertyID, "error", err)
		return "", false
	}
	for _, opt := range opts {
		if opt.ID == optionID {
			return opt.Label, true
		}
	}
	return "", false
}

// OptionID resolves a display label to its option id. Matching trims
// whitespace and ignores case, mirroring how labels are compared when
// writing select fields back.
func (c *OptionCache) OptionID(ctx context.Context, propertyID int64, label string) (int64, bool) {
	opts, err := c.Resolve(ctx, propertyID)
	if err != nil {
		c.logger.DebugContext(ctx, "select values lookup failed", "propertyID", propertyID, "error", err)
		return 0, false
	}
	want := strings.TrimSpace(label)
	for _, opt := range opts {
		if strings.EqualFold(strings.TrimSpace(opt.Label), want) {
			return opt.ID, true
		}
	}
	return 0, false
}
