package kaiten

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelectValuesShapes(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []Option
	}{
		{
			name: "bare array",
			in: []any{
				map[string]any{"id": float64(1), "value": "Gold"},
				map[string]any{"id": float64(2), "value": "Silver"},
			},
			want: []Option{{ID: 1, Label: "Gold"}, {ID: 2, Label: "Silver"}},
		},
		{
			name: "wrapped under values",
			in: map[string]any{
				"values": []any{map[string]any{"id": float64(3), "name": "Bronze"}},
			},
			want: []Option{{ID: 3, Label: "Bronze"}},
		},
		{
			name: "wrapped under unrecognized key with id-like entries",
			in: map[string]any{
				"entries": []any{map[string]any{"option_id": float64(9), "label": "Niche"}},
			},
			want: []Option{{ID: 9, Label: "Niche"}},
		},
		{
			name: "string ids",
			in:   []any{map[string]any{"id": "15", "value": "Headliner"}},
			want: []Option{{ID: 15, Label: "Headliner"}},
		},
		{
			name: "entries without ids dropped",
			in: []any{
				map[string]any{"value": "orphan"},
				map[string]any{"id": float64(4), "value": "kept"},
			},
			want: []Option{{ID: 4, Label: "kept"}},
		},
		{
			name: "not a list",
			in:   map[string]any{"total": float64(3)},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseSelectValues(tt.in)
			assert.Equal(t, tt.want, got)
		})
	}
}

// stubSource counts fetches and serves a fixed option set per property.
type stubSource struct {
	options map[int64][]Option
	calls   map[int64]int
}

func (s *stubSource) GetSelectValues(_ context.Context, propertyID int64) ([]Option, error) {
	if s.calls == nil {
		s.calls = make(map[int64]int)
	}
	s.calls[propertyID]++
	return s.options[propertyID], nil
}

func TestOptionCacheFetchesOnce(t *testing.T) {
	src := &stubSource{options: map[int64][]Option{
		542143: {{ID: 7, Label: "Gold"}, {ID: 8, Label: "Silver"}},
	}}
	cache := NewOptionCache(src, nil)
	ctx := context.Background()

	label, ok := cache.Label(ctx, 542143, 7)
	require.True(t, ok)
	assert.Equal(t, "Gold", label)

	label, ok = cache.Label(ctx, 542143, 8)
	require.True(t, ok)
	assert.Equal(t, "Silver", label)

	assert.Equal(t, 1, src.calls[542143], "second lookup should hit the cache")
}

func TestOptionCacheDoesNotCacheEmptyResults(t *testing.T) {
	src := &stubSource{options: map[int64][]Option{}}
	cache := NewOptionCache(src, nil)
	ctx := context.Background()

	_, ok := cache.Label(ctx, 100, 1)
	assert.False(t, ok)
	_, ok = cache.Label(ctx, 100, 1)
	assert.False(t, ok)

	assert.Equal(t, 2, src.calls[100], "empty fetches should be retried")
}

func TestOptionIDMatchesCaseInsensitively(t *testing.T) {
	src := &stubSource{options: map[int64][]Option{
		542143: {{ID: 7, Label: " Gold "}},
	}}
	cache := NewOptionCache(src, nil)

	id, ok := cache.OptionID(context.Background(), 542143, "gold")
	require.True(t, ok)
	assert.Equal(t, int64(7), id)

	_, ok = cache.OptionID(context.Background(), 542143, "Platinum")
	assert.False(t, ok)
}
