package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagegate/stagegate/internal/classify"
	"github.com/stagegate/stagegate/internal/fields"
	"github.com/stagegate/stagegate/internal/kaiten"
)

// testFieldMap wires plain numeric identifiers for every criterion and
// dimension.
var testFieldMap = FieldMap{
	Relevance:     "id_1",
	Novelty:       "id_2",
	Experience:    "id_3",
	Applicability: "id_4",
	Charisma:      "id_5",
	Influencer:    "id_6",
	Reach:         "id_7",
	QualityTier:   "id_11",
	ContentType:   "id_12",
	PresenterTier: "id_13",
	ReachTier:     "id_14",
}

// fakeBoard serves cards by id and fails the ids listed in broken.
type fakeBoard struct {
	cards  map[int64]*kaiten.Card
	broken map[int64]bool
}

func (f *fakeBoard) GetCard(_ context.Context, cardID int64) (*kaiten.Card, error) {
	if f.broken[cardID] {
		return nil, fmt.Errorf("card %d is broken", cardID)
	}
	card, ok := f.cards[cardID]
	if !ok {
		return nil, fmt.Errorf("card %d not found", cardID)
	}
	return card, nil
}

func (f *fakeBoard) ListCards(_ context.Context, _, _ int64) ([]kaiten.Card, error) {
	var out []kaiten.Card
	for _, card := range f.cards {
		out = append(out, *card)
	}
	return out, nil
}

// recordingApplier captures outcome writes per card.
type recordingApplier struct {
	applied map[int64]map[string]string
}

func (a *recordingApplier) Apply(_ context.Context, cardID int64, outcomes map[string]string) error {
	if a.applied == nil {
		a.applied = make(map[int64]map[string]string)
	}
	a.applied[cardID] = outcomes
	return nil
}

type emptyOptions struct{}

func (emptyOptions) GetSelectValues(_ context.Context, _ int64) ([]kaiten.Option, error) {
	return nil, nil
}

func scoredCard(id int64, rel, nov, exp, app, cha float64, influencer string, reach float64) *kaiten.Card {
	return &kaiten.Card{
		ID: id,
		Properties: map[string]any{
			"id_1": rel,
			"id_2": nov,
			"id_3": exp,
			"id_4": app,
			"id_5": cha,
			"id_6": influencer,
			"id_7": reach,
		},
	}
}

func newTestProcessor(board *fakeBoard, applier Applier, opts ...Option) *Processor {
	cache := kaiten.NewOptionCache(emptyOptions{}, nil)
	resolver := fields.NewResolver(cache, nil, nil)
	return New(board, resolver, classify.DefaultRules(), testFieldMap, applier, opts...)
}

func TestEvaluateAllDimensions(t *testing.T) {
	board := &fakeBoard{cards: map[int64]*kaiten.Card{
		1: scoredCard(1, 5, 5, 4, 5, 5, "Да", 2),
	}}
	p := newTestProcessor(board, &recordingApplier{})

	eval := p.Evaluate(context.Background(), board.cards[1])
	assert.Equal(t, Evaluation{
		QualityTier:   "Gold",
		ContentType:   "Hardcore",
		PresenterTier: "Headliner",
		ReachTier:     "Niche",
	}, eval)
}

func TestProcessOneWritesOutcomesToOutputFields(t *testing.T) {
	board := &fakeBoard{cards: map[int64]*kaiten.Card{
		1: scoredCard(1, 3, 3, 3, 4, 4, "Нет", 3),
	}}
	applier := &recordingApplier{}
	p := newTestProcessor(board, applier)

	eval, err := p.ProcessOne(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Silver", eval.QualityTier)

	assert.Equal(t, map[string]string{
		"id_11": "Silver",
		"id_12": "Practical case",
		"id_13": "Strong presenter",
		"id_14": "Cross-audience",
	}, applier.applied[1])
}

func TestProcessOneSkipsUnconfiguredOutputFields(t *testing.T) {
	board := &fakeBoard{cards: map[int64]*kaiten.Card{
		1: scoredCard(1, 3, 3, 3, 4, 4, "Нет", 3),
	}}
	applier := &recordingApplier{}

	fm := testFieldMap
	fm.PresenterTier = ""
	fm.ReachTier = ""

	cache := kaiten.NewOptionCache(emptyOptions{}, nil)
	resolver := fields.NewResolver(cache, nil, nil)
	p := New(board, resolver, classify.DefaultRules(), fm, applier)

	_, err := p.ProcessOne(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"id_11": "Silver",
		"id_12": "Practical case",
	}, applier.applied[1], "dimensions without an output field must not be written")
}

func TestProcessOneDryRunSkipsWrite(t *testing.T) {
	board := &fakeBoard{cards: map[int64]*kaiten.Card{
		1: scoredCard(1, 3, 3, 3, 4, 4, "Нет", 3),
	}}
	applier := &recordingApplier{}
	p := newTestProcessor(board, applier, WithDryRun(true))

	eval, err := p.ProcessOne(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Silver", eval.QualityTier)
	assert.Empty(t, applier.applied)
}

func TestProcessManyIsolatesFailures(t *testing.T) {
	board := &fakeBoard{
		cards: map[int64]*kaiten.Card{
			1: scoredCard(1, 5, 5, 5, 5, 5, "Да", 5),
			3: scoredCard(3, 1, 1, 1, 1, 1, "Нет", 1),
		},
		broken: map[int64]bool{2: true},
	}
	applier := &recordingApplier{}
	p := newTestProcessor(board, applier, WithWorkers(2))

	summary := p.ProcessMany(context.Background(), []int64{1, 2, 3})

	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)

	require.Len(t, summary.Results, 3)
	assert.NoError(t, summary.Results[0].Err)
	assert.Error(t, summary.Results[1].Err)
	assert.NoError(t, summary.Results[2].Err)

	// The failing card must not block the others' writes.
	assert.Contains(t, applier.applied, int64(1))
	assert.Contains(t, applier.applied, int64(3))
	assert.NotContains(t, applier.applied, int64(2))
}

func TestSweepProcessesListedCards(t *testing.T) {
	board := &fakeBoard{cards: map[int64]*kaiten.Card{
		10: scoredCard(10, 4, 4, 4, 4, 4, "Нет", 4),
		20: scoredCard(20, 1, 1, 1, 1, 1, "Нет", 1),
	}}
	applier := &recordingApplier{}
	p := newTestProcessor(board, applier)

	summary, err := p.Sweep(context.Background(), 555, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Len(t, applier.applied, 2)
}
