// Package pipeline ties resolution, classification and reconciliation
// together: read a card's input fields, evaluate the rule dimensions,
// write the outcome labels back.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/stagegate/stagegate/internal/classify"
	"github.com/stagegate/stagegate/internal/fields"
	"github.com/stagegate/stagegate/internal/kaiten"
)

// FieldMap binds criterion and dimension names to board field
// identifiers. Identifiers may carry the raw "id_" prefix.
type FieldMap struct {
	Relevance     string `mapstructure:"relevance"`
	Novelty       string `mapstructure:"novelty"`
	Experience    string `mapstructure:"experience"`
	Applicability string `mapstructure:"applicability"`
	Charisma      string `mapstructure:"charisma"`
	Influencer    string `mapstructure:"influencer"`
	Reach         string `mapstructure:"reach"`

	QualityTier   string `mapstructure:"quality_tier"`
	ContentType   string `mapstructure:"content_type"`
	PresenterTier string `mapstructure:"presenter_tier"`
	ReachTier     string `mapstructure:"reach_tier"`
}

// inputField maps a criterion key to its configured field identifier.
func (m FieldMap) inputField(criterion string) string {
	switch criterion {
	case classify.CriterionRelevance:
		return m.Relevance
	case classify.CriterionNovelty:
		return m.Novelty
	case classify.CriterionExperience:
		return m.Experience
	case classify.CriterionApplicability:
		return m.Applicability
	case classify.CriterionCharisma:
		return m.Charisma
	case classify.CriterionInfluencer:
		return m.Influencer
	case classify.CriterionReach:
		return m.Reach
	default:
		return ""
	}
}

// outputField maps a dimension name to its configured field identifier.
func (m FieldMap) outputField(dimension string) string {
	switch dimension {
	case classify.DimensionQualityTier:
		return m.QualityTier
	case classify.DimensionContentType:
		return m.ContentType
	case classify.DimensionPresenterTier:
		return m.PresenterTier
	case classify.DimensionReachTier:
		return m.ReachTier
	default:
		return ""
	}
}

// CardLister is the card-read surface the processor needs.
type CardLister interface {
	GetCard(ctx context.Context, cardID int64) (*kaiten.Card, error)
	ListCards(ctx context.Context, boardID, spaceID int64) ([]kaiten.Card, error)
}

// Applier writes outcome labels back to a card.
type Applier interface {
	Apply(ctx context.Context, cardID int64, outcomes map[string]string) error
}

// Evaluation holds the outcome label of every dimension for one card.
type Evaluation struct {
	QualityTier   string
	ContentType   string
	PresenterTier string
	ReachTier     string
}

// byDimension returns every outcome keyed by dimension name; callers
// map the names onto output fields and drop the unconfigured ones.
func (e Evaluation) byDimension() map[string]string {
	return map[string]string{
		classify.DimensionQualityTier:   e.QualityTier,
		classify.DimensionContentType:   e.ContentType,
		classify.DimensionPresenterTier: e.PresenterTier,
		classify.DimensionReachTier:     e.ReachTier,
	}
}

// Processor runs the evaluate-and-write-back flow for cards.
type Processor struct {
	api      CardLister
	resolver *fields.Resolver
	rules    classify.Rules
	fieldMap FieldMap
	applier  Applier
	logger   *slog.Logger
	workers  int
	dryRun   bool
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithWorkers sets the batch concurrency limit.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithDryRun evaluates cards without writing anything back.
func WithDryRun(enabled bool) Option {
	return func(p *Processor) { p.dryRun = enabled }
}

// New creates a Processor.
func New(api CardLister, resolver *fields.Resolver, rules classify.Rules, fieldMap FieldMap, applier Applier, opts ...Option) *Processor {
	p := &Processor{
		api:      api,
		resolver: resolver,
		rules:    rules,
		fieldMap: fieldMap,
		applier:  applier,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		workers:  1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Evaluate resolves the card's input fields and runs every rule
// dimension over them.
func (p *Processor) Evaluate(ctx context.Context, card *kaiten.Card) Evaluation {
	values := classify.CriterionValues{
		Scores: make(map[string]float64),
		Text:   make(map[string]string),
	}

	outcomes := make(map[string]string)
	for _, dim := range p.rules.Dimensions() {
		for _, criterion := range dim.Inputs {
			fieldID := p.fieldMap.inputField(criterion)
			if fieldID == "" {
				continue
			}
			if criterion == classify.CriterionInfluencer {
				if _, seen := values.Text[criterion]; !seen {
					text, _ := p.resolver.Text(ctx, card, fieldID)
					values.Text[criterion] = text
				}
				continue
			}
			if _, seen := values.Scores[criterion]; !seen {
				values.Scores[criterion] = p.resolver.Score(ctx, card, fieldID)
			}
		}
		outcomes[dim.Name] = dim.Evaluate(values)
	}

	return Evaluation{
		QualityTier:   outcomes[classify.DimensionQualityTier],
		ContentType:   outcomes[classify.DimensionContentType],
		PresenterTier: outcomes[classify.DimensionPresenterTier],
		ReachTier:     outcomes[classify.DimensionReachTier],
	}
}

// ProcessOne evaluates a single card and writes its outcomes back.
func (p *Processor) ProcessOne(ctx context.Context, cardID int64) (Evaluation, error) {
	card, err := p.api.GetCard(ctx, cardID)
	if err != nil {
		return Evaluation{}, fmt.Errorf("fetching card %d: %w", cardID, err)
	}

	eval := p.Evaluate(ctx, card)
	p.logger.InfoContext(ctx, "card evaluated",
		"card", cardID,
		"title", card.Title,
		"quality", eval.QualityTier,
		"content", eval.ContentType,
		"presenter", eval.PresenterTier,
		"reach", eval.ReachTier)

	if p.dryRun {
		return eval, nil
	}

	outcomes := make(map[string]string)
	for dimension, label := range eval.byDimension() {
		if fieldID := p.fieldMap.outputField(dimension); fieldID != "" {
			outcomes[fieldID] = label
		}
	}

	if err := p.applier.Apply(ctx, cardID, outcomes); err != nil {
		return eval, fmt.Errorf("applying outcomes to card %d: %w", cardID, err)
	}
	return eval, nil
}

// Result is the per-card outcome of a batch run.
type Result struct {
	CardID     int64
	Evaluation Evaluation
	Err        error
}

// Summary aggregates a batch run.
type Summary struct {
	Processed int
	Succeeded int
	Failed    int
	Results   []Result
}

// ProcessMany evaluates the given cards with bounded concurrency. A
// failure on one card never stops the others; panics inside a worker
// are captured as that card's error.
func (p *Processor) ProcessMany(ctx context.Context, cardIDs []int64) Summary {
	results := make([]Result, len(cardIDs))

	var group errgroup.Group
	group.SetLimit(p.workers)

	var mu sync.Mutex
	for i, cardID := range cardIDs {
		group.Go(func() error {
			defer func() {
				if rec := recover(); rec != nil {
					mu.Lock()
					results[i] = Result{CardID: cardID, Err: fmt.Errorf("card %d: panic: %v", cardID, rec)}
					mu.Unlock()
				}
			}()
			eval, err := p.ProcessOne(ctx, cardID)
			mu.Lock()
			results[i] = Result{CardID: cardID, Evaluation: eval, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	summary := Summary{Processed: len(results), Results: results}
	for _, res := range results {
		if res.Err != nil {
			summary.Failed++
			p.logger.Error("card processing failed", "card", res.CardID, "error", res.Err)
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// Sweep lists the cards on a board (or space) and processes all of them.
func (p *Processor) Sweep(ctx context.Context, boardID, spaceID int64) (Summary, error) {
	cards, err := p.api.ListCards(ctx, boardID, spaceID)
	if err != nil {
		return Summary{}, fmt.Errorf("listing cards: %w", err)
	}

	ids := make([]int64, 0, len(cards))
	for _, card := range cards {
		ids = append(ids, card.ID)
	}
	p.logger.InfoContext(ctx, "sweep starting", "cards", len(ids), "board", boardID, "space", spaceID)
	return p.ProcessMany(ctx, ids), nil
}
