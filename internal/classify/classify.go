// Package classify computes categorical outcome labels from normalized
// criterion scores. Every dimension is a pure function of its inputs,
// driven by a Rules table that a deployment can override from a YAML
// file.
package classify

import "strings"

// Criterion keys name the scored inputs a dimension consumes.
const (
	CriterionRelevance     = "relevance"
	CriterionNovelty       = "novelty"
	CriterionExperience    = "experience"
	CriterionApplicability = "applicability"
	CriterionCharisma      = "charisma"
	CriterionInfluencer    = "influencer"
	CriterionReach         = "reach"
)

// Dimension names.
const (
	DimensionQualityTier   = "quality_tier"
	DimensionContentType   = "content_type"
	DimensionPresenterTier = "presenter_tier"
	DimensionReachTier     = "reach_tier"
)

// Rules holds the threshold/branch tables and output vocabulary for all
// classification dimensions.
type Rules struct {
	Quality   QualityRules   `yaml:"quality"`
	Content   ContentRules   `yaml:"content_type"`
	Presenter PresenterRules `yaml:"presenter"`
	Reach     ReachRules     `yaml:"reach"`
}

// QualityRules scores a proposal Gold/Silver/Bronze from relevance,
// novelty, and presenter experience (each 0-5).
type QualityRules struct {
	GoldSum    float64 `yaml:"gold_sum"`
	GoldEach   float64 `yaml:"gold_each"`
	SilverSum  float64 `yaml:"silver_sum"`
	SilverEach float64 `yaml:"silver_each"`
	Gold       string  `yaml:"gold_label"`
	Silver     string  `yaml:"silver_label"`
	Bronze     string  `yaml:"bronze_label"`
}

// ContentRules derives the content type from applicability and reach.
type ContentRules struct {
	HardcoreReachMax float64 `yaml:"hardcore_reach_max"`
	Undetermined     string  `yaml:"undetermined_label"`
	Hardcore         string  `yaml:"hardcore_label"`
	Mass             string  `yaml:"mass_label"`
	Practical        string  `yaml:"practical_label"`
	Inspiration      string  `yaml:"inspiration_label"`
}

// PresenterRules derives the presenter tier from charisma and the
// influencer flag.
type PresenterRules struct {
	HeadlinerCharisma float64  `yaml:"headliner_charisma"`
	StrongCharisma    float64  `yaml:"strong_charisma"`
	ExpertCharisma    float64  `yaml:"expert_charisma"`
	Truthy            []string `yaml:"truthy"`
	Headliner         string   `yaml:"headliner_label"`
	Strong            string   `yaml:"strong_label"`
	Expert            string   `yaml:"expert_label"`
	Undetermined      string   `yaml:"undetermined_label"`
}

// ReachRules derives the reach tier from the reach score.
type ReachRules struct {
	Everyone     string `yaml:"everyone_label"`
	Cross        string `yaml:"cross_label"`
	Niche        string `yaml:"niche_label"`
	Undetermined string `yaml:"undetermined_label"`
}

// DefaultRules returns the reference rule set.
func DefaultRules() Rules {
	return Rules{
		Quality: QualityRules{
			GoldSum:    13,
			GoldEach:   4,
			SilverSum:  9,
			SilverEach: 3,
			Gold:       "Gold",
			Silver:     "Silver",
			Bronze:     "Bronze",
		},
		Content: ContentRules{
			HardcoreReachMax: 2,
			Undetermined:     "Undetermined",
			Hardcore:         "Hardcore",
			Mass:             "Mass",
			Practical:        "Practical case",
			Inspiration:      "Inspiration/Overview",
		},
		Presenter: PresenterRules{
			HeadlinerCharisma: 5,
			StrongCharisma:    4,
			ExpertCharisma:    1,
			Truthy:            []string{"да", "yes", "true", "1"},
			Headliner:         "Headliner",
			Strong:            "Strong presenter",
			Expert:            "Expert",
			Undetermined:      "Undetermined",
		},
		Reach: ReachRules{
			Everyone:     "For everyone",
			Cross:        "Cross-audience",
			Niche:        "Niche",
			Undetermined: "Undetermined",
		},
	}
}

// ClassifyQuality maps relevance, novelty, and presenter experience onto
// the quality tier. Gold needs a high total or uniformly high marks,
// Silver a solid total or uniformly decent marks, everything else is
// Bronze. Comparisons are exact: scores come from a fixed label table.
func (r Rules) ClassifyQuality(relevance, novelty, experience float64) string {
	q := r.Quality
	total := relevance + novelty + experience
	if total >= q.GoldSum || (relevance >= q.GoldEach && novelty >= q.GoldEach && experience >= q.GoldEach) {
		return q.Gold
	}
	if total >= q.SilverSum || (relevance >= q.SilverEach && novelty >= q.SilverEach && experience >= q.SilverEach) {
		return q.Silver
	}
	return q.Bronze
}

// ClassifyContentType maps applicability (1-5) and reach (1-5) onto the
// content type. Turn-key material (5) splits into Hardcore or Mass on
// reach; the middle of the scale is a practical case, the bottom an
// inspiration/overview talk.
func (r Rules) ClassifyContentType(applicability, reach float64) string {
	c := r.Content
	switch {
	case applicability == 0:
		return c.Undetermined
	case applicability == 5 && reach <= c.HardcoreReachMax:
		return c.Hardcore
	case applicability == 5:
		return c.Mass
	case applicability == 4 || applicability == 3:
		return c.Practical
	case applicability == 1 || applicability == 2:
		return c.Inspiration
	default:
		return c.Undetermined
	}
}

// ClassifyPresenter maps charisma (0-5) and the influencer flag onto the
// presenter tier.
func (r Rules) ClassifyPresenter(charisma float64, influencer string) string {
	p := r.Presenter
	switch {
	case charisma >= p.HeadlinerCharisma && p.isTruthy(influencer):
		return p.Headliner
	case charisma >= p.StrongCharisma:
		return p.Strong
	case charisma >= p.ExpertCharisma:
		return p.Expert
	default:
		return p.Undetermined
	}
}

func (p PresenterRules) isTruthy(v string) bool {
	v = strings.TrimSpace(v)
	for _, t := range p.Truthy {
		if strings.EqualFold(v, t) {
			return true
		}
	}
	return false
}

// ClassifyReach maps the reach score (0-5) onto the reach tier.
func (r Rules) ClassifyReach(reach float64) string {
	re := r.Reach
	switch reach {
	case 4, 5:
		return re.Everyone
	case 3:
		return re.Cross
	case 1, 2:
		return re.Niche
	default:
		return re.Undetermined
	}
}

// CriterionValues carries resolved inputs for dimension evaluation.
type CriterionValues struct {
	Scores map[string]float64
	Text   map[string]string
}

// Dimension is one classification axis: a name, the criteria it reads,
// and its evaluation function.
type Dimension struct {
	Name     string
	Inputs   []string
	Evaluate func(v CriterionValues) string
}

// Dimensions enumerates all classification axes under these rules. The
// engine supports any number of similarly shaped dimensions; these four
// are the reference set.
func (r Rules) Dimensions() []Dimension {
	return []Dimension{
		{
			Name:   DimensionQualityTier,
			Inputs: []string{CriterionRelevance, CriterionNovelty, CriterionExperience},
			Evaluate: func(v CriterionValues) string {
				return r.ClassifyQuality(v.Scores[CriterionRelevance], v.Scores[CriterionNovelty], v.Scores[CriterionExperience])
			},
		},
		{
			Name:   DimensionContentType,
			Inputs: []string{CriterionApplicability, CriterionReach},
			Evaluate: func(v CriterionValues) string {
				return r.ClassifyContentType(v.Scores[CriterionApplicability], v.Scores[CriterionReach])
			},
		},
		{
			Name:   DimensionPresenterTier,
			Inputs: []string{CriterionCharisma, CriterionInfluencer},
			Evaluate: func(v CriterionValues) string {
				return r.ClassifyPresenter(v.Scores[CriterionCharisma], v.Text[CriterionInfluencer])
			},
		},
		{
			Name:   DimensionReachTier,
			Inputs: []string{CriterionReach},
			Evaluate: func(v CriterionValues) string {
				return r.ClassifyReach(v.Scores[CriterionReach])
			},
		},
	}
}
