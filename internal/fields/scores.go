package fields

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ScoreTable maps select-option labels to criterion scores. The table may
// carry redundant keys: the upstream board accumulated historical
// spellings, spacing typos, and Cyrillic/Latin homoglyph mixes for the
// same option, and all of them must score identically.
type ScoreTable struct {
	exact  map[string]float64
	folded map[string]float64
}

// NewScoreTable builds a table from raw label→score entries. Lookup tries
// an exact match first, then a folded one (trimmed, lowercased, NFKC,
// homoglyphs unified).
func NewScoreTable(entries map[string]float64) *ScoreTable {
	t := &ScoreTable{
		exact:  make(map[string]float64, len(entries)),
		folded: make(map[string]float64, len(entries)),
	}
	for label, score := range entries {
		t.exact[label] = score
		t.folded[Fold(label)] = score
	}
	return t
}

// Add inserts or overrides a single label entry.
func (t *ScoreTable) Add(label string, score float64) {
	t.exact[label] = score
	t.folded[Fold(label)] = score
}

// Lookup returns the score for a label.
func (t *ScoreTable) Lookup(label string) (float64, bool) {
	if score, ok := t.exact[label]; ok {
		return score, true
	}
	score, ok := t.folded[Fold(label)]
	return score, ok
}

// confusables maps Cyrillic letters to the Latin letters they are
// indistinguishable from in most fonts. The board's option labels mix
// both scripts freely ("IT" typed with Cyrillic І or Т is the recurring
// offender), so label comparison folds them together.
var confusables = map[rune]rune{
	'А': 'A', 'В': 'B', 'Е': 'E', 'І': 'I', 'Ј': 'J', 'К': 'K',
	'М': 'M', 'Н': 'H', 'О': 'O', 'Р': 'P', 'С': 'C', 'Т': 'T',
	'У': 'Y', 'Х': 'X', 'Ѕ': 'S',
	'а': 'a', 'е': 'e', 'і': 'i', 'ј': 'j', 'о': 'o', 'р': 'p',
	'с': 'c', 'у': 'y', 'х': 'x', 'ѕ': 's',
}

// Fold canonicalizes a label for tolerant comparison: NFKC normalization,
// homoglyph unification, case folding, and whitespace trimming.
func Fold(label string) string {
	s := norm.NFKC.String(label)
	s = strings.Map(func(r rune) rune {
		if latin, ok := confusables[r]; ok {
			return latin
		}
		return r
	}, s)
	return strings.ToLower(strings.TrimSpace(s))
}

// defaultScores carries the upstream board's evaluation scales verbatim,
// including every historical variant the API has returned.
var defaultScores = map[string]float64{
	// Relevance
	"1 - Низкая":       1,
	"2 - Слабая":       2,
	"3 - Средняя":      3,
	"4 - Высокая":      4,
	"5 - Максимальная": 5,
	// Novelty
	"1 - Копипаста":                 1,
	"2 - Баян":                      2,
	"3 - Находка есть, прорыва нет": 3,
	"3 - Находки есть, прорыва нет": 3, // variant seen in the API
	"4 - Уникальный опыт":           4,
	"5 - 100 % свежести":            5,
	"5 - 100% свежести":             5, // variant without the inner space
	// Applicability
	"1 - Вдохновиться": 1,
	"2 - Без рецепта":  2,
	"3 - Фрагментарно": 3,
	"4 - Toolkit":      4,
	"5 - Под ключ":     5,
	"5 -Под ключ":      5, // legacy spacing typo
	// Reach (the "IT" here arrives in every script mix imaginable)
	"1 - Для Профи":          1,
	"2 - Для своих":          2,
	"3 - Связующее звено":    3,
	"4 - Для всей команды":   4,
	"5 - Для всей IT кухни":  5,
	"5 - Для всей ІТ кухни":  5, // Cyrillic І, Т
	"5 - Для всей IТ кухни":  5, // Latin I + Cyrillic Т
	"5 - Для всей ІT кухни":  5, // Cyrillic І + Latin T
	// Presenter experience
	"1 - Низкий":        1,
	"2 - Ниже среднего": 2,
	"3 - Средний":       3,
	"4 - Высокий":       4,
	"5 - Экспертный":    5,
	// Charisma (the scale wording differs from experience)
	"1 - Низкое качество":          1,
	"2 - Ниже среднего качества":   2,
	"3 - Среднее качество":         3,
	"4 - Выше среднего":            4,
	"5 - Высокое качество":         5,
	"1 - Нет записей или опыта":    1, // charisma scale variant in the API
	"2 - Очень ограниченный опыт":  2,
	"4 - Хороший уровень":          4,
	"5 - Отлично":                  5,
	// Influencer flag
	"Да":  1,
	"Нет": 0,
	"Yes": 1,
	"No":  0,
}

// DefaultScores returns the built-in label table.
func DefaultScores() *ScoreTable {
	return NewScoreTable(defaultScores)
}
