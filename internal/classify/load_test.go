package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRulesFileOverridesSubset(t *testing.T) {
	path := writeRulesFile(t, `
quality:
  gold_sum: 14
  gold_label: Platinum
presenter:
  truthy: ["да", "ja"]
scores:
  "5 - Кастомная": 5
`)

	rf, err := LoadRulesFile(path)
	require.NoError(t, err)

	// Overridden values.
	assert.Equal(t, float64(14), rf.Quality.GoldSum)
	assert.Equal(t, "Platinum", rf.Quality.Gold)
	assert.Equal(t, []string{"да", "ja"}, rf.Presenter.Truthy)
	assert.Equal(t, float64(5), rf.Scores["5 - Кастомная"])

	// Omitted values keep their defaults.
	assert.Equal(t, float64(4), rf.Quality.GoldEach)
	assert.Equal(t, "Silver", rf.Quality.Silver)
	assert.Equal(t, "Hardcore", rf.Content.Hardcore)
	assert.Equal(t, "For everyone", rf.Reach.Everyone)
}

func TestLoadRulesFileRejectsUnknownKeys(t *testing.T) {
	path := writeRulesFile(t, `
quality:
  golden_sum: 14
`)

	_, err := LoadRulesFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
}

func TestLoadRulesFileRejectsWrongTypes(t *testing.T) {
	path := writeRulesFile(t, `
quality:
  gold_sum: "thirteen"
`)

	_, err := LoadRulesFile(path)
	require.Error(t, err)
}

func TestLoadRulesFileMissingFile(t *testing.T) {
	_, err := LoadRulesFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadRulesFileEmptyKeepsDefaults(t *testing.T) {
	path := writeRulesFile(t, "")

	rf, err := LoadRulesFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rf.Rules)
	assert.Empty(t, rf.Scores)
}

func TestValidateRulesBytesReportsLocation(t *testing.T) {
	errs := ValidateRulesBytes([]byte("reach:\n  everyone_label: 5\n"))
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "everyone_label")
}

func TestValidateRulesBytesAcceptsValid(t *testing.T) {
	errs := ValidateRulesBytes([]byte("content_type:\n  hardcore_reach_max: 3\n"))
	assert.Empty(t, errs)
}
