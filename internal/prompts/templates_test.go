package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/glimpse/pkg/types"
)

func TestSelectPrefersDomainMatch(t *testing.T) {
	lib := NewLibrary()

	got := lib.Select(types.ObjectiveSolve, "development")
	assert.Equal(t, "solve-dev-v1", got.ID)

	got = lib.Select(types.ObjectiveSolve, "writing")
	assert.Equal(t, "solve-generic-v1", got.ID)
}

func TestSelectUsageBonus(t *testing.T) {
	lib := &Library{}
	lib.Register(types.PromptTemplate{
		ID: "a", Objective: types.ObjectiveSolve, SuccessRate: 0.7,
	})
	lib.Register(types.PromptTemplate{
		ID: "b", Objective: types.ObjectiveSolve, SuccessRate: 0.7, UsageCount: 50,
	})

	// Equal success rates, so the 50-use template wins on popularity.
	got := lib.Select(types.ObjectiveSolve, "general")
	assert.Equal(t, "b", got.ID)
}

func TestSelectTieKeepsRegistrationOrder(t *testing.T) {
	lib := &Library{}
	lib.Register(types.PromptTemplate{ID: "first", Objective: types.ObjectiveExplain, SuccessRate: 0.5})
	lib.Register(types.PromptTemplate{ID: "second", Objective: types.ObjectiveExplain, SuccessRate: 0.5})

	got := lib.Select(types.ObjectiveExplain, "general")
	assert.Equal(t, "first", got.ID)
}

func TestSelectFallsBackToGeneric(t *testing.T) {
	lib := &Library{}

	got := lib.Select(types.ObjectiveGenerate, "development")
	assert.Equal(t, "generic-generate", got.ID)
	assert.Equal(t, types.ObjectiveGenerate, got.Objective)
	assert.NotEmpty(t, got.Body)
}

func TestRecordOutcome(t *testing.T) {
	lib := &Library{}
	lib.Register(types.PromptTemplate{ID: "t", Objective: types.ObjectiveSolve})

	lib.RecordUse("t")
	lib.RecordOutcome("t", true)
	require.Equal(t, 1.0, lib.Templates()[0].SuccessRate)

	lib.RecordUse("t")
	lib.RecordOutcome("t", false)
	assert.InDelta(t, 0.5, lib.Templates()[0].SuccessRate, 1e-9)
	assert.Equal(t, 2, lib.Templates()[0].UsageCount)
}

func TestBuiltinTemplatesDeclareRequiredVariables(t *testing.T) {
	for _, tmpl := range NewLibrary().Templates() {
		names := make(map[string]bool)
		for _, v := range tmpl.Variables {
			names[v.Name] = true
		}
		assert.True(t, names["USER_QUERY"], tmpl.ID)
		assert.True(t, names["CONTEXT"], tmpl.ID)
	}
}
