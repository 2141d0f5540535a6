package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAcceptsBareAndSlashedLabels(t *testing.T) {
	assert.Equal(t, IntentCreate, ParseIntentKind("create"))
	assert.Equal(t, IntentCreate, ParseIntentKind("/create"))
	assert.Equal(t, IntentCreate, ParseIntentKind("  Create "))

	assert.Equal(t, ActionAPICall, ParseActionKind("api_call"))
	assert.Equal(t, ActionAPICall, ParseActionKind("/API_CALL"))

	assert.Equal(t, PriorityCritical, ParsePriority("critical"))
	assert.Equal(t, StatusValidated, ParseGraphStatus("validated"))
}

func TestParseFallbacks(t *testing.T) {
	assert.Equal(t, IntentAnalyze, ParseIntentKind("summon"))
	assert.Equal(t, IntentAnalyze, ParseIntentKind(""))
	assert.Equal(t, ConstraintImplicit, ParseConstraintKind("mystery"))
	assert.Equal(t, ActionReasoning, ParseActionKind("dance"))
	assert.Equal(t, PriorityMedium, ParsePriority("urgent-ish"))
	assert.Equal(t, StatusDraft, ParseGraphStatus("launched"))
}

func TestPriorityRankOrdering(t *testing.T) {
	assert.Less(t, PriorityCritical.Rank(), PriorityHigh.Rank())
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
	// Unknown priorities schedule as medium.
	assert.Equal(t, PriorityMedium.Rank(), Priority("/whatever").Rank())
}

func TestStripAtomPrefix(t *testing.T) {
	assert.Equal(t, "api_call", StripAtomPrefix("/api_call"))
	assert.Equal(t, "bare", StripAtomPrefix("bare"))
}
