package layers

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurolint/internal/rules"
	"neurolint/internal/source"
	"neurolint/internal/translog"
	"neurolint/internal/validator"
)

func newAdaptiveFixture(t *testing.T) (*AdaptiveLayer, *rules.Store, *translog.Logger) {
	t.Helper()
	dir := t.TempDir()

	store, err := rules.Load(filepath.Join(dir, "rules.json"), rules.DefaultOptions())
	require.NoError(t, err)

	tlog, err := translog.Open(filepath.Join(dir, "translog.json"), translog.DefaultOptions())
	require.NoError(t, err)

	parser := source.NewParser()
	t.Cleanup(parser.Close)

	l := NewAdaptiveLayer(parser, store, tlog, validator.DefaultOptions())
	return l, store, tlog
}

// Same-run edits must not be applied until a later invocation: Harvest
// runs, but the rule it produces can only be used once it has
// round-tripped through the store on a subsequent Transform call. The
// prior result here simulates component hygiene (layer 3) having
// removed a console.log call from some earlier file in this run.
func TestAdaptiveLayerDefersSameRunRules(t *testing.T) {
	l, store, _ := newAdaptiveFixture(t)

	prior := Result{
		LayerID: IDComponentHygiene, Success: true, ChangeCount: 1,
		OriginalCode: []byte("console.log('x');\n"),
		Code:         []byte(""),
	}
	lctx := Context{
		FilePath: "a.ts", Language: source.LangTS,
		Prior: NewPriorResultsView([]Result{prior}),
	}

	r, err := l.Transform(context.Background(), []byte("console.log('q');\n"), lctx)
	require.NoError(t, err)
	assert.False(t, r.Changed(), "a rule learned during this Transform must not apply within the same call")
	assert.NotEmpty(t, store.All(), "the edit should still have been ingested into the store")

	r2, err := l.Transform(context.Background(), []byte("console.log('z');\n"), Context{FilePath: "b.ts", Language: source.LangTS})
	require.NoError(t, err)
	assert.True(t, r2.Changed(), "a rule learned on a prior call should now be applicable")
	assert.NotContains(t, string(r2.Code), "console.log")
}

// Cross-session learning: a rule persisted to the Transformation Logger
// by an earlier process must be harvested and applied within a single,
// fresh invocation of a new AdaptiveLayer instance.
func TestAdaptiveLayerLearnsFromPersistedHistory(t *testing.T) {
	dir := t.TempDir()

	store, err := rules.Load(filepath.Join(dir, "rules.json"), rules.DefaultOptions())
	require.NoError(t, err)
	tlog, err := translog.Open(filepath.Join(dir, "translog.json"), translog.DefaultOptions())
	require.NoError(t, err)

	require.NoError(t, tlog.Append(translog.Entry{
		Timestamp: time.Now().Add(-time.Hour), SessionID: "past-session", File: "old.ts",
		LayerID: int(IDComponentHygiene), LayerName: "component_hygiene",
		BeforeSnippet: "console.log('x');", AfterSnippet: "",
	}))

	parser := source.NewParser()
	t.Cleanup(parser.Close)
	l := NewAdaptiveLayer(parser, store, tlog, validator.DefaultOptions())

	content := []byte("function run() {\n  console.log('y');\n  return 1;\n}\n")
	r, err := l.Transform(context.Background(), content, Context{FilePath: "fresh.ts", Language: source.LangTS})
	require.NoError(t, err)
	require.True(t, r.Changed(), "a rule learned from a prior session's log entry should apply on the very next invocation")
	assert.NotContains(t, string(r.Code), "console.log")
}

// A candidate that fails validation must have its effect discarded
// (not poison the whole output) and its rule's confidence decayed,
// while a rule whose candidate passes is reinforced.
func TestAdaptiveLayerValidatesEachRuleIndividually(t *testing.T) {
	l, store, _ := newAdaptiveFixture(t)

	goodID := "learned:test:good"
	_, err := store.AddRule(goodID, rules.OriginLearned,
		rules.MatchSpec{Kind: rules.MatchRegex, Regex: `console\.log\([^)]*\)\s*;?`},
		rules.TransformSpec{Kind: rules.MatchRegex, Replacement: ""},
		rules.SeedConfidenceLearned)
	require.NoError(t, err)

	badID := "learned:test:bad"
	// This rule's replacement would strip a closing brace, breaking balance.
	_, err = store.AddRule(badID, rules.OriginLearned,
		rules.MatchSpec{Kind: rules.MatchRegex, Regex: `\}\s*$`},
		rules.TransformSpec{Kind: rules.MatchRegex, Replacement: ""},
		rules.SeedConfidenceLearned)
	require.NoError(t, err)

	content := []byte("function run() {\n  console.log('y');\n  return 1;\n}\n")
	r, err := l.Transform(context.Background(), content, Context{FilePath: "mixed.ts", Language: source.LangTS})
	require.NoError(t, err)
	require.True(t, r.Changed())
	assert.NotContains(t, string(r.Code), "console.log", "the good rule's effect should survive")

	byID := make(map[string]*rules.Rule)
	for _, rr := range store.All() {
		byID[rr.ID] = rr
	}
	assert.Greater(t, byID[goodID].Confidence, rules.SeedConfidenceLearned, "good rule should be reinforced")
	assert.Less(t, byID[badID].Confidence, rules.SeedConfidenceLearned, "bad rule should be decayed")
}
