package layers

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
	"sync"
	"time"

	"neurolint/internal/astdiff"
	"neurolint/internal/rules"
	"neurolint/internal/source"
	"neurolint/internal/translog"
	"neurolint/internal/validator"
)

// AdaptiveLayer is layer 7: the cross-session, confidence-weighted rule
// engine. It harvests structural diffs from this run's earlier mutating
// layers plus persisted history from the Transformation Logger, extracts
// candidate Rules, persists them to the Rule Store, then applies
// previously-persisted high-confidence rules to the current file.
//
// It never applies a rule extracted during the same invocation before
// that rule has round-tripped through the store: same-run harvest runs
// after this invocation's applicable-rule snapshot is taken, so a rule
// learned from this file (or another file processed earlier in this
// run) only becomes eligible on a later invocation. Persisted history
// from a prior run is different: it already round-tripped through a
// past session's store, so it is harvested before the snapshot and can
// be applied in this same call — this is what makes cross-session
// learning observable in a single, fresh invocation.
type AdaptiveLayer struct {
	base
	// parserMu guards parser: one Parser is shared across every file this
	// run processes concurrently, and tree-sitter's *sitter.Parser is not
	// goroutine-safe (see source.Parser's doc comment), so Harvest's parse
	// calls serialize through this mutex rather than each file owning a
	// dedicated Parser instance.
	parserMu      sync.Mutex
	parser        *source.Parser
	store         *rules.Store
	log           *translog.Logger
	validatorOpts validator.Options
	historyOnce   sync.Once
}

// NewAdaptiveLayer constructs layer 7.
func NewAdaptiveLayer(parser *source.Parser, store *rules.Store, log *translog.Logger, validatorOpts validator.Options) *AdaptiveLayer {
	return &AdaptiveLayer{base: base{id: IDAdaptive, name: "adaptive"}, parser: parser, store: store, log: log, validatorOpts: validatorOpts}
}

func (l *AdaptiveLayer) Transform(ctx context.Context, content []byte, lctx Context) (Result, error) {
	l.harvestHistory(ctx)
	applicable := l.store.Applicable()

	l.harvestAndIngest(ctx, lctx)
	l.seedSecurityRules()

	out, applied := l.applyRules(ctx, lctx, content, applicable)
	if len(applied) == 0 {
		return noop(l.id, content), nil
	}

	diags := make([]Diagnostic, 0, len(applied))
	for _, r := range applied {
		diags = append(diags, Diagnostic{Kind: DiagRuleApplied, Message: "applied rule " + r.ID})
	}

	return Result{
		LayerID: l.id, Success: true, ChangeCount: len(applied),
		OriginalCode: content, Code: out,
		Diagnostics: diags,
	}, nil
}

// harvestHistory ingests every entry the Transformation Logger has
// recorded, across all prior sessions, exactly once per AdaptiveLayer
// instance (a fresh instance is constructed per run). Re-ingesting the
// same entries on a later run is harmless: AddRule merges by MatchSpec
// equality and only reinforces, it never duplicates.
func (l *AdaptiveLayer) harvestHistory(ctx context.Context) {
	l.historyOnce.Do(func() {
		if l.log == nil {
			return
		}
		entries, err := l.log.Iterate(time.Time{})
		if err != nil {
			return
		}
		for _, e := range entries {
			if e.BeforeSnippet == "" && e.AfterSnippet == "" {
				continue
			}
			l.ingestEdit(ID(e.LayerID), astdiff.Edit{Before: e.BeforeSnippet, After: e.AfterSnippet})
		}
	})
}

// harvestAndIngest runs the Harvest+Extract+Ingest steps (4.J, steps
// 1-3) against this run's prior LayerResults.
func (l *AdaptiveLayer) harvestAndIngest(ctx context.Context, lctx Context) {
	for _, prior := range lctx.Prior.All() {
		if prior.LayerID == l.id || prior.ChangeCount == 0 || !prior.Success {
			continue
		}
		edits := l.diffPrior(ctx, lctx.FilePath, prior)
		if edits == nil {
			continue
		}

		for _, e := range edits {
			l.ingestEdit(prior.LayerID, e)
		}
	}
}

// diffPrior parses a prior layer's before/after content and diffs them,
// holding parserMu for the duration since l.parser is shared.
func (l *AdaptiveLayer) diffPrior(ctx context.Context, path string, prior Result) []astdiff.Edit {
	l.parserMu.Lock()
	defer l.parserMu.Unlock()

	beforeTree, err := l.parser.Parse(ctx, path, prior.OriginalCode)
	if err != nil {
		return nil
	}
	defer beforeTree.Close()
	afterTree, err := l.parser.Parse(ctx, path, prior.Code)
	if err != nil {
		return nil
	}
	defer afterTree.Close()

	return astdiff.Diff(beforeTree, afterTree)
}

// ingestEdit maps one structural Edit (or a persisted log entry,
// reshaped into the same Before/After pair) to a candidate Rule and
// ingests it. Edits sourced from layer 1 (config) or layer 3
// (component hygiene) seed at OriginLearned; everything else seeds at
// OriginGeneric. Whichever origin applies, the match pattern itself
// prefers generalizeCallRemoval's wildcard over a literal match
// whenever the edit is a whole call statement being deleted.
func (l *AdaptiveLayer) ingestEdit(sourceLayer ID, e astdiff.Edit) {
	if e.Before == "" && e.After == "" {
		return
	}
	origin := rules.OriginGeneric
	seed := rules.SeedConfidenceGeneric
	switch sourceLayer {
	case IDConfig:
		origin = rules.OriginLearned
		seed = rules.SeedConfidenceLearned
	case IDComponentHygiene:
		origin = rules.OriginLearned
		seed = rules.SeedConfidenceLearned
	}

	match := rules.MatchSpec{Kind: rules.MatchRegex, Regex: regexp.QuoteMeta(e.Before)}
	transform := rules.TransformSpec{Kind: rules.MatchRegex, Replacement: e.After}
	if pattern, ok := generalizeCallRemoval(e.Before, e.After); ok {
		match.Regex = pattern
		transform.Replacement = ""
	}
	id := ruleID(sourceLayer, e.Before, e.After)

	l.store.AddRule(id, origin, match, transform, seed)
}

// callStatementRe matches a single bare call statement: `<callee>(<args>);`
// with an optional trailing semicolon, and no nested parens in the
// callee or argument text (the simple, common case this generalizer
// targets).
var callStatementRe = regexp.MustCompile(`^([A-Za-z_$][\w$.]*)\(([^()]*)\)\s*;?$`)

// generalizeCallRemoval recognizes edits that delete an entire call
// statement (e.g. `console.log('x');` -> ``) and generalizes the
// removed call's argument list into a wildcard, so the learned rule
// matches any call to the same function instead of only the literal
// argument text this one edit happened to observe.
func generalizeCallRemoval(before, after string) (string, bool) {
	if strings.TrimSpace(after) != "" {
		return "", false
	}
	m := callStatementRe.FindStringSubmatch(strings.TrimSpace(before))
	if m == nil {
		return "", false
	}
	callee := regexp.QuoteMeta(m[1])
	return callee + `\([^)]*\)\s*;?`, true
}

// seedSecurityRules ensures the seven named security categories
// exist in the store at their seed confidence (0.95), idempotently —
// AddRule merges on exact MatchSpec equality rather than duplicating.
// These seven are well-known, stable signatures rather than ones
// derived from this run's own scanner findings, since the scanner
// (layer 8) always runs after the adaptive layer within a single pass
// and so has nothing to hand off in the same invocation.
func (l *AdaptiveLayer) seedSecurityRules() {
	for _, s := range securitySeedRules {
		l.store.AddRule(s.id, rules.OriginSecurity, s.match, s.transform, rules.SeedConfidenceSecurity)
	}
}

type securitySeed struct {
	id        string
	match     rules.MatchSpec
	transform rules.TransformSpec
}

var securitySeedRules = []securitySeed{
	{
		id:        "security:eval",
		match:     rules.MatchSpec{Kind: rules.MatchRegex, Regex: `\beval\(`},
		transform: rules.TransformSpec{Kind: rules.MatchRegex, Replacement: ""},
	},
	{
		id:        "security:innerHTML",
		match:     rules.MatchSpec{Kind: rules.MatchRegex, Regex: `\.innerHTML\s*=`},
		transform: rules.TransformSpec{Kind: rules.MatchRegex, Replacement: ""},
	},
	{
		id:        "security:dangerously-set-inner-html",
		match:     rules.MatchSpec{Kind: rules.MatchRegex, Regex: `dangerouslySetInnerHTML`},
		transform: rules.TransformSpec{Kind: rules.MatchRegex, Replacement: ""},
	},
	{
		id:        "security:hardcoded-credential",
		match:     rules.MatchSpec{Kind: rules.MatchRegex, Regex: `(?i)(api[_-]?key|secret|password)\s*=\s*["'][^"']{8,}["']`},
		transform: rules.TransformSpec{Kind: rules.MatchRegex, Replacement: ""},
	},
	{
		id:        "security:command-injection",
		match:     rules.MatchSpec{Kind: rules.MatchRegex, Regex: `child_process\.(exec|execSync)\(`},
		transform: rules.TransformSpec{Kind: rules.MatchRegex, Replacement: ""},
	},
	{
		id:        "security:sql-template-injection",
		match:     rules.MatchSpec{Kind: rules.MatchRegex, Regex: "`[^`]*(SELECT|INSERT|UPDATE|DELETE)[^`]*\\$\\{",
		},
		transform: rules.TransformSpec{Kind: rules.MatchRegex, Replacement: ""},
	},
	{
		id:        "security:contextual-catchall",
		match:     rules.MatchSpec{Kind: rules.MatchRegex, Regex: `new Function\(`},
		transform: rules.TransformSpec{Kind: rules.MatchRegex, Replacement: ""},
	},
}

// applyRules runs every applicable rule's regex match against content in
// confidence order, replacing the first match per rule and validating
// the result immediately after: a candidate that doesn't survive the
// Validator has its effect discarded (the running content reverts to
// its pre-replacement state) and the rule's confidence decays, rather
// than letting one bad rule poison every other rule's contribution in
// the same pass. A rule whose candidate does survive is reinforced.
// Security seed rules above carry an empty Replacement and exist for
// the scanner to flag, not for this layer to rewrite; a learned or
// generic rule with an empty Replacement is different — it means
// "delete the match" (e.g. a whole removed call statement), so only
// OriginSecurity rules are skipped here.
func (l *AdaptiveLayer) applyRules(ctx context.Context, lctx Context, content []byte, applicable []*rules.Rule) ([]byte, []*rules.Rule) {
	out := content
	var applied []*rules.Rule
	for _, r := range applicable {
		if r.Match.Kind != rules.MatchRegex || r.Origin == rules.OriginSecurity {
			continue
		}
		re, err := regexp.Compile(r.Match.Regex)
		if err != nil {
			continue
		}
		if !re.Match(out) {
			continue
		}
		candidate := re.ReplaceAll(out, []byte(r.Transform.Replacement))

		v := l.validate(ctx, lctx.FilePath, lctx.Language, out, candidate)
		if !v.Verified {
			l.store.Decay(r.ID)
			continue
		}

		out = candidate
		applied = append(applied, r)
		l.store.Reinforce(r.ID)
	}
	return out, applied
}

// validate serializes access to the shared parser around a single
// Validator pass, the same discipline diffPrior uses for harvesting.
func (l *AdaptiveLayer) validate(ctx context.Context, path string, lang source.Language, original, candidate []byte) validator.Result {
	l.parserMu.Lock()
	defer l.parserMu.Unlock()
	return validator.Validate(ctx, l.parser, path, lang, original, candidate, l.validatorOpts)
}

func ruleID(sourceLayer ID, before, after string) string {
	h := sha1.New()
	h.Write([]byte(before))
	h.Write([]byte{0})
	h.Write([]byte(after))
	sum := h.Sum(nil)
	return "learned:" + string(rune('0'+int(sourceLayer))) + ":" + hex.EncodeToString(sum[:8])
}
