// Package orchestrator implements the Per-File Orchestrator: the
// 5-stage fail-safe pipeline that runs one layer
// against one file's content and either accepts a validated candidate
// or reverts to the original.
package orchestrator

import (
	"context"
	"errors"
	"sync"

	"neurolint/internal/layers"
	"neurolint/internal/logging"
	"neurolint/internal/source"
	"neurolint/internal/validator"
)

// ErrTransformRejected is the error kind attached to a LayerResult when
// neither the AST attempt nor its regex fallback survived validation.
var ErrTransformRejected = errors.New("orchestrator: transform rejected by validator")

// Orchestrator runs the 5-stage fail-safe for a single (file, layer)
// pair. It is a pure function of its inputs plus the layer's own
// (possibly stateful) invocation — it never touches disk itself.
type Orchestrator struct {
	// parserMu guards parser: the Pipeline Driver runs one Orchestrator
	// across many files concurrently, and *source.Parser's underlying
	// tree-sitter parsers are not goroutine-safe, so every Parse this
	// orchestrator triggers (via the Validator) serializes through this
	// mutex rather than each file owning a dedicated Parser.
	parserMu      sync.Mutex
	parser        *source.Parser
	validatorOpts validator.Options
}

// New constructs an Orchestrator sharing parser across all (file,
// layer) invocations, since *source.Parser holds loaded grammars that
// are expensive to reinitialize per call.
func New(parser *source.Parser, opts validator.Options) *Orchestrator {
	return &Orchestrator{parser: parser, validatorOpts: opts}
}

// validate serializes access to the shared parser around a single
// Validator pass.
func (o *Orchestrator) validate(ctx context.Context, path string, lang source.Language, original, candidate []byte) validator.Result {
	o.parserMu.Lock()
	defer o.parserMu.Unlock()
	return validator.Validate(ctx, o.parser, path, lang, original, candidate, o.validatorOpts)
}

// Run executes the 5-stage pipeline for one layer against one file's
// current content, given the language to validate against.
func (o *Orchestrator) Run(ctx context.Context, layer layers.Layer, path string, lang source.Language, content []byte, lctx layers.Context) layers.Result {
	timer := logging.StartTimer(logging.CategoryOrchestrator, "run:"+path+":"+layer.Name())
	defer timer.Stop()

	// Stage 1: AST attempt.
	astResult, err := layer.Transform(ctx, content, lctx)
	if err != nil {
		return o.revert(layer, content, err)
	}
	if !astResult.Changed() && len(astResult.Findings) == 0 {
		// No-op: stage is done, nothing to validate.
		astResult.Success = true
		return astResult
	}

	// Stage 2: first validation.
	if astResult.Success {
		v := o.validate(ctx, path, lang, content, astResult.Code)
		if v.Verified {
			return o.accept(layer, astResult, layers.DiagAccepted)
		}
		logging.OrchestratorDebug("%s: AST attempt rejected by validator (%s: %s)", path, v.Check, v.Reason)
	}

	// Stage 3: fallback, run against the ORIGINAL input, not the
	// rejected AST output.
	if !layer.HasFallback() {
		return o.revert(layer, content, ErrTransformRejected)
	}
	fallbackResult, err := layer.RegexFallback(ctx, content, lctx)
	if err != nil {
		return o.revert(layer, content, err)
	}
	if !fallbackResult.Changed() {
		return o.revert(layer, content, ErrTransformRejected)
	}

	// Stage 4: second validation.
	v := o.validate(ctx, path, lang, content, fallbackResult.Code)
	if !v.Verified {
		logging.OrchestratorDebug("%s: fallback rejected by validator (%s: %s)", path, v.Check, v.Reason)
		return o.revert(layer, content, ErrTransformRejected)
	}

	// Stage 5: accept the fallback output.
	return o.accept(layer, fallbackResult, layers.DiagFallbackAccepted)
}

func (o *Orchestrator) accept(layer layers.Layer, result layers.Result, kind layers.DiagnosticKind) layers.Result {
	result.Success = true
	result.Diagnostics = append(result.Diagnostics, layers.Diagnostic{Kind: kind})
	return result
}

func (o *Orchestrator) revert(layer layers.Layer, original []byte, err error) layers.Result {
	return layers.Result{
		LayerID:      layer.ID(),
		Success:      false,
		OriginalCode: original,
		Code:         original,
		Error:        err,
		Diagnostics:  []layers.Diagnostic{{Kind: layers.DiagRejected, Message: err.Error()}},
	}
}
