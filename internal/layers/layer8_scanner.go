package layers

import (
	"context"

	"neurolint/internal/scanner"
)

// SignatureScannerLayer is the read-only IoC scanner (layer 8). It never
// mutates code: Code always equals OriginalCode, and its observations
// surface only as Findings.
type SignatureScannerLayer struct {
	base
	db   *scanner.Database
	opts scanner.Options
}

// NewSignatureScannerLayer constructs layer 8 over a loaded signature database.
func NewSignatureScannerLayer(db *scanner.Database, opts scanner.Options) *SignatureScannerLayer {
	return &SignatureScannerLayer{base: base{id: IDSignatureScanner, name: "signature-scanner"}, db: db, opts: opts}
}

func (l *SignatureScannerLayer) Transform(ctx context.Context, content []byte, lctx Context) (Result, error) {
	findings, err := scanner.Scan(ctx, l.db, lctx.FilePath, content, l.opts)
	if err != nil {
		return Result{LayerID: l.id, Success: false, OriginalCode: content, Code: content, Error: err}, nil
	}
	if len(findings) == 0 {
		return noop(l.id, content), nil
	}

	out := make([]Finding, 0, len(findings))
	maxSeverity := SeverityInfo
	for _, f := range findings {
		sev := Severity(f.Severity)
		if sev.Rank() > maxSeverity.Rank() {
			maxSeverity = sev
		}
		out = append(out, Finding{
			SignatureID: f.SignatureID, Name: f.Name, Category: f.Category, Severity: sev,
			File: f.File, Snippet: f.Snippet, Remediation: f.Remediation,
		})
	}

	return Result{
		LayerID: l.id, Success: true, ChangeCount: 0,
		OriginalCode: content, Code: content,
		Findings: out,
		Diagnostics: []Diagnostic{{Kind: DiagAccepted, Message: "scan complete, max severity " + string(maxSeverity)}},
	}, nil
}
