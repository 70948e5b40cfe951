package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"neurolint/internal/config"
	"neurolint/internal/driver"
	"neurolint/internal/layers"
	"neurolint/internal/orchestrator"
	"neurolint/internal/scanner"
)

// Exit codes: 0 clean, 1 findings at or above fail_on, 2 a layer
// reverted (transform rejected, file left untouched), 3 an engine
// error (read/write/backup failure unrelated to any file's content).
const (
	exitClean     = 0
	exitFindings  = 1
	exitReverted  = 2
	exitEngineErr = 3
)

// exitCodeForError recovers the error kind a command-level failure
// carries (config.ErrConfig, scanner.ErrBounded, driver.ErrIO,
// orchestrator.ErrTransformRejected) via errors.Is, so the exit code
// reflects what actually went wrong rather than a single catch-all.
// A rejected transform reaching this far (rather than being recorded
// per-file in a RunReport) still counts as exitReverted, not an engine
// error — it means every layer for that file was reverted.
func exitCodeForError(err error) int {
	switch {
	case err == nil:
		return exitClean
	case errors.Is(err, orchestrator.ErrTransformRejected):
		return exitReverted
	case errors.Is(err, config.ErrConfig), errors.Is(err, scanner.ErrBounded), errors.Is(err, driver.ErrIO):
		return exitEngineErr
	default:
		return exitEngineErr
	}
}

// reportExitCode derives the process exit code from a completed run:
// an engine-level file failure always wins, then findings at/above
// failOn, then a clean pass.
func reportExitCode(report *driver.RunReport, failOn layers.Severity) int {
	if report.AnyFailed {
		return exitEngineErr
	}
	if hasRejectedLayer(report) {
		return exitReverted
	}
	if failOn != "" && report.MaxSeverity.Rank() >= failOn.Rank() {
		return exitFindings
	}
	return exitClean
}

func hasRejectedLayer(report *driver.RunReport) bool {
	for _, f := range report.Files {
		for _, r := range f.LayerResults {
			if !r.Success {
				return true
			}
		}
	}
	return false
}

// writeReport renders report in the requested format: "line" (default,
// human-readable), "json", or "sarif" (a minimal SARIF 2.1.0 log
// sufficient for CI annotation tooling).
func writeReport(w io.Writer, report *driver.RunReport, format string) error {
	switch format {
	case "json":
		return writeJSONReport(w, report)
	case "sarif":
		return writeSARIFReport(w, report)
	default:
		return writeLineReport(w, report)
	}
}

func writeLineReport(w io.Writer, report *driver.RunReport) error {
	for _, f := range report.Files {
		if f.Err != nil {
			fmt.Fprintf(w, "%s: ERROR: %v\n", f.Path, f.Err)
			continue
		}
		for _, r := range f.LayerResults {
			if !r.Success {
				fmt.Fprintf(w, "%s: layer %d reverted: %v\n", f.Path, r.LayerID, r.Error)
			} else if r.Changed() {
				fmt.Fprintf(w, "%s: layer %d applied (%d change(s))\n", f.Path, r.LayerID, r.ChangeCount)
			}
		}
		for _, finding := range f.Findings {
			fmt.Fprintf(w, "%s:%d: [%s] %s (%s)\n", f.Path, finding.Line, finding.Severity, finding.Name, finding.SignatureID)
		}
	}
	fmt.Fprintf(w, "\n%d file(s) processed, max severity: %s\n", len(report.Files), report.MaxSeverity)
	return nil
}

type jsonFinding struct {
	File        string `json:"file"`
	Line        int    `json:"line"`
	SignatureID string `json:"signature_id"`
	Name        string `json:"name"`
	Severity    string `json:"severity"`
	Remediation string `json:"remediation"`
}

type jsonFileReport struct {
	Path     string        `json:"path"`
	Changed  bool          `json:"changed"`
	Reverted bool          `json:"reverted"`
	Error    string        `json:"error,omitempty"`
	Findings []jsonFinding `json:"findings,omitempty"`
}

type jsonReport struct {
	Files       []jsonFileReport `json:"files"`
	MaxSeverity string           `json:"max_severity"`
	AnyFailed   bool             `json:"any_failed"`
}

func writeJSONReport(w io.Writer, report *driver.RunReport) error {
	out := jsonReport{MaxSeverity: string(report.MaxSeverity), AnyFailed: report.AnyFailed}
	for _, f := range report.Files {
		entry := jsonFileReport{Path: f.Path}
		if f.Err != nil {
			entry.Error = f.Err.Error()
		}
		for _, r := range f.LayerResults {
			if !r.Success {
				entry.Reverted = true
			} else if r.Changed() {
				entry.Changed = true
			}
		}
		for _, finding := range f.Findings {
			entry.Findings = append(entry.Findings, jsonFinding{
				File: finding.File, Line: finding.Line, SignatureID: finding.SignatureID,
				Name: finding.Name, Severity: string(finding.Severity), Remediation: finding.Remediation,
			})
		}
		out.Files = append(out.Files, entry)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

type sarifLog struct {
	Schema  string      `json:"$schema"`
	Version string      `json:"version"`
	Runs    []sarifRun  `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type sarifResult struct {
	RuleID    string           `json:"ruleId"`
	Level     string           `json:"level"`
	Message   sarifMessage     `json:"message"`
	Locations []sarifLocation  `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

func writeSARIFReport(w io.Writer, report *driver.RunReport) error {
	log := sarifLog{
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{Name: "neurolint", Version: "0.1.0"}},
		}},
	}
	for _, f := range report.Files {
		for _, finding := range f.Findings {
			log.Runs[0].Results = append(log.Runs[0].Results, sarifResult{
				RuleID: finding.SignatureID,
				Level:  sarifLevel(finding.Severity),
				Message: sarifMessage{Text: finding.Name + ": " + finding.Remediation},
				Locations: []sarifLocation{{
					PhysicalLocation: sarifPhysicalLocation{
						ArtifactLocation: sarifArtifactLocation{URI: finding.File},
						Region:           sarifRegion{StartLine: finding.Line},
					},
				}},
			})
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(log)
}

func sarifLevel(sev layers.Severity) string {
	switch sev {
	case layers.SeverityCritical, layers.SeverityHigh:
		return "error"
	case layers.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}
