package scanner

// DefaultSignatures is the small embedded default set covering the
// seven categories the adaptive layer seeds (4.J) plus a handful of
// general IoCs. Overridable/extendable via .neurolint/signatures/*.yaml.
func DefaultSignatures() []Signature {
	return []Signature{
		{
			ID: "eval-usage", Name: "Use of eval()", Category: "code-execution",
			Severity: SeverityHigh, Kind: KindRegex, Pattern: `\beval\(`,
			FileTypes:   []string{".ts", ".tsx", ".js", ".jsx"},
			Remediation: "Replace eval() with an explicit parser or JSON.parse where structured data was intended.",
		},
		{
			ID: "inner-html-assignment", Name: "Direct innerHTML assignment", Category: "xss",
			Severity: SeverityHigh, Kind: KindRegex, Pattern: `\.innerHTML\s*=`,
			FileTypes:   []string{".ts", ".tsx", ".js", ".jsx"},
			Remediation: "Use textContent or a sanitizing renderer instead of assigning raw HTML.",
		},
		{
			ID: "dangerously-set-inner-html", Name: "dangerouslySetInnerHTML usage", Category: "xss",
			Severity: SeverityMedium, Kind: KindRegex, Pattern: `dangerouslySetInnerHTML`,
			FileTypes:   []string{".tsx", ".jsx"},
			Remediation: "Sanitize the HTML source (e.g. DOMPurify) before passing it to dangerouslySetInnerHTML.",
		},
		{
			ID: "hardcoded-credential", Name: "Hardcoded credential-like literal", Category: "secrets",
			Severity: SeverityCritical, Kind: KindRegex,
			Pattern:     `(?i)(api[_-]?key|secret|password)\s*=\s*["'][^"']{8,}["']`,
			FileTypes:   []string{".ts", ".tsx", ".js", ".jsx"},
			Remediation: "Move credentials to environment variables or a secrets manager.",
		},
		{
			ID: "command-injection", Name: "child_process exec with dynamic input", Category: "command-injection",
			Severity: SeverityCritical, Kind: KindRegex, Pattern: `child_process\.(exec|execSync)\(`,
			FileTypes:   []string{".ts", ".js"},
			Remediation: "Use execFile/spawn with an argument array instead of a shell-interpolated command string.",
		},
		{
			ID: "sql-template-injection", Name: "SQL built from a template literal", Category: "sql-injection",
			Severity: SeverityCritical, Kind: KindRegex,
			Pattern:     "`[^`]*(SELECT|INSERT|UPDATE|DELETE)[^`]*\\$\\{",
			FileTypes:   []string{".ts", ".js"},
			Remediation: "Use parameterized queries instead of interpolating values into SQL text.",
		},
		{
			ID: "dynamic-function-construction", Name: "new Function() construction", Category: "code-execution",
			Severity: SeverityHigh, Kind: KindRegex, Pattern: `new Function\(`,
			FileTypes:   []string{".ts", ".tsx", ".js", ".jsx"},
			Remediation: "Avoid constructing functions from strings at runtime.",
		},
		{
			ID: "hardcoded-aws-key", Name: "Hardcoded AWS access key", Category: "secrets",
			Severity: SeverityCritical, Kind: KindRegex, Pattern: `\bAKIA[0-9A-Z]{16}\b`,
			FileTypes:   []string{".ts", ".tsx", ".js", ".jsx", ".json"},
			Remediation: "Revoke the key and move credentials to environment variables or a secrets manager.",
		},
		{
			ID: "tainted-fetch-from-request", Name: "fetch() argument sourced from request/context", Category: "ssrf",
			Severity: SeverityMedium, Kind: KindAST, Pattern: "call(callee=fetch, arg_root in [req, request, context])",
			FileTypes:   []string{".ts", ".tsx"},
			Remediation: "Validate or allow-list the URL host before making a server-side fetch with request-derived input.",
		},
	}
}
