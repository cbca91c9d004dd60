// Package codeintel inspects code samples embedded in documents. It reports
// whether a sample parses, handles errors, and carries documentation or type
// information.
package codeintel

import "strings"

// Language identifies a supported grammar.
type Language string

const (
	LangGo         Language = "go"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangUnknown    Language = ""
)

// DetectLanguage maps a fence info tag such as "golang" or "py" to a
// Language. Unrecognized tags return LangUnknown.
func DetectLanguage(tag string) Language {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "go", "golang":
		return LangGo
	case "ts", "typescript", "js", "javascript", "mjs", "cjs":
		return LangTypeScript
	case "tsx", "jsx":
		return LangTSX
	case "py", "python", "python3":
		return LangPython
	case "rs", "rust":
		return LangRust
	default:
		return LangUnknown
	}
}

// Report summarizes one code sample.
type Report struct {
	Language Language `json:"language"`

	// Parsed is set when a grammar, not the lexical fallback, produced the
	// report.
	Parsed bool `json:"parsed"`

	// SyntaxError is set when the grammar found malformed input.
	SyntaxError bool `json:"syntaxError"`

	// ErrorHandling is set when the sample checks, propagates or raises
	// errors.
	ErrorHandling bool `json:"errorHandling"`

	// Documented is set when the sample carries doc comments or explicit
	// type declarations.
	Documented bool `json:"documented"`
}

// Analyzer produces a Report for a code sample.
type Analyzer interface {
	Analyze(tag, source string) Report
}
