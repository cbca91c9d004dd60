package codeintel

import "regexp"

var (
	lexErrorRe = regexp.MustCompile(`(?i)\b(try|catch|except|raise|throw|rescue|on error)\b|\berr\s*!=\s*nil|\bResult<|\.catch\(|\?;|\bRAISE\b`)
	lexDocRe   = regexp.MustCompile(`(?m)^\s*(///|/\*\*|"""|--\s+\S|#\s+\S|//\s+\S)|->\s*[A-Za-z_]|\b(interface|type|struct|enum|class)\s+[A-Za-z_]|:\s*(string|number|boolean|int|str|float|bool)\b`)
)

// LexicalAnalyzer classifies samples with regular expressions. It serves
// languages without a registered grammar and never reports syntax errors.
type LexicalAnalyzer struct{}

// Analyze implements Analyzer.
func (LexicalAnalyzer) Analyze(tag, source string) Report {
	return Report{
		Language:      DetectLanguage(tag),
		ErrorHandling: lexErrorRe.MatchString(source),
		Documented:    lexDocRe.MatchString(source),
	}
}
