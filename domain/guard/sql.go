package guard

import "strings"

type dialect struct {
	// spacedDashComments requires whitespace or a control byte after "--"
	// for it to open a comment, as MySQL does. Otherwise "1--1" is 1 - -1.
	spacedDashComments bool
	hashComments       bool
	backtickIdents     bool
	backslashEscapes   bool
	executableBlocks   bool
	dollarQuotes       bool
	nestedComments     bool
	escapeStrings      bool
}

var (
	postgresDialect = dialect{
		dollarQuotes:   true,
		nestedComments: true,
		escapeStrings:  true,
	}
	mysqlDialect = dialect{
		spacedDashComments: true,
		hashComments:       true,
		backtickIdents:     true,
		backslashEscapes:   true,
		executableBlocks:   true,
	}
)

// leadingKeywords may begin a statement.
var leadingKeywords = map[string]bool{
	"SELECT":  true,
	"SHOW":    true,
	"EXPLAIN": true,
}

// writeKeywords are rejected anywhere outside literals and comments.
var writeKeywords = map[string]bool{
	"INSERT":   true,
	"UPDATE":   true,
	"DELETE":   true,
	"DROP":     true,
	"ALTER":    true,
	"CREATE":   true,
	"TRUNCATE": true,
	"GRANT":    true,
	"REVOKE":   true,
	"MERGE":    true,
	"INTO":     true,
	"COPY":     true,
	"CALL":     true,
	"EXECUTE":  true,
	"VACUUM":   true,
	"RENAME":   true,
	"UPSERT":   true,
}

func evaluateSQL(text string, d dialect) Verdict {
	statements, ok := lexStatements(text, d)
	if !ok {
		return Reject(ReasonEmpty)
	}

	n := 0
	for _, words := range statements {
		if len(words) == 0 {
			continue
		}
		n++

		if writeKeywords[words[0]] {
			return Reject("disallowed keyword %s in statement %d", words[0], n)
		}
		if !leadingKeywords[words[0]] {
			return Reject("statement %d begins with %s; only SELECT, SHOW and EXPLAIN are permitted", n, words[0])
		}
		for _, w := range words[1:] {
			if writeKeywords[w] {
				return Reject("disallowed keyword %s in statement %d", w, n)
			}
		}
	}

	if n == 0 {
		return Reject(ReasonEmpty)
	}
	return Allow()
}

// lexStatements splits SQL into statements of upper-cased bare words.
// Literals, quoted identifiers, comments and numbers are skipped. It reports
// false for unterminated constructs and for MySQL executable comments.
func lexStatements(text string, d dialect) ([][]string, bool) {
	var (
		statements [][]string
		current    []string
	)

	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == ';':
			statements = append(statements, current)
			current = nil
			i++

		case c == '\'':
			escapes := d.backslashEscapes
			if d.escapeStrings && (at(text, i-1) == 'E' || at(text, i-1) == 'e') && !isWordByte(at(text, i-2)) {
				escapes = true
			}
			end := skipString(text, i, '\'', escapes)
			if end < 0 {
				return nil, false
			}
			i = end

		case c == '"':
			end := skipString(text, i, '"', d.backslashEscapes)
			if end < 0 {
				return nil, false
			}
			i = end

		case c == '`' && d.backtickIdents:
			end := skipString(text, i, '`', false)
			if end < 0 {
				return nil, false
			}
			i = end

		case c == '-' && at(text, i+1) == '-' && (!d.spacedDashComments || opensDashComment(text, i+2)):
			i = skipLine(text, i)

		case c == '#' && d.hashComments:
			i = skipLine(text, i)

		case c == '/' && at(text, i+1) == '*':
			if d.executableBlocks && isExecutableComment(text, i+2) {
				return nil, false
			}
			end := skipBlockComment(text, i, d.nestedComments)
			if end < 0 {
				return nil, false
			}
			i = end

		case c == '$' && d.dollarQuotes:
			end, opener := skipDollarQuote(text, i)
			switch {
			case !opener:
				i++
			case end < 0:
				return nil, false
			default:
				i = end
			}

		case isWordStart(c):
			j := i + 1
			for j < len(text) && isWordByte(text[j]) {
				j++
			}
			word := strings.ToUpper(text[i:j])
			// The E of E'...' belongs to the string literal.
			if !(d.escapeStrings && word == "E" && at(text, j) == '\'') {
				current = append(current, word)
			}
			i = j

		case c >= '0' && c <= '9':
			j := i + 1
			for j < len(text) && (isWordByte(text[j]) || text[j] == '.') {
				j++
			}
			i = j

		default:
			i++
		}
	}

	return append(statements, current), true
}

// skipString returns the index just past the closing quote, or -1.
// A doubled quote character is an escaped quote.
func skipString(text string, start int, quote byte, backslash bool) int {
	for i := start + 1; i < len(text); i++ {
		switch text[i] {
		case '\\':
			if backslash {
				i++
			}
		case quote:
			if at(text, i+1) == quote {
				i++
				continue
			}
			return i + 1
		}
	}
	return -1
}

// opensDashComment reports whether the byte after a MySQL "--" makes it a
// comment: end of input, whitespace or a control character.
func opensDashComment(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	return text[i] <= ' ' || text[i] == 0x7f
}

// isExecutableComment reports whether the block comment body starting at i
// is a MySQL "/*!" or MariaDB "/*M!" executable comment.
func isExecutableComment(text string, i int) bool {
	return at(text, i) == '!' || ((at(text, i) == 'M' || at(text, i) == 'm') && at(text, i+1) == '!')
}

func skipLine(text string, start int) int {
	if end := strings.IndexByte(text[start:], '\n'); end >= 0 {
		return start + end + 1
	}
	return len(text)
}

// skipBlockComment returns the index just past the comment, or -1.
func skipBlockComment(text string, start int, nested bool) int {
	depth := 0
	for i := start; i < len(text)-1; i++ {
		switch {
		case text[i] == '/' && text[i+1] == '*':
			if depth == 0 || nested {
				depth++
			}
			i++
		case text[i] == '*' && text[i+1] == '/':
			depth--
			i++
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// skipDollarQuote handles $tag$...$tag$. opener is false when the text at
// start does not open a dollar quote, as with a $1 parameter. end is -1 when
// the quote is never closed.
func skipDollarQuote(text string, start int) (end int, opener bool) {
	j := start + 1
	for j < len(text) && text[j] != '$' {
		if !isWordByte(text[j]) || (j == start+1 && !isWordStart(text[j])) {
			return 0, false
		}
		j++
	}
	if j >= len(text) {
		return 0, false
	}
	tag := text[start : j+1]
	closing := strings.Index(text[j+1:], tag)
	if closing < 0 {
		return -1, true
	}
	return j + 1 + closing + len(tag), true
}

func at(text string, i int) byte {
	if i < 0 || i >= len(text) {
		return 0
	}
	return text[i]
}

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordByte(c byte) bool {
	return isWordStart(c) || c == '$' || (c >= '0' && c <= '9')
}
