package query

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ParseMongoShell converts mongo-shell style text such as
// `db.users.find({"age": {"$gt": 30}}).sort({"age": -1}).limit(5)` or
// `show collections` into a descriptor.
//
// Text that is not recognised yields a descriptor without a Mongo
// operation, which the guard rejects as unparseable. Write methods are
// parsed like any other so the rejection can name them.
func ParseMongoShell(text string) Descriptor {
	d := Descriptor{Backend: MongoDB, Statement: text}

	s := strings.TrimSpace(text)
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))

	switch strings.ToLower(strings.Join(strings.Fields(s), " ")) {
	case "show collections", "show tables", "db.getcollectionnames()":
		d.Mongo = &MongoOperation{Name: "listCollections"}
		return d
	}

	rest, ok := strings.CutPrefix(s, "db.")
	if !ok {
		return d
	}

	collection, chain, ok := splitCollection(rest)
	if !ok {
		return d
	}

	calls, ok := parseCalls(chain)
	if !ok || len(calls) == 0 {
		return d
	}

	op, ok := buildShellOperation(collection, calls)
	if !ok {
		return d
	}

	built, err := NewMongoDescriptor(op)
	if err != nil {
		return d
	}
	built.Statement = text
	return built
}

type shellCall struct {
	name string
	args []string
}

// splitCollection reads the collection name that precedes the first method
// call. Both db.name.find() and db.getCollection("name").find() are accepted.
func splitCollection(s string) (string, string, bool) {
	if after, ok := strings.CutPrefix(s, "getCollection("); ok {
		end := strings.Index(after, ")")
		if end < 0 {
			return "", "", false
		}
		name, ok := unquote(strings.TrimSpace(after[:end]))
		rest := strings.TrimPrefix(after[end+1:], ".")
		return name, rest, ok && name != ""
	}

	open := strings.Index(s, "(")
	if open < 0 {
		return "", "", false
	}
	dot := strings.LastIndex(s[:open], ".")
	if dot <= 0 {
		return "", "", false
	}
	return s[:dot], s[dot+1:], true
}

// parseCalls splits `find({...}).sort({...}).limit(3)` into method calls.
func parseCalls(s string) ([]shellCall, bool) {
	var calls []shellCall
	for len(s) > 0 {
		i := 0
		for i < len(s) && (isIdentByte(s[i])) {
			i++
		}
		if i == 0 || i >= len(s) || s[i] != '(' {
			return nil, false
		}
		name := s[:i]

		end, ok := matchParen(s, i)
		if !ok {
			return nil, false
		}
		calls = append(calls, shellCall{name: name, args: splitArgs(s[i+1 : end])})

		s = strings.TrimSpace(s[end+1:])
		if s == "" {
			break
		}
		if s[0] != '.' {
			return nil, false
		}
		s = s[1:]
	}
	return calls, true
}

func buildShellOperation(collection string, calls []shellCall) (MongoOperation, bool) {
	primary := calls[0]
	op := MongoOperation{Name: primary.name, Collection: collection}

	var ok bool
	switch primary.name {
	case "find", "findOne":
		if op.Filter, ok = argDocument(primary.args, 0); !ok {
			return op, false
		}
		if op.Projection, ok = argDocument(primary.args, 1); !ok {
			return op, false
		}
	case "aggregate":
		if op.Pipeline, ok = argDocument(primary.args, 0); !ok {
			return op, false
		}
	case "distinct":
		if len(primary.args) == 0 {
			return op, false
		}
		if op.Field, ok = unquote(primary.args[0]); !ok {
			return op, false
		}
		if op.Filter, ok = argDocument(primary.args, 1); !ok {
			return op, false
		}
	case "estimatedDocumentCount":
	default:
		// count, countDocuments and write methods all take a filter first.
		if op.Filter, ok = argDocument(primary.args, 0); !ok {
			return op, false
		}
	}

	for _, c := range calls[1:] {
		switch c.name {
		case "sort":
			if op.Sort, ok = argDocument(c.args, 0); !ok {
				return op, false
			}
		case "projection":
			if op.Projection, ok = argDocument(c.args, 0); !ok {
				return op, false
			}
		case "limit":
			if len(c.args) != 1 {
				return op, false
			}
			n, err := strconv.ParseInt(strings.TrimSpace(c.args[0]), 10, 64)
			if err != nil {
				return op, false
			}
			op.Limit = n
		case "count", "itcount", "size":
			if op.Name != "find" {
				return op, false
			}
			op.Name = "countDocuments"
		case "toArray", "pretty":
		default:
			return op, false
		}
	}
	return op, true
}

// argDocument returns args[i] as strict JSON, or nil when absent.
func argDocument(args []string, i int) (json.RawMessage, bool) {
	if i >= len(args) {
		return nil, true
	}
	raw, ok := relaxJSON(args[i])
	if !ok {
		return nil, false
	}
	return raw, true
}

// matchParen returns the index of the parenthesis closing the one at open.
func matchParen(s string, open int) (int, bool) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\'':
			end := skipQuoted(s, i)
			if end < 0 {
				return 0, false
			}
			i = end
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i, c == ')'
			}
		}
	}
	return 0, false
}

// splitArgs splits an argument list on top-level commas.
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var args []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\'':
			if end := skipQuoted(s, i); end >= 0 {
				i = end
			}
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(args, strings.TrimSpace(s[start:]))
}

// skipQuoted returns the index of the quote closing the string at i, or -1.
func skipQuoted(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case q:
			return j
		}
	}
	return -1
}

func unquote(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	if (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1], true
	}
	return "", false
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// relaxJSON rewrites shell-flavoured JSON into strict extended JSON:
// bare keys are quoted, single-quoted strings become double-quoted, and
// ObjectId("...") / ISODate("...") / new Date("...") become $oid / $date.
func relaxJSON(s string) (json.RawMessage, bool) {
	var b strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"':
			end := skipQuoted(s, i)
			if end < 0 {
				return nil, false
			}
			b.WriteString(s[i : end+1])
			i = end + 1
		case c == '\'':
			end := skipQuoted(s, i)
			if end < 0 {
				return nil, false
			}
			b.WriteString(strconv.Quote(strings.ReplaceAll(s[i+1:end], `\'`, `'`)))
			i = end + 1
		case isIdentByte(c) && !(c >= '0' && c <= '9') && c != '-':
			j := i
			for j < len(s) && (isIdentByte(s[j]) || s[j] == '.') {
				j++
			}
			word := s[i:j]
			k := j
			for k < len(s) && s[k] == ' ' {
				k++
			}
			switch {
			case word == "new":
				i = k
				continue
			case k < len(s) && s[k] == '(':
				end, ok := matchParen(s, k)
				if !ok {
					return nil, false
				}
				wrapped, ok := shellConstructor(word, strings.TrimSpace(s[k+1:end]))
				if !ok {
					return nil, false
				}
				b.WriteString(wrapped)
				i = end + 1
				continue
			case k < len(s) && s[k] == ':':
				b.WriteString(strconv.Quote(word))
			case word == "true" || word == "false" || word == "null":
				b.WriteString(word)
			default:
				return nil, false
			}
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}

	raw := json.RawMessage(b.String())
	if !json.Valid(raw) {
		return nil, false
	}
	return raw, true
}

func shellConstructor(name, arg string) (string, bool) {
	value, ok := unquote(arg)
	if !ok {
		return "", false
	}
	switch name {
	case "ObjectId":
		return `{"$oid":` + strconv.Quote(value) + `}`, true
	case "ISODate", "Date":
		return `{"$date":` + strconv.Quote(value) + `}`, true
	default:
		return "", false
	}
}
