package db

import (
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokSpace tokenKind = iota
	tokComment
	tokString
	tokQuotedIdent
	tokWord
	tokSemicolon
	tokParam
	tokOther
)

type token struct {
	kind       tokenKind
	start, end int
}

// lexer tokenizes T-SQL just enough to find statement boundaries and
// placeholders: strings, quoted identifiers and comments are opaque.
type lexer struct {
	src string
	pos int
}

func (l *lexer) next() (token, bool) {
	if l.pos >= len(l.src) {
		return token{}, false
	}
	start := l.pos
	c := l.src[start]
	kind := tokOther
	switch {
	case isSpace(c):
		for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
			l.pos++
		}
		kind = tokSpace
	case c == '-' && l.peek(1) == '-':
		if i := strings.IndexByte(l.src[start:], '\n'); i >= 0 {
			l.pos = start + i
		} else {
			l.pos = len(l.src)
		}
		kind = tokComment
	case c == '/' && l.peek(1) == '*':
		if i := strings.Index(l.src[start+2:], "*/"); i >= 0 {
			l.pos = start + 2 + i + 2
		} else {
			l.pos = len(l.src)
		}
		kind = tokComment
	case c == '\'':
		l.skipQuoted('\'', '\'')
		kind = tokString
	case c == '"':
		l.skipQuoted('"', '"')
		kind = tokQuotedIdent
	case c == '[':
		l.skipQuoted('[', ']')
		kind = tokQuotedIdent
	case isWordByte(c) && !isDigit(c):
		for l.pos < len(l.src) && isWordByte(l.src[l.pos]) {
			l.pos++
		}
		kind = tokWord
	case c == ';':
		l.pos++
		kind = tokSemicolon
	case c == '?':
		l.pos++
		kind = tokParam
	default:
		l.pos++
	}
	return token{kind: kind, start: start, end: l.pos}, true
}

func (l *lexer) peek(n int) byte {
	if l.pos+n < len(l.src) {
		return l.src[l.pos+n]
	}
	return 0
}

// skipQuoted consumes a delimited run where a doubled close byte escapes it.
func (l *lexer) skipQuoted(open, close byte) {
	l.pos++
	for l.pos < len(l.src) {
		if l.src[l.pos] == close {
			if l.peek(1) == close {
				l.pos += 2
				continue
			}
			l.pos++
			return
		}
		l.pos++
	}
}

// nextWord returns the next word after pos, skipping whitespace and comments.
func (l *lexer) nextWord() string {
	save := l.pos
	defer func() { l.pos = save }()
	for {
		t, ok := l.next()
		if !ok {
			return ""
		}
		switch t.kind {
		case tokSpace, tokComment:
			continue
		case tokWord:
			return strings.ToUpper(l.src[t.start:t.end])
		default:
			return ""
		}
	}
}

// Words after BEGIN that do not open a BEGIN ... END block.
var beginNoBlock = map[string]bool{
	"TRAN":         true,
	"TRANSACTION":  true,
	"DISTRIBUTED":  true,
	"DIALOG":       true,
	"CONVERSATION": true,
}

// END CONVERSATION closes a Service Broker dialog, not a block.
var endNoBlock = map[string]bool{
	"CONVERSATION": true,
}

// SplitStatements splits a SQL script into statements. Semicolons inside
// strings, quoted identifiers, comments and BEGIN/CASE ... END blocks do not
// split. A line holding only GO (optionally a repeat count and a -- comment)
// ends a batch; GO n repeats the statements of the batch n times, as sqlcmd
// does. Statements are trimmed, keep their terminating semicolon and
// comment-only fragments are dropped.
func SplitStatements(script string) []string {
	var (
		out        []string
		start      int
		depth      int
		hasCode    bool
		batchStart int
	)
	flush := func(end int) {
		stmt := strings.TrimSpace(script[start:end])
		if hasCode && stmt != "" {
			out = append(out, stmt)
		}
		hasCode = false
	}

	l := &lexer{src: script}
	for {
		t, ok := l.next()
		if !ok {
			break
		}
		switch t.kind {
		case tokSpace, tokComment:
			continue
		case tokSemicolon:
			if depth == 0 {
				flush(t.end)
				start = t.end
				continue
			}
		case tokWord:
			switch strings.ToUpper(script[t.start:t.end]) {
			case "BEGIN":
				if !beginNoBlock[l.nextWord()] {
					depth++
				}
			case "CASE":
				depth++
			case "END":
				if depth > 0 && !endNoBlock[l.nextWord()] {
					depth--
				}
			case "GO":
				if depth == 0 {
					if lineEnd, count, ok := batchSeparator(script, t); ok {
						flush(t.start)
						batch := out[batchStart:]
						for i := 1; i < count; i++ {
							out = append(out, batch...)
						}
						batchStart = len(out)
						start = lineEnd
						l.pos = lineEnd
						continue
					}
				}
			}
		}
		hasCode = true
	}
	flush(len(script))
	return out
}

// batchSeparator reports whether the GO token stands alone on its line,
// followed at most by a positive repeat count and a -- comment. It returns
// where that line ends and the repeat count.
func batchSeparator(src string, t token) (int, int, bool) {
	lineStart := strings.LastIndexByte(src[:t.start], '\n') + 1
	if strings.TrimSpace(src[lineStart:t.start]) != "" {
		return 0, 0, false
	}
	lineEnd := len(src)
	if i := strings.IndexByte(src[t.end:], '\n'); i >= 0 {
		lineEnd = t.end + i
	}
	rest := src[t.end:lineEnd]
	if i := strings.Index(rest, "--"); i >= 0 {
		rest = rest[:i]
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return lineEnd, 1, true
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, 0, false
	}
	return lineEnd, n, true
}

// rebindOrdinal rewrites ? placeholders to @p1..@pN for go-mssqldb,
// leaving strings and comments untouched.
func rebindOrdinal(query string) string {
	if !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	n := 0
	l := &lexer{src: query}
	for {
		t, ok := l.next()
		if !ok {
			break
		}
		if t.kind == tokParam {
			n++
			b.WriteString("@p")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteString(query[t.start:t.end])
	}
	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isWordByte(c byte) bool {
	return c == '_' || c == '@' || c == '#' || c == '$' || isDigit(c) ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}
