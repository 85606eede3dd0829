// Package services contains the SQL gate pipeline stages.
package services

import (
	"strings"

	"github.com/promptsql/sqlgate/pkg/errors"
	"github.com/promptsql/sqlgate/pkg/models"
)

// StatementClassifier lexically determines the kind of a SQL statement
// and enforces the single-statement shape. It performs no parsing
// beyond comment stripping, terminator counting, and leading-keyword
// detection; structural checks belong to the SafetyPolicy.
type StatementClassifier struct{}

// NewStatementClassifier creates a new statement classifier.
func NewStatementClassifier() *StatementClassifier {
	return &StatementClassifier{}
}

// Classify normalizes raw SQL text and determines its statement kind.
// It fails with an INVALID_STATEMENT error for empty input and for
// batches of more than one statement.
func (c *StatementClassifier) Classify(raw string) (*models.Statement, error) {
	// Comments are stripped into a separate inspection text so they
	// cannot hide trailing statements or keywords from the checks. The
	// executed text keeps them; the database lexes comments itself.
	inspected := strings.TrimSpace(stripComments(raw))
	if inspected == "" {
		return nil, errors.ErrEmptyStatement
	}

	// One optional trailing terminator is part of a well-formed single
	// statement; anything beyond that is a batch.
	inspected = strings.TrimSpace(strings.TrimSuffix(inspected, ";"))
	if inspected == "" {
		return nil, errors.ErrEmptyStatement
	}
	if containsTopLevelRune(inspected, ';') {
		return nil, errors.ErrMultipleStatements
	}

	normalized := strings.TrimSpace(raw)
	normalized = strings.TrimSpace(strings.TrimSuffix(normalized, ";"))

	stmt := &models.Statement{
		Raw:        raw,
		Normalized: normalized,
		Inspected:  inspected,
		Kind:       classifyKind(inspected),
	}
	return stmt, nil
}

// classifyKind inspects the leading keyword, case-insensitively.
func classifyKind(normalized string) models.StatementKind {
	leading := strings.ToUpper(firstWord(normalized))

	switch leading {
	case "SELECT", "WITH":
		// WITH introduces a CTE, a read-only construct.
		return models.KindSelect
	case "INSERT":
		return models.KindInsert
	case "UPDATE":
		return models.KindUpdate
	case "DELETE":
		return models.KindDelete
	}
	if _, blocked := blockedKeywords[leading]; blocked {
		return models.KindBlocked
	}
	return models.KindUnrecognized
}

// firstWord returns the first run of identifier characters in s.
func firstWord(s string) string {
	start := -1
	for i, r := range s {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return s[start:i]
		}
	}
	if start >= 0 {
		return s[start:]
	}
	return ""
}

func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z')
}

// stripComments removes line comments (`--`, `#`) and block comments
// (`/* ... */`) outside string literals and quoted identifiers,
// replacing each with a single space so token boundaries survive.
func stripComments(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	runes := []rune(sql)
	n := len(runes)
	var inString bool
	var stringChar rune

	for i := 0; i < n; i++ {
		r := runes[i]

		if inString {
			b.WriteRune(r)
			if r == '\\' && stringChar != '`' && i+1 < n {
				// Backslash escape inside a literal.
				i++
				b.WriteRune(runes[i])
				continue
			}
			if r == stringChar {
				inString = false
			}
			continue
		}

		switch {
		case r == '\'' || r == '"' || r == '`':
			inString = true
			stringChar = r
			b.WriteRune(r)
		case r == '-' && i+1 < n && runes[i+1] == '-' && (i+2 >= n || isCommentSpace(runes[i+2])):
			// MySQL only opens a line comment on "--" followed by
			// whitespace or end of input; "5--3" is arithmetic.
			i = skipToLineEnd(runes, i)
			b.WriteRune(' ')
		case r == '#':
			i = skipToLineEnd(runes, i)
			b.WriteRune(' ')
		case r == '/' && i+1 < n && runes[i+1] == '*':
			i = skipBlockComment(runes, i)
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

func isCommentSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// skipToLineEnd returns the index of the terminating newline, or the
// last index if the comment runs to the end of input.
func skipToLineEnd(runes []rune, i int) int {
	for ; i < len(runes); i++ {
		if runes[i] == '\n' {
			return i
		}
	}
	return len(runes) - 1
}

// skipBlockComment returns the index of the final '/' of the comment,
// or the last index for an unterminated comment.
func skipBlockComment(runes []rune, i int) int {
	for i += 2; i+1 < len(runes); i++ {
		if runes[i] == '*' && runes[i+1] == '/' {
			return i + 1
		}
	}
	return len(runes) - 1
}

// containsTopLevelRune reports whether target appears in sql outside
// string literals and quoted identifiers. Comments must already be
// stripped.
func containsTopLevelRune(sql string, target rune) bool {
	var inString bool
	var stringChar rune
	skipNext := false

	for _, r := range sql {
		if skipNext {
			skipNext = false
			continue
		}
		if inString {
			if r == '\\' && stringChar != '`' {
				skipNext = true
				continue
			}
			if r == stringChar {
				inString = false
			}
			continue
		}
		switch {
		case r == '\'' || r == '"' || r == '`':
			inString = true
			stringChar = r
		case r == target:
			return true
		}
	}
	return false
}

// topLevelWords yields the uppercased identifier-like words of sql that
// appear outside string literals and quoted identifiers.
func topLevelWords(sql string) []string {
	var words []string
	var word strings.Builder
	var inString bool
	var stringChar rune
	skipNext := false

	flush := func() {
		if word.Len() > 0 {
			words = append(words, strings.ToUpper(word.String()))
			word.Reset()
		}
	}

	for _, r := range sql {
		if skipNext {
			skipNext = false
			continue
		}
		if inString {
			if r == '\\' && stringChar != '`' {
				skipNext = true
				continue
			}
			if r == stringChar {
				inString = false
			}
			continue
		}
		switch {
		case r == '\'' || r == '"' || r == '`':
			flush()
			inString = true
			stringChar = r
		case isWordRune(r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return words
}
