package services

import (
	"github.com/promptsql/sqlgate/pkg/models"
)

// Policy reasons surfaced verbatim to the caller.
const (
	ReasonBlockedOperation = "blocked operation"
	ReasonAIReadOnly       = "AI path restricted to read-only queries"
	ReasonKindNotAllowed   = "statement kind not allowed"
	ReasonMutationNoFilter = "mutation without filter"
)

// blockedKeywords is the destructive-keyword blacklist: DDL, privilege
// management, and the stored-program/dynamic-SQL entry points that
// allow multi-statement execution. A statement containing any of these
// as a whole word is rejected regardless of trust context, wherever
// the keyword appears.
var blockedKeywords = map[string]struct{}{
	"DROP":     {},
	"TRUNCATE": {},
	"CREATE":   {},
	"ALTER":    {},
	"GRANT":    {},
	"REVOKE":   {},
	"EXEC":     {},
	"EXECUTE":  {},
	"CALL":     {},
	"PREPARE":  {},
}

// permittedKinds maps each trust context to the statement kinds it may
// execute. Policy changes happen here, not in control flow.
var permittedKinds = map[models.TrustContext]map[models.StatementKind]bool{
	models.TrustAIGenerated: {
		models.KindSelect: true,
	},
	models.TrustManualEdit: {
		models.KindSelect: true,
		models.KindInsert: true,
		models.KindUpdate: true,
		models.KindDelete: true,
	},
}

// SafetyPolicy decides whether a classified statement may execute
// under a given trust context. Validation is pure: it never touches
// the database and produces exactly one outcome per request.
type SafetyPolicy struct {
	blacklist map[string]struct{}
	permitted map[models.TrustContext]map[models.StatementKind]bool
}

// NewSafetyPolicy creates a safety policy with the default rule tables.
func NewSafetyPolicy() *SafetyPolicy {
	return &SafetyPolicy{
		blacklist: blockedKeywords,
		permitted: permittedKinds,
	}
}

// Validate applies the blacklist, the per-context permission table,
// and the mutation-filter heuristic, in that order.
func (p *SafetyPolicy) Validate(stmt *models.Statement, trust models.TrustContext) models.ValidationOutcome {
	// Whole-word blacklist scan over the comment-free statement text,
	// so a destructive keyword smuggled inside a subquery or expression
	// is still caught. Words inside string literals do not count.
	for _, word := range topLevelWords(stmt.Inspected) {
		if _, blocked := p.blacklist[word]; blocked {
			return models.Reject(ReasonBlockedOperation)
		}
	}

	if !p.permitted[trust][stmt.Kind] {
		if trust == models.TrustAIGenerated {
			return models.Reject(ReasonAIReadOnly)
		}
		return models.Reject(ReasonKindNotAllowed)
	}

	// Lexical presence test for WHERE, not semantic validation of the
	// predicate: a full-table UPDATE or DELETE from a single malformed
	// edit is worse than the occasional over-rejection.
	if stmt.Kind == models.KindUpdate || stmt.Kind == models.KindDelete {
		if !hasTopLevelWord(stmt.Inspected, "WHERE") {
			return models.Reject(ReasonMutationNoFilter)
		}
	}

	return models.Accept()
}

// hasTopLevelWord reports whether word occurs in sql as a whole word
// outside string literals and quoted identifiers.
func hasTopLevelWord(sql, word string) bool {
	for _, w := range topLevelWords(sql) {
		if w == word {
			return true
		}
	}
	return false
}
