// Package models provides data structures used throughout the SQL gate.
package models

import (
	"fmt"
	"time"
)

// StatementKind represents the classified operation type of a SQL string.
type StatementKind int

const (
	KindSelect StatementKind = iota
	KindInsert
	KindUpdate
	KindDelete
	KindBlocked
	KindUnrecognized
)

// String returns the string representation of the statement kind.
func (k StatementKind) String() string {
	switch k {
	case KindSelect:
		return "SELECT"
	case KindInsert:
		return "INSERT"
	case KindUpdate:
		return "UPDATE"
	case KindDelete:
		return "DELETE"
	case KindBlocked:
		return "BLOCKED"
	case KindUnrecognized:
		return "UNRECOGNIZED"
	default:
		return "UNKNOWN"
	}
}

// IsMutation reports whether the kind writes to the database.
func (k StatementKind) IsMutation() bool {
	return k == KindInsert || k == KindUpdate || k == KindDelete
}

// TrustContext is the origin of a SQL string. It determines which
// safety policy profile applies.
type TrustContext int

const (
	// TrustAIGenerated marks SQL produced by the AI collaborator.
	// Only read-only statements are permitted on this path.
	TrustAIGenerated TrustContext = iota
	// TrustManualEdit marks SQL typed or edited by a user.
	TrustManualEdit
)

// String returns the string representation of the trust context.
func (t TrustContext) String() string {
	switch t {
	case TrustAIGenerated:
		return "ai_generated"
	case TrustManualEdit:
		return "manual_edit"
	default:
		return "unknown"
	}
}

// Statement is a single classified SQL statement. Normalized is Raw
// with surrounding whitespace and one trailing terminator stripped; it
// is the text that executes, and it always represents exactly one
// statement, never a batch. Inspected is the same text with comments
// stripped; classification and policy checks read it so comments
// cannot hide keywords, but it is never executed.
type Statement struct {
	Raw        string        `json:"raw"`
	Normalized string        `json:"normalized"`
	Inspected  string        `json:"-"`
	Kind       StatementKind `json:"kind"`
}

// ValidationOutcome is the safety policy's verdict for one request.
// It is produced once and never mutated.
type ValidationOutcome struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// Accept returns an accepting outcome.
func Accept() ValidationOutcome {
	return ValidationOutcome{Accepted: true}
}

// Reject returns a rejecting outcome naming the violated rule.
func Reject(reason string) ValidationOutcome {
	return ValidationOutcome{Accepted: false, Reason: reason}
}

// Row maps column names to converted values for one result row.
type Row map[string]Value

// ExecutionResult is the normalized outcome of executing one statement.
// For KindSelect, Rows and Columns are populated and AffectedRows is -1;
// for mutating kinds, Rows is empty and AffectedRows holds the count.
type ExecutionResult struct {
	Kind          StatementKind `json:"kind"`
	Columns       []string      `json:"columns,omitempty"`
	Rows          []Row         `json:"rows,omitempty"`
	AffectedRows  int64         `json:"affected_rows"`
	Message       string        `json:"message"`
	ExecutionTime time.Duration `json:"execution_time"`
}

// MutationMessage builds the operation-specific success message for a
// mutating statement.
func MutationMessage(kind StatementKind, affected int64) string {
	var verb string
	switch kind {
	case KindInsert:
		verb = "inserted"
	case KindUpdate:
		verb = "updated"
	case KindDelete:
		verb = "deleted"
	default:
		verb = "affected"
	}
	return fmt.Sprintf("Successfully %s %d row(s).", verb, affected)
}
