package services

import (
	"errors"
	"testing"

	pkgerrors "github.com/promptsql/sqlgate/pkg/errors"
	"github.com/promptsql/sqlgate/pkg/models"
)

func TestStatementClassifier_Classify(t *testing.T) {
	classifier := NewStatementClassifier()

	tests := []struct {
		name     string
		sql      string
		expected models.StatementKind
	}{
		// Reads
		{"SELECT", "SELECT * FROM employees", models.KindSelect},
		{"SELECT lowercase", "select * from employees", models.KindSelect},
		{"SELECT with whitespace", "  SELECT * FROM employees  ", models.KindSelect},
		{"SELECT with terminator", "SELECT * FROM employees;", models.KindSelect},
		{"WITH CTE", "WITH top AS (SELECT * FROM employees) SELECT * FROM top", models.KindSelect},
		{"SELECT with JOIN", "SELECT e.name, d.name FROM employees e JOIN departments d ON e.dept_id = d.id", models.KindSelect},

		// Mutations
		{"INSERT", "INSERT INTO employees (name) VALUES ('Ana')", models.KindInsert},
		{"UPDATE", "UPDATE employees SET salary = 80000 WHERE id = 1", models.KindUpdate},
		{"DELETE", "DELETE FROM employees WHERE id = 1", models.KindDelete},
		{"INSERT lowercase", "insert into employees (name) values ('Bo')", models.KindInsert},

		// Blocked leading keywords
		{"DROP", "DROP TABLE employees", models.KindBlocked},
		{"TRUNCATE", "TRUNCATE TABLE employees", models.KindBlocked},
		{"CREATE", "CREATE TABLE t (id INT)", models.KindBlocked},
		{"ALTER", "ALTER TABLE employees ADD COLUMN age INT", models.KindBlocked},
		{"GRANT", "GRANT ALL ON *.* TO 'x'@'%'", models.KindBlocked},
		{"CALL", "CALL cleanup()", models.KindBlocked},

		// Unrecognized
		{"SHOW", "SHOW TABLES", models.KindUnrecognized},
		{"EXPLAIN", "EXPLAIN SELECT * FROM employees", models.KindUnrecognized},
		{"Garbage", "HELLO WORLD", models.KindUnrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := classifier.Classify(tt.sql)
			if err != nil {
				t.Fatalf("Classify(%q) returned error: %v", tt.sql, err)
			}
			if stmt.Kind != tt.expected {
				t.Errorf("Classify(%q) = %v, want %v", tt.sql, stmt.Kind, tt.expected)
			}
		})
	}
}

func TestStatementClassifier_EmptyInput(t *testing.T) {
	classifier := NewStatementClassifier()

	tests := []struct {
		name string
		sql  string
	}{
		{"Empty string", ""},
		{"Whitespace only", "   \n\t "},
		{"Line comment only", "-- nothing here"},
		{"Hash comment only", "# nothing here"},
		{"Block comment only", "/* nothing here */"},
		{"Lone terminator", ";"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := classifier.Classify(tt.sql)
			if !errors.Is(err, pkgerrors.ErrEmptyStatement) {
				t.Errorf("Classify(%q) error = %v, want ErrEmptyStatement", tt.sql, err)
			}
		})
	}
}

func TestStatementClassifier_MultipleStatements(t *testing.T) {
	classifier := NewStatementClassifier()

	tests := []struct {
		name string
		sql  string
	}{
		{"Two statements", "SELECT 1; SELECT 2"},
		{"Trailing second statement", "SELECT * FROM employees; DROP TABLE employees"},
		{"Two terminators", "SELECT 1;;"},
		{"Separator hidden by comment", "SELECT 1 /* x */ ; SELECT 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := classifier.Classify(tt.sql)
			if !errors.Is(err, pkgerrors.ErrMultipleStatements) {
				t.Errorf("Classify(%q) error = %v, want ErrMultipleStatements", tt.sql, err)
			}
		})
	}
}

func TestStatementClassifier_SemicolonInLiteral(t *testing.T) {
	classifier := NewStatementClassifier()

	stmt, err := classifier.Classify("SELECT * FROM notes WHERE body = 'a;b'")
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if stmt.Kind != models.KindSelect {
		t.Errorf("Kind = %v, want KindSelect", stmt.Kind)
	}
}

func TestStatementClassifier_CommentObfuscation(t *testing.T) {
	classifier := NewStatementClassifier()

	tests := []struct {
		name     string
		sql      string
		expected models.StatementKind
	}{
		{"Leading line comment", "-- note\nSELECT * FROM employees", models.KindSelect},
		{"Leading block comment", "/* note */ DELETE FROM employees WHERE id = 1", models.KindDelete},
		{"Comment splitting keyword position", "/* x */UPDATE employees SET a = 1 WHERE id = 1", models.KindUpdate},
		{"Blocked keyword after comment", "/* harmless */ DROP TABLE employees", models.KindBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := classifier.Classify(tt.sql)
			if err != nil {
				t.Fatalf("Classify(%q) returned error: %v", tt.sql, err)
			}
			if stmt.Kind != tt.expected {
				t.Errorf("Classify(%q) = %v, want %v", tt.sql, stmt.Kind, tt.expected)
			}
		})
	}
}

func TestStatementClassifier_NormalizedStripsTerminator(t *testing.T) {
	classifier := NewStatementClassifier()

	stmt, err := classifier.Classify("  SELECT 1;  ")
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if stmt.Normalized != "SELECT 1" {
		t.Errorf("Normalized = %q, want %q", stmt.Normalized, "SELECT 1")
	}
	if stmt.Raw != "  SELECT 1;  " {
		t.Errorf("Raw = %q, want original input", stmt.Raw)
	}
}

func TestStatementClassifier_NormalizedKeepsComments(t *testing.T) {
	classifier := NewStatementClassifier()

	stmt, err := classifier.Classify("SELECT id FROM employees -- note")
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if stmt.Normalized != "SELECT id FROM employees -- note" {
		t.Errorf("Normalized = %q, want comment preserved", stmt.Normalized)
	}
	if stmt.Inspected != "SELECT id FROM employees" {
		t.Errorf("Inspected = %q, want comment stripped", stmt.Inspected)
	}
}

func TestStatementClassifier_DoubleDashArithmetic(t *testing.T) {
	classifier := NewStatementClassifier()

	// "--" without trailing whitespace is subtraction of a negative,
	// not a comment opener.
	stmt, err := classifier.Classify("SELECT 5--3")
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if stmt.Kind != models.KindSelect {
		t.Errorf("Kind = %v, want KindSelect", stmt.Kind)
	}
	if stmt.Normalized != "SELECT 5--3" {
		t.Errorf("Normalized = %q, want %q", stmt.Normalized, "SELECT 5--3")
	}
	if stmt.Inspected != "SELECT 5--3" {
		t.Errorf("Inspected = %q, want %q", stmt.Inspected, "SELECT 5--3")
	}
}

func TestStripComments(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected string
	}{
		{"No comments", "SELECT 1", "SELECT 1"},
		{"Line comment", "SELECT 1 -- trailing", "SELECT 1  "},
		{"Hash comment", "SELECT 1 # trailing", "SELECT 1  "},
		{"Block comment", "SELECT /* mid */ 1", "SELECT   1"},
		{"Double dash without whitespace", "SELECT 5--3", "SELECT 5--3"},
		{"Double dash at end of input", "SELECT 1 --", "SELECT 1  "},
		{"Line comment ends at newline", "SELECT 1 -- x\n+ 2", "SELECT 1  + 2"},
		{"Comment chars in literal", "SELECT '--not a comment'", "SELECT '--not a comment'"},
		{"Hash in literal", "SELECT '#tag'", "SELECT '#tag'"},
		{"Block markers in literal", "SELECT '/* kept */'", "SELECT '/* kept */'"},
		{"Unterminated block", "SELECT 1 /* runs on", "SELECT 1  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := stripComments(tt.sql)
			if result != tt.expected {
				t.Errorf("stripComments(%q) = %q, want %q", tt.sql, result, tt.expected)
			}
		})
	}
}
