package optimizer

import (
	"errors"
	"strings"
	"testing"

	"github.com/pario-ai/sqlpilot/pkg/models"
)

func TestOptimize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"SELECT 1", "SELECT 1;"},
		{"SELECT 1;", "SELECT 1;"},
		{"SELECT 1;;", "SELECT 1;"},
		{"  SELECT 1 ; ; \n", "SELECT 1;"},
		{"SELECT ';' FROM t", "SELECT ';' FROM t;"},
	}
	for _, tt := range tests {
		if got := Optimize(tt.in); got != tt.want {
			t.Errorf("Optimize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	if Validate("DROP TABLE users;") {
		t.Error("DROP should be rejected")
	}
	if !Validate("SELECT * FROM users;") {
		t.Error("SELECT should pass")
	}
	for _, kw := range Denylist {
		stmt := strings.ToLower(kw) + " something;"
		if Validate(stmt) {
			t.Errorf("expected %q rejected case-insensitively", stmt)
		}
	}
	// Known false positive of substring matching.
	if Validate("SELECT dropdown FROM widgets;") {
		t.Error("substring match should reject dropdown")
	}
}

func TestCheck(t *testing.T) {
	o := New()
	if err := o.Check("SELECT 1;"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := o.Check("delete from users;")
	if !errors.Is(err, ErrUnsafeStatement) {
		t.Fatalf("expected ErrUnsafeStatement, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if ve.Keyword != "DELETE" {
		t.Errorf("expected DELETE, got %s", ve.Keyword)
	}
}

func TestStagesRunPerDialect(t *testing.T) {
	o := New()
	o.Register(models.DialectMSSQL, func(s string) string {
		return strings.Replace(s, "SELECT *", "SELECT TOP 100 *", 1)
	})

	if got := o.Optimize("SELECT * FROM users", models.DialectMSSQL); got != "SELECT TOP 100 * FROM users;" {
		t.Errorf("unexpected mssql output: %q", got)
	}
	if got := o.Optimize("SELECT * FROM users;;", models.DialectMySQL); got != "SELECT * FROM users;" {
		t.Errorf("mysql should only normalize separators, got %q", got)
	}

	var nilOpt *Optimizer
	if got := nilOpt.Optimize("SELECT 1", models.DialectMySQL); got != "SELECT 1;" {
		t.Errorf("nil optimizer should still normalize, got %q", got)
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", "  SELECT 1;  ", "SELECT 1;"},
		{"sql fence", "```sql\nSELECT * FROM users;\n```", "SELECT * FROM users;"},
		{"bare fence", "```\nSELECT 1;\n```", "SELECT 1;"},
		{"inline fence", "```SELECT 1```", "SELECT 1"},
		{"surrounding prose", "Here you go:\n```sql\nSELECT 2;\n```\nEnjoy.", "SELECT 2;"},
		{"unterminated", "```sql\nSELECT 3;", "SELECT 3;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.in); got != tt.want {
				t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAnalyze(t *testing.T) {
	low := Analyze("SELECT * FROM users;")
	if low.Score != 0 || low.Risk != RiskLow {
		t.Errorf("expected low/0, got %+v", low)
	}

	c := Analyze(`SELECT u.name, COUNT(o.id) FROM users u
		JOIN orders o ON o.user_id = u.id
		LEFT JOIN payments p ON p.order_id = o.id
		WHERE u.active = 1 AND o.total > (SELECT AVG(total) FROM orders)
		GROUP BY u.name;`)
	if c.Joins != 2 {
		t.Errorf("expected 2 joins, got %d", c.Joins)
	}
	if c.Subqueries != 1 {
		t.Errorf("expected 1 subquery, got %d", c.Subqueries)
	}
	if c.Functions != 2 {
		t.Errorf("expected 2 functions, got %d", c.Functions)
	}
	if c.Conditions != 2 {
		t.Errorf("expected 2 conditions, got %d", c.Conditions)
	}
	// 2*5 + 1*3 + 2*2 + 2*1
	if c.Score != 19 || c.Risk != RiskMedium {
		t.Errorf("expected medium/19, got %+v", c)
	}
}
