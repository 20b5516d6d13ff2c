package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/pario-ai/sqlpilot/pkg/models"
)

func TestParseDialectCaseInsensitive(t *testing.T) {
	for _, tag := range []string{"MySQL", "mysql", "MYSQL", " mysql "} {
		d, err := ParseDialect(tag)
		if err != nil {
			t.Fatalf("ParseDialect(%q): %v", tag, err)
		}
		if d != models.DialectMySQL {
			t.Errorf("ParseDialect(%q) = %s", tag, d)
		}
	}
}

func TestParseDialectAliases(t *testing.T) {
	tests := map[string]models.Dialect{
		"postgres":   models.DialectPostgreSQL,
		"pg":         models.DialectPostgreSQL,
		"PostgreSQL": models.DialectPostgreSQL,
		"sqlserver":  models.DialectMSSQL,
		"MSSQL":      models.DialectMSSQL,
	}
	for tag, want := range tests {
		got, err := ParseDialect(tag)
		if err != nil || got != want {
			t.Errorf("ParseDialect(%q) = %s, %v; want %s", tag, got, err, want)
		}
	}
}

func TestForUnsupported(t *testing.T) {
	_, err := For("oracle")
	if !errors.Is(err, ErrUnsupportedDialect) {
		t.Fatalf("expected ErrUnsupportedDialect, got %v", err)
	}
	if !strings.Contains(err.Error(), "oracle") {
		t.Errorf("error should name the tag: %v", err)
	}
}

func TestForSameVariant(t *testing.T) {
	a, _ := For("MySQL")
	b, _ := For("mysql")
	c, _ := For("MYSQL")
	if _, ok := a.(MySQL); !ok {
		t.Fatalf("expected MySQL template, got %T", a)
	}
	if a != b || b != c {
		t.Error("case variants should resolve to the same template")
	}
}

func TestDialectPhrasing(t *testing.T) {
	tests := []struct {
		tag     string
		want    []string
		wantNot string
	}{
		{"mysql", []string{"LIMIT", "IFNULL"}, ""},
		{"mssql", []string{"TOP", "ISNULL", "GETDATE"}, ""},
		{"postgresql", []string{"PostgreSQL", "COALESCE"}, "TOP"},
	}
	for _, tt := range tests {
		tmpl, err := For(tt.tag)
		if err != nil {
			t.Fatal(err)
		}
		sys := tmpl.System()
		for _, w := range tt.want {
			if !strings.Contains(sys, w) {
				t.Errorf("%s system prompt missing %q", tt.tag, w)
			}
		}
		if tt.wantNot != "" && strings.Contains(sys, tt.wantNot) {
			t.Errorf("%s system prompt should not mention %q", tt.tag, tt.wantNot)
		}
	}
}

func TestBuild(t *testing.T) {
	p, err := Build("mssql", "top 5 customers", "customers(id, name)")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p.User, "top 5 customers") || !strings.Contains(p.User, "customers(id, name)") {
		t.Errorf("user prompt missing request or schema: %s", p.User)
	}
	if p.System != (MSSQL{}).System() {
		t.Error("system prompt should come from the MSSQL template")
	}

	// Empty schema excerpt is tolerated.
	if _, err := Build("mysql", "anything", ""); err != nil {
		t.Errorf("empty schema should be accepted: %v", err)
	}

	if _, err := Build("sqlite", "x", ""); !errors.Is(err, ErrUnsupportedDialect) {
		t.Errorf("expected ErrUnsupportedDialect, got %v", err)
	}
}
