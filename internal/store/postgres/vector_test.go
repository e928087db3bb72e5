package postgres

import (
	"strings"
	"testing"
)

func TestVectorLiteralRoundTrip(t *testing.T) {
	in := []float32{0.25, -1, 0, 3.5, 0.0625}
	out, err := parseVector(vectorLiteral(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("component %d: got %f want %f", i, out[i], in[i])
		}
	}
}

func TestParseVectorAcceptsSpacedText(t *testing.T) {
	// Postgres may render with spaces after commas.
	out, err := parseVector(" [1, 2.5, -3] ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(out) != 3 || out[1] != 2.5 || out[2] != -3 {
		t.Fatalf("unexpected vector: %v", out)
	}
}

func TestParseVectorRejectsMalformedText(t *testing.T) {
	for _, s := range []string{"", "1,2,3", "[1,2", "[a,b]", "[]extra"} {
		if _, err := parseVector(s); err == nil {
			t.Errorf("parseVector(%q): expected error", s)
		}
	}
}

func TestDDLStatementsWithDimensions(t *testing.T) {
	stmts := DDLStatementsWithDimensions(8)
	if len(stmts) == 0 {
		t.Fatal("no statements")
	}
	joined := strings.Join(stmts, ";")
	if !strings.Contains(joined, "VECTOR(8)") {
		t.Fatal("dimension rewrite missing")
	}
	if strings.Contains(joined, "VECTOR(768)") {
		t.Fatal("default dimension left behind")
	}
	for _, stmt := range stmts {
		if strings.TrimSpace(stmt) == "" {
			t.Fatal("empty statement emitted")
		}
	}
}
