package metrics

import "testing"

func TestStatementKind(t *testing.T) {
	tests := map[string]string{
		"SELECT id FROM tasks":           "SELECT",
		"\n  update tasks SET status=$1": "UPDATE",
		"WITH x AS (SELECT 1) SELECT *":  "WITH",
		"VACUUM":                         "other",
		"   ":                            "unknown",
	}
	for sql, want := range tests {
		if got := statementKind(sql); got != want {
			t.Fatalf("statementKind(%q)=%q, want %q", sql, got, want)
		}
	}
}
