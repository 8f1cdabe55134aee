package server

import "testing"

func TestValidateReadOnlySQL(t *testing.T) {
	tests := []struct {
		sql  string
		want bool // true = valid (no error)
	}{
		{"SELECT 1", true},
		{"SELECT TOP 10 * FROM [sapbd].[dimPSPElement]", true},
		{"WITH cte AS (SELECT 1 AS x) SELECT * FROM cte", true},
		{"select @@SERVERNAME as ServerName, DB_NAME() AS CurrentDatabase", true},
		{"SELECT 1;", true},
		{"-- comment\nSELECT 1", true},
		{"/* delete */ SELECT 1", true},
		{"SELECT 'DROP TABLE x' AS s", true},
		{"INSERT INTO t VALUES (1)", false},
		{"UPDATE t SET x = 1", false},
		{"DELETE FROM t", false},
		{"DROP TABLE t", false},
		{"SELECT * INTO copy FROM t", false},
		{"EXEC sp_who", false},
		{"USE master", false},
		{"SELECT 1; DELETE FROM t", false},
		{"SELECT 1; SELECT 2", false},
		{"", false},
		{"   \n  -- only comment\n  ", false},
	}
	for _, tt := range tests {
		err := ValidateReadOnlySQL(tt.sql)
		ok := (err == nil)
		if ok != tt.want {
			t.Errorf("ValidateReadOnlySQL(%q): got err=%v, want valid=%v", tt.sql, err, tt.want)
		}
	}
}
