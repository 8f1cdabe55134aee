package server

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/SedlarDavid/mssqlconn/internal/db"
)

// Keywords that modify data, schema or permissions, or run arbitrary code.
var forbiddenSQLWords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE",
	"GRANT", "REVOKE", "DENY", "EXEC", "EXECUTE", "MERGE", "INTO", "BULK",
	"BACKUP", "RESTORE", "DBCC", "SHUTDOWN", "KILL", "USE",
}

var (
	sqlLineComment  = regexp.MustCompile(`--[^\n]*`)
	sqlBlockComment = regexp.MustCompile(`/\*[\s\S]*?\*/`)
	sqlString       = regexp.MustCompile(`N?'(?:[^']|'')*'`)
	forbiddenWordRe = regexp.MustCompile(`(?i)\b(` + strings.Join(forbiddenSQLWords, "|") + `)\b`)
)

// ValidateReadOnlySQL returns an error unless sql is a single statement free
// of data- or schema-changing keywords. Comments and string literals are
// ignored. A heuristic, not a parser; the login's permissions stay the real
// boundary.
func ValidateReadOnlySQL(sql string) error {
	stmts := db.SplitStatements(sql)
	switch len(stmts) {
	case 0:
		return fmt.Errorf("empty SQL after removing comments")
	case 1:
	default:
		return fmt.Errorf("read-only queries only: found %d statements", len(stmts))
	}
	cleaned := sqlLineComment.ReplaceAllString(stmts[0], " ")
	cleaned = sqlBlockComment.ReplaceAllString(cleaned, " ")
	cleaned = sqlString.ReplaceAllString(cleaned, "''")
	if loc := forbiddenWordRe.FindStringIndex(cleaned); loc != nil {
		word := strings.ToUpper(cleaned[loc[0]:loc[1]])
		return fmt.Errorf("read-only queries only: found %q", word)
	}
	return nil
}
