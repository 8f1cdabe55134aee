package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/SedlarDavid/mssqlconn/internal/db"
)

// ErrTableNotFound is returned by Save when the target table does not exist.
var ErrTableNotFound = errors.New("table does not exist")

// Executor is the part of *db.Manager that Save needs.
type Executor interface {
	Query(ctx context.Context, query string, params ...any) (*db.Table, error)
	Execute(ctx context.Context, query string, params ...any) error
}

// Options describe the target table. Columns receive the record values in
// order; IndexColumn and CreatedColumn, when set, receive the file index and
// the insert time.
type Options struct {
	Table         string
	Columns       []string
	IndexColumn   string
	CreatedColumn string
	Now           func() time.Time
}

// Result counts the outcome of Save.
type Result struct {
	Inserted int
	Skipped  int
	Failed   int
}

// Save inserts records one by one, each in its own transaction. Records
// whose width does not match Columns are skipped; failed inserts are logged
// and counted.
func Save(ctx context.Context, e Executor, opts Options, records []Record, log zerolog.Logger) (Result, error) {
	var res Result
	if opts.Table == "" || len(opts.Columns) == 0 {
		return res, fmt.Errorf("save: table and columns are required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	exists, err := e.Query(ctx, "IF OBJECT_ID(?) IS NOT NULL SELECT 1 AS found ELSE SELECT 0 AS found", opts.Table)
	if err != nil {
		return res, fmt.Errorf("save: check table: %w", err)
	}
	if v, _ := exists.Value(0, "found"); !isOne(v) {
		return res, fmt.Errorf("save %s: %w", opts.Table, ErrTableNotFound)
	}

	if cols, err := e.Query(ctx, "SELECT TOP 0 * FROM "+quoteTable(opts.Table)); err == nil {
		log.Info().Strs("columns", cols.Columns).Str("table", opts.Table).Msg("Target table")
	}

	insert := insertStatement(opts)
	for _, rec := range records {
		if len(rec.Values) != len(opts.Columns) {
			log.Warn().Int("file_index", rec.FileIndex).Int("values", len(rec.Values)).
				Int("columns", len(opts.Columns)).Msg("Skipping record with unexpected width")
			res.Skipped++
			continue
		}
		params := make([]any, 0, len(rec.Values)+2)
		for _, v := range rec.Values {
			params = append(params, v)
		}
		if opts.IndexColumn != "" {
			params = append(params, rec.FileIndex)
		}
		if opts.CreatedColumn != "" {
			params = append(params, opts.Now())
		}
		if err := e.Execute(ctx, insert, params...); err != nil {
			res.Failed++
			continue
		}
		res.Inserted++
	}
	log.Info().Int("inserted", res.Inserted).Int("skipped", res.Skipped).Int("failed", res.Failed).
		Str("table", opts.Table).Msg("Load finished")
	return res, nil
}

func insertStatement(opts Options) string {
	cols := make([]string, 0, len(opts.Columns)+2)
	for _, c := range opts.Columns {
		cols = append(cols, quoteIdent(c))
	}
	if opts.IndexColumn != "" {
		cols = append(cols, quoteIdent(opts.IndexColumn))
	}
	if opts.CreatedColumn != "" {
		cols = append(cols, quoteIdent(opts.CreatedColumn))
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteTable(opts.Table), strings.Join(cols, ", "), marks)
}

var identReplacer = strings.NewReplacer("]", "]]")

func quoteIdent(name string) string {
	return "[" + identReplacer.Replace(name) + "]"
}

// quoteTable quotes each part of a possibly schema-qualified name.
func quoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quoteIdent(strings.Trim(p, "[]"))
	}
	return strings.Join(parts, ".")
}

func isOne(v any) bool {
	switch x := v.(type) {
	case int64:
		return x == 1
	case int32:
		return x == 1
	case int:
		return x == 1
	case bool:
		return x
	case string:
		return x == "1"
	}
	return false
}
