// Package server builds the MCP server and registers the connection tools.
package server

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/SedlarDavid/mssqlconn/internal/db"
)

const (
	ServerName    = "mssqlconn"
	ServerVersion = "1.0.0"
)

// Conn is the part of *db.Manager the tools use.
type Conn interface {
	Query(ctx context.Context, query string, params ...any) (*db.Table, error)
	Execute(ctx context.Context, query string, params ...any) error
	ExecuteSQLFile(ctx context.Context, path string) error
	Retarget(ctx context.Context, t db.Target) (*sql.Conn, error)
	Settings() db.Settings
}

// HostResolver maps host aliases such as "test" to host names.
type HostResolver func(string) string

// New returns an MCP server with all tools registered. conn may be nil, in
// which case only ping is available.
func New(conn Conn, resolve HostResolver) *server.MCPServer {
	s := server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false))
	Register(s, conn, resolve)
	return s
}

// Register adds the tools to s.
func Register(s *server.MCPServer, conn Conn, resolve HostResolver) {
	s.AddTool(mcp.NewTool("ping",
		mcp.WithDescription("Simple health check. Returns pong."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(PingOutput{Message: "pong"})
	})

	if conn == nil {
		return
	}
	if resolve == nil {
		resolve = func(h string) string { return h }
	}
	t := &tools{conn: conn, resolve: resolve}

	s.AddTool(mcp.NewTool("current_connection",
		mcp.WithDescription("Show the server and database the connection points at. No credentials in response."),
	), t.currentConnection)

	s.AddTool(mcp.NewTool("run_query",
		mcp.WithDescription("Run a single read-only SQL statement (SELECT only). Params bind to ? placeholders in order."),
		mcp.WithString("sql", mcp.Required(), mcp.Description("SELECT statement")),
		mcp.WithArray("params", mcp.Description("Positional parameter values")),
	), t.runQuery)

	s.AddTool(mcp.NewTool("execute",
		mcp.WithDescription("Execute one statement in its own transaction and commit it. Rolled back on error."),
		mcp.WithString("sql", mcp.Required(), mcp.Description("SQL statement")),
		mcp.WithArray("params", mcp.Description("Positional parameter values")),
	), t.execute)

	s.AddTool(mcp.NewTool("run_sql_file",
		mcp.WithDescription("Execute all statements of a SQL file in one transaction. Nothing is committed if any statement fails."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path, relative to the configured SQL directory")),
	), t.runSQLFile)

	s.AddTool(mcp.NewTool("retarget",
		mcp.WithDescription("Point the connection at another database and/or host (or host alias such as prod/test) and reconnect."),
		mcp.WithString("database", mcp.Description("New database name")),
		mcp.WithString("host", mcp.Description("New host name or alias")),
	), t.retarget)
}

type tools struct {
	conn    Conn
	resolve HostResolver
}

func (t *tools) currentConnection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tbl, err := t.conn.Query(ctx, "SELECT @@SERVERNAME AS ServerName, DB_NAME() AS CurrentDatabase")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := ConnectionOutput{Driver: t.conn.Settings().DriverName}
	if v, ok := tbl.Value(0, "ServerName"); ok {
		out.Server, _ = v.(string)
	}
	if v, ok := tbl.Value(0, "CurrentDatabase"); ok {
		out.Database, _ = v.(string)
	}
	return jsonResult(out)
}

func (t *tools) runQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sqlText, err := req.RequireString("sql")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := ValidateReadOnlySQL(sqlText); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tbl, err := t.conn.Query(ctx, sqlText, params(req)...)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(RunQueryOutput{Columns: tbl.Columns, Rows: tbl.Records()})
}

func (t *tools) execute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sqlText, err := req.RequireString("sql")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := t.conn.Execute(ctx, sqlText, params(req)...); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(StatusOutput{Status: "committed"})
}

func (t *tools) runSQLFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := t.conn.ExecuteSQLFile(ctx, path); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(StatusOutput{Status: "committed"})
}

func (t *tools) retarget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target := db.Target{
		Database: req.GetString("database", ""),
		Host:     req.GetString("host", ""),
	}
	if target.Host != "" {
		target.Host = t.resolve(target.Host)
	}
	if _, err := t.conn.Retarget(ctx, target); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s := t.conn.Settings()
	return jsonResult(TargetOutput{Host: s.Host, Database: s.Database})
}

// params returns the optional "params" array argument.
func params(req mcp.CallToolRequest) []any {
	v, ok := req.GetArguments()["params"].([]any)
	if !ok {
		return nil
	}
	return v
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}

// PingOutput is the structured result of the ping tool.
type PingOutput struct {
	Message string `json:"message"`
}

// ConnectionOutput is the result of current_connection.
type ConnectionOutput struct {
	Server   string `json:"server"`
	Database string `json:"database"`
	Driver   string `json:"driver"`
}

// RunQueryOutput is the result of run_query.
type RunQueryOutput struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// StatusOutput is the result of execute and run_sql_file.
type StatusOutput struct {
	Status string `json:"status"`
}

// TargetOutput is the result of retarget.
type TargetOutput struct {
	Host     string `json:"host"`
	Database string `json:"database"`
}
