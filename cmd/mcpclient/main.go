// Package main runs a one-off MCP client: spawns the mssqlconn server, calls
// one tool with optional JSON arguments, and prints the result. Run from repo root:
//
//	go run ./cmd/mcpclient <tool_name>              # no args, e.g. ping
//	go run ./cmd/mcpclient <tool_name> '<json>'    # with arguments
//
// Examples:
//
//	go run ./cmd/mcpclient ping
//	go run ./cmd/mcpclient current_connection
//	go run ./cmd/mcpclient run_query '{"sql":"SELECT TOP 10 * FROM sys.tables"}'
//	go run ./cmd/mcpclient retarget '{"host":"test"}'
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <tool_name> [json_arguments]\n", os.Args[0])
		os.Exit(1)
	}
	toolName := os.Args[1]
	args := map[string]any{}
	if len(os.Args) >= 3 && os.Args[2] != "" {
		if err := json.Unmarshal([]byte(os.Args[2]), &args); err != nil {
			fmt.Fprintf(os.Stderr, "invalid json arguments: %v\n", err)
			os.Exit(1)
		}
	}
	if err := run(toolName, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(toolName string, args map[string]any) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repoRoot, err := findRepoRoot()
	if err != nil {
		return fmt.Errorf("find repo root: %w", err)
	}
	if err := os.Chdir(repoRoot); err != nil {
		return err
	}

	// Environment is passed through so the server sees MSSQL_* settings.
	c, err := client.NewStdioMCPClient("go", os.Environ(), "run", "./cmd/server")
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	defer c.Close()

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "mcpclient", Version: "0.1.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	res, err := c.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: toolName, Arguments: args},
	})
	if err != nil {
		return fmt.Errorf("call tool: %w", err)
	}
	text := ""
	if len(res.Content) > 0 {
		if tc, ok := mcp.AsTextContent(res.Content[0]); ok {
			text = tc.Text
		}
	}
	if res.IsError {
		return fmt.Errorf("tool error: %s", text)
	}
	fmt.Println(text)
	return nil
}

func findRepoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
