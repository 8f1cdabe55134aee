// Package main runs the mssqlconn MCP server: it exposes one SQL Server
// connection (query, execute, SQL files, retarget) as tools to agents over
// stdio. Logs go to stderr; stdout carries the protocol.
package main

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/SedlarDavid/mssqlconn/internal/config"
	"github.com/SedlarDavid/mssqlconn/internal/db"
	"github.com/SedlarDavid/mssqlconn/internal/logging"
	mcpserver "github.com/SedlarDavid/mssqlconn/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logging.Apply(cfg.Log, 0, os.Stderr)

	m, err := db.New(context.Background(), cfg.Settings(), cfg.ManagerOptions()...)
	if err != nil {
		log.Fatal().Err(err).Msg("connect")
	}
	defer m.Close()

	if err := server.ServeStdio(mcpserver.New(m, cfg.ResolveHost)); err != nil {
		log.Error().Err(err).Msg("server")
	}
}
