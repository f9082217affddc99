package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/textchain/textchain/config"
	"github.com/textchain/textchain/internal"
	"github.com/textchain/textchain/pkg/models"
)

var log = internal.GetLogger()

// Server exposes the chain and run store as MCP tools over stdio.
type Server struct {
	appState *models.AppState
	mcp      *mcp.Server
}

func New(appState *models.AppState) *Server {
	impl := &mcp.Implementation{
		Name:    "textchain",
		Version: config.VersionString,
	}

	mcpServer := mcp.NewServer(impl, nil)

	server := &Server{
		appState: appState,
		mcp:      mcpServer,
	}
	server.registerTools()

	return server
}

// registerTools registers all MCP tools with their handlers
func (s *Server) registerTools() {
	mcp.AddTool[RunChainInput, any](s.mcp, RunChainTool, HandleRunChain(s.appState))

	if s.appState.RunStore != nil {
		mcp.AddTool[GetRunInput, any](s.mcp, GetRunTool, HandleGetRun(s.appState))
		mcp.AddTool[ListRunsInput, any](s.mcp, ListRunsTool, HandleListRuns(s.appState))
	} else {
		log.Warn("run store not configured; run history tools are disabled")
	}
}

// Run serves MCP over stdio until the context is canceled or the client
// disconnects. Logs go to stderr so they don't corrupt the transport.
func (s *Server) Run(ctx context.Context) error {
	log.Info("starting MCP server with stdio transport")

	transport := &mcp.StdioTransport{}
	return s.mcp.Run(ctx, transport)
}
