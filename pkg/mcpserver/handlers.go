package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/textchain/textchain/pkg/models"
	"github.com/textchain/textchain/pkg/pipeline"
)

var errNoRunStore = errors.New("run store is not configured")

// HandleRunChain handles the run_chain tool
func HandleRunChain(appState *models.AppState) mcp.ToolHandlerFor[RunChainInput, any] {
	chain := pipeline.NewPipeline(appState)
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RunChainInput) (*mcp.CallToolResult, any, error) {
		if input.Input == "" {
			return nil, nil, errors.New("input cannot be empty")
		}

		run, err := chain.Run(ctx, input.Input)
		if err != nil {
			return nil, nil, fmt.Errorf("chain run failed: %w", err)
		}

		if len(input.Metadata) > 0 {
			run.Metadata = input.Metadata
		}

		if appState.RunStore != nil {
			if err := appState.RunStore.SaveRun(ctx, run); err != nil {
				return nil, nil, fmt.Errorf("failed to save run: %w", err)
			}
		}

		return textResult(run)
	}
}

// HandleGetRun handles the get_run tool
func HandleGetRun(appState *models.AppState) mcp.ToolHandlerFor[GetRunInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GetRunInput) (*mcp.CallToolResult, any, error) {
		if appState.RunStore == nil {
			return nil, nil, errNoRunStore
		}

		runUUID, err := uuid.Parse(input.UUID)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid run UUID: %w", err)
		}

		run, err := appState.RunStore.GetRun(ctx, runUUID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get run: %w", err)
		}

		return textResult(run)
	}
}

// HandleListRuns handles the list_runs tool
func HandleListRuns(appState *models.AppState) mcp.ToolHandlerFor[ListRunsInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ListRunsInput) (*mcp.CallToolResult, any, error) {
		if appState.RunStore == nil {
			return nil, nil, errNoRunStore
		}

		if input.Limit == 0 {
			input.Limit = 10
		}

		runs, err := appState.RunStore.ListRuns(ctx, input.Cursor, input.Limit)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list runs: %w", err)
		}

		return textResult(runs)
	}
}

// textResult formats v as indented JSON text content alongside the
// structured result.
func textResult(v any) (*mcp.CallToolResult, any, error) {
	resultJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to format result: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: string(resultJSON),
			},
		},
	}, v, nil
}
