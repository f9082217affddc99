package mcpserver

import "github.com/modelcontextprotocol/go-sdk/mcp"

// Tool definitions for the textchain MCP server
// InputSchemas are automatically generated from the handler input types

var RunChainTool = &mcp.Tool{
	Name:        "run_chain",
	Description: "Run the six-stage text chain against an input sentence containing the mask token. Returns every stage artifact: filled text, generated text, sentiment, summary, question, and answer.",
}

var GetRunTool = &mcp.Tool{
	Name:        "get_run",
	Description: "Retrieve a stored chain run by its UUID, including all stage artifacts and metadata.",
}

var ListRunsTool = &mcp.Tool{
	Name:        "list_runs",
	Description: "List stored chain runs, paginated by cursor and limit.",
}
