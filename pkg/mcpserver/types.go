package mcpserver

// RunChainInput defines the input parameters for run_chain
type RunChainInput struct {
	Input    string                 `json:"input" jsonschema:"The text to run through the chain. Should contain the mask token."`
	Metadata map[string]interface{} `json:"metadata,omitempty" jsonschema:"Optional metadata to attach to the stored run"`
}

// GetRunInput defines the input parameters for get_run
type GetRunInput struct {
	UUID string `json:"uuid" jsonschema:"The UUID of the run to retrieve"`
}

// ListRunsInput defines the input parameters for list_runs
type ListRunsInput struct {
	Cursor int64 `json:"cursor,omitempty" jsonschema:"Run ID of the last run in the previous page (default: 0)"`
	Limit  int   `json:"limit,omitempty" jsonschema:"Maximum number of runs to return (default: 10)"`
}
