package server

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CallRequest is the body of POST /mcp/call.
type CallRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolsResponse is the body returned by GET /mcp/tools.
type ToolsResponse struct {
	Tools []*mcp.Tool `json:"tools"`
}

type errorBody struct {
	Error string `json:"error"`
}
