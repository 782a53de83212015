package server

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// ServerName is reported to clients in the initialize result.
const ServerName = "mcp-cognito"

// Version is the server version reported to clients. It is set at build time.
var Version = "dev"

// Protocol versions this server speaks, newest first.
var supportedProtocolVersions = []string{"2025-06-18", "2025-03-26", "2024-11-05"}

// ToolDispatcher lists and runs tools.
type ToolDispatcher interface {
	Tools() []*mcp.Tool
	Call(ctx context.Context, name string, raw json.RawMessage) (*mcp.CallToolResult, error)
}

// Protocol answers MCP requests. It is shared by the stdio loop and the HTTP
// surface and holds no per-session state.
type Protocol struct {
	tools  ToolDispatcher
	logger *zap.Logger
}

// NewProtocol returns a Protocol serving the tools of d.
func NewProtocol(d ToolDispatcher, logger *zap.Logger) *Protocol {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Protocol{tools: d, logger: logger}
}

// Handle answers a single decoded message. It returns a nil response for
// notifications and for inbound responses. Protocol-level problems, such as an
// unknown method, come back as JSON-RPC error responses; the returned error is
// reserved for faults that should stop the transport.
func (p *Protocol) Handle(ctx context.Context, msg jsonrpc.Message) (*jsonrpc.Response, error) {
	req, ok := msg.(*jsonrpc.Request)
	if !ok {
		p.logger.Debug("ignoring inbound response")
		return nil, nil
	}
	logger := p.logger.With(zap.String("method", req.Method))
	if !req.IsCall() {
		logger.Debug("notification")
		return nil, nil
	}

	var (
		result any
		err    error
	)
	switch req.Method {
	case "initialize":
		result, err = p.initialize(req.Params)
	case "ping":
		result = struct{}{}
	case "tools/list":
		result = &mcp.ListToolsResult{Tools: p.tools.Tools()}
	case "tools/call":
		var params mcp.CallToolParamsRaw
		if err := unmarshalParams(req.Params, &params); err != nil {
			return errorResponse(req.ID, jsonrpc.CodeInvalidParams, err.Error()), nil
		}
		logger.Debug("tool call", zap.String("tool", params.Name))
		res, err := p.tools.Call(ctx, params.Name, params.Arguments)
		if err != nil {
			return nil, fmt.Errorf("calling tool %q: %w", params.Name, err)
		}
		result = res
	default:
		logger.Info("method not found")
		return errorResponse(req.ID, jsonrpc.CodeMethodNotFound, "method not found: "+req.Method), nil
	}
	if err != nil {
		return errorResponse(req.ID, jsonrpc.CodeInvalidParams, err.Error()), nil
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding %s result: %w", req.Method, err)
	}
	return &jsonrpc.Response{ID: req.ID, Result: raw}, nil
}

func (p *Protocol) initialize(raw json.RawMessage) (*mcp.InitializeResult, error) {
	var params mcp.InitializeParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}
	version := supportedProtocolVersions[0]
	if slices.Contains(supportedProtocolVersions, params.ProtocolVersion) {
		version = params.ProtocolVersion
	}
	if params.ClientInfo != nil {
		p.logger.Info("client connected",
			zap.String("client", params.ClientInfo.Name),
			zap.String("client_version", params.ClientInfo.Version),
			zap.String("protocol_version", version))
	}
	return &mcp.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    &mcp.ServerCapabilities{Tools: &mcp.ToolCapabilities{}},
		ServerInfo:      &mcp.Implementation{Name: ServerName, Version: Version},
	}, nil
}

// unmarshalParams decodes params into v. Absent params leave v untouched.
func unmarshalParams(params json.RawMessage, v any) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

func errorResponse(id jsonrpc.ID, code int64, message string) *jsonrpc.Response {
	return &jsonrpc.Response{
		ID:    id,
		Error: &jsonrpc.Error{Code: code, Message: message},
	}
}
