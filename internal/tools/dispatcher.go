package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"mcp-cognito/internal/cognito"
)

// Fixed result texts. They are not prefixed with "Error".
const (
	UserNotFoundText = "User not found"
	NoIdentifierText = "No valid identifier provided"
)

// ErrNoClient is returned by Call when the dispatcher has no Cognito client.
var ErrNoClient = errors.New("dispatcher has no cognito client")

// handlerFunc executes one tool. It returns the rendered text on success.
type handlerFunc func(ctx context.Context, client cognito.Directory, userPoolID string, args Arguments) (string, error)

// Dispatcher routes tool calls to handlers and turns every outcome into a
// single text content item.
type Dispatcher struct {
	client     cognito.Directory
	userPoolID string
	logger     *zap.Logger
	routes     map[Name]entry
}

// NewDispatcher returns a dispatcher that runs tools against client, using
// userPoolID wherever a call does not name a pool itself.
func NewDispatcher(client cognito.Directory, userPoolID string, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	routes := make(map[Name]entry, len(catalog))
	for _, e := range catalog {
		routes[Name(e.tool.Name)] = e
	}
	return &Dispatcher{
		client:     client,
		userPoolID: userPoolID,
		logger:     logger,
		routes:     routes,
	}
}

// Tools returns the catalog this dispatcher serves.
func (d *Dispatcher) Tools() []*mcp.Tool { return Catalog() }

// Call runs the named tool with the raw JSON arguments. Failures inside the
// tool, unknown names and malformed arguments are all reported in the
// result's text. The returned error is reserved for faults in the
// dispatcher itself.
func (d *Dispatcher) Call(ctx context.Context, name string, raw json.RawMessage) (*mcp.CallToolResult, error) {
	if d.client == nil {
		return nil, ErrNoClient
	}
	logger := d.logger.With(zap.String("tool", name))

	e, ok := d.routes[Name(name)]
	if !ok {
		logger.Warn("unknown tool")
		return TextResult("Unknown tool: " + name), nil
	}

	start := time.Now()
	text, err := d.run(ctx, e, raw)
	duration := time.Since(start)
	if err != nil {
		logger.Info("tool call failed", zap.Error(err), zap.Duration("duration", duration))
		return TextResult(renderError(e.action, err)), nil
	}
	logger.Debug("tool call succeeded", zap.Duration("duration", duration))
	return TextResult(text), nil
}

func (d *Dispatcher) run(ctx context.Context, e entry, raw json.RawMessage) (string, error) {
	args, err := ParseArguments(raw)
	if err != nil {
		return "", err
	}
	return e.handler(ctx, d.client, d.userPoolID, args)
}

func renderError(action string, err error) string {
	switch {
	case errors.Is(err, cognito.ErrUserNotFound):
		return UserNotFoundText
	case errors.Is(err, ErrNoIdentifier):
		return NoIdentifierText
	default:
		return fmt.Sprintf("Error %s: %v", action, err)
	}
}

// TextResult wraps text in a CallToolResult with a single text item.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func listUserPools(ctx context.Context, client cognito.Directory, _ string, a Arguments) (string, error) {
	args, err := parseListUserPools(a)
	if err != nil {
		return "", err
	}
	page, err := client.ListUserPools(ctx, cognito.ListUserPoolsParams{
		MaxResults: args.Limit,
		NextToken:  args.NextToken,
	})
	if err != nil {
		return "", err
	}
	return renderUserPools(page), nil
}

func listIdentityProviders(ctx context.Context, client cognito.Directory, userPoolID string, a Arguments) (string, error) {
	args, err := parseListIdentityProviders(a, userPoolID)
	if err != nil {
		return "", err
	}
	page, err := client.ListIdentityProviders(ctx, cognito.ListIdentityProvidersParams{
		UserPoolID: args.UserPoolID,
		MaxResults: args.Limit,
		NextToken:  args.NextToken,
	})
	if err != nil {
		return "", err
	}
	return renderIdentityProviders(page), nil
}

func listUsers(ctx context.Context, client cognito.Directory, userPoolID string, a Arguments) (string, error) {
	args, err := parseListUsers(a, userPoolID)
	if err != nil {
		return "", err
	}
	page, err := client.ListUsers(ctx, cognito.ListUsersParams{
		UserPoolID:      args.UserPoolID,
		Limit:           args.Limit,
		Filter:          args.FilterExpression(),
		PaginationToken: args.PaginationToken,
	})
	if err != nil {
		return "", err
	}
	return renderUsers(page), nil
}

func getUser(ctx context.Context, client cognito.Directory, userPoolID string, a Arguments) (string, error) {
	args, err := parseGetUser(a, userPoolID)
	if err != nil {
		return "", err
	}
	user, err := client.AdminGetUser(ctx, args.UserPoolID, args.Identifier)
	if err != nil {
		return "", err
	}
	return renderUser(user), nil
}
