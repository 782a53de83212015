// Package tools declares the Cognito tool catalog and routes tool calls to
// their handlers.
package tools

import (
	"encoding/json"
	"strconv"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Name identifies a tool in the catalog.
type Name string

// The catalog's tool names, in the order they are advertised.
const (
	ListUserPools         Name = "cognito_list_user_pools"
	ListIdentityProviders Name = "cognito_list_identity_providers"
	ListUsers             Name = "cognito_list_users"
	GetUser               Name = "cognito_get_user"
)

// DefaultLimit is the page size used when a call does not specify limit.
const DefaultLimit = 60

var (
	// AttributeNames are the user attributes list_users can filter on.
	AttributeNames = []string{"username", "email", "phone_number", "cognito:user_status", "status", "sub"}

	// FilterTypes are the filter operators list_users accepts: exact match and prefix match.
	FilterTypes = []string{"=", "^="}

	// IdentifierKeys are the get_user arguments that can name a user, in precedence order.
	IdentifierKeys = []string{"username", "sub", "email", "id"}
)

// entry binds a tool descriptor to its handler and the verb used in its error text.
type entry struct {
	tool    *mcp.Tool
	action  string
	handler handlerFunc
}

var catalog = []entry{
	{
		tool: &mcp.Tool{
			Name:        string(ListUserPools),
			Description: "List all user pools",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"limit":      limitProperty("Maximum number of user pools to return."),
				"next_token": stringProperty("Token returned by a previous call, to fetch the next page."),
			}),
		},
		action:  "listing user pools",
		handler: listUserPools,
	},
	{
		tool: &mcp.Tool{
			Name:        string(ListIdentityProviders),
			Description: "List all identity providers for the user pool",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"user_pool_id": stringProperty("User pool to query. Defaults to the pool the server was started with."),
				"limit":        limitProperty("Maximum number of identity providers to return."),
				"next_token":   stringProperty("Token returned by a previous call, to fetch the next page."),
			}),
		},
		action:  "listing identity providers",
		handler: listIdentityProviders,
	},
	{
		tool: &mcp.Tool{
			Name:        string(ListUsers),
			Description: "List all users in the user pool with optional filtering",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"user_pool_id":     stringProperty("User pool to query. Defaults to the pool the server was started with."),
				"attribute_name":   enumProperty("Attribute to filter on. Used only together with filter_type.", AttributeNames),
				"filter_type":      enumProperty("Filter operator: \"=\" for exact match, \"^=\" for prefix match. Used only together with attribute_name.", FilterTypes),
				"attribute_value":  stringProperty("Value compared against attribute_name."),
				"filter":           stringProperty("Raw Cognito filter expression. Takes precedence over attribute_name and filter_type."),
				"pagination_token": stringProperty("Token returned by a previous call, to fetch the next page."),
				"limit":            limitProperty("Maximum number of users to return."),
			}),
		},
		action:  "listing users",
		handler: listUsers,
	},
	{
		tool: &mcp.Tool{
			Name:        string(GetUser),
			Description: "Get user details by username, sub, email or id",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"user_pool_id": stringProperty("User pool to query. Defaults to the pool the server was started with."),
				"username":     stringProperty("Username of the user."),
				"sub":          stringProperty("Subject (UUID) of the user."),
				"email":        stringProperty("Email address of the user."),
				"id":           stringProperty("Any other identifier Cognito accepts as a username."),
			}),
		},
		action:  "getting user",
		handler: getUser,
	},
}

// Catalog returns the descriptors of every tool, always in the same order.
func Catalog() []*mcp.Tool {
	tools := make([]*mcp.Tool, 0, len(catalog))
	for _, e := range catalog {
		tools = append(tools, e.tool)
	}
	return tools
}

func objectSchema(props map[string]*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: props}
}

func stringProperty(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func enumProperty(desc string, values []string) *jsonschema.Schema {
	enum := make([]any, 0, len(values))
	for _, v := range values {
		enum = append(enum, v)
	}
	return &jsonschema.Schema{Type: "string", Description: desc, Enum: enum}
}

func limitProperty(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "integer",
		Description: desc,
		Default:     json.RawMessage(strconv.Itoa(DefaultLimit)),
	}
}
