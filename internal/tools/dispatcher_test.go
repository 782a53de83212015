package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mcp-cognito/internal/cognito"
	"mcp-cognito/internal/mock"
)

const testPool = "us-east-1_test"

// textOf asserts result holds exactly one text item and returns its text.
func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected *mcp.TextContent, got %T", result.Content[0])
	require.False(t, result.IsError)
	return tc.Text
}

func call(t *testing.T, d *Dispatcher, name Name, raw string) string {
	t.Helper()
	result, err := d.Call(context.Background(), string(name), json.RawMessage(raw))
	require.NoError(t, err)
	return textOf(t, result)
}

// stubDirectory answers every method with empty pages and records inputs.
type stubDirectory struct {
	mock.Directory
	poolsParams     []cognito.ListUserPoolsParams
	providersParams []cognito.ListIdentityProvidersParams
	usersParams     []cognito.ListUsersParams
	getUserCalls    [][2]string
}

func newStubDirectory() *stubDirectory {
	s := &stubDirectory{}
	s.ListUserPoolsFn = func(_ context.Context, p cognito.ListUserPoolsParams) (*cognito.UserPoolPage, error) {
		s.poolsParams = append(s.poolsParams, p)
		return &cognito.UserPoolPage{}, nil
	}
	s.ListIdentityProvidersFn = func(_ context.Context, p cognito.ListIdentityProvidersParams) (*cognito.IdentityProviderPage, error) {
		s.providersParams = append(s.providersParams, p)
		return &cognito.IdentityProviderPage{}, nil
	}
	s.ListUsersFn = func(_ context.Context, p cognito.ListUsersParams) (*cognito.UserPage, error) {
		s.usersParams = append(s.usersParams, p)
		return &cognito.UserPage{}, nil
	}
	s.AdminGetUserFn = func(_ context.Context, poolID, username string) (*cognito.User, error) {
		s.getUserCalls = append(s.getUserCalls, [2]string{poolID, username})
		return &cognito.User{Username: username}, nil
	}
	return s
}

func TestDispatcherEveryToolReturnsOneTextItem(t *testing.T) {
	d := NewDispatcher(newStubDirectory(), testPool, zaptest.NewLogger(t))
	for _, tool := range Catalog() {
		for _, raw := range []string{``, `{}`, `{"username":"u1"}`, `[]`, `{"limit":"x"}`} {
			t.Run(tool.Name+"/"+raw, func(t *testing.T) {
				result, err := d.Call(context.Background(), tool.Name, json.RawMessage(raw))
				require.NoError(t, err)
				textOf(t, result)
			})
		}
	}
}

func TestDispatcherUnknownTool(t *testing.T) {
	dir := newStubDirectory()
	d := NewDispatcher(dir, testPool, zaptest.NewLogger(t))

	require.Equal(t, "Unknown tool: nonexistent", call(t, d, "nonexistent", `{}`))
	require.Zero(t, dir.Calls)
}

func TestDispatcherWithoutClientIsAFault(t *testing.T) {
	d := NewDispatcher(nil, testPool, nil)
	_, err := d.Call(context.Background(), string(ListUserPools), nil)
	require.ErrorIs(t, err, ErrNoClient)
}

func TestListUserPoolsTool(t *testing.T) {
	t.Run("renders one line per pool", func(t *testing.T) {
		dir := &mock.Directory{ListUserPoolsFn: func(_ context.Context, p cognito.ListUserPoolsParams) (*cognito.UserPoolPage, error) {
			require.Equal(t, int32(DefaultLimit), p.MaxResults)
			return &cognito.UserPoolPage{Pools: []cognito.UserPool{
				{ID: "us-east-1_a", Name: "alpha"},
				{ID: "us-east-1_b", Name: "beta"},
			}}, nil
		}}
		d := NewDispatcher(dir, testPool, zaptest.NewLogger(t))

		require.Equal(t, "us-east-1_a: alpha\nus-east-1_b: beta", call(t, d, ListUserPools, `{}`))
	})

	t.Run("surfaces next token", func(t *testing.T) {
		dir := &mock.Directory{ListUserPoolsFn: func(_ context.Context, p cognito.ListUserPoolsParams) (*cognito.UserPoolPage, error) {
			require.Equal(t, "t1", p.NextToken)
			return &cognito.UserPoolPage{Pools: []cognito.UserPool{{ID: "p", Name: "n"}}, NextToken: "t2"}, nil
		}}
		d := NewDispatcher(dir, testPool, nil)

		require.Equal(t, "p: n\nNextToken: t2", call(t, d, ListUserPools, `{"next_token":"t1"}`))
	})

	t.Run("service failure is rendered, not returned", func(t *testing.T) {
		dir := &mock.Directory{ListUserPoolsFn: func(context.Context, cognito.ListUserPoolsParams) (*cognito.UserPoolPage, error) {
			return nil, errors.New("AccessDeniedException: not allowed")
		}}
		d := NewDispatcher(dir, testPool, nil)

		require.Equal(t, "Error listing user pools: AccessDeniedException: not allowed", call(t, d, ListUserPools, `{}`))
	})
}

func TestListIdentityProvidersTool(t *testing.T) {
	dir := newStubDirectory()
	dir.ListIdentityProvidersFn = func(_ context.Context, p cognito.ListIdentityProvidersParams) (*cognito.IdentityProviderPage, error) {
		dir.providersParams = append(dir.providersParams, p)
		return &cognito.IdentityProviderPage{Providers: []cognito.IdentityProvider{
			{Name: "Google", Type: "Google"},
			{Name: "Okta", Type: "SAML"},
		}}, nil
	}
	d := NewDispatcher(dir, testPool, zaptest.NewLogger(t))

	text := call(t, d, ListIdentityProviders, `{}`)
	require.Equal(t, "ProviderName: Google, ProviderType: Google\nProviderName: Okta, ProviderType: SAML", text)

	call(t, d, ListIdentityProviders, `{"user_pool_id":"eu-west-1_other","limit":5}`)
	require.Equal(t, []cognito.ListIdentityProvidersParams{
		{UserPoolID: testPool, MaxResults: DefaultLimit},
		{UserPoolID: "eu-west-1_other", MaxResults: 5},
	}, dir.providersParams)
}

func TestListUsersTool(t *testing.T) {
	t.Run("lone filter type sends no filter", func(t *testing.T) {
		dir := newStubDirectory()
		d := NewDispatcher(dir, testPool, zaptest.NewLogger(t))

		call(t, d, ListUsers, `{"filter_type":"="}`)
		call(t, d, ListUsers, `{"attribute_name":"email","attribute_value":"a@b.c"}`)

		require.Len(t, dir.usersParams, 2)
		for _, p := range dir.usersParams {
			require.Empty(t, p.Filter)
		}
	})

	t.Run("filter is built from both fields", func(t *testing.T) {
		dir := newStubDirectory()
		d := NewDispatcher(dir, testPool, nil)

		call(t, d, ListUsers, `{"filter_type":"^=","attribute_name":"email","attribute_value":"alice"}`)
		require.Equal(t, `email ^= "alice"`, dir.usersParams[0].Filter)
	})

	t.Run("limit defaults to 60", func(t *testing.T) {
		dir := newStubDirectory()
		d := NewDispatcher(dir, testPool, nil)

		call(t, d, ListUsers, `{}`)
		require.Equal(t, cognito.ListUsersParams{UserPoolID: testPool, Limit: 60}, dir.usersParams[0])
	})

	// Passing an explicit zero through unchanged keeps compatibility with the
	// previous server; Cognito itself rejects a zero limit.
	t.Run("explicit zero limit is passed through for compatibility", func(t *testing.T) {
		dir := newStubDirectory()
		d := NewDispatcher(dir, testPool, nil)

		call(t, d, ListUsers, `{"limit":0}`)
		require.Equal(t, int32(0), dir.usersParams[0].Limit)
	})

	t.Run("pagination token forwarded only when non-empty", func(t *testing.T) {
		dir := newStubDirectory()
		d := NewDispatcher(dir, testPool, nil)

		call(t, d, ListUsers, `{"pagination_token":""}`)
		call(t, d, ListUsers, `{"pagination_token":"abc"}`)
		require.Empty(t, dir.usersParams[0].PaginationToken)
		require.Equal(t, "abc", dir.usersParams[1].PaginationToken)
	})

	t.Run("renders user blocks and surfaces the next page token", func(t *testing.T) {
		created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		dir := &mock.Directory{ListUsersFn: func(context.Context, cognito.ListUsersParams) (*cognito.UserPage, error) {
			return &cognito.UserPage{
				Users: []cognito.User{
					{Username: "alice", Enabled: true, Status: "CONFIRMED", CreateDate: created, LastModifiedDate: created,
						Attributes: []cognito.Attribute{{Name: "email", Value: "alice@example.com"}}},
					{Username: "bob", Status: "UNCONFIRMED"},
				},
				PaginationToken: "next-page",
			}, nil
		}}
		d := NewDispatcher(dir, testPool, nil)

		want := "alice\n" +
			"Username: alice\n" +
			"Enabled: true\n" +
			"UserStatus: CONFIRMED\n" +
			"UserCreateDate: 2024-01-02T03:04:05Z\n" +
			"UserLastModifiedDate: 2024-01-02T03:04:05Z\n" +
			"\n" +
			"bob\n" +
			"Username: bob\n" +
			"Enabled: false\n" +
			"UserStatus: UNCONFIRMED\n" +
			"UserCreateDate: \n" +
			"UserLastModifiedDate: \n" +
			"\n" +
			"PaginationToken: next-page\n"
		text := call(t, d, ListUsers, `{}`)
		require.Equal(t, want, text)
		require.NotContains(t, text, "alice@example.com", "attributes are not part of the listing")
		require.Equal(t, 1, dir.Calls, "pagination is never followed automatically")
	})

	t.Run("bad limit is rendered as an error", func(t *testing.T) {
		dir := newStubDirectory()
		d := NewDispatcher(dir, testPool, nil)

		text := call(t, d, ListUsers, `{"limit":"lots"}`)
		require.Equal(t, `Error listing users: invalid arguments: limit: expected an integer, got "lots"`, text)
		require.Zero(t, dir.Calls)
	})
}

func TestGetUserTool(t *testing.T) {
	t.Run("username wins over email", func(t *testing.T) {
		dir := newStubDirectory()
		d := NewDispatcher(dir, testPool, zaptest.NewLogger(t))

		call(t, d, GetUser, `{"username":"u1","email":"e1"}`)
		require.Equal(t, [][2]string{{testPool, "u1"}}, dir.getUserCalls)
	})

	t.Run("precedence is username, sub, email, id", func(t *testing.T) {
		tests := []struct {
			raw  string
			want string
		}{
			{`{"id":"i","email":"e","sub":"s","username":"u"}`, "u"},
			{`{"id":"i","email":"e","sub":"s"}`, "s"},
			{`{"id":"i","email":"e"}`, "e"},
			{`{"id":"i"}`, "i"},
			{`{"username":"","sub":"s"}`, "s"},
		}
		for _, tt := range tests {
			dir := newStubDirectory()
			d := NewDispatcher(dir, testPool, nil)
			call(t, d, GetUser, tt.raw)
			require.Equal(t, tt.want, dir.getUserCalls[0][1], tt.raw)
		}
	})

	t.Run("no identifier never calls the service", func(t *testing.T) {
		for _, raw := range []string{`{}`, ``, `{"username":"","sub":null}`, `{"user_pool_id":"x"}`} {
			dir := newStubDirectory()
			d := NewDispatcher(dir, testPool, nil)

			require.Equal(t, "No valid identifier provided", call(t, d, GetUser, raw), raw)
			require.Zero(t, dir.Calls, raw)
		}
	})

	t.Run("user not found has no error prefix", func(t *testing.T) {
		dir := &mock.Directory{AdminGetUserFn: func(_ context.Context, _, username string) (*cognito.User, error) {
			return nil, fmt.Errorf("%w: %s", cognito.ErrUserNotFound, username)
		}}
		d := NewDispatcher(dir, testPool, nil)

		require.Equal(t, "User not found", call(t, d, GetUser, `{"username":"ghost"}`))
	})

	t.Run("other failures are prefixed", func(t *testing.T) {
		dir := &mock.Directory{AdminGetUserFn: func(context.Context, string, string) (*cognito.User, error) {
			return nil, errors.New("ResourceNotFoundException: pool not found")
		}}
		d := NewDispatcher(dir, testPool, nil)

		text := call(t, d, GetUser, `{"sub":"abc"}`)
		require.Equal(t, "Error getting user: ResourceNotFoundException: pool not found", text)
	})

	t.Run("renders the user", func(t *testing.T) {
		created := time.Date(2023, 5, 6, 7, 8, 9, 0, time.UTC)
		dir := &mock.Directory{AdminGetUserFn: func(context.Context, string, string) (*cognito.User, error) {
			return &cognito.User{
				Username: "alice",
				Attributes: []cognito.Attribute{
					{Name: "sub", Value: "1111"},
					{Name: "email", Value: "alice@example.com"},
				},
				CreateDate:       created,
				LastModifiedDate: created,
				Enabled:          true,
				Status:           "CONFIRMED",
			}, nil
		}}
		d := NewDispatcher(dir, testPool, nil)

		text := call(t, d, GetUser, `{"email":"alice@example.com"}`)
		assert.Equal(t, "Username: alice\n"+
			"UserAttributes:\n"+
			"  sub: 1111\n"+
			"  email: alice@example.com\n"+
			"UserCreateDate: 2023-05-06T07:08:09Z\n"+
			"UserLastModifiedDate: 2023-05-06T07:08:09Z\n"+
			"Enabled: true\n"+
			"UserStatus: CONFIRMED\n", text)
	})
}

func TestDispatcherMalformedArguments(t *testing.T) {
	dir := newStubDirectory()
	d := NewDispatcher(dir, testPool, nil)

	text := call(t, d, ListUserPools, `[1,2,3]`)
	require.Contains(t, text, "Error listing user pools: invalid arguments")
	require.Zero(t, dir.Calls)
}
