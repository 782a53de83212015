// Package cognito provides a minimal client for the Amazon Cognito user pool admin API.
package cognito

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const (
	// DefaultProfile is the shared config profile used when none is given.
	DefaultProfile = "default"
	// DefaultRegion is the AWS region used when none is given.
	DefaultRegion = "us-east-1"
)

// ErrUserNotFound is returned by AdminGetUser when the pool has no such user.
var ErrUserNotFound = errors.New("user not found")

// API is the subset of the Cognito Identity Provider SDK client used here.
type API interface {
	ListUserPools(ctx context.Context, params *cip.ListUserPoolsInput, optFns ...func(*cip.Options)) (*cip.ListUserPoolsOutput, error)
	ListIdentityProviders(ctx context.Context, params *cip.ListIdentityProvidersInput, optFns ...func(*cip.Options)) (*cip.ListIdentityProvidersOutput, error)
	ListUsers(ctx context.Context, params *cip.ListUsersInput, optFns ...func(*cip.Options)) (*cip.ListUsersOutput, error)
	AdminGetUser(ctx context.Context, params *cip.AdminGetUserInput, optFns ...func(*cip.Options)) (*cip.AdminGetUserOutput, error)
}

var _ API = (*cip.Client)(nil)

// Directory is the read-only view of Cognito that tool handlers depend on.
type Directory interface {
	ListUserPools(ctx context.Context, p ListUserPoolsParams) (*UserPoolPage, error)
	ListIdentityProviders(ctx context.Context, p ListIdentityProvidersParams) (*IdentityProviderPage, error)
	ListUsers(ctx context.Context, p ListUsersParams) (*UserPage, error)
	AdminGetUser(ctx context.Context, userPoolID, username string) (*User, error)
}

var _ Directory = (*Client)(nil)

// Client adapts the SDK client to Directory and normalizes its responses.
type Client struct {
	API    API
	logger *zap.Logger
}

// New loads AWS configuration for the given profile and region and returns a client.
// Empty values fall back to DefaultProfile and DefaultRegion.
func New(ctx context.Context, profile, region string, logger *zap.Logger) (*Client, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	if region == "" {
		region = DefaultRegion
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	// The SDK resolves the default profile on its own, and tolerates it being
	// absent when credentials come from the environment.
	if profile != DefaultProfile {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config for profile %q: %w", profile, err)
	}
	return NewFromAPI(cip.NewFromConfig(cfg), logger), nil
}

// NewFromAPI wraps an existing SDK client. If logger is nil, a no-op logger is used.
func NewFromAPI(api API, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{API: api, logger: logger}
}

// ListUserPoolsParams are the inputs of ListUserPools.
type ListUserPoolsParams struct {
	MaxResults int32
	NextToken  string
}

// UserPool is a user pool summary.
type UserPool struct {
	ID   string
	Name string
}

// UserPoolPage is one page of ListUserPools results.
type UserPoolPage struct {
	Pools     []UserPool
	NextToken string
}

// ListUserPools returns a single page of user pools.
func (c *Client) ListUserPools(ctx context.Context, p ListUserPoolsParams) (*UserPoolPage, error) {
	in := &cip.ListUserPoolsInput{MaxResults: aws.Int32(p.MaxResults)}
	if p.NextToken != "" {
		in.NextToken = aws.String(p.NextToken)
	}
	out, err := c.API.ListUserPools(ctx, in)
	if err != nil {
		return nil, c.fail("ListUserPools", err)
	}
	page := &UserPoolPage{
		Pools:     make([]UserPool, 0, len(out.UserPools)),
		NextToken: aws.ToString(out.NextToken),
	}
	for _, up := range out.UserPools {
		page.Pools = append(page.Pools, UserPool{ID: aws.ToString(up.Id), Name: aws.ToString(up.Name)})
	}
	return page, nil
}

// ListIdentityProvidersParams are the inputs of ListIdentityProviders.
type ListIdentityProvidersParams struct {
	UserPoolID string
	MaxResults int32
	NextToken  string
}

// IdentityProvider is a federated identity provider configured on a pool.
type IdentityProvider struct {
	Name string
	Type string
}

// IdentityProviderPage is one page of ListIdentityProviders results.
type IdentityProviderPage struct {
	Providers []IdentityProvider
	NextToken string
}

// ListIdentityProviders returns a single page of identity providers for a pool.
func (c *Client) ListIdentityProviders(ctx context.Context, p ListIdentityProvidersParams) (*IdentityProviderPage, error) {
	in := &cip.ListIdentityProvidersInput{
		UserPoolId: aws.String(p.UserPoolID),
		MaxResults: aws.Int32(p.MaxResults),
	}
	if p.NextToken != "" {
		in.NextToken = aws.String(p.NextToken)
	}
	out, err := c.API.ListIdentityProviders(ctx, in)
	if err != nil {
		return nil, c.fail("ListIdentityProviders", err)
	}
	page := &IdentityProviderPage{
		Providers: make([]IdentityProvider, 0, len(out.Providers)),
		NextToken: aws.ToString(out.NextToken),
	}
	for _, pd := range out.Providers {
		page.Providers = append(page.Providers, IdentityProvider{
			Name: aws.ToString(pd.ProviderName),
			Type: string(pd.ProviderType),
		})
	}
	return page, nil
}

// ListUsersParams are the inputs of ListUsers. Filter and PaginationToken are
// only sent when non-empty.
type ListUsersParams struct {
	UserPoolID      string
	Limit           int32
	Filter          string
	PaginationToken string
}

// Attribute is a single user attribute.
type Attribute struct {
	Name  string
	Value string
}

// User is a normalized user record.
type User struct {
	Username         string
	Attributes       []Attribute
	CreateDate       time.Time
	LastModifiedDate time.Time
	Enabled          bool
	Status           string
}

// UserPage is one page of ListUsers results.
type UserPage struct {
	Users           []User
	PaginationToken string
}

// ListUsers returns a single page of users. It never follows the pagination token.
func (c *Client) ListUsers(ctx context.Context, p ListUsersParams) (*UserPage, error) {
	in := &cip.ListUsersInput{
		UserPoolId: aws.String(p.UserPoolID),
		Limit:      aws.Int32(p.Limit),
	}
	if p.Filter != "" {
		in.Filter = aws.String(p.Filter)
	}
	if p.PaginationToken != "" {
		in.PaginationToken = aws.String(p.PaginationToken)
	}
	out, err := c.API.ListUsers(ctx, in)
	if err != nil {
		return nil, c.fail("ListUsers", err)
	}
	page := &UserPage{
		Users:           make([]User, 0, len(out.Users)),
		PaginationToken: aws.ToString(out.PaginationToken),
	}
	for _, u := range out.Users {
		page.Users = append(page.Users, User{
			Username:         aws.ToString(u.Username),
			Attributes:       normalizeAttributes(u.Attributes),
			CreateDate:       aws.ToTime(u.UserCreateDate),
			LastModifiedDate: aws.ToTime(u.UserLastModifiedDate),
			Enabled:          u.Enabled,
			Status:           string(u.UserStatus),
		})
	}
	return page, nil
}

// AdminGetUser looks a user up by username (or an alias Cognito accepts in its place).
func (c *Client) AdminGetUser(ctx context.Context, userPoolID, username string) (*User, error) {
	out, err := c.API.AdminGetUser(ctx, &cip.AdminGetUserInput{
		UserPoolId: aws.String(userPoolID),
		Username:   aws.String(username),
	})
	if err != nil {
		var nf *types.UserNotFoundException
		if errors.As(err, &nf) {
			c.logger.Debug("user not found", zap.String("userPoolID", userPoolID), zap.String("username", username))
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
		}
		return nil, c.fail("AdminGetUser", err)
	}
	return &User{
		Username:         aws.ToString(out.Username),
		Attributes:       normalizeAttributes(out.UserAttributes),
		CreateDate:       aws.ToTime(out.UserCreateDate),
		LastModifiedDate: aws.ToTime(out.UserLastModifiedDate),
		Enabled:          out.Enabled,
		Status:           string(out.UserStatus),
	}, nil
}

// fail logs the API error code, when there is one, and passes err through unchanged
// so its text reaches the caller as-is.
func (c *Client) fail(op string, err error) error {
	c.logger.Warn("cognito request failed",
		zap.String("operation", op),
		zap.String("code", ErrorCode(err)),
		zap.Error(err))
	return err
}

// ErrorCode returns the Cognito error code carried by err, or "" if it has none.
func ErrorCode(err error) string {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode()
	}
	return ""
}

func normalizeAttributes(in []types.AttributeType) []Attribute {
	out := make([]Attribute, 0, len(in))
	for _, a := range in {
		out = append(out, Attribute{Name: aws.ToString(a.Name), Value: aws.ToString(a.Value)})
	}
	return out
}
