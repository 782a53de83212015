package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrInvalidArguments indicates the call's arguments could not be extracted.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrNoIdentifier indicates get_user was called without any identifier key.
	ErrNoIdentifier = errors.New("no valid identifier provided")
)

// ArgumentError reports a single argument that has the wrong shape.
type ArgumentError struct {
	Key    string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrInvalidArguments, e.Key, e.Reason)
}

func (e *ArgumentError) Unwrap() error { return ErrInvalidArguments }

// Arguments is the loosely typed argument object of a tool call.
type Arguments map[string]any

// ParseArguments decodes the raw arguments of a tool call. Missing or null
// arguments decode to an empty map; anything other than a JSON object is an error.
func ParseArguments(raw json.RawMessage) (Arguments, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Arguments{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var args Arguments
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if args == nil {
		return Arguments{}, nil
	}
	return args, nil
}

// present reports whether key holds a value that should override a default.
// Absent keys, null and the empty string count as not present.
func (a Arguments) present(key string) (any, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, false
	}
	if s, ok := v.(string); ok && s == "" {
		return nil, false
	}
	return v, true
}

// String returns the argument as a string, or "" when it is not present.
// Scalars of other types are formatted; objects and arrays are an error.
func (a Arguments) String(key string) (string, error) {
	v, ok := a.present(key)
	if !ok {
		return "", nil
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", &ArgumentError{Key: key, Reason: fmt.Sprintf("expected a string, got %T", v)}
	}
}

// Int32 returns the argument as an int32, or def when it is not present.
// An explicit zero is returned as zero, not replaced by def.
func (a Arguments) Int32(key string, def int32) (int32, error) {
	v, ok := a.present(key)
	if !ok {
		return def, nil
	}
	var n int64
	switch t := v.(type) {
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			f, ferr := t.Float64()
			if ferr != nil || f != math.Trunc(f) {
				return 0, &ArgumentError{Key: key, Reason: fmt.Sprintf("expected an integer, got %s", t)}
			}
			if !fitsInt32(f) {
				return 0, outOfRange(key, t.String())
			}
			i = int64(f)
		}
		n = i
	case float64:
		if t != math.Trunc(t) {
			return 0, &ArgumentError{Key: key, Reason: fmt.Sprintf("expected an integer, got %v", t)}
		}
		if !fitsInt32(t) {
			return 0, outOfRange(key, strconv.FormatFloat(t, 'g', -1, 64))
		}
		n = int64(t)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, &ArgumentError{Key: key, Reason: fmt.Sprintf("expected an integer, got %q", t)}
		}
		n = i
	default:
		return 0, &ArgumentError{Key: key, Reason: fmt.Sprintf("expected an integer, got %T", v)}
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, outOfRange(key, strconv.FormatInt(n, 10))
	}
	return int32(n), nil
}

func fitsInt32(f float64) bool {
	return f >= math.MinInt32 && f <= math.MaxInt32
}

func outOfRange(key, value string) *ArgumentError {
	return &ArgumentError{Key: key, Reason: value + " is out of range"}
}

// First returns the key and value of the first of keys that holds a non-empty
// value. False, zero and empty strings are skipped.
func (a Arguments) First(keys ...string) (key, value string, ok bool) {
	for _, k := range keys {
		v, present := a.present(k)
		if !present || isZero(v) {
			continue
		}
		s, err := a.String(k)
		if err != nil || s == "" {
			continue
		}
		return k, s, true
	}
	return "", "", false
}

func isZero(v any) bool {
	switch t := v.(type) {
	case bool:
		return !t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case float64:
		return t == 0
	}
	return false
}

// ListUserPoolsArgs are the extracted arguments of cognito_list_user_pools.
type ListUserPoolsArgs struct {
	Limit     int32
	NextToken string
}

func parseListUserPools(a Arguments) (ListUserPoolsArgs, error) {
	var out ListUserPoolsArgs
	var err error
	if out.Limit, err = a.Int32("limit", DefaultLimit); err != nil {
		return out, err
	}
	if out.NextToken, err = a.String("next_token"); err != nil {
		return out, err
	}
	return out, nil
}

// ListIdentityProvidersArgs are the extracted arguments of cognito_list_identity_providers.
type ListIdentityProvidersArgs struct {
	UserPoolID string
	Limit      int32
	NextToken  string
}

func parseListIdentityProviders(a Arguments, defaultPoolID string) (ListIdentityProvidersArgs, error) {
	out := ListIdentityProvidersArgs{}
	var err error
	if out.UserPoolID, err = poolID(a, defaultPoolID); err != nil {
		return out, err
	}
	if out.Limit, err = a.Int32("limit", DefaultLimit); err != nil {
		return out, err
	}
	if out.NextToken, err = a.String("next_token"); err != nil {
		return out, err
	}
	return out, nil
}

// ListUsersArgs are the extracted arguments of cognito_list_users.
type ListUsersArgs struct {
	UserPoolID      string
	AttributeName   string
	FilterType      string
	AttributeValue  string
	Filter          string
	PaginationToken string
	Limit           int32
}

func parseListUsers(a Arguments, defaultPoolID string) (ListUsersArgs, error) {
	out := ListUsersArgs{}
	var err error
	if out.UserPoolID, err = poolID(a, defaultPoolID); err != nil {
		return out, err
	}
	fields := []struct {
		key string
		dst *string
	}{
		{"attribute_name", &out.AttributeName},
		{"filter_type", &out.FilterType},
		{"attribute_value", &out.AttributeValue},
		{"filter", &out.Filter},
		{"pagination_token", &out.PaginationToken},
	}
	for _, f := range fields {
		if *f.dst, err = a.String(f.key); err != nil {
			return out, err
		}
	}
	if out.Limit, err = a.Int32("limit", DefaultLimit); err != nil {
		return out, err
	}
	return out, nil
}

// FilterExpression returns the Cognito filter to send, or "" for none.
// A raw filter wins; otherwise both attribute_name and filter_type must be set.
func (a ListUsersArgs) FilterExpression() string {
	if a.Filter != "" {
		return a.Filter
	}
	if a.AttributeName == "" || a.FilterType == "" {
		return ""
	}
	return fmt.Sprintf("%s %s %s", a.AttributeName, a.FilterType, quoteFilterValue(a.AttributeValue))
}

func quoteFilterValue(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(v) + `"`
}

// GetUserArgs are the extracted arguments of cognito_get_user.
type GetUserArgs struct {
	UserPoolID    string
	IdentifierKey string
	Identifier    string
}

func parseGetUser(a Arguments, defaultPoolID string) (GetUserArgs, error) {
	out := GetUserArgs{}
	var err error
	if out.UserPoolID, err = poolID(a, defaultPoolID); err != nil {
		return out, err
	}
	key, value, ok := a.First(IdentifierKeys...)
	if !ok {
		return out, ErrNoIdentifier
	}
	out.IdentifierKey, out.Identifier = key, value
	return out, nil
}

func poolID(a Arguments, def string) (string, error) {
	id, err := a.String("user_pool_id")
	if err != nil {
		return "", err
	}
	if id == "" {
		return def, nil
	}
	return id, nil
}
