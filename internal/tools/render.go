package tools

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"mcp-cognito/internal/cognito"
)

func renderUserPools(page *cognito.UserPoolPage) string {
	lines := make([]string, 0, len(page.Pools)+1)
	for _, p := range page.Pools {
		lines = append(lines, fmt.Sprintf("%s: %s", p.ID, p.Name))
	}
	if page.NextToken != "" {
		lines = append(lines, "NextToken: "+page.NextToken)
	}
	return strings.Join(lines, "\n")
}

func renderIdentityProviders(page *cognito.IdentityProviderPage) string {
	lines := make([]string, 0, len(page.Providers)+1)
	for _, p := range page.Providers {
		lines = append(lines, fmt.Sprintf("ProviderName: %s, ProviderType: %s", p.Name, p.Type))
	}
	if page.NextToken != "" {
		lines = append(lines, "NextToken: "+page.NextToken)
	}
	return strings.Join(lines, "\n")
}

// renderUsers writes one block per user: the username, then the user's
// non-attribute fields, then a blank line.
func renderUsers(page *cognito.UserPage) string {
	var b strings.Builder
	for _, u := range page.Users {
		b.WriteString(u.Username)
		b.WriteByte('\n')
		fmt.Fprintf(&b, "Username: %s\n", u.Username)
		fmt.Fprintf(&b, "Enabled: %s\n", strconv.FormatBool(u.Enabled))
		fmt.Fprintf(&b, "UserStatus: %s\n", u.Status)
		fmt.Fprintf(&b, "UserCreateDate: %s\n", formatTime(u.CreateDate))
		fmt.Fprintf(&b, "UserLastModifiedDate: %s\n", formatTime(u.LastModifiedDate))
		b.WriteByte('\n')
	}
	if page.PaginationToken != "" {
		fmt.Fprintf(&b, "PaginationToken: %s\n", page.PaginationToken)
	}
	return b.String()
}

func renderUser(u *cognito.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Username: %s\n", u.Username)
	b.WriteString("UserAttributes:\n")
	for _, a := range u.Attributes {
		fmt.Fprintf(&b, "  %s: %s\n", a.Name, a.Value)
	}
	fmt.Fprintf(&b, "UserCreateDate: %s\n", formatTime(u.CreateDate))
	fmt.Fprintf(&b, "UserLastModifiedDate: %s\n", formatTime(u.LastModifiedDate))
	fmt.Fprintf(&b, "Enabled: %s\n", strconv.FormatBool(u.Enabled))
	fmt.Fprintf(&b, "UserStatus: %s\n", u.Status)
	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
