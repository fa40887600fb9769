// Package identity resolves the (user, team) attribution pair for a request.
//
// Identity is extracted from inbound request metadata (the X-User-ID and
// X-Team-ID headers) and is immutable for the lifetime of the request.
// Absent values map to configured sentinel defaults so that every usage
// record carries a complete attribution pair.
package identity

import (
	"context"
	"net/http"
)

// Header names carrying attribution metadata on inbound requests.
const (
	UserHeader = "X-User-ID"
	TeamHeader = "X-Team-ID"
)

// Default sentinel values used when a request carries no attribution headers
// and no overrides are configured.
const (
	DefaultUser = "anonymous"
	DefaultTeam = "unassigned"
)

// Identity is the (user, team) pair a request is attributed to.
// Every record written by the usage recorder carries exactly one Identity.
type Identity struct {
	UserID string
	TeamID string
}

// Key returns a stable map key for the identity.
func (id Identity) Key() string {
	return id.UserID + "/" + id.TeamID
}

// Resolver extracts identities from requests, applying configured defaults.
type Resolver struct {
	defaultUser string
	defaultTeam string
}

// NewResolver creates a resolver with the given sentinel defaults.
// Empty defaults fall back to the package constants.
func NewResolver(defaultUser, defaultTeam string) *Resolver {
	if defaultUser == "" {
		defaultUser = DefaultUser
	}
	if defaultTeam == "" {
		defaultTeam = DefaultTeam
	}
	return &Resolver{defaultUser: defaultUser, defaultTeam: defaultTeam}
}

// FromRequest extracts the identity from request headers.
func (r *Resolver) FromRequest(req *http.Request) Identity {
	return r.Resolve(req.Header.Get(UserHeader), req.Header.Get(TeamHeader))
}

// Resolve builds an identity from raw header values, substituting defaults
// for absent fields.
func (r *Resolver) Resolve(userID, teamID string) Identity {
	if userID == "" {
		userID = r.defaultUser
	}
	if teamID == "" {
		teamID = r.defaultTeam
	}
	return Identity{UserID: userID, TeamID: teamID}
}

type contextKey struct{}

// NewContext returns a context carrying the identity.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext retrieves the identity stored by NewContext.
// The second return value reports whether an identity was present.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
