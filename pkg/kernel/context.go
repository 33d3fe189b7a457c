package kernel

import "context"

// AuthContext describes the authenticated caller of a request. It is built by
// the token middleware from the session token and never from request input.
type AuthContext struct {
	TokenID         TokenID   `json:"token_id"`
	UserID          *UserID   `json:"user_id,omitempty"`
	ClientID        *ClientID `json:"client_id,omitempty"`
	RealmID         *RealmID  `json:"realm_id,omitempty"`
	Email           string    `json:"email,omitempty"`
	IsSuperUser     bool      `json:"is_super_user"`
	IsClientSession bool      `json:"is_client_session"`
}

// IsValid reports whether exactly one kind of subject is present.
func (ac *AuthContext) IsValid() bool {
	if ac == nil {
		return false
	}
	if ac.IsClientSession {
		return ac.ClientID != nil && !ac.ClientID.IsEmpty() && ac.UserID == nil
	}
	return ac.UserID != nil && !ac.UserID.IsEmpty()
}

// IsUser reports whether the caller is an end user rather than a client session.
func (ac *AuthContext) IsUser() bool {
	return ac.IsValid() && !ac.IsClientSession
}

// SubjectID returns the user or client id behind the session.
func (ac *AuthContext) SubjectID() string {
	switch {
	case ac == nil:
		return ""
	case ac.IsClientSession && ac.ClientID != nil:
		return ac.ClientID.String()
	case ac.UserID != nil:
		return ac.UserID.String()
	}
	return ""
}

type ContextKey string

const (
	AuthContextKey ContextKey = "auth_context"
	RequestIDKey   ContextKey = "request_id"
)

// WithAuthContext stores ac in ctx.
func WithAuthContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, AuthContextKey, ac)
}

// AuthFromContext returns the caller stored by WithAuthContext.
func AuthFromContext(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(AuthContextKey).(*AuthContext)
	return ac, ok && ac != nil
}

type clientIPKey struct{}

// WithClientIP records the caller's network address for audit sinks.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}
