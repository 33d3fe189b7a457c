package access

import (
	"context"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/client"
	"github.com/Abraxas-365/authbuilder/pkg/iam/role"
	"github.com/Abraxas-365/authbuilder/pkg/iam/user"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/Abraxas-365/authbuilder/pkg/logx"
)

type UserLookup interface {
	FindByID(ctx context.Context, id kernel.UserID) (*user.User, error)
}

type ClientLookup interface {
	FindByID(ctx context.Context, id kernel.ClientID) (*client.Client, error)
}

type RoleLookup interface {
	ActiveRolesForUser(ctx context.Context, userID kernel.UserID) ([]*role.Role, error)
}

// Engine loads what a decision needs, one step at a time, and hands it to
// Evaluate. Nothing is cached between calls.
type Engine struct {
	users   UserLookup
	clients ClientLookup
	roles   RoleLookup
}

func NewEngine(users UserLookup, clients ClientLookup, roles RoleLookup) *Engine {
	return &Engine{users: users, clients: clients, roles: roles}
}

func (e *Engine) Authorize(ctx context.Context, caller *kernel.AuthContext, req Request) (Decision, error) {
	if caller == nil || !caller.IsValid() {
		return Decision{}, errx.Unauthorized("Authentication required")
	}

	subject := Subject{IsSuperUser: caller.IsSuperUser && !caller.IsClientSession}
	if subject.IsSuperUser {
		return e.record(caller, req, Evaluate(subject, req)), nil
	}

	c, err := e.resolveClient(ctx, caller)
	if err != nil {
		return Decision{}, err
	}
	subject.Client = c

	if c != nil && c.Endpoints.AllowsHost(req.Host) && caller.IsUser() {
		roles, err := e.roles.ActiveRolesForUser(ctx, *caller.UserID)
		if err != nil {
			return Decision{}, err
		}
		subject.Roles = roles
	}

	return e.record(caller, req, Evaluate(subject, req)), nil
}

func (e *Engine) resolveClient(ctx context.Context, caller *kernel.AuthContext) (*client.Client, error) {
	clientID := caller.ClientID
	if caller.IsUser() {
		u, err := e.users.FindByID(ctx, *caller.UserID)
		if err != nil {
			return nil, err
		}
		clientID = u.ClientID
	}
	if clientID == nil {
		return nil, nil
	}

	c, err := e.clients.FindByID(ctx, *clientID)
	if err != nil {
		if errx.HasCode(err, client.CodeClientNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (e *Engine) record(caller *kernel.AuthContext, req Request, d Decision) Decision {
	entry := logx.WithFields(logx.Fields{
		"subject": caller.SubjectID(),
		"host":    req.Host,
		"route":   req.Route,
		"method":  req.Method,
		"allowed": d.Allowed,
		"reason":  d.Reason,
	})
	if d.MatchedRoleID != nil {
		entry = entry.WithField("role_id", *d.MatchedRoleID)
	}
	entry.Debug("Access decision")
	return d
}
