// Package access decides whether a caller may perform a method on a route at
// a host, using the caller's client host allow-list and the access modules of
// the caller's active roles.
//
// Matching is method membership plus either exact route equality or, for a
// pattern ending in "*", a prefix match on everything before the "*". The
// rights level of a module is stored but not consulted here.
package access

import (
	"strings"

	"github.com/Abraxas-365/authbuilder/pkg/iam/client"
	"github.com/Abraxas-365/authbuilder/pkg/iam/role"
	"github.com/Abraxas-365/authbuilder/pkg/kernel"
)

type Reason string

const (
	ReasonSuperUser      Reason = "super_user"
	ReasonNoClient       Reason = "no_client"
	ReasonHostNotAllowed Reason = "host_not_allowed"
	ReasonNoRoles        Reason = "no_roles"
	ReasonNoMatchingRule Reason = "no_matching_rule"
	ReasonMatched        Reason = "matched"
)

// Request is the inbound call being authorized.
type Request struct {
	Host   string `json:"host" validate:"required"`
	Route  string `json:"route" validate:"required"`
	Method string `json:"method" validate:"required,oneof=GET POST PUT DELETE PATCH get post put delete patch"`
}

type Decision struct {
	Allowed       bool           `json:"allowed"`
	Reason        Reason         `json:"reason"`
	MatchedRoleID *kernel.RoleID `json:"matched_role_id,omitempty"`
}

func allow(reason Reason) Decision { return Decision{Allowed: true, Reason: reason} }
func deny(reason Reason) Decision  { return Decision{Allowed: false, Reason: reason} }

// Subject is everything the decision needs about the caller. Client and
// Roles may be left unloaded when an earlier step already decides.
type Subject struct {
	IsSuperUser bool
	Client      *client.Client
	Roles       []*role.Role
}

// Evaluate runs the decision steps in order over already loaded data.
func Evaluate(s Subject, req Request) Decision {
	if s.IsSuperUser {
		return allow(ReasonSuperUser)
	}
	if s.Client == nil {
		return deny(ReasonNoClient)
	}
	if !s.Client.Endpoints.AllowsHost(req.Host) {
		return deny(ReasonHostNotAllowed)
	}
	if len(s.Roles) == 0 {
		return deny(ReasonNoRoles)
	}

	method := strings.ToUpper(req.Method)
	for _, r := range s.Roles {
		if RoleAllows(r, req.Route, method) {
			id := r.ID
			d := allow(ReasonMatched)
			d.MatchedRoleID = &id
			return d
		}
	}
	return deny(ReasonNoMatchingRule)
}

// RoleAllows reports whether any URI rule of the role matches. method must
// already be uppercase.
func RoleAllows(r *role.Role, route, method string) bool {
	for _, module := range r.Access {
		for _, rule := range module.URI {
			if RuleMatches(rule, route, method) {
				return true
			}
		}
	}
	return false
}

func RuleMatches(rule role.URIRule, route, method string) bool {
	return methodAllowed(rule.Methods, method) && PatternMatches(rule.URL, route)
}

// PatternMatches is exact equality, or prefix match when pattern ends in "*".
func PatternMatches(pattern, route string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(route, prefix)
	}
	return pattern == route
}

func methodAllowed(methods []string, method string) bool {
	for _, m := range methods {
		if strings.ToUpper(m) == method {
			return true
		}
	}
	return false
}
