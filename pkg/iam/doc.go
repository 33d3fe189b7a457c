// Package iam (Identity and Access Management) is a multi-tenant
// authentication and authorization backend: realms own clients, users belong
// to a client, and roles grant users permissions on a client's endpoints.
//
// # Overview
//
// The iam package is organized into sub-packages that work together:
//
//   - iam/realm:    Tenant boundary. Owns clients, users and roles.
//   - iam/client:   Application inside a realm: public id, secret, allowed
//     endpoints, optional 2FA and a per-client SMTP profile.
//   - iam/user:     Accounts, optional super-user flag, role assignments.
//   - iam/role:     Named permission sets scoped to a realm.
//   - iam/token:    Opaque access/refresh session tokens with sliding expiry.
//   - iam/otp:      Hashed one-time codes for 2FA and password reset.
//   - iam/access:   Pure access decision over (client, roles, request).
//   - iam/auth:     Login, OTP, refresh, logout, password flows, middleware.
//
// # Architecture
//
//	HTTP Handler  →  Service Layer  →  Repository Interface  →  Infrastructure (Postgres/Redis)
//
// Each sub-domain exposes its own error registry (e.g., "AUTH", "USER",
// "CLIENT"), domain entities, request DTOs and repository interfaces. This
// package holds the registry shared by the middleware ("IAM").
//
// # Sessions
//
// Tokens are random opaque strings stored server-side. Every authenticated
// request slides the access expiry forward. A new user login revokes every
// earlier session of that user. Client sessions (POST /auth/client-login)
// carry a client and realm but no user, and are never super users.
//
// # Access Decisions
//
// POST /auth/validate-request answers whether the caller may perform
// method on route at host. Super users are always allowed. Everyone else
// needs a client whose allowed hosts include the host (an empty list allows
// any), and an active role with a rule matching the route and method.
// Denials carry a reason and answer 403.
//
// # Middleware
//
// TokenMiddleware reads credentials from:
//
//   - Authorization: Bearer <token>
//   - access_token cookie
//
// Protect a route group:
//
//	users := api.Group("/users", mw.Authenticate(), mw.RequireSuperUser())
//
// Read the authenticated caller inside a handler:
//
//	authCtx, ok := auth.GetAuthContext(c)
//	if !ok { ... }
//
// # ──────────────────────────────────────────────────────
// # ENDPOINT REFERENCE (mounted under /api)
// # ──────────────────────────────────────────────────────
//
// ## Authentication  (registered by AuthHandlers)
//
//	POST /auth/login             email + password. Tokens, or requires_otp for 2FA clients.
//	POST /auth/validate-otp      email + code. Completes a 2FA login.
//	POST /auth/client-login      client_id. Starts a client session.
//	POST /auth/refresh           refresh_token. New access token.
//	POST /auth/forgot-password   email. Always answers the same message.
//	POST /auth/resend-otp        email + purpose (2fa | reset).
//	POST /auth/reset-password    email + code + new_password.
//	POST /auth/logout            Revokes the presented token.
//	GET  /auth/profile           The caller.
//	GET  /auth/validate          Token check plus caller.
//	POST /auth/validate-request  Access decision for {host, route, method}.
//	PUT  /auth/change-password   User sessions only.
//	GET  /auth/tokens            Super users only. Active sessions of the caller.
//
// Public routes are rate limited per client address when enabled.
//
// ## Management  (super users only)
//
//	/realms   GET, POST, GET/PUT/DELETE /:id, PATCH /:id/toggle-status
//	/clients  as realms, plus GET /stats/overview, POST /:id/regenerate-secret,
//	          POST /:id/test-smtp
//	/users    as realms, plus GET /stats/overview
//	/roles    as realms, plus GET /stats/overview, POST /:id/assign-user,
//	          DELETE /:id/remove-user/:userId, GET /:id/users
//
// # Error Body
//
// Every failure uses the same JSON shape:
//
//	{
//	  "error":      "Invalid credentials",
//	  "code":       "AUTH_INVALID_CREDENTIALS",
//	  "type":       "AUTHORIZATION",
//	  "status":     401,
//	  "request_id": "01J...",
//	  "details":    { ... }        // optional
//	}
package iam
