// Package auth authenticates API callers and guards routes by role.
//
// Two modes are supported:
//   - "none": no credentials; the actor is the user named by the X-Debug-User
//     header (id or username), or the first ADMIN when the header is absent.
//   - "local": local accounts with bcrypt passwords, cookie sessions stored in
//     sqlite, and SHA-256 hashed bearer tokens for API clients.
//
// A session caches its user's role so RequireRole needs no query. The role is
// reread after AUTH_SESSION_ROLE_RECHECK; a changed role renews the session
// token and a deleted user's session is ended. ADMIN and CONTENT_ADMIN
// accounts need longer passwords than other roles.
//
// # Configuration
//
//	AUTH_MODE=none|local
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # generated when empty
//	AUTH_SESSION_LIFETIME=24h
//	AUTH_TOKEN_EXPIRY=720h
//	AUTH_BCRYPT_COST=12
//	AUTH_SECURE_COOKIES=true
//	AUTH_SESSION_ROLE_RECHECK=1m
//	AUTH_MAX_LOGIN_ATTEMPTS=5            # per client IP and username
//
// # Usage
//
//	svc := auth.NewService(db, cfg.Auth)
//	router.Use(auth.NewMiddleware(svc, sessions, cfg.Auth).Handler())
//	admin := router.Group("/api/admin", auth.RequireRole(entities.UserRoleAdmin))
package auth
