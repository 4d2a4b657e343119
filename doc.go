// Package auth provides identity and access primitives: principal
// registration, password login, HS256 access tokens, role administration
// and a fiber request gate.
//
// Authentication:
//   - Auther registers principals through a CredentialStore and issues a one
//     hour token on Login. Unknown emails and wrong passwords both return
//     ErrInvalidCredentials; the failing stage is only visible in logs and
//     activity events.
//   - TokenService signs tokens carrying sub, email and jti with a kid header.
//     Retired keys passed with WithPreviousSigningKeys keep validating tokens
//     issued before a rotation.
//
// Roles:
//   - RoleRegistry holds the roles declared at startup. RoleAdmin adds roles
//     (AssignRole), replaces the whole set in one transaction (ChangeRole) and
//     removes single roles (RevokeRole).
//   - Tokens do not carry roles. RouteAuthenticator resolves the current set
//     through a RoleResolver on routes that require a role, so changes apply
//     to tokens already issued. CachedRoleResolver entries are purged by
//     RoleAdmin after each mutation.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther and RoleAdmin
//     to describe registration, login and role events. Sinks run best-effort
//     (errors are logged) so you can forward to a database or queue without
//     blocking authentication. See the activitymap package for a normalized
//     record shape.
package auth
