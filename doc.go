// Package anonauth issues and verifies short-lived credentials for web and
// mobile clients, guaranteeing every request resolves to an identity before
// the wrapped handler runs.
//
// Anonymous-first:
//   - Identity is assigned before any credential is proven. A request with
//     no usable tokens gets a brand-new anonymous subject with a session
//     and refresh token pair; verifying an email upgrades the identity in
//     place instead of creating it at login. There is no user entity in
//     the core, only an opaque subject id with an optional attached email.
//
// Tokens:
//   - Every token is signed with a shared symmetric secret and carries an
//     audience tag (session, refresh, web-auth). Verification checks
//     signature, expiry, and audience atomically, and every failure mode
//     collapses into a single opaque error. Tokens are values: there is no
//     store and no revocation list; rotating the secret is the only way to
//     invalidate outstanding sessions.
//
// Hooks:
//   - Persistence of email to subject mappings and one-time codes, plus
//     delivery, live behind the Hooks contract. Optional lifecycle
//     callbacks (NewUserHook, AuthenticateHook, EmailVerifiedHook,
//     IdentitySwitchHook, UserEmailProvider) are discovered by type
//     assertion on the same value. RepositoryHooks is a bun-backed
//     reference implementation.
//
// Middleware:
//   - middleware/sessionware resolves every request ahead of the handler:
//     pass-through for valid sessions, rotation off the refresh token,
//     anonymous bootstrap otherwise, and redemption of cross-device
//     handoff codes arriving as a query parameter.
package anonauth
