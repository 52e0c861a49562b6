// Package session implements the account-authentication core of a
// content-sharing platform: credential hashing, signed access/refresh token
// issuance, single-session refresh-token rotation, and the request-time
// guard that resolves bearer tokens to principals.
//
// Token life cycle:
//   - Login verifies a credential through the bcrypt vault, mints an
//     access/refresh pair, and persists the refresh token as the only valid
//     session marker for that principal.
//   - Refresh verifies the presented refresh token, requires bit-for-bit
//     equality with the stored value, and rotates both tokens. The previous
//     refresh token becomes permanently unusable.
//   - Logout clears the stored token and is idempotent.
//
// Persistence:
//   - The refresh token lives in a single column on the users row, behind the
//     narrow SessionStore interface. A multi-session upgrade (a token set
//     keyed by device) stays a local change to that interface.
//
// The middleware/jwtware subpackage provides the HTTP guard; it validates
// access tokens, loads a sanitized principal, and never mutates session
// state.
package session
