// Package session manages the client's access/refresh token lifecycle.
//
// A [Manager] is built once per process and shared by reference. It owns:
//   - [Store] : the persisted [TokenPair] (key "auth_tokens"), the expiry
//     checks and the single renewal timer
//   - [Coordinator] : the refresh exchange against POST /auth/refresh, with
//     concurrent callers collapsed into one request
//
// Token expiry is read from the access token's exp claim without verifying
// its signature. It only drives scheduling; the API still answers 401 for an
// expired token.
//
// Refresh failures never surface as errors. A 401 or 403 from the refresh
// endpoint clears the session; anything else (network, timeout, 5xx) keeps it
// so a later call can try again. Either way the caller sees "no token".
package session
