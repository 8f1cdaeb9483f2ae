// Package gateway is the single chokepoint for band API calls.
//
// Every request passes through [Client.Do], which:
//   - joins relative paths to the API base URL
//   - attaches "Authorization: Bearer" to protected calls when the session
//     has a token (public paths such as /auth/login never consult it)
//   - retries attempts that got no response, with capped exponential backoff
//   - turns a 401 on a protected call into a cleared session
//
// Non-2xx responses come back as [HTTPError], whose message reads
// "{status}-{message}". Exhausted retries come back as [NetworkError].
package gateway
