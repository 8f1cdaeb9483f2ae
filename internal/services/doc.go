// Package services wraps the band API in typed calls.
//
// Every service sends through one shared [gateway.Client], so auth headers,
// retries and 401 handling happen in one place. None of them validate beyond
// required IDs; the server owns the business rules.
//
//   - [AuthService] : login, sign-up, password reset, email verification
//   - [UserService] : registration and the signed-in profile
//   - [BandService], [EventService], [SongService] : band rosters, setlists,
//     the song library with lyrics and chords
//   - [FeedService] : posts, comments and blessings
//   - [APIService] : raw requests for the `setlist api` command
//
// # Sessions
//
// [AuthService.Login] hands the returned token pair to the session manager,
// which persists it and schedules renewal. Logout only clears local state.
//
// # Errors
//
// Calls return the gateway's errors unchanged:
//   - *[gateway.HTTPError] : non-2xx, rendered "{status}-{message}"
//   - *[gateway.NetworkError] : no response after retries
//   - [shared.ErrMissingArgument] : a required ID was empty
package services
