package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Session errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrAuthExpired      = fmt.Errorf("session expired, log in again")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrMissingExpiry    = fmt.Errorf("access token has no expiry claim")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrRefreshRejected  = fmt.Errorf("refresh token rejected")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Transport and API errors
	ErrNetwork            = fmt.Errorf("network request failed")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Storage errors
	ErrStorageNotFound  = fmt.Errorf("key not found")
	ErrStorageCorrupted = fmt.Errorf("stored value is corrupted")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
