// API service for making raw requests to the band API
package services

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/desertthunder/setlist/internal/gateway"
)

// APIService makes raw requests through the gateway, for the `setlist api`
// command and the local proxy.
type APIService struct {
	client *gateway.Client
}

// NewAPIService creates a new API service over client.
func NewAPIService(client *gateway.Client) *APIService {
	return &APIService{client: client}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

func newAPIResponse(status int, header http.Header, body []byte) *APIResponse {
	resp := &APIResponse{StatusCode: status, Headers: header, Body: body}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		resp.IsJSON = true
		resp.JSONData = jsonData
	}
	return resp
}

// Do sends method to path with a JSON payload (nil for none).
//
// An error status still yields a response alongside the *[gateway.HTTPError],
// so callers can show the server's body.
func (a *APIService) Do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	var body any
	var opts []gateway.RequestOption
	if len(data) > 0 {
		body = data
		opts = append(opts, gateway.WithContentType("application/json"))
	}

	resp, err := a.client.Do(ctx, method, path, body, opts...)
	if err != nil {
		if herr, ok := gateway.AsHTTPError(err); ok {
			return newAPIResponse(herr.StatusCode, http.Header{}, herr.Body), err
		}
		return nil, err
	}
	return newAPIResponse(resp.StatusCode, resp.Header, resp.Body), nil
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.Do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPost, path, data)
}

func (a *APIService) Put(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPut, path, data)
}

func (a *APIService) Patch(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPatch, path, data)
}

func (a *APIService) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return a.Do(ctx, http.MethodDelete, path, nil)
}
