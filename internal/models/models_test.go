package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestUserDisplayName(t *testing.T) {
	tc := []struct {
		name string
		user User
		want string
	}{
		{name: "full name", user: User{FirstName: "Ada", LastName: "King", Email: "ada@example.com"}, want: "Ada King"},
		{name: "first only", user: User{FirstName: "Ada", Email: "ada@example.com"}, want: "Ada"},
		{name: "email fallback", user: User{Email: "ada@example.com"}, want: "ada@example.com"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthResponseDecoding(t *testing.T) {
	body := `{"accessToken":"a","refreshToken":"r","user":{"id":"u1","email":"e@example.com","firstName":"E"}}`

	var resp AuthResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}

	if resp.AccessToken != "a" || resp.RefreshToken != "r" {
		t.Errorf("unexpected tokens: %+v", resp)
	}
	if resp.User == nil || resp.User.ID != "u1" {
		t.Errorf("expected user u1, got %+v", resp.User)
	}
}

func TestRefreshRequestEncoding(t *testing.T) {
	data, err := json.Marshal(RefreshRequest{RefreshToken: "r1"})
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	if string(data) != `{"refreshToken":"r1"}` {
		t.Errorf("unexpected body %s", data)
	}
}

func TestEventOmitsZeroTimes(t *testing.T) {
	data, err := json.Marshal(Event{ID: "e1", Title: "Sunday"})
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	if strings.Contains(string(data), "endsAt") || strings.Contains(string(data), "createdAt") {
		t.Errorf("expected zero times to be omitted, got %s", data)
	}
}

func TestExportRunValidate(t *testing.T) {
	tc := []struct {
		name    string
		run     *ExportRun
		wantErr bool
	}{
		{name: "valid", run: NewExportRun("./out", "json", 3, 2, 1)},
		{name: "no dir", run: NewExportRun("", "json", 1, 1, 0), wantErr: true},
		{name: "no format", run: NewExportRun("./out", "", 1, 1, 0), wantErr: true},
		{name: "too many results", run: NewExportRun("./out", "csv", 1, 1, 1), wantErr: true},
		{name: "negative", run: NewExportRun("./out", "csv", 1, -1, 0), wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
