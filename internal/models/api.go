package models

import "time"

// User is a band API account profile.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Username      string    `json:"username,omitempty"`
	AvatarURL     string    `json:"avatarUrl,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt,omitzero"`
}

// DisplayName returns "First Last", falling back to the email.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

// NewUser is the registration payload for POST /users.
type NewUser struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Band is a worship band and its roster.
type Band struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Members     []BandMember `json:"members,omitempty"`
	CreatedAt   time.Time    `json:"createdAt,omitzero"`
}

// BandMember is a user's membership in a band.
type BandMember struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Admin  bool   `json:"isAdmin"`
}

// Event is a service, rehearsal or gig with its setlist.
type Event struct {
	ID        string    `json:"id"`
	BandID    string    `json:"bandId"`
	Title     string    `json:"title"`
	Location  string    `json:"location,omitempty"`
	StartsAt  time.Time `json:"startsAt"`
	EndsAt    time.Time `json:"endsAt,omitzero"`
	SongIDs   []string  `json:"songIds,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// Song is an entry in a band's song library.
type Song struct {
	ID     string   `json:"id"`
	BandID string   `json:"bandId"`
	Title  string   `json:"title"`
	Artist string   `json:"artist,omitempty"`
	Key    string   `json:"key,omitempty"`
	BPM    int      `json:"bpm,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// Lyrics holds a song's lyric sheet with inline chords.
type Lyrics struct {
	SongID    string      `json:"songId"`
	Sections  []LyricLine `json:"sections"`
	UpdatedAt time.Time   `json:"updatedAt,omitzero"`
}

// LyricLine is one line of lyrics with chord annotations.
type LyricLine struct {
	Section string  `json:"section,omitempty"`
	Text    string  `json:"text"`
	Chords  []Chord `json:"chords,omitempty"`
}

// Chord is a chord placed at a character offset in a lyric line.
type Chord struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
}

// Post is a social feed entry.
type Post struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"authorId"`
	AuthorName   string    `json:"authorName,omitempty"`
	Content      string    `json:"content"`
	BlessCount   int       `json:"blessingsCount"`
	CommentCount int       `json:"commentsCount"`
	Blessed      bool      `json:"blessedByMe"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
}

// Comment is a reply on a [Post].
type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"postId"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt,omitzero"`
}

// Blessing is a "like" on a [Post].
type Blessing struct {
	PostID string `json:"postId"`
	UserID string `json:"userId"`
	Count  int    `json:"blessingsCount"`
}

// Page is a paginated list envelope.
type Page[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Total int `json:"total"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by /auth/login and /auth/refresh.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user,omitempty"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Message is a bare {"message": "..."} acknowledgement.
type Message struct {
	Message string `json:"message"`
}

// BandExport is a band with its events and song library, as written by a
// bulk export.
type BandExport struct {
	Band       Band      `json:"band"`
	Events     []Event   `json:"events"`
	Songs      []Song    `json:"songs"`
	ExportedAt time.Time `json:"exportedAt,omitzero"`
}

// SongTitle resolves a song ID against the export's library.
func (e *BandExport) SongTitle(id string) string {
	for _, s := range e.Songs {
		if s.ID == id {
			return s.Title
		}
	}
	return id
}
