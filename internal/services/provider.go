package services

import (
	"context"
	"time"
)

// Config holds the connection parameters of a Firebase web app.
type Config struct {
	APIKey     string
	AuthDomain string
	ProjectID  string
	AppID      string
}

// App is an application handle owned by a Provider.
type App interface {
	Name() string
	Options() Config
}

// Database is a document database handle derived from an App.
type Database interface {
	Close() error
}

// Auth is an authentication client handle derived from an App.
type Auth interface {
	CurrentUser() *User
}

// User is the identity returned by a successful sign in.
type User struct {
	UID           string    `json:"uid"`
	Email         string    `json:"email,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	DisplayName   string    `json:"display_name,omitempty"`
	PhotoURL      string    `json:"photo_url,omitempty"`
	ProviderID    string    `json:"provider_id"`
	IsNewUser     bool      `json:"is_new_user"`
	IDToken       string    `json:"-"`
	RefreshToken  string    `json:"-"`
	ExpiresAt     time.Time `json:"-"`
}

const GoogleProviderID = "google.com"

// AuthProvider describes the federated identity provider used for an
// interactive sign in.
type AuthProvider struct {
	ProviderID       string
	Scopes           []string
	CustomParameters map[string]string
}

// Provider is the capability set of the backend-as-a-service SDK.
type Provider interface {
	InitializeApp(ctx context.Context, cfg Config) (App, error)
	Apps() []App
	Database(ctx context.Context, app App) (Database, error)
	Auth(ctx context.Context, app App) (Auth, error)
	OnAuthStateChanged(auth Auth, fn func(*User)) func()
	SignInWithPopup(ctx context.Context, auth Auth, p AuthProvider) (*User, error)
	SignOut(ctx context.Context, auth Auth) error
}
