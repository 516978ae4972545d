// Package servicestest provides an in-memory services.Provider for tests.
package servicestest

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/mdayat/jobtrack/internal/services"
)

type App struct {
	name string
	cfg  services.Config
}

func (a *App) Name() string             { return a.name }
func (a *App) Options() services.Config { return a.cfg }

type Database struct {
	App    *App
	Closed bool
}

func (d *Database) Close() error {
	d.Closed = true
	return nil
}

type Auth struct {
	App *App

	mu        sync.Mutex
	user      *services.User
	listeners map[int]func(*services.User)
	nextID    int
}

func (a *Auth) CurrentUser() *services.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user
}

// SetUser changes the signed in user and notifies every listener
// synchronously.
func (a *Auth) SetUser(user *services.User) {
	a.mu.Lock()
	a.user = user
	listeners := make([]func(*services.User), 0, len(a.listeners))
	for _, fn := range a.listeners {
		listeners = append(listeners, fn)
	}
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(user)
	}
}

func (a *Auth) ListenerCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.listeners)
}

// Provider records every call made to it. Set the Err fields to make the
// matching call fail.
type Provider struct {
	InitErr     error
	DatabaseErr error
	AuthErr     error
	SignInErr   error
	SignOutErr  error

	// SignInUser is returned by SignInWithPopup. A default user is used
	// when nil.
	SignInUser *services.User

	mu    sync.Mutex
	apps  []services.App
	calls map[string]int

	LastAuthProvider services.AuthProvider
}

func NewProvider() *Provider {
	return &Provider{calls: map[string]int{}}
}

// Register adds an app as if another part of the process had initialized
// it already.
func (p *Provider) Register(name string, cfg services.Config) *App {
	p.mu.Lock()
	defer p.mu.Unlock()

	app := &App{name: name, cfg: cfg}
	p.apps = append(p.apps, app)
	return app
}

func (p *Provider) Calls(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[method]
}

func (p *Provider) TotalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := 0
	for _, n := range p.calls {
		total += n
	}
	return total
}

func (p *Provider) record(method string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = map[string]int{}
	}
	p.calls[method]++
}

func (p *Provider) InitializeApp(ctx context.Context, cfg services.Config) (services.App, error) {
	p.record("InitializeApp")
	if p.InitErr != nil {
		return nil, p.InitErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, app := range p.apps {
		if app.Name() == "[DEFAULT]" {
			return nil, errors.New("app/duplicate-app")
		}
	}

	app := &App{name: "[DEFAULT]", cfg: cfg}
	p.apps = append(p.apps, app)
	return app, nil
}

func (p *Provider) Apps() []services.App {
	p.record("Apps")
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]services.App(nil), p.apps...)
}

func (p *Provider) Database(ctx context.Context, app services.App) (services.Database, error) {
	p.record("Database")
	if p.DatabaseErr != nil {
		return nil, p.DatabaseErr
	}
	return &Database{App: app.(*App)}, nil
}

func (p *Provider) Auth(ctx context.Context, app services.App) (services.Auth, error) {
	p.record("Auth")
	if p.AuthErr != nil {
		return nil, p.AuthErr
	}
	return &Auth{App: app.(*App), listeners: map[int]func(*services.User){}}, nil
}

func (p *Provider) OnAuthStateChanged(auth services.Auth, fn func(*services.User)) func() {
	p.record("OnAuthStateChanged")
	a := auth.(*Auth)

	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()

	return func() {
		p.record("Unsubscribe")
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (p *Provider) SignInWithPopup(ctx context.Context, auth services.Auth, ap services.AuthProvider) (*services.User, error) {
	p.record("SignInWithPopup")
	p.mu.Lock()
	p.LastAuthProvider = ap
	p.mu.Unlock()

	if p.SignInErr != nil {
		return nil, p.SignInErr
	}

	user := p.SignInUser
	if user == nil {
		user = &services.User{UID: "uid-1", Email: "jane@example.com", ProviderID: ap.ProviderID}
	}
	auth.(*Auth).SetUser(user)
	return user, nil
}

func (p *Provider) SignOut(ctx context.Context, auth services.Auth) error {
	p.record("SignOut")
	if p.SignOutErr != nil {
		return p.SignOutErr
	}
	auth.(*Auth).SetUser(nil)
	return nil
}
