// Package firebase implements services.Provider on top of the Firebase Admin
// SDK, Firestore, Google OAuth 2.0 and the Identity Toolkit REST API.
package firebase

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/mdayat/jobtrack/internal/services"
)

const (
	defaultIdentityToolkitURL = "https://identitytoolkit.googleapis.com"
	authEmulatorHostEnv       = "FIREBASE_AUTH_EMULATOR_HOST"
)

type Option func(*Provider)

func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// WithIdentityToolkitURL overrides the Identity Toolkit base URL.
func WithIdentityToolkitURL(baseURL string) Option {
	return func(p *Provider) {
		p.identityToolkitURL = baseURL
	}
}

// WithOAuthClient sets the Google OAuth client used for the interactive
// sign in.
func WithOAuthClient(clientID, clientSecret string) Option {
	return func(p *Provider) {
		p.clientID = clientID
		p.clientSecret = clientSecret
	}
}

func WithOAuthEndpoint(endpoint oauth2.Endpoint) Option {
	return func(p *Provider) {
		p.oauthEndpoint = endpoint
	}
}

// WithBrowser sets the function that shows the authorization URL to the
// user.
func WithBrowser(open func(authURL string) error) Option {
	return func(p *Provider) {
		p.openURL = open
	}
}

// WithTokenVerifier replaces the Admin SDK auth client as the Firebase ID
// token verifier.
func WithTokenVerifier(verifier TokenVerifier) Option {
	return func(p *Provider) {
		p.verifier = verifier
	}
}

func WithSessionStore(store SessionStore) Option {
	return func(p *Provider) {
		p.store = store
	}
}

func WithRetry(attempts uint, delay time.Duration) Option {
	return func(p *Provider) {
		p.retryAttempts = attempts
		p.retryDelay = delay
	}
}

// WithClientOptions passes Google API client options, such as credentials,
// to every app.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(p *Provider) {
		p.clientOptions = append(p.clientOptions, opts...)
	}
}

// Provider is the Firebase implementation of services.Provider. Apps are
// registered by name like the web SDK does, so a second default app fails.
type Provider struct {
	httpClient         *http.Client
	rest               *resty.Client
	identityToolkitURL string
	oauthEndpoint      oauth2.Endpoint
	clientID           string
	clientSecret       string
	openURL            func(string) error
	verifier           TokenVerifier
	store              SessionStore
	retryAttempts      uint
	retryDelay         time.Duration
	clientOptions      []option.ClientOption

	mu    sync.Mutex
	apps  []*App
	auths map[string]*authClient
}

func New(opts ...Option) *Provider {
	p := &Provider{
		httpClient:         &http.Client{Timeout: 30 * time.Second},
		identityToolkitURL: defaultIdentityToolkitURL,
		oauthEndpoint:      google.Endpoint,
		openURL:            printAuthURL,
		store:              NewMemoryStore(),
		retryAttempts:      3,
		retryDelay:         200 * time.Millisecond,
		auths:              map[string]*authClient{},
	}

	if host := os.Getenv(authEmulatorHostEnv); host != "" {
		p.identityToolkitURL = fmt.Sprintf("http://%s/identitytoolkit.googleapis.com", host)
	}

	for _, opt := range opts {
		opt(p)
	}

	p.rest = resty.NewWithClient(p.httpClient).
		SetBaseURL(p.identityToolkitURL).
		SetHeader("Content-Type", "application/json")
	return p
}

func printAuthURL(authURL string) error {
	log.Info().Str("auth_url", authURL).Msg("waiting for google sign in")
	_, err := fmt.Fprintf(os.Stderr, "Open the following URL in your browser to sign in:\n\n%s\n\n", authURL)
	return err
}

func (p *Provider) InitializeApp(ctx context.Context, cfg services.Config) (services.App, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, app := range p.apps {
		if app.name == DefaultAppName {
			return nil, &AuthError{
				Code:    CodeDuplicateApp,
				Message: fmt.Sprintf("firebase app named %q already exists", DefaultAppName),
			}
		}
	}

	fb, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, p.clientOptions...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create firebase app")
	}

	app := &App{name: DefaultAppName, cfg: cfg, fb: fb}
	p.apps = append(p.apps, app)
	return app, nil
}

func (p *Provider) Apps() []services.App {
	p.mu.Lock()
	defer p.mu.Unlock()

	apps := make([]services.App, 0, len(p.apps))
	for _, app := range p.apps {
		apps = append(apps, app)
	}
	return apps
}

func (p *Provider) Database(ctx context.Context, app services.App) (services.Database, error) {
	a, err := asApp(app)
	if err != nil {
		return nil, err
	}

	client, err := a.fb.Firestore(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create firestore client")
	}
	return client, nil
}

func (p *Provider) Auth(ctx context.Context, app services.App) (services.Auth, error) {
	a, err := asApp(app)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.auths[a.name]; ok {
		return c, nil
	}

	verifier := p.verifier
	if verifier == nil {
		client, err := a.fb.Auth(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create firebase auth client")
		}
		verifier = client
	}

	c := newAuthClient(ctx, a, verifier, p.store)
	p.auths[a.name] = c
	return c, nil
}

func (p *Provider) OnAuthStateChanged(auth services.Auth, fn func(*services.User)) func() {
	c, ok := auth.(*authClient)
	if !ok {
		return func() {}
	}
	return c.subscribe(fn)
}

func (p *Provider) SignOut(ctx context.Context, auth services.Auth) error {
	c, err := asAuthClient(auth)
	if err != nil {
		return err
	}

	if err := c.store.Delete(ctx, c.key); err != nil {
		return err
	}
	c.setUser(nil)
	return nil
}

// Close stops the listener dispatchers of every auth handle.
func (p *Provider) Close() {
	p.mu.Lock()
	auths := make([]*authClient, 0, len(p.auths))
	for _, c := range p.auths {
		auths = append(auths, c)
	}
	p.mu.Unlock()

	for _, c := range auths {
		c.close()
	}
}

func asApp(app services.App) (*App, error) {
	a, ok := app.(*App)
	if !ok || a == nil {
		return nil, &AuthError{Code: CodeInvalidAppHandle, Message: fmt.Sprintf("unsupported app handle %T", app)}
	}
	return a, nil
}

func asAuthClient(auth services.Auth) (*authClient, error) {
	c, ok := auth.(*authClient)
	if !ok || c == nil {
		return nil, &AuthError{Code: CodeInvalidAppHandle, Message: fmt.Sprintf("unsupported auth handle %T", auth)}
	}
	return c, nil
}
