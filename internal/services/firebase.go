package services

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Registry memoizes the app, database and auth handles of one Provider.
// Every accessor returns nil instead of failing, and a handle is built at
// most once.
type Registry struct {
	cfg      Config
	provider Provider
	capable  bool

	mu     sync.Mutex
	app    App
	db     Database
	auth   Auth
	closed bool
}

// NewRegistry returns a Registry for cfg. When capable is false the
// execution context cannot build provider handles and every accessor
// returns nil.
func NewRegistry(cfg Config, provider Provider, capable bool) *Registry {
	return &Registry{
		cfg:      cfg,
		provider: provider,
		capable:  capable,
	}
}

func (r *Registry) Capable() bool {
	return r.capable
}

func (r *Registry) App(ctx context.Context) App {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appLocked(ctx)
}

func (r *Registry) appLocked(ctx context.Context) App {
	if r.closed {
		return nil
	}
	if r.app != nil {
		return r.app
	}
	if !r.capable {
		return nil
	}

	if apps := r.provider.Apps(); len(apps) > 0 {
		r.app = apps[0]
		return r.app
	}

	app, err := r.provider.InitializeApp(ctx, r.cfg)
	if err != nil {
		log.Ctx(ctx).Error().Stack().Err(errors.WithStack(err)).Str("project_id", r.cfg.ProjectID).Msg("failed to initialize firebase app")
		return nil
	}
	if app == nil {
		return nil
	}

	r.app = app
	log.Ctx(ctx).Debug().Str("app_name", app.Name()).Msg("initialized firebase app")
	return r.app
}

func (r *Registry) Database(ctx context.Context) Database {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	if r.db != nil {
		return r.db
	}

	app := r.appLocked(ctx)
	if app == nil {
		return nil
	}

	db, err := r.provider.Database(ctx, app)
	if err != nil {
		log.Ctx(ctx).Error().Stack().Err(errors.WithStack(err)).Str("app_name", app.Name()).Msg("failed to get firestore client")
		return nil
	}

	r.db = db
	return r.db
}

func (r *Registry) Auth(ctx context.Context) Auth {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	if r.auth != nil {
		return r.auth
	}

	app := r.appLocked(ctx)
	if app == nil {
		return nil
	}

	auth, err := r.provider.Auth(ctx, app)
	if err != nil {
		log.Ctx(ctx).Error().Stack().Err(errors.WithStack(err)).Str("app_name", app.Name()).Msg("failed to get auth client")
		return nil
	}

	r.auth = auth
	return r.auth
}

// OnAuthStateChanged registers fn to receive the signed in user, or nil
// after a sign out. The returned function unregisters fn and may be called
// any number of times.
func (r *Registry) OnAuthStateChanged(ctx context.Context, fn func(*User)) func() {
	auth := r.Auth(ctx)
	if auth == nil {
		return func() {}
	}

	var once sync.Once
	unsubscribe := r.provider.OnAuthStateChanged(auth, fn)
	return func() {
		once.Do(func() {
			if unsubscribe != nil {
				unsubscribe()
			}
		})
	}
}

// SignInWithGoogle runs the provider's interactive Google sign in and blocks
// until it finishes. It returns a nil user and a nil error when no auth client
// is available. Provider errors are returned as is.
func (r *Registry) SignInWithGoogle(ctx context.Context, opts ...GoogleOption) (*User, error) {
	auth := r.Auth(ctx)
	if auth == nil {
		return nil, nil
	}

	return r.provider.SignInWithPopup(ctx, auth, NewGoogleAuthProvider(opts...))
}

func (r *Registry) SignOut(ctx context.Context) error {
	auth := r.Auth(ctx)
	if auth == nil {
		return nil
	}

	return r.provider.SignOut(ctx, auth)
}

// Close releases the database handle. Afterwards every accessor returns nil,
// so sign in, sign out and observing behave as in an incapable context.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.app = nil
	r.auth = nil
	if r.db == nil {
		return nil
	}

	err := r.db.Close()
	r.db = nil
	if err != nil {
		return errors.Wrap(err, "failed to close firestore client")
	}
	return nil
}
