package firebase

import (
	"context"
	"sync"

	"firebase.google.com/go/v4/auth"
	"github.com/rs/zerolog/log"

	"github.com/mdayat/jobtrack/internal/services"
)

// TokenVerifier checks Firebase ID tokens. *auth.Client implements it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type listener struct {
	fn          func(*services.User)
	active      bool
	initialized bool
}

type notification struct {
	user      *services.User
	listeners []*listener
}

// authClient is the auth handle of one app. It owns the current user and
// delivers state changes to listeners from a single goroutine, in order.
type authClient struct {
	app      *App
	verifier TokenVerifier
	store    SessionStore
	key      string

	mu        sync.Mutex
	cond      *sync.Cond
	user      *services.User
	changed   bool
	restored  bool
	closed    bool
	listeners map[uint64]*listener
	nextID    uint64
	queue     []notification

	done chan struct{}
}

func newAuthClient(ctx context.Context, app *App, verifier TokenVerifier, store SessionStore) *authClient {
	c := &authClient{
		app:       app,
		verifier:  verifier,
		store:     store,
		key:       sessionKey(app.cfg, app.name),
		listeners: map[uint64]*listener{},
		done:      make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)

	go c.dispatch()
	go c.restore(context.WithoutCancel(ctx))
	return c
}

func (c *authClient) CurrentUser() *services.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

func (c *authClient) restore(ctx context.Context) {
	user, err := c.store.Load(ctx, c.key)
	if err != nil {
		log.Ctx(ctx).Error().Stack().Err(err).Str("app_name", c.app.name).Msg("failed to restore persisted user")
		user = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.changed {
		c.user = user
	}
	c.restored = true

	var pending []*listener
	for _, l := range c.listeners {
		if !l.initialized {
			l.initialized = true
			pending = append(pending, l)
		}
	}
	c.enqueueLocked(c.user, pending)
}

func (c *authClient) subscribe(fn func(*services.User)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	l := &listener{fn: fn, active: true}
	c.listeners[id] = l

	if c.restored {
		l.initialized = true
		c.enqueueLocked(c.user, []*listener{l})
	}

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		l.active = false
		delete(c.listeners, id)
	}
}

// setUser replaces the current user and notifies listeners when the
// signed in state actually changed.
func (c *authClient) setUser(user *services.User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous := c.user
	c.user = user
	c.changed = true
	// Listeners registered before the restore finished receive the
	// current user from restore.
	if !c.restored || (previous == nil && user == nil) {
		return
	}

	targets := make([]*listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		targets = append(targets, l)
	}
	c.enqueueLocked(user, targets)
}

func (c *authClient) enqueueLocked(user *services.User, targets []*listener) {
	if len(targets) == 0 || c.closed {
		return
	}
	c.queue = append(c.queue, notification{user: user, listeners: targets})
	c.cond.Signal()
}

func (c *authClient) dispatch() {
	defer close(c.done)

	for {
		c.mu.Lock()
		for len(c.queue) == 0 && !c.closed {
			c.cond.Wait()
		}
		if c.closed {
			c.mu.Unlock()
			return
		}

		n := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()

		for _, l := range n.listeners {
			if c.isActive(l) {
				l.fn(n.user)
			}
		}
	}
}

func (c *authClient) isActive(l *listener) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return l.active && !c.closed
}

// close stops the dispatcher. It must not be called from a listener.
func (c *authClient) close() {
	c.mu.Lock()
	c.closed = true
	c.queue = nil
	c.cond.Broadcast()
	c.mu.Unlock()
	<-c.done
}
