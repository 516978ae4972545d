package services_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdayat/jobtrack/internal/services"
	"github.com/mdayat/jobtrack/internal/services/servicestest"
)

var testConfig = services.Config{APIKey: "k", AuthDomain: "d", ProjectID: "p", AppID: "a"}

func TestRegistry_HandlesAreSingletons(t *testing.T) {
	ctx := context.Background()
	provider := servicestest.NewProvider()
	registry := services.NewRegistry(testConfig, provider, true)

	app := registry.App(ctx)
	require.NotNil(t, app)
	assert.Same(t, app, registry.App(ctx))
	assert.Equal(t, testConfig, app.Options())

	db := registry.Database(ctx)
	require.NotNil(t, db)
	auth := registry.Auth(ctx)
	require.NotNil(t, auth)

	assert.IsType(t, &servicestest.Database{}, db)
	assert.IsType(t, &servicestest.Auth{}, auth)
	assert.Same(t, app, db.(*servicestest.Database).App)
	assert.Same(t, app, auth.(*servicestest.Auth).App)

	for i := 0; i < 3; i++ {
		assert.Same(t, app, registry.App(ctx))
		assert.Same(t, db, registry.Database(ctx))
		assert.Same(t, auth, registry.Auth(ctx))
	}

	assert.Equal(t, 1, provider.Calls("InitializeApp"))
	assert.Equal(t, 1, provider.Calls("Database"))
	assert.Equal(t, 1, provider.Calls("Auth"))
}

func TestRegistry_DerivedHandlesInitializeApp(t *testing.T) {
	ctx := context.Background()
	provider := servicestest.NewProvider()
	registry := services.NewRegistry(testConfig, provider, true)

	require.NotNil(t, registry.Auth(ctx))
	require.NotNil(t, registry.Database(ctx))
	assert.Equal(t, 1, provider.Calls("InitializeApp"))
}

func TestRegistry_ReusesExistingApp(t *testing.T) {
	ctx := context.Background()
	provider := servicestest.NewProvider()
	existing := provider.Register("[DEFAULT]", services.Config{ProjectID: "other"})
	registry := services.NewRegistry(testConfig, provider, true)

	assert.Same(t, existing, registry.App(ctx))
	assert.Zero(t, provider.Calls("InitializeApp"))
}

func TestRegistry_TwoRegistriesShareProviderApp(t *testing.T) {
	ctx := context.Background()
	provider := servicestest.NewProvider()

	first := services.NewRegistry(testConfig, provider, true).App(ctx)
	second := services.NewRegistry(testConfig, provider, true).App(ctx)

	require.NotNil(t, first)
	assert.Same(t, first, second)
	assert.Equal(t, 1, provider.Calls("InitializeApp"))
}

func TestRegistry_NotCapable(t *testing.T) {
	configs := []services.Config{
		testConfig,
		{},
		{APIKey: "x", ProjectID: "y"},
	}

	for _, cfg := range configs {
		ctx := context.Background()
		provider := servicestest.NewProvider()
		registry := services.NewRegistry(cfg, provider, false)

		for i := 0; i < 2; i++ {
			assert.Nil(t, registry.App(ctx))
			assert.Nil(t, registry.Database(ctx))
			assert.Nil(t, registry.Auth(ctx))
		}

		called := false
		unsubscribe := registry.OnAuthStateChanged(ctx, func(*services.User) { called = true })
		require.NotNil(t, unsubscribe)
		assert.NotPanics(t, unsubscribe)
		assert.NotPanics(t, unsubscribe)

		user, err := registry.SignInWithGoogle(ctx)
		assert.NoError(t, err)
		assert.Nil(t, user)

		assert.NoError(t, registry.SignOut(ctx))
		assert.False(t, called)
		assert.Zero(t, provider.TotalCalls())
	}
}

func TestRegistry_InitFailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	provider := servicestest.NewProvider()
	provider.InitErr = errors.New("invalid api key")
	registry := services.NewRegistry(testConfig, provider, true)

	assert.Nil(t, registry.App(ctx))
	assert.Nil(t, registry.Database(ctx))
	assert.Nil(t, registry.Auth(ctx))

	provider.InitErr = nil
	assert.NotNil(t, registry.App(ctx))
	assert.Equal(t, 4, provider.Calls("InitializeApp"))
}

func TestRegistry_DerivedHandleFailure(t *testing.T) {
	ctx := context.Background()
	provider := servicestest.NewProvider()
	provider.DatabaseErr = errors.New("missing credentials")
	provider.AuthErr = errors.New("auth unavailable")
	registry := services.NewRegistry(testConfig, provider, true)

	assert.NotNil(t, registry.App(ctx))
	assert.Nil(t, registry.Database(ctx))
	assert.Nil(t, registry.Auth(ctx))

	unsubscribe := registry.OnAuthStateChanged(ctx, func(*services.User) {})
	assert.NotPanics(t, unsubscribe)
	assert.Zero(t, provider.Calls("OnAuthStateChanged"))
}

func TestRegistry_OnAuthStateChanged(t *testing.T) {
	ctx := context.Background()
	provider := servicestest.NewProvider()
	registry := services.NewRegistry(testConfig, provider, true)

	var got []*services.User
	unsubscribe := registry.OnAuthStateChanged(ctx, func(u *services.User) { got = append(got, u) })

	auth := registry.Auth(ctx).(*servicestest.Auth)
	assert.Equal(t, 1, auth.ListenerCount())

	user := &services.User{UID: "u1"}
	auth.SetUser(user)
	auth.SetUser(nil)
	require.Len(t, got, 2)
	assert.Same(t, user, got[0])
	assert.Nil(t, got[1])

	unsubscribe()
	auth.SetUser(user)
	assert.Len(t, got, 2)
	assert.Zero(t, auth.ListenerCount())

	assert.NotPanics(t, unsubscribe)
	assert.Equal(t, 1, provider.Calls("Unsubscribe"))
}

func TestRegistry_SignInWithGoogle(t *testing.T) {
	ctx := context.Background()
	provider := servicestest.NewProvider()
	registry := services.NewRegistry(testConfig, provider, true)

	var observed *services.User
	registry.OnAuthStateChanged(ctx, func(u *services.User) { observed = u })

	user, err := registry.SignInWithGoogle(ctx,
		services.WithScopes("https://www.googleapis.com/auth/calendar.readonly", "email"),
		services.WithCustomParameter("prompt", "select_account"),
		services.WithCustomParameter("login_hint", ""),
	)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "uid-1", user.UID)
	assert.Same(t, user, observed)
	assert.Same(t, user, registry.Auth(ctx).CurrentUser())

	ap := provider.LastAuthProvider
	assert.Equal(t, services.GoogleProviderID, ap.ProviderID)
	assert.Equal(t, []string{"openid", "email", "profile", "https://www.googleapis.com/auth/calendar.readonly"}, ap.Scopes)
	assert.Equal(t, map[string]string{"prompt": "select_account"}, ap.CustomParameters)
}

func TestRegistry_SignInErrorIsReturnedUnmodified(t *testing.T) {
	ctx := context.Background()
	provider := servicestest.NewProvider()
	providerErr := errors.New("auth/popup-blocked")
	provider.SignInErr = providerErr
	registry := services.NewRegistry(testConfig, provider, true)

	user, err := registry.SignInWithGoogle(ctx)
	assert.Nil(t, user)
	assert.Same(t, providerErr, err)
}

func TestRegistry_SignOut(t *testing.T) {
	ctx := context.Background()
	provider := servicestest.NewProvider()
	registry := services.NewRegistry(testConfig, provider, true)

	_, err := registry.SignInWithGoogle(ctx)
	require.NoError(t, err)

	require.NoError(t, registry.SignOut(ctx))
	assert.Nil(t, registry.Auth(ctx).CurrentUser())

	provider.SignOutErr = errors.New("network")
	assert.EqualError(t, registry.SignOut(ctx), "network")
}

func TestRegistry_Close(t *testing.T) {
	ctx := context.Background()
	provider := servicestest.NewProvider()
	registry := services.NewRegistry(testConfig, provider, true)

	db := registry.Database(ctx).(*servicestest.Database)
	require.NotNil(t, registry.Auth(ctx))
	require.NoError(t, registry.Close())
	assert.True(t, db.Closed)

	assert.Nil(t, registry.App(ctx))
	assert.Nil(t, registry.Database(ctx))
	assert.Nil(t, registry.Auth(ctx))
	assert.Equal(t, 1, provider.Calls("Database"))
	assert.Equal(t, 1, provider.Calls("Auth"))

	user, err := registry.SignInWithGoogle(ctx)
	assert.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, registry.SignOut(ctx))
	registry.OnAuthStateChanged(ctx, func(*services.User) {})()
	assert.Zero(t, provider.Calls("SignInWithPopup"))
	assert.Zero(t, provider.Calls("SignOut"))
	assert.Zero(t, provider.Calls("OnAuthStateChanged"))

	assert.NoError(t, registry.Close())
}

func TestNewGoogleAuthProvider_Defaults(t *testing.T) {
	p := services.NewGoogleAuthProvider()

	assert.Equal(t, services.GoogleProviderID, p.ProviderID)
	assert.Equal(t, []string{"openid", "email", "profile"}, p.Scopes)
	assert.Empty(t, p.CustomParameters)
}
