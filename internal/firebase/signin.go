package firebase

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/mdayat/jobtrack/internal/services"
)

const redirectPath = "/__/auth/handler"

type redirectResult struct {
	code string
	err  error
}

// SignInWithPopup runs the Google sign in in the user's browser. The
// authorization code comes back to a loopback listener, is exchanged for a
// Google ID token and then for a Firebase session.
func (p *Provider) SignInWithPopup(ctx context.Context, auth services.Auth, ap services.AuthProvider) (*services.User, error) {
	c, err := asAuthClient(auth)
	if err != nil {
		return nil, err
	}

	if ap.ProviderID != services.GoogleProviderID {
		return nil, &AuthError{
			Code:    CodeOperationNotSupported,
			Message: fmt.Sprintf("sign in with %q is not supported", ap.ProviderID),
		}
	}

	googleIDToken, err := p.authorizeGoogle(ctx, ap)
	if err != nil {
		return nil, err
	}

	user, err := p.signInWithIdp(ctx, c.app.cfg, googleIDToken)
	if err != nil {
		return nil, err
	}

	token, err := c.verifier.VerifyIDToken(ctx, user.IDToken)
	if err != nil {
		return nil, &AuthError{Code: CodeInvalidUserToken, Message: "failed to verify firebase id token", Err: err}
	}
	if token.UID != user.UID {
		return nil, &AuthError{Code: CodeInvalidUserToken, Message: "firebase id token belongs to another user"}
	}
	applyClaims(ctx, user, token.Claims)

	if err := c.store.Save(ctx, c.key, user); err != nil {
		log.Ctx(ctx).Error().Stack().Err(err).Str("user_id", user.UID).Msg("failed to persist signed in user")
	}
	c.setUser(user)

	log.Ctx(ctx).Info().Str("user_id", user.UID).Bool("is_new_user", user.IsNewUser).Msg("successfully signed in with google")
	return user, nil
}

func (p *Provider) authorizeGoogle(ctx context.Context, ap services.AuthProvider) (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", &AuthError{Code: CodeInternalError, Message: "failed to open loopback listener", Err: err}
	}

	conf := &oauth2.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		Endpoint:     p.oauthEndpoint,
		RedirectURL:  fmt.Sprintf("http://%s%s", ln.Addr().String(), redirectPath),
		Scopes:       ap.Scopes,
	}

	state := uuid.NewString()
	nonce := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	results := make(chan redirectResult, 1)
	router := chi.NewRouter()
	router.Get(redirectPath, redirectHandler(state, results))

	server := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Ctx(ctx).Error().Err(err).Msg("loopback redirect listener failed")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	authOpts := []oauth2.AuthCodeOption{
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("nonce", nonce),
	}
	keys := make([]string, 0, len(ap.CustomParameters))
	for key := range ap.CustomParameters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		authOpts = append(authOpts, oauth2.SetAuthURLParam(key, ap.CustomParameters[key]))
	}

	if err := p.openURL(conf.AuthCodeURL(state, authOpts...)); err != nil {
		return "", &AuthError{Code: CodePopupBlocked, Message: "failed to open authorization url", Err: err}
	}

	var result redirectResult
	select {
	case <-ctx.Done():
		return "", &AuthError{Code: CodeCancelledPopupRequest, Err: ctx.Err()}
	case result = <-results:
	}
	if result.err != nil {
		return "", result.err
	}

	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := conf.Exchange(exchangeCtx, result.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return "", &AuthError{Code: CodeInvalidCredential, Message: "failed to exchange authorization code", Err: err}
	}

	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return "", &AuthError{Code: CodeInvalidCredential, Message: "token response has no id_token"}
	}

	if err := checkNonce(idToken, nonce); err != nil {
		return "", err
	}
	return idToken, nil
}

func redirectHandler(state string, results chan<- redirectResult) http.HandlerFunc {
	return func(res http.ResponseWriter, req *http.Request) {
		query := req.URL.Query()

		// A redirect from a stale tab or another local process must not
		// abort the pending sign in.
		if query.Get("state") != state {
			log.Ctx(req.Context()).Warn().Str("remote_addr", req.RemoteAddr).Msg("ignored redirect with unknown state")
			http.Error(res, "Unknown sign in request.", http.StatusBadRequest)
			return
		}

		var result redirectResult
		switch {
		case query.Get("error") == "access_denied":
			result.err = &AuthError{Code: CodePopupClosedByUser, Message: query.Get("error_description")}
		case query.Get("error") != "":
			result.err = &AuthError{Code: CodeInternalError, Message: query.Get("error") + ": " + query.Get("error_description")}
		case query.Get("code") == "":
			result.err = &AuthError{Code: CodeInvalidAuthEvent, Message: "redirect has no authorization code"}
		default:
			result.code = query.Get("code")
		}

		select {
		case results <- result:
		default:
		}

		res.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if result.err != nil {
			res.WriteHeader(http.StatusBadRequest)
			fmt.Fprintln(res, "Sign in failed. You can close this window.")
			return
		}
		fmt.Fprintln(res, "Signed in. You can close this window.")
	}
}

func checkNonce(idToken, nonce string) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return &AuthError{Code: CodeInvalidCredential, Message: "malformed google id token", Err: err}
	}

	got, _ := claims["nonce"].(string)
	if got != nonce {
		return &AuthError{Code: CodeMissingOrInvalidNonce, Message: "google id token nonce does not match"}
	}
	return nil
}

type idTokenClaims struct {
	Name          string `mapstructure:"name"`
	Email         string `mapstructure:"email"`
	EmailVerified bool   `mapstructure:"email_verified"`
	Picture       string `mapstructure:"picture"`
}

// applyClaims fills profile fields the Identity Toolkit response left empty.
func applyClaims(ctx context.Context, user *services.User, claims map[string]interface{}) {
	var c idTokenClaims
	if err := mapstructure.Decode(claims, &c); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("user_id", user.UID).Msg("failed to convert id token claims map to struct")
		return
	}

	if user.DisplayName == "" {
		user.DisplayName = c.Name
	}
	if user.Email == "" {
		user.Email = c.Email
	}
	if user.PhotoURL == "" {
		user.PhotoURL = c.Picture
	}
	user.EmailVerified = user.EmailVerified || c.EmailVerified
}
