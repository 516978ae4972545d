package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mdayat/jobtrack/internal/firebase"
	"github.com/mdayat/jobtrack/internal/services"
)

func (s *server) signInHandler(res http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logWithCtx := log.Ctx(ctx).With().Logger()
	var body struct {
		Scopes    []string `json:"scopes" validate:"omitempty,dive,required"`
		Prompt    string   `json:"prompt" validate:"omitempty,oneof=none consent select_account"`
		LoginHint string   `json:"login_hint" validate:"omitempty,email"`
	}

	err := decodeAndValidateJSONBody(req, &body)
	if err != nil {
		logWithCtx.Error().Err(err).Int("status_code", http.StatusBadRequest).Msg("invalid request body")
		http.Error(res, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, err := s.registry.SignInWithGoogle(
		ctx,
		services.WithScopes(body.Scopes...),
		services.WithCustomParameter("prompt", body.Prompt),
		services.WithCustomParameter("login_hint", body.LoginHint),
	)
	if err != nil {
		code := firebase.ErrorCode(err)
		statusCode := http.StatusBadGateway
		if code == firebase.CodePopupClosedByUser || code == firebase.CodeCancelledPopupRequest {
			statusCode = http.StatusUnauthorized
		}
		if code == "" {
			code = firebase.CodeInternalError
		}

		logWithCtx.Error().Err(err).Str("code", code).Int("status_code", statusCode).Msg("failed to sign in with google")
		err = sendJSONErrorResponse(res, errorResponseParams{StatusCode: statusCode, Message: code})
		if err != nil {
			logWithCtx.Error().Err(err).Msg("failed to send json error response")
		}
		return
	}

	if user == nil {
		logWithCtx.Warn().Int("status_code", http.StatusServiceUnavailable).Msg("auth client is not available")
		err = sendJSONErrorResponse(res, errorResponseParams{StatusCode: http.StatusServiceUnavailable, Message: "sign in is not available"})
		if err != nil {
			logWithCtx.Error().Err(err).Msg("failed to send json error response")
		}
		return
	}
	logWithCtx.Info().Str("user_id", user.UID).Msg("successfully signed in")

	err = sendJSONSuccessResponse(res, successResponseParams{StatusCode: http.StatusOK, Data: user})
	if err != nil {
		logWithCtx.Error().Err(err).Msg("failed to send json success response")
	}
}

func (s *server) signOutHandler(res http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logWithCtx := log.Ctx(ctx).With().Logger()

	err := s.registry.SignOut(ctx)
	if err != nil {
		logWithCtx.Error().Err(err).Int("status_code", http.StatusBadGateway).Msg("failed to sign out")
		http.Error(res, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	logWithCtx.Info().Msg("successfully signed out")
	res.WriteHeader(http.StatusNoContent)
}

func (s *server) currentUserHandler(res http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logWithCtx := log.Ctx(ctx).With().Logger()

	auth := s.registry.Auth(ctx)
	if auth == nil {
		http.Error(res, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	user := auth.CurrentUser()
	if user == nil {
		res.WriteHeader(http.StatusNoContent)
		return
	}

	err := sendJSONSuccessResponse(res, successResponseParams{StatusCode: http.StatusOK, Data: user})
	if err != nil {
		logWithCtx.Error().Err(err).Msg("failed to send json success response")
	}
}

// authEventsHandler streams auth state changes as server-sent events until
// the client goes away.
func (s *server) authEventsHandler(res http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logWithCtx := log.Ctx(ctx).With().Logger()

	flusher, ok := res.(http.Flusher)
	if !ok {
		logWithCtx.Error().Int("status_code", http.StatusInternalServerError).Msg("response writer does not support flushing")
		http.Error(res, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if s.registry.Auth(ctx) == nil {
		http.Error(res, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	latest := newLatestUser()
	unsubscribe := s.registry.OnAuthStateChanged(ctx, latest.push)
	defer unsubscribe()

	res.Header().Set("Content-Type", "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case user := <-latest.users:
			data, err := json.Marshal(user)
			if err != nil {
				logWithCtx.Error().Err(err).Msg("failed to encode auth event")
				return
			}

			_, err = fmt.Fprintf(res, "event: auth\ndata: %s\n\n", data)
			if err != nil {
				logWithCtx.Error().Err(err).Msg("failed to write auth event")
				return
			}
			flusher.Flush()
		}
	}
}

// latestUser holds at most one undelivered auth state. A newer state replaces
// the unread one, so push never blocks the auth dispatcher and a slow reader
// only misses intermediate states.
type latestUser struct {
	mu    sync.Mutex
	users chan *services.User
}

func newLatestUser() *latestUser {
	return &latestUser{users: make(chan *services.User, 1)}
}

func (l *latestUser) push(user *services.User) {
	l.mu.Lock()
	defer l.mu.Unlock()

	select {
	case <-l.users:
	default:
	}
	l.users <- user
}
