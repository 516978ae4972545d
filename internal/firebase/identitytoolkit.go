package firebase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/mdayat/jobtrack/internal/services"
)

const signInWithIdpPath = "/v1/accounts:signInWithIdp"

type signInWithIdpRequest struct {
	PostBody            string `json:"postBody"`
	RequestURI          string `json:"requestUri"`
	ReturnSecureToken   bool   `json:"returnSecureToken"`
	ReturnIdpCredential bool   `json:"returnIdpCredential"`
}

type signInWithIdpResponse struct {
	ProviderID    string `json:"providerId"`
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	DisplayName   string `json:"displayName"`
	FullName      string `json:"fullName"`
	PhotoURL      string `json:"photoUrl"`
	IDToken       string `json:"idToken"`
	RefreshToken  string `json:"refreshToken"`
	ExpiresIn     string `json:"expiresIn"`
	IsNewUser     bool   `json:"isNewUser"`
	ErrorMessage  string `json:"errorMessage"`
}

type identityToolkitError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) signInWithIdp(ctx context.Context, cfg services.Config, googleIDToken string) (*services.User, error) {
	postBody := url.Values{
		"id_token":   {googleIDToken},
		"providerId": {services.GoogleProviderID},
	}
	body := signInWithIdpRequest{
		PostBody:            postBody.Encode(),
		RequestURI:          requestURI(cfg),
		ReturnSecureToken:   true,
		ReturnIdpCredential: true,
	}

	var out signInWithIdpResponse
	err := retry.Do(
		func() error {
			var apiErr identityToolkitError
			out = signInWithIdpResponse{}

			res, err := p.rest.R().
				SetContext(ctx).
				SetQueryParam("key", cfg.APIKey).
				SetBody(body).
				SetResult(&out).
				SetError(&apiErr).
				Post(signInWithIdpPath)
			if err != nil {
				return &AuthError{Code: CodeNetworkRequestFailed, Err: err}
			}

			if res.IsError() {
				code, detail := toolkitErrorCode(apiErr.Error.Message)
				if apiErr.Error.Message == "" {
					code, detail = CodeInternalError, http.StatusText(res.StatusCode())
				}
				return &AuthError{Code: code, Message: detail, Status: res.StatusCode()}
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(p.retryAttempts),
		retry.Delay(p.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Warn().Err(err).Uint("attempt", n+1).Msg("retrying signInWithIdp")
		}),
	)
	if err != nil {
		return nil, err
	}

	if out.ErrorMessage != "" {
		code, detail := toolkitErrorCode(out.ErrorMessage)
		return nil, &AuthError{Code: code, Message: detail}
	}
	if out.LocalID == "" || out.IDToken == "" {
		return nil, &AuthError{Code: CodeInternalError, Message: "signInWithIdp response has no user"}
	}

	return out.user(time.Now()), nil
}

func (r signInWithIdpResponse) user(now time.Time) *services.User {
	displayName := r.DisplayName
	if displayName == "" {
		displayName = r.FullName
	}

	providerID := r.ProviderID
	if providerID == "" {
		providerID = services.GoogleProviderID
	}

	user := &services.User{
		UID:           r.LocalID,
		Email:         r.Email,
		EmailVerified: r.EmailVerified,
		DisplayName:   displayName,
		PhotoURL:      r.PhotoURL,
		ProviderID:    providerID,
		IsNewUser:     r.IsNewUser,
		IDToken:       r.IDToken,
		RefreshToken:  r.RefreshToken,
	}

	if seconds, err := strconv.Atoi(r.ExpiresIn); err == nil {
		user.ExpiresAt = now.Add(time.Duration(seconds) * time.Second)
	}
	return user
}

func requestURI(cfg services.Config) string {
	if cfg.AuthDomain == "" {
		return "http://localhost"
	}
	return fmt.Sprintf("https://%s%s", cfg.AuthDomain, redirectPath)
}

func isTransient(err error) bool {
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		return false
	}
	if authErr.Code == CodeNetworkRequestFailed {
		return !errors.Is(authErr.Err, context.Canceled) && !errors.Is(authErr.Err, context.DeadlineExceeded)
	}
	return authErr.Status >= http.StatusInternalServerError
}
