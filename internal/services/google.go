package services

import "slices"

var defaultGoogleScopes = []string{"openid", "email", "profile"}

type GoogleOption func(*AuthProvider)

// WithScopes requests additional OAuth scopes on top of the defaults.
func WithScopes(scopes ...string) GoogleOption {
	return func(p *AuthProvider) {
		for _, scope := range scopes {
			if !slices.Contains(p.Scopes, scope) {
				p.Scopes = append(p.Scopes, scope)
			}
		}
	}
}

// WithCustomParameter forwards an OAuth parameter such as prompt or
// login_hint to the Google authorization endpoint.
func WithCustomParameter(key, value string) GoogleOption {
	return func(p *AuthProvider) {
		if value == "" {
			return
		}
		p.CustomParameters[key] = value
	}
}

func NewGoogleAuthProvider(opts ...GoogleOption) AuthProvider {
	p := AuthProvider{
		ProviderID:       GoogleProviderID,
		Scopes:           append([]string(nil), defaultGoogleScopes...),
		CustomParameters: map[string]string{},
	}

	for _, opt := range opts {
		opt(&p)
	}
	return p
}

