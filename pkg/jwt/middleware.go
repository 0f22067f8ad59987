package jwt

import (
	"errors"
	"net/http"
	"strings"
)

// TokenExtractorFunc extracts a raw token from a request.
type TokenExtractorFunc func(r *http.Request) (string, error)

// SkipFunc reports whether a request bypasses verification.
type SkipFunc func(r *http.Request) bool

// ErrorHandlerFunc writes the response for a rejected request.
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)

type MiddlewareConfig struct {
	Service      *Service
	Extractor    TokenExtractorFunc // defaults to BearerTokenExtractor
	Skip         SkipFunc
	ErrorHandler ErrorHandlerFunc // defaults to a plain 401
}

// Middleware verifies bearer tokens with service.
func Middleware(service *Service) func(next http.Handler) http.Handler {
	return MiddlewareWithConfig(MiddlewareConfig{Service: service})
}

// MiddlewareWithConfig verifies the extracted token and stores the token and
// its claims in the request context.
func MiddlewareWithConfig(config MiddlewareConfig) func(next http.Handler) http.Handler {
	if config.Extractor == nil {
		config.Extractor = BearerTokenExtractor
	}
	if config.ErrorHandler == nil {
		config.ErrorHandler = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Skip != nil && config.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			token, err := config.Extractor(r)
			if err != nil {
				config.ErrorHandler(w, r, err)
				return
			}

			claims, err := config.Service.Parse(token)
			if err != nil {
				config.ErrorHandler(w, r, err)
				return
			}

			ctx := SetToken(r.Context(), token)
			ctx = SetClaims(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerTokenExtractor reads "Authorization: Bearer <token>".
func BearerTokenExtractor(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(token), nil
}

// QueryTokenExtractor reads the token from a query parameter. It exists for
// clients such as browser EventSource that cannot set request headers.
func QueryTokenExtractor(param string) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		token := r.URL.Query().Get(param)
		if token == "" {
			return "", ErrMissingToken
		}
		return token, nil
	}
}

// FirstOf tries extractors in order and returns the first token found.
// A present but malformed credential stops the chain with its error.
func FirstOf(extractors ...TokenExtractorFunc) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		for _, ex := range extractors {
			token, err := ex(r)
			if err == nil {
				return token, nil
			}
			if !errors.Is(err, ErrMissingToken) {
				return "", err
			}
		}
		return "", ErrMissingToken
	}
}
