package jwt

import (
	"errors"
	"strconv"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims are the claims carried by forum access tokens. The subject is the
// numeric user id.
type Claims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// UserID parses the subject as a user id.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidClaims
	}
	return id, nil
}

// Service signs and verifies HS256 tokens.
type Service struct {
	key    []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithIssuer sets the iss claim of issued tokens and makes it mandatory on parse.
func WithIssuer(issuer string) Option {
	return func(s *Service) { s.issuer = issuer }
}

// WithLeeway tolerates clock skew when checking exp and nbf.
func WithLeeway(d time.Duration) Option {
	return func(s *Service) { s.leeway = d }
}

// WithClock overrides the time source used for iat, exp and nbf.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Service signing HS256 tokens with signingKey.
// It returns ErrMissingSigningKey for an empty key.
func New(signingKey []byte, opts ...Option) (*Service, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}
	s := &Service{key: signingKey, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromString is New for a string key.
func NewFromString(signingKey string, opts ...Option) (*Service, error) {
	return New([]byte(signingKey), opts...)
}

// Issue signs a token for userID valid for ttl.
func (s *Service) Issue(userID int64, role string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}
	return s.Sign(claims)
}

// Sign signs arbitrary claims. Tests use it to craft malformed tokens.
func (s *Service) Sign(claims jwtlib.Claims) (string, error) {
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.key)
}

// Parse verifies the signature, algorithm, expiry and issuer of token and
// returns its claims. Expired tokens yield ErrExpiredToken, every other
// failure ErrInvalidToken.
func (s *Service) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithLeeway(s.leeway),
		jwtlib.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	_, err := jwtlib.ParseWithClaims(token, claims, func(*jwtlib.Token) (any, error) {
		return s.key, nil
	}, opts...)
	switch {
	case err == nil:
	case errors.Is(err, jwtlib.ErrTokenExpired):
		return nil, errors.Join(ErrExpiredToken, err)
	default:
		return nil, errors.Join(ErrInvalidToken, err)
	}

	if _, err := claims.UserID(); err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	return claims, nil
}
