package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Issuer is the expected token issuer (iss claim). Empty skips the check.
	Issuer string `yaml:"issuer"`

	// Audience is the expected token audience (aud claim). Empty skips the check.
	Audience string `yaml:"audience"`

	// RolesClaim is the claim listing signature roles.
	// Default: "roles"
	RolesClaim string `yaml:"roles_claim"`
}

// JWTAuthenticator validates HMAC-signed bearer tokens.
type JWTAuthenticator struct {
	config JWTConfig
	key    []byte
	parser *jwt.Parser
}

// NewJWTAuthenticator creates a JWT authenticator with an HMAC key.
func NewJWTAuthenticator(config JWTConfig, key []byte) (*JWTAuthenticator, error) {
	if len(key) == 0 {
		return nil, ErrMissingKey
	}
	if config.RolesClaim == "" {
		config.RolesClaim = "roles"
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	return &JWTAuthenticator{config: config, key: key, parser: jwt.NewParser(opts...)}, nil
}

// AuthenticateRequest extracts and validates the bearer token on r.
func (a *JWTAuthenticator) AuthenticateRequest(r *http.Request) (*Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrMissingCredentials
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, ErrMissingCredentials
	}
	return a.Authenticate(strings.TrimSpace(token))
}

// Authenticate validates a raw token string.
func (a *JWTAuthenticator) Authenticate(tokenString string) (*Identity, error) {
	claims := jwt.MapClaims{}
	token, err := a.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, ErrInvalidCredentials
		}
	}
	if !token.Valid {
		return nil, ErrInvalidCredentials
	}

	id := &Identity{Method: AuthMethodJWT}
	if sub, err := claims.GetSubject(); err == nil {
		id.Principal = sub
	}
	if id.Principal == "" {
		return nil, ErrInvalidCredentials
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	id.Roles = stringsClaim(claims[a.config.RolesClaim])
	return id, nil
}

// Sign issues a token for principal with the given roles. Used by the CLI
// and tests; the service itself never issues tokens.
func (a *JWTAuthenticator) Sign(principal string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":               principal,
		"iat":               now.Unix(),
		"exp":               now.Add(ttl).Unix(),
		a.config.RolesClaim: roles,
	}
	if a.config.Issuer != "" {
		claims["iss"] = a.config.Issuer
	}
	if a.config.Audience != "" {
		claims["aud"] = a.config.Audience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
}

func stringsClaim(v any) []string {
	switch v := v.(type) {
	case string:
		return strings.Fields(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
