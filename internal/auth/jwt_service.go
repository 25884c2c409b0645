package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL defines the fallback validity period for access tokens.
const DefaultAccessTokenTTL = time.Hour

// JWTConfig bundles the configuration required to build a JWTService.
// RoleTTL maps a role name (patient, doctor, admin) to its token lifetime;
// roles without an entry fall back to AccessTokenTTL.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
	RoleTTL        map[string]time.Duration
	Clock          func() time.Time
}

// Claims represents the custom claims embedded in issued JWTs.
type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AccessTokenInput holds the parameters used when generating a new access token.
type AccessTokenInput struct {
	UserID string
	Role   string
}

// JWTService is responsible for issuing and validating JSON Web Tokens.
type JWTService struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	roleTTL map[string]time.Duration
	now     func() time.Time
}

// NewJWTService constructs a JWTService instance when provided with the required configuration.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret must be provided")
	}

	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	roleTTL := make(map[string]time.Duration, len(cfg.RoleTTL))
	for role, d := range cfg.RoleTTL {
		if d > 0 {
			roleTTL[role] = d
		}
	}

	return &JWTService{
		secret:  []byte(cfg.Secret),
		issuer:  cfg.Issuer,
		ttl:     ttl,
		roleTTL: roleTTL,
		now:     now,
	}, nil
}

// TTLForRole reports the configured token lifetime for the given role.
func (s *JWTService) TTLForRole(role string) time.Duration {
	if d, ok := s.roleTTL[role]; ok {
		return d
	}
	return s.ttl
}

// GenerateAccessToken issues a signed JWT binding the account id and role.
func (s *JWTService) GenerateAccessToken(input AccessTokenInput) (string, error) {
	if input.UserID == "" {
		return "", errors.New("jwt: user id is required")
	}
	if input.Role == "" {
		return "", errors.New("jwt: role is required")
	}

	now := s.now()
	expiresAt := now.Add(s.TTLForRole(input.Role))

	claims := &Claims{
		UserID: input.UserID,
		Role:   input.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   input.UserID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// ValidateAccessToken parses and validates a signed JWT, returning the application claims.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("jwt: token string is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: parse token: %w", err)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, errors.New("jwt: invalid issuer")
	}

	if claims.UserID == "" {
		return nil, errors.New("jwt: missing user id claim")
	}
	if claims.Role == "" {
		return nil, errors.New("jwt: missing role claim")
	}

	return &claims, nil
}
