package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/narwhalmedia/gallery/pkg/identity"
)

// JWTManager issues and validates HS256 access tokens. It also serves as a
// Resolver for bearer credentials.
type JWTManager struct {
	secret    string
	issuer    string
	accessTTL time.Duration
}

// NewJWTManager creates a new JWT manager.
func NewJWTManager(secret, issuer string, accessTTL time.Duration) *JWTManager {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	return &JWTManager{secret: secret, issuer: issuer, accessTTL: accessTTL}
}

// CustomClaims extends jwt.RegisteredClaims with our custom fields.
type CustomClaims struct {
	jwt.RegisteredClaims

	UserID   string   `json:"user_id"`
	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// GenerateAccessToken signs an access token for userID.
func (j *JWTManager) GenerateAccessToken(userID, username string, roles []string) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTTL)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		UserID:   userID,
		Username: username,
		Roles:    roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secret))
}

// ValidateAccessToken validates an access token and returns the claims.
func (j *JWTManager) ValidateAccessToken(tokenString string) (*CustomClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(j.secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// Resolve implements Resolver. The actor is the user_id claim, falling
// back to the subject.
func (j *JWTManager) Resolve(ctx context.Context, creds Credentials) (identity.Identity, error) {
	token := creds.BearerToken()
	if token == "" {
		return identity.Identity{}, ErrNoCredentials
	}

	claims, err := j.ValidateAccessToken(token)
	if err != nil {
		return identity.Identity{}, err
	}

	actor := claims.UserID
	if actor == "" {
		actor = claims.Subject
	}
	id := identity.Identity{ActorID: actor}
	if id.IsZero() {
		return identity.Identity{}, ErrInvalidIdentity
	}
	return id, nil
}
