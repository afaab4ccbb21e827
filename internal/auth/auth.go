// internal/auth/auth.go
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nimbusdb/nimbus-backend/api/models"
	"github.com/nimbusdb/nimbus-backend/internal/logger"
)

var (
	ErrBadRequest              = errors.New("bad request")
	ErrTokenMalformed          = errors.New("malformed token")
	ErrTokenExpired            = errors.New("token is expired or not valid yet")
	ErrTokenInvalid            = errors.New("invalid token")
	ErrTokenClaimsInvalid      = errors.New("invalid token claims")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrForbidden               = errors.New("forbidden")
	ErrInternalServer          = errors.New("authorization error")
	ErrUnexpectedSigningMethod = errors.New("unexpected token signing method")
	customLog                  = logger.NewLogger()
)

// APIKeyPrefix marks every gateway key so leaked secrets are recognizable.
const APIKeyPrefix = "nbs_"

// apiKeySecretLength is the random secret size in bytes (256 bits).
const apiKeySecretLength = 32

// --- API Key Utilities ---

// GenerateAPIKey produces a new opaque key secret: the recognizable prefix
// followed by hex-encoded cryptographically random bytes.
func GenerateAPIKey() (string, error) {
	randomBytes := make([]byte, apiKeySecretLength)
	if _, err := rand.Read(randomBytes); err != nil {
		customLog.Warnf("Auth: failed to generate API key material: %v", err)
		return "", fmt.Errorf("failed to generate api key")
	}
	return APIKeyPrefix + hex.EncodeToString(randomBytes), nil
}

// HasAPIKeyShape reports whether a secret at least looks like one of ours.
// It is a cheap pre-check only; authentication is always an exact equality
// lookup against the key store.
func HasAPIKeyShape(secret string) bool {
	return strings.HasPrefix(secret, APIKeyPrefix) && len(secret) > len(APIKeyPrefix)
}

// --- JWT Utilities ---
// The management surface trusts tokens minted by the external identity
// provider, signed with a shared HS256 secret. The server never issues
// credentials to end users itself.

// GenerateJWT creates a signed token for a given user. Used by tests and by
// deployments that co-locate the identity provider.
func GenerateJWT(userID, role, jwtSecret string, jwtExpiration time.Duration) (string, error) {
	claims := models.CustomClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "nimbus-backend",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		customLog.Warnf("Error signing JWT for user %s: %v", userID, err)
		return "", fmt.Errorf("failed to generate token")
	}

	return signedToken, nil
}

// ValidateJWT parses and validates a token, returning the user id and role
// claims if valid.
func ValidateJWT(tokenString, jwtSecret string) (string, string, error) {
	claims := &models.CustomClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			customLog.Warnf("ValidateJWT: Unexpected signing method: %v", token.Header["alg"])
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedSigningMethod, token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})

	if err != nil {
		customLog.Warnf("ValidateJWT: Token parsing error: %v", err)
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", "", ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
			return "", "", ErrTokenExpired
		case errors.Is(err, ErrUnexpectedSigningMethod):
			return "", "", err
		default:
			return "", "", ErrTokenInvalid
		}
	}

	if !token.Valid {
		customLog.Warnf("ValidateJWT: Invalid token marked by library")
		return "", "", ErrTokenInvalid
	}

	if claims.UserID == "" {
		customLog.Warnf("ValidateJWT: UserID missing in token claims")
		return "", "", ErrTokenClaimsInvalid
	}

	return claims.UserID, claims.Role, nil
}
