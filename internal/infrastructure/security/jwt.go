// Package security provides JWT token utilities
package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ValidateJWT validates a JWT token and returns the claims
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// UserIDFromClaims extracts the authenticated user id, or empty when the
// claim is missing.
func UserIDFromClaims(claims jwt.MapClaims) string {
	if id, ok := claims["id"].(string); ok {
		return id
	}
	return ""
}

// GenerateUserToken creates an HS256 token carrying the user's identity.
func GenerateUserToken(userID, role, tenantID, jwtSecret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"id":   userID,
		"role": role,
		"iat":  time.Now().UTC().Unix(),
		"exp":  time.Now().UTC().Add(ttl).Unix(),
	}
	if tenantID != "" {
		claims["tenantId"] = tenantID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}
