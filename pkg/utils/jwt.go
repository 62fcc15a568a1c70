package utils

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateToken issues a signed HS256 token for a user or vendor account.
// Claims carry the numeric id, contact number and account type so handlers
// can authorize without a session lookup.
func GenerateToken(id uint, contactNumber, userType string) (string, error) {
	claims := jwt.MapClaims{
		"id":       id,
		"contact":  contactNumber,
		"userType": userType,
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

func ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
}
