package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type jwtCustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed JWT for the provided user ID.
func GenerateToken(secret string, userID bson.ObjectID, ttl time.Duration) (string, error) {
	claims := &jwtCustomClaims{
		UserID: userID.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.Hex(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates the token and returns the embedded user ID along
// with the token's issue time.
func ParseToken(secret, tokenString string) (bson.ObjectID, time.Time, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return bson.ObjectID{}, time.Time{}, err
	}

	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok || !token.Valid {
		return bson.ObjectID{}, time.Time{}, jwt.ErrTokenInvalidClaims
	}

	id, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return bson.ObjectID{}, time.Time{}, err
	}

	issuedAt := time.Time{}
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}
	return id, issuedAt, nil
}

// ParseTokenAllowExpired verifies the token signature but tolerates an
// expired claim set. Logout uses it so cleanup still reaches the right
// account when handed an expired token, while a token signed with the
// wrong key is rejected.
func ParseTokenAllowExpired(secret, tokenString string) (bson.ObjectID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return bson.ObjectID{}, err
	}

	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok {
		return bson.ObjectID{}, jwt.ErrTokenInvalidClaims
	}
	return bson.ObjectIDFromHex(claims.UserID)
}
