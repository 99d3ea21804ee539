package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OperatorToken is a signed HS256 JWT granting access to the admin
// surface (grants, overrides, manual sync).  Tokens are short-lived;
// there is no refresh flow for operators.
type OperatorToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewOperatorToken builds and signs an HS256 JWT for an operator.  The
// subject is the operator name and the role claim is always "ADMIN";
// middleware.RequireRole checks it on protected routes.
func NewOperatorToken(secret, operator string, ttlMin int) (OperatorToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  operator,
		"role": "ADMIN",
		"exp":  exp.Unix(),
		"iat":  time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return OperatorToken{}, err
	}
	return OperatorToken{Token: signed, Exp: exp}, nil
}
