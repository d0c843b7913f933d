package guard

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expirySkew avoids validating with a token about to expire mid-flight.
const expirySkew = 10 * time.Second

// accessTokenExpired inspects the JWT exp claim without verifying the
// signature — verification is the backend's job. Tokens that do not parse or
// carry no exp claim are left for the validate exchange to judge.
func accessTokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) < expirySkew
}
