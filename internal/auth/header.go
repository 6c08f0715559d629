package auth

import (
	"net/http"

	"github.com/xenitab/go-oidc-middleware/oidctoken"
	"github.com/xenitab/go-oidc-middleware/options"
)

// bearerTokenStrings reads "Authorization: Bearer <token>" only.
var bearerTokenStrings = [][]options.TokenStringOption{
	{}, // Default: Authorization header
}

// BearerToken extracts the raw token from the Authorization header.
// ok is false when the header is absent, uses another scheme, or is empty.
func BearerToken(h http.Header) (string, bool) {
	if h == nil {
		return "", false
	}
	token, err := oidctoken.GetTokenString(h.Get, bearerTokenStrings)
	if err != nil || token == "" {
		return "", false
	}
	return token, true
}
