package server

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Shonkurieta/ebookreader/internal/auth"
	readermw "github.com/Shonkurieta/ebookreader/internal/middleware"
	"github.com/Shonkurieta/ebookreader/internal/services/iam"
)

// statusFor maps service and token errors onto an HTTP status and a message
// that is safe to show to the caller.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, iam.ErrInvalidInput),
		errors.Is(err, iam.ErrNicknameTaken),
		errors.Is(err, iam.ErrEmailTaken),
		errors.Is(err, iam.ErrWrongPassword):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, iam.ErrInvalidCredentials):
		return http.StatusUnauthorized, iam.ErrInvalidCredentials.Error()
	case errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "Token expired"
	case errors.Is(err, auth.ErrMalformedToken),
		errors.Is(err, auth.ErrPrincipalMismatch):
		return http.StatusUnauthorized, "Invalid token"
	case errors.Is(err, iam.ErrUserNotFound):
		return http.StatusNotFound, iam.ErrUserNotFound.Error()
	case errors.Is(err, iam.ErrLastAdmin):
		return http.StatusConflict, iam.ErrLastAdmin.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError && logger != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
	}
	readermw.WriteError(w, status, msg)
}
