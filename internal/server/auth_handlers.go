package server

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Shonkurieta/ebookreader/internal/auth"
	readermw "github.com/Shonkurieta/ebookreader/internal/middleware"
	"github.com/Shonkurieta/ebookreader/internal/services/iam"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /auth/login. Username may also be an email.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleRegister handles POST /auth/register
// Creates a USER account and returns its first token.
func HandleRegister(svc identityService, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := decodeJSON(w, r, &req); err != nil {
			readermw.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		res, err := svc.Register(r.Context(), iam.RegisterInput{
			Nickname: req.Username,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, authResponse(res))
	}
}

// HandleLogin handles POST /auth/login
func HandleLogin(svc identityService, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			readermw.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		res, err := svc.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, authResponse(res))
	}
}

// HandleRefresh handles POST /auth/refresh
//
// /auth/* is public, so the gate never authenticated this request. The
// handler reads the bearer token itself and lets the service parse it and
// check freshness before re-issuing with the principal's current role.
func HandleRefresh(svc identityService, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header)
		if !ok {
			readermw.WriteError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		res, err := svc.Refresh(r.Context(), token)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, authResponse(res))
	}
}
