package server

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Shonkurieta/ebookreader/internal/auth"
	readermw "github.com/Shonkurieta/ebookreader/internal/middleware"
)

// RenameRequest is the body of PUT /user/nickname.
type RenameRequest struct {
	Nickname string `json:"nickname"`
}

// ChangePasswordRequest is the body of PUT /user/password.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// principalFrom returns the authenticated principal or writes 401.
func principalFrom(w http.ResponseWriter, r *http.Request) (auth.SecurityContext, bool) {
	sc, ok := auth.SecurityContextFrom(r.Context())
	if !ok {
		readermw.WriteError(w, http.StatusUnauthorized, "Authentication required")
	}
	return sc, ok
}

// HandleProfile handles GET /user/profile
func HandleProfile(svc identityService, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := principalFrom(w, r)
		if !ok {
			return
		}

		user, err := svc.GetUser(r.Context(), sc.PrincipalID)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, userResponse(user))
	}
}

// HandleRename handles PUT /user/nickname
// The identity claim changes, so a fresh token is returned.
func HandleRename(svc identityService, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := principalFrom(w, r)
		if !ok {
			return
		}
		var req RenameRequest
		if err := decodeJSON(w, r, &req); err != nil {
			readermw.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		res, err := svc.Rename(r.Context(), sc.PrincipalID, req.Nickname)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, authResponse(res))
	}
}

// HandleChangePassword handles PUT /user/password
func HandleChangePassword(svc identityService, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := principalFrom(w, r)
		if !ok {
			return
		}
		var req ChangePasswordRequest
		if err := decodeJSON(w, r, &req); err != nil {
			readermw.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := svc.ChangePassword(r.Context(), sc.PrincipalID, req.OldPassword, req.NewPassword); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Password updated"})
	}
}
