package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	readermw "github.com/Shonkurieta/ebookreader/internal/middleware"
)

// SetRoleRequest is the body of PUT /admin/users/{id}/role.
type SetRoleRequest struct {
	Role string `json:"role"`
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		readermw.WriteError(w, http.StatusBadRequest, "Invalid user id")
		return 0, false
	}
	return id, true
}

// HandleListUsers handles GET /admin/users
//
// Authorization: /admin/* requires ADMIN in the default access table
func HandleListUsers(svc identityService, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := svc.ListUsers(r.Context())
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		out := make([]UserResponse, 0, len(users))
		for i := range users {
			out = append(out, userResponse(&users[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// HandleSetRole handles PUT /admin/users/{id}/role
// Outstanding tokens are not revoked; the gate's refresh tier picks up the
// new role once the cached record is invalidated.
func HandleSetRole(svc identityService, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userIDParam(w, r)
		if !ok {
			return
		}
		var req SetRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			readermw.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		user, err := svc.SetRole(r.Context(), id, req.Role)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, userResponse(user))
	}
}

// HandleDeleteUser handles DELETE /admin/users/{id}
func HandleDeleteUser(svc identityService, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userIDParam(w, r)
		if !ok {
			return
		}

		if err := svc.DeleteUser(r.Context(), id); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: "User deleted"})
	}
}
