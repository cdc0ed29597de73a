package controllers

import (
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/Muhammad3111/elektromart-backend/api/responses"
	"github.com/Muhammad3111/elektromart-backend/api/validators"
	"github.com/Muhammad3111/elektromart-backend/internal/users"
	pkgerrors "github.com/Muhammad3111/elektromart-backend/pkg/errors"
	"github.com/Muhammad3111/elektromart-backend/pkg/logger"
)

// Me returns the authenticated user's profile, the source of checkout pre-fill.
func Me(repo *users.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := repo.FindByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "user not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user"))
			return
		}

		responses.WriteSuccess(w, users.FromModel(user))
	}
}

type updateMeRequest struct {
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Phone     *string `json:"phone,omitempty"`
}

// UpdateMe overwrites the mutable profile fields.
func UpdateMe(repo *users.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateMeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := repo.UpdateProfile(r.Context(), userID, payload.FirstName, payload.LastName, payload.Phone)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile"))
			return
		}

		responses.WriteSuccess(w, users.FromModel(user))
	}
}
