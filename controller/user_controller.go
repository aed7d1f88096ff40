// controller/user_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/vanguard-api/vanguard/errors"
	"github.com/vanguard-api/vanguard/model"
	"github.com/vanguard-api/vanguard/service"
	"github.com/vanguard-api/vanguard/util"
)

type UserController struct {
	userService service.IUserService
}

func NewUserController(userService service.IUserService) *UserController {
	return &UserController{
		userService: userService,
	}
}

// GetCurrentUser endpoint
func (uc *UserController) GetCurrentUser(c *gin.Context) {
	principal := util.PrincipalFromContext(c)
	if principal == nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", apperrors.ErrUnauthenticated)
		return
	}

	user, err := uc.userService.GetUser(c.Request.Context(), principal.Subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "User not found", err)
			return
		}
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch user", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// GetUser endpoint
func (uc *UserController) GetUser(c *gin.Context) {
	user, err := uc.userService.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "User not found", err)
			return
		}
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch user", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateUser endpoint
func (uc *UserController) UpdateUser(c *gin.Context) {
	var upd model.UserUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid user data", apperrors.ErrInvalidUserData)
		return
	}

	principal := util.PrincipalFromContext(c)
	if principal == nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", apperrors.ErrUnauthenticated)
		return
	}

	user, err := uc.userService.UpdateUser(c.Request.Context(), c.Param("id"), upd, principal)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidationFailed):
			util.StaleCacheWarning(c)
			c.JSON(http.StatusOK, user)
		case errors.Is(err, apperrors.ErrUserNotFound):
			util.RespondWithError(c, http.StatusNotFound, "User not found", err)
		case errors.Is(err, apperrors.ErrForbidden):
			util.RespondWithError(c, http.StatusForbidden, "Cannot modify another user", err)
		case errors.Is(err, apperrors.ErrUserConflict):
			util.RespondWithError(c, http.StatusConflict, "Email already taken", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update user", err)
		}
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser endpoint
func (uc *UserController) DeleteUser(c *gin.Context) {
	principal := util.PrincipalFromContext(c)
	if principal == nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", apperrors.ErrUnauthenticated)
		return
	}

	err := uc.userService.DeleteUser(c.Request.Context(), c.Param("id"), principal)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidationFailed):
			util.StaleCacheWarning(c)
			c.Status(http.StatusNoContent)
		case errors.Is(err, apperrors.ErrUserNotFound):
			util.RespondWithError(c, http.StatusNotFound, "User not found", err)
		case errors.Is(err, apperrors.ErrForbidden):
			util.RespondWithError(c, http.StatusForbidden, "Cannot delete another user", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete user", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}
