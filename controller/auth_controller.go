// controller/auth_controller.go
package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vanguard-api/vanguard/auth"
	apperrors "github.com/vanguard-api/vanguard/errors"
	"github.com/vanguard-api/vanguard/model"
	"github.com/vanguard-api/vanguard/service"
	"github.com/vanguard-api/vanguard/util"
)

type AuthController struct {
	userService service.IUserService
	guard       *auth.Guard
	tokenTTL    time.Duration
}

func NewAuthController(userService service.IUserService, guard *auth.Guard, tokenTTL time.Duration) *AuthController {
	return &AuthController{
		userService: userService,
		guard:       guard,
		tokenTTL:    tokenTTL,
	}
}

// RegisterRoutes registers the authentication routes
func (ac *AuthController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/register", ac.Register)
	r.POST("/login", ac.Login)
}

// Register endpoint
func (ac *AuthController) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid user data", apperrors.ErrInvalidUserData)
		return
	}

	user, err := ac.userService.Register(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserConflict):
			util.RespondWithError(c, http.StatusConflict, "Username or email already taken", err)
		case errors.Is(err, apperrors.ErrDatabaseOperation):
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to register user", apperrors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login endpoint
func (ac *AuthController) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid credentials payload", apperrors.ErrInvalidUserData)
		return
	}

	user, err := ac.userService.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, apperrors.ErrBadCredentials) {
			util.RespondWithError(c, http.StatusUnauthorized, "Invalid username or password", err)
			return
		}
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to log in", apperrors.ErrInternalServer)
		return
	}

	token, err := ac.guard.IssueToken(user.ID, user.Roles, ac.tokenTTL)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to issue token", apperrors.ErrInternalServer)
		return
	}

	c.JSON(http.StatusOK, model.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
	})
}
