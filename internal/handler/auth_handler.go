package handler

import (
	"net/http"

	"github.com/bppowerplay/portal/internal/model"
	"github.com/bppowerplay/portal/internal/service"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles the session guard's endpoints
type AuthHandler struct {
	guard *service.Guard
}

func NewAuthHandler(guard *service.Guard) *AuthHandler {
	return &AuthHandler{guard: guard}
}

// Login godoc
// @Summary Login with email and password, claiming this device
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body model.LoginRequest true "Login request"
// @Success 200 {object} model.LoginResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	resp, err := h.guard.Login(c.Request.Context(), req.Email, req.Password, req.Device)
	if err != nil {
		// The provider's message goes back verbatim; no retry, no lockout.
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetSession godoc
// @Summary Check the persisted session on page load
// @Tags Auth
// @Produce json
// @Success 200 {object} model.SessionStatusResponse
// @Router /auth/session [get]
func (h *AuthHandler) GetSession(c *gin.Context) {
	resp, err := h.guard.CheckSession(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Session check failed", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Logout godoc
// @Summary Logout
// @Description Delete the remote device record (best-effort) and clear local session state
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.SuccessResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.guard.Logout(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Logged out successfully"})
}
