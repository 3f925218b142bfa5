package handlers

import (
	"net/http"

	"gameserver_panel/internal/service"

	"github.com/gin-gonic/gin"
)

// SignInRequest is the sign-in payload. Provider is optional and selects a configured
// identity provider by name.
type SignInRequest struct {
	Username string `json:"username" binding:"required" example:"alice"`
	Password string `json:"password" binding:"required" example:"s3cret"`
	Provider string `json:"provider,omitempty" example:"cognito"`
}

// NewPasswordRequest answers a NEW_PASSWORD_REQUIRED challenge.
type NewPasswordRequest struct {
	ChallengeToken string `json:"challenge_token" binding:"required"`
	NewPassword    string `json:"new_password" binding:"required"`
}

// bindJSONOrBadRequest tries to bind the request body into dst and writes a 400 JSON on failure.
// Returns false if the request was already handled (aborted), true otherwise.
func (h *Handler) bindJSONOrBadRequest(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if h.log != nil {
			h.log.Infow("bad_request_body", "path", c.FullPath(), "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// respondSignIn writes 200 with a token, or 202 when a challenge must be answered.
func respondSignIn(c *gin.Context, res service.SignInResult) {
	if res.Challenged() {
		c.JSON(http.StatusAccepted, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary      Sign in
// @Description  Authenticates against the identity provider. 202 means a new password is required; answer it with /auth/new-password.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      SignInRequest  true  "Credentials"
// @Success      200   {object}  service.SignInResult
// @Success      202   {object}  service.SignInResult
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/sign-in [post]
func (h *Handler) signIn(c *gin.Context) {
	var input SignInRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	res, err := h.services.SignIn(c.Request.Context(), service.SignInInput{
		Provider: input.Provider,
		Username: input.Username,
		Password: input.Password,
	})
	if err != nil {
		if h.log != nil {
			h.log.Infow("auth_sign_in_failed", "username", input.Username, "err", err)
		}
		h.writeServiceError(c, "auth_sign_in_error", err)
		return
	}
	respondSignIn(c, res)
}

// @Summary      Set new password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      NewPasswordRequest  true  "Challenge answer"
// @Success      200   {object}  service.SignInResult
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/new-password [post]
func (h *Handler) completeNewPassword(c *gin.Context) {
	var input NewPasswordRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	res, err := h.services.CompleteNewPassword(c.Request.Context(), input.ChallengeToken, input.NewPassword)
	if err != nil {
		if h.log != nil {
			h.log.Infow("auth_new_password_failed", "err", err)
		}
		h.writeServiceError(c, "auth_new_password_error", err)
		return
	}
	respondSignIn(c, res)
}

// @Summary      Sign out
// @Tags         auth
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /auth/sign-out [post]
// @Security     BearerAuth
func (h *Handler) signOut(c *gin.Context) {
	if err := h.services.SignOut(c.Request.Context(), sessionID(c)); err != nil {
		h.writeServiceError(c, "auth_sign_out_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "signed_out"})
}
