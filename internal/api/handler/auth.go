package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoink-app/yoink-be/internal/api/dto"
	"github.com/yoink-app/yoink-be/internal/auth"
)

// callbackPath is where the auth provider redirects after sign-in.
const callbackPath = "/auth/callback"

// Me handles GET /api/v1/me
// Returns the authenticated user's identity.
func (h *Handler) Me(c *gin.Context) {
	user := UserFromContext(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "authentication required",
		})
		return
	}

	c.JSON(http.StatusOK, dto.MeResponse{
		UserID: user.ID,
		Email:  user.Email,
	})
}

// SignIn handles GET /api/v1/auth/sign-in
// Returns the provider authorization URL the client should redirect to.
func (h *Handler) SignIn(c *gin.Context) {
	provider := c.DefaultQuery("provider", "google")

	c.JSON(http.StatusOK, dto.SignInResponse{
		URL: auth.SignInURL(h.authBaseURL, provider, h.appOrigin, callbackPath),
	})
}
