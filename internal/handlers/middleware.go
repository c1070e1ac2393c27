package handlers

import (
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/studyforge/srs-service/internal/models"
	"github.com/studyforge/srs-service/internal/utils"
)

// AuthMiddleware verifies Casdoor-issued bearer tokens and injects the
// caller's identity into the request context. Downstream handlers trust
// user_id unconditionally.
type AuthMiddleware struct {
	client *casdoorsdk.Client
	logger utils.Logger
}

func NewAuthMiddleware(client *casdoorsdk.Client, logger utils.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		client: client,
		logger: logger,
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Missing or malformed Authorization header",
			})
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		claims, err := m.client.ParseJwtToken(token)
		if err != nil {
			m.logger.Warn("Token verification failed", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid or expired token",
			})
			return
		}

		role := models.RoleStudent
		if claims.User.IsAdmin {
			role = models.RoleAdmin
		}

		c.Set("user_id", claims.User.Id)
		c.Set("user_name", claims.User.Name)
		c.Set("user_role", string(role))
		c.Next()
	}
}

// RequireRole rejects requests whose verified role does not match any of the
// allowed roles. It must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(allowed ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.UserRole(c.GetString("user_role"))
		for _, want := range allowed {
			if role == want {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Message: "Insufficient role",
		})
	}
}
