package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zenbanez/docuvoice-ai/internal/models"
	"github.com/zenbanez/docuvoice-ai/internal/utils"
)

// RequireRole lets the request through only when the role set by JWTAuth is one of allowed.
func RequireRole(allowed ...models.UserRole) gin.HandlerFunc {
	allow := make(map[models.UserRole]struct{}, len(allowed))
	for _, a := range allowed {
		if r := normalizeRole(string(a)); r != "" {
			allow[r] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		v, _ := c.Get("role")
		s, _ := v.(string)
		role := normalizeRole(s)
		if _, ok := allow[role]; !ok || role == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, apiError{
				Code:    utils.CodeForbidden,
				Message: "forbidden",
			})
			return
		}
		c.Next()
	}
}

// RequireAdmin guards operator actions such as selecting the shared API key.
func RequireAdmin() gin.HandlerFunc { return RequireRole(models.RoleAdmin) }

func normalizeRole(s string) models.UserRole {
	return models.UserRole(strings.ToLower(strings.TrimSpace(s)))
}
