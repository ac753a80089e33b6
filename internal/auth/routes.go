package auth

import "github.com/gin-gonic/gin"

// RegisterRoutes registers Auth routes
func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	authGroup := r.Group("/auth")
	{
		authGroup.GET("/ping", handler.Ping)
		authGroup.GET("/me", RequireAuth(handler.service), handler.Me)

		if handler.demoLogin {
			authGroup.POST("/demo-token", handler.DemoToken)
		}
	}
}
