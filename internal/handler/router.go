package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/yawiki/internal/middleware"
)

type RouterDeps struct {
	Auth     *AuthHandler
	Pages    *PageHandler
	Avatars  *AvatarHandler
	DevBoard *DevBoardHandler
	Reviews  *ReviewHandler
	Settings *SettingsHandler
	License  *LicenseHandler
	// Authenticator validates bearer tokens for the protected routes.
	Authenticator middleware.Authenticator
	// WriteLimit is the minimum gap between two writes of one caller to the
	// same public write route. Zero disables the limit.
	WriteLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authRequired := middleware.JWTAuth(deps.Authenticator)
	authOptional := middleware.OptionalJWTAuth(deps.Authenticator)
	adminOnly := middleware.RequireAdmin()
	limited := middleware.RateLimit(deps.WriteLimit)

	api.POST("/auth/register", limited, deps.Auth.Register)
	api.POST("/auth/login", deps.Auth.Login)
	api.POST("/auth/logout", authOptional, deps.Auth.Logout)
	api.GET("/auth/me", authRequired, deps.Auth.Me)
	api.POST("/auth/update-last-login", authRequired, deps.Auth.UpdateLastLogin)
	api.GET("/users/check-email", deps.Auth.CheckEmail)
	api.POST("/users/update", authRequired, deps.Auth.UpdateProfile)
	api.POST("/users/password", authRequired, deps.Auth.ChangePassword)
	api.POST("/users/avatar", authRequired, deps.Avatars.Upload)
	api.GET("/users/avatar/:key", deps.Avatars.Get)

	api.GET("/file-structure", authOptional, deps.Pages.FileStructure)
	api.GET("/file-content", authOptional, deps.Pages.FileContent)
	api.GET("/pages/:slug", authOptional, deps.Pages.Page)
	api.GET("/search", authOptional, deps.Pages.Search)
	api.POST("/update-file", authRequired, adminOnly, deps.Pages.UpdateFile)
	api.POST("/rename-item", authRequired, adminOnly, deps.Pages.Rename)
	api.POST("/update-sort-order", authRequired, adminOnly, deps.Pages.UpdateSortOrder)
	api.POST("/delete-item", authRequired, adminOnly, deps.Pages.Delete)
	api.GET("/tree-check", authRequired, adminOnly, deps.Pages.Check)

	api.GET("/dev-items", deps.DevBoard.List)
	api.POST("/dev-items", authRequired, limited, deps.DevBoard.Create)
	api.PUT("/dev-items", authRequired, adminOnly, deps.DevBoard.Update)
	api.GET("/dev-items/vote", authRequired, deps.DevBoard.HasVoted)
	api.POST("/dev-items/vote", authRequired, deps.DevBoard.ToggleVote)
	api.GET("/dev-items/comments", deps.DevBoard.Comments)
	api.POST("/dev-items/comments", authRequired, limited, deps.DevBoard.CreateComment)
	api.PUT("/dev-items/comments", authRequired, deps.DevBoard.UpdateComment)
	api.DELETE("/dev-items/comments", authRequired, deps.DevBoard.DeleteComment)

	api.GET("/reviews", deps.Reviews.Summary)
	api.POST("/reviews", authRequired, deps.Reviews.Create)
	api.PUT("/reviews", authRequired, deps.Reviews.Update)
	api.GET("/reviews/:userId", deps.Reviews.GetByUser)

	api.GET("/settings/promotions", deps.Settings.ListPromotions)
	api.POST("/settings/promotions", authRequired, adminOnly, deps.Settings.SavePromotion)
	api.DELETE("/settings/promotions", authRequired, adminOnly, deps.Settings.DeletePromotion)
	api.PUT("/settings/promotions", deps.Settings.TrackPromotion)
	api.GET("/settings/terms", deps.Settings.GetTerms)
	api.POST("/settings/terms", authRequired, adminOnly, deps.Settings.UpdateTerms)

	api.GET("/license", deps.License.Lookup)
	api.POST("/license", limited, deps.License.Generate)
}
