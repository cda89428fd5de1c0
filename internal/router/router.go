// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/labtrust/trust-engine/internal/config"
	"github.com/labtrust/trust-engine/internal/handlers"
	"github.com/labtrust/trust-engine/internal/metrics"
	"github.com/labtrust/trust-engine/internal/middleware"
	"github.com/labtrust/trust-engine/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config, svc *Services) *gin.Engine {
	// Initialize handlers
	userHandler := handlers.NewUserHandler(svc.Users, svc.Badges, svc.Authorization)
	voteHandler := handlers.NewVoteHandler(svc.Votes)
	productHandler := handlers.NewProductHandler(svc.Products)
	verificationHandler := handlers.NewVerificationHandler(svc.Verifications)
	certificationHandler := handlers.NewCertificationHandler(svc.Certification)
	onboardingHandler := handlers.NewOnboardingHandler(svc.Onboarding)
	appealHandler := handlers.NewAppealHandler(svc.Appeals)
	paymentHandler := handlers.NewPaymentHandler(svc.Payments)
	notificationHandler := handlers.NewNotificationHandler(svc.Notifications)
	adminHandler := handlers.NewAdminHandler(svc.Admin, svc.Reputation)

	// Identity provider token verification
	utils.SetJWTSecret(cfg.Auth.JWTSecret)
	utils.SetJWTIssuer(cfg.Auth.Issuer)

	authRequired := middleware.AuthRequired(cfg.Auth.AdminRole, svc.Users)
	optionalAuth := middleware.OptionalAuth(cfg.Auth.AdminRole)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(metrics.GinMiddleware())
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": "1.0.0",
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Provider webhooks bypass auth and rate limiting; they are verified by signature.
	r.POST("/v1/webhooks/stripe", paymentHandler.StripeWebhook)

	// API v1 routes
	v1 := r.Group("/v1")
	v1.Use(middleware.GeneralRateLimit())
	{
		// Current user
		me := v1.Group("/me")
		me.Use(authRequired)
		{
			me.GET("", userHandler.GetMe)
			me.PUT("", userHandler.UpdateProfile)
			me.POST("/refresh", userHandler.Refresh)
			me.GET("/badges/progress", userHandler.GetBadgeProgress)
		}

		// Public profiles
		users := v1.Group("/users")
		{
			users.GET("/:id", userHandler.GetPublicProfile)
			users.GET("/:id/badges", userHandler.GetUserBadges)
		}
		v1.GET("/leaderboard", userHandler.GetLeaderboard)

		// Community votes
		content := v1.Group("/content")
		content.Use(authRequired)
		{
			content.POST("/:type/:id/votes", voteHandler.CastVote)
			content.DELETE("/:type/:id/votes", voteHandler.RemoveVote)
		}

		// Product routes
		products := v1.Group("/products")
		{
			products.GET("", productHandler.SearchProducts)
			products.GET("/:id", optionalAuth, productHandler.GetProduct)
			products.GET("/:id/trust", productHandler.GetTrustStatus)

			// Authenticated routes
			protected := products.Group("")
			protected.Use(authRequired)
			{
				protected.POST("", middleware.SubmissionRateLimit(), productHandler.CreateProduct)
				protected.POST("/:id/claim", middleware.SubmissionRateLimit(), onboardingHandler.SubmitBrandClaim)
				protected.POST("/:id/edits", middleware.SubmissionRateLimit(), onboardingHandler.SubmitProductEdit)
			}
		}

		// Brand console
		brand := v1.Group("/brand")
		brand.Use(authRequired)
		{
			brand.GET("/products", productHandler.ListOwnedProducts)
			brand.GET("/subscriptions", paymentHandler.ListSubscriptions)
			brand.GET("/verifications", verificationHandler.ListMine)
			brand.POST("/verifications", middleware.SubmissionRateLimit(), verificationHandler.RequestVerification)
			brand.POST("/certifications", middleware.SubmissionRateLimit(), certificationHandler.SubmitCertification)
			brand.POST("/certifications/evidence", middleware.UploadRateLimit(), certificationHandler.RequestEvidenceUpload)
			brand.PUT("/certifications/:id/resubmit", middleware.SubmissionRateLimit(), certificationHandler.ResubmitCertification)
		}

		// Certification records are readable by their owner and reviewers
		certifications := v1.Group("/certifications")
		certifications.Use(authRequired)
		{
			certifications.GET("/:id", certificationHandler.GetCertification)
		}

		// SME certification review (admins and verified experts)
		review := v1.Group("/review/certifications")
		review.Use(authRequired)
		{
			review.GET("", certificationHandler.ListCertifications)
			review.PUT("/:id/approve", certificationHandler.ApproveCertification)
			review.PUT("/:id/reject", certificationHandler.RejectCertification)
			review.PUT("/:id/request-info", certificationHandler.RequestMoreInfo)
		}

		// Moderation appeals
		v1.POST("/appeals", authRequired, middleware.SubmissionRateLimit(), appealHandler.SubmitAppeal)

		// Notifications
		notifications := v1.Group("/notifications")
		notifications.Use(authRequired)
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.PUT("/:id/read", notificationHandler.MarkRead)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(authRequired, middleware.AdminRequired(svc.Authorization))
		{
			// Dashboard
			admin.GET("/dashboard/stats", adminHandler.GetDashboardStats)
			admin.GET("/logs", adminHandler.GetAdminLogs)

			// User management
			adminUsers := admin.Group("/users")
			{
				adminUsers.GET("", adminHandler.GetUsers)
				adminUsers.PUT("/:id/expert", adminHandler.SetVerifiedExpert)
				adminUsers.POST("/:id/reputation/recalculate", adminHandler.RecalculateReputation)
			}

			// Product moderation
			adminProducts := admin.Group("/products")
			{
				adminProducts.GET("", adminHandler.GetProducts)
				adminProducts.PUT("/:id/approve", adminHandler.ApproveProduct)
				adminProducts.PUT("/:id/reject", adminHandler.RejectProduct)
			}

			// Track A queue
			adminVerifications := admin.Group("/verifications")
			{
				adminVerifications.GET("", verificationHandler.ListVerifications)
				adminVerifications.PUT("/:id/approve", verificationHandler.ApproveVerification)
				adminVerifications.PUT("/:id/reject", verificationHandler.RejectVerification)
			}

			// Brand onboarding queue
			adminOnboardings := admin.Group("/onboardings")
			{
				adminOnboardings.GET("", onboardingHandler.ListOnboardings)
				adminOnboardings.PUT("/:id/approve", onboardingHandler.ApproveOnboarding)
				adminOnboardings.PUT("/:id/reject", onboardingHandler.RejectOnboarding)
			}

			// Appeals queue
			adminAppeals := admin.Group("/appeals")
			{
				adminAppeals.GET("", appealHandler.ListAppeals)
				adminAppeals.PUT("/:id/approve", appealHandler.ApproveAppeal)
				adminAppeals.PUT("/:id/reject", appealHandler.RejectAppeal)
			}
		}
	}

	return r
}
