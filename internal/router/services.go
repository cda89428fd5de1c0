// internal/router/services.go
package router

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/labtrust/trust-engine/internal/config"
	"github.com/labtrust/trust-engine/internal/services"
)

// Services is the wired service graph shared by the HTTP server and the
// trustctl maintenance commands.
type Services struct {
	Authorization *services.AuthorizationService
	Audit         *services.AuditService
	Notifications *services.NotificationService
	Storage       *services.StorageService
	Payments      *services.PaymentService
	Reputation    *services.ReputationService
	Badges        *services.BadgeService
	Votes         *services.VoteService
	Users         *services.UserService
	Products      *services.ProductService
	Verifications *services.VerificationService
	Certification *services.CertificationService
	Onboarding    *services.OnboardingService
	Appeals       *services.AppealService
	Admin         *services.AdminService
}

// NewServices wires every service against db. provider may be a test double;
// nil selects Stripe.
func NewServices(db *gorm.DB, cfg *config.Config, provider services.PaymentProvider) (*Services, error) {
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if provider == nil {
		provider = services.NewStripeProvider(cfg.Payment)
	}

	minReason := cfg.Trust.MinReasonLength
	authz := services.NewAuthorizationService(db)
	audit := services.NewAuditService()
	notifications := services.NewNotificationService(db)
	payments := services.NewPaymentService(db, provider, audit, notifications, cfg)
	reputation := services.NewReputationService(db, audit, notifications, cfg.Trust.SMEThreshold)
	badges := services.NewBadgeService(db, notifications)

	return &Services{
		Authorization: authz,
		Audit:         audit,
		Notifications: notifications,
		Storage:       storageService,
		Payments:      payments,
		Reputation:    reputation,
		Badges:        badges,
		Votes:         services.NewVoteService(db, reputation, badges),
		Users:         services.NewUserService(db, reputation, badges),
		Products:      services.NewProductService(db, authz),
		Verifications: services.NewVerificationService(db, authz, payments, audit, notifications, minReason),
		Certification: services.NewCertificationService(db, authz, payments, storageService, audit, notifications, minReason, cfg.Trust.MaxEvidenceURLs),
		Onboarding:    services.NewOnboardingService(db, authz, payments, audit, notifications, minReason),
		Appeals:       services.NewAppealService(db, authz, audit, notifications, minReason),
		Admin:         services.NewAdminService(db, authz, audit, notifications, minReason),
	}, nil
}
