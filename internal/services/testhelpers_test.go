// internal/services/testhelpers_test.go
package services

import (
	"context"
	"errors"
	"sync"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/labtrust/trust-engine/internal/config"
	"github.com/labtrust/trust-engine/internal/database"
	"github.com/labtrust/trust-engine/internal/models"
)

// fakeProvider records checkout requests and can be switched into failure.
type fakeProvider struct {
	mu       sync.Mutex
	fail     bool
	requests []CheckoutRequest
}

func (p *fakeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)
	if p.fail {
		return nil, errors.New("payment provider unavailable")
	}
	return &CheckoutSession{
		SessionID: "cs_test_" + req.RecordID.String(),
		URL:       "https://checkout.test/" + req.RecordID.String(),
	}, nil
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// storeSuite gives each test a fresh migrated in-memory store and a full set
// of services wired over it.
type storeSuite struct {
	suite.Suite
	ctx      context.Context
	db       *gorm.DB
	cfg      *config.Config
	provider *fakeProvider

	// smeThreshold is the threshold the SME flag is checked against after
	// every test.
	smeThreshold int

	authz         *AuthorizationService
	audit         *AuditService
	notifications *NotificationService
	payments      *PaymentService
	storage       *StorageService
	reputation    *ReputationService
	badges        *BadgeService
	votes         *VoteService
	users         *UserService
	products      *ProductService
	verifications *VerificationService
	certification *CertificationService
	onboarding    *OnboardingService
	appeals       *AppealService
	admin         *AdminService
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Payment: config.PaymentConfig{
			StripeWebhookSecret:  "whsec_test",
			VerificationPriceID:  "price_verification",
			CertificationPriceID: "price_certification",
			OnboardingPriceID:    "price_onboarding",
			CheckoutSuccessPath:  "/brand/checkout/success",
			CheckoutCancelPath:   "/brand/checkout/cancel",
		},
		Trust: config.TrustConfig{
			SMEThreshold:    models.SMEThreshold,
			MinReasonLength: 10,
			MaxEvidenceURLs: 10,
		},
		AWS:      config.AWSConfig{EvidenceBucket: "evidence-test", PresignTTL: 15},
		Frontend: config.FrontendConfig{BaseURL: "http://localhost:3000"},
	}
}

func newTestDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), database.GormConfig("silent"))
	if err != nil {
		return nil, err
	}

	// One connection keeps the in-memory database alive and serializes
	// transactions.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.RunMigrations(db); err != nil {
		return nil, err
	}
	if err := database.SeedBadgeCatalog(db); err != nil {
		return nil, err
	}
	return db, nil
}

func (s *storeSuite) SetupSuite() {
	logrus.SetLevel(logrus.ErrorLevel)
}

func (s *storeSuite) SetupTest() {
	db, err := newTestDB()
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.db = db
	s.cfg = testConfig()
	s.provider = &fakeProvider{}
	s.smeThreshold = s.cfg.Trust.SMEThreshold

	minReason := s.cfg.Trust.MinReasonLength
	s.authz = NewAuthorizationService(db)
	s.audit = NewAuditService()
	s.notifications = NewNotificationService(db)
	s.payments = NewPaymentService(db, s.provider, s.audit, s.notifications, s.cfg)
	s.storage, err = NewStorageService(s.cfg)
	s.Require().NoError(err)
	s.reputation = NewReputationService(db, s.audit, s.notifications, s.cfg.Trust.SMEThreshold)
	s.badges = NewBadgeService(db, s.notifications)
	s.votes = NewVoteService(db, s.reputation, s.badges)
	s.users = NewUserService(db, s.reputation, s.badges)
	s.products = NewProductService(db, s.authz)
	s.verifications = NewVerificationService(db, s.authz, s.payments, s.audit, s.notifications, minReason)
	s.certification = NewCertificationService(db, s.authz, s.payments, s.storage, s.audit, s.notifications, minReason, s.cfg.Trust.MaxEvidenceURLs)
	s.onboarding = NewOnboardingService(db, s.authz, s.payments, s.audit, s.notifications, minReason)
	s.appeals = NewAppealService(db, s.authz, s.audit, s.notifications, minReason)
	s.admin = NewAdminService(db, s.authz, s.audit, s.notifications, minReason)
}

func (s *storeSuite) TearDownTest() {
	if s.db != nil {
		s.assertSMEConsistent()
		database.Close(s.db)
	}
}

// assertSMEConsistent checks that no user's SME flag disagrees with their
// stored reputation score.
func (s *storeSuite) assertSMEConsistent() {
	var mismatched int64
	err := s.db.Model(&models.User{}).
		Where("(is_sme = ? AND reputation_score < ?) OR (is_sme = ? AND reputation_score >= ?)",
			true, s.smeThreshold, false, s.smeThreshold).
		Count(&mismatched).Error
	s.Require().NoError(err)
	assert.Zero(s.T(), mismatched, "users with an SME flag out of step with their score")
}

func (s *storeSuite) mustCreate(value interface{}) {
	s.Require().NoError(s.db.Create(value).Error)
}

func (s *storeSuite) createUser(id string, role models.UserRole) *models.User {
	user := &models.User{
		ID:          id,
		DisplayName: id,
		Email:       id + "@example.com",
		Role:        role,
	}
	s.mustCreate(user)
	return user
}

func (s *storeSuite) createProduct(ownerID string, verified bool) *models.Product {
	product := &models.Product{
		Name:              "Magnesium Glycinate",
		BrandName:         "Acme Labs",
		Category:          "supplements",
		AdminStatus:       models.AdminStatusApproved,
		CertificationTier: models.CertificationTierUnverified,
		IsVerified:        verified,
	}
	if ownerID != "" {
		product.BrandOwnerID = &ownerID
	}
	if verified {
		product.CertificationTier = models.CertificationTierVerified
	}
	s.mustCreate(product)
	return product
}

func (s *storeSuite) createDiscussion(authorID string, upvotes int) *models.Discussion {
	discussion := &models.Discussion{
		AuthorID: authorID,
		Title:    "Third-party testing for " + authorID,
		Body:     "What labs do you trust?",
	}
	s.mustCreate(discussion)
	if upvotes != 0 {
		s.setUpvotes(discussion.ID, upvotes)
		discussion.UpvoteCount = upvotes
	}
	return discussion
}

func (s *storeSuite) setUpvotes(discussionID uuid.UUID, upvotes int) {
	s.Require().NoError(s.db.Model(&models.Discussion{}).Where("id = ?", discussionID).
		UpdateColumn("upvote_count", upvotes).Error)
}

// approvedVerification records a completed Track A for product.
func (s *storeSuite) approvedVerification(product *models.Product, userID string) *models.BrandVerification {
	subID := "sub_" + product.ID.String()
	verification := &models.BrandVerification{
		ProductID:            product.ID,
		UserID:               userID,
		WorkEmail:            userID + "@acme.example.com",
		LinkedInProfile:      "https://www.linkedin.com/in/" + userID,
		CompanyWebsite:       "https://acme.example.com",
		Status:               models.VerificationStatusApproved,
		SubscriptionStatus:   models.SubscriptionStatusActive,
		StripeSubscriptionID: &subID,
	}
	s.mustCreate(verification)
	return verification
}

func (s *storeSuite) auditCount(action string) int64 {
	var n int64
	s.Require().NoError(s.db.Model(&models.AdminLogEntry{}).Where("action = ?", action).Count(&n).Error)
	return n
}

func (s *storeSuite) notificationCount(userID string, kind models.NotificationType) int64 {
	var n int64
	s.Require().NoError(s.db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", userID, kind).Count(&n).Error)
	return n
}

func (s *storeSuite) reload(value interface{}, id interface{}) {
	s.Require().NoError(s.db.Where("id = ?", id).First(value).Error)
}

func admin(id string) Actor {
	return Actor{UserID: id, IsAdmin: true}
}

func member(id string) Actor {
	return Actor{UserID: id}
}
