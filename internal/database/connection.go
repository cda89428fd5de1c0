// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/labtrust/trust-engine/internal/config"
	"github.com/labtrust/trust-engine/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), GormConfig(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Database connection established successfully")
	return db, nil
}

// GormConfig builds the gorm configuration shared by every dialect. Driver
// errors are translated so unique violations surface as gorm.ErrDuplicatedKey.
func GormConfig(logLevel string) *gorm.Config {
	level := logger.Warn
	switch logLevel {
	case "silent":
		level = logger.Silent
	case "error":
		level = logger.Error
	case "info":
		level = logger.Info
	}

	return &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	}
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed successfully")
	}
}

// Models lists every table owned by the ledger store in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Badge{},
		&models.UserBadge{},
		&models.Product{},
		&models.Discussion{},
		&models.DiscussionComment{},
		&models.ProductComment{},
		&models.ProductReview{},
		&models.Vote{},
		&models.BrandVerification{},
		&models.SMECertification{},
		&models.ProductOnboarding{},
		&models.PaymentSubscription{},
		&models.AppealRequest{},
		&models.AdminLogEntry{},
		&models.Notification{},
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createConstraints(db); err != nil {
		return fmt.Errorf("failed to create constraints: %w", err)
	}

	createIndexes(db)

	logrus.Info("Database migrations completed successfully")
	return nil
}

// createConstraints installs the uniqueness rules that back the submission
// pre-checks, so concurrent submissions cannot both succeed.
func createConstraints(db *gorm.DB) error {
	constraints := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_brand_verifications_active_product ON brand_verifications(product_id) WHERE status IN ('pending', 'approved') AND deleted_at IS NULL",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_appeal_requests_pending_content ON appeal_requests(content_type, content_id) WHERE status = 'pending' AND deleted_at IS NULL",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_sme_certifications_open_product ON sme_certifications(product_id) WHERE status IN ('pending', 'under_review', 'more_info_needed') AND deleted_at IS NULL",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_product_onboardings_pending_claim ON product_onboardings(product_id, user_id) WHERE submission_type = 'brand_claim' AND verification_status = 'pending' AND deleted_at IS NULL",
	}

	for _, constraint := range constraints {
		if err := db.Exec(constraint).Error; err != nil {
			return fmt.Errorf("%s: %w", constraint, err)
		}
	}

	return nil
}

func createIndexes(db *gorm.DB) {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_users_reputation ON users(reputation_score DESC)",
		"CREATE INDEX IF NOT EXISTS idx_products_trust ON products(is_verified, is_sme_certified)",
		"CREATE INDEX IF NOT EXISTS idx_brand_verifications_queue ON brand_verifications(status, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_sme_certifications_queue ON sme_certifications(status, payment_status, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_product_onboardings_queue ON product_onboardings(verification_status, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_appeal_requests_queue ON appeal_requests(status, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_discussions_author_upvotes ON discussions(author_id, upvote_count)",
		"CREATE INDEX IF NOT EXISTS idx_discussion_comments_author_upvotes ON discussion_comments(author_id, upvote_count)",
		"CREATE INDEX IF NOT EXISTS idx_product_comments_author_upvotes ON product_comments(author_id, upvote_count)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			// Continue with other indexes instead of failing completely
			logrus.WithError(err).WithField("index", index).Warn("Failed to create index")
		}
	}
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
