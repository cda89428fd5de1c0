// internal/services/payment_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"
	"github.com/stripe/stripe-go/v74/webhook"
	"gorm.io/gorm"

	"github.com/labtrust/trust-engine/internal/config"
	"github.com/labtrust/trust-engine/internal/database"
	"github.com/labtrust/trust-engine/internal/i18n"
	"github.com/labtrust/trust-engine/internal/metrics"
	"github.com/labtrust/trust-engine/internal/models"
	"github.com/labtrust/trust-engine/internal/utils"
)

// Webhook event types the engine reacts to.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventSubscriptionUpdated      = "customer.subscription.updated"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
)

type CheckoutRequest struct {
	Kind       models.CheckoutKind
	UserID     string
	Email      string
	ProductID  uuid.UUID
	RecordID   uuid.UUID
	SuccessURL string
	CancelURL  string
}

type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// PaymentProvider creates hosted checkout sessions. Amounts are configured
// at the provider; the engine only references price ids.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// StripeProvider implements PaymentProvider with Stripe Checkout.
type StripeProvider struct {
	config config.PaymentConfig
}

func NewStripeProvider(cfg config.PaymentConfig) *StripeProvider {
	stripe.Key = cfg.StripeSecretKey
	return &StripeProvider{config: cfg}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	priceID, mode := p.priceFor(req.Kind)
	if priceID == "" {
		return nil, fmt.Errorf("no price configured for %s", req.Kind)
	}

	metadata := map[string]string{
		"kind":       string(req.Kind),
		"user_id":    req.UserID,
		"product_id": req.ProductID.String(),
		"record_id":  req.RecordID.String(),
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(mode)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.RecordID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	if mode == stripe.CheckoutSessionModeSubscription {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{Metadata: metadata}
	} else {
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{Metadata: metadata}
	}

	params.Context = ctx
	params.IdempotencyKey = stripe.String(utils.IdempotencyKey("checkout", string(req.Kind), req.RecordID.String()))

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &CheckoutSession{SessionID: s.ID, URL: s.URL}, nil
}

func (p *StripeProvider) priceFor(kind models.CheckoutKind) (string, stripe.CheckoutSessionMode) {
	switch kind {
	case models.CheckoutKindBrandVerification:
		return p.config.VerificationPriceID, stripe.CheckoutSessionModeSubscription
	case models.CheckoutKindBrandOnboarding:
		return p.config.OnboardingPriceID, stripe.CheckoutSessionModeSubscription
	case models.CheckoutKindSMECertification:
		return p.config.CertificationPriceID, stripe.CheckoutSessionModePayment
	default:
		return "", ""
	}
}

// WebhookEvent is the provider-neutral form of a payment webhook.
type WebhookEvent struct {
	ID           string
	Type         string
	Checkout     *CheckoutCompletion
	Subscription *SubscriptionChange
}

type CheckoutCompletion struct {
	SessionID      string
	Kind           models.CheckoutKind
	UserID         string
	ProductID      uuid.UUID
	RecordID       uuid.UUID
	SubscriptionID string
	PaymentID      string
	Paid           bool
}

type SubscriptionChange struct {
	SubscriptionID string
	Status         models.SubscriptionStatus
}

type PaymentService struct {
	db            *gorm.DB
	provider      PaymentProvider
	audit         *AuditService
	notifications NotificationSink
	config        *config.Config
}

func NewPaymentService(db *gorm.DB, provider PaymentProvider, audit *AuditService, notifications NotificationSink, config *config.Config) *PaymentService {
	return &PaymentService{
		db:            db,
		provider:      provider,
		audit:         audit,
		notifications: notifications,
		config:        config,
	}
}

// StartCheckout opens a checkout session for a pipeline record and stores the
// session id on it. A failure is returned as a warning key: the record is
// already committed and the user can retry payment later.
func (s *PaymentService) StartCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, []string) {
	if req.SuccessURL == "" || req.CancelURL == "" {
		success, cancel := s.config.Payment.CheckoutURLs(s.config.Frontend.BaseURL)
		req.SuccessURL = success + "?session_id={CHECKOUT_SESSION_ID}"
		req.CancelURL = cancel
	}

	log := logrus.WithFields(logrus.Fields{
		"kind":      req.Kind,
		"record_id": req.RecordID,
		"user_id":   req.UserID,
	})

	checkout, err := s.provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		log.WithError(err).Warn("Checkout session creation failed; record kept")
		metrics.RecordDegraded("checkout_" + string(req.Kind))
		return nil, []string{i18n.KeyPaymentCheckoutFailed}
	}

	if err := s.bindSession(ctx, req, checkout); err != nil {
		log.WithError(err).Warn("Failed to store checkout session id")
		metrics.RecordDegraded("checkout_bind_" + string(req.Kind))
		return checkout, []string{i18n.KeyPaymentCheckoutFailed}
	}

	log.WithField("session_id", checkout.SessionID).Info("Checkout session created")
	return checkout, nil
}

func (s *PaymentService) bindSession(ctx context.Context, req CheckoutRequest, checkout *CheckoutSession) error {
	db := s.db.WithContext(ctx)

	switch req.Kind {
	case models.CheckoutKindBrandVerification:
		return db.Model(&models.BrandVerification{}).Where("id = ?", req.RecordID).
			Update("checkout_session_id", checkout.SessionID).Error
	case models.CheckoutKindSMECertification:
		return db.Model(&models.SMECertification{}).Where("id = ?", req.RecordID).
			Update("checkout_session_id", checkout.SessionID).Error
	case models.CheckoutKindBrandOnboarding:
		return db.Model(&models.ProductOnboarding{}).Where("id = ?", req.RecordID).
			Updates(map[string]interface{}{
				"checkout_session_id":  checkout.SessionID,
				"payment_link_sent_at": time.Now(),
			}).Error
	default:
		return fmt.Errorf("unknown checkout kind %q", req.Kind)
	}
}

// ParseWebhook verifies the provider signature and decodes the event.
func (s *PaymentService) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.config.Payment.StripeWebhookSecret)
	if err != nil {
		logrus.WithError(err).Warn("Rejected webhook with invalid signature")
		return nil, &ServiceError{
			Kind:    ErrInvalidSignature.Kind,
			Key:     ErrInvalidSignature.Key,
			Message: ErrInvalidSignature.Message,
			Err:     err,
		}
	}

	return EventFromStripe(event)
}

// EventFromStripe converts a verified Stripe event.
func EventFromStripe(event stripe.Event) (*WebhookEvent, error) {
	evt := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return evt, nil
	}

	switch evt.Type {
	case EventCheckoutSessionCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, NewValidationError(i18n.KeyValidationInvalid, "malformed checkout session payload", nil)
		}

		completion := &CheckoutCompletion{
			SessionID: cs.ID,
			Kind:      models.CheckoutKind(cs.Metadata["kind"]),
			UserID:    cs.Metadata["user_id"],
			Paid: cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
				cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired,
		}

		recordRef := cs.Metadata["record_id"]
		if recordRef == "" {
			recordRef = cs.ClientReferenceID
		}
		completion.RecordID, _ = uuid.Parse(recordRef)
		completion.ProductID, _ = uuid.Parse(cs.Metadata["product_id"])

		if cs.Subscription != nil {
			completion.SubscriptionID = cs.Subscription.ID
		}
		if cs.PaymentIntent != nil {
			completion.PaymentID = cs.PaymentIntent.ID
		}
		evt.Checkout = completion

	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, NewValidationError(i18n.KeyValidationInvalid, "malformed subscription payload", nil)
		}

		status := mapSubscriptionStatus(string(sub.Status))
		if evt.Type == EventSubscriptionDeleted {
			status = models.SubscriptionStatusCanceled
		}
		evt.Subscription = &SubscriptionChange{SubscriptionID: sub.ID, Status: status}
	}

	return evt, nil
}

func mapSubscriptionStatus(status string) models.SubscriptionStatus {
	switch status {
	case "active", "trialing":
		return models.SubscriptionStatusActive
	case "past_due", "unpaid", "incomplete", "paused":
		return models.SubscriptionStatusPastDue
	case "canceled", "incomplete_expired":
		return models.SubscriptionStatusCanceled
	default:
		return models.SubscriptionStatusPendingPayment
	}
}

// HandleWebhookEvent applies a verified event. Every branch is idempotent:
// replaying an event leaves the store unchanged. Unknown types are ignored.
func (s *PaymentService) HandleWebhookEvent(ctx context.Context, evt *WebhookEvent) error {
	log := logrus.WithFields(logrus.Fields{"event_id": evt.ID, "type": evt.Type})

	var (
		actions []string
		err     error
	)
	switch evt.Type {
	case EventCheckoutSessionCompleted:
		if evt.Checkout == nil {
			return NewValidationError(i18n.KeyValidationInvalid, "checkout event has no session", nil)
		}
		actions, err = s.handleCheckoutCompleted(ctx, evt.Checkout)
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		if evt.Subscription == nil {
			return NewValidationError(i18n.KeyValidationInvalid, "subscription event has no subscription", nil)
		}
		actions, err = s.handleSubscriptionChange(ctx, evt.Subscription)
	default:
		log.Debug("Ignoring unhandled webhook event")
		metrics.RecordWebhook(evt.Type, "ignored")
		return nil
	}

	if err != nil {
		log.WithError(err).Error("Webhook processing failed")
		metrics.RecordWebhook(evt.Type, "error")
		return err
	}

	for _, action := range actions {
		metrics.RecordTransition(action)
	}
	outcome := "applied"
	if len(actions) == 0 {
		outcome = "noop"
	}
	metrics.RecordWebhook(evt.Type, outcome)
	log.WithField("outcome", outcome).Info("Webhook processed")
	return nil
}

func (s *PaymentService) handleCheckoutCompleted(ctx context.Context, c *CheckoutCompletion) ([]string, error) {
	log := logrus.WithFields(logrus.Fields{"session_id": c.SessionID, "kind": c.Kind, "record_id": c.RecordID})
	if c.RecordID == uuid.Nil {
		log.Warn("Checkout completion without record reference")
		return nil, nil
	}
	if !c.Paid {
		log.Info("Checkout completed without payment; awaiting async confirmation")
	}

	var actions []string
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var err error
		switch c.Kind {
		case models.CheckoutKindSMECertification:
			if c.Paid {
				actions, err = s.markCertificationPaid(tx, c)
			}
		case models.CheckoutKindBrandVerification, models.CheckoutKindBrandOnboarding:
			actions, err = s.activateSubscription(tx, c)
		default:
			log.Warn("Checkout completion with unknown kind")
		}
		return err
	})
	return actions, err
}

func (s *PaymentService) markCertificationPaid(tx *gorm.DB, c *CheckoutCompletion) ([]string, error) {
	var cert models.SMECertification
	if err := tx.Where("id = ?", c.RecordID).First(&cert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithField("record_id", c.RecordID).Warn("Payment for unknown certification")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load certification: %w", err)
	}

	if cert.PaymentStatus == models.PaymentStatusPaid {
		return nil, nil
	}

	updates := map[string]interface{}{"payment_status": models.PaymentStatusPaid}
	if c.PaymentID != "" {
		updates["stripe_payment_id"] = c.PaymentID
	}
	if err := tx.Model(&models.SMECertification{}).Where("id = ?", cert.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to mark certification paid: %w", err)
	}

	// Only a pending record moves to review; a later state is never rewound.
	advanced := tx.Model(&models.SMECertification{}).
		Where("id = ? AND status = ?", cert.ID, models.CertificationStatusPending).
		Update("status", models.CertificationStatusUnderReview)
	if advanced.Error != nil {
		return nil, fmt.Errorf("failed to advance certification: %w", advanced.Error)
	}

	if err := s.audit.Record(tx, AuditEntry{
		Action:     ActionCertificationPaid,
		TargetType: "sme_certification",
		TargetID:   cert.ID.String(),
		Details: models.JSONB{
			"session_id":      c.SessionID,
			"payment_id":      c.PaymentID,
			"advanced_review": advanced.RowsAffected == 1,
		},
	}); err != nil {
		return nil, err
	}

	notify(s.notifications, tx, NotificationRequest{
		UserID:     cert.BrandOwnerID,
		Type:       models.NotificationTypeCertification,
		TargetID:   cert.ID.String(),
		TargetType: "sme_certification",
		Metadata:   models.JSONB{"payment_status": models.PaymentStatusPaid},
	})

	return []string{ActionCertificationPaid}, nil
}

func (s *PaymentService) activateSubscription(tx *gorm.DB, c *CheckoutCompletion) ([]string, error) {
	if c.SubscriptionID == "" {
		logrus.WithField("session_id", c.SessionID).Warn("Subscription checkout without subscription id")
		return nil, nil
	}

	var model interface{} = &models.BrandVerification{}
	if c.Kind == models.CheckoutKindBrandOnboarding {
		model = &models.ProductOnboarding{}
	}

	var found int64
	if err := tx.Model(model).Where("id = ?", c.RecordID).Count(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to load subscribed record: %w", err)
	}
	if found == 0 {
		logrus.WithField("record_id", c.RecordID).Warn("Subscription for unknown record")
		return nil, nil
	}

	err := tx.Model(model).
		Where("id = ? AND (stripe_subscription_id IS NULL OR stripe_subscription_id <> ?)", c.RecordID, c.SubscriptionID).
		Update("stripe_subscription_id", c.SubscriptionID).Error
	if err != nil {
		return nil, fmt.Errorf("failed to bind subscription: %w", err)
	}

	status := models.SubscriptionStatusActive
	if !c.Paid {
		// The subscription is bound now so later status events can find it;
		// an unpaid completion never overrides a status already recorded.
		var known int64
		if err := tx.Model(&models.PaymentSubscription{}).
			Where("external_id = ?", c.SubscriptionID).Count(&known).Error; err != nil {
			return nil, fmt.Errorf("failed to load subscription: %w", err)
		}
		if known > 0 {
			return nil, nil
		}
		status = models.SubscriptionStatusPendingPayment
	}

	changed, err := s.applySubscriptionStatus(tx, models.PaymentSubscription{
		ExternalID: c.SubscriptionID,
		Kind:       c.Kind,
		UserID:     c.UserID,
		ProductID:  c.ProductID,
		RecordID:   c.RecordID,
		Status:     status,
	})
	if err != nil || !changed {
		return nil, err
	}
	return []string{ActionSubscriptionChanged}, nil
}

func (s *PaymentService) handleSubscriptionChange(ctx context.Context, change *SubscriptionChange) ([]string, error) {
	var actions []string
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		changed, err := s.applySubscriptionStatus(tx, models.PaymentSubscription{
			ExternalID: change.SubscriptionID,
			Status:     change.Status,
		})
		if changed {
			actions = append(actions, ActionSubscriptionChanged)
		}
		return err
	})
	return actions, err
}

// applySubscriptionStatus writes the authoritative subscription row and
// mirrors its status onto the records bound to it. It reports whether the
// status changed. A status update for a subscription never seen through
// checkout is ignored.
func (s *PaymentService) applySubscriptionStatus(tx *gorm.DB, sub models.PaymentSubscription) (bool, error) {
	var current models.PaymentSubscription
	var previous models.SubscriptionStatus
	err := tx.Where("external_id = ?", sub.ExternalID).First(&current).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if sub.Kind == "" {
			logrus.WithField("subscription_id", sub.ExternalID).Warn("Status change for unknown subscription")
			return false, nil
		}
		if err := tx.Create(&sub).Error; err != nil {
			return false, fmt.Errorf("failed to record subscription: %w", err)
		}
		current = sub
	case err != nil:
		return false, fmt.Errorf("failed to load subscription: %w", err)
	default:
		previous = current.Status
		if previous != sub.Status {
			if err := tx.Model(&current).Update("status", sub.Status).Error; err != nil {
				return false, fmt.Errorf("failed to update subscription: %w", err)
			}
		}
	}

	if err := projectSubscriptionStatus(tx, sub.ExternalID, sub.Status); err != nil {
		return false, err
	}

	if previous == sub.Status {
		return false, nil
	}

	owner := current.UserID
	if owner == "" {
		owner = sub.UserID
	}
	if err := s.audit.Record(tx, AuditEntry{
		Action:     ActionSubscriptionChanged,
		TargetType: "payment_subscription",
		TargetID:   sub.ExternalID,
		Details: models.JSONB{
			"from":      previous,
			"to":        sub.Status,
			"kind":      firstNonEmpty(string(current.Kind), string(sub.Kind)),
			"record_id": firstNonEmpty(uuidString(current.RecordID), uuidString(sub.RecordID)),
		},
	}); err != nil {
		return false, err
	}

	notify(s.notifications, tx, NotificationRequest{
		UserID:     owner,
		Type:       models.NotificationTypeVerification,
		TargetID:   sub.ExternalID,
		TargetType: "payment_subscription",
		Metadata:   models.JSONB{"subscription_status": sub.Status},
	})

	return true, nil
}

// projectSubscriptionStatus mirrors the subscription status onto every
// record bound to the external id.
func projectSubscriptionStatus(tx *gorm.DB, externalID string, status models.SubscriptionStatus) error {
	if err := tx.Model(&models.BrandVerification{}).
		Where("stripe_subscription_id = ? AND subscription_status <> ?", externalID, status).
		Update("subscription_status", status).Error; err != nil {
		return fmt.Errorf("failed to project subscription onto verification: %w", err)
	}

	if err := tx.Model(&models.ProductOnboarding{}).
		Where("stripe_subscription_id = ? AND (subscription_status IS NULL OR subscription_status <> ?)", externalID, status).
		Update("subscription_status", status).Error; err != nil {
		return fmt.Errorf("failed to project subscription onto onboarding: %w", err)
	}

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func uuidString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

// ListSubscriptions returns the caller's subscriptions, newest first.
func (s *PaymentService) ListSubscriptions(ctx context.Context, actor Actor) ([]models.PaymentSubscription, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}

	var subs []models.PaymentSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", actor.UserID).
		Order("created_at DESC").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions: %w", err)
	}
	return subs, nil
}
