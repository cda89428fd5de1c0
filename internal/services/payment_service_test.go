// internal/services/payment_service_test.go
package services

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v74"

	"github.com/labtrust/trust-engine/internal/models"
)

type PaymentServiceTestSuite struct {
	storeSuite
	product      *models.Product
	verification *models.BrandVerification
}

func (suite *PaymentServiceTestSuite) SetupTest() {
	suite.storeSuite.SetupTest()
	suite.createUser("brand", models.UserRoleStandard)
	suite.product = suite.createProduct("", false)
	suite.verification = &models.BrandVerification{
		ProductID:          suite.product.ID,
		UserID:             "brand",
		WorkEmail:          "owner@acme.example.com",
		LinkedInProfile:    "https://www.linkedin.com/in/acme-owner",
		CompanyWebsite:     "https://acme.example.com",
		Status:             models.VerificationStatusPending,
		SubscriptionStatus: models.SubscriptionStatusPendingPayment,
	}
	suite.mustCreate(suite.verification)
}

func (suite *PaymentServiceTestSuite) checkoutEvent(subscriptionID string) *WebhookEvent {
	return &WebhookEvent{
		ID:   "evt_checkout",
		Type: EventCheckoutSessionCompleted,
		Checkout: &CheckoutCompletion{
			SessionID:      "cs_test",
			Kind:           models.CheckoutKindBrandVerification,
			UserID:         "brand",
			ProductID:      suite.product.ID,
			RecordID:       suite.verification.ID,
			SubscriptionID: subscriptionID,
			Paid:           true,
		},
	}
}

func (suite *PaymentServiceTestSuite) subscriptionEvent(eventType, subscriptionID string, status models.SubscriptionStatus) *WebhookEvent {
	return &WebhookEvent{
		ID:           "evt_" + string(status),
		Type:         eventType,
		Subscription: &SubscriptionChange{SubscriptionID: subscriptionID, Status: status},
	}
}

func (suite *PaymentServiceTestSuite) TestCheckoutActivatesSubscription() {
	suite.Require().NoError(suite.payments.HandleWebhookEvent(suite.ctx, suite.checkoutEvent("sub_1")))

	var verification models.BrandVerification
	suite.reload(&verification, suite.verification.ID)
	assert.Equal(suite.T(), models.SubscriptionStatusActive, verification.SubscriptionStatus)
	suite.Require().NotNil(verification.StripeSubscriptionID)
	assert.Equal(suite.T(), "sub_1", *verification.StripeSubscriptionID)
	assert.Equal(suite.T(), models.VerificationStatusPending, verification.Status)

	var sub models.PaymentSubscription
	suite.Require().NoError(suite.db.Where("external_id = ?", "sub_1").First(&sub).Error)
	assert.Equal(suite.T(), models.SubscriptionStatusActive, sub.Status)
	assert.Equal(suite.T(), suite.verification.ID, sub.RecordID)

	subs, err := suite.payments.ListSubscriptions(suite.ctx, member("brand"))
	suite.Require().NoError(err)
	assert.Len(suite.T(), subs, 1)
}

func (suite *PaymentServiceTestSuite) TestCheckoutReplayIsIdempotent() {
	for i := 0; i < 3; i++ {
		suite.Require().NoError(suite.payments.HandleWebhookEvent(suite.ctx, suite.checkoutEvent("sub_1")))
	}

	var subs int64
	suite.db.Model(&models.PaymentSubscription{}).Count(&subs)
	assert.Equal(suite.T(), int64(1), subs)
	assert.Equal(suite.T(), int64(1), suite.auditCount(ActionSubscriptionChanged))
	assert.Equal(suite.T(), int64(1), suite.notificationCount("brand", models.NotificationTypeVerification))
}

func (suite *PaymentServiceTestSuite) TestSubscriptionLifecycleProjects() {
	suite.Require().NoError(suite.payments.HandleWebhookEvent(suite.ctx, suite.checkoutEvent("sub_1")))

	suite.Require().NoError(suite.payments.HandleWebhookEvent(suite.ctx,
		suite.subscriptionEvent(EventSubscriptionUpdated, "sub_1", models.SubscriptionStatusPastDue)))
	var verification models.BrandVerification
	suite.reload(&verification, suite.verification.ID)
	assert.Equal(suite.T(), models.SubscriptionStatusPastDue, verification.SubscriptionStatus)

	suite.Require().NoError(suite.payments.HandleWebhookEvent(suite.ctx,
		suite.subscriptionEvent(EventSubscriptionDeleted, "sub_1", models.SubscriptionStatusCanceled)))
	suite.reload(&verification, suite.verification.ID)
	assert.Equal(suite.T(), models.SubscriptionStatusCanceled, verification.SubscriptionStatus)

	var sub models.PaymentSubscription
	suite.Require().NoError(suite.db.Where("external_id = ?", "sub_1").First(&sub).Error)
	assert.Equal(suite.T(), models.SubscriptionStatusCanceled, sub.Status)
	assert.Equal(suite.T(), int64(3), suite.auditCount(ActionSubscriptionChanged))
}

func (suite *PaymentServiceTestSuite) TestOnboardingSubscriptionProjects() {
	onboarding := &models.ProductOnboarding{
		ProductID:          suite.product.ID,
		UserID:             "brand",
		SubmissionType:     models.SubmissionTypeBrandClaim,
		VerificationStatus: models.OnboardingStatusVerified,
	}
	suite.mustCreate(onboarding)

	evt := suite.checkoutEvent("sub_onboarding")
	evt.Checkout.Kind = models.CheckoutKindBrandOnboarding
	evt.Checkout.RecordID = onboarding.ID
	suite.Require().NoError(suite.payments.HandleWebhookEvent(suite.ctx, evt))

	var stored models.ProductOnboarding
	suite.reload(&stored, onboarding.ID)
	suite.Require().NotNil(stored.SubscriptionStatus)
	assert.Equal(suite.T(), models.SubscriptionStatusActive, *stored.SubscriptionStatus)
	suite.Require().NotNil(stored.StripeSubscriptionID)
	assert.Equal(suite.T(), "sub_onboarding", *stored.StripeSubscriptionID)
}

func (suite *PaymentServiceTestSuite) TestUnknownSubscriptionIgnored() {
	err := suite.payments.HandleWebhookEvent(suite.ctx,
		suite.subscriptionEvent(EventSubscriptionUpdated, "sub_unknown", models.SubscriptionStatusActive))
	suite.Require().NoError(err)

	var subs int64
	suite.db.Model(&models.PaymentSubscription{}).Count(&subs)
	assert.Zero(suite.T(), subs)
	assert.Zero(suite.T(), suite.auditCount(ActionSubscriptionChanged))
}

func (suite *PaymentServiceTestSuite) TestUnreferencedCheckoutIsNoop() {
	evt := suite.checkoutEvent("sub_1")
	evt.Checkout.RecordID = uuid.Nil
	suite.Require().NoError(suite.payments.HandleWebhookEvent(suite.ctx, evt))

	evt = suite.checkoutEvent("sub_1")
	evt.Checkout.RecordID = uuid.New()
	suite.Require().NoError(suite.payments.HandleWebhookEvent(suite.ctx, evt))

	var verification models.BrandVerification
	suite.reload(&verification, suite.verification.ID)
	assert.Equal(suite.T(), models.SubscriptionStatusPendingPayment, verification.SubscriptionStatus)
	assert.Nil(suite.T(), verification.StripeSubscriptionID)

	var subs int64
	suite.db.Model(&models.PaymentSubscription{}).Count(&subs)
	assert.Zero(suite.T(), subs)
}

func (suite *PaymentServiceTestSuite) TestUnpaidCheckoutBindsPendingSubscription() {
	evt := suite.checkoutEvent("sub_async")
	evt.Checkout.Paid = false
	suite.Require().NoError(suite.payments.HandleWebhookEvent(suite.ctx, evt))

	var verification models.BrandVerification
	suite.reload(&verification, suite.verification.ID)
	assert.Equal(suite.T(), models.SubscriptionStatusPendingPayment, verification.SubscriptionStatus)
	suite.Require().NotNil(verification.StripeSubscriptionID)
	assert.Equal(suite.T(), "sub_async", *verification.StripeSubscriptionID)

	var sub models.PaymentSubscription
	suite.Require().NoError(suite.db.Where("external_id = ?", "sub_async").First(&sub).Error)
	assert.Equal(suite.T(), models.SubscriptionStatusPendingPayment, sub.Status)

	suite.Require().NoError(suite.payments.HandleWebhookEvent(suite.ctx,
		suite.subscriptionEvent(EventSubscriptionUpdated, "sub_async", models.SubscriptionStatusActive)))
	suite.reload(&verification, suite.verification.ID)
	assert.Equal(suite.T(), models.SubscriptionStatusActive, verification.SubscriptionStatus)

	// A late unpaid completion does not rewind the active subscription.
	suite.Require().NoError(suite.payments.HandleWebhookEvent(suite.ctx, evt))
	suite.reload(&verification, suite.verification.ID)
	assert.Equal(suite.T(), models.SubscriptionStatusActive, verification.SubscriptionStatus)
}

func (suite *PaymentServiceTestSuite) TestEveryStatusChangeIsAudited() {
	suite.Require().NoError(suite.payments.HandleWebhookEvent(suite.ctx, suite.checkoutEvent("sub_p")))
	suite.Require().NoError(suite.payments.HandleWebhookEvent(suite.ctx,
		suite.subscriptionEvent(EventSubscriptionDeleted, "sub_p", models.SubscriptionStatusCanceled)))

	assert.Equal(suite.T(), int64(2), suite.auditCount(ActionSubscriptionChanged))
	assert.Equal(suite.T(), int64(2), suite.notificationCount("brand", models.NotificationTypeVerification))

	var entries []models.AdminLogEntry
	suite.Require().NoError(suite.db.Where("action = ?", ActionSubscriptionChanged).Find(&entries).Error)
	transitions := make(map[interface{}]interface{}, len(entries))
	for _, entry := range entries {
		transitions[entry.Details["to"]] = entry.Details["from"]
	}
	assert.Equal(suite.T(), map[interface{}]interface{}{
		string(models.SubscriptionStatusActive):   "",
		string(models.SubscriptionStatusCanceled): string(models.SubscriptionStatusActive),
	}, transitions)
}

func (suite *PaymentServiceTestSuite) TestCertificationPaymentAdvancesReview() {
	cert := &models.SMECertification{
		ProductID:     suite.product.ID,
		BrandOwnerID:  "brand",
		LabReportURLs: []string{"https://labs.example.com/report.pdf"},
		Status:        models.CertificationStatusPending,
		PaymentStatus: models.PaymentStatusUnpaid,
	}
	suite.mustCreate(cert)

	evt := &WebhookEvent{
		ID:   "evt_cert",
		Type: EventCheckoutSessionCompleted,
		Checkout: &CheckoutCompletion{
			SessionID: "cs_cert",
			Kind:      models.CheckoutKindSMECertification,
			UserID:    "brand",
			ProductID: suite.product.ID,
			RecordID:  cert.ID,
			PaymentID: "pi_1",
			Paid:      true,
		},
	}
	suite.Require().NoError(suite.payments.HandleWebhookEvent(suite.ctx, evt))
	suite.Require().NoError(suite.payments.HandleWebhookEvent(suite.ctx, evt))

	var stored models.SMECertification
	suite.reload(&stored, cert.ID)
	assert.Equal(suite.T(), models.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(suite.T(), models.CertificationStatusUnderReview, stored.Status)
	suite.Require().NotNil(stored.StripePaymentID)
	assert.Equal(suite.T(), "pi_1", *stored.StripePaymentID)
	assert.Equal(suite.T(), []string{"https://labs.example.com/report.pdf"}, stored.LabReportURLs)
	assert.Equal(suite.T(), int64(1), suite.auditCount(ActionCertificationPaid))
}

func (suite *PaymentServiceTestSuite) TestMalformedEventsRejected() {
	err := suite.payments.HandleWebhookEvent(suite.ctx, &WebhookEvent{ID: "evt", Type: EventCheckoutSessionCompleted})
	assert.True(suite.T(), IsKind(err, KindValidationFailed))

	err = suite.payments.HandleWebhookEvent(suite.ctx, &WebhookEvent{ID: "evt", Type: EventSubscriptionDeleted})
	assert.True(suite.T(), IsKind(err, KindValidationFailed))

	err = suite.payments.HandleWebhookEvent(suite.ctx, &WebhookEvent{ID: "evt", Type: "invoice.paid"})
	assert.NoError(suite.T(), err)
}

func (suite *PaymentServiceTestSuite) TestParseWebhookRejectsBadSignature() {
	_, err := suite.payments.ParseWebhook([]byte(`{"id":"evt_1"}`), "t=1,v1=deadbeef")
	assert.ErrorIs(suite.T(), err, ErrInvalidSignature)
}

func (suite *PaymentServiceTestSuite) TestStartCheckoutDegradesOnProviderFailure() {
	suite.provider.fail = true

	checkout, warnings := suite.payments.StartCheckout(suite.ctx, CheckoutRequest{
		Kind:      models.CheckoutKindBrandVerification,
		UserID:    "brand",
		ProductID: suite.product.ID,
		RecordID:  suite.verification.ID,
	})
	assert.Nil(suite.T(), checkout)
	assert.Len(suite.T(), warnings, 1)
}

func TestPaymentServiceSuite(t *testing.T) {
	suite.Run(t, new(PaymentServiceTestSuite))
}

func TestEventFromStripeCheckout(t *testing.T) {
	recordID := uuid.New()
	productID := uuid.New()
	raw, err := json.Marshal(map[string]interface{}{
		"id":             "cs_123",
		"object":         "checkout.session",
		"payment_status": "paid",
		"subscription":   "sub_123",
		"metadata": map[string]string{
			"kind":       string(models.CheckoutKindBrandVerification),
			"user_id":    "brand",
			"product_id": productID.String(),
			"record_id":  recordID.String(),
		},
	})
	assert.NoError(t, err)

	evt, err := EventFromStripe(stripe.Event{
		ID:   "evt_123",
		Type: EventCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: raw},
	})
	assert.NoError(t, err)
	assert.Equal(t, "evt_123", evt.ID)
	if assert.NotNil(t, evt.Checkout) {
		assert.Equal(t, "cs_123", evt.Checkout.SessionID)
		assert.Equal(t, models.CheckoutKindBrandVerification, evt.Checkout.Kind)
		assert.Equal(t, recordID, evt.Checkout.RecordID)
		assert.Equal(t, productID, evt.Checkout.ProductID)
		assert.Equal(t, "sub_123", evt.Checkout.SubscriptionID)
		assert.True(t, evt.Checkout.Paid)
	}
}

func TestEventFromStripeSubscription(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		status    string
		want      models.SubscriptionStatus
	}{
		{"active", EventSubscriptionUpdated, "active", models.SubscriptionStatusActive},
		{"trialing", EventSubscriptionUpdated, "trialing", models.SubscriptionStatusActive},
		{"past due", EventSubscriptionUpdated, "past_due", models.SubscriptionStatusPastDue},
		{"unpaid", EventSubscriptionUpdated, "unpaid", models.SubscriptionStatusPastDue},
		{"expired", EventSubscriptionUpdated, "incomplete_expired", models.SubscriptionStatusCanceled},
		{"deleted", EventSubscriptionDeleted, "active", models.SubscriptionStatusCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := EventFromStripe(stripeEvent(t, tt.eventType,
				`{"id":"sub_123","object":"subscription","status":"`+tt.status+`"}`))
			assert.NoError(t, err)
			if assert.NotNil(t, evt.Subscription) {
				assert.Equal(t, "sub_123", evt.Subscription.SubscriptionID)
				assert.Equal(t, tt.want, evt.Subscription.Status)
			}
		})
	}
}

// stripeEvent decodes an event envelope the way the webhook endpoint
// receives it.
func stripeEvent(t *testing.T, eventType, object string) stripe.Event {
	var event stripe.Event
	payload := `{"id":"evt_sub","object":"event","type":"` + eventType + `","data":{"object":` + object + `}}`
	assert.NoError(t, json.Unmarshal([]byte(payload), &event))
	return event
}

func TestEventFromStripeMalformed(t *testing.T) {
	_, err := EventFromStripe(stripe.Event{
		ID:   "evt_bad",
		Type: EventCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: []byte(`not json`)},
	})
	assert.True(t, IsKind(err, KindValidationFailed))
}
