// internal/services/verification_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/labtrust/trust-engine/internal/i18n"
	"github.com/labtrust/trust-engine/internal/models"
)

type VerificationServiceTestSuite struct {
	storeSuite
	product *models.Product
}

func (suite *VerificationServiceTestSuite) SetupTest() {
	suite.storeSuite.SetupTest()
	suite.createUser("brand", models.UserRoleStandard)
	suite.createUser("rival", models.UserRoleStandard)
	suite.createUser("root", models.UserRoleAdmin)
	suite.product = suite.createProduct("", false)
}

func (suite *VerificationServiceTestSuite) request(productID uuid.UUID) RequestVerificationRequest {
	return RequestVerificationRequest{
		ProductID:       productID,
		WorkEmail:       "owner@acme.example.com",
		LinkedInProfile: "https://www.linkedin.com/in/acme-owner",
		CompanyWebsite:  "https://acme.example.com",
	}
}

// activate simulates the subscription checkout completing.
func (suite *VerificationServiceTestSuite) activate(verification *models.BrandVerification) {
	err := suite.payments.HandleWebhookEvent(suite.ctx, &WebhookEvent{
		ID:   "evt_" + verification.ID.String(),
		Type: EventCheckoutSessionCompleted,
		Checkout: &CheckoutCompletion{
			SessionID:      verification.CheckoutSessionID,
			Kind:           models.CheckoutKindBrandVerification,
			UserID:         verification.UserID,
			ProductID:      verification.ProductID,
			RecordID:       verification.ID,
			SubscriptionID: "sub_" + verification.ID.String(),
			Paid:           true,
		},
	})
	suite.Require().NoError(err)
}

func (suite *VerificationServiceTestSuite) TestRequestStartsCheckout() {
	result, err := suite.verifications.RequestVerification(suite.ctx, member("brand"), suite.request(suite.product.ID))
	suite.Require().NoError(err)
	suite.Require().NotNil(result.Checkout)
	assert.Empty(suite.T(), result.Warnings)

	var stored models.BrandVerification
	suite.reload(&stored, result.Verification.ID)
	assert.Equal(suite.T(), models.VerificationStatusPending, stored.Status)
	assert.Equal(suite.T(), models.SubscriptionStatusPendingPayment, stored.SubscriptionStatus)
	assert.Equal(suite.T(), result.Checkout.SessionID, stored.CheckoutSessionID)
	assert.Equal(suite.T(), int64(1), suite.auditCount(ActionVerificationRequested))

	suite.Require().Equal(1, suite.provider.calls())
	req := suite.provider.requests[0]
	assert.Equal(suite.T(), models.CheckoutKindBrandVerification, req.Kind)
	assert.Equal(suite.T(), "brand@example.com", req.Email)
	assert.Contains(suite.T(), req.SuccessURL, "http://localhost:3000/brand/checkout/success")
}

func (suite *VerificationServiceTestSuite) TestCheckoutFailureKeepsRecord() {
	suite.provider.fail = true

	result, err := suite.verifications.RequestVerification(suite.ctx, member("brand"), suite.request(suite.product.ID))
	suite.Require().NoError(err)
	assert.Nil(suite.T(), result.Checkout)
	assert.Equal(suite.T(), []string{i18n.KeyPaymentCheckoutFailed}, result.Warnings)

	var stored models.BrandVerification
	suite.reload(&stored, result.Verification.ID)
	assert.Equal(suite.T(), models.VerificationStatusPending, stored.Status)
	assert.Empty(suite.T(), stored.CheckoutSessionID)
}

func (suite *VerificationServiceTestSuite) TestRequestPreconditions() {
	_, err := suite.verifications.RequestVerification(suite.ctx, member("brand"), suite.request(suite.product.ID))
	suite.Require().NoError(err)

	_, err = suite.verifications.RequestVerification(suite.ctx, member("rival"), suite.request(suite.product.ID))
	assert.ErrorIs(suite.T(), err, ErrVerificationAlreadyActive)

	owned := suite.createProduct("brand", false)
	_, err = suite.verifications.RequestVerification(suite.ctx, member("rival"), suite.request(owned.ID))
	assert.ErrorIs(suite.T(), err, ErrProductOwnedByAnother)

	_, err = suite.verifications.RequestVerification(suite.ctx, member("brand"), suite.request(uuid.New()))
	assert.ErrorIs(suite.T(), err, ErrProductNotFound)

	_, err = suite.verifications.RequestVerification(suite.ctx, Actor{}, suite.request(suite.product.ID))
	assert.ErrorIs(suite.T(), err, ErrUnauthorized)
}

func (suite *VerificationServiceTestSuite) TestRequestValidation() {
	req := suite.request(suite.product.ID)
	req.LinkedInProfile = "https://example.com/in/acme-owner"

	_, err := suite.verifications.RequestVerification(suite.ctx, member("brand"), req)
	assert.True(suite.T(), IsKind(err, KindValidationFailed))
	assert.Zero(suite.T(), suite.provider.calls())
}

func (suite *VerificationServiceTestSuite) TestApproveRequiresActiveSubscription() {
	result, err := suite.verifications.RequestVerification(suite.ctx, member("brand"), suite.request(suite.product.ID))
	suite.Require().NoError(err)

	_, err = suite.verifications.ApproveVerification(suite.ctx, admin("root"), result.Verification.ID)
	assert.ErrorIs(suite.T(), err, ErrSubscriptionNotActive)

	var product models.Product
	suite.reload(&product, suite.product.ID)
	assert.False(suite.T(), product.IsVerified)
}

func (suite *VerificationServiceTestSuite) TestApproveGrantsOwnership() {
	result, err := suite.verifications.RequestVerification(suite.ctx, member("brand"), suite.request(suite.product.ID))
	suite.Require().NoError(err)
	suite.activate(result.Verification)

	verification, err := suite.verifications.ApproveVerification(suite.ctx, member("root"), result.Verification.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.VerificationStatusApproved, verification.Status)

	var product models.Product
	suite.reload(&product, suite.product.ID)
	assert.True(suite.T(), product.IsVerified)
	assert.Equal(suite.T(), models.CertificationTierVerified, product.CertificationTier)
	assert.True(suite.T(), product.OwnedBy("brand"))

	var user models.User
	suite.reload(&user, "brand")
	assert.Equal(suite.T(), models.UserRoleBrandRep, user.Role)

	assert.Equal(suite.T(), int64(1), suite.auditCount(ActionVerificationApproved))
	assert.GreaterOrEqual(suite.T(), suite.notificationCount("brand", models.NotificationTypeVerification), int64(1))

	_, err = suite.verifications.ApproveVerification(suite.ctx, admin("root"), result.Verification.ID)
	assert.ErrorIs(suite.T(), err, ErrVerificationNotPending)
}

func (suite *VerificationServiceTestSuite) TestApproveRequiresAdmin() {
	result, err := suite.verifications.RequestVerification(suite.ctx, member("brand"), suite.request(suite.product.ID))
	suite.Require().NoError(err)
	suite.activate(result.Verification)

	_, err = suite.verifications.ApproveVerification(suite.ctx, member("rival"), result.Verification.ID)
	assert.ErrorIs(suite.T(), err, ErrAdminRequired)
	assert.True(suite.T(), IsKind(err, KindUnauthorized))

	_, err = suite.verifications.ApproveVerification(suite.ctx, admin("root"), uuid.New())
	assert.ErrorIs(suite.T(), err, ErrVerificationNotFound)
}

func (suite *VerificationServiceTestSuite) TestReject() {
	result, err := suite.verifications.RequestVerification(suite.ctx, member("brand"), suite.request(suite.product.ID))
	suite.Require().NoError(err)

	_, err = suite.verifications.RejectVerification(suite.ctx, admin("root"), result.Verification.ID, "too short")
	assert.True(suite.T(), IsKind(err, KindValidationFailed))

	verification, err := suite.verifications.RejectVerification(suite.ctx, admin("root"), result.Verification.ID, "Work email domain does not match the brand")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.VerificationStatusRejected, verification.Status)

	var product models.Product
	suite.reload(&product, suite.product.ID)
	assert.False(suite.T(), product.IsVerified)
	assert.Nil(suite.T(), product.BrandOwnerID)

	// A rejected record no longer blocks a new request.
	_, err = suite.verifications.RequestVerification(suite.ctx, member("brand"), suite.request(suite.product.ID))
	assert.NoError(suite.T(), err)
}

func (suite *VerificationServiceTestSuite) TestListings() {
	_, err := suite.verifications.RequestVerification(suite.ctx, member("brand"), suite.request(suite.product.ID))
	suite.Require().NoError(err)

	mine, err := suite.verifications.ListForUser(suite.ctx, member("brand"))
	suite.Require().NoError(err)
	assert.Len(suite.T(), mine, 1)

	_, _, err = suite.verifications.ListVerifications(suite.ctx, member("brand"), VerificationFilter{})
	assert.ErrorIs(suite.T(), err, ErrAdminRequired)

	pending := models.VerificationStatusPending
	queue, total, err := suite.verifications.ListVerifications(suite.ctx, admin("root"), VerificationFilter{Status: &pending})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(1), total)
	assert.Len(suite.T(), queue, 1)
}

func TestVerificationServiceSuite(t *testing.T) {
	suite.Run(t, new(VerificationServiceTestSuite))
}
