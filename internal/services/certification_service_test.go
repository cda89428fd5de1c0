// internal/services/certification_service_test.go
package services

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/labtrust/trust-engine/internal/models"
	"github.com/labtrust/trust-engine/internal/utils"
)

type CertificationServiceTestSuite struct {
	storeSuite
	product *models.Product
}

func (suite *CertificationServiceTestSuite) SetupTest() {
	suite.storeSuite.SetupTest()
	suite.createUser("brand", models.UserRoleBrandRep)
	suite.createUser("rival", models.UserRoleBrandRep)
	suite.createUser("root", models.UserRoleAdmin)
	suite.createUser("member", models.UserRoleStandard)

	expert := &models.User{ID: "expert", DisplayName: "expert", Role: models.UserRoleStandard, IsVerifiedExpert: true}
	suite.mustCreate(expert)

	suite.product = suite.createProduct("brand", true)
}

func (suite *CertificationServiceTestSuite) submit() *models.SMECertification {
	result, err := suite.certification.SubmitCertification(suite.ctx, member("brand"), SubmitCertificationRequest{
		ProductID:     suite.product.ID,
		LabReportURLs: []string{"https://labs.example.com/coa-2026.pdf"},
	})
	suite.Require().NoError(err)
	return result.Certification
}

// pay simulates the certification fee checkout completing.
func (suite *CertificationServiceTestSuite) pay(cert *models.SMECertification) {
	err := suite.payments.HandleWebhookEvent(suite.ctx, &WebhookEvent{
		ID:   "evt_" + cert.ID.String(),
		Type: EventCheckoutSessionCompleted,
		Checkout: &CheckoutCompletion{
			SessionID: cert.CheckoutSessionID,
			Kind:      models.CheckoutKindSMECertification,
			UserID:    cert.BrandOwnerID,
			ProductID: cert.ProductID,
			RecordID:  cert.ID,
			PaymentID: "pi_" + cert.ID.String(),
			Paid:      true,
		},
	})
	suite.Require().NoError(err)
}

func (suite *CertificationServiceTestSuite) TestSubmitOpensPendingRecord() {
	result, err := suite.certification.SubmitCertification(suite.ctx, member("brand"), SubmitCertificationRequest{
		ProductID:      suite.product.ID,
		LabReportURLs:  []string{"https://labs.example.com/coa.pdf"},
		PurityDataURLs: []string{"https://labs.example.com/purity.csv"},
	})
	suite.Require().NoError(err)
	suite.Require().NotNil(result.Checkout)

	cert := result.Certification
	assert.Equal(suite.T(), models.CertificationStatusPending, cert.Status)
	assert.Equal(suite.T(), models.PaymentStatusUnpaid, cert.PaymentStatus)
	assert.Equal(suite.T(), int64(1), suite.auditCount(ActionCertificationSubmitted))

	suite.Require().Equal(1, suite.provider.calls())
	assert.Equal(suite.T(), models.CheckoutKindSMECertification, suite.provider.requests[0].Kind)
}

func (suite *CertificationServiceTestSuite) TestSubmitPreconditions() {
	_, err := suite.certification.SubmitCertification(suite.ctx, member("rival"), SubmitCertificationRequest{
		ProductID:     suite.product.ID,
		LabReportURLs: []string{"https://labs.example.com/coa.pdf"},
	})
	assert.ErrorIs(suite.T(), err, ErrNotBrandOwner)

	unverified := suite.createProduct("brand", false)
	_, err = suite.certification.SubmitCertification(suite.ctx, member("brand"), SubmitCertificationRequest{
		ProductID:     unverified.ID,
		LabReportURLs: []string{"https://labs.example.com/coa.pdf"},
	})
	assert.ErrorIs(suite.T(), err, ErrProductNotVerified)

	_, err = suite.certification.SubmitCertification(suite.ctx, member("brand"), SubmitCertificationRequest{
		ProductID: suite.product.ID,
	})
	assert.True(suite.T(), IsKind(err, KindValidationFailed))

	suite.submit()
	_, err = suite.certification.SubmitCertification(suite.ctx, member("brand"), SubmitCertificationRequest{
		ProductID:     suite.product.ID,
		LabReportURLs: []string{"https://labs.example.com/coa.pdf"},
	})
	assert.ErrorIs(suite.T(), err, ErrCertificationAlreadyOpen)
}

func (suite *CertificationServiceTestSuite) TestApproveChecksTrackAFirst() {
	cert := suite.submit()

	_, err := suite.certification.ApproveCertification(suite.ctx, member("expert"), cert.ID, "")
	assert.ErrorIs(suite.T(), err, ErrTrackANotApproved)

	suite.approvedVerification(suite.product, "brand")
	_, err = suite.certification.ApproveCertification(suite.ctx, member("expert"), cert.ID, "")
	assert.ErrorIs(suite.T(), err, ErrCertificationNotPaid)

	suite.pay(cert)
	approved, err := suite.certification.ApproveCertification(suite.ctx, member("expert"), cert.ID, "COA matches label claims")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.CertificationStatusApproved, approved.Status)
	assert.Equal(suite.T(), "COA matches label claims", approved.ReviewerNotes)

	var product models.Product
	suite.reload(&product, suite.product.ID)
	assert.True(suite.T(), product.IsSMECertified)
	assert.Equal(suite.T(), models.CertificationTierSMECertified, product.CertificationTier)
	assert.Equal(suite.T(), int64(1), suite.auditCount(ActionCertificationApproved))

	_, err = suite.certification.SubmitCertification(suite.ctx, member("brand"), SubmitCertificationRequest{
		ProductID:     suite.product.ID,
		LabReportURLs: []string{"https://labs.example.com/coa.pdf"},
	})
	assert.ErrorIs(suite.T(), err, ErrAlreadyCertified)
}

func (suite *CertificationServiceTestSuite) TestReviewRequiresReviewer() {
	suite.approvedVerification(suite.product, "brand")
	cert := suite.submit()
	suite.pay(cert)

	_, err := suite.certification.ApproveCertification(suite.ctx, member("member"), cert.ID, "")
	assert.ErrorIs(suite.T(), err, ErrReviewerRequired)

	_, err = suite.certification.ApproveCertification(suite.ctx, Actor{}, cert.ID, "")
	assert.ErrorIs(suite.T(), err, ErrUnauthorized)

	_, err = suite.certification.ApproveCertification(suite.ctx, member("root"), cert.ID, "")
	assert.NoError(suite.T(), err)
}

func (suite *CertificationServiceTestSuite) TestMoreInfoAndResubmit() {
	suite.approvedVerification(suite.product, "brand")
	cert := suite.submit()
	suite.pay(cert)

	_, err := suite.certification.RequestMoreInfo(suite.ctx, member("expert"), cert.ID, "short")
	assert.True(suite.T(), IsKind(err, KindValidationFailed))

	updated, err := suite.certification.RequestMoreInfo(suite.ctx, member("expert"), cert.ID, "Please attach heavy metals panel")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.CertificationStatusMoreInfoNeeded, updated.Status)
	assert.GreaterOrEqual(suite.T(), suite.notificationCount("brand", models.NotificationTypeCertification), int64(1))

	_, err = suite.certification.ApproveCertification(suite.ctx, member("expert"), cert.ID, "")
	assert.ErrorIs(suite.T(), err, ErrCertificationNotUnderReview)

	_, err = suite.certification.ResubmitCertification(suite.ctx, member("rival"), cert.ID, ResubmitCertificationRequest{})
	assert.ErrorIs(suite.T(), err, ErrNotBrandOwner)

	resubmitted, err := suite.certification.ResubmitCertification(suite.ctx, member("brand"), cert.ID, ResubmitCertificationRequest{
		LabReportURLs: []string{"https://labs.example.com/heavy-metals.pdf"},
		Notes:         "Heavy metals panel attached",
	})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.CertificationStatusUnderReview, resubmitted.Status)

	var stored models.SMECertification
	suite.reload(&stored, cert.ID)
	assert.Equal(suite.T(), []string{
		"https://labs.example.com/coa-2026.pdf",
		"https://labs.example.com/heavy-metals.pdf",
	}, stored.LabReportURLs)
	assert.Equal(suite.T(), models.PaymentStatusPaid, stored.PaymentStatus)

	_, err = suite.certification.ResubmitCertification(suite.ctx, member("brand"), cert.ID, ResubmitCertificationRequest{})
	assert.ErrorIs(suite.T(), err, ErrCertificationNotAwaiting)
}

func (suite *CertificationServiceTestSuite) TestRejectLeavesProductUntouched() {
	suite.approvedVerification(suite.product, "brand")
	cert := suite.submit()

	_, err := suite.certification.RejectCertification(suite.ctx, member("expert"), cert.ID, "Lab is not ISO 17025 accredited")
	assert.ErrorIs(suite.T(), err, ErrCertificationNotUnderReview)

	suite.pay(cert)
	rejected, err := suite.certification.RejectCertification(suite.ctx, member("expert"), cert.ID, "Lab is not ISO 17025 accredited")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.CertificationStatusRejected, rejected.Status)
	assert.Equal(suite.T(), "Lab is not ISO 17025 accredited", rejected.RejectionReason)

	var product models.Product
	suite.reload(&product, suite.product.ID)
	assert.False(suite.T(), product.IsSMECertified)
	assert.Equal(suite.T(), models.CertificationTierVerified, product.CertificationTier)

	// A closed record frees the product for a new submission.
	suite.submit()
}

func (suite *CertificationServiceTestSuite) TestGetAndList() {
	cert := suite.submit()

	got, err := suite.certification.GetCertification(suite.ctx, member("brand"), cert.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), cert.ID, got.ID)

	_, err = suite.certification.GetCertification(suite.ctx, member("rival"), cert.ID)
	assert.ErrorIs(suite.T(), err, ErrReviewerRequired)

	// Unknown ids look the same as foreign ones to a non-reviewer.
	_, err = suite.certification.GetCertification(suite.ctx, member("rival"), uuid.New())
	assert.ErrorIs(suite.T(), err, ErrReviewerRequired)
	_, err = suite.certification.GetCertification(suite.ctx, member("brand"), uuid.New())
	assert.ErrorIs(suite.T(), err, ErrReviewerRequired)
	_, err = suite.certification.GetCertification(suite.ctx, Actor{}, cert.ID)
	assert.ErrorIs(suite.T(), err, ErrUnauthorized)

	_, err = suite.certification.GetCertification(suite.ctx, member("expert"), uuid.New())
	assert.ErrorIs(suite.T(), err, ErrCertificationNotFound)

	queue, total, err := suite.certification.ListCertifications(suite.ctx, member("expert"), CertificationFilter{})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(1), total)
	assert.Len(suite.T(), queue, 1)
}

func evidenceURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://labs.example.com/report-%d.pdf", i)
	}
	return urls
}

func (suite *CertificationServiceTestSuite) TestEvidenceCountFollowsConfig() {
	limit := suite.cfg.Trust.MaxEvidenceURLs

	_, err := suite.certification.SubmitCertification(suite.ctx, member("brand"), SubmitCertificationRequest{
		ProductID:     suite.product.ID,
		LabReportURLs: evidenceURLs(limit + 1),
	})
	suite.Require().True(IsKind(err, KindValidationFailed))
	var se *ServiceError
	suite.Require().ErrorAs(err, &se)
	fields, ok := se.Details.([]utils.ValidationError)
	suite.Require().True(ok)
	suite.Require().Len(fields, 1)
	assert.Equal(suite.T(), "lab_report_urls", fields[0].Field)

	result, err := suite.certification.SubmitCertification(suite.ctx, member("brand"), SubmitCertificationRequest{
		ProductID:     suite.product.ID,
		LabReportURLs: evidenceURLs(limit),
	})
	suite.Require().NoError(err)
	cert := result.Certification

	suite.approvedVerification(suite.product, "brand")
	suite.pay(cert)
	_, err = suite.certification.RequestMoreInfo(suite.ctx, member("expert"), cert.ID, "Please attach heavy metals panel")
	suite.Require().NoError(err)

	_, err = suite.certification.ResubmitCertification(suite.ctx, member("brand"), cert.ID, ResubmitCertificationRequest{
		LabReportURLs: evidenceURLs(1),
	})
	assert.True(suite.T(), IsKind(err, KindValidationFailed))

	var stored models.SMECertification
	suite.reload(&stored, cert.ID)
	assert.Equal(suite.T(), models.CertificationStatusMoreInfoNeeded, stored.Status)
	assert.Len(suite.T(), stored.LabReportURLs, limit)
}

func (suite *CertificationServiceTestSuite) TestEvidenceUploadRequiresStorage() {
	_, err := suite.certification.RequestEvidenceUpload(suite.ctx, member("rival"), suite.product.ID, "coa.pdf")
	assert.ErrorIs(suite.T(), err, ErrNotBrandOwner)

	_, err = suite.certification.RequestEvidenceUpload(suite.ctx, member("brand"), suite.product.ID, "coa.pdf")
	assert.ErrorIs(suite.T(), err, ErrStorageUnavailable)
}

func TestCertificationServiceSuite(t *testing.T) {
	suite.Run(t, new(CertificationServiceTestSuite))
}
