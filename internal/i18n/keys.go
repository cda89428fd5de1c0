// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"
	KeyWarning = "warning"

	// Authentication
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"
	KeyAuthTokenExpired = "auth.token_expired"
	KeyAuthForbidden    = "auth.forbidden"

	// Users
	KeyUserNotFound = "user.not_found"
	KeyUserSynced   = "user.synced"

	// Products
	KeyProductNotFound       = "product.not_found"
	KeyProductNotOwner       = "product.not_owner"
	KeyProductOwnedByAnother = "product.owned_by_another"
	KeyProductNotVerified    = "product.not_verified"
	KeyProductApproved       = "product.approved"
	KeyProductRejected       = "product.rejected"

	// Content & votes
	KeyContentNotFound    = "content.not_found"
	KeyContentTypeInvalid = "content.type_invalid"
	KeyVoteAlreadyCast    = "vote.already_cast"
	KeyVoteSelf           = "vote.self"
	KeyVoteNotFound       = "vote.not_found"

	// Brand verification (Track A)
	KeyVerificationNotFound        = "verification.not_found"
	KeyVerificationAlreadyActive   = "verification.already_active"
	KeyVerificationNotPending      = "verification.not_pending"
	KeyVerificationPaymentRequired = "verification.payment_required"
	KeyVerificationSubmitted       = "verification.submitted"
	KeyVerificationApproved        = "verification.approved"
	KeyVerificationRejected        = "verification.rejected"

	// SME certification (Track B)
	KeyCertificationNotFound       = "certification.not_found"
	KeyCertificationAlreadyOpen    = "certification.already_open"
	KeyCertificationAlreadyDone    = "certification.already_certified"
	KeyCertificationTrackAPending  = "certification.track_a_pending"
	KeyCertificationNotPaid        = "certification.not_paid"
	KeyCertificationNotUnderReview = "certification.not_under_review"
	KeyCertificationNotAwaiting    = "certification.not_awaiting_info"
	KeyCertificationSubmitted      = "certification.submitted"
	KeyCertificationApproved       = "certification.approved"
	KeyCertificationRejected       = "certification.rejected"
	KeyCertificationMoreInfo       = "certification.more_info_needed"
	KeyCertificationResubmitted    = "certification.resubmitted"

	// Onboarding
	KeyOnboardingNotFound       = "onboarding.not_found"
	KeyOnboardingNotPending     = "onboarding.not_pending"
	KeyOnboardingClaimPending   = "onboarding.claim_pending"
	KeyOnboardingAlreadyClaimed = "onboarding.already_claimed"
	KeyOnboardingEmptyPatch     = "onboarding.empty_patch"
	KeyOnboardingSubmitted      = "onboarding.submitted"
	KeyOnboardingApproved       = "onboarding.approved"
	KeyOnboardingRejected       = "onboarding.rejected"

	// Appeals
	KeyAppealNotFound          = "appeal.not_found"
	KeyAppealContentNotFlagged = "appeal.content_not_flagged"
	KeyAppealAlreadyPending    = "appeal.already_pending"
	KeyAppealNotAuthor         = "appeal.not_author"
	KeyAppealNotPending        = "appeal.not_pending"
	KeyAppealSubmitted         = "appeal.submitted"
	KeyAppealApproved          = "appeal.approved"
	KeyAppealRejected          = "appeal.rejected"

	// Payments
	KeyPaymentCheckoutFailed   = "payment.checkout_failed"
	KeyPaymentInvalidSignature = "payment.invalid_signature"
	KeyPaymentWebhookProcessed = "payment.webhook_processed"

	// Storage
	KeyStorageUnavailable = "storage.unavailable"
	KeyFileInvalidType    = "file.invalid_type"

	// Notifications
	KeyNotificationNotFound = "notification.not_found"
	KeyNotificationRead     = "notification.read"

	// Admin
	KeyAdminActionSuccess = "admin.action_success"
	KeyAdminAccessDenied  = "admin.access_denied"
	KeyReviewerRequired   = "admin.reviewer_required"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
	KeyValidationTooShort = "validation.too_short"
	KeyReasonTooShort     = "validation.reason_too_short"

	// Internal
	KeyInternalError = "internal.error"
)
