// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labtrust/trust-engine/internal/i18n"
)

// ErrorKind classifies a service failure. Handlers translate kinds into
// HTTP status codes.
type ErrorKind string

const (
	KindUnauthorized       ErrorKind = "UNAUTHORIZED"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindPreconditionFailed ErrorKind = "PRECONDITION_FAILED"
	KindValidationFailed   ErrorKind = "VALIDATION_FAILED"
	KindExternalDependency ErrorKind = "EXTERNAL_DEPENDENCY_FAILED"
)

// ServiceError carries a kind, an i18n message key, and an optional cause.
type ServiceError struct {
	Kind    ErrorKind
	Key     string
	Message string
	Details interface{}
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is matches another ServiceError with the same kind and key, so the
// package-level sentinels work with errors.Is even after wrapping.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Key == t.Key
}

func (e *ServiceError) HTTPStatus() int {
	switch e.Kind {
	case KindUnauthorized:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindPreconditionFailed:
		return http.StatusConflict
	case KindValidationFailed:
		return http.StatusUnprocessableEntity
	case KindExternalDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (e *ServiceError) ErrorCode() string         { return string(e.Kind) }
func (e *ServiceError) MessageKey() string        { return e.Key }
func (e *ServiceError) ErrorDetails() interface{} { return e.Details }

func newError(kind ErrorKind, key, message string) *ServiceError {
	return &ServiceError{Kind: kind, Key: key, Message: message}
}

func NewValidationError(key, message string, details interface{}) *ServiceError {
	return &ServiceError{Kind: KindValidationFailed, Key: key, Message: message, Details: details}
}

func NewExternalDependencyError(key, message string, err error) *ServiceError {
	return &ServiceError{Kind: KindExternalDependency, Key: key, Message: message, Err: err}
}

// IsKind reports whether err is a ServiceError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Kind == kind
}

var (
	ErrUnauthorized     = newError(KindUnauthorized, i18n.KeyAuthForbidden, "actor is not permitted to perform this action")
	ErrAdminRequired    = newError(KindUnauthorized, i18n.KeyAdminAccessDenied, "admin access required")
	ErrReviewerRequired = newError(KindUnauthorized, i18n.KeyReviewerRequired, "reviewer access required")
	ErrNotBrandOwner    = newError(KindUnauthorized, i18n.KeyProductNotOwner, "actor is not the brand owner of this product")
	ErrNotContentAuthor = newError(KindUnauthorized, i18n.KeyAppealNotAuthor, "only the author can appeal this content")

	ErrUserNotFound          = newError(KindNotFound, i18n.KeyUserNotFound, "user not found")
	ErrProductNotFound       = newError(KindNotFound, i18n.KeyProductNotFound, "product not found")
	ErrContentNotFound       = newError(KindNotFound, i18n.KeyContentNotFound, "content not found")
	ErrVoteNotFound          = newError(KindNotFound, i18n.KeyVoteNotFound, "vote not found")
	ErrVerificationNotFound  = newError(KindNotFound, i18n.KeyVerificationNotFound, "verification request not found")
	ErrCertificationNotFound = newError(KindNotFound, i18n.KeyCertificationNotFound, "certification request not found")
	ErrOnboardingNotFound    = newError(KindNotFound, i18n.KeyOnboardingNotFound, "onboarding request not found")
	ErrAppealNotFound        = newError(KindNotFound, i18n.KeyAppealNotFound, "appeal not found")
	ErrNotificationNotFound  = newError(KindNotFound, i18n.KeyNotificationNotFound, "notification not found")

	ErrVoteAlreadyCast             = newError(KindPreconditionFailed, i18n.KeyVoteAlreadyCast, "vote already cast")
	ErrSelfVote                    = newError(KindPreconditionFailed, i18n.KeyVoteSelf, "cannot vote on own content")
	ErrProductOwnedByAnother       = newError(KindPreconditionFailed, i18n.KeyProductOwnedByAnother, "product is owned by another brand")
	ErrProductNotVerified          = newError(KindPreconditionFailed, i18n.KeyProductNotVerified, "product has not completed brand verification")
	ErrVerificationAlreadyActive   = newError(KindPreconditionFailed, i18n.KeyVerificationAlreadyActive, "an active verification already exists for this product")
	ErrVerificationNotPending      = newError(KindPreconditionFailed, i18n.KeyVerificationNotPending, "verification is not pending")
	ErrSubscriptionNotActive       = newError(KindPreconditionFailed, i18n.KeyVerificationPaymentRequired, "subscription is not active")
	ErrCertificationAlreadyOpen    = newError(KindPreconditionFailed, i18n.KeyCertificationAlreadyOpen, "an open certification already exists for this product")
	ErrAlreadyCertified            = newError(KindPreconditionFailed, i18n.KeyCertificationAlreadyDone, "product is already SME certified")
	ErrTrackANotApproved           = newError(KindPreconditionFailed, i18n.KeyCertificationTrackAPending, "brand verification is not approved")
	ErrCertificationNotPaid        = newError(KindPreconditionFailed, i18n.KeyCertificationNotPaid, "certification fee has not been paid")
	ErrCertificationNotUnderReview = newError(KindPreconditionFailed, i18n.KeyCertificationNotUnderReview, "certification is not under review")
	ErrCertificationNotAwaiting    = newError(KindPreconditionFailed, i18n.KeyCertificationNotAwaiting, "certification is not awaiting more information")
	ErrOnboardingNotPending        = newError(KindPreconditionFailed, i18n.KeyOnboardingNotPending, "onboarding request is not pending")
	ErrClaimAlreadyPending         = newError(KindPreconditionFailed, i18n.KeyOnboardingClaimPending, "a claim for this product is already pending")
	ErrProductAlreadyClaimed       = newError(KindPreconditionFailed, i18n.KeyOnboardingAlreadyClaimed, "product has already been claimed")
	ErrContentNotFlagged           = newError(KindPreconditionFailed, i18n.KeyAppealContentNotFlagged, "content is not flagged")
	ErrAppealAlreadyPending        = newError(KindPreconditionFailed, i18n.KeyAppealAlreadyPending, "an appeal is already pending for this content")
	ErrAppealNotPending            = newError(KindPreconditionFailed, i18n.KeyAppealNotPending, "appeal is not pending")

	ErrInvalidContentType = newError(KindValidationFailed, i18n.KeyContentTypeInvalid, "unsupported content type")
	ErrEmptyPatch         = newError(KindValidationFailed, i18n.KeyOnboardingEmptyPatch, "patch does not change any field")
	ErrInvalidSignature   = newError(KindValidationFailed, i18n.KeyPaymentInvalidSignature, "invalid webhook signature")
	ErrInvalidFileType    = newError(KindValidationFailed, i18n.KeyFileInvalidType, "unsupported evidence file type")
	ErrStorageUnavailable = newError(KindExternalDependency, i18n.KeyStorageUnavailable, "evidence storage is not configured")
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID  string
	IsAdmin bool
}

func (a Actor) Authenticated() bool {
	return a.UserID != ""
}
