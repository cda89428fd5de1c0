// internal/services/reputation_service_test.go
package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/labtrust/trust-engine/internal/models"
)

type ReputationServiceTestSuite struct {
	storeSuite
}

func (suite *ReputationServiceTestSuite) TestRecalculatePromotesAtThreshold() {
	suite.createUser("alice", models.UserRoleStandard)
	suite.createDiscussion("alice", 40)
	suite.createDiscussion("alice", 35)
	suite.createDiscussion("alice", 30)

	change, err := suite.reputation.RecalculateReputation(suite.ctx, "alice")
	suite.Require().NoError(err)
	suite.Require().NotNil(change)

	assert.Equal(suite.T(), 0, change.OldScore)
	assert.Equal(suite.T(), 105, change.NewScore)
	assert.False(suite.T(), change.WasSME)
	assert.True(suite.T(), change.IsSME)
	assert.True(suite.T(), change.SMEChanged())

	var user models.User
	suite.reload(&user, "alice")
	assert.Equal(suite.T(), 105, user.ReputationScore)
	assert.True(suite.T(), user.IsSME)
	suite.Require().NotNil(user.BadgeType)
	assert.Equal(suite.T(), models.TrustedVoiceLabel, *user.BadgeType)

	assert.Equal(suite.T(), int64(1), suite.auditCount(ActionSMEPromoted))
	assert.Equal(suite.T(), int64(1), suite.notificationCount("alice", models.NotificationTypeSMEStatus))
}

func (suite *ReputationServiceTestSuite) TestRecalculateIsIdempotent() {
	suite.createUser("alice", models.UserRoleStandard)
	suite.createDiscussion("alice", 120)

	_, err := suite.reputation.RecalculateReputation(suite.ctx, "alice")
	suite.Require().NoError(err)

	change, err := suite.reputation.RecalculateReputation(suite.ctx, "alice")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 120, change.OldScore)
	assert.Equal(suite.T(), 120, change.NewScore)
	assert.False(suite.T(), change.SMEChanged())

	assert.Equal(suite.T(), int64(1), suite.auditCount(ActionSMEPromoted))
	assert.Equal(suite.T(), int64(1), suite.notificationCount("alice", models.NotificationTypeSMEStatus))
}

func (suite *ReputationServiceTestSuite) TestRecalculateDemotesBelowThreshold() {
	suite.createUser("alice", models.UserRoleStandard)
	discussion := suite.createDiscussion("alice", 100)

	change, err := suite.reputation.RecalculateReputation(suite.ctx, "alice")
	suite.Require().NoError(err)
	suite.Require().True(change.IsSME)

	suite.setUpvotes(discussion.ID, 99)
	change, err = suite.reputation.RecalculateReputation(suite.ctx, "alice")
	suite.Require().NoError(err)
	assert.True(suite.T(), change.WasSME)
	assert.False(suite.T(), change.IsSME)
	assert.Equal(suite.T(), 99, change.NewScore)

	var user models.User
	suite.reload(&user, "alice")
	assert.False(suite.T(), user.IsSME)
	assert.Nil(suite.T(), user.BadgeType)
	assert.Equal(suite.T(), int64(1), suite.auditCount(ActionSMEDemoted))
}

func (suite *ReputationServiceTestSuite) TestDemotionKeepsCustomBadgeType() {
	label := "Lab Partner"
	user := &models.User{ID: "alice", DisplayName: "alice", Role: models.UserRoleStandard, BadgeType: &label}
	suite.mustCreate(user)
	discussion := suite.createDiscussion("alice", 150)

	_, err := suite.reputation.RecalculateReputation(suite.ctx, "alice")
	suite.Require().NoError(err)
	suite.setUpvotes(discussion.ID, 10)
	_, err = suite.reputation.RecalculateReputation(suite.ctx, "alice")
	suite.Require().NoError(err)

	suite.reload(user, "alice")
	suite.Require().NotNil(user.BadgeType)
	assert.Equal(suite.T(), label, *user.BadgeType)
}

func (suite *ReputationServiceTestSuite) TestScoreSumsAllVotableContent() {
	suite.createUser("alice", models.UserRoleStandard)
	discussion := suite.createDiscussion("alice", 10)
	suite.mustCreate(&models.DiscussionComment{DiscussionID: discussion.ID, AuthorID: "alice", Body: "agreed", UpvoteCount: 7})
	suite.mustCreate(&models.ProductComment{ProductID: suite.createProduct("", false).ID, AuthorID: "alice", Body: "works", UpvoteCount: 3})
	suite.createUser("bob", models.UserRoleStandard)
	suite.createDiscussion("bob", 500)

	change, err := suite.reputation.RecalculateReputation(suite.ctx, "alice")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 20, change.NewScore)
	assert.False(suite.T(), change.IsSME)
}

func (suite *ReputationServiceTestSuite) TestUnknownUserIsNoop() {
	change, err := suite.reputation.RecalculateReputation(suite.ctx, "ghost")
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), change)
	assert.Equal(suite.T(), int64(0), suite.auditCount(ActionSMEPromoted))
}

func (suite *ReputationServiceTestSuite) TestCustomThreshold() {
	lenient := NewReputationService(suite.db, suite.audit, suite.notifications, 20)
	suite.smeThreshold = lenient.Threshold()
	assert.Equal(suite.T(), 20, lenient.Threshold())
	assert.Equal(suite.T(), models.SMEThreshold, NewReputationService(suite.db, suite.audit, nil, 0).Threshold())

	suite.createUser("alice", models.UserRoleStandard)
	suite.createDiscussion("alice", 25)

	change, err := lenient.RecalculateReputation(suite.ctx, "alice")
	suite.Require().NoError(err)
	assert.True(suite.T(), change.IsSME)
}

func (suite *ReputationServiceTestSuite) TestChangeWireFormat() {
	suite.createUser("alice", models.UserRoleStandard)
	suite.createDiscussion("alice", 110)

	change, err := suite.reputation.RecalculateReputation(suite.ctx, "alice")
	suite.Require().NoError(err)

	body, err := json.Marshal(change)
	suite.Require().NoError(err)
	assert.JSONEq(suite.T(), `{
		"user_id": "alice",
		"old_score": 0,
		"new_score": 110,
		"old_sme_status": false,
		"new_sme_status": true
	}`, string(body))
}

func (suite *ReputationServiceTestSuite) TestReconcileAll() {
	suite.createUser("alice", models.UserRoleStandard)
	suite.createUser("bob", models.UserRoleStandard)
	suite.createUser("carol", models.UserRoleStandard)
	suite.createDiscussion("alice", 130)
	suite.createDiscussion("bob", 12)

	processed, err := suite.reputation.ReconcileAll(suite.ctx, 2)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 3, processed)

	var alice, bob models.User
	suite.reload(&alice, "alice")
	suite.reload(&bob, "bob")
	assert.True(suite.T(), alice.IsSME)
	assert.Equal(suite.T(), 12, bob.ReputationScore)
	assert.False(suite.T(), bob.IsSME)
}

func TestReputationServiceSuite(t *testing.T) {
	suite.Run(t, new(ReputationServiceTestSuite))
}
