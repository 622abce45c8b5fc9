package admission

import (
	"eventadmission/src/models"
	"eventadmission/src/types"
)

func (s *EngineTestSuite) TestVolunteerAdmission() {
	event := s.newEvent(nil, false)
	role, err := s.Engine.CreateVolunteerRole(s.ctx, event.ID, VolunteerRoleInput{Name: "Registration desk", RecruitCount: 1, CPReward: 50})
	s.Require().NoError(err)

	first, err := s.Engine.ApplyVolunteer(s.ctx, role.ID, 1, "I can help all day")
	s.Require().NoError(err)
	s.Equal(types.VOLUNTEER_APPLIED, first.Status)
	second, err := s.Engine.ApplyVolunteer(s.ctx, role.ID, 2, "")
	s.Require().NoError(err)

	_, err = s.Engine.ApplyVolunteer(s.ctx, role.ID, 1, "")
	s.ErrorIs(err, ErrDuplicateApplication)

	approved, err := s.Engine.ReviewApplication(s.ctx, VolunteerReviewInput{ApplicationID: first.ID, Decision: types.DECISION_APPROVE, ReviewerID: 99})
	s.Require().NoError(err)
	s.Equal(types.VOLUNTEER_APPROVED, approved.Status)

	_, err = s.Engine.ReviewApplication(s.ctx, VolunteerReviewInput{ApplicationID: second.ID, Decision: types.DECISION_APPROVE, ReviewerID: 99})
	s.ErrorIs(err, ErrRoleFull)

	rejected, err := s.Engine.ReviewApplication(s.ctx, VolunteerReviewInput{ApplicationID: second.ID, Decision: types.DECISION_REJECT, ReviewerID: 99})
	s.Require().NoError(err)
	s.Equal(types.VOLUNTEER_REJECTED, rejected.Status)
	s.Equal(1, s.Notifier.count(types.NOTIFY_VOLUNTEER_APPROVED))
	s.Equal(1, s.Notifier.count(types.NOTIFY_VOLUNTEER_REJECTED))
}

func (s *EngineTestSuite) TestVolunteerRewardIsIssuedOnce() {
	event := s.newEvent(nil, false)
	role, err := s.Engine.CreateVolunteerRole(s.ctx, event.ID, VolunteerRoleInput{Name: "Stage crew", RecruitCount: 3, CPReward: 50})
	s.Require().NoError(err)
	application, err := s.Engine.ApplyVolunteer(s.ctx, role.ID, 7, "")
	s.Require().NoError(err)

	_, err = s.Engine.CheckIn(s.ctx, application.ID)
	s.ErrorIs(err, ErrInvalidStateTransition)

	_, err = s.Engine.ReviewApplication(s.ctx, VolunteerReviewInput{ApplicationID: application.ID, Decision: types.DECISION_APPROVE, ReviewerID: 99})
	s.Require().NoError(err)

	_, err = s.Engine.Complete(s.ctx, application.ID)
	s.ErrorIs(err, ErrNotCheckedIn)
	_, err = s.Engine.AwardCP(s.ctx, application.ID)
	s.ErrorIs(err, ErrNotCompleted)

	checkedIn, err := s.Engine.CheckIn(s.ctx, application.ID)
	s.Require().NoError(err)
	s.True(checkedIn.CheckedIn)
	s.NotNil(checkedIn.CheckedInAt)
	_, err = s.Engine.CheckIn(s.ctx, application.ID)
	s.NoError(err)

	completed, err := s.Engine.Complete(s.ctx, application.ID)
	s.Require().NoError(err)
	s.True(completed.Completed)

	for i := 0; i < 3; i++ {
		awarded, err := s.Engine.AwardCP(s.ctx, application.ID)
		s.Require().NoError(err)
		s.True(awarded.CPAwarded)
	}

	var entries []models.RewardLedgerEntry
	s.Require().NoError(s.DB.Where("user_id = ?", 7).Find(&entries).Error)
	s.Require().Len(entries, 1)
	s.Equal(int64(50), entries[0].Amount)
	s.Equal(rewardSourceVolunteer, entries[0].SourceType)
	s.Equal(application.ID, entries[0].SourceID)
	s.Equal(1, s.Notifier.count(types.NOTIFY_CP_AWARDED))
}

func (s *EngineTestSuite) TestVolunteerCancelAndReapply() {
	event := s.newEvent(nil, false)
	role, err := s.Engine.CreateVolunteerRole(s.ctx, event.ID, VolunteerRoleInput{Name: "Photographer", RecruitCount: 1})
	s.Require().NoError(err)
	application, err := s.Engine.ApplyVolunteer(s.ctx, role.ID, 4, "")
	s.Require().NoError(err)

	_, err = s.Engine.CancelApplication(s.ctx, application.ID, Actor{UserID: 5})
	s.ErrorIs(err, ErrForbidden)

	cancelled, err := s.Engine.CancelApplication(s.ctx, application.ID, Actor{UserID: 4})
	s.Require().NoError(err)
	s.Equal(types.VOLUNTEER_CANCELLED, cancelled.Status)
	_, err = s.Engine.CancelApplication(s.ctx, application.ID, Actor{UserID: 4})
	s.NoError(err)

	_, err = s.Engine.ApplyVolunteer(s.ctx, role.ID, 4, "")
	s.NoError(err)

	applications, err := s.Engine.ListVolunteerRegistrations(s.ctx, role.ID)
	s.Require().NoError(err)
	s.Len(applications, 2)
}
