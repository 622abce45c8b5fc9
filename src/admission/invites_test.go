package admission

import (
	"eventadmission/src/models"
	"eventadmission/src/types"
	"sync"
	"time"
)

func (s *EngineTestSuite) paidOrder(userID uint, quantity uint) (*models.Event, *models.Order) {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 1000, nil)
	order, err := s.Engine.CreateOrder(s.ctx, OrderRequest{UserID: userID, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: quantity})
	s.Require().NoError(err)
	s.pay(order)
	return event, order
}

func (s *EngineTestSuite) TestIssueInviteLimitImplicit() {
	_, order := s.paidOrder(1, 2)

	invite, err := s.Engine.IssueInvite(s.ctx, order.ID, Actor{UserID: 1})
	s.Require().NoError(err)
	s.Equal(types.INVITE_PENDING, invite.Status)
	s.Len(invite.Code, 32)
	s.NotNil(invite.ExpiresAt)

	_, err = s.Engine.IssueInvite(s.ctx, order.ID, Actor{UserID: 1})
	s.ErrorIs(err, ErrInviteLimitReached)

	_, err = s.Engine.IssueInvite(s.ctx, order.ID, Actor{UserID: 2})
	s.ErrorIs(err, ErrForbidden)

	invites, err := s.Engine.ListInvites(s.ctx, order.ID, Actor{UserID: 1})
	s.Require().NoError(err)
	s.Len(invites, 1)
}

func (s *EngineTestSuite) TestIssueInviteLimitExplicit() {
	s.Engine.policy.SeatPolicy = types.SEAT_POLICY_EXPLICIT
	event, order := s.paidOrder(1, 2)

	var registrations int64
	s.DB.Model(&models.Registration{}).Where("event_id = ?", event.ID).Count(&registrations)
	s.Equal(int64(0), registrations)

	own, err := s.Engine.IssueInvite(s.ctx, order.ID, Actor{UserID: 1})
	s.Require().NoError(err)
	_, err = s.Engine.IssueInvite(s.ctx, order.ID, Actor{UserID: 1})
	s.Require().NoError(err)
	_, err = s.Engine.IssueInvite(s.ctx, order.ID, Actor{UserID: 1})
	s.ErrorIs(err, ErrInviteLimitReached)

	registration, err := s.Engine.RedeemInvite(s.ctx, own.Code, 1, "")
	s.Require().NoError(err)
	s.Equal(types.REGISTRATION_APPROVED, registration.Status)
}

func (s *EngineTestSuite) TestIssueInviteRequiresPaidOrder() {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 1000, nil)
	order, err := s.Engine.CreateOrder(s.ctx, OrderRequest{UserID: 1, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 3})
	s.Require().NoError(err)

	_, err = s.Engine.IssueInvite(s.ctx, order.ID, Actor{UserID: 1})
	s.ErrorIs(err, ErrInvalidStateTransition)
}

func (s *EngineTestSuite) TestConcurrentRedeem() {
	event, order := s.paidOrder(1, 2)
	invite, err := s.Engine.IssueInvite(s.ctx, order.ID, Actor{UserID: 1})
	s.Require().NoError(err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Engine.RedeemInvite(s.ctx, invite.Code, uint(30+i), "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, ErrAlreadyRedeemed)
	}
	s.Equal(1, succeeded)

	var registrations int64
	s.DB.Model(&models.Registration{}).Where("order_invite_id = ?", invite.ID).Count(&registrations)
	s.Equal(int64(1), registrations)

	var stored models.OrderInvite
	s.Require().NoError(s.DB.First(&stored, invite.ID).Error)
	s.Equal(types.INVITE_REDEEMED, stored.Status)
	s.NotNil(stored.RedeemedBy)
	s.NotNil(stored.RedeemedAt)

	var attendees int64
	s.DB.Model(&models.Registration{}).Where("event_id = ? AND status = ?", event.ID, types.REGISTRATION_APPROVED).Count(&attendees)
	s.Equal(int64(2), attendees)
}

func (s *EngineTestSuite) TestRedeemExpiredInviteInvalidatesIt() {
	_, order := s.paidOrder(1, 2)
	invite, err := s.Engine.IssueInvite(s.ctx, order.ID, Actor{UserID: 1})
	s.Require().NoError(err)

	s.Clock.Advance(31 * 24 * time.Hour)
	_, err = s.Engine.RedeemInvite(s.ctx, invite.Code, 5, "")
	s.ErrorIs(err, ErrInvalidInvite)

	var stored models.OrderInvite
	s.Require().NoError(s.DB.First(&stored, invite.ID).Error)
	s.Equal(types.INVITE_INVALID, stored.Status)
	s.NotNil(stored.InvalidatedAt)

	_, err = s.Engine.RedeemInvite(s.ctx, "no-such-code", 5, "")
	s.ErrorIs(err, ErrInvalidInvite)
}

func (s *EngineTestSuite) TestRedeemByExistingAttendeeIsDuplicate() {
	_, order := s.paidOrder(1, 2)
	invite, err := s.Engine.IssueInvite(s.ctx, order.ID, Actor{UserID: 1})
	s.Require().NoError(err)

	_, err = s.Engine.RedeemInvite(s.ctx, invite.Code, 1, "")
	s.ErrorIs(err, ErrDuplicateRegistration)

	var stored models.OrderInvite
	s.Require().NoError(s.DB.First(&stored, invite.ID).Error)
	s.Equal(types.INVITE_PENDING, stored.Status)

	_, err = s.Engine.RedeemInvite(s.ctx, invite.Code, 2, "guest@example.com")
	s.NoError(err)
	_, err = s.Engine.RedeemInvite(s.ctx, invite.Code, 3, "")
	s.ErrorIs(err, ErrAlreadyRedeemed)
}
