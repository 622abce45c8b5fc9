package admission

import (
	"eventadmission/src/models"
	"eventadmission/src/types"
	"time"
)

func (s *EngineTestSuite) register(eventID, userID uint) *models.Registration {
	registration, err := s.Engine.Register(s.ctx, RegisterInput{EventID: eventID, UserID: userID})
	s.Require().NoError(err)
	s.Clock.Advance(time.Second)
	return registration
}

func (s *EngineTestSuite) TestThirdRegistrationIsWaitlisted() {
	event := s.newEvent(ptr(uint(2)), false)

	first := s.register(event.ID, 1)
	second := s.register(event.ID, 2)
	third := s.register(event.ID, 3)
	s.Equal(types.REGISTRATION_APPROVED, first.Status)
	s.Equal(types.REGISTRATION_APPROVED, second.Status)
	s.Equal(types.REGISTRATION_WAITLISTED, third.Status)

	_, err := s.Engine.CancelRegistration(s.ctx, first.ID, Actor{UserID: 1})
	s.Require().NoError(err)

	s.Equal(types.REGISTRATION_CANCELLED, s.registration(first.ID).Status)
	promoted := s.registration(third.ID)
	s.Equal(types.REGISTRATION_APPROVED, promoted.Status)
	s.NotNil(promoted.ApprovedAt)
	s.Equal(1, s.Notifier.count(types.NOTIFY_REGISTRATION_PROMOTED))
}

func (s *EngineTestSuite) TestWaitlistIsFIFO() {
	event := s.newEvent(ptr(uint(1)), false)

	a := s.register(event.ID, 1)
	b := s.register(event.ID, 2)
	c := s.register(event.ID, 3)
	s.Equal(types.REGISTRATION_APPROVED, a.Status)

	position, err := s.Engine.WaitlistPosition(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(1, position)
	position, err = s.Engine.WaitlistPosition(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(2, position)

	_, err = s.Engine.CancelRegistration(s.ctx, a.ID, Actor{UserID: 1})
	s.Require().NoError(err)

	s.Equal(types.REGISTRATION_APPROVED, s.registration(b.ID).Status)
	s.Equal(types.REGISTRATION_WAITLISTED, s.registration(c.ID).Status)
	position, err = s.Engine.WaitlistPosition(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(1, position)
}

func (s *EngineTestSuite) TestDuplicateRegistration() {
	event := s.newEvent(nil, false)
	first := s.register(event.ID, 1)

	_, err := s.Engine.Register(s.ctx, RegisterInput{EventID: event.ID, UserID: 1})
	s.ErrorIs(err, ErrDuplicateRegistration)

	_, err = s.Engine.CancelRegistration(s.ctx, first.ID, Actor{UserID: 1})
	s.Require().NoError(err)
	cancelled, err := s.Engine.CancelRegistration(s.ctx, first.ID, Actor{UserID: 1})
	s.Require().NoError(err)
	s.Equal(types.REGISTRATION_CANCELLED, cancelled.Status)

	again, err := s.Engine.Register(s.ctx, RegisterInput{EventID: event.ID, UserID: 1})
	s.Require().NoError(err)
	s.Equal(types.REGISTRATION_APPROVED, again.Status)
}

func (s *EngineTestSuite) TestReviewRegistration() {
	event := s.newEvent(ptr(uint(1)), true)

	a := s.register(event.ID, 1)
	b := s.register(event.ID, 2)
	c := s.register(event.ID, 3)
	s.Equal(types.REGISTRATION_PENDING, a.Status)

	approved, err := s.Engine.ReviewRegistration(s.ctx, ReviewInput{RegistrationID: a.ID, Decision: types.DECISION_APPROVE, ReviewerID: 99, Note: "welcome"})
	s.Require().NoError(err)
	s.Equal(types.REGISTRATION_APPROVED, approved.Status)
	s.Equal(uint(99), *approved.ReviewedBy)
	s.Equal("welcome", approved.ReviewNote)

	waitlisted, err := s.Engine.ReviewRegistration(s.ctx, ReviewInput{RegistrationID: b.ID, Decision: types.DECISION_APPROVE, ReviewerID: 99})
	s.Require().NoError(err)
	s.Equal(types.REGISTRATION_WAITLISTED, waitlisted.Status)

	_, err = s.Engine.ReviewRegistration(s.ctx, ReviewInput{RegistrationID: b.ID, Decision: types.DECISION_APPROVE, ReviewerID: 99})
	s.ErrorIs(err, ErrCapacityExceeded)

	rejected, err := s.Engine.ReviewRegistration(s.ctx, ReviewInput{RegistrationID: c.ID, Decision: types.DECISION_REJECT, ReviewerID: 99})
	s.Require().NoError(err)
	s.Equal(types.REGISTRATION_REJECTED, rejected.Status)
	s.Equal(1, s.Notifier.count(types.NOTIFY_REGISTRATION_REJECTED))

	_, err = s.Engine.CancelRegistration(s.ctx, c.ID, Actor{UserID: 3})
	s.ErrorIs(err, ErrInvalidStateTransition)
	_, err = s.Engine.ReviewRegistration(s.ctx, ReviewInput{RegistrationID: a.ID, Decision: types.DECISION_REJECT, ReviewerID: 99})
	s.ErrorIs(err, ErrInvalidStateTransition)

	_, err = s.Engine.CancelRegistration(s.ctx, a.ID, Actor{UserID: 2})
	s.ErrorIs(err, ErrForbidden)
	_, err = s.Engine.CancelRegistration(s.ctx, a.ID, Actor{UserID: 99, Admin: true})
	s.Require().NoError(err)
	s.Equal(types.REGISTRATION_APPROVED, s.registration(b.ID).Status)
}

func (s *EngineTestSuite) TestRegisterRequiresTicketWhenOnSale() {
	event := s.newEvent(nil, false)
	s.newTicketType(event.ID, 1000, nil)

	_, err := s.Engine.Register(s.ctx, RegisterInput{EventID: event.ID, UserID: 1})
	s.ErrorIs(err, ErrTicketRequired)
}

func (s *EngineTestSuite) TestPaidRegistrationWaitsForApproval() {
	event := s.newEvent(nil, true)
	ticketType := s.newTicketType(event.ID, 1000, nil)
	order, err := s.Engine.CreateOrder(s.ctx, OrderRequest{UserID: 1, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 1})
	s.Require().NoError(err)
	s.Equal(types.REGISTRATION_PENDING_PAYMENT, s.registrationFor(event.ID, 1).Status)

	s.pay(order)
	s.Equal(types.REGISTRATION_PENDING, s.registrationFor(event.ID, 1).Status)
}

func (s *EngineTestSuite) TestCancelPendingPaymentRegistrationCancelsOrder() {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 1000, nil)
	order, err := s.Engine.CreateOrder(s.ctx, OrderRequest{UserID: 1, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 2})
	s.Require().NoError(err)
	registration := s.registrationFor(event.ID, 1)

	cancelled, err := s.Engine.CancelRegistration(s.ctx, registration.ID, Actor{UserID: 1})
	s.Require().NoError(err)
	s.Equal(types.REGISTRATION_CANCELLED, cancelled.Status)

	stored := s.order(order.ID)
	s.Equal(types.ORDER_CANCELLED, stored.Status)
	s.Equal("registration cancelled", stored.CancelReason)
	s.Equal(uint(0), s.currentQuantity(ticketType.ID))
}

func (s *EngineTestSuite) TestAdjustCapacityPromotes() {
	event := s.newEvent(ptr(uint(1)), false)
	s.register(event.ID, 1)
	b := s.register(event.ID, 2)
	c := s.register(event.ID, 3)
	d := s.register(event.ID, 4)

	_, err := s.Engine.AdjustCapacity(s.ctx, event.ID, ptr(uint(2)))
	s.Require().NoError(err)
	s.Equal(types.REGISTRATION_APPROVED, s.registration(b.ID).Status)
	s.Equal(types.REGISTRATION_WAITLISTED, s.registration(c.ID).Status)

	updated, err := s.Engine.AdjustCapacity(s.ctx, event.ID, nil)
	s.Require().NoError(err)
	s.Nil(updated.MaxAttendees)
	s.Equal(types.REGISTRATION_APPROVED, s.registration(c.ID).Status)
	s.Equal(types.REGISTRATION_APPROVED, s.registration(d.ID).Status)

	_, err = s.Engine.AdjustCapacity(s.ctx, event.ID, ptr(uint(1)))
	s.Require().NoError(err)
	s.Equal(types.REGISTRATION_APPROVED, s.registration(d.ID).Status)

	promoted, err := s.Engine.PromoteWaitlist(s.ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(0, promoted)
}

func (s *EngineTestSuite) TestCancelEventCascades() {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 1000, nil)

	paid, err := s.Engine.CreateOrder(s.ctx, OrderRequest{UserID: 1, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 2})
	s.Require().NoError(err)
	s.pay(paid)
	invite, err := s.Engine.IssueInvite(s.ctx, paid.ID, Actor{UserID: 1})
	s.Require().NoError(err)
	unpaid, err := s.Engine.CreateOrder(s.ctx, OrderRequest{UserID: 2, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 1})
	s.Require().NoError(err)

	role, err := s.Engine.CreateVolunteerRole(s.ctx, event.ID, VolunteerRoleInput{Name: "Usher", RecruitCount: 2})
	s.Require().NoError(err)
	application, err := s.Engine.ApplyVolunteer(s.ctx, role.ID, 5, "")
	s.Require().NoError(err)

	cancelled, err := s.Engine.CancelEvent(s.ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(types.EVENT_CANCELLED, cancelled.Status)
	s.False(cancelled.RegistrationOpen)

	s.Equal(types.ORDER_CANCELLED, s.order(unpaid.ID).Status)
	s.Equal(types.ORDER_REFUND_PENDING, s.order(paid.ID).Status)
	s.Len(s.Payments.refunds, 1)

	var live int64
	s.DB.Model(&models.Registration{}).Where("event_id = ? AND status <> ?", event.ID, types.REGISTRATION_CANCELLED).Count(&live)
	s.Equal(int64(0), live)
	s.Equal(1, s.Notifier.count(types.NOTIFY_EVENT_CANCELLED))

	var storedInvite models.OrderInvite
	s.Require().NoError(s.DB.First(&storedInvite, invite.ID).Error)
	s.Equal(types.INVITE_INVALID, storedInvite.Status)

	var storedApplication models.VolunteerRegistration
	s.Require().NoError(s.DB.First(&storedApplication, application.ID).Error)
	s.Equal(types.VOLUNTEER_CANCELLED, storedApplication.Status)

	_, err = s.Engine.Register(s.ctx, RegisterInput{EventID: event.ID, UserID: 9})
	s.ErrorIs(err, ErrRegistrationClosed)

	_, err = s.Engine.ConfirmRefund(s.ctx, types.RefundCallback{RefundID: *s.order(paid.ID).RefundID, OrderID: paid.ID, Amount: 2000})
	s.Require().NoError(err)
	s.Equal(uint(0), s.currentQuantity(ticketType.ID))
}

func (s *EngineTestSuite) TestListRegistrationsAndNotifications() {
	event := s.newEvent(ptr(uint(1)), false)
	s.register(event.ID, 1)
	s.register(event.ID, 2)

	waitlisted, err := s.Engine.ListRegistrations(s.ctx, RegistrationFilter{EventID: event.ID, Status: types.REGISTRATION_WAITLISTED})
	s.Require().NoError(err)
	s.Require().Len(waitlisted, 1)
	s.Equal(uint(2), waitlisted[0].UserID)

	own, err := s.Engine.ListRegistrations(s.ctx, RegistrationFilter{UserID: 1})
	s.Require().NoError(err)
	s.Len(own, 1)

	inbox, err := s.Engine.ListNotifications(s.ctx, 2, 0)
	s.Require().NoError(err)
	s.Require().Len(inbox, 1)
	s.Equal(types.NOTIFY_REGISTRATION_WAITLISTED, inbox[0].Kind)
	s.NotNil(inbox[0].DispatchedAt)
}
