package admission

import (
	"eventadmission/src/models"
	"eventadmission/src/types"
	"fmt"
	"sync"
	"time"
)

func (s *EngineTestSuite) TestCreateOrder() {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 2500, ptr(uint(10)))

	order, err := s.Engine.CreateOrder(s.ctx, OrderRequest{
		UserID:       1,
		EventID:      event.ID,
		TicketTypeID: ticketType.ID,
		Quantity:     2,
		ContactEmail: "buyer@example.com",
	})
	s.Require().NoError(err)

	s.Equal(types.ORDER_PENDING, order.Status)
	s.Equal(int64(2500), order.UnitPrice)
	s.Equal(int64(5000), order.TotalAmount)
	s.Equal("usd", order.Currency)
	s.True(order.ExpiredAt.Equal(s.Clock.Now().Add(15 * time.Minute)))
	s.Equal(uint(2), s.currentQuantity(ticketType.ID))

	stored := s.order(order.ID)
	s.Require().NotNil(stored.PrepayID)
	s.Equal(fmt.Sprintf("pi_%d", order.ID), *stored.PrepayID)

	registration := s.registrationFor(event.ID, 1)
	s.Equal(types.REGISTRATION_PENDING_PAYMENT, registration.Status)
	s.Equal(order.ID, *registration.OrderID)
	s.Equal("buyer@example.com", registration.ContactEmail)
}

func (s *EngineTestSuite) TestPriceSnapshotUsesQuantityBeforeReserve() {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 1000, nil)
	_, err := s.Engine.AddPriceTier(s.ctx, ticketType.ID, 2, 1500)
	s.Require().NoError(err)

	first, err := s.Engine.CreateOrder(s.ctx, OrderRequest{UserID: 1, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 2})
	s.Require().NoError(err)
	second, err := s.Engine.CreateOrder(s.ctx, OrderRequest{UserID: 2, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 1})
	s.Require().NoError(err)

	s.Equal(int64(1000), first.UnitPrice)
	s.Equal(int64(1500), second.UnitPrice)

	_, err = s.Engine.AddPriceTier(s.ctx, ticketType.ID, 0, 100)
	s.Require().NoError(err)
	s.Equal(int64(1000), s.order(first.ID).UnitPrice)
}

func (s *EngineTestSuite) TestTwoOrdersForOneSeat() {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 1000, ptr(uint(1)))

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.Engine.CreateOrder(s.ctx, OrderRequest{
				UserID:       uint(i + 1),
				EventID:      event.ID,
				TicketTypeID: ticketType.ID,
				Quantity:     1,
			})
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range results {
		if err != nil {
			s.ErrorIs(err, ErrCapacityExceeded)
			failures++
		}
	}
	s.Equal(1, failures)

	var orders int64
	s.DB.Model(&models.Order{}).Count(&orders)
	s.Equal(int64(1), orders)
	var registrations int64
	s.DB.Model(&models.Registration{}).Count(&registrations)
	s.Equal(int64(1), registrations)
}

func (s *EngineTestSuite) TestCancelOrderTwiceReleasesOnce() {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 1000, ptr(uint(5)))
	_, _, err := s.Engine.Reserve(s.ctx, ticketType.ID, 1, s.Clock.Now().Add(time.Hour))
	s.Require().NoError(err)

	order, err := s.Engine.CreateOrder(s.ctx, OrderRequest{UserID: 1, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 2})
	s.Require().NoError(err)
	s.Equal(uint(3), s.currentQuantity(ticketType.ID))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Engine.CancelOrder(s.ctx, order.ID, Actor{UserID: 1})
		}(i)
	}
	wg.Wait()

	s.NoError(errs[0])
	s.NoError(errs[1])
	s.Equal(uint(1), s.currentQuantity(ticketType.ID))

	stored := s.order(order.ID)
	s.Equal(types.ORDER_CANCELLED, stored.Status)
	s.True(stored.CapacityReleased)

	var registration models.Registration
	s.Require().NoError(s.DB.Where("order_id = ?", order.ID).First(&registration).Error)
	s.Equal(types.REGISTRATION_CANCELLED, registration.Status)
}

func (s *EngineTestSuite) TestCancelOrderChecksOwnerAndState() {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 1000, nil)
	order, err := s.Engine.CreateOrder(s.ctx, OrderRequest{UserID: 1, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 1})
	s.Require().NoError(err)

	_, err = s.Engine.CancelOrder(s.ctx, order.ID, Actor{UserID: 2})
	s.ErrorIs(err, ErrForbidden)

	s.pay(order)
	_, err = s.Engine.CancelOrder(s.ctx, order.ID, Actor{UserID: 1})
	s.ErrorIs(err, ErrInvalidStateTransition)
	s.Equal(types.ORDER_PAID, s.order(order.ID).Status)
}

func (s *EngineTestSuite) TestFreeOrderIsPaidImmediately() {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 0, ptr(uint(10)))

	order, err := s.Engine.CreateOrder(s.ctx, OrderRequest{UserID: 1, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 1})
	s.Require().NoError(err)

	s.Equal(types.ORDER_PAID, order.Status)
	s.Require().NotNil(order.TransactionID)
	s.Equal(fmt.Sprintf("free:%d", order.ID), *order.TransactionID)
	s.Equal(0, s.Payments.payments)
	s.Equal(types.REGISTRATION_APPROVED, s.registrationFor(event.ID, 1).Status)

	var reservation models.Reservation
	s.Require().NoError(s.DB.First(&reservation, "id = ?", order.ReservationID).Error)
	s.Equal(types.RESERVATION_COMMITTED, reservation.Status)
}

func (s *EngineTestSuite) TestOrderWindowChecks() {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 1000, nil)
	req := OrderRequest{UserID: 1, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 1}

	_, err := s.Engine.SetRegistrationWindow(s.ctx, event.ID, false, nil)
	s.Require().NoError(err)
	_, err = s.Engine.CreateOrder(s.ctx, req)
	s.ErrorIs(err, ErrRegistrationClosed)

	deadline := s.Clock.Now().Add(time.Hour)
	_, err = s.Engine.SetRegistrationWindow(s.ctx, event.ID, true, &deadline)
	s.Require().NoError(err)
	_, err = s.Engine.CreateOrder(s.ctx, req)
	s.Require().NoError(err)

	s.Clock.Advance(2 * time.Hour)
	req.UserID = 2
	_, err = s.Engine.CreateOrder(s.ctx, req)
	s.ErrorIs(err, ErrDeadlinePassed)
	s.Equal(uint(1), s.currentQuantity(ticketType.ID))
}

func (s *EngineTestSuite) TestSecondOrderForSameUserIsDuplicate() {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 1000, nil)
	req := OrderRequest{UserID: 1, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 1}

	_, err := s.Engine.CreateOrder(s.ctx, req)
	s.Require().NoError(err)
	_, err = s.Engine.CreateOrder(s.ctx, req)
	s.ErrorIs(err, ErrDuplicateRegistration)
	s.Equal(uint(1), s.currentQuantity(ticketType.ID))
}
