package admission

import (
	"eventadmission/src/models"
	"eventadmission/src/types"
	"fmt"
	"sync"
	"time"
)

func (s *EngineTestSuite) TestPaymentCallbackReplay() {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 1000, ptr(uint(10)))
	order, err := s.Engine.CreateOrder(s.ctx, OrderRequest{UserID: 1, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 2})
	s.Require().NoError(err)

	first := s.pay(order)
	s.False(first.Replayed)
	s.Equal(types.ORDER_PAID, first.Order.Status)

	second := s.pay(order)
	s.True(second.Replayed)
	s.Equal(types.ORDER_PAID, second.Order.Status)

	stored := s.order(order.ID)
	s.Equal(fmt.Sprintf("txn_%d", order.ID), *stored.TransactionID)
	s.NotNil(stored.PaidAt)
	s.Equal(uint(2), s.currentQuantity(ticketType.ID))
	s.Equal(1, s.Notifier.count(types.NOTIFY_ORDER_PAID))
	s.Equal(1, s.Notifier.count(types.NOTIFY_REGISTRATION_APPROVED))

	var logged int64
	s.DB.Model(&models.Transaction{}).Where("order_id = ?", order.ID).Count(&logged)
	s.Equal(int64(1), logged)

	var reservation models.Reservation
	s.Require().NoError(s.DB.First(&reservation, "id = ?", order.ReservationID).Error)
	s.Equal(types.RESERVATION_COMMITTED, reservation.Status)
}

func (s *EngineTestSuite) TestConcurrentPaymentCallbacks() {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 1000, nil)
	order, err := s.Engine.CreateOrder(s.ctx, OrderRequest{UserID: 1, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 1})
	s.Require().NoError(err)

	var wg sync.WaitGroup
	results := make([]*PaymentResult, 3)
	errs := make([]error, 3)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Engine.ConfirmPayment(s.ctx, types.PaymentCallback{
				TransactionID: "txn_dup",
				OrderID:       order.ID,
				Outcome:       types.PAYMENT_SUCCEEDED,
				Amount:        order.TotalAmount,
			})
		}(i)
	}
	wg.Wait()

	replays := 0
	for i, result := range results {
		s.Require().NoError(errs[i])
		if result.Replayed {
			replays++
		}
	}
	s.Equal(2, replays)
	s.Equal(1, s.Notifier.count(types.NOTIFY_ORDER_PAID))
}

func (s *EngineTestSuite) TestPaymentAmountMismatch() {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 1000, nil)
	order, err := s.Engine.CreateOrder(s.ctx, OrderRequest{UserID: 1, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 1})
	s.Require().NoError(err)

	_, err = s.Engine.ConfirmPayment(s.ctx, types.PaymentCallback{
		TransactionID: "txn_short",
		OrderID:       order.ID,
		Outcome:       types.PAYMENT_SUCCEEDED,
		Amount:        999,
	})
	s.ErrorIs(err, ErrAmountMismatch)
	s.Equal(types.ORDER_PENDING, s.order(order.ID).Status)
}

func (s *EngineTestSuite) TestFailedPaymentKeepsOrderPending() {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 1000, nil)
	order, err := s.Engine.CreateOrder(s.ctx, OrderRequest{UserID: 1, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 1})
	s.Require().NoError(err)

	result, err := s.Engine.ConfirmPayment(s.ctx, types.PaymentCallback{
		TransactionID: "txn_declined",
		OrderID:       order.ID,
		Outcome:       types.PAYMENT_FAILED,
		Amount:        1000,
	})
	s.Require().NoError(err)
	s.Equal(types.ORDER_PENDING, result.Order.Status)

	var logged models.Transaction
	s.Require().NoError(s.DB.Where("reference_id = ?", "txn_declined").First(&logged).Error)
	s.Equal(string(types.PAYMENT_FAILED), logged.Outcome)

	s.pay(order)
	s.Equal(types.ORDER_PAID, s.order(order.ID).Status)
}

func (s *EngineTestSuite) transactions(reference string) []models.Transaction {
	var records []models.Transaction
	s.Require().NoError(s.DB.Where("reference_id = ?", reference).Find(&records).Error)
	return records
}

func (s *EngineTestSuite) TestPaymentForCancelledOrderIsRejected() {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 1000, nil)
	order, err := s.Engine.CreateOrder(s.ctx, OrderRequest{UserID: 1, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 1})
	s.Require().NoError(err)
	s.Clock.Advance(time.Hour)
	expired, err := s.Engine.SweepExpiredOrders(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, expired)

	late := types.PaymentCallback{
		TransactionID: "txn_late",
		OrderID:       order.ID,
		Outcome:       types.PAYMENT_SUCCEEDED,
		Amount:        1000,
	}
	_, err = s.Engine.ConfirmPayment(s.ctx, late)
	s.ErrorIs(err, ErrInvalidStateTransition)
	s.Equal(types.ORDER_CANCELLED, s.order(order.ID).Status)

	records := s.transactions("txn_late")
	s.Require().Len(records, 1)
	s.Equal(order.ID, records[0].OrderID)
	s.Equal(fmt.Sprintf("re_%d", order.ID), records[0].Metadata["refund_id"])

	s.Require().Len(s.Payments.refunds, 1)
	s.Equal("txn_late", s.Payments.refunds[0].TransactionID)
	s.Equal(int64(1000), s.Payments.refunds[0].Amount)

	_, err = s.Engine.ConfirmPayment(s.ctx, late)
	s.ErrorIs(err, ErrInvalidStateTransition)
	s.Len(s.transactions("txn_late"), 1)
	s.Len(s.Payments.refunds, 1)

	result, err := s.Engine.ConfirmRefund(s.ctx, types.RefundCallback{
		RefundID:      fmt.Sprintf("re_%d", order.ID),
		OrderID:       order.ID,
		Amount:        1000,
		TransactionID: "txn_late",
	})
	s.Require().NoError(err)
	s.True(result.Replayed)
	s.Equal(types.ORDER_CANCELLED, s.order(order.ID).Status)
	s.Equal(uint(0), s.currentQuantity(ticketType.ID))
}

func (s *EngineTestSuite) TestSecondTransactionForPaidOrderIsRejected() {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 1000, nil)
	order, err := s.Engine.CreateOrder(s.ctx, OrderRequest{UserID: 1, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 1})
	s.Require().NoError(err)
	s.pay(order)

	_, err = s.Engine.ConfirmPayment(s.ctx, types.PaymentCallback{
		TransactionID: "txn_other",
		OrderID:       order.ID,
		Outcome:       types.PAYMENT_SUCCEEDED,
		Amount:        1000,
	})
	s.ErrorIs(err, ErrInvalidStateTransition)
	s.Len(s.transactions("txn_other"), 1)
	s.Require().Len(s.Payments.refunds, 1)
	s.Equal("txn_other", s.Payments.refunds[0].TransactionID)

	// the duplicate charge's refund must not unwind the order paid by txn_<id>
	result, err := s.Engine.ConfirmRefund(s.ctx, types.RefundCallback{
		RefundID:      "re_duplicate",
		OrderID:       order.ID,
		Amount:        1000,
		TransactionID: "txn_other",
	})
	s.Require().NoError(err)
	s.True(result.Replayed)
	stored := s.order(order.ID)
	s.Equal(types.ORDER_PAID, stored.Status)
	s.False(stored.CapacityReleased)
	s.Equal(uint(1), s.currentQuantity(ticketType.ID))
}

func (s *EngineTestSuite) TestInitiatePaymentOnlyForPendingOrders() {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 1000, nil)
	order, err := s.Engine.CreateOrder(s.ctx, OrderRequest{UserID: 1, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 1})
	s.Require().NoError(err)

	_, err = s.Engine.InitiatePayment(s.ctx, order.ID, Actor{UserID: 1})
	s.NoError(err)
	s.Equal(2, s.Payments.payments)

	_, err = s.Engine.InitiatePayment(s.ctx, order.ID, Actor{UserID: 9})
	s.ErrorIs(err, ErrForbidden)

	s.pay(order)
	_, err = s.Engine.InitiatePayment(s.ctx, order.ID, Actor{UserID: 1})
	s.ErrorIs(err, ErrInvalidStateTransition)
}

func (s *EngineTestSuite) TestSweepExpiresUnpaidOrders() {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 1000, ptr(uint(5)))
	order, err := s.Engine.CreateOrder(s.ctx, OrderRequest{UserID: 1, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 3})
	s.Require().NoError(err)

	s.Clock.Advance(10 * time.Minute)
	swept, err := s.Engine.SweepExpiredOrders(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, swept)

	s.Clock.Advance(6 * time.Minute)
	swept, err = s.Engine.SweepExpiredOrders(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, swept)

	stored := s.order(order.ID)
	s.Equal(types.ORDER_CANCELLED, stored.Status)
	s.Equal("expired", stored.CancelReason)
	s.Equal(uint(0), s.currentQuantity(ticketType.ID))
	s.Equal(1, s.Notifier.count(types.NOTIFY_ORDER_EXPIRED))

	var registration models.Registration
	s.Require().NoError(s.DB.Where("order_id = ?", order.ID).First(&registration).Error)
	s.Equal(types.REGISTRATION_CANCELLED, registration.Status)

	swept, err = s.Engine.SweepExpiredOrders(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, swept)
	s.Equal(uint(0), s.currentQuantity(ticketType.ID))
}

func (s *EngineTestSuite) TestSweepNeverTouchesPaidOrders() {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 1000, nil)
	order, err := s.Engine.CreateOrder(s.ctx, OrderRequest{UserID: 1, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 1})
	s.Require().NoError(err)
	s.pay(order)

	s.Clock.Advance(time.Hour)
	swept, err := s.Engine.SweepExpiredOrders(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, swept)
	s.Equal(types.ORDER_PAID, s.order(order.ID).Status)
	s.Equal(uint(1), s.currentQuantity(ticketType.ID))
}

func (s *EngineTestSuite) TestPaymentRacingSweep() {
	event := s.newEvent(nil, false)
	ticketType := s.newTicketType(event.ID, 1000, nil)
	order, err := s.Engine.CreateOrder(s.ctx, OrderRequest{UserID: 1, EventID: event.ID, TicketTypeID: ticketType.ID, Quantity: 1})
	s.Require().NoError(err)
	s.Clock.Advance(20 * time.Minute)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.Engine.ConfirmPayment(s.ctx, types.PaymentCallback{
			TransactionID: "txn_race",
			OrderID:       order.ID,
			Outcome:       types.PAYMENT_SUCCEEDED,
			Amount:        1000,
		})
	}()
	go func() {
		defer wg.Done()
		s.Engine.SweepExpiredOrders(s.ctx)
	}()
	wg.Wait()

	stored := s.order(order.ID)
	switch stored.Status {
	case types.ORDER_PAID:
		s.False(stored.CapacityReleased)
		s.Equal(uint(1), s.currentQuantity(ticketType.ID))
	case types.ORDER_CANCELLED:
		s.True(stored.CapacityReleased)
		s.Equal(uint(0), s.currentQuantity(ticketType.ID))
		s.Len(s.Payments.refunds, 1)
	default:
		s.Failf("unexpected order status", "%s", stored.Status)
	}
}
