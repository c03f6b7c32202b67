package service

import (
	bookingserrors "carrental/internal/bookings/errors"
	"carrental/internal/bookings/lifecycle"
	"carrental/internal/events"
	paymentserrors "carrental/internal/payments/errors"
	"carrental/internal/payments/repository"
	"carrental/internal/payments/validator"
	"carrental/pkg/auth"
	"carrental/pkg/config"
	apperrors "carrental/pkg/errors"
	"carrental/pkg/model"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

type PaymentService interface {
	Create(ctx context.Context, actor *auth.Actor, req *model.PaymentRequest) (*model.Payment, error)
	GetByID(ctx context.Context, actor *auth.Actor, id string) (*model.Payment, error)
	List(ctx context.Context, actor *auth.Actor, filter model.PaymentFilter, limit int, offset int64) ([]*model.Payment, int64, error)
	UpdateStatus(ctx context.Context, actor *auth.Actor, id string, update *model.PaymentStatusUpdate) (*model.Payment, error)
}

type BookingStore interface {
	FindByID(ctx context.Context, id string) (*model.Booking, error)
}

type paymentService struct {
	repo      repository.PaymentRepository
	bookings  BookingStore
	events    events.Publisher
	validator *validator.PaymentValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewPaymentService(
	repo repository.PaymentRepository,
	bookings BookingStore,
	publisher events.Publisher,
	validator *validator.PaymentValidator,
	cfg *config.Config,
) PaymentService {
	return &paymentService{
		repo:      repo,
		bookings:  bookings,
		events:    publisher,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Create records a pending payment for the booking's full total. Only the
// booking's owner or a payments manager may pay, and only while the booking
// can still be fulfilled.
func (s *paymentService) Create(ctx context.Context, actor *auth.Actor, req *model.PaymentRequest) (*model.Payment, error) {
	if err := auth.Authorize(actor, auth.PaymentsCreate, ""); err != nil {
		return nil, err
	}

	req.BookingID = strings.TrimSpace(req.BookingID)
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	if err := s.validator.ValidateRequest(req); err != nil {
		s.cfg.Log.Warn("Payment request validation failed", "user_id", actor.UserID, "error", err)
		return nil, apperrors.Validation("Invalid payment input", map[string]any{"error": err.Error()})
	}

	booking, err := s.findBooking(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(actor, auth.PaymentsManage, booking.UserID); err != nil {
		s.cfg.Log.Warn("Payment for foreign booking denied", "booking_id", booking.ID, "user_id", actor.UserID)
		return nil, err
	}
	if lifecycle.IsTerminal(booking.Status) {
		return nil, apperrors.InvalidState(
			fmt.Sprintf("Cannot pay for a %s booking", booking.Status),
			booking.Status, booking.Status,
		)
	}

	existing, err := s.repo.FindByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, apperrors.Internal("Failed to check existing payments", err)
	}
	for _, p := range existing {
		if p.Status == config.PaymentCompleted {
			return nil, apperrors.Conflict("Booking is already paid")
		}
	}

	payment := &model.Payment{
		BookingID:     booking.ID,
		UserID:        booking.UserID,
		Amount:        booking.TotalPrice,
		Method:        req.PaymentMethod,
		Status:        config.PaymentPending,
		TransactionID: req.TransactionID,
	}
	if err := s.validate(payment); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		if errors.Is(err, paymentserrors.ErrDuplicateTransaction) {
			return nil, apperrors.Conflict("Transaction ID already recorded")
		}
		s.cfg.Log.Error("Failed to create payment", "booking_id", booking.ID, "error", err)
		return nil, apperrors.Internal("Failed to create payment", err)
	}

	s.cfg.Log.Info("Payment created successfully",
		"id", payment.ID,
		"booking_id", payment.BookingID,
		"amount", payment.Amount,
		"method", payment.Method,
	)
	s.events.Publish(ctx, events.New(events.PaymentCreated, payment.BookingID, payment))
	return payment, nil
}

func (s *paymentService) GetByID(ctx context.Context, actor *auth.Actor, id string) (*model.Payment, error) {
	payment, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(actor, auth.PaymentsManage, payment.UserID); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *paymentService) List(ctx context.Context, actor *auth.Actor, filter model.PaymentFilter, limit int, offset int64) ([]*model.Payment, int64, error) {
	if actor == nil {
		return nil, 0, apperrors.Unauthorized("Authentication required")
	}
	if !actor.Can(auth.PaymentsManage) {
		filter.UserID = actor.UserID
	}
	if filter.Status != "" && !slices.Contains(config.PaymentStatuses, filter.Status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status filter: %s", filter.Status))
	}

	var count int64
	var payments []*model.Payment
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count payments", "error", errCount)
			errCount = apperrors.Internal("Failed to count payments", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		payments, errFind = s.repo.FindAll(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list payments", "limit", limit, "offset", offset, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve payments", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return payments, count, nil
}

func (s *paymentService) UpdateStatus(ctx context.Context, actor *auth.Actor, id string, update *model.PaymentStatusUpdate) (*model.Payment, error) {
	if err := auth.Authorize(actor, auth.PaymentsManage, ""); err != nil {
		return nil, err
	}

	update.TransactionID = strings.TrimSpace(update.TransactionID)
	if err := s.validator.ValidateStatusUpdate(update); err != nil {
		s.cfg.Log.Warn("Payment status validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid payment status", map[string]any{"error": err.Error()})
	}

	payment, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !validator.CanTransition(payment.Status, update.Status) {
		return nil, apperrors.InvalidState(
			fmt.Sprintf("Cannot change payment status from %s to %s", payment.Status, update.Status),
			payment.Status, update.Status,
		)
	}
	// A payment on a finished booking never becomes completed.
	if update.Status == config.PaymentCompleted {
		booking, err := s.findBooking(ctx, payment.BookingID)
		if err != nil {
			return nil, err
		}
		if lifecycle.IsTerminal(booking.Status) {
			s.cfg.Log.Warn("Payment completion on finished booking rejected", "id", id, "booking_id", booking.ID, "booking_status", booking.Status)
			return nil, apperrors.InvalidState(
				fmt.Sprintf("Cannot complete a payment for a %s booking", booking.Status),
				payment.Status, update.Status,
			)
		}
	}

	previous := payment.Status
	payment.Status = update.Status
	if update.TransactionID != "" {
		payment.TransactionID = update.TransactionID
	}
	if update.Status == config.PaymentCompleted {
		paidAt := s.now().UTC().Truncate(time.Millisecond)
		payment.PaidAt = &paidAt
	}

	if err := s.repo.Update(ctx, id, payment); err != nil {
		switch {
		case errors.Is(err, paymentserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Payment", id)
		case errors.Is(err, paymentserrors.ErrDuplicateTransaction):
			return nil, apperrors.Conflict("Transaction ID already recorded")
		}
		s.cfg.Log.Error("Failed to update payment status", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update payment", err)
	}

	s.cfg.Log.Info("Payment status updated", "id", id, "from", previous, "to", payment.Status)
	s.events.Publish(ctx, events.New(events.PaymentStatusChanged, payment.BookingID, map[string]any{
		"payment":         payment,
		"previous_status": previous,
	}))
	return payment, nil
}

func (s *paymentService) validate(payment *model.Payment) error {
	if err := s.validator.Validate(payment); err != nil {
		s.cfg.Log.Warn("Payment validation failed", "booking_id", payment.BookingID, "error", err)
		return apperrors.Validation("Payment validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *paymentService) find(ctx context.Context, id string) (*model.Payment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Payment ID cannot be empty")
	}
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, paymentserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Payment", id)
		}
		if errors.Is(err, paymentserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid payment ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve payment", err)
	}
	return payment, nil
}

func (s *paymentService) findBooking(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}
