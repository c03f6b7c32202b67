package service

import (
	bookingserrors "carrental/internal/bookings/errors"
	"carrental/internal/bookings/lifecycle"
	"carrental/internal/bookings/pricing"
	"carrental/internal/bookings/repository"
	"carrental/internal/bookings/validator"
	carserrors "carrental/internal/cars/errors"
	"carrental/internal/events"
	userserrors "carrental/internal/users/errors"
	"carrental/pkg/auth"
	"carrental/pkg/config"
	apperrors "carrental/pkg/errors"
	"carrental/pkg/model"
	"carrental/pkg/sanitizer"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

type BookingService interface {
	Create(ctx context.Context, actor *auth.Actor, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, actor *auth.Actor, id string) (*model.BookingDetails, error)
	List(ctx context.Context, actor *auth.Actor, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	Update(ctx context.Context, actor *auth.Actor, id string, updates *model.BookingUpdate) (*model.Booking, error)
	Cancel(ctx context.Context, actor *auth.Actor, id string) (*model.CancellationResult, error)
	CheckAvailability(ctx context.Context, carID, startDate, endDate string) (*model.Availability, error)
	IsAvailable(ctx context.Context, carID string, start, end time.Time, excludeBookingID string) (bool, error)
}

type CarStore interface {
	FindByID(ctx context.Context, id string) (*model.Car, error)
	UpdateStatus(ctx context.Context, id string, status string) error
}

type UserStore interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type PaymentStore interface {
	FindByBookingID(ctx context.Context, bookingID string) ([]*model.Payment, error)
	RefundCompleted(ctx context.Context, bookingID string) (int64, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	lockRepo  repository.BookingLockRepository
	cars      CarStore
	users     UserStore
	payments  PaymentStore
	events    events.Publisher
	validator *validator.BookingValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.BookingLockRepository,
	cars CarStore,
	users UserStore,
	payments PaymentStore,
	publisher events.Publisher,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		lockRepo:  lockRepo,
		cars:      cars,
		users:     users,
		payments:  payments,
		events:    publisher,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *bookingService) Create(ctx context.Context, actor *auth.Actor, req *model.BookingRequest) (*model.Booking, error) {
	if err := auth.Authorize(actor, auth.BookingsCreate, ""); err != nil {
		return nil, err
	}

	req.CarID = strings.TrimSpace(req.CarID)
	req.Notes = sanitizer.TrimAndNormalize(req.Notes)
	if err := s.validator.ValidateRequest(req); err != nil {
		s.cfg.Log.Warn("Booking request validation failed", "user_id", actor.UserID, "error", err)
		return nil, apperrors.Validation("Invalid booking input", map[string]any{"error": err.Error()})
	}

	start, end, err := s.parseDates(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if err := s.validateDates(start, end, true); err != nil {
		return nil, err
	}

	if _, err := s.findUser(ctx, actor.UserID); err != nil {
		return nil, err
	}
	car, err := s.findCar(ctx, req.CarID)
	if err != nil {
		return nil, err
	}
	if car.Status != config.CarAvailable {
		return nil, apperrors.Conflict(fmt.Sprintf("Car is not available for booking (status: %s)", car.Status))
	}

	booking := &model.Booking{
		CarID:     car.ID,
		UserID:    actor.UserID,
		StartDate: start,
		EndDate:   end,
		Status:    config.Pending,
		Notes:     req.Notes,
	}

	lockID, err := s.acquireCarLock(ctx, car.ID)
	if err != nil {
		return nil, err
	}
	defer s.releaseCarLock(ctx, lockID)

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		current, err := s.findCar(sessCtx, car.ID)
		if err != nil {
			return err
		}
		if current.Status != config.CarAvailable {
			return apperrors.Conflict(fmt.Sprintf("Car is not available for booking (status: %s)", current.Status))
		}
		if err := s.ensureAvailable(sessCtx, current.ID, start, end, ""); err != nil {
			return err
		}
		total, err := pricing.Calculate(start, end, current.PricePerDay)
		if err != nil {
			return validationError(err)
		}
		booking.TotalPrice = total
		if err := s.validate(booking); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.transactionError("Failed to create booking", err, "car_id", car.ID, "user_id", actor.UserID)
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"car_id", booking.CarID,
		"user_id", booking.UserID,
		"start_date", booking.StartDate,
		"end_date", booking.EndDate,
		"total_price", booking.TotalPrice,
	)
	s.events.Publish(ctx, events.New(events.BookingCreated, booking.ID, booking))
	return booking, nil
}

// GetByID loads the booking with its car, renter and payments. A car or user
// that no longer exists is omitted rather than failing the read.
func (s *bookingService) GetByID(ctx context.Context, actor *auth.Actor, id string) (*model.BookingDetails, error) {
	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(actor, auth.BookingsManage, booking.UserID); err != nil {
		return nil, err
	}

	details := &model.BookingDetails{Booking: booking, Payments: []*model.Payment{}}
	var errCar, errUser, errPayments error
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		car, err := s.cars.FindByID(ctx, booking.CarID)
		if err != nil {
			if !errors.Is(err, carserrors.ErrNotFound) {
				errCar = err
			}
			return
		}
		details.Car = car.Summary()
	}()

	go func() {
		defer wg.Done()
		user, err := s.users.FindByID(ctx, booking.UserID)
		if err != nil {
			if !errors.Is(err, userserrors.ErrNotFound) {
				errUser = err
			}
			return
		}
		details.User = user.Summary()
	}()

	go func() {
		defer wg.Done()
		payments, err := s.payments.FindByBookingID(ctx, booking.ID)
		if err != nil {
			errPayments = err
			return
		}
		details.Payments = payments
	}()

	wg.Wait()
	if err := errors.Join(errCar, errUser, errPayments); err != nil {
		s.cfg.Log.Error("Failed to load booking details", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking details", err)
	}

	return details, nil
}

// List shows everything to actors that manage bookings and only their own
// bookings to everyone else.
func (s *bookingService) List(ctx context.Context, actor *auth.Actor, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	if actor == nil {
		return nil, 0, apperrors.Unauthorized("Authentication required")
	}
	if !actor.Can(auth.BookingsManage) {
		filter.UserID = actor.UserID
	}
	if filter.Status != "" && !slices.Contains(config.BookingStatuses, filter.Status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status filter: %s", filter.Status))
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, 0, apperrors.InvalidInput("from cannot be after to")
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "limit", limit, "offset", offset, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

func (s *bookingService) Update(ctx context.Context, actor *auth.Actor, id string, updates *model.BookingUpdate) (*model.Booking, error) {
	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(actor, auth.BookingsManage, existing.UserID); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Booking update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	if updates.Status == config.Cancelled {
		if updates.ChangesDates() {
			return nil, apperrors.InvalidInput("Dates cannot be changed while cancelling a booking")
		}
		result, err := s.cancel(ctx, existing)
		if err != nil {
			return nil, err
		}
		return result.Booking, nil
	}

	if updates.Status != "" && !actor.Can(auth.BookingsManage) {
		s.cfg.Log.Warn("Booking status change denied", "id", id, "user_id", actor.UserID, "status", updates.Status)
		return nil, apperrors.Forbidden("Customers can only cancel their bookings")
	}

	merged, statusChange, err := s.planUpdate(existing, updates)
	if err != nil {
		return nil, err
	}
	if merged == nil {
		return existing, nil
	}
	if !updates.ChangesDates() && !statusChange {
		return s.updateNotes(ctx, id, merged)
	}

	lockID, err := s.acquireCarLock(ctx, existing.CarID)
	if err != nil {
		return nil, err
	}
	defer s.releaseCarLock(ctx, lockID)

	// The first read only decides whether to lock. Under the lock the update
	// is planned again from the stored booking.
	previousStatus := existing.Status
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		current, err := s.find(sessCtx, id)
		if err != nil {
			return err
		}
		merged, statusChange, err = s.planUpdate(current, updates)
		if err != nil {
			return err
		}
		if merged == nil {
			merged = current
			return nil
		}
		previousStatus = current.Status

		if updates.ChangesDates() {
			if err := s.ensureAvailable(sessCtx, merged.CarID, merged.StartDate, merged.EndDate, id); err != nil {
				return err
			}
			car, err := s.findCar(sessCtx, merged.CarID)
			if err != nil {
				return err
			}
			total, err := pricing.Calculate(merged.StartDate, merged.EndDate, car.PricePerDay)
			if err != nil {
				return validationError(err)
			}
			merged.TotalPrice = total
		}
		if err := s.validate(merged); err != nil {
			return err
		}
		if err := s.repo.Update(sessCtx, id, current.Status, merged); err != nil {
			return s.writeError("Failed to update booking", id, err)
		}
		if statusChange {
			return s.syncCarStatus(sessCtx, merged.CarID, merged.Status)
		}
		return nil
	})
	if err != nil {
		return nil, s.transactionError("Failed to update booking", err, "id", id)
	}

	s.cfg.Log.Info("Booking updated successfully",
		"id", id,
		"status", merged.Status,
		"start_date", merged.StartDate,
		"end_date", merged.EndDate,
		"total_price", merged.TotalPrice,
	)
	if statusChange {
		s.events.Publish(ctx, events.New(events.BookingStatusChanged, id, map[string]any{
			"booking":         merged,
			"previous_status": previousStatus,
		}))
	}
	return merged, nil
}

// planUpdate applies updates to booking. A nil booking with a nil error means
// there is nothing to write.
func (s *bookingService) planUpdate(booking *model.Booking, updates *model.BookingUpdate) (*model.Booking, bool, error) {
	statusChange := updates.Status != "" && updates.Status != booking.Status
	if statusChange {
		if err := lifecycle.Transition(booking.Status, updates.Status); err != nil {
			return nil, false, err
		}
	}
	if updates.ChangesDates() && lifecycle.IsTerminal(booking.Status) {
		return nil, false, apperrors.InvalidState(
			fmt.Sprintf("Cannot change the dates of a %s booking", booking.Status),
			booking.Status, booking.Status,
		)
	}
	if !updates.ChangesDates() && !statusChange && updates.Notes == nil {
		return nil, false, nil
	}

	merged, err := s.mergeBookingUpdates(booking, updates)
	if err != nil {
		return nil, false, err
	}
	return merged, statusChange, nil
}

// updateNotes writes only the notes field, which no concurrent transition
// depends on.
func (s *bookingService) updateNotes(ctx context.Context, id string, merged *model.Booking) (*model.Booking, error) {
	if err := s.validate(merged); err != nil {
		return nil, err
	}
	stored, err := s.repo.UpdateNotes(ctx, id, merged.Notes)
	if err != nil {
		return nil, s.writeError("Failed to update booking", id, err)
	}
	s.cfg.Log.Info("Booking notes updated", "id", id)
	return stored, nil
}

func (s *bookingService) Cancel(ctx context.Context, actor *auth.Actor, id string) (*model.CancellationResult, error) {
	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(actor, auth.BookingsManage, booking.UserID); err != nil {
		return nil, err
	}
	return s.cancel(ctx, booking)
}

// cancel frees the car and refunds completed payments in one transaction.
// The cancel rules are checked again against the stored booking under the lock.
func (s *bookingService) cancel(ctx context.Context, booking *model.Booking) (*model.CancellationResult, error) {
	if err := lifecycle.CheckCancel(booking.ID, booking.Status); err != nil {
		s.cfg.Log.Warn("Booking cancellation rejected", "id", booking.ID, "status", booking.Status)
		return nil, err
	}

	lockID, err := s.acquireCarLock(ctx, booking.CarID)
	if err != nil {
		return nil, err
	}
	defer s.releaseCarLock(ctx, lockID)

	var cancelled model.Booking
	var refunds int64
	previousStatus := booking.Status

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		current, err := s.find(sessCtx, booking.ID)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckCancel(current.ID, current.Status); err != nil {
			return err
		}
		previousStatus = current.Status
		cancelled = *current
		cancelled.Status = config.Cancelled

		if err := s.repo.Update(sessCtx, current.ID, current.Status, &cancelled); err != nil {
			return s.writeError("Failed to cancel booking", current.ID, err)
		}
		if err := s.syncCarStatus(sessCtx, current.CarID, config.Cancelled); err != nil {
			return err
		}
		n, err := s.payments.RefundCompleted(sessCtx, current.ID)
		if err != nil {
			return apperrors.Internal("Failed to refund payments", err)
		}
		refunds = n
		return nil
	})
	if err != nil {
		return nil, s.transactionError("Failed to cancel booking", err, "id", booking.ID)
	}

	s.cfg.Log.Info("Booking cancelled successfully",
		"id", booking.ID,
		"previous_status", previousStatus,
		"refunds_processed", refunds,
	)

	result := &model.CancellationResult{Booking: &cancelled, RefundsProcessed: refunds}
	s.events.Publish(ctx, events.New(events.BookingCancelled, booking.ID, result))
	if refunds > 0 {
		s.events.Publish(ctx, events.New(events.PaymentRefunded, booking.ID, map[string]any{
			"booking_id":        booking.ID,
			"refunds_processed": refunds,
		}))
	}
	return result, nil
}

func (s *bookingService) CheckAvailability(ctx context.Context, carID, startDate, endDate string) (*model.Availability, error) {
	start, end, err := s.parseDates(startDate, endDate)
	if err != nil {
		return nil, err
	}
	if err := s.validateDates(start, end, false); err != nil {
		return nil, err
	}

	car, err := s.findCar(ctx, carID)
	if err != nil {
		return nil, err
	}

	free, err := s.IsAvailable(ctx, car.ID, start, end, "")
	if err != nil {
		return nil, err
	}

	days, err := pricing.Days(start, end)
	if err != nil {
		return nil, validationError(err)
	}

	return &model.Availability{
		CarID:          car.ID,
		StartDate:      start,
		EndDate:        end,
		Available:      free && car.Status == config.CarAvailable,
		Days:           days,
		EstimatedPrice: pricing.Round(float64(days) * car.PricePerDay),
		Car:            car.Summary(),
	}, nil
}

// IsAvailable reports whether no blocking booking for carID overlaps
// [start, end]. It has no side effects.
func (s *bookingService) IsAvailable(ctx context.Context, carID string, start, end time.Time, excludeBookingID string) (bool, error) {
	count, err := s.repo.CountOverlapping(ctx, carID, start, end, excludeBookingID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return false, apperrors.InvalidInput("Invalid booking ID format")
		}
		s.cfg.Log.Error("Failed to check availability", "car_id", carID, "error", err)
		return false, apperrors.Internal("Failed to check availability", err)
	}
	return count == 0, nil
}

// --- Helpers ---

func (s *bookingService) ensureAvailable(ctx context.Context, carID string, start, end time.Time, excludeBookingID string) error {
	free, err := s.IsAvailable(ctx, carID, start, end, excludeBookingID)
	if err != nil {
		return err
	}
	if !free {
		return apperrors.Conflict("Car is already booked for the selected dates")
	}
	return nil
}

func (s *bookingService) mergeBookingUpdates(existing *model.Booking, updates *model.BookingUpdate) (*model.Booking, error) {
	merged := *existing

	if updates.StartDate != nil {
		start, err := pricing.ParseDate("start_date", *updates.StartDate)
		if err != nil {
			return nil, validationError(err)
		}
		merged.StartDate = start
	}
	if updates.EndDate != nil {
		end, err := pricing.ParseDate("end_date", *updates.EndDate)
		if err != nil {
			return nil, validationError(err)
		}
		merged.EndDate = end
	}
	if updates.ChangesDates() {
		if err := s.validateDates(merged.StartDate, merged.EndDate, updates.StartDate != nil); err != nil {
			return nil, err
		}
	}
	if updates.Notes != nil {
		merged.Notes = sanitizer.TrimAndNormalize(*updates.Notes)
	}
	if updates.Status != "" {
		merged.Status = updates.Status
	}

	return &merged, nil
}

func (s *bookingService) parseDates(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := pricing.ParseDate("start_date", startDate)
	if err != nil {
		return time.Time{}, time.Time{}, validationError(err)
	}
	end, err := pricing.ParseDate("end_date", endDate)
	if err != nil {
		return time.Time{}, time.Time{}, validationError(err)
	}
	return start, end, nil
}

func (s *bookingService) validateDates(start, end time.Time, requireFuture bool) error {
	if err := s.validator.ValidateDates(start, end, s.now(), requireFuture); err != nil {
		s.cfg.Log.Warn("Booking dates rejected", "start_date", start, "end_date", end, "error", err)
		return validationError(err)
	}
	return nil
}

func (s *bookingService) validate(booking *model.Booking) error {
	if err := s.validator.Validate(booking); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
}

func (s *bookingService) syncCarStatus(ctx context.Context, carID, bookingStatus string) error {
	carStatus, ok := lifecycle.CarStatusFor(bookingStatus)
	if !ok {
		return nil
	}
	if err := s.cars.UpdateStatus(ctx, carID, carStatus); err != nil {
		return apperrors.Internal("Failed to update car status", err)
	}
	return nil
}

func (s *bookingService) find(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	booking, err := s.repo.FindByID(ctx, id)
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

func (s *bookingService) findCar(ctx context.Context, id string) (*model.Car, error) {
	car, err := s.cars.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, carserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Car", id)
		}
		if errors.Is(err, carserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid car ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve car", err)
	}
	return car, nil
}

func (s *bookingService) findUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", id)
		}
		if errors.Is(err, userserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid user ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	return user, nil
}

func (s *bookingService) writeError(message, id string, err error) error {
	if errors.Is(err, bookingserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Booking", id)
	}
	if errors.Is(err, bookingserrors.ErrStatusChanged) {
		return apperrors.Conflict("Booking was modified by another request. Please try again.")
	}
	return apperrors.Internal(message, err)
}

// transactionError logs a failed transaction and makes sure the caller sees
// an AppError.
func (s *bookingService) transactionError(message string, err error, args ...any) error {
	args = append(args, "error", err)
	if apperrors.HasCode(err, apperrors.CodeInternal) || !apperrors.IsAppError(err) {
		s.cfg.Log.Error(message, args...)
		if !apperrors.IsAppError(err) {
			return apperrors.Internal(message, err)
		}
		return err
	}
	s.cfg.Log.Warn(message, args...)
	return err
}

// acquireCarLock inserts the car's advisory lock document. A second writer
// gets a duplicate key error and a Conflict.
func (s *bookingService) acquireCarLock(ctx context.Context, carID string) (string, error) {
	lockID := fmt.Sprintf("booking_lock_%s", carID)

	lock := &model.BookingLock{
		ID:        lockID,
		ExpiresAt: s.now().Add(s.cfg.BookingLockTTL),
	}

	_, err := s.lockRepo.Create(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("This car is currently being booked by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire booking lock", err)
	}

	return lockID, nil
}

func (s *bookingService) releaseCarLock(ctx context.Context, lockID string) {
	if err := s.lockRepo.Delete(context.WithoutCancel(ctx), lockID); err != nil {
		s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", err)
	}
}
