package service

import (
	carserrors "carrental/internal/cars/errors"
	"carrental/internal/cars/repository"
	"carrental/internal/cars/storage"
	"carrental/internal/cars/validator"
	"carrental/pkg/auth"
	"carrental/pkg/config"
	apperrors "carrental/pkg/errors"
	"carrental/pkg/model"
	"carrental/pkg/sanitizer"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

type CarService interface {
	Create(ctx context.Context, actor *auth.Actor, car *model.Car) error
	GetByID(ctx context.Context, id string) (*model.Car, error)
	GetAll(ctx context.Context, filter model.CarFilter, limit int, offset int64) ([]*model.Car, int64, error)
	Update(ctx context.Context, actor *auth.Actor, id string, updates *model.CarUpdate) (*model.Car, error)
	Delete(ctx context.Context, actor *auth.Actor, id string) error
	AddImages(ctx context.Context, actor *auth.Actor, id string, images []storage.Image) (*model.Car, error)
}

// BookingCounter reports how many non-terminal bookings hold a car.
type BookingCounter interface {
	CountActiveByCar(ctx context.Context, carID string) (int64, error)
}

type carService struct {
	repo      repository.CarRepository
	bookings  BookingCounter
	images    storage.ImageStore
	validator *validator.CarValidator
	cfg       *config.Config
}

func NewCarService(
	repo repository.CarRepository,
	bookings BookingCounter,
	images storage.ImageStore,
	validator *validator.CarValidator,
	cfg *config.Config,
) CarService {
	return &carService{
		repo:      repo,
		bookings:  bookings,
		images:    images,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *carService) Create(ctx context.Context, actor *auth.Actor, car *model.Car) error {
	if err := auth.Authorize(actor, auth.CarsWrite, ""); err != nil {
		return err
	}

	s.applyDefaults(car)
	s.sanitize(car)
	if err := s.validate(car); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, car); err != nil {
		if errors.Is(err, carserrors.ErrDuplicateLicensePlate) {
			return apperrors.Conflict(fmt.Sprintf("A car with license plate %s already exists", car.LicensePlate))
		}
		s.cfg.Log.Error("Failed to create car", "license_plate", car.LicensePlate, "error", err)
		return apperrors.Internal("Failed to create car", err)
	}

	s.cfg.Log.Info("Car created successfully",
		"id", car.ID,
		"license_plate", car.LicensePlate,
		"price_per_day", car.PricePerDay,
	)
	return nil
}

func (s *carService) GetByID(ctx context.Context, id string) (*model.Car, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Car ID cannot be empty")
	}

	car, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateFindError(err, id)
	}
	return car, nil
}

func (s *carService) GetAll(ctx context.Context, filter model.CarFilter, limit int, offset int64) ([]*model.Car, int64, error) {
	if filter.Status != "" && !slices.Contains(config.CarStatuses, filter.Status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status filter: %s", filter.Status))
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, 0, apperrors.InvalidInput("min_price cannot be greater than max_price")
	}

	var count int64
	var cars []*model.Car
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count cars", "error", errCount)
			errCount = apperrors.Internal("Failed to count cars", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		cars, errFind = s.repo.FindAll(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list cars", "limit", limit, "offset", offset, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve cars", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return cars, count, nil
}

func (s *carService) Update(ctx context.Context, actor *auth.Actor, id string, updates *model.CarUpdate) (*model.Car, error) {
	if err := auth.Authorize(actor, auth.CarsWrite, ""); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Car ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateFindError(err, id)
	}
	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Car update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := s.mergeCarUpdates(existing, updates)
	s.sanitize(merged)
	if err := s.validate(merged); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, id, merged); err != nil {
		return nil, s.translateWriteError(err, id, merged)
	}

	s.cfg.Log.Info("Car updated successfully", "id", id, "status", merged.Status)
	return merged, nil
}

func (s *carService) Delete(ctx context.Context, actor *auth.Actor, id string) error {
	if err := auth.Authorize(actor, auth.CarsWrite, ""); err != nil {
		return err
	}
	if id == "" {
		return apperrors.InvalidInput("Car ID cannot be empty")
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return translateFindError(err, id)
	}

	active, err := s.bookings.CountActiveByCar(ctx, id)
	if err != nil {
		s.cfg.Log.Error("Failed to count active bookings", "car_id", id, "error", err)
		return apperrors.Internal("Failed to check car bookings", err)
	}
	if active > 0 {
		s.cfg.Log.Warn("Car deletion blocked by bookings", "id", id, "active_bookings", active)
		return apperrors.Conflict(fmt.Sprintf("Car has %d active booking(s) and cannot be deleted", active))
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, carserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Car", id)
		}
		s.cfg.Log.Error("Failed to delete car", "id", id, "error", err)
		return apperrors.Internal("Failed to delete car", err)
	}

	s.cfg.Log.Info("Car deleted successfully", "id", id)
	return nil
}

// AddImages uploads images and appends their URLs to the car. The count limit
// is checked before anything is uploaded and again by the write itself.
// Objects uploaded for a request that fails are removed from storage.
func (s *carService) AddImages(ctx context.Context, actor *auth.Actor, id string, images []storage.Image) (*model.Car, error) {
	if err := auth.Authorize(actor, auth.CarsWrite, ""); err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, apperrors.InvalidInput("At least one image is required")
	}

	car, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateFindError(err, id)
	}

	if total := len(car.Images) + len(images); total > s.validator.MaxImages() {
		return nil, s.tooManyImages(len(car.Images), len(images))
	}
	for _, img := range images {
		if !storage.AllowedContentType(img.ContentType) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("unsupported image type for %s: only JPEG and PNG are allowed", img.Name))
		}
	}

	urls := make([]string, 0, len(images))
	for _, img := range images {
		url, err := s.images.Upload(ctx, car.ID, img)
		if err != nil {
			s.discardImages(ctx, id, urls)
			return nil, err
		}
		urls = append(urls, url)
	}

	updated, err := s.repo.AddImages(ctx, id, urls, s.validator.MaxImages())
	if err != nil {
		s.discardImages(ctx, id, urls)
		if errors.Is(err, carserrors.ErrTooManyImages) {
			return nil, s.tooManyImages(len(car.Images), len(images))
		}
		return nil, s.translateWriteError(err, id, car)
	}

	s.cfg.Log.Info("Car images added", "id", id, "uploaded", len(urls), "total", len(updated.Images))
	return updated, nil
}

// --- Helpers ---

func (s *carService) applyDefaults(car *model.Car) {
	if car.Status == "" {
		car.Status = config.CarAvailable
	}
	if car.Images == nil {
		car.Images = []string{}
	}
}

func (s *carService) sanitize(car *model.Car) {
	car.Make = sanitizer.NormalizeName(car.Make)
	car.Model = sanitizer.NormalizeName(car.Model)
	car.LicensePlate = sanitizer.NormalizeLicensePlate(car.LicensePlate)
	car.Images = sanitizer.SanitizeURLs(car.Images)
}

func (s *carService) mergeCarUpdates(existing *model.Car, updates *model.CarUpdate) *model.Car {
	merged := *existing

	if updates.Make != nil {
		merged.Make = *updates.Make
	}
	if updates.Model != nil {
		merged.Model = *updates.Model
	}
	if updates.ManufactureYear != nil {
		merged.ManufactureYear = *updates.ManufactureYear
	}
	if updates.LicensePlate != nil {
		merged.LicensePlate = *updates.LicensePlate
	}
	if updates.PricePerDay != nil {
		merged.PricePerDay = *updates.PricePerDay
	}
	if updates.Status != nil {
		merged.Status = *updates.Status
	}
	if updates.Images != nil {
		merged.Images = *updates.Images
	}

	return &merged
}

func (s *carService) validate(car *model.Car) error {
	if err := s.validator.Validate(car); err != nil {
		s.cfg.Log.Warn("Car validation failed", "license_plate", car.LicensePlate, "error", err)
		return apperrors.Validation("Car validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *carService) translateWriteError(err error, id string, car *model.Car) error {
	switch {
	case errors.Is(err, carserrors.ErrDuplicateLicensePlate):
		return apperrors.Conflict(fmt.Sprintf("A car with license plate %s already exists", car.LicensePlate))
	case errors.Is(err, carserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Car", id)
	}
	s.cfg.Log.Error("Failed to update car", "id", id, "error", err)
	return apperrors.Internal("Failed to update car", err)
}

func (s *carService) tooManyImages(existing, uploaded int) error {
	return apperrors.Validation("Too many images", map[string]any{
		"error":    fmt.Sprintf("a car can have at most %d images", s.validator.MaxImages()),
		"existing": existing,
		"uploaded": uploaded,
	})
}

// discardImages deletes objects that never made it onto the car. It runs
// even when ctx has been cancelled.
func (s *carService) discardImages(ctx context.Context, id string, urls []string) {
	ctx = context.WithoutCancel(ctx)
	for _, url := range urls {
		if err := s.images.Delete(ctx, url); err != nil {
			s.cfg.Log.Warn("Failed to remove orphaned car image", "id", id, "url", url, "error", err)
		}
	}
}

func translateFindError(err error, id string) error {
	if errors.Is(err, carserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Car", id)
	}
	if errors.Is(err, carserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid car ID format")
	}
	return apperrors.Internal("Failed to retrieve car", err)
}
