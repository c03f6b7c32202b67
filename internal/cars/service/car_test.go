package service

import (
	carserrors "carrental/internal/cars/errors"
	"carrental/internal/cars/storage"
	"carrental/internal/cars/validator"
	"carrental/pkg/auth"
	"carrental/pkg/config"
	apperrors "carrental/pkg/errors"
	"carrental/pkg/logger"
	"carrental/pkg/model"
	"carrental/pkg/validation"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ────────────────────────────────────────────────
// Mocks
// ────────────────────────────────────────────────

type mockCarRepository struct {
	createFunc       func(ctx context.Context, car *model.Car) error
	findByIDFunc     func(ctx context.Context, id string) (*model.Car, error)
	findAllFunc      func(ctx context.Context, filter model.CarFilter, limit int, offset int64) ([]*model.Car, error)
	countFunc        func(ctx context.Context, filter model.CarFilter) (int64, error)
	updateFunc       func(ctx context.Context, id string, car *model.Car) error
	updateStatusFunc func(ctx context.Context, id string, status string) error
	addImagesFunc    func(ctx context.Context, id string, urls []string, maxImages int) (*model.Car, error)
	deleteFunc       func(ctx context.Context, id string) error
}

func (m *mockCarRepository) Create(ctx context.Context, car *model.Car) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, car)
	}
	car.ID = carID
	return nil
}

func (m *mockCarRepository) FindByID(ctx context.Context, id string) (*model.Car, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return storedCar(), nil
}

func (m *mockCarRepository) FindAll(ctx context.Context, filter model.CarFilter, limit int, offset int64) ([]*model.Car, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, filter, limit, offset)
	}
	return []*model.Car{}, nil
}

func (m *mockCarRepository) Count(ctx context.Context, filter model.CarFilter) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, filter)
	}
	return 0, nil
}

func (m *mockCarRepository) Update(ctx context.Context, id string, car *model.Car) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, car)
	}
	return nil
}

func (m *mockCarRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockCarRepository) AddImages(ctx context.Context, id string, urls []string, maxImages int) (*model.Car, error) {
	if m.addImagesFunc != nil {
		return m.addImagesFunc(ctx, id, urls, maxImages)
	}
	car := storedCar()
	car.Images = append(car.Images, urls...)
	return car, nil
}

func (m *mockCarRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

type mockBookingCounter struct {
	count int64
	err   error
}

func (m mockBookingCounter) CountActiveByCar(ctx context.Context, carID string) (int64, error) {
	return m.count, m.err
}

type mockImageStore struct {
	uploaded  []string
	deleted   []string
	err       error
	failAfter int
}

func (m *mockImageStore) Upload(ctx context.Context, prefix string, image storage.Image) (string, error) {
	if m.err != nil && len(m.uploaded) >= m.failAfter {
		return "", m.err
	}
	m.uploaded = append(m.uploaded, image.Name)
	return "https://cdn.example.com/cars/" + prefix + "/" + image.Name, nil
}

func (m *mockImageStore) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.deleted = append(m.deleted, url)
	return nil
}

const carID = "64b7f0c2a1b2c3d4e5f60720"

var (
	admin    = &auth.Actor{UserID: "64b7f0c2a1b2c3d4e5f60701", Role: config.RoleAdmin}
	customer = &auth.Actor{UserID: "64b7f0c2a1b2c3d4e5f60702", Role: config.RoleCustomer}
)

func storedCar() *model.Car {
	return &model.Car{
		ID:              carID,
		Make:            "Toyota",
		Model:           "Axio",
		ManufactureYear: 2018,
		LicensePlate:    "KDA 123A",
		PricePerDay:     3000,
		Status:          config.CarAvailable,
		Images:          []string{"https://cdn.example.com/cars/1.jpg"},
	}
}

func newTestService(t *testing.T, repo *mockCarRepository, counter BookingCounter, images storage.ImageStore) CarService {
	t.Helper()
	v, err := validation.New()
	require.NoError(t, err)

	cfg := &config.Config{
		Log: logger.New(logger.Config{
			Level:   "info",
			Format:  logger.JSON,
			Service: "test",
		}),
		ReadTimeout: 5 * time.Second,
	}
	return NewCarService(repo, counter, images, validator.NewCarValidator(v, 3), cfg)
}

// ────────────────────────────────────────────────
// Create
// ────────────────────────────────────────────────

func TestCreate_AppliesDefaultsAndNormalizes(t *testing.T) {
	var saved *model.Car
	repo := &mockCarRepository{
		createFunc: func(ctx context.Context, car *model.Car) error {
			saved = car
			car.ID = carID
			return nil
		},
	}
	svc := newTestService(t, repo, mockBookingCounter{}, &mockImageStore{})

	car := &model.Car{
		Make:            " Toyota ",
		Model:           "Axio",
		ManufactureYear: 2018,
		LicensePlate:    " kda   123a ",
		PricePerDay:     3000,
	}
	require.NoError(t, svc.Create(context.Background(), admin, car))

	assert.Equal(t, carID, car.ID)
	assert.Equal(t, "Toyota", saved.Make)
	assert.Equal(t, "KDA 123A", saved.LicensePlate)
	assert.Equal(t, config.CarAvailable, saved.Status)
	assert.NotNil(t, saved.Images)
}

func TestCreate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		actor    *auth.Actor
		car      model.Car
		repoErr  error
		wantCode string
	}{
		{name: "anonymous", actor: nil, car: *storedCar(), wantCode: apperrors.CodeUnauthorized},
		{name: "customer", actor: customer, car: *storedCar(), wantCode: apperrors.CodeForbidden},
		{name: "invalid price", actor: admin, car: model.Car{Make: "Toyota", Model: "Axio", ManufactureYear: 2018, LicensePlate: "KDA 123A", PricePerDay: 0}, wantCode: apperrors.CodeValidation},
		{name: "duplicate plate", actor: admin, car: *storedCar(), repoErr: carserrors.ErrDuplicateLicensePlate, wantCode: apperrors.CodeConflict},
		{name: "storage failure", actor: admin, car: *storedCar(), repoErr: errors.New("timeout"), wantCode: apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockCarRepository{
				createFunc: func(ctx context.Context, car *model.Car) error {
					return tt.repoErr
				},
			}
			car := tt.car
			car.ID = ""
			err := newTestService(t, repo, mockBookingCounter{}, &mockImageStore{}).Create(context.Background(), tt.actor, &car)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}

// ────────────────────────────────────────────────
// Read
// ────────────────────────────────────────────────

func TestGetByID_TranslatesErrors(t *testing.T) {
	tests := []struct {
		name     string
		repoErr  error
		wantCode string
	}{
		{name: "not found", repoErr: carserrors.ErrNotFound, wantCode: apperrors.CodeNotFound},
		{name: "bad id", repoErr: carserrors.ErrInvalidID, wantCode: apperrors.CodeInvalidInput},
		{name: "other", repoErr: errors.New("boom"), wantCode: apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockCarRepository{
				findByIDFunc: func(ctx context.Context, id string) (*model.Car, error) {
					return nil, tt.repoErr
				},
			}
			_, err := newTestService(t, repo, mockBookingCounter{}, &mockImageStore{}).GetByID(context.Background(), carID)
			assert.True(t, apperrors.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestGetAll(t *testing.T) {
	var gotFilter model.CarFilter
	repo := &mockCarRepository{
		countFunc: func(ctx context.Context, filter model.CarFilter) (int64, error) {
			time.Sleep(5 * time.Millisecond)
			return 12, nil
		},
		findAllFunc: func(ctx context.Context, filter model.CarFilter, limit int, offset int64) ([]*model.Car, error) {
			gotFilter = filter
			return []*model.Car{storedCar()}, nil
		},
	}
	svc := newTestService(t, repo, mockBookingCounter{}, &mockImageStore{})

	minPrice := 1000.0
	cars, total, err := svc.GetAll(context.Background(), model.CarFilter{Status: config.CarAvailable, MinPrice: &minPrice}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	assert.Len(t, cars, 1)
	assert.Equal(t, config.CarAvailable, gotFilter.Status)

	_, _, err = svc.GetAll(context.Background(), model.CarFilter{Status: "stolen"}, 10, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	maxPrice := 500.0
	_, _, err = svc.GetAll(context.Background(), model.CarFilter{MinPrice: &minPrice, MaxPrice: &maxPrice}, 10, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

// ────────────────────────────────────────────────
// Update / Delete
// ────────────────────────────────────────────────

func TestUpdate_MergesFields(t *testing.T) {
	var saved *model.Car
	repo := &mockCarRepository{
		updateFunc: func(ctx context.Context, id string, car *model.Car) error {
			saved = car
			return nil
		},
	}
	svc := newTestService(t, repo, mockBookingCounter{}, &mockImageStore{})

	price := 4500.0
	status := config.CarMaintenance
	car, err := svc.Update(context.Background(), admin, carID, &model.CarUpdate{PricePerDay: &price, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, 4500.0, car.PricePerDay)
	assert.Equal(t, config.CarMaintenance, saved.Status)
	assert.Equal(t, "Toyota", saved.Make)
}

func TestUpdate_Errors(t *testing.T) {
	badStatus := "stolen"
	plate := "KDB 999Z"

	_, err := newTestService(t, &mockCarRepository{}, mockBookingCounter{}, &mockImageStore{}).
		Update(context.Background(), customer, carID, &model.CarUpdate{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = newTestService(t, &mockCarRepository{}, mockBookingCounter{}, &mockImageStore{}).
		Update(context.Background(), admin, carID, &model.CarUpdate{Status: &badStatus})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	repo := &mockCarRepository{
		updateFunc: func(ctx context.Context, id string, car *model.Car) error {
			return carserrors.ErrDuplicateLicensePlate
		},
	}
	_, err = newTestService(t, repo, mockBookingCounter{}, &mockImageStore{}).
		Update(context.Background(), admin, carID, &model.CarUpdate{LicensePlate: &plate})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name     string
		counter  mockBookingCounter
		findErr  error
		wantCode string
	}{
		{name: "no bookings", counter: mockBookingCounter{}},
		{name: "active bookings block deletion", counter: mockBookingCounter{count: 2}, wantCode: apperrors.CodeConflict},
		{name: "counter failure", counter: mockBookingCounter{err: errors.New("boom")}, wantCode: apperrors.CodeInternal},
		{name: "missing car", findErr: carserrors.ErrNotFound, wantCode: apperrors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deleted := false
			repo := &mockCarRepository{
				findByIDFunc: func(ctx context.Context, id string) (*model.Car, error) {
					if tt.findErr != nil {
						return nil, tt.findErr
					}
					return storedCar(), nil
				},
				deleteFunc: func(ctx context.Context, id string) error {
					deleted = true
					return nil
				},
			}
			err := newTestService(t, repo, tt.counter, &mockImageStore{}).Delete(context.Background(), admin, carID)
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.True(t, deleted)
				return
			}
			assert.True(t, apperrors.HasCode(err, tt.wantCode), "got %v", err)
			assert.False(t, deleted)
		})
	}
}

// ────────────────────────────────────────────────
// AddImages
// ────────────────────────────────────────────────

func jpeg(name string) storage.Image {
	return storage.Image{Name: name, ContentType: "image/jpeg", Size: 4, Body: strings.NewReader("jpeg")}
}

func TestAddImages_AppendsURLs(t *testing.T) {
	store := &mockImageStore{}
	var pushed []string
	var limit int
	repo := &mockCarRepository{
		updateFunc: func(ctx context.Context, id string, car *model.Car) error {
			t.Fatal("adding images must not rewrite the whole car")
			return nil
		},
		addImagesFunc: func(ctx context.Context, id string, urls []string, maxImages int) (*model.Car, error) {
			pushed, limit = urls, maxImages
			car := storedCar()
			car.Status = config.CarRented
			car.Images = append(car.Images, urls...)
			return car, nil
		},
	}

	car, err := newTestService(t, repo, mockBookingCounter{}, store).
		AddImages(context.Background(), admin, carID, []storage.Image{jpeg("a.jpg"), jpeg("b.jpg")})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, store.uploaded)
	assert.Equal(t, []string{
		"https://cdn.example.com/cars/" + carID + "/a.jpg",
		"https://cdn.example.com/cars/" + carID + "/b.jpg",
	}, pushed)
	assert.Equal(t, 3, limit)
	assert.Len(t, car.Images, 3)
	assert.Equal(t, config.CarRented, car.Status)
	assert.Empty(t, store.deleted)
}

func TestAddImages_RemovesOrphansOnFailure(t *testing.T) {
	t.Run("upload fails mid-batch", func(t *testing.T) {
		store := &mockImageStore{err: errors.New("connection reset"), failAfter: 1}
		repo := &mockCarRepository{
			addImagesFunc: func(ctx context.Context, id string, urls []string, maxImages int) (*model.Car, error) {
				t.Fatal("nothing should be written after a failed upload")
				return nil, nil
			},
		}

		_, err := newTestService(t, repo, mockBookingCounter{}, store).
			AddImages(context.Background(), admin, carID, []storage.Image{jpeg("a.jpg"), jpeg("b.jpg")})
		require.Error(t, err)
		assert.Equal(t, []string{"https://cdn.example.com/cars/" + carID + "/a.jpg"}, store.deleted)
	})

	t.Run("limit reached concurrently", func(t *testing.T) {
		store := &mockImageStore{}
		repo := &mockCarRepository{
			addImagesFunc: func(ctx context.Context, id string, urls []string, maxImages int) (*model.Car, error) {
				return nil, carserrors.ErrTooManyImages
			},
		}

		_, err := newTestService(t, repo, mockBookingCounter{}, store).
			AddImages(context.Background(), admin, carID, []storage.Image{jpeg("a.jpg"), jpeg("b.jpg")})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "got %v", err)
		assert.Len(t, store.deleted, 2)
	})

	t.Run("car deleted during upload", func(t *testing.T) {
		store := &mockImageStore{}
		ctx, cancel := context.WithCancel(context.Background())
		repo := &mockCarRepository{
			addImagesFunc: func(ctx context.Context, id string, urls []string, maxImages int) (*model.Car, error) {
				cancel()
				return nil, carserrors.ErrNotFound
			},
		}

		_, err := newTestService(t, repo, mockBookingCounter{}, store).
			AddImages(ctx, admin, carID, []storage.Image{jpeg("a.jpg")})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "got %v", err)
		assert.Equal(t, []string{"https://cdn.example.com/cars/" + carID + "/a.jpg"}, store.deleted)
	})
}

func TestAddImages_Errors(t *testing.T) {
	gif := storage.Image{Name: "anim.gif", ContentType: "image/gif"}

	tests := []struct {
		name     string
		images   []storage.Image
		store    *mockImageStore
		wantCode string
	}{
		{name: "nothing uploaded", images: nil, store: &mockImageStore{}, wantCode: apperrors.CodeInvalidInput},
		{name: "over the limit", images: []storage.Image{jpeg("a.jpg"), jpeg("b.jpg"), jpeg("c.jpg")}, store: &mockImageStore{}, wantCode: apperrors.CodeValidation},
		{name: "gif rejected", images: []storage.Image{gif}, store: &mockImageStore{}, wantCode: apperrors.CodeInvalidInput},
		{name: "storage disabled", images: []storage.Image{jpeg("a.jpg")}, store: &mockImageStore{err: apperrors.Unavailable("Image storage")}, wantCode: apperrors.CodeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestService(t, &mockCarRepository{}, mockBookingCounter{}, tt.store).
				AddImages(context.Background(), admin, carID, tt.images)
			assert.True(t, apperrors.HasCode(err, tt.wantCode), "got %v", err)
			assert.Empty(t, tt.store.uploaded)
		})
	}
}
