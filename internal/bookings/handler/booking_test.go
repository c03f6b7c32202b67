package handler

import (
	"carrental/pkg/auth"
	"carrental/pkg/config"
	apperrors "carrental/pkg/errors"
	"carrental/pkg/logger"
	"carrental/pkg/middleware"
	"carrental/pkg/model"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type mockBookingService struct {
	createFunc func(ctx context.Context, actor *auth.Actor, req *model.BookingRequest) (*model.Booking, error)
	listFunc   func(ctx context.Context, actor *auth.Actor, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	cancelFunc func(ctx context.Context, actor *auth.Actor, id string) (*model.CancellationResult, error)
	availFunc  func(ctx context.Context, carID, startDate, endDate string) (*model.Availability, error)
}

func (m *mockBookingService) Create(ctx context.Context, actor *auth.Actor, req *model.BookingRequest) (*model.Booking, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, actor, req)
	}
	return &model.Booking{ID: "b1", CarID: req.CarID, UserID: actor.UserID, Status: config.Pending}, nil
}

func (m *mockBookingService) GetByID(ctx context.Context, actor *auth.Actor, id string) (*model.BookingDetails, error) {
	return &model.BookingDetails{Booking: &model.Booking{ID: id}, Payments: []*model.Payment{}}, nil
}

func (m *mockBookingService) List(ctx context.Context, actor *auth.Actor, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, actor, filter, limit, offset)
	}
	return []*model.Booking{}, 0, nil
}

func (m *mockBookingService) Update(ctx context.Context, actor *auth.Actor, id string, updates *model.BookingUpdate) (*model.Booking, error) {
	return &model.Booking{ID: id, Status: updates.Status}, nil
}

func (m *mockBookingService) Cancel(ctx context.Context, actor *auth.Actor, id string) (*model.CancellationResult, error) {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, actor, id)
	}
	return &model.CancellationResult{Booking: &model.Booking{ID: id, Status: config.Cancelled}}, nil
}

func (m *mockBookingService) CheckAvailability(ctx context.Context, carID, startDate, endDate string) (*model.Availability, error) {
	return m.availFunc(ctx, carID, startDate, endDate)
}

func (m *mockBookingService) IsAvailable(ctx context.Context, carID string, start, end time.Time, excludeBookingID string) (bool, error) {
	return true, nil
}

type staticTokens map[string]*auth.Actor

func (s staticTokens) Parse(token string) (*auth.Actor, error) {
	if actor, ok := s[token]; ok {
		return actor, nil
	}
	return nil, auth.ErrInvalidToken
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "info", Format: logger.JSON, Service: "test"})
}

func withActor(r *http.Request, actor *auth.Actor) *http.Request {
	return r.WithContext(auth.WithActor(r.Context(), actor))
}

func TestCreate_PassesActorAndRequest(t *testing.T) {
	actor := &auth.Actor{UserID: "u1", Role: config.RoleCustomer}
	var got *model.BookingRequest
	svc := &mockBookingService{
		createFunc: func(ctx context.Context, a *auth.Actor, req *model.BookingRequest) (*model.Booking, error) {
			assert.Equal(t, actor, a)
			got = req
			return &model.Booking{ID: "b1", CarID: req.CarID, UserID: a.UserID, Status: config.Pending, TotalPrice: 15000}, nil
		},
	}
	h := &BookingHandler{service: svc, log: testLogger()}

	body := `{"car_id":"c1","start_date":"2025-08-20","end_date":"2025-08-25"}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body)), actor)
	w := httptest.NewRecorder()
	h.Create(w, req, httprouter.Params{})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotNil(t, got)
	assert.Equal(t, "2025-08-20", got.StartDate)
	assert.Equal(t, "pending", gjson.Get(w.Body.String(), "data.status").String())
	assert.Equal(t, 15000.0, gjson.Get(w.Body.String(), "data.total_price").Float())
}

func TestCreate_RejectsUnknownFields(t *testing.T) {
	h := &BookingHandler{service: &mockBookingService{}, log: testLogger()}

	body := `{"car_id":"c1","start_date":"2025-08-20","end_date":"2025-08-25","status":"approved"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Create(w, req, httprouter.Params{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeInvalidInput, gjson.Get(w.Body.String(), "code").String())
}

func TestGetAll_ParsesFilters(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		check      func(t *testing.T, f model.BookingFilter)
	}{
		{
			name:       "status and range",
			query:      "?status=approved&car_id=c1&from=2025-08-01&to=2025-08-31T23:00:00Z",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, f model.BookingFilter) {
				assert.Equal(t, "approved", f.Status)
				assert.Equal(t, "c1", f.CarID)
				require.NotNil(t, f.From)
				assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), *f.From)
				require.NotNil(t, f.To)
				assert.Equal(t, 31, f.To.Day())
			},
		},
		{name: "bad from", query: "?from=yesterday", wantStatus: http.StatusBadRequest},
		{name: "bad page", query: "?page=0", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockBookingService{
				listFunc: func(ctx context.Context, actor *auth.Actor, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
					if tt.check != nil {
						tt.check(t, filter)
					}
					return []*model.Booking{{ID: "b1"}}, 1, nil
				},
			}
			h := &BookingHandler{service: svc, log: testLogger()}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings"+tt.query, nil)
			w := httptest.NewRecorder()
			h.GetAll(w, req, httprouter.Params{})

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "b1", gjson.Get(w.Body.String(), "data.0.id").String())
			}
		})
	}
}

func TestCancel_WritesRefundCount(t *testing.T) {
	svc := &mockBookingService{
		cancelFunc: func(ctx context.Context, actor *auth.Actor, id string) (*model.CancellationResult, error) {
			return &model.CancellationResult{
				Booking:          &model.Booking{ID: id, Status: config.Cancelled},
				RefundsProcessed: 2,
			}, nil
		},
	}
	h := &BookingHandler{service: svc, log: testLogger()}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/b1", nil)
	w := httptest.NewRecorder()
	h.Cancel(w, req, httprouter.Params{{Key: "id", Value: "b1"}})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), gjson.Get(w.Body.String(), "data.refunds_processed").Int())
	assert.Equal(t, "cancelled", gjson.Get(w.Body.String(), "data.booking.status").String())
}

func TestCancel_AlreadyCancelled(t *testing.T) {
	svc := &mockBookingService{
		cancelFunc: func(ctx context.Context, actor *auth.Actor, id string) (*model.CancellationResult, error) {
			return nil, apperrors.AlreadyCancelled("Booking", id)
		},
	}
	h := &BookingHandler{service: svc, log: testLogger()}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/b1", nil)
	w := httptest.NewRecorder()
	h.Cancel(w, req, httprouter.Params{{Key: "id", Value: "b1"}})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.CodeAlreadyCancelled, gjson.Get(w.Body.String(), "code").String())
}

func TestAvailability_UsesCarID(t *testing.T) {
	svc := &mockBookingService{
		availFunc: func(ctx context.Context, carID, startDate, endDate string) (*model.Availability, error) {
			assert.Equal(t, "c1", carID)
			assert.Equal(t, "2025-08-20", startDate)
			assert.Equal(t, "2025-08-25", endDate)
			return &model.Availability{CarID: carID, Available: true, Days: 5, EstimatedPrice: 15000}, nil
		},
	}
	h := &BookingHandler{service: svc, log: testLogger()}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/c1/availability?start_date=2025-08-20&end_date=2025-08-25", nil)
	w := httptest.NewRecorder()
	h.Availability(w, req, httprouter.Params{{Key: "id", Value: "c1"}})

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gjson.Get(w.Body.String(), "data.available").Bool())
	assert.Equal(t, 15000.0, gjson.Get(w.Body.String(), "data.estimated_price").Float())
}

func TestRoutes_Access(t *testing.T) {
	log := testLogger()
	guard := middleware.NewGuard(staticTokens{
		"admin":    {UserID: "a1", Role: config.RoleAdmin},
		"customer": {UserID: "u1", Role: config.RoleCustomer},
	}, log)
	svc := &mockBookingService{
		availFunc: func(ctx context.Context, carID, startDate, endDate string) (*model.Availability, error) {
			return &model.Availability{CarID: carID}, nil
		},
	}
	router := httprouter.New()
	NewBookingHandler(svc, guard, log).RegisterRoutes(router)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       string
		wantStatus int
	}{
		{name: "public availability", method: http.MethodGet, path: "/api/v1/bookings/c1/availability?start_date=2025-08-20&end_date=2025-08-25", wantStatus: http.StatusOK},
		{name: "anonymous list", method: http.MethodGet, path: "/api/v1/bookings", wantStatus: http.StatusUnauthorized},
		{name: "customer list", method: http.MethodGet, path: "/api/v1/bookings", token: "customer", wantStatus: http.StatusOK},
		{name: "anonymous create", method: http.MethodPost, path: "/api/v1/bookings", body: `{}`, wantStatus: http.StatusUnauthorized},
		{name: "customer create", method: http.MethodPost, path: "/api/v1/bookings", token: "customer", body: `{"car_id":"c1"}`, wantStatus: http.StatusCreated},
		{name: "bad token", method: http.MethodGet, path: "/api/v1/bookings/b1", token: "forged", wantStatus: http.StatusUnauthorized},
		{name: "customer get", method: http.MethodGet, path: "/api/v1/bookings/b1", token: "customer", wantStatus: http.StatusOK},
		{name: "customer update", method: http.MethodPut, path: "/api/v1/bookings/b1", token: "customer", body: `{"status":"cancelled"}`, wantStatus: http.StatusOK},
		{name: "admin cancel", method: http.MethodDelete, path: "/api/v1/bookings/b1", token: "admin", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}
