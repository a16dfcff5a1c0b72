package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"seatbook/pkg/auth"
	apperrors "seatbook/pkg/errors"
	"seatbook/pkg/logger"
	"seatbook/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAdmissionService struct {
	admitFunc func(ctx context.Context, req model.AdmissionRequest, caller model.CallerIdentity) (*model.Booking, error)
}

func (m *mockAdmissionService) Admit(ctx context.Context, req model.AdmissionRequest, caller model.CallerIdentity) (*model.Booking, error) {
	if m.admitFunc != nil {
		return m.admitFunc(ctx, req, caller)
	}
	return nil, nil
}

func (m *mockAdmissionService) DrainEvents(ctx context.Context) error {
	return nil
}

type mockBookingService struct {
	getByIDFunc       func(ctx context.Context, id string, caller model.CallerIdentity) (*model.Booking, error)
	listMineFunc      func(ctx context.Context, caller model.CallerIdentity, limit int, offset int64) ([]*model.Booking, int64, error)
	listAllFunc       func(ctx context.Context, caller model.CallerIdentity, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	seatOccupancyFunc func(ctx context.Context, seatID string, from, to *time.Time) ([]*model.Booking, error)
}

func (m *mockBookingService) GetByID(ctx context.Context, id string, caller model.CallerIdentity) (*model.Booking, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id, caller)
	}
	return nil, apperrors.NotFoundWithID("Booking", id)
}

func (m *mockBookingService) ListMine(ctx context.Context, caller model.CallerIdentity, limit int, offset int64) ([]*model.Booking, int64, error) {
	if m.listMineFunc != nil {
		return m.listMineFunc(ctx, caller, limit, offset)
	}
	return []*model.Booking{}, 0, nil
}

func (m *mockBookingService) ListAll(ctx context.Context, caller model.CallerIdentity, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	if m.listAllFunc != nil {
		return m.listAllFunc(ctx, caller, filter, limit, offset)
	}
	return []*model.Booking{}, 0, nil
}

func (m *mockBookingService) SeatOccupancy(ctx context.Context, seatID string, from, to *time.Time) ([]*model.Booking, error) {
	if m.seatOccupancyFunc != nil {
		return m.seatOccupancyFunc(ctx, seatID, from, to)
	}
	return []*model.Booking{}, nil
}

var (
	alice = model.CallerIdentity{Subject: "alice", Role: model.RoleUser, UserID: "u-alice"}
	admin = model.CallerIdentity{Subject: "root", Role: model.RoleAdmin, UserID: "u-root"}
	start = time.Date(2030, 3, 1, 10, 0, 0, 0, time.UTC)
)

func newTestRouter(admission *mockAdmissionService, bookings *mockBookingService) *httprouter.Router {
	router := httprouter.New()
	NewBookingHandler(admission, bookings, logger.Discard()).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, target, body string, caller *model.CallerIdentity) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if caller != nil {
		req = req.WithContext(auth.WithCaller(req.Context(), *caller))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAdmit_Created(t *testing.T) {
	var received model.AdmissionRequest
	var receivedCaller model.CallerIdentity
	admission := &mockAdmissionService{
		admitFunc: func(ctx context.Context, req model.AdmissionRequest, caller model.CallerIdentity) (*model.Booking, error) {
			received, receivedCaller = req, caller
			return &model.Booking{ID: "b-1", SeatID: req.SeatID, OwnerID: caller.UserID, StartTime: req.StartTime, EndTime: req.EndTime}, nil
		},
	}
	router := newTestRouter(admission, &mockBookingService{})

	body := `{"seat_id":"A-1","start_time":"2030-03-01T10:00:00Z","end_time":"2030-03-01T11:00:00Z"}`
	w := serve(router, http.MethodPost, "/api/v1/bookings", body, &alice)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "A-1", received.SeatID)
	assert.True(t, received.StartTime.Equal(start))
	assert.Equal(t, alice, receivedCaller)

	var resp struct {
		Data model.Booking `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "b-1", resp.Data.ID)
	assert.Equal(t, "u-alice", resp.Data.OwnerID)
}

func TestAdmit_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid interval", apperrors.InvalidInterval(start, start), http.StatusBadRequest, apperrors.CodeInvalidInterval},
		{"validation", apperrors.Validation("invalid request", nil), http.StatusUnprocessableEntity, apperrors.CodeValidation},
		{"unknown caller", apperrors.UnknownCaller(), http.StatusUnauthorized, apperrors.CodeUnknownCaller},
		{"seat already booked", apperrors.SeatAlreadyBooked("A-1", nil), http.StatusConflict, apperrors.CodeSeatAlreadyBooked},
		{"storage unavailable", apperrors.StorageUnavailable(assert.AnError), http.StatusServiceUnavailable, apperrors.CodeStorageUnavailable},
		{"unexpected", assert.AnError, http.StatusInternalServerError, apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			admission := &mockAdmissionService{
				admitFunc: func(context.Context, model.AdmissionRequest, model.CallerIdentity) (*model.Booking, error) {
					return nil, tt.err
				},
			}
			router := newTestRouter(admission, &mockBookingService{})

			w := serve(router, http.MethodPost, "/api/v1/bookings", `{"seat_id":"A-1"}`, &alice)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
		})
	}
}

func TestAdmit_StorageUnavailableHidesCause(t *testing.T) {
	admission := &mockAdmissionService{
		admitFunc: func(context.Context, model.AdmissionRequest, model.CallerIdentity) (*model.Booking, error) {
			return nil, apperrors.StorageUnavailable(assert.AnError)
		},
	}
	router := newTestRouter(admission, &mockBookingService{})

	w := serve(router, http.MethodPost, "/api/v1/bookings", `{}`, &alice)

	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestAdmit_BadBody(t *testing.T) {
	called := false
	admission := &mockAdmissionService{
		admitFunc: func(context.Context, model.AdmissionRequest, model.CallerIdentity) (*model.Booking, error) {
			called = true
			return nil, nil
		},
	}
	router := newTestRouter(admission, &mockBookingService{})

	for _, body := range []string{"", "{", `{"start_time":"yesterday"}`} {
		w := serve(router, http.MethodPost, "/api/v1/bookings", body, &alice)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
		assert.Equal(t, apperrors.CodeInvalidInput, decodeError(t, w).Code)
	}
	assert.False(t, called)
}

func TestAdmit_NoCaller(t *testing.T) {
	router := newTestRouter(&mockAdmissionService{}, &mockBookingService{})

	w := serve(router, http.MethodPost, "/api/v1/bookings", `{"seat_id":"A-1"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetByID(t *testing.T) {
	bookings := &mockBookingService{
		getByIDFunc: func(ctx context.Context, id string, caller model.CallerIdentity) (*model.Booking, error) {
			if caller.UserID != "u-alice" {
				return nil, apperrors.Forbidden("not your booking")
			}
			return &model.Booking{ID: id, OwnerID: caller.UserID}, nil
		},
	}
	router := newTestRouter(&mockAdmissionService{}, bookings)

	w := serve(router, http.MethodGet, "/api/v1/bookings/id/b-9", "", &alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"b-9"`)

	bob := model.CallerIdentity{Subject: "bob", UserID: "u-bob"}
	w = serve(router, http.MethodGet, "/api/v1/bookings/id/b-9", "", &bob)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListMine_Pagination(t *testing.T) {
	var gotLimit int
	var gotOffset int64
	bookings := &mockBookingService{
		listMineFunc: func(ctx context.Context, caller model.CallerIdentity, limit int, offset int64) ([]*model.Booking, int64, error) {
			gotLimit, gotOffset = limit, offset
			return []*model.Booking{{ID: "b-1"}}, 7, nil
		},
	}
	router := newTestRouter(&mockAdmissionService{}, bookings)

	w := serve(router, http.MethodGet, "/api/v1/bookings/me?limit=20&offset=5", "", &alice)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, gotLimit)
	assert.Equal(t, int64(5), gotOffset)
	assert.Contains(t, w.Body.String(), `"total_count":7`)

	w = serve(router, http.MethodGet, "/api/v1/bookings/me?limit=abc", "", &alice)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAll_RoleDecidedByService(t *testing.T) {
	var gotFilter model.BookingFilter
	var gotCaller model.CallerIdentity
	bookings := &mockBookingService{
		listAllFunc: func(ctx context.Context, caller model.CallerIdentity, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
			gotCaller, gotFilter = caller, filter
			if caller.Subject != admin.Subject {
				return nil, 0, apperrors.Forbidden("Listing all bookings requires the ADMIN role")
			}
			return []*model.Booking{}, 0, nil
		},
	}
	router := newTestRouter(&mockAdmissionService{}, bookings)

	w := serve(router, http.MethodGet, "/api/v1/bookings", "", &alice)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, alice.Subject, gotCaller.Subject, "user-claim tokens still reach the service")

	w = serve(router, http.MethodGet, "/api/v1/bookings?seat_id=A-1&start_time=2030-03-01T10:00:00Z", "", &admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "A-1", gotFilter.SeatID)
	require.NotNil(t, gotFilter.From)
	assert.True(t, gotFilter.From.Equal(start))
	assert.Nil(t, gotFilter.To)

	w = serve(router, http.MethodGet, "/api/v1/bookings?end_time=tomorrow", "", &admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSeatOccupancy(t *testing.T) {
	var gotSeat string
	var gotFrom, gotTo *time.Time
	bookings := &mockBookingService{
		seatOccupancyFunc: func(ctx context.Context, seatID string, from, to *time.Time) ([]*model.Booking, error) {
			gotSeat, gotFrom, gotTo = seatID, from, to
			return []*model.Booking{{ID: "b-1", SeatID: seatID}}, nil
		},
	}
	router := newTestRouter(&mockAdmissionService{}, bookings)

	w := serve(router, http.MethodGet, "/api/v1/seats/A-1/bookings?start_time=2030-03-01T10:00:00Z", "", &alice)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "A-1", gotSeat)
	require.NotNil(t, gotFrom)
	assert.True(t, gotFrom.Equal(start))
	assert.Nil(t, gotTo)
}

func TestHealth(t *testing.T) {
	router := httprouter.New()
	NewHealthHandler(nil, nil, logger.Discard()).RegisterRoutes(router)

	w := serve(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "memory", resp.Database)
	assert.Empty(t, resp.SeatLock)
}
