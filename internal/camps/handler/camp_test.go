package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"

	apperrors "medibook/pkg/errors"
	"medibook/pkg/logger"
	"medibook/pkg/model"
)

type fakeCampService struct {
	createFn          func(ctx context.Context, camp *model.HealthCamp) error
	getByIDFn         func(ctx context.Context, id string) (*model.HealthCamp, error)
	getAllFn          func(ctx context.Context, limit int, offset int64) ([]*model.HealthCamp, int64, error)
	listByOrganizerFn func(ctx context.Context, organizerID string, limit int, offset int64) ([]*model.HealthCamp, int64, error)
	registerFn        func(ctx context.Context, campID, participantID string) (*model.HealthCamp, error)
	unregisterFn      func(ctx context.Context, campID, participantID string) (*model.HealthCamp, error)
	advanceStatusFn   func(ctx context.Context, campID, organizerID string, target model.CampStatus) error
	discoverFn        func(ctx context.Context, origin model.Location, radiusKm float64) ([]*model.DiscoveredCamp, error)
}

func (f *fakeCampService) Create(ctx context.Context, camp *model.HealthCamp) error {
	return f.createFn(ctx, camp)
}

func (f *fakeCampService) GetByID(ctx context.Context, id string) (*model.HealthCamp, error) {
	return f.getByIDFn(ctx, id)
}

func (f *fakeCampService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.HealthCamp, int64, error) {
	return f.getAllFn(ctx, limit, offset)
}

func (f *fakeCampService) ListByOrganizer(ctx context.Context, organizerID string, limit int, offset int64) ([]*model.HealthCamp, int64, error) {
	return f.listByOrganizerFn(ctx, organizerID, limit, offset)
}

func (f *fakeCampService) Register(ctx context.Context, campID, participantID string) (*model.HealthCamp, error) {
	return f.registerFn(ctx, campID, participantID)
}

func (f *fakeCampService) Unregister(ctx context.Context, campID, participantID string) (*model.HealthCamp, error) {
	return f.unregisterFn(ctx, campID, participantID)
}

func (f *fakeCampService) AdvanceStatus(ctx context.Context, campID, organizerID string, target model.CampStatus) error {
	return f.advanceStatusFn(ctx, campID, organizerID, target)
}

func (f *fakeCampService) Discover(ctx context.Context, origin model.Location, radiusKm float64) ([]*model.DiscoveredCamp, error) {
	return f.discoverFn(ctx, origin, radiusKm)
}

func newTestRouter(svc *fakeCampService) *httprouter.Router {
	log := logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard, Service: "camps-handler-test"})
	router := httprouter.New()
	NewCampHandler(svc, log).RegisterRoutes(router)
	return router
}

func TestRegisterReturnsConflictWhenFull(t *testing.T) {
	svc := &fakeCampService{
		registerFn: func(_ context.Context, campID, participantID string) (*model.HealthCamp, error) {
			return nil, apperrors.CampFull(campID)
		},
	}
	router := newTestRouter(svc)

	body := strings.NewReader(`{"participant_id":"p-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/camps/id/abc/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}

	var resp struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != apperrors.CodeCampFull {
		t.Fatalf("error code = %s, want %s", resp.Code, apperrors.CodeCampFull)
	}
}

func TestRegisterRejectsMalformedBody(t *testing.T) {
	svc := &fakeCampService{
		registerFn: func(context.Context, string, string) (*model.HealthCamp, error) {
			t.Fatal("service must not be reached with a malformed body")
			return nil, nil
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/camps/id/abc/register", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestDiscoverParsesQuery(t *testing.T) {
	var gotOrigin model.Location
	var gotRadius float64
	svc := &fakeCampService{
		discoverFn: func(_ context.Context, origin model.Location, radiusKm float64) ([]*model.DiscoveredCamp, error) {
			gotOrigin = origin
			gotRadius = radiusKm
			return []*model.DiscoveredCamp{}, nil
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/camps/discover?lat=32.08&lng=34.78&radius_km=25", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotOrigin.Latitude != 32.08 || gotOrigin.Longitude != 34.78 || gotRadius != 25 {
		t.Fatalf("parsed origin = %+v, radius = %f", gotOrigin, gotRadius)
	}
}

func TestDiscoverRequiresCoordinates(t *testing.T) {
	svc := &fakeCampService{
		discoverFn: func(context.Context, model.Location, float64) ([]*model.DiscoveredCamp, error) {
			t.Fatal("service must not be reached without coordinates")
			return nil, nil
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/camps/discover?lng=34.78", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	var resp struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != apperrors.CodeInvalidLocation {
		t.Fatalf("error code = %s, want %s", resp.Code, apperrors.CodeInvalidLocation)
	}
}

func TestGetAllFiltersByOrganizerQuery(t *testing.T) {
	var gotOrganizer string
	svc := &fakeCampService{
		listByOrganizerFn: func(_ context.Context, organizerID string, _ int, _ int64) ([]*model.HealthCamp, int64, error) {
			gotOrganizer = organizerID
			return []*model.HealthCamp{}, 0, nil
		},
		getAllFn: func(context.Context, int, int64) ([]*model.HealthCamp, int64, error) {
			t.Fatal("unfiltered listing must not be reached when organizer_id is set")
			return nil, 0, nil
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/camps?organizer_id=org-9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotOrganizer != "org-9" {
		t.Fatalf("organizer id = %q, want org-9", gotOrganizer)
	}
}

func TestCreateReturnsCreated(t *testing.T) {
	svc := &fakeCampService{
		createFn: func(_ context.Context, camp *model.HealthCamp) error {
			camp.ID = "665f1f77bcf86cd799439011"
			return nil
		},
	}
	router := newTestRouter(svc)

	body := strings.NewReader(`{
		"organizer_id": "org-1",
		"name": "Community Screening Day",
		"capacity": 25,
		"window_start": "2025-07-01T09:00:00Z",
		"window_end": "2025-07-01T17:00:00Z",
		"status": "upcoming"
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/camps", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}

	var resp struct {
		Data model.HealthCamp `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.ID != "665f1f77bcf86cd799439011" {
		t.Fatalf("created camp id = %q", resp.Data.ID)
	}
}
