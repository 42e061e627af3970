package badges

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"starview/internal/contextutils"
	"starview/internal/models"
	"starview/internal/response"
	"starview/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockBadgeService is a simplified mock implementation for testing.
type mockBadgeService struct {
	pins       map[int64][]int64
	setPinsErr error
}

func (m *mockBadgeService) GetCatalog(ctx context.Context) ([]*models.Badge, error) {
	value := int64(5)
	return []*models.Badge{
		{ID: 1, Slug: "explorer", Name: "Explorer", Category: models.CategoryExploration,
			CriteriaType: models.CriteriaNumericThreshold, Metric: "location_visits",
			CriteriaValue: &value, Tier: 2, IsActive: true},
	}, nil
}

func (m *mockBadgeService) GetBadgeBySlug(ctx context.Context, slug string) (*models.Badge, error) {
	if slug != "explorer" {
		return nil, services.EntityNotFoundError("badge", slug)
	}
	return &models.Badge{ID: 1, Slug: "explorer", Name: "Explorer"}, nil
}

func (m *mockBadgeService) GetCollection(ctx context.Context, userID int64) ([]*models.CategoryProgress, error) {
	return []*models.CategoryProgress{
		{Category: models.CategoryExploration},
	}, nil
}

func (m *mockBadgeService) GetPublicCollection(ctx context.Context, username string) ([]*models.EarnedBadge, error) {
	if username != "frida" {
		return nil, services.EntityNotFoundError("user", username)
	}
	return []*models.EarnedBadge{
		{Badge: &models.Badge{ID: 1, Slug: "explorer"}},
	}, nil
}

func (m *mockBadgeService) InvalidateCollection(ctx context.Context, userID int64) error {
	return nil
}

func (m *mockBadgeService) GetPinnedBadges(ctx context.Context, userID int64) ([]*models.EarnedBadge, error) {
	var pinned []*models.EarnedBadge
	for _, id := range m.pins[userID] {
		pinned = append(pinned, &models.EarnedBadge{Badge: &models.Badge{ID: id}})
	}
	return pinned, nil
}

func (m *mockBadgeService) SetPinnedBadges(ctx context.Context, userID int64, badgeIDs []int64) error {
	if m.setPinsErr != nil {
		return m.setPinsErr
	}
	if m.pins == nil {
		m.pins = make(map[int64][]int64)
	}
	m.pins[userID] = badgeIDs
	return nil
}

type mockBackfillService struct{}

func (m *mockBackfillService) Run(ctx context.Context) (*services.BackfillReport, error) {
	return &services.BackfillReport{UsersScanned: 12, BadgesIssued: 4}, nil
}

func (m *mockBackfillService) RunUser(ctx context.Context, userID int64) ([]*models.EarnedBadge, error) {
	return nil, nil
}

func newTestController(svc *mockBadgeService) *BadgeController {
	logger := zap.NewNop()
	builder := response.NewBuilder(response.DefaultConfig(), logger)
	return NewBadgeController(svc, &mockBackfillService{}, logger, builder)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestGetCatalog(t *testing.T) {
	controller := newTestController(&mockBadgeService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/badges", nil)
	rec := httptest.NewRecorder()

	controller.GetCatalog(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
}

func TestGetBadge(t *testing.T) {
	controller := newTestController(&mockBadgeService{})

	t.Run("known slug", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/badges/explorer", nil)
		req = withURLParam(req, "slug", "explorer")
		rec := httptest.NewRecorder()

		controller.GetBadge(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown slug", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/badges/nope", nil)
		req = withURLParam(req, "slug", "nope")
		rec := httptest.NewRecorder()

		controller.GetBadge(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetUserBadges(t *testing.T) {
	controller := newTestController(&mockBadgeService{})

	t.Run("known user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/frida/badges", nil)
		req = withURLParam(req, "username", "frida")
		rec := httptest.NewRecorder()

		controller.GetUserBadges(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/nobody/badges", nil)
		req = withURLParam(req, "username", "nobody")
		rec := httptest.NewRecorder()

		controller.GetUserBadges(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestUpdateMyPins(t *testing.T) {
	t.Run("valid selection", func(t *testing.T) {
		svc := &mockBadgeService{}
		controller := newTestController(svc)

		req := httptest.NewRequest(http.MethodPut, "/api/v1/me/badges/pins",
			strings.NewReader(`{"badge_ids":[3,1]}`))
		req = req.WithContext(contextutils.WithUserID(req.Context(), 42))
		rec := httptest.NewRecorder()

		controller.UpdateMyPins(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []int64{3, 1}, svc.pins[42])
	})

	t.Run("invalid selection is client-visible", func(t *testing.T) {
		svc := &mockBadgeService{
			setPinsErr: services.NewInvalidSelectionError("badge 9 is not earned"),
		}
		controller := newTestController(svc)

		req := httptest.NewRequest(http.MethodPut, "/api/v1/me/badges/pins",
			strings.NewReader(`{"badge_ids":[9]}`))
		req = req.WithContext(contextutils.WithUserID(req.Context(), 42))
		rec := httptest.NewRecorder()

		controller.UpdateMyPins(rec, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		errObj, ok := body["error"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "INVALID_SELECTION", errObj["type"])
	})

	t.Run("malformed body", func(t *testing.T) {
		controller := newTestController(&mockBadgeService{})

		req := httptest.NewRequest(http.MethodPut, "/api/v1/me/badges/pins",
			strings.NewReader(`{bad json`))
		req = req.WithContext(contextutils.WithUserID(req.Context(), 42))
		rec := httptest.NewRecorder()

		controller.UpdateMyPins(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("pin limit is the service's call, not the decoder's", func(t *testing.T) {
		svc := &mockBadgeService{
			setPinsErr: services.NewInvalidSelectionError("at most 3 badges can be pinned"),
		}
		controller := newTestController(svc)

		req := httptest.NewRequest(http.MethodPut, "/api/v1/me/badges/pins",
			strings.NewReader(`{"badge_ids":[1,2,3,4]}`))
		req = req.WithContext(contextutils.WithUserID(req.Context(), 42))
		rec := httptest.NewRecorder()

		controller.UpdateMyPins(rec, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("non-positive badge id rejected by validation", func(t *testing.T) {
		controller := newTestController(&mockBadgeService{})

		req := httptest.NewRequest(http.MethodPut, "/api/v1/me/badges/pins",
			strings.NewReader(`{"badge_ids":[0]}`))
		req = req.WithContext(contextutils.WithUserID(req.Context(), 42))
		rec := httptest.NewRecorder()

		controller.UpdateMyPins(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRunBackfill(t *testing.T) {
	controller := newTestController(&mockBadgeService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/badges/backfill", nil)
	rec := httptest.NewRecorder()

	controller.RunBackfill(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			UsersScanned int64 `json:"users_scanned"`
			BadgesIssued int64 `json:"badges_issued"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(12), body.Data.UsersScanned)
	assert.Equal(t, int64(4), body.Data.BadgesIssued)
}
