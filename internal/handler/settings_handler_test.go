package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/yawiki/internal/pkg/errcode"
)

func TestPromotionRoutes(t *testing.T) {
	s := setupRouter(t, "")
	adminToken, _ := s.register("admin@example.com")
	userToken, _ := s.register("user@example.com")

	promo := map[string]interface{}{
		"id": "spring", "type": "banner", "startDate": "2026-03-01", "endDate": "2026-03-31",
		"description": "Spring", "details": "Sale", "bannerColor": "#0f0",
	}
	resp, _ := s.do(http.MethodPost, "/api/v1/settings/promotions", userToken, promo)
	require.Equal(t, http.StatusForbidden, resp.Code)
	resp, env := s.do(http.MethodPost, "/api/v1/settings/promotions", adminToken, promo)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, string(env.Data), `"bannerColor":"#0f0"`)

	resp, _ = s.do(http.MethodPut, "/api/v1/settings/promotions", "", map[string]string{"id": "spring", "action": "open"})
	require.Equal(t, http.StatusOK, resp.Code)
	resp, env = s.do(http.MethodPut, "/api/v1/settings/promotions", "", map[string]string{"id": "spring", "action": "share"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "Invalid action", env.Msg)

	_, env = s.do(http.MethodGet, "/api/v1/settings/promotions", "", nil)
	var all []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &all))
	require.Len(t, all, 1)
	require.EqualValues(t, 1, all[0]["clicksOpened"])

	resp, _ = s.do(http.MethodDelete, "/api/v1/settings/promotions", adminToken, map[string]string{"id": "spring"})
	require.Equal(t, http.StatusOK, resp.Code)
	resp, _ = s.do(http.MethodDelete, "/api/v1/settings/promotions", adminToken, map[string]string{"id": "spring"})
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestTermsRoutes(t *testing.T) {
	s := setupRouter(t, "")
	adminToken, _ := s.register("admin@example.com")

	_, env := s.do(http.MethodGet, "/api/v1/settings/terms", "", nil)
	require.JSONEq(t, `{"termsAndConditions":"","privacyPolicy":""}`, string(env.Data))

	resp, _ := s.do(http.MethodPost, "/api/v1/settings/terms", adminToken, map[string]string{"type": "cookies", "content": "x"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	resp, _ = s.do(http.MethodPost, "/api/v1/settings/terms", adminToken, map[string]string{"type": "privacy", "content": "We keep nothing."})
	require.Equal(t, http.StatusOK, resp.Code)

	_, env = s.do(http.MethodGet, "/api/v1/settings/terms", "", nil)
	require.JSONEq(t, `{"termsAndConditions":"","privacyPolicy":"We keep nothing."}`, string(env.Data))
}

func TestReviewRoutes(t *testing.T) {
	s := setupRouter(t, "")
	token, userID := s.register("ann@example.com")

	resp, _ := s.do(http.MethodPost, "/api/v1/reviews", "", map[string]interface{}{"rating": 5, "review": "great"})
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	resp, _ = s.do(http.MethodPost, "/api/v1/reviews", token, map[string]interface{}{"rating": 9, "review": "great"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	resp, env := s.do(http.MethodPost, "/api/v1/reviews", token, map[string]interface{}{"rating": 5, "review": "great"})
	require.Equal(t, http.StatusOK, resp.Code)
	var review struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &review))
	resp, _ = s.do(http.MethodPost, "/api/v1/reviews", token, map[string]interface{}{"rating": 4, "review": "again"})
	require.Equal(t, http.StatusConflict, resp.Code)

	resp, _ = s.do(http.MethodPut, "/api/v1/reviews", token, map[string]interface{}{"reviewId": review.ID, "rating": 3, "review": "ok"})
	require.Equal(t, http.StatusOK, resp.Code)

	_, env = s.do(http.MethodGet, "/api/v1/reviews", "", nil)
	var summary struct {
		AverageRating float64 `json:"averageRating"`
		TotalCount    int     `json:"totalCount"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	require.Equal(t, 1, summary.TotalCount)
	require.InDelta(t, 3, summary.AverageRating, 0.001)

	_, env = s.do(http.MethodGet, "/api/v1/reviews/"+userID, "", nil)
	require.Contains(t, string(env.Data), `"review":"ok"`)
	_, env = s.do(http.MethodGet, "/api/v1/reviews/nobody", "", nil)
	require.Contains(t, []string{"", "null"}, string(env.Data))
}

func TestLicenseRoutes(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/license/generate" {
			_, _ = w.Write([]byte(`{"licenseKey":"KEY"}`))
			return
		}
		http.Error(w, "unknown", http.StatusNotFound)
	}))
	defer upstream.Close()
	s := setupRouter(t, upstream.URL)

	resp, env := s.do(http.MethodPost, "/api/v1/license", "", map[string]string{"email": "ann@example.com"})
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"licenseKey":"KEY","licenseType":"personal"}`, string(env.Data))

	resp, _ = s.do(http.MethodPost, "/api/v1/license", "", map[string]string{})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp, env = s.do(http.MethodGet, "/api/v1/license?email=ann@example.com", "", nil)
	require.Equal(t, http.StatusBadGateway, resp.Code)
	require.Equal(t, errcode.ErrLicenseFailed, env.Code)
}
