package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/api-marketplace-gateway/internal/model"
	"github.com/api-marketplace-gateway/internal/service"
)

func TestPlansHandler(t *testing.T) {
	st := newFakeStore()
	st.apis[1] = &model.API{ID: 1, SupplierID: 9, Status: model.APIActive}
	st.plans = []*model.Plan{
		{APIID: 1, Name: "basic", Price: 1000, MaxRequests: 100, Duration: 3600, PriceID: "price_1"},
		{APIID: 2, Name: "other", Price: 1, MaxRequests: 1, Duration: 1},
	}

	r := chi.NewRouter()
	r.Method(http.MethodGet, "/apis/{id}/plans", NewPlansHandler(service.NewCatalogService(st, nil)))

	t.Run("lists the api's plans", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/apis/1/plans", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp PlansResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.APIID != 1 || len(resp.Plans) != 1 || resp.Plans[0].Name != "basic" {
			t.Fatalf("unexpected response: %+v", resp)
		}
		if resp.Plans[0].PriceID != "" {
			t.Fatalf("price id must not be exposed")
		}
	})

	t.Run("unknown api", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/apis/3/plans", nil))

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
