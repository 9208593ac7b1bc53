package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"waiver-sync/pkg/api"
	"waiver-sync/pkg/clients/shopify"
	"waiver-sync/pkg/clients/smartwaiver"
	"waiver-sync/pkg/config"
	"waiver-sync/pkg/services"
	"waiver-sync/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// smartwaiverTwin is a minimal httptest stand-in for the Smartwaiver API.
type smartwaiverTwin struct {
	waivers  map[string]map[string]any
	listIDs  []string
	queue    []string
	failList bool
	requests int
}

func (tw *smartwaiverTwin) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v4/waivers", func(w http.ResponseWriter, r *http.Request) {
		tw.requests++
		if tw.failList {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		summaries := make([]map[string]any, 0, len(tw.listIDs))
		for _, id := range tw.listIDs {
			summaries = append(summaries, map[string]any{"waiverId": id})
		}
		json.NewEncoder(w).Encode(map[string]any{"waivers": summaries})
	})
	mux.HandleFunc("/v4/waivers/", func(w http.ResponseWriter, r *http.Request) {
		tw.requests++
		id := strings.TrimPrefix(r.URL.Path, "/v4/waivers/")
		waiver, ok := tw.waivers[id]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"waiver": waiver})
	})
	mux.HandleFunc("/v4/webhooks/queue/account/dequeue", func(w http.ResponseWriter, r *http.Request) {
		tw.requests++
		if len(tw.queue) == 0 {
			json.NewEncoder(w).Encode(map[string]any{"message": nil})
			return
		}
		id := tw.queue[0]
		tw.queue = tw.queue[1:]
		json.NewEncoder(w).Encode(map[string]any{"message": map[string]any{"unique_id": id}})
	})
	return mux
}

// shopifyTwin is a minimal httptest stand-in for the Shopify Admin API.
type shopifyTwin struct {
	customers map[string]map[string]any // keyed by email
	nextID    int64
	creates   int
	updates   int
}

func (tw *shopifyTwin) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/customers/search.json", func(w http.ResponseWriter, r *http.Request) {
		email := strings.TrimPrefix(r.URL.Query().Get("query"), "email:")
		found := []map[string]any{}
		if c, ok := tw.customers[email]; ok {
			found = append(found, c)
		}
		json.NewEncoder(w).Encode(map[string]any{"customers": found})
	})
	mux.HandleFunc("/customers.json", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Customer map[string]any `json:"customer"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		tw.nextID++
		tw.creates++
		payload.Customer["id"] = tw.nextID
		tw.customers[payload.Customer["email"].(string)] = payload.Customer
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"customer": payload.Customer})
	})
	mux.HandleFunc("/customers/", func(w http.ResponseWriter, r *http.Request) {
		tw.updates++
		json.NewEncoder(w).Encode(map[string]any{"customer": map[string]any{}})
	})
	mux.HandleFunc("/metafields.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"metafield": map[string]any{"id": 1}})
	})
	mux.HandleFunc("/graphql.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"email":{"userErrors":[]},"sms":{"userErrors":[]}}}`)
	})
	return mux
}

type fixture struct {
	sw     *smartwaiverTwin
	shop   *shopifyTwin
	router *gin.Engine
}

func setup(t *testing.T, webhookSecret string) *fixture {
	t.Helper()

	sw := &smartwaiverTwin{waivers: make(map[string]map[string]any)}
	shop := &shopifyTwin{customers: make(map[string]map[string]any)}

	swSrv := httptest.NewServer(sw.handler())
	t.Cleanup(swSrv.Close)
	shopSrv := httptest.NewServer(shop.handler())
	t.Cleanup(shopSrv.Close)

	swClient := smartwaiver.NewClient("test-key", swSrv.URL)
	shopClient := shopify.NewClient("test-token", shopSrv.URL, nil)
	classifier := services.NewTagClassifier(config.DefaultTemplateTags())
	syncService := services.NewSyncService(swClient, shopClient, classifier, "smartwaiver.com", nil)

	router := gin.New()
	handlers := api.NewHandlers(syncService, swClient, 5*time.Minute, webhookSecret)
	handlers.Routes(router)

	return &fixture{sw: sw, shop: shop, router: router}
}

func (f *fixture) addWaiver(id string) {
	f.sw.waivers[id] = map[string]any{
		"waiverId":   id,
		"templateId": "qfyohqaysnfk4ybccqhyzk",
		"createdOn":  "2024-01-01T00:00:00Z",
		"participant": map[string]any{
			"email":     id + "@example.com",
			"firstName": "Test",
			"lastName":  "Person",
		},
	}
}

func (f *fixture) do(method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	f := setup(t, "")
	rec := f.do(http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestWebhookMissingUniqueID(t *testing.T) {
	f := setup(t, "")
	rec := f.do(http.MethodPost, "/webhook/waiver", []byte(`{}`), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if f.sw.requests != 0 {
		t.Errorf("malformed push must not touch the waiver source, saw %d requests", f.sw.requests)
	}
	if f.shop.creates+f.shop.updates != 0 {
		t.Error("malformed push must not touch the commerce platform")
	}
}

func TestWebhookInvalidJSON(t *testing.T) {
	f := setup(t, "")
	rec := f.do(http.MethodPost, "/webhook/waiver", []byte(`{not json`), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookProcessesPushedWaiver(t *testing.T) {
	f := setup(t, "")
	f.addWaiver("abc123")

	rec := f.do(http.MethodPost, "/webhook/waiver", []byte(`{"unique_id":"abc123"}`), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Synced 1 waivers.") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if f.shop.creates != 1 {
		t.Errorf("creates = %d", f.shop.creates)
	}
	created := f.shop.customers["abc123@example.com"]
	if created == nil {
		t.Fatal("customer not created")
	}
	if created["tags"] != "Signed Waiver, Action Sports Waiver" {
		t.Errorf("tags = %v", created["tags"])
	}
}

func TestWindowSyncEndToEnd(t *testing.T) {
	f := setup(t, "")
	f.addWaiver("w1")
	f.sw.listIDs = append(f.sw.listIDs, "w1")
	f.addWaiver("w2")
	f.sw.listIDs = append(f.sw.listIDs, "w2")

	rec := f.do(http.MethodGet, "/sync", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Synced 2 waivers.") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if f.shop.creates != 2 {
		t.Errorf("creates = %d", f.shop.creates)
	}
}

func TestWindowSyncFeedFailure(t *testing.T) {
	f := setup(t, "")
	f.sw.failList = true

	rec := f.do(http.MethodGet, "/sync", nil, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "error") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestQueueSyncEmptyQueue(t *testing.T) {
	f := setup(t, "")

	rec := f.do(http.MethodPost, "/sync/queue", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Synced 0 waivers.") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if f.shop.creates+f.shop.updates != 0 {
		t.Error("empty queue must not write to the platform")
	}
}

func TestQueueSyncProcessesNotification(t *testing.T) {
	f := setup(t, "")
	f.addWaiver("q1")
	f.sw.queue = []string{"q1"}

	rec := f.do(http.MethodPost, "/sync/queue", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Synced 1 waivers.") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestWebhookSignatureRejected(t *testing.T) {
	f := setup(t, "hook-secret")
	f.addWaiver("abc123")
	body := []byte(`{"unique_id":"abc123"}`)

	rec := f.do(http.MethodPost, "/webhook/waiver", body, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unsigned delivery: status = %d, want 401", rec.Code)
	}

	rec = f.do(http.MethodPost, "/webhook/waiver", body, map[string]string{
		"X-SW-Signature": "deadbeef",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad signature: status = %d, want 401", rec.Code)
	}
}

func TestWebhookSignatureAccepted(t *testing.T) {
	f := setup(t, "hook-secret")
	f.addWaiver("abc123")
	body := []byte(`{"unique_id":"abc123"}`)

	rec := f.do(http.MethodPost, "/webhook/waiver", body, map[string]string{
		"X-SW-Signature": utils.SignPayload(body, "hook-secret"),
	})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}
