package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"creatorx/internal/events"
	"creatorx/internal/logger"
	"creatorx/internal/market"
	"creatorx/internal/middleware"
	"creatorx/internal/testutil"
	"creatorx/internal/validator"
	"creatorx/internal/worker"
)

const testPipelineKey = "test-pipeline-key"

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// taskRecorder holds follow-up tasks until the test drains them, so the
// flow stays deterministic.
type taskRecorder struct {
	mu    sync.Mutex
	tasks []worker.Task
}

func (r *taskRecorder) Enqueue(task worker.Task) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return true, nil
}

// drain runs queued tasks, including any they enqueue, until none remain.
func (r *taskRecorder) drain(t *testing.T) {
	t.Helper()
	for {
		r.mu.Lock()
		tasks := r.tasks
		r.tasks = nil
		r.mu.Unlock()
		if len(tasks) == 0 {
			return
		}
		for _, task := range tasks {
			if err := task.Run(context.Background()); err != nil {
				t.Fatalf("task %s failed: %v", task.Key, err)
			}
		}
	}
}

// testApp holds the full application stack for flow tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
	Events *events.Recorder
	tasks  *taskRecorder
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	recorder := events.NewRecorder()
	tasks := &taskRecorder{}
	svc := NewServices(db, market.DefaultParams(), recorder, tasks)
	router := NewRouter(svc, RouterConfig{
		Market:         market.DefaultParams(),
		PipelineAPIKey: testPipelineKey,
	})

	return &testApp{DB: db, Router: router, Events: recorder, tasks: tasks}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// pipeline makes a request to a pipeline route with the API key set.
func (app *testApp) pipeline(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.PipelineKeyHeader, testPipelineKey)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int, step string) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("%s: expected %d, got %d: %s", step, want, rec.Code, rec.Body.String())
	}
}

// registerUser registers a new user and returns the access token and user ID.
func (app *testApp) registerUser(t *testing.T, email string) (accessToken, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":"password123","display_name":"Test"}`, email)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	expectStatus(t, rec, http.StatusCreated, "register")
	result := parseJSON(t, rec)
	user := result["user"].(map[string]any)
	return result["access_token"].(string), user["id"].(string)
}

// issueStock issues a stock for the token's user and returns its ID.
func (app *testApp) issueStock(t *testing.T, token string, price, total, offering int64, rate float64) string {
	t.Helper()
	body := fmt.Sprintf(`{"initial_price":%d,"total_shares":%d,"initial_offering":%d,"dividend_rate":%g}`, price, total, offering, rate)
	rec := app.request("POST", "/api/v1/stocks", body, token)
	expectStatus(t, rec, http.StatusCreated, "issue stock")
	return parseJSON(t, rec)["stock"].(map[string]any)["id"].(string)
}

// deposit credits coins through the payment gateway route.
func (app *testApp) deposit(t *testing.T, userID string, amount int64) {
	t.Helper()
	body := fmt.Sprintf(`{"user_id":%q,"amount":%d,"reference":"pay-%s"}`, userID, amount, userID)
	expectStatus(t, app.pipeline("POST", "/api/v1/pipeline/deposits", body), http.StatusCreated, "deposit")
}

func (app *testApp) balance(t *testing.T, token string) float64 {
	t.Helper()
	rec := app.request("GET", "/api/v1/wallet", "", token)
	expectStatus(t, rec, http.StatusOK, "wallet")
	return parseJSON(t, rec)["wallet"].(map[string]any)["balance"].(float64)
}
