package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ecospectre-be/internal/bootstrap"
	"ecospectre-be/internal/config"
	"ecospectre-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// offlineDB is a durable store that never comes up.
type offlineDB struct{}

func (offlineDB) DB() *gorm.DB           { return nil }
func (offlineDB) Reachable() bool        { return false }
func (offlineDB) ReportError(error) bool { return false }

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	t.Setenv("JWT_SECRET", "server-test-secret")

	cfg := &config.Config{
		App: config.AppConfig{CorsAllowedOrigins: "*"},
		Scans: config.ScanConfig{
			TransientCapacity: 1000,
			ListLimit:         100,
			IdempotencyTTL:    time.Hour,
		},
	}
	container := bootstrap.NewContainerWithInfra(bootstrap.Infra{DB: offlineDB{}}, cfg)
	t.Cleanup(container.Close)
	return New(cfg, container).GetApp()
}

const validScan = `{
	"score": 64,
	"breakdown": {"materials": 20, "packaging": 15, "certifications": 9, "category_baseline": 20},
	"detected_labels": ["can", "aluminium"],
	"packaging_type": "can",
	"material_hints": "aluminium",
	"action": "consumed"
}`

func do(t *testing.T, app *fiber.App, method, path, body, token string) (int, map[string]interface{}, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var obj map[string]interface{}
	_ = json.Unmarshal(raw, &obj)
	return resp.StatusCode, obj, raw
}

func listScans(t *testing.T, app *fiber.App, path, token string) []map[string]interface{} {
	t.Helper()
	status, _, raw := do(t, app, http.MethodGet, path, "", token)
	require.Equal(t, http.StatusOK, status, string(raw))
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &list))
	return list
}

func TestHealthReportsMemoryModeWhenDurableIsDown(t *testing.T) {
	app := newTestApp(t)

	status, body, _ := do(t, app, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["storage"])
}

func TestCreateScanFallsBackToMemory(t *testing.T) {
	app := newTestApp(t)

	status, body, raw := do(t, app, http.MethodPost, "/api/scans", validScan, "")
	require.Equal(t, http.StatusCreated, status, string(raw))
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, "memory", body["storage"])

	list := listScans(t, app, "/api/scans", "")
	require.Len(t, list, 1)
	assert.Equal(t, body["id"], list[0]["id"])

	score := list[0]["score"].(map[string]interface{})
	assert.Equal(t, 64.0, score["score"])
	assert.Equal(t, []interface{}{}, score["top_factors"])
	assert.Equal(t, "", score["suggestion"])
	ctx := list[0]["context"].(map[string]interface{})
	assert.Equal(t, "", ctx["user_note"])
	assert.Equal(t, "consumed", list[0]["action"])
}

func TestCreateScanAcceptsNestedScore(t *testing.T) {
	app := newTestApp(t)

	nested := `{
		"score": {"score": 40, "breakdown": {"materials": 10, "packaging": 10, "certifications": 10, "category_baseline": 10}},
		"detected_labels": [],
		"packaging_type": "box",
		"material_hints": "cardboard",
		"action": "rejected"
	}`
	status, _, raw := do(t, app, http.MethodPost, "/api/scans", nested, "")
	assert.Equal(t, http.StatusCreated, status, string(raw))
}

func TestCreateScanListsEveryMissingField(t *testing.T) {
	app := newTestApp(t)

	status, body, _ := do(t, app, http.MethodPost, "/api/scans", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t,
		"Missing required fields: score, breakdown, detected_labels, packaging_type, material_hints, action",
		body["message"])

	partial := `{"score": 10, "breakdown": {"materials": 1}, "detected_labels": [], "packaging_type": "x", "material_hints": "y", "action": "consumed"}`
	status, body, _ = do(t, app, http.MethodPost, "/api/scans", partial, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t,
		"Missing required fields: breakdown.packaging, breakdown.certifications, breakdown.category_baseline",
		body["message"])
}

func TestCreateScanNamesTheSingleMissingField(t *testing.T) {
	app := newTestApp(t)

	fields := []string{"score", "breakdown", "detected_labels", "packaging_type", "material_hints", "action"}
	for _, field := range fields {
		t.Run(field, func(t *testing.T) {
			var payload map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(validScan), &payload))
			delete(payload, field)
			body, err := json.Marshal(payload)
			require.NoError(t, err)

			status, resp, _ := do(t, app, http.MethodPost, "/api/scans", string(body), "")
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "Missing required fields: "+field, resp["message"])
		})
	}
}

func TestCreateScanTreatsWronglyTypedFieldsAsMissing(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name    string
		from    string
		to      string
		missing string
	}{
		{"numeric breakdown", `"breakdown": {"materials": 20, "packaging": 15, "certifications": 9, "category_baseline": 20}`, `"breakdown": 5`, "breakdown"},
		{"string labels", `"detected_labels": ["can", "aluminium"]`, `"detected_labels": "can"`, "detected_labels"},
		{"nested string score", `"score": 64`, `"score": {"score": "x"}`, "score"},
		{"numeric action", `"action": "consumed"`, `"action": 1`, "action"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := strings.Replace(validScan, tt.from, tt.to, 1)
			require.NotEqual(t, validScan, payload)

			status, body, _ := do(t, app, http.MethodPost, "/api/scans", payload, "")
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "Missing required fields: "+tt.missing, body["message"])
		})
	}
}

func TestCreateScanRejectsOutOfRangeScores(t *testing.T) {
	app := newTestApp(t)

	var messages []interface{}
	for _, score := range []string{"-5", "150"} {
		payload := strings.Replace(validScan, `"score": 64`, `"score": `+score, 1)
		status, body, _ := do(t, app, http.MethodPost, "/api/scans", payload, "")
		assert.Equal(t, http.StatusBadRequest, status)
		messages = append(messages, body["message"])
	}
	assert.Equal(t, "Invalid fields: score", messages[0])
	assert.Equal(t, messages[0], messages[1])

	bad := strings.Replace(validScan, `"consumed"`, `"kept"`, 1)
	status, body, _ := do(t, app, http.MethodPost, "/api/scans", bad, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid fields: action", body["message"])
}

func TestCreateScanRejectsMalformedJSON(t *testing.T) {
	app := newTestApp(t)

	status, body, _ := do(t, app, http.MethodPost, "/api/scans", `{"score":`, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, body["message"])
}

func TestIdentityGateScopesListings(t *testing.T) {
	app := newTestApp(t)

	alice, err := serverutils.SignToken("11111111-1111-4111-8111-111111111111", "alice@example.com", time.Now())
	require.NoError(t, err)
	bob, err := serverutils.SignToken("22222222-2222-4222-8222-222222222222", "bob@example.com", time.Now())
	require.NoError(t, err)

	status, _, _ := do(t, app, http.MethodPost, "/api/scans", validScan, alice)
	require.Equal(t, http.StatusCreated, status)
	status, _, _ = do(t, app, http.MethodPost, "/api/scans", validScan, bob)
	require.Equal(t, http.StatusCreated, status)
	// An invalid token degrades to guest instead of failing the write.
	status, _, _ = do(t, app, http.MethodPost, "/api/scans", validScan, "not-a-jwt")
	require.Equal(t, http.StatusCreated, status)

	assert.Len(t, listScans(t, app, "/api/scans", alice), 1)
	assert.Len(t, listScans(t, app, "/api/scans", bob), 1)
	assert.Len(t, listScans(t, app, "/api/scans", ""), 3)
}

func TestListScansValidatesDates(t *testing.T) {
	app := newTestApp(t)

	status, body, _ := do(t, app, http.MethodGet, "/api/scans?startDate=someday", "", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid fields: startDate", body["message"])

	assert.Empty(t, listScans(t, app, "/api/scans?startDate=2024-01-01&endDate=2024-01-31", ""))
}

func TestIdempotencyKeyReturnsOriginalScan(t *testing.T) {
	app := newTestApp(t)

	send := func() string {
		req := httptest.NewRequest(http.MethodPost, "/api/scans", strings.NewReader(validScan))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "local-abc")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body["id"]
	}

	assert.Equal(t, send(), send())
	assert.Len(t, listScans(t, app, "/api/scans", ""), 1)
}

func TestUserRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)

	status, body, _ := do(t, app, http.MethodGet, "/api/users/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Missing token", body["message"])

	status, body, _ = do(t, app, http.MethodGet, "/api/users/me", "", "garbage")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid token", body["message"])
}

func TestAuthNeedsDurableStore(t *testing.T) {
	app := newTestApp(t)

	status, body, _ := do(t, app, http.MethodPost, "/api/auth/register", `{"email":"a@b.c","password":"pw"}`, "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.NotEmpty(t, body["message"])

	status, body, _ = do(t, app, http.MethodPost, "/api/auth/login", `{"email":"","password":""}`, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Email and password are required", body["message"])
}

func TestScanFeedRequiresToken(t *testing.T) {
	app := newTestApp(t)

	status, body, _ := do(t, app, http.MethodGet, "/api/scans/feed", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Missing token", body["message"])

	token, err := serverutils.SignToken("11111111-1111-4111-8111-111111111111", "alice@example.com", time.Now())
	require.NoError(t, err)
	status, _, _ = do(t, app, http.MethodGet, "/api/scans/feed?token="+token, "", "")
	assert.Equal(t, http.StatusUpgradeRequired, status)
}
