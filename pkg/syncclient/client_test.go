package syncclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ecospectre-be/pkg/scan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(id, owner string, ts int64) scan.Record {
	return scan.Record{
		ID:        id,
		UserID:    owner,
		Timestamp: ts,
		Context: scan.ScanContext{
			DetectedLabels: []string{"can"},
			PackagingType:  "aluminium can",
			MaterialHints:  "aluminium",
			Image:          "/photos/c.jpg",
			ImageThumb:     "file:///thumbs/c.jpg",
		},
		Score: scan.SustainabilityScore{
			Score:     71,
			Breakdown: scan.Breakdown{Materials: 25, Packaging: 20, Certifications: 6, CategoryBaseline: 20},
		},
		Action:  scan.ActionConsumed,
		Pending: true,
	}
}

func TestCreateScanSendsFlatPayloadWithHeaders(t *testing.T) {
	var (
		gotHeader http.Header
		gotBody   map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/scans", r.URL.Path)
		gotHeader = r.Header.Clone()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"srv-1","storage":"memory"}`))
	}))
	defer srv.Close()

	client := NewAPIClient(Config{BaseURL: srv.URL + "/api/", Tokens: StaticToken("tok")})
	res, err := client.CreateScan(context.Background(), sampleRecord("local-1", scan.LocalUserID, 1000), "local-1")
	require.NoError(t, err)

	assert.Equal(t, "srv-1", res.ID)
	assert.Equal(t, "memory", res.Storage)
	assert.Equal(t, "local-1", gotHeader.Get("Idempotency-Key"))
	assert.Equal(t, "Bearer tok", gotHeader.Get("Authorization"))
	assert.Equal(t, 71.0, gotBody["score"])
	assert.Equal(t, "aluminium can", gotBody["packaging_type"])
	assert.Equal(t, "consumed", gotBody["action"])
	assert.NotContains(t, gotBody, "userId")
	assert.Contains(t, gotBody["breakdown"], "category_baseline")
}

func TestCreateScanClaimsNonLocalOwner(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"srv-2"}`))
	}))
	defer srv.Close()

	_, err := NewAPIClient(Config{BaseURL: srv.URL}).CreateScan(context.Background(), sampleRecord("local-2", "user-9", 1000), "local-2")
	require.NoError(t, err)
	assert.Equal(t, "user-9", gotBody["userId"])
}

func TestNon2xxBecomesAPIError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"json message", http.StatusBadRequest, `{"message":"Missing required fields: score"}`, "Missing required fields: score"},
		{"unauthorized", http.StatusUnauthorized, `{"message":"Invalid credentials"}`, "Invalid credentials"},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, "Network error"},
		{"empty body", http.StatusInternalServerError, ``, "Network error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewAPIClient(Config{BaseURL: srv.URL}).Login(context.Background(), "a@b.c", "pw")

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.False(t, scan.IsTransient(err))
		})
	}
}

func TestTimeoutIsTransientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := NewAPIClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Health(context.Background())

	var tne *scan.TransientNetworkError
	require.ErrorAs(t, err, &tne)
	assert.Equal(t, "GET /health", tne.Op)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, scan.IsTransient(err))
}

func TestConnectionRefusedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewAPIClient(Config{BaseURL: url}).ListScans(context.Background(), nil, nil)

	var tne *scan.TransientNetworkError
	assert.ErrorAs(t, err, &tne)
}

func TestCallerCancellationIsNotTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := NewAPIClient(Config{BaseURL: srv.URL}).Health(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, scan.IsTransient(err))
}

func TestListScansSendsDateRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-01-01T00:00:00Z", r.URL.Query().Get("startDate"))
		assert.Equal(t, "2024-01-31T00:00:00Z", r.URL.Query().Get("endDate"))
		_, _ = w.Write([]byte(`[{"id":"a","timestamp":5,"action":"rejected","score":{"score":10,"breakdown":{"materials":1,"packaging":2,"certifications":3,"category_baseline":4},"top_factors":[]},"context":{"detected_labels":[],"packaging_type":"box","material_hints":"paper","image_thumb":"t.jpg","user_note":""}}]`))
	}))
	defer srv.Close()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	scans, err := NewAPIClient(Config{BaseURL: srv.URL}).ListScans(context.Background(), &start, &end)
	require.NoError(t, err)

	require.Len(t, scans, 1)
	assert.Equal(t, "a", scans[0].ID)
	assert.Equal(t, scan.ActionRejected, scans[0].Action)
	assert.Equal(t, 4.0, scans[0].Score.Breakdown.CategoryBaseline)
	assert.Equal(t, "t.jpg", scans[0].Context.ImageThumb)
}

func TestRegisterDecodesSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/register", r.URL.Path)
		var body credentials
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.c", body.Email)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":"jwt","user":{"id":"u1","email":"a@b.c"}}`))
	}))
	defer srv.Close()

	session, err := NewAPIClient(Config{BaseURL: srv.URL}).Register(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt", session.Token)
	assert.Equal(t, "u1", session.User.ID)
}

func TestTokenSourceErrorStopsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	tokens := TokenFunc(func() (string, error) { return "", errors.New("keyring locked") })
	_, err := NewAPIClient(Config{BaseURL: srv.URL, Tokens: tokens}).Health(context.Background())
	assert.Error(t, err)
	assert.False(t, called)
}
