package sharepoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/require"

	"github.com/clouddesk/tenantctl/internal/driver"
	"github.com/clouddesk/tenantctl/internal/intent"
)

type staticCredential struct{}

func (staticCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "test-token", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func testDriver(server *httptest.Server) *SiteDriver {
	return &SiteDriver{
		cred:       staticCredential{},
		httpClient: server.Client(),
		baseURL:    server.URL,
		scope:      server.URL + "/.default",
	}
}

func TestSlug(t *testing.T) {
	t.Parallel()

	require.Equal(t, "projectalpha", slug("Project Alpha"))
	require.Equal(t, "hr2026", slug("HR-2026"))
	require.Equal(t, "site", slug("!!!"))
}

func TestExists(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/sites/projectalpha/_api/site/id":
			json.NewEncoder(w).Encode(map[string]string{"value": "11111111-2222-3333-4444-555555555555"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	d := testDriver(server)

	exists, err := d.Exists(context.Background(), "Project Alpha")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = d.Exists(context.Background(), "Ghost Site")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestCreate(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/_api/SPSiteManager/create", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{
			"SiteId":     "abc-123",
			"SiteStatus": 1,
			"SiteUrl":    "https://contoso.sharepoint.com/sites/projectalpha",
		})
	}))
	defer server.Close()

	d := testDriver(server)
	handle, err := d.Create(context.Background(), intent.Intent{
		Type: intent.TypeSite,
		Key:  "Project Alpha",
		Attributes: map[string]string{
			intent.AttrOwner:       "admin@contoso.com",
			intent.AttrDescription: "Lab project site",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "abc-123", handle.ID)

	request := captured["request"].(map[string]any)
	require.Equal(t, "Project Alpha", request["Title"])
	require.Equal(t, d.baseURL+"/sites/projectalpha", request["Url"])
	require.Equal(t, "admin@contoso.com", request["Owner"])
	require.Equal(t, webTemplate, request["WebTemplate"])
}

func TestCreateProvisioningError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"SiteStatus": 3})
	}))
	defer server.Close()

	_, err := testDriver(server).Create(context.Background(), intent.Intent{Key: "Broken"})
	require.Error(t, err)
	require.False(t, driver.IsTransient(err))
}

func TestCreateThrottledIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := testDriver(server).Create(context.Background(), intent.Intent{Key: "Busy"})
	require.True(t, driver.IsTransient(err))
}

func TestRemove(t *testing.T) {
	t.Parallel()

	var deletedID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sites/projectalpha/_api/site/id":
			json.NewEncoder(w).Encode(map[string]string{"value": "abc-123"})
		case "/_api/SPSiteManager/delete":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			deletedID = body["siteId"]
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	d := testDriver(server)
	require.NoError(t, d.Remove(context.Background(), "Project Alpha"))
	require.Equal(t, "abc-123", deletedID)

	err := d.Remove(context.Background(), "Ghost Site")
	require.True(t, driver.IsNotFound(err))
}
