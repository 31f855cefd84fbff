// Package sharepoint binds the driver contract to the SharePoint site
// management REST API (_api/SPSiteManager). There is no Go SDK for
// SharePoint administration; the surface needed here is three endpoints, so
// the driver speaks REST directly, authenticating through the same token
// credential the Graph bindings use.
package sharepoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"github.com/clouddesk/tenantctl/internal/driver"
	"github.com/clouddesk/tenantctl/internal/intent"
)

// Team-site web template, matching what the lab provisions.
const webTemplate = "STS#3"

// SiteDriver manages SharePoint sites keyed by display name. The site URL is
// derived from the key: "Project Alpha" lives at /sites/projectalpha.
type SiteDriver struct {
	cred       azcore.TokenCredential
	httpClient *http.Client
	baseURL    string
	scope      string
}

// NewSiteDriver returns a driver for the tenant's SharePoint host, e.g.
// "contoso.sharepoint.com".
func NewSiteDriver(cred azcore.TokenCredential, host string) *SiteDriver {
	base := "https://" + host
	return &SiteDriver{
		cred:       cred,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    base,
		scope:      base + "/.default",
	}
}

var _ driver.Driver = (*SiteDriver)(nil)

// slug reduces a display name to the URL segment SharePoint allows.
func slug(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "site"
	}
	return b.String()
}

func (d *SiteDriver) siteURL(key string) string {
	return d.baseURL + "/sites/" + slug(key)
}

func (d *SiteDriver) do(ctx context.Context, method, url string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json;odata=nometadata")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := d.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{d.scope}})
	if err != nil {
		return nil, fmt.Errorf("token acquisition failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Token)

	return d.httpClient.Do(req)
}

func classify(op, key string, status int, body string) error {
	err := fmt.Errorf("http %d: %s", status, strings.TrimSpace(body))
	switch {
	case status == http.StatusConflict:
		return driver.NewError(driver.KindDuplicate, op, key, err)
	case status == http.StatusNotFound:
		return driver.NewError(driver.KindNotFound, op, key, err)
	case status == http.StatusTooManyRequests || status >= 500:
		return driver.NewError(driver.KindTransient, op, key, err)
	default:
		return driver.NewError(driver.KindPermanent, op, key, err)
	}
}

// siteID reads the site collection id, or "" when the site does not exist.
func (d *SiteDriver) siteID(ctx context.Context, key string) (string, error) {
	resp, err := d.do(ctx, http.MethodGet, d.siteURL(key)+"/_api/site/id", nil)
	if err != nil {
		return "", driver.NewError(driver.KindTransient, "exists", key, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", classify("exists", key, resp.StatusCode, string(raw))
	}

	var payload struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", driver.NewError(driver.KindTransient, "exists", key,
			fmt.Errorf("malformed site id response: %w", err))
	}
	return payload.Value, nil
}

func (d *SiteDriver) Exists(ctx context.Context, key string) (bool, error) {
	id, err := d.siteID(ctx, key)
	if err != nil {
		return false, err
	}
	return id != "", nil
}

func (d *SiteDriver) Create(ctx context.Context, in intent.Intent) (driver.Handle, error) {
	request := map[string]any{
		"request": map[string]any{
			"Title":       in.Key,
			"Url":         d.siteURL(in.Key),
			"Lcid":        1033,
			"WebTemplate": webTemplate,
			"Owner":       in.Attr(intent.AttrOwner),
			"Description": in.Attr(intent.AttrDescription),
		},
	}

	resp, err := d.do(ctx, http.MethodPost, d.baseURL+"/_api/SPSiteManager/create", request)
	if err != nil {
		return driver.Handle{}, driver.NewError(driver.KindTransient, "create", in.Key, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return driver.Handle{}, classify("create", in.Key, resp.StatusCode, string(raw))
	}

	var payload struct {
		SiteID     string `json:"SiteId"`
		SiteStatus int    `json:"SiteStatus"`
		SiteURL    string `json:"SiteUrl"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return driver.Handle{}, driver.NewError(driver.KindTransient, "create", in.Key,
			fmt.Errorf("malformed create response: %w", err))
	}

	// SiteStatus 1 means still provisioning, 2 means ready; the engine's
	// verification poll covers the in-progress case. 3 is a hard error.
	if payload.SiteStatus != 1 && payload.SiteStatus != 2 {
		return driver.Handle{}, driver.NewError(driver.KindPermanent, "create", in.Key,
			fmt.Errorf("site provisioning reported status %d", payload.SiteStatus))
	}

	return driver.Handle{ID: payload.SiteID, Key: in.Key}, nil
}

func (d *SiteDriver) Remove(ctx context.Context, key string) error {
	id, err := d.siteID(ctx, key)
	if err != nil {
		return err
	}
	if id == "" {
		return driver.NewError(driver.KindNotFound, "remove", key, fmt.Errorf("site %q not found", key))
	}

	resp, err := d.do(ctx, http.MethodPost, d.baseURL+"/_api/SPSiteManager/delete",
		map[string]any{"siteId": id})
	if err != nil {
		return driver.NewError(driver.KindTransient, "remove", key, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return classify("remove", key, resp.StatusCode, string(raw))
	}
	return nil
}
