// Package graph binds the driver contract to Microsoft Graph. It covers the
// resource types Graph v1.0 can create: unified and security groups, users,
// teams and channels. Exchange-only group flavors have no Graph create API
// and no binding here.
package graph

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"

	"github.com/clouddesk/tenantctl/internal/driver"
)

const graphScope = "https://graph.microsoft.com/.default"

// Credentials identifies the app registration used for Graph calls.
type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// NewCredential builds a client-secret token credential.
func NewCredential(creds Credentials) (azcore.TokenCredential, error) {
	if creds.TenantID == "" || creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("graph: tenant id, client id and client secret are all required")
	}
	return azidentity.NewClientSecretCredential(creds.TenantID, creds.ClientID, creds.ClientSecret, nil)
}

// NewClient builds a Graph service client from a token credential.
func NewClient(cred azcore.TokenCredential) (*msgraphsdk.GraphServiceClient, error) {
	client, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, []string{graphScope})
	if err != nil {
		return nil, fmt.Errorf("graph: client initialization failed: %w", err)
	}
	return client, nil
}

// classify maps a Graph API failure onto the driver error taxonomy using the
// OData response status.
func classify(op, key string, err error) error {
	var oerr *odataerrors.ODataError
	if !errors.As(err, &oerr) {
		return driver.NewError(driver.KindTransient, op, key, err)
	}

	detail := err
	if inner := oerr.GetErrorEscaped(); inner != nil && inner.GetMessage() != nil {
		detail = fmt.Errorf("%s", *inner.GetMessage())
	}

	switch status := oerr.ResponseStatusCode; {
	case status == http.StatusConflict:
		return driver.NewError(driver.KindDuplicate, op, key, detail)
	case status == http.StatusNotFound:
		return driver.NewError(driver.KindNotFound, op, key, detail)
	case status == http.StatusTooManyRequests || status >= 500:
		return driver.NewError(driver.KindTransient, op, key, detail)
	default:
		return driver.NewError(driver.KindPermanent, op, key, detail)
	}
}

func isNotFound(err error) bool {
	var oerr *odataerrors.ODataError
	return errors.As(err, &oerr) && oerr.ResponseStatusCode == http.StatusNotFound
}

// escapeFilter doubles single quotes for OData filter literals.
func escapeFilter(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

// mailNickname derives a directory-safe alias from a display name or
// explicit nickname attribute.
func mailNickname(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			b.WriteRune('-')
		}
	}
	nick := strings.Trim(b.String(), "-")
	if nick == "" {
		nick = "group"
	}
	return nick
}
