package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"

	"github.com/clouddesk/tenantctl/internal/driver"
	"github.com/clouddesk/tenantctl/internal/intent"
)

// UserDriver manages directory users keyed by user principal name.
type UserDriver struct {
	client *msgraphsdk.GraphServiceClient
}

// NewUserDriver returns a driver for user accounts.
func NewUserDriver(client *msgraphsdk.GraphServiceClient) *UserDriver {
	return &UserDriver{client: client}
}

var _ driver.Driver = (*UserDriver)(nil)

func (d *UserDriver) Exists(ctx context.Context, key string) (bool, error) {
	_, err := d.client.Users().ByUserId(key).Get(ctx, nil)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classify("exists", key, err)
	}
	return true, nil
}

func (d *UserDriver) Create(ctx context.Context, in intent.Intent) (driver.Handle, error) {
	user := graphmodels.NewUser()
	user.SetUserPrincipalName(&in.Key)

	displayName := in.Attr(intent.AttrDescription)
	if displayName == "" {
		displayName = strings.SplitN(in.Key, "@", 2)[0]
	}
	user.SetDisplayName(&displayName)

	nick := mailNickname(strings.SplitN(in.Key, "@", 2)[0])
	user.SetMailNickname(&nick)

	enabled := true
	user.SetAccountEnabled(&enabled)

	password := in.Attr(intent.AttrPassword)
	if password == "" {
		// Lab accounts get a throwaway initial password; the forced change
		// at first sign-in makes its value irrelevant.
		password = "Tmp!" + uuid.NewString()
	}
	profile := graphmodels.NewPasswordProfile()
	profile.SetPassword(&password)
	forceChange := true
	profile.SetForceChangePasswordNextSignIn(&forceChange)
	user.SetPasswordProfile(profile)

	created, err := d.client.Users().Post(ctx, user, nil)
	if err != nil {
		return driver.Handle{}, classify("create", in.Key, err)
	}
	if created.GetId() == nil {
		return driver.Handle{}, driver.NewError(driver.KindTransient, "create", in.Key,
			fmt.Errorf("create response carried no id"))
	}

	return driver.Handle{ID: *created.GetId(), Key: in.Key}, nil
}

func (d *UserDriver) Remove(ctx context.Context, key string) error {
	if err := d.client.Users().ByUserId(key).Delete(ctx, nil); err != nil {
		return classify("remove", key, err)
	}
	return nil
}
