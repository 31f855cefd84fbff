package graph

import (
	"context"
	"fmt"
	"time"

	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"

	"github.com/clouddesk/tenantctl/internal/driver"
	"github.com/clouddesk/tenantctl/internal/intent"
)

// Teams are backed by a unified group; provisioning the team on a freshly
// created group races directory replication, so the PUT is retried a few
// times before giving up.
const (
	teamPutAttempts = 5
	teamPutDelay    = 3 * time.Second
)

// TeamDriver manages Teams teams keyed by display name.
type TeamDriver struct {
	client *msgraphsdk.GraphServiceClient
}

// NewTeamDriver returns a driver for teams.
func NewTeamDriver(client *msgraphsdk.GraphServiceClient) *TeamDriver {
	return &TeamDriver{client: client}
}

var _ driver.Driver = (*TeamDriver)(nil)
var _ driver.MemberAdder = (*TeamDriver)(nil)

func (d *TeamDriver) Exists(ctx context.Context, key string) (bool, error) {
	groupID, err := resolveGroupID(ctx, d.client, key)
	if err != nil {
		return false, classify("exists", key, err)
	}
	if groupID == "" {
		return false, nil
	}

	// A group with the right name may exist without being team-enabled yet.
	if _, err := d.client.Teams().ByTeamId(groupID).Get(ctx, nil); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classify("exists", key, err)
	}
	return true, nil
}

func (d *TeamDriver) Create(ctx context.Context, in intent.Intent) (driver.Handle, error) {
	groupID, err := resolveGroupID(ctx, d.client, in.Key)
	if err != nil {
		return driver.Handle{}, classify("create", in.Key, err)
	}

	if groupID == "" {
		group := graphmodels.NewGroup()
		group.SetDisplayName(&in.Key)
		nick := in.Attr(intent.AttrNickname)
		if nick == "" {
			nick = mailNickname(in.Key)
		}
		group.SetMailNickname(&nick)
		if description := in.Attr(intent.AttrDescription); description != "" {
			group.SetDescription(&description)
		}
		mailEnabled := true
		securityEnabled := false
		group.SetMailEnabled(&mailEnabled)
		group.SetSecurityEnabled(&securityEnabled)
		group.SetGroupTypes([]string{"Unified"})
		if visibility := in.Attr(intent.AttrVisibility); visibility != "" {
			group.SetVisibility(&visibility)
		}

		created, err := d.client.Groups().Post(ctx, group, nil)
		if err != nil {
			return driver.Handle{}, classify("create", in.Key, err)
		}
		if created.GetId() == nil {
			return driver.Handle{}, driver.NewError(driver.KindTransient, "create", in.Key,
				fmt.Errorf("group create response carried no id"))
		}
		groupID = *created.GetId()
	}

	if err := d.enableTeam(ctx, groupID, in.Key); err != nil {
		return driver.Handle{}, err
	}

	return driver.Handle{ID: groupID, Key: in.Key}, nil
}

func (d *TeamDriver) enableTeam(ctx context.Context, groupID, key string) error {
	team := graphmodels.NewTeam()

	var lastErr error
	for attempt := 1; attempt <= teamPutAttempts; attempt++ {
		_, err := d.client.Groups().ByGroupId(groupID).Team().Put(ctx, team, nil)
		if err == nil {
			return nil
		}
		lastErr = err

		classified := classify("create", key, err)
		if !driver.IsTransient(classified) && !isNotFound(err) {
			return classified
		}
		if attempt == teamPutAttempts {
			break
		}

		timer := time.NewTimer(teamPutDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return driver.NewError(driver.KindTransient, "create", key, ctx.Err())
		case <-timer.C:
		}
	}

	return driver.NewError(driver.KindTransient, "create", key,
		fmt.Errorf("team provisioning did not settle after %d attempts: %w", teamPutAttempts, lastErr))
}

func (d *TeamDriver) Remove(ctx context.Context, key string) error {
	groupID, err := resolveGroupID(ctx, d.client, key)
	if err != nil {
		return classify("remove", key, err)
	}
	if groupID == "" {
		return driver.NewError(driver.KindNotFound, "remove", key, fmt.Errorf("team %q not found", key))
	}

	// Deleting the backing group tears the team down with it.
	if err := d.client.Groups().ByGroupId(groupID).Delete(ctx, nil); err != nil {
		return classify("remove", key, err)
	}
	return nil
}

// AddMember adds a user to the team's backing group.
func (d *TeamDriver) AddMember(ctx context.Context, handle driver.Handle, member string) error {
	return addGroupMember(ctx, d.client, handle.ID, member)
}
