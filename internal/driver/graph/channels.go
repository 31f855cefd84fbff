package graph

import (
	"context"
	"fmt"
	"strings"

	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"
	graphteams "github.com/microsoftgraph/msgraph-sdk-go/teams"

	"github.com/clouddesk/tenantctl/internal/driver"
	"github.com/clouddesk/tenantctl/internal/intent"
)

// ChannelDriver manages channels keyed as "<team display name>/<channel
// display name>", the composite form the mapper produces.
type ChannelDriver struct {
	client *msgraphsdk.GraphServiceClient
}

// NewChannelDriver returns a driver for team channels.
func NewChannelDriver(client *msgraphsdk.GraphServiceClient) *ChannelDriver {
	return &ChannelDriver{client: client}
}

var _ driver.Driver = (*ChannelDriver)(nil)

func splitChannelKey(key string) (team, channel string, err error) {
	parts := strings.SplitN(key, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("channel key %q is not of the form team/channel", key)
	}
	return parts[0], parts[1], nil
}

func (d *ChannelDriver) teamID(ctx context.Context, op, key, teamName string) (string, error) {
	groupID, err := resolveGroupID(ctx, d.client, teamName)
	if err != nil {
		return "", classify(op, key, err)
	}
	if groupID == "" {
		return "", driver.NewError(driver.KindNotFound, op, key,
			fmt.Errorf("parent team %q not found", teamName))
	}
	return groupID, nil
}

func (d *ChannelDriver) findChannel(ctx context.Context, teamID, name string) (string, error) {
	filter := fmt.Sprintf("displayName eq '%s'", escapeFilter(name))
	requestConfig := &graphteams.ItemChannelsRequestBuilderGetRequestConfiguration{
		QueryParameters: &graphteams.ItemChannelsRequestBuilderGetQueryParameters{
			Filter: &filter,
		},
	}

	result, err := d.client.Teams().ByTeamId(teamID).Channels().Get(ctx, requestConfig)
	if err != nil {
		return "", err
	}

	for _, channel := range result.GetValue() {
		if channel.GetId() != nil {
			return *channel.GetId(), nil
		}
	}
	return "", nil
}

func (d *ChannelDriver) Exists(ctx context.Context, key string) (bool, error) {
	teamName, channelName, err := splitChannelKey(key)
	if err != nil {
		return false, driver.NewError(driver.KindPermanent, "exists", key, err)
	}

	groupID, err := resolveGroupID(ctx, d.client, teamName)
	if err != nil {
		return false, classify("exists", key, err)
	}
	if groupID == "" {
		// No parent team, so the channel cannot exist either.
		return false, nil
	}

	channelID, err := d.findChannel(ctx, groupID, channelName)
	if err != nil {
		return false, classify("exists", key, err)
	}
	return channelID != "", nil
}

func (d *ChannelDriver) Create(ctx context.Context, in intent.Intent) (driver.Handle, error) {
	teamName, channelName, err := splitChannelKey(in.Key)
	if err != nil {
		return driver.Handle{}, driver.NewError(driver.KindPermanent, "create", in.Key, err)
	}

	teamID, err := d.teamID(ctx, "create", in.Key, teamName)
	if err != nil {
		return driver.Handle{}, err
	}

	channel := graphmodels.NewChannel()
	channel.SetDisplayName(&channelName)
	if description := in.Attr(intent.AttrDescription); description != "" {
		channel.SetDescription(&description)
	}

	created, err := d.client.Teams().ByTeamId(teamID).Channels().Post(ctx, channel, nil)
	if err != nil {
		return driver.Handle{}, classify("create", in.Key, err)
	}
	if created.GetId() == nil {
		return driver.Handle{}, driver.NewError(driver.KindTransient, "create", in.Key,
			fmt.Errorf("create response carried no id"))
	}

	return driver.Handle{ID: *created.GetId(), Key: in.Key}, nil
}

func (d *ChannelDriver) Remove(ctx context.Context, key string) error {
	teamName, channelName, err := splitChannelKey(key)
	if err != nil {
		return driver.NewError(driver.KindPermanent, "remove", key, err)
	}

	teamID, err := d.teamID(ctx, "remove", key, teamName)
	if err != nil {
		return err
	}

	channelID, err := d.findChannel(ctx, teamID, channelName)
	if err != nil {
		return classify("remove", key, err)
	}
	if channelID == "" {
		return driver.NewError(driver.KindNotFound, "remove", key,
			fmt.Errorf("channel %q not found", channelName))
	}

	if err := d.client.Teams().ByTeamId(teamID).Channels().ByChannelId(channelID).Delete(ctx, nil); err != nil {
		return classify("remove", key, err)
	}
	return nil
}
