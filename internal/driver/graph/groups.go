package graph

import (
	"context"
	"fmt"

	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	graphgroups "github.com/microsoftgraph/msgraph-sdk-go/groups"
	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"

	"github.com/clouddesk/tenantctl/internal/driver"
	"github.com/clouddesk/tenantctl/internal/intent"
)

// GroupDriver manages directory groups keyed by display name. The unified
// flag selects a Microsoft 365 group ("Unified" group type, mail enabled)
// versus a plain security group.
type GroupDriver struct {
	client  *msgraphsdk.GraphServiceClient
	unified bool
}

// NewGroup365Driver returns a driver for Microsoft 365 groups.
func NewGroup365Driver(client *msgraphsdk.GraphServiceClient) *GroupDriver {
	return &GroupDriver{client: client, unified: true}
}

// NewSecurityGroupDriver returns a driver for security groups.
func NewSecurityGroupDriver(client *msgraphsdk.GraphServiceClient) *GroupDriver {
	return &GroupDriver{client: client}
}

var _ driver.Driver = (*GroupDriver)(nil)
var _ driver.MemberAdder = (*GroupDriver)(nil)

// resolveGroupID looks a group up by display name, returning "" when absent.
func resolveGroupID(ctx context.Context, client *msgraphsdk.GraphServiceClient, name string) (string, error) {
	filter := fmt.Sprintf("displayName eq '%s'", escapeFilter(name))
	requestConfig := &graphgroups.GroupsRequestBuilderGetRequestConfiguration{
		QueryParameters: &graphgroups.GroupsRequestBuilderGetQueryParameters{
			Filter: &filter,
			Select: []string{"id", "displayName"},
		},
	}

	result, err := client.Groups().Get(ctx, requestConfig)
	if err != nil {
		return "", err
	}

	for _, group := range result.GetValue() {
		if group.GetId() != nil {
			return *group.GetId(), nil
		}
	}
	return "", nil
}

// addGroupMember resolves a user by principal name and appends it to the
// group's member list.
func addGroupMember(ctx context.Context, client *msgraphsdk.GraphServiceClient, groupID, member string) error {
	user, err := client.Users().ByUserId(member).Get(ctx, nil)
	if err != nil {
		return classify("add_member", member, err)
	}
	if user.GetId() == nil {
		return driver.NewError(driver.KindNotFound, "add_member", member,
			fmt.Errorf("user %q has no id", member))
	}

	ref := graphmodels.NewReferenceCreate()
	odataID := "https://graph.microsoft.com/v1.0/directoryObjects/" + *user.GetId()
	ref.SetOdataId(&odataID)

	if err := client.Groups().ByGroupId(groupID).Members().Ref().Post(ctx, ref, nil); err != nil {
		return classify("add_member", member, err)
	}
	return nil
}

func (d *GroupDriver) Exists(ctx context.Context, key string) (bool, error) {
	id, err := resolveGroupID(ctx, d.client, key)
	if err != nil {
		return false, classify("exists", key, err)
	}
	return id != "", nil
}

func (d *GroupDriver) Create(ctx context.Context, in intent.Intent) (driver.Handle, error) {
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

	mailEnabled := d.unified
	securityEnabled := !d.unified
	group.SetMailEnabled(&mailEnabled)
	group.SetSecurityEnabled(&securityEnabled)
	if d.unified {
		group.SetGroupTypes([]string{"Unified"})
		if visibility := in.Attr(intent.AttrVisibility); visibility != "" {
			group.SetVisibility(&visibility)
		}
	}

	created, err := d.client.Groups().Post(ctx, group, nil)
	if err != nil {
		return driver.Handle{}, classify("create", in.Key, err)
	}
	if created.GetId() == nil {
		return driver.Handle{}, driver.NewError(driver.KindTransient, "create", in.Key,
			fmt.Errorf("create response carried no id"))
	}

	return driver.Handle{ID: *created.GetId(), Key: in.Key}, nil
}

func (d *GroupDriver) Remove(ctx context.Context, key string) error {
	id, err := resolveGroupID(ctx, d.client, key)
	if err != nil {
		return classify("remove", key, err)
	}
	if id == "" {
		return driver.NewError(driver.KindNotFound, "remove", key, fmt.Errorf("group %q not found", key))
	}

	if err := d.client.Groups().ByGroupId(id).Delete(ctx, nil); err != nil {
		return classify("remove", key, err)
	}
	return nil
}

// AddMember adds a user, referenced by principal name, to the group.
func (d *GroupDriver) AddMember(ctx context.Context, handle driver.Handle, member string) error {
	return addGroupMember(ctx, d.client, handle.ID, member)
}
