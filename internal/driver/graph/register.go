package graph

import (
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"

	"github.com/clouddesk/tenantctl/internal/driver"
	"github.com/clouddesk/tenantctl/internal/intent"
)

// Register wires every Graph-backed driver into the set. Distribution and
// mail-enabled security groups are deliberately absent: Graph v1.0 exposes
// them read-only, so a Graph-only run reports those rows as failed.
func Register(set *driver.Set, client *msgraphsdk.GraphServiceClient) error {
	registrations := []struct {
		resourceType intent.ResourceType
		d            driver.Driver
	}{
		{intent.TypeGroup365, NewGroup365Driver(client)},
		{intent.TypeSecurity, NewSecurityGroupDriver(client)},
		{intent.TypeTeam, NewTeamDriver(client)},
		{intent.TypeChannel, NewChannelDriver(client)},
		{intent.TypeUser, NewUserDriver(client)},
	}

	for _, r := range registrations {
		if err := set.Register(r.resourceType, r.d); err != nil {
			return err
		}
	}
	return nil
}
