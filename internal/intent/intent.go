package intent

// ResourceType identifies which driver an intent is routed to.
type ResourceType string

const (
	// TypeGroup365 is a Microsoft 365 (unified) group.
	TypeGroup365 ResourceType = "group365"
	// TypeDistribution is an Exchange distribution list.
	TypeDistribution ResourceType = "distribution"
	// TypeMailEnabledSecurity is an Exchange mail-enabled security group.
	TypeMailEnabledSecurity ResourceType = "mailsecurity"
	// TypeSecurity is a directory security group.
	TypeSecurity ResourceType = "security"
	// TypeTeam is a Microsoft Teams team.
	TypeTeam ResourceType = "team"
	// TypeChannel is a channel inside an existing team.
	TypeChannel ResourceType = "channel"
	// TypeSite is a SharePoint site.
	TypeSite ResourceType = "site"
	// TypeUser is a directory user account.
	TypeUser ResourceType = "user"
)

// Addressable reports whether the resource is keyed by an SMTP-style address,
// in which case a bare local-part in the input gets the tenant domain appended.
func (t ResourceType) Addressable() bool {
	switch t {
	case TypeUser, TypeDistribution, TypeMailEnabledSecurity:
		return true
	default:
		return false
	}
}

// EventuallyConsistent reports whether a successful create may not be visible
// to an immediate read, requiring poll-based verification. Plain security
// groups and users are visible as soon as the create call returns.
func (t ResourceType) EventuallyConsistent() bool {
	switch t {
	case TypeGroup365, TypeDistribution, TypeMailEnabledSecurity, TypeTeam, TypeChannel, TypeSite:
		return true
	default:
		return false
	}
}

// DesiredState expresses whether a resource should exist after the run.
type DesiredState string

const (
	// StatePresent means the resource should exist.
	StatePresent DesiredState = "present"
	// StateAbsent means the resource should not exist.
	StateAbsent DesiredState = "absent"
)

// Well-known attribute names carried on an Intent.
const (
	AttrDescription = "description"
	AttrOwner       = "owner"
	AttrVisibility  = "visibility"
	AttrNickname    = "nickname"
	AttrPassword    = "password"
)

// Intent is a single desired-state record for one resource. Immutable once
// built by the mapper; consumed exactly once per reconciliation pass.
type Intent struct {
	Type         ResourceType
	Key          string
	DesiredState DesiredState
	Attributes   map[string]string
	// Members lists member references (user principal names) to add after a
	// successful create.
	Members []string
	// Parent names the containing resource for nested types, e.g. the team
	// a channel belongs to.
	Parent string
	// Row is the 1-based source row, carried for reporting.
	Row int
}

// Attr returns the named attribute or the empty string.
func (i Intent) Attr(name string) string {
	return i.Attributes[name]
}
