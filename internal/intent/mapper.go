package intent

import (
	"fmt"
	"strings"

	"github.com/clouddesk/tenantctl/internal/tabular"
)

// Context carries the tenant-level defaults applied while mapping rows.
type Context struct {
	// Domain is appended to bare local-parts of addressable keys and member
	// references, e.g. "jdoe" -> "jdoe@contoso.com".
	Domain string
	// DefaultOwner substitutes a blank owner column.
	DefaultOwner string
}

// IssueReason classifies why a row was skipped by the mapper.
type IssueReason string

const (
	// ReasonUnknownType means the type column did not resolve to a resource type.
	ReasonUnknownType IssueReason = "unknown_type"
	// ReasonMissingField means a required column was blank.
	ReasonMissingField IssueReason = "missing_required_field"
)

// Issue reports one skipped row. Issues never abort the batch.
type Issue struct {
	Row    int
	Reason IssueReason
	Detail string
}

func (i Issue) String() string {
	return fmt.Sprintf("row %d skipped (%s): %s", i.Row, i.Reason, i.Detail)
}

// Recognized column names of a batch file.
const (
	colType        = "type"
	colName        = "name"
	colDescription = "description"
	colOwner       = "owner"
	colMembers     = "members"
	colVisibility  = "visibility"
	colNickname    = "nickname"
	colPassword    = "password"
	colParent      = "parent"
	colState       = "state"
)

var typeAliases = map[string]ResourceType{
	"group365":     TypeGroup365,
	"m365":         TypeGroup365,
	"unified":      TypeGroup365,
	"distribution": TypeDistribution,
	"dl":           TypeDistribution,
	"mailsecurity": TypeMailEnabledSecurity,
	"mailsec":      TypeMailEnabledSecurity,
	"security":     TypeSecurity,
	"team":         TypeTeam,
	"channel":      TypeChannel,
	"site":         TypeSite,
	"user":         TypeUser,
}

// ParseResourceType resolves a type tag from the batch file. Tags are matched
// case-insensitively and accept the common short aliases.
func ParseResourceType(tag string) (ResourceType, bool) {
	t, ok := typeAliases[strings.ToLower(strings.TrimSpace(tag))]
	return t, ok
}

// Map converts batch records into intents, applying the domain-suffix and
// default-owner policies. It performs no I/O and is deterministic: the same
// records and context always yield the same intents. Rows that cannot be
// mapped are reported as issues and skipped; they never abort the batch.
func Map(records []tabular.Record, mapCtx Context) ([]Intent, []Issue) {
	intents := make([]Intent, 0, len(records))
	var issues []Issue

	for _, rec := range records {
		in, issue := mapRecord(rec, mapCtx)
		if issue != nil {
			issues = append(issues, *issue)
			continue
		}
		intents = append(intents, in)
	}

	return intents, issues
}

func mapRecord(rec tabular.Record, mapCtx Context) (Intent, *Issue) {
	typeTag := rec.Get(colType)
	if typeTag == "" {
		return Intent{}, &Issue{Row: rec.Row, Reason: ReasonMissingField, Detail: "type column is blank"}
	}

	resourceType, ok := ParseResourceType(typeTag)
	if !ok {
		return Intent{}, &Issue{Row: rec.Row, Reason: ReasonUnknownType, Detail: fmt.Sprintf("unrecognized type %q", typeTag)}
	}

	name := rec.Get(colName)
	if name == "" {
		return Intent{}, &Issue{Row: rec.Row, Reason: ReasonMissingField, Detail: "name column is blank"}
	}

	parent := rec.Get(colParent)
	if resourceType == TypeChannel && parent == "" {
		return Intent{}, &Issue{Row: rec.Row, Reason: ReasonMissingField, Detail: "channel rows require a parent team"}
	}

	key := name
	switch {
	case resourceType.Addressable():
		key = qualify(name, mapCtx.Domain)
	case resourceType == TypeChannel:
		// Channel names are only unique within a team, so the key carries
		// the parent to keep batch keys unique.
		key = parent + "/" + name
	}

	state := StatePresent
	switch strings.ToLower(rec.Get(colState)) {
	case "", "present":
	case "absent", "remove":
		state = StateAbsent
	default:
		return Intent{}, &Issue{Row: rec.Row, Reason: ReasonMissingField, Detail: fmt.Sprintf("unrecognized state %q", rec.Get(colState))}
	}

	attrs := map[string]string{}
	if v := rec.Get(colDescription); v != "" {
		attrs[AttrDescription] = v
	}
	if v := rec.Get(colVisibility); v != "" {
		attrs[AttrVisibility] = strings.ToLower(v)
	}
	if v := rec.Get(colNickname); v != "" {
		attrs[AttrNickname] = v
	}
	if v := rec.Get(colPassword); v != "" {
		attrs[AttrPassword] = v
	}

	owner := rec.Get(colOwner)
	if owner == "" {
		owner = mapCtx.DefaultOwner
	}
	if owner != "" {
		attrs[AttrOwner] = qualify(owner, mapCtx.Domain)
	}

	var members []string
	for _, m := range strings.Split(rec.Get(colMembers), ";") {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		members = append(members, qualify(m, mapCtx.Domain))
	}

	return Intent{
		Type:         resourceType,
		Key:          key,
		DesiredState: state,
		Attributes:   attrs,
		Members:      members,
		Parent:       parent,
		Row:          rec.Row,
	}, nil
}

// qualify appends the tenant domain to a bare local-part. Values that already
// carry a domain pass through untouched.
func qualify(value, domain string) string {
	if domain == "" || strings.Contains(value, "@") {
		return value
	}
	return value + "@" + domain
}
