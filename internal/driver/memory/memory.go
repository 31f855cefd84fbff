// Package memory provides an in-process driver backend. It backs engine and
// CLI tests and doubles as an offline target for rehearsing a batch without
// touching a tenant.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/clouddesk/tenantctl/internal/driver"
	"github.com/clouddesk/tenantctl/internal/intent"
)

type entry struct {
	id          string
	attributes  map[string]string
	members     []string
	hiddenReads int
}

// Store holds resource state shared by all per-type drivers derived from it.
// State persists across runs, so a second pass over the same batch observes
// what the first one created.
type Store struct {
	mu sync.Mutex
	// visibilityLag makes a freshly created resource invisible to that many
	// subsequent Exists calls, simulating an eventually consistent directory.
	visibilityLag int
	resources     map[string]*entry
}

// NewStore creates an empty store with immediate visibility.
func NewStore() *Store {
	return &Store{resources: make(map[string]*entry)}
}

// SetVisibilityLag configures how many Exists calls a new resource stays
// invisible for after Create returns.
func (s *Store) SetVisibilityLag(reads int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visibilityLag = reads
}

// Driver returns the store-backed driver for one resource type.
func (s *Store) Driver(t intent.ResourceType) driver.Driver {
	return &memoryDriver{store: s, resourceType: t}
}

// RegisterAll registers a driver for every resource type on the given set.
func (s *Store) RegisterAll(set *driver.Set) error {
	for _, t := range []intent.ResourceType{
		intent.TypeGroup365,
		intent.TypeDistribution,
		intent.TypeMailEnabledSecurity,
		intent.TypeSecurity,
		intent.TypeTeam,
		intent.TypeChannel,
		intent.TypeSite,
		intent.TypeUser,
	} {
		if err := set.Register(t, s.Driver(t)); err != nil {
			return err
		}
	}
	return nil
}

// Members returns the recorded members of a resource, for assertions.
func (s *Store) Members(t intent.ResourceType, key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.resources[scopedKey(t, key)]
	if !ok {
		return nil
	}
	return append([]string(nil), e.members...)
}

// Len reports how many resources the store currently holds.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resources)
}

func scopedKey(t intent.ResourceType, key string) string {
	return string(t) + "/" + key
}

type memoryDriver struct {
	store        *Store
	resourceType intent.ResourceType
}

var _ driver.Driver = (*memoryDriver)(nil)
var _ driver.MemberAdder = (*memoryDriver)(nil)

func (d *memoryDriver) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	e, ok := d.store.resources[scopedKey(d.resourceType, key)]
	if !ok {
		return false, nil
	}
	if e.hiddenReads > 0 {
		e.hiddenReads--
		return false, nil
	}
	return true, nil
}

func (d *memoryDriver) Create(ctx context.Context, in intent.Intent) (driver.Handle, error) {
	if err := ctx.Err(); err != nil {
		return driver.Handle{}, err
	}

	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	scoped := scopedKey(d.resourceType, in.Key)
	if _, exists := d.store.resources[scoped]; exists {
		return driver.Handle{}, driver.NewError(driver.KindDuplicate, "create", in.Key,
			fmt.Errorf("%s %q already exists", d.resourceType, in.Key))
	}

	attrs := make(map[string]string, len(in.Attributes))
	for k, v := range in.Attributes {
		attrs[k] = v
	}

	id := uuid.NewString()
	d.store.resources[scoped] = &entry{
		id:          id,
		attributes:  attrs,
		hiddenReads: d.store.visibilityLag,
	}

	return driver.Handle{ID: id, Key: in.Key}, nil
}

func (d *memoryDriver) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	scoped := scopedKey(d.resourceType, key)
	if _, exists := d.store.resources[scoped]; !exists {
		return driver.NewError(driver.KindNotFound, "remove", key,
			fmt.Errorf("%s %q not found", d.resourceType, key))
	}
	delete(d.store.resources, scoped)
	return nil
}

func (d *memoryDriver) AddMember(ctx context.Context, handle driver.Handle, member string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	e, ok := d.store.resources[scopedKey(d.resourceType, handle.Key)]
	if !ok {
		return driver.NewError(driver.KindNotFound, "add_member", handle.Key,
			fmt.Errorf("%s %q not found", d.resourceType, handle.Key))
	}
	e.members = append(e.members, member)
	return nil
}
