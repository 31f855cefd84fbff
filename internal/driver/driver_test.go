package driver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clouddesk/tenantctl/internal/intent"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	dup := NewError(KindDuplicate, "create", "Sales", errors.New("409"))
	require.True(t, IsDuplicate(dup))
	require.False(t, IsNotFound(dup))

	// Classification survives wrapping.
	wrapped := fmt.Errorf("group365: %w", dup)
	require.True(t, IsDuplicate(wrapped))

	notFound := NewError(KindNotFound, "remove", "Sales", errors.New("404"))
	require.True(t, IsNotFound(notFound))

	transient := NewError(KindTransient, "exists", "Sales", errors.New("429"))
	require.True(t, IsTransient(transient))

	require.False(t, IsDuplicate(errors.New("plain")))
}

func TestErrorUnwrap(t *testing.T) {
	t.Parallel()

	underlying := errors.New("insufficient privileges")
	err := NewError(KindPermanent, "create", "Admins", underlying)
	require.True(t, errors.Is(err, underlying))
	require.Contains(t, err.Error(), "Admins")
	require.Contains(t, err.Error(), "permanent")
}

type nopDriver struct{}

func (nopDriver) Exists(context.Context, string) (bool, error)          { return false, nil }
func (nopDriver) Create(context.Context, intent.Intent) (Handle, error) { return Handle{}, nil }
func (nopDriver) Remove(context.Context, string) error                  { return nil }

func TestSetRejectsDuplicateRegistration(t *testing.T) {
	t.Parallel()

	set := NewSet()
	require.NoError(t, set.Register(intent.TypeUser, nopDriver{}))
	require.Error(t, set.Register(intent.TypeUser, nopDriver{}))
	require.Error(t, set.Register(intent.TypeTeam, nil))
}

func TestSetGetAndTypes(t *testing.T) {
	t.Parallel()

	set := NewSet()
	require.NoError(t, set.Register(intent.TypeUser, nopDriver{}))
	require.NoError(t, set.Register(intent.TypeGroup365, nopDriver{}))

	_, ok := set.Get(intent.TypeUser)
	require.True(t, ok)
	_, ok = set.Get(intent.TypeSite)
	require.False(t, ok)

	require.Equal(t, []intent.ResourceType{intent.TypeGroup365, intent.TypeUser}, set.Types())
}
