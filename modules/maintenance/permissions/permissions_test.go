package permissions

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helmline/pms/pkg/composables"
)

func TestAllowed(t *testing.T) {
	require.True(t, Allowed(composables.RoleCrew, ResourceChangeRequest, ActionCreate))
	require.False(t, Allowed(composables.RoleCrew, ResourceChangeRequest, ActionReview))
	require.True(t, Allowed(composables.RoleReviewer, ResourceChangeRequest, ActionReview))

	require.True(t, Allowed(composables.RoleAdmin, ResourceImport, ActionImport))
	require.False(t, Allowed(composables.RoleReviewer, ResourceImport, ActionImport))
	require.True(t, Allowed(composables.RoleReviewer, ResourceImport, ActionRead))

	require.False(t, Allowed("stowaway", ResourceComponent, ActionRead))
}
