// Package permissions enumerates what the maintenance module lets each role
// do. Route middleware consults these when wiring the API.
package permissions

import "github.com/helmline/pms/pkg/composables"

type Resource string

type Action string

const (
	ResourceChangeRequest Resource = "pms.change_request"
	ResourceComponent     Resource = "pms.component"
	ResourceImport        Resource = "pms.import"
)

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionReview Action = "review"
	ActionImport Action = "import"
)

type Permission struct {
	Resource Resource
	Action   Action
	Roles    []string
}

var all = []Permission{
	{ResourceChangeRequest, ActionRead, []string{composables.RoleCrew, composables.RoleReviewer, composables.RoleAdmin}},
	{ResourceChangeRequest, ActionCreate, []string{composables.RoleCrew, composables.RoleReviewer, composables.RoleAdmin}},
	{ResourceChangeRequest, ActionReview, []string{composables.RoleReviewer, composables.RoleAdmin}},
	{ResourceComponent, ActionRead, []string{composables.RoleCrew, composables.RoleReviewer, composables.RoleAdmin}},
	{ResourceComponent, ActionCreate, []string{composables.RoleAdmin}},
	{ResourceImport, ActionImport, []string{composables.RoleAdmin}},
	{ResourceImport, ActionRead, []string{composables.RoleReviewer, composables.RoleAdmin}},
}

// Allowed reports whether role may perform action on resource.
func Allowed(role string, resource Resource, action Action) bool {
	for _, p := range all {
		if p.Resource != resource || p.Action != action {
			continue
		}
		for _, r := range p.Roles {
			if r == role {
				return true
			}
		}
	}
	return false
}
