// Package authz holds the pure authorization policy for organization-scoped
// actions. Decisions depend only on the requester's role, the action, and
// (for member management) the target's role; there is no I/O and no caching,
// so callers re-evaluate on every request.
package authz

import "fmt"

// Role is a member's role within one organization. Owner outranks Admin,
// which outranks Member and Viewer; Member and Viewer are incomparable.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

// Action is an organization-scoped operation gated by the policy.
type Action string

const (
	ActionCreateLead    Action = "create_lead"
	ActionUpdateLead    Action = "update_lead"
	ActionAssignLead    Action = "assign_lead"
	ActionDeleteLead    Action = "delete_lead"
	ActionUpdateOrg     Action = "update_org"
	ActionDeleteOrg     Action = "delete_org"
	ActionInviteMembers Action = "invite_members"
	ActionListMembers   Action = "list_members"
)

// ForbiddenError is returned when a member's role is insufficient for an
// action. It is distinct from ErrNotAMember, which callers signal when the
// requester has no membership in the organization at all.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return e.Reason }

// ErrNotAMember marks the access-boundary case: the actor holds no
// membership row for the organization. Handlers map it to a distinct
// client-visible code from role-based denials.
var ErrNotAMember = &NotAMemberError{}

// NotAMemberError is the concrete type behind ErrNotAMember.
type NotAMemberError struct{}

func (e *NotAMemberError) Error() string { return "not a member of this organization" }

func forbidden(format string, args ...any) error {
	return &ForbiddenError{Reason: fmt.Sprintf(format, args...)}
}

// Authorize decides whether a member with the given role may perform the
// action. It returns nil on allow and a *ForbiddenError with a
// human-readable reason on deny. Member-management actions carry a target
// role and go through AuthorizeMemberRemoval / AuthorizeRoleChange instead.
func Authorize(role Role, action Action) error {
	switch action {
	case ActionCreateLead, ActionUpdateLead:
		if role == RoleViewer {
			return forbidden("viewers cannot %s leads", verb(action))
		}
		return nil
	case ActionAssignLead:
		if role != RoleOwner && role != RoleAdmin {
			return forbidden("only owners and admins can assign leads")
		}
		return nil
	case ActionDeleteLead:
		if role != RoleOwner && role != RoleAdmin {
			return forbidden("only owners and admins can delete leads")
		}
		return nil
	case ActionUpdateOrg:
		if role != RoleOwner && role != RoleAdmin {
			return forbidden("only owners and admins can update the organization")
		}
		return nil
	case ActionInviteMembers:
		if role != RoleOwner && role != RoleAdmin {
			return forbidden("only owners and admins can invite members")
		}
		return nil
	case ActionDeleteOrg:
		if role != RoleOwner {
			return forbidden("only owners can delete the organization")
		}
		return nil
	case ActionListMembers:
		// Any member can list members; non-members never reach the policy.
		return nil
	}
	return forbidden("unknown action %q", action)
}

func verb(action Action) string {
	if action == ActionCreateLead {
		return "create"
	}
	return "update"
}

// AuthorizeMemberRemoval decides whether requester may remove a member whose
// current role is target. The Owner can never be removed via this path.
func AuthorizeMemberRemoval(requester, target Role) error {
	if requester != RoleOwner && requester != RoleAdmin {
		return forbidden("only owners and admins can remove members")
	}
	if target == RoleOwner {
		return forbidden("the owner cannot be removed")
	}
	if requester == RoleAdmin && target == RoleAdmin {
		return forbidden("admins cannot remove other admins")
	}
	return nil
}

// AuthorizeRoleChange decides whether requester may change a member's role
// from target to newRole. The Owner role is immutable in both directions:
// an Owner's role can never be changed, and no one can be promoted to Owner
// through this path.
func AuthorizeRoleChange(requester, target, newRole Role) error {
	if requester != RoleOwner && requester != RoleAdmin {
		return forbidden("only owners and admins can change member roles")
	}
	if target == RoleOwner {
		return forbidden("the owner's role cannot be changed")
	}
	if newRole == RoleOwner {
		return forbidden("members cannot be promoted to owner")
	}
	if requester == RoleAdmin {
		if target == RoleAdmin {
			return forbidden("admins cannot modify other admins")
		}
		if newRole == RoleAdmin {
			return forbidden("admins cannot promote members to admin")
		}
	}
	return nil
}
