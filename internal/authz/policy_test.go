package authz

import "testing"

func TestAuthorizeTable(t *testing.T) {
	allRoles := []Role{RoleOwner, RoleAdmin, RoleMember, RoleViewer}

	tests := []struct {
		action  Action
		allowed map[Role]bool
	}{
		{ActionCreateLead, map[Role]bool{RoleOwner: true, RoleAdmin: true, RoleMember: true, RoleViewer: false}},
		{ActionUpdateLead, map[Role]bool{RoleOwner: true, RoleAdmin: true, RoleMember: true, RoleViewer: false}},
		{ActionAssignLead, map[Role]bool{RoleOwner: true, RoleAdmin: true, RoleMember: false, RoleViewer: false}},
		{ActionDeleteLead, map[Role]bool{RoleOwner: true, RoleAdmin: true, RoleMember: false, RoleViewer: false}},
		{ActionUpdateOrg, map[Role]bool{RoleOwner: true, RoleAdmin: true, RoleMember: false, RoleViewer: false}},
		{ActionInviteMembers, map[Role]bool{RoleOwner: true, RoleAdmin: true, RoleMember: false, RoleViewer: false}},
		{ActionDeleteOrg, map[Role]bool{RoleOwner: true, RoleAdmin: false, RoleMember: false, RoleViewer: false}},
		{ActionListMembers, map[Role]bool{RoleOwner: true, RoleAdmin: true, RoleMember: true, RoleViewer: true}},
	}

	for _, tt := range tests {
		for _, role := range allRoles {
			err := Authorize(role, tt.action)
			if tt.allowed[role] && err != nil {
				t.Errorf("Authorize(%s, %s): expected allow, got %v", role, tt.action, err)
			}
			if !tt.allowed[role] && err == nil {
				t.Errorf("Authorize(%s, %s): expected deny, got allow", role, tt.action)
			}
		}
	}
}

func TestAuthorizeDenialIsForbidden(t *testing.T) {
	err := Authorize(RoleViewer, ActionCreateLead)
	if err == nil {
		t.Fatal("expected denial")
	}
	fe, ok := err.(*ForbiddenError)
	if !ok {
		t.Fatalf("expected *ForbiddenError, got %T", err)
	}
	if fe.Reason == "" {
		t.Error("expected a human-readable reason")
	}
}

func TestAuthorizeUnknownAction(t *testing.T) {
	if err := Authorize(RoleOwner, Action("destroy_everything")); err == nil {
		t.Fatal("expected deny for unknown action")
	}
}

func TestAuthorizeMemberRemoval(t *testing.T) {
	tests := []struct {
		name      string
		requester Role
		target    Role
		allow     bool
	}{
		{"owner removes member", RoleOwner, RoleMember, true},
		{"owner removes viewer", RoleOwner, RoleViewer, true},
		{"owner removes admin", RoleOwner, RoleAdmin, true},
		{"owner cannot remove owner", RoleOwner, RoleOwner, false},
		{"admin removes member", RoleAdmin, RoleMember, true},
		{"admin removes viewer", RoleAdmin, RoleViewer, true},
		{"admin cannot remove admin", RoleAdmin, RoleAdmin, false},
		{"admin cannot remove owner", RoleAdmin, RoleOwner, false},
		{"member cannot remove anyone", RoleMember, RoleViewer, false},
		{"viewer cannot remove anyone", RoleViewer, RoleMember, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AuthorizeMemberRemoval(tt.requester, tt.target)
			if tt.allow && err != nil {
				t.Errorf("expected allow, got %v", err)
			}
			if !tt.allow && err == nil {
				t.Error("expected deny, got allow")
			}
		})
	}
}

func TestAuthorizeRoleChange(t *testing.T) {
	tests := []struct {
		name      string
		requester Role
		target    Role
		newRole   Role
		allow     bool
	}{
		{"owner promotes member to admin", RoleOwner, RoleMember, RoleAdmin, true},
		{"owner demotes admin to viewer", RoleOwner, RoleAdmin, RoleViewer, true},
		{"owner cannot change owner", RoleOwner, RoleOwner, RoleMember, false},
		{"owner cannot promote to owner", RoleOwner, RoleMember, RoleOwner, false},
		{"admin changes member to viewer", RoleAdmin, RoleMember, RoleViewer, true},
		{"admin cannot touch admin", RoleAdmin, RoleAdmin, RoleMember, false},
		{"admin cannot touch owner", RoleAdmin, RoleOwner, RoleMember, false},
		{"admin cannot promote to admin", RoleAdmin, RoleMember, RoleAdmin, false},
		{"admin cannot promote to owner", RoleAdmin, RoleViewer, RoleOwner, false},
		{"member cannot change roles", RoleMember, RoleViewer, RoleMember, false},
		{"viewer cannot change roles", RoleViewer, RoleMember, RoleViewer, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AuthorizeRoleChange(tt.requester, tt.target, tt.newRole)
			if tt.allow && err != nil {
				t.Errorf("expected allow, got %v", err)
			}
			if !tt.allow && err == nil {
				t.Error("expected deny, got allow")
			}
		})
	}
}

// No sequence of admin role-change calls can move a target away from Owner
// or create a new Owner: every single step that touches an Owner target or
// names Owner as the new role is denied.
func TestOwnerImmutableUnderAdmin(t *testing.T) {
	roles := []Role{RoleOwner, RoleAdmin, RoleMember, RoleViewer}
	for _, target := range roles {
		for _, newRole := range roles {
			err := AuthorizeRoleChange(RoleAdmin, target, newRole)
			if target == RoleOwner && err == nil {
				t.Errorf("admin changed owner's role to %s", newRole)
			}
			if newRole == RoleOwner && err == nil {
				t.Errorf("admin promoted %s to owner", target)
			}
		}
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleOwner, RoleAdmin, RoleMember, RoleViewer} {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if Role("superuser").Valid() {
		t.Error("unknown role should be invalid")
	}
}
