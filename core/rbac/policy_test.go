package rbac

import "testing"

func TestDefaultPolicyTable(t *testing.T) {
	p := MustDefaultPolicy()
	cases := []struct {
		role string
		perm Permission
		want bool
	}{
		{RolePublic, PermIncidentsSubmit, true},
		{RolePublic, PermIncidentsAssign, false},
		{RolePublic, PermIncidentsResolveOwn, false},
		{RolePublic, PermArchiveExport, false},
		{RoleResolver, PermIncidentsResolveOwn, true},
		{RoleResolver, PermIncidentsResolveAny, false},
		{RoleResolver, PermIncidentsAssign, false},
		{RoleResolver, PermArchiveExport, true},
		{RoleAdmin, PermIncidentsAssign, true},
		{RoleAdmin, PermIncidentsResolveAny, true},
		{RoleAdmin, PermUsersView, true},
		{"Admin ", PermIncidentsAssign, true},
		{"ghost", PermIncidentsView, false},
	}
	for _, c := range cases {
		if got := p.Allowed([]string{c.role}, c.perm); got != c.want {
			t.Fatalf("%s/%s: got %v want %v", c.role, c.perm, got, c.want)
		}
	}
}

func TestAllowedAnyRole(t *testing.T) {
	p := MustDefaultPolicy()
	if !p.Allowed([]string{RolePublic, RoleAdmin}, PermIncidentsAssign) {
		t.Fatalf("expected admin role in list to grant assign")
	}
	if p.Allowed(nil, PermIncidentsView) {
		t.Fatalf("no roles must not grant anything")
	}
}

func TestKnownRole(t *testing.T) {
	p := MustDefaultPolicy()
	if !p.KnownRole("resolver") || p.KnownRole("superuser") {
		t.Fatalf("unexpected known role result")
	}
}
