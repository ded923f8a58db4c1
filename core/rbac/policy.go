package rbac

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

type Permission string

const (
	RolePublic   = "public"
	RoleResolver = "resolver"
	RoleAdmin    = "admin"
)

const (
	PermIncidentsSubmit       Permission = "incidents.submit"
	PermIncidentsView         Permission = "incidents.view"
	PermIncidentsAdminView    Permission = "incidents.admin.view"
	PermIncidentsAssign       Permission = "incidents.assign"
	PermIncidentsResolveAny   Permission = "incidents.resolve.any"
	PermIncidentsResolveOwn   Permission = "incidents.resolve.assigned"
	PermIncidentsAssignedView Permission = "incidents.assigned.view"
	PermArchiveExport         Permission = "archive.export"
	PermUsersView             Permission = "users.view"
)

type Role struct {
	Name        string
	Permissions []Permission
}

const modelText = `
[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.act == p.act
`

func DefaultRoles() []Role {
	return []Role{
		{Name: RolePublic, Permissions: []Permission{PermIncidentsSubmit, PermIncidentsView}},
		{Name: RoleResolver, Permissions: []Permission{
			PermIncidentsSubmit, PermIncidentsView, PermIncidentsResolveOwn, PermIncidentsAssignedView, PermArchiveExport,
		}},
		{Name: RoleAdmin, Permissions: []Permission{
			PermIncidentsSubmit, PermIncidentsView, PermIncidentsAdminView, PermIncidentsAssign,
			PermIncidentsResolveAny, PermArchiveExport, PermUsersView,
		}},
	}
}

type Policy struct {
	enforcer *casbin.SyncedEnforcer
	roles    map[string]struct{}
}

func NewPolicy(roles []Role) (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("rbac model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("rbac enforcer: %w", err)
	}
	p := &Policy{enforcer: e, roles: map[string]struct{}{}}
	for _, r := range roles {
		name := normalizeRole(r.Name)
		p.roles[name] = struct{}{}
		for _, perm := range r.Permissions {
			if _, err := e.AddPolicy(name, string(perm)); err != nil {
				return nil, fmt.Errorf("rbac policy %s/%s: %w", name, perm, err)
			}
		}
	}
	return p, nil
}

func MustDefaultPolicy() *Policy {
	p, err := NewPolicy(DefaultRoles())
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Policy) Allowed(roles []string, perm Permission) bool {
	if p == nil || p.enforcer == nil {
		return false
	}
	for _, r := range roles {
		ok, err := p.enforcer.Enforce(normalizeRole(r), string(perm))
		if err == nil && ok {
			return true
		}
	}
	return false
}

func (p *Policy) KnownRole(role string) bool {
	if p == nil {
		return false
	}
	_, ok := p.roles[normalizeRole(role)]
	return ok
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
