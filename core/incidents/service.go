package incidents

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"time"

	"watchpost/core/auth"
	"watchpost/core/geo"
	"watchpost/core/geocode"
	"watchpost/core/rbac"
	"watchpost/core/store"
	"watchpost/core/utils"
)

var archiveHeader = []string{"Title", "Description", "Location", "Lat", "Lng", "Created At", "Resolved At", "Resolved By"}

// Service is the command surface used by transports. It owns authorization for
// reads and delegates transitions to the Engine.
type Service struct {
	store    store.IncidentsStore
	archive  store.ArchiveStore
	users    store.UsersStore
	geocoder geocode.Geocoder
	policy   *rbac.Policy
	clock    utils.Clock
	logger   *utils.Logger

	Engine *Engine
	Query  *Query
}

type Deps struct {
	Incidents store.IncidentsStore
	Archive   store.ArchiveStore
	Users     store.UsersStore
	Geocoder  geocode.Geocoder
	Policy    *rbac.Policy
	Clock     utils.Clock
	Logger    *utils.Logger
	Engine    *Engine
	Query     *Query
}

func NewService(d Deps) *Service {
	clock := d.Clock
	if clock == nil {
		clock = utils.SystemClock{}
	}
	gc := d.Geocoder
	if gc == nil {
		gc = geocode.Disabled{}
	}
	return &Service{
		store: d.Incidents, archive: d.Archive, users: d.Users, geocoder: gc,
		policy: d.Policy, clock: clock, logger: d.Logger, Engine: d.Engine, Query: d.Query,
	}
}

// Submit validates the report and stores it as a new unassigned incident.
// When coordinates are missing the location is geocoded first; a geocoder
// failure leaves the store untouched.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*store.Incident, error) {
	const op = "incidents.submit"
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var point geo.Point
	if req.HasCoordinates() {
		point = geo.Point{Lat: *req.Lat, Lng: *req.Lng}
	} else {
		p, err := s.geocoder.Geocode(ctx, req.Location)
		if err != nil {
			s.logger.Errorf("geocode %q: %v", req.Location, err)
			return nil, wrap(op, ErrGeocodeFailed)
		}
		if !p.Valid() {
			return nil, wrap(op, ErrGeocodeFailed)
		}
		point = p
	}
	inc := &store.Incident{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Lat:         point.Lat,
		Lng:         point.Lng,
		CreatedAt:   s.clock.Now(),
	}
	if _, err := s.store.CreateIncident(ctx, inc); err != nil {
		return nil, err
	}
	s.logger.Printf("incident submitted id=%d", inc.ID)
	return inc, nil
}

// Get returns a single incident shaped for the caller. Resolved incidents past
// their retention window are reported as missing even before a sweep runs.
func (s *Service) Get(ctx context.Context, actor auth.Identity, id int64) (View, error) {
	inc, err := s.store.GetIncident(ctx, id)
	if err != nil {
		return View{}, err
	}
	if inc == nil {
		return View{}, wrap("incidents.get", ErrNotFound)
	}
	now := s.clock.Now()
	if s.Query != nil && s.Query.expired(inc, now) {
		return View{}, wrap("incidents.get", ErrNotFound)
	}
	if !s.isStaff(actor) {
		return PublicView(inc), nil
	}
	if inc.Resolved && s.Query != nil {
		v := ResolvedView(inc, now, s.Query.ttl)
		v.AssignedTo = inc.AssignedTo
		return v, nil
	}
	return StaffView(inc, s.userExists(ctx)), nil
}

type ListParams struct {
	Search         string
	Viewer         *geo.Point
	NearbyOnly     bool
	UnassignedOnly bool
}

// List serves the admin view to callers holding incidents.admin.view and the
// public view to everyone else.
func (s *Service) List(ctx context.Context, actor auth.Identity, p ListParams) ([]View, error) {
	if s.policy.Allowed(actor.Roles(), rbac.PermIncidentsAdminView) {
		return s.Query.ListForAdmin(ctx, p.Search, p.UnassignedOnly)
	}
	return s.Query.ListPublicOpen(ctx, p.Search, p.Viewer, p.NearbyOnly)
}

func (s *Service) ListAssigned(ctx context.Context, actor auth.Identity) ([]View, error) {
	if err := s.require(actor, rbac.PermIncidentsAssignedView, "incidents.assigned"); err != nil {
		return nil, err
	}
	return s.Query.ListForResolver(ctx, actor.Username)
}

func (s *Service) ListResolved(ctx context.Context) ([]View, error) {
	return s.Query.ListResolved(ctx)
}

func (s *Service) Assign(ctx context.Context, actor auth.Identity, id int64, username *string) (*store.Incident, error) {
	return s.Engine.Assign(ctx, actor, id, username)
}

func (s *Service) Resolve(ctx context.Context, actor auth.Identity, id int64) (*store.Incident, error) {
	return s.Engine.Resolve(ctx, actor, id)
}

// ExportResolvedArchive renders every archived resolution as CSV. Archive rows
// survive retention, so an empty archive means nothing was ever resolved and
// is reported as ErrNotFound.
func (s *Service) ExportResolvedArchive(ctx context.Context, actor auth.Identity) ([]byte, error) {
	const op = "incidents.export"
	if err := s.require(actor, rbac.PermArchiveExport, op); err != nil {
		return nil, err
	}
	entries, err := s.archive.ListArchive(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, wrap(op, ErrNotFound)
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write(archiveHeader)
	for _, e := range entries {
		_ = w.Write([]string{
			e.Title,
			e.Description,
			e.Location,
			strconv.FormatFloat(e.Lat, 'f', -1, 64),
			strconv.FormatFloat(e.Lng, 'f', -1, 64),
			e.CreatedAt.UTC().Format(time.RFC3339),
			e.ResolvedAt.UTC().Format(time.RFC3339),
			e.ResolvedBy,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Service) ListUsers(ctx context.Context, actor auth.Identity) ([]store.User, error) {
	if err := s.require(actor, rbac.PermUsersView, "users.list"); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []store.User{}
	}
	return users, nil
}

func (s *Service) require(actor auth.Identity, perm rbac.Permission, op string) error {
	if s.policy.Allowed(actor.Roles(), perm) {
		return nil
	}
	if !actor.Authenticated() {
		return wrap(op, ErrUnauthenticated)
	}
	return wrap(op, ErrForbidden)
}

func (s *Service) isStaff(actor auth.Identity) bool {
	roles := actor.Roles()
	return s.policy.Allowed(roles, rbac.PermIncidentsAdminView) || s.policy.Allowed(roles, rbac.PermIncidentsAssignedView)
}

func (s *Service) userExists(ctx context.Context) func(string) bool {
	return func(name string) bool {
		u, err := s.users.FindByUsername(ctx, name)
		return err == nil && u != nil
	}
}
