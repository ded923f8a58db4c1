package incidents

import (
	"context"
	"sort"
	"strings"
	"time"

	"watchpost/config"
	"watchpost/core/geo"
	"watchpost/core/store"
	"watchpost/core/utils"
)

// Query answers the read side. Every list is built from one store read, so a
// result never mixes states from before and after a concurrent mutation.
type Query struct {
	store    store.IncidentsStore
	users    store.UsersStore
	sweeper  *Sweeper
	clock    utils.Clock
	ttl      time.Duration
	radiusKm float64
	lazy     bool
}

type QueryOptions struct {
	RetentionTTL time.Duration
	RadiusKm     float64
	// LazySweep deletes expired resolved incidents whenever the resolved list is read.
	LazySweep bool
}

func NewQuery(is store.IncidentsStore, users store.UsersStore, sweeper *Sweeper, clock utils.Clock, opts QueryOptions) *Query {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	q := &Query{store: is, users: users, sweeper: sweeper, clock: clock, ttl: opts.RetentionTTL, radiusKm: opts.RadiusKm, lazy: opts.LazySweep}
	if q.ttl <= 0 {
		q.ttl = config.DefaultRetentionTTL
	}
	if q.radiusKm <= 0 {
		q.radiusKm = config.DefaultRadiusKm
	}
	return q
}

func (q *Query) RadiusKm() float64 { return q.radiusKm }

// ListPublicOpen returns open incidents newest first. The radius filter only
// applies when nearbyOnly is set and a viewer location is known.
func (q *Query) ListPublicOpen(ctx context.Context, search string, viewer *geo.Point, nearbyOnly bool) ([]View, error) {
	items, err := q.store.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(items)
	res := make([]View, 0, len(items))
	for i := range items {
		inc := &items[i]
		if !matches(search, inc.Title, inc.Description, inc.Location) {
			continue
		}
		v := PublicView(inc)
		if viewer != nil {
			d := geo.Distance(*viewer, geo.Point{Lat: inc.Lat, Lng: inc.Lng})
			if nearbyOnly && d > q.radiusKm {
				continue
			}
			v.DistanceKm = &d
		}
		res = append(res, v)
	}
	return res, nil
}

// ListForAdmin searches title and description only.
func (q *Query) ListForAdmin(ctx context.Context, search string, unassignedOnly bool) ([]View, error) {
	items, err := q.store.ListIncidents(ctx, store.IncidentFilter{UnassignedOnly: unassignedOnly})
	if err != nil {
		return nil, err
	}
	known, err := q.knownUsers(ctx)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(items)
	res := make([]View, 0, len(items))
	for i := range items {
		inc := &items[i]
		if !matches(search, inc.Title, inc.Description) {
			continue
		}
		res = append(res, StaffView(inc, known))
	}
	return res, nil
}

func (q *Query) ListForResolver(ctx context.Context, username string) ([]View, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return []View{}, nil
	}
	items, err := q.store.ListIncidents(ctx, store.IncidentFilter{AssignedTo: username})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(items)
	res := make([]View, 0, len(items))
	for i := range items {
		res = append(res, StaffView(&items[i], nil))
	}
	return res, nil
}

// ListResolved returns resolved incidents still inside their retention
// window, most recently resolved first.
func (q *Query) ListResolved(ctx context.Context) ([]View, error) {
	if q.lazy && q.sweeper != nil {
		if _, err := q.sweeper.RunOnce(ctx); err != nil {
			return nil, err
		}
	}
	items, err := q.store.ListResolved(ctx)
	if err != nil {
		return nil, err
	}
	now := q.clock.Now()
	sort.SliceStable(items, func(i, j int) bool {
		return resolvedTime(&items[i]).After(resolvedTime(&items[j]))
	})
	res := make([]View, 0, len(items))
	for i := range items {
		inc := &items[i]
		if q.expired(inc, now) {
			continue
		}
		res = append(res, ResolvedView(inc, now, q.ttl))
	}
	return res, nil
}

func (q *Query) expired(inc *store.Incident, now time.Time) bool {
	return inc.Resolved && inc.ResolvedAt != nil && Eligible(*inc.ResolvedAt, now, q.ttl)
}

func (q *Query) knownUsers(ctx context.Context) (func(string) bool, error) {
	if q.users == nil {
		return nil, nil
	}
	users, err := q.users.List(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(users))
	for _, u := range users {
		set[u.Username] = struct{}{}
	}
	return func(name string) bool {
		_, ok := set[name]
		return ok
	}, nil
}

func matches(search string, fields ...string) bool {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func sortNewestFirst(items []store.Incident) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

func resolvedTime(inc *store.Incident) time.Time {
	if inc.ResolvedAt == nil {
		return time.Time{}
	}
	return *inc.ResolvedAt
}
