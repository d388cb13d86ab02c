package draft

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripnav/internal/events"
	"tripnav/internal/geo"
	"tripnav/internal/model"
	"tripnav/internal/reconcile"
	"tripnav/internal/routing"
	"tripnav/internal/store"
	"tripnav/internal/transport"
)

var (
	moscow    = reconcile.LatLonPoint("msk", "Moscow center", 55.7558, 37.6173)
	redSquare = reconcile.LatLonPoint("red", "Red Square", 55.7539, 37.6208)
	vladimir  = reconcile.LatLonPoint("vla", "Vladimir center", 56.1286, 40.4066)
)

type mapRegistry map[string]geo.Point

func (m mapRegistry) Lookup(_ context.Context, id string) (geo.Point, bool) {
	p, ok := m[id]
	return p, ok
}

func unreachable() *routing.Builder {
	return routing.NewBuilder(routing.ProviderFunc(func(context.Context, [][2]float64, string) ([][2]float64, error) {
		return nil, errors.New("dial tcp: connection refused")
	}))
}

// blocking returns a builder whose provider waits for release.
func blocking(release <-chan struct{}) *routing.Builder {
	return routing.NewBuilder(routing.ProviderFunc(func(_ context.Context, coords [][2]float64, _ string) ([][2]float64, error) {
		<-release
		return coords, nil
	}))
}

func stage(t *testing.T, e *Engine, id string, raws ...reconcile.RawPoint) {
	t.Helper()
	for _, r := range raws {
		_, err := e.StagePoint(context.Background(), id, r)
		require.NoError(t, err)
	}
}

func TestBuildScenarioProviderUnreachable(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil, unreachable(), nil)
	d := e.Create(ctx, "Moscow - Vladimir")
	stage(t, e, d.ID, moscow, redSquare, vladimir)

	got, err := e.Build(ctx, d.ID, BuildOptions{Profile: transport.Car})
	require.NoError(t, err)
	assert.Equal(t, Built, got.Status)
	assert.Equal(t, routing.FallbackStraight, got.Outcome)
	assert.Len(t, got.Polyline, 3)
	assert.InDelta(t, 179, got.DistanceKm, 1.0)
	assert.Equal(t, 3.0, got.DurationHours)
	assert.InDelta(t, 945, got.CostCurrency, 5)

	codes := map[string]bool{}
	for _, w := range got.Warnings {
		codes[w.Code] = true
	}
	assert.True(t, codes[WarnDegradedRoute])

	for i, p := range got.Points {
		assert.Equal(t, i, p.OrderIndex)
	}
}

func TestBuildSinglePointFails(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil, unreachable(), nil)
	d := e.Create(ctx, "")
	stage(t, e, d.ID, moscow)

	got, err := e.Build(ctx, d.ID, BuildOptions{})
	assert.ErrorIs(t, err, ErrInsufficientPoints)
	assert.Equal(t, Failed, got.Status)
	assert.Empty(t, got.Polyline)
	assert.Zero(t, got.DistanceKm)
}

func TestBuildDropsBadPointsAndDuplicates(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil, unreachable(), nil)
	d := e.Create(ctx, "")
	stage(t, e, d.ID,
		moscow,
		reconcile.RawObject(map[string]any{"id": "junk", "name": "no coords"}),
		reconcile.LatLonPoint("zero", "placeholder", 0.00001, -0.00002),
		reconcile.LatLonPoint("", "moscow center", 55.7558, 37.6173),
		vladimir,
	)
	got, err := e.Build(ctx, d.ID, BuildOptions{})
	require.NoError(t, err)
	require.Len(t, got.Points, 2)
	assert.Equal(t, "msk", got.Points[0].ID)
	assert.Equal(t, "vla", got.Points[1].ID)

	var rejected []string
	dup := false
	for _, w := range got.Warnings {
		switch w.Code {
		case WarnRejectedPoint:
			rejected = append(rejected, w.PointID)
		case WarnDuplicatePoint:
			dup = true
		}
	}
	assert.ElementsMatch(t, []string{"junk", "zero"}, rejected)
	assert.True(t, dup)
}

func TestBuildWithoutPoints(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil, nil, nil)
	d := e.Create(ctx, "")
	_, err := e.Build(ctx, d.ID, BuildOptions{})
	assert.ErrorIs(t, err, ErrNoPoints)

	_, err = e.Build(ctx, "missing", BuildOptions{})
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestBuildSnapsAndNormalizesProviderAxes(t *testing.T) {
	ctx := context.Background()
	p := routing.ProviderFunc(func(_ context.Context, coords [][2]float64, profile string) ([][2]float64, error) {
		assert.Equal(t, "foot-walking", profile)
		return [][2]float64{coords[0], {38.9, 55.95}, {40.4066, 56.1286}}, nil
	})
	e := NewEngine(nil, routing.NewBuilder(p), nil)
	d := e.Create(ctx, "")
	stage(t, e, d.ID, moscow, vladimir)

	got, err := e.Build(ctx, d.ID, BuildOptions{Profile: transport.Walking})
	require.NoError(t, err)
	assert.Equal(t, routing.ProviderSnapped, got.Outcome)
	require.Len(t, got.Polyline, 3)
	assert.Equal(t, geo.Point{Lat: 56.1286, Lon: 40.4066}, got.Polyline[2])
	assert.Zero(t, got.CostCurrency)
	assert.Greater(t, got.DurationHours, 30.0)
}

func TestConcurrentBuildRejected(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	e := NewEngine(nil, blocking(release), nil)
	d := e.Create(ctx, "")
	stage(t, e, d.ID, moscow, vladimir)

	done := make(chan error, 1)
	go func() {
		_, err := e.Build(ctx, d.ID, BuildOptions{})
		done <- err
	}()
	require.Eventually(t, func() bool {
		s, _ := e.Snapshot(d.ID)
		return s.Status == Building
	}, time.Second, 5*time.Millisecond)

	_, err := e.Build(ctx, d.ID, BuildOptions{})
	assert.ErrorIs(t, err, ErrBuildInProgress)
	_, err = e.StagePoint(ctx, d.ID, redSquare)
	assert.ErrorIs(t, err, ErrBuildInProgress)

	close(release)
	require.NoError(t, <-done)
	s, err := e.Snapshot(d.ID)
	require.NoError(t, err)
	assert.Equal(t, Built, s.Status)
}

func TestResetDuringBuildDiscardsResult(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	e := NewEngine(nil, blocking(release), nil)
	d := e.Create(ctx, "")
	stage(t, e, d.ID, moscow, vladimir)

	done := make(chan error, 1)
	go func() {
		_, err := e.Build(ctx, d.ID, BuildOptions{})
		done <- err
	}()
	require.Eventually(t, func() bool {
		s, _ := e.Snapshot(d.ID)
		return s.Status == Building
	}, time.Second, 5*time.Millisecond)

	_, err := e.Reset(ctx, d.ID)
	require.NoError(t, err)
	close(release)
	assert.ErrorIs(t, <-done, ErrBuildDiscarded)

	s, _ := e.Snapshot(d.ID)
	assert.Equal(t, Idle, s.Status)
	assert.Empty(t, s.Staged)
	assert.Empty(t, s.Polyline)
}

func TestEditAfterBuildReturnsToIdle(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil, nil, nil)
	d := e.Create(ctx, "")
	stage(t, e, d.ID, moscow, vladimir)
	_, err := e.Build(ctx, d.ID, BuildOptions{})
	require.NoError(t, err)

	stage(t, e, d.ID, redSquare)
	s, _ := e.Snapshot(d.ID)
	assert.Equal(t, Idle, s.Status)
	assert.Empty(t, s.Polyline)
	assert.Zero(t, s.DistanceKm)
	assert.Len(t, s.Staged, 3)

	// a rebuild from built is allowed
	_, err = e.Build(ctx, d.ID, BuildOptions{})
	require.NoError(t, err)
	s, err = e.Build(ctx, d.ID, BuildOptions{Profile: transport.Bicycle})
	require.NoError(t, err)
	assert.Equal(t, transport.Bicycle, s.Profile)
}

func TestFailedDraftRecoversAfterEdit(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil, nil, nil)
	d := e.Create(ctx, "")
	stage(t, e, d.ID, moscow)
	_, err := e.Build(ctx, d.ID, BuildOptions{})
	require.ErrorIs(t, err, ErrInsufficientPoints)

	stage(t, e, d.ID, vladimir)
	s, err := e.Build(ctx, d.ID, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, Built, s.Status)
}

func TestRemoveAndReorder(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil, nil, nil)
	d := e.Create(ctx, "")
	stage(t, e, d.ID, moscow, redSquare, vladimir)

	require.NoError(t, e.ReorderPoints(ctx, d.ID, []string{"vla", "msk", "red"}))
	s, _ := e.Snapshot(d.ID)
	assert.Equal(t, "vla", s.Staged[0].ID)
	assert.Equal(t, 2, s.Staged[2].OrderIndex)

	assert.ErrorIs(t, e.ReorderPoints(ctx, d.ID, []string{"vla", "vla", "red"}), ErrInvalidOrder)
	assert.ErrorIs(t, e.ReorderPoints(ctx, d.ID, []string{"vla"}), ErrInvalidOrder)

	require.NoError(t, e.RemovePoint(ctx, d.ID, "msk"))
	assert.ErrorIs(t, e.RemovePoint(ctx, d.ID, "msk"), ErrPointNotFound)
	s, _ = e.Snapshot(d.ID)
	require.Len(t, s.Staged, 2)
	assert.Equal(t, "red", s.Staged[1].ID)
	assert.Equal(t, 1, s.Staged[1].OrderIndex)
}

func TestStageAssignsIDs(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil, nil, nil)
	d := e.Create(ctx, "")
	sp, err := e.StagePoint(ctx, d.ID, reconcile.RawPair(55.75, 37.61))
	require.NoError(t, err)
	assert.NotEmpty(t, sp.ID)
	assert.Equal(t, sp.ID, sp.Raw.ID())

	_, err = e.StagePoint(ctx, d.ID, reconcile.RawPoint{})
	assert.ErrorIs(t, err, reconcile.ErrMalformedPoint)
}

func TestPickHandle(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil, nil, nil)
	d := e.Create(ctx, "")
	stage(t, e, d.ID, moscow, vladimir)

	h, err := e.BeginPick(d.ID, 1)
	require.NoError(t, err)
	sp, err := e.CompletePick(ctx, h.ID, redSquare)
	require.NoError(t, err)
	assert.Equal(t, 1, sp.OrderIndex)

	s, _ := e.Snapshot(d.ID)
	assert.Equal(t, []string{"msk", "red", "vla"}, stagedIDs(s))

	_, err = e.CompletePick(ctx, h.ID, redSquare)
	assert.ErrorIs(t, err, ErrPickNotFound)

	h, err = e.BeginPick(d.ID, -1)
	require.NoError(t, err)
	require.NoError(t, e.CancelPick(h.ID))
	assert.ErrorIs(t, e.CancelPick(h.ID), ErrPickNotFound)

	_, err = e.BeginPick("missing", 0)
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestOptimizeOrderKeepsEndpoints(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil, nil, nil)
	d := e.Create(ctx, "")
	stage(t, e, d.ID,
		reconcile.LatLonPoint("a", "", 55.0, 37.0),
		reconcile.LatLonPoint("c", "", 55.0, 39.0),
		reconcile.LatLonPoint("b", "", 55.0, 38.0),
		reconcile.LatLonPoint("d", "", 55.0, 40.0),
	)
	s, err := e.OptimizeOrder(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, stagedIDs(s))
}

func favoriteStore(t *testing.T, favs ...model.Favorite) store.Registry {
	t.Helper()
	mem := store.NewMemory()
	for _, f := range favs {
		_, err := mem.PutFavorite(context.Background(), f)
		require.NoError(t, err)
	}
	return store.Registry{Store: mem}
}

func TestHydrateFromStoredRoute(t *testing.T) {
	ctx := context.Background()
	reg := favoriteStore(t,
		model.Favorite{ID: "msk", Title: "Moscow center", Lat: 55.7558, Lon: 37.6173},
		model.Favorite{ID: "vla", Lat: 56.1286, Lon: 40.4066},
	)
	e := NewEngine(reg, nil, nil)

	d, err := e.Hydrate(ctx, model.StoredRoute{
		Title:   "Trip",
		Profile: "walking",
		Waypoints: []model.Waypoint{
			{MarkerID: "msk", OrderIndex: 2, Notes: "lunch"},
			{MarkerID: "vla", OrderIndex: 0, Notes: "start here"},
			{MarkerID: "gone", OrderIndex: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, transport.Walking, d.Profile)
	assert.Equal(t, []string{"vla", "msk"}, stagedIDs(d))
	assert.Equal(t, "start here", d.Staged[0].Title)
	assert.Equal(t, "Moscow center", d.Staged[1].Title)
	assert.Equal(t, "Moscow center", d.Staged[1].Raw.Title())
	require.Len(t, d.Warnings, 1)
	assert.Equal(t, WarnMissingFavorite, d.Warnings[0].Code)

	built, err := e.Build(ctx, d.ID, BuildOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 179, built.DistanceKm, 1.5)
	assert.Equal(t, "Moscow center", built.Points[1].Title)
}

func TestHydrateRepeatedWaypointGetsOwnKey(t *testing.T) {
	ctx := context.Background()
	reg := favoriteStore(t,
		model.Favorite{ID: "msk", Title: "Moscow center", Lat: 55.7558, Lon: 37.6173},
		model.Favorite{ID: "vla", Title: "Vladimir center", Lat: 56.1286, Lon: 40.4066},
	)
	e := NewEngine(reg, nil, nil)
	d, err := e.Hydrate(ctx, model.StoredRoute{Waypoints: []model.Waypoint{
		{MarkerID: "msk", OrderIndex: 0},
		{MarkerID: "vla", OrderIndex: 1},
		{MarkerID: "msk", OrderIndex: 2},
	}})
	require.NoError(t, err)
	ids := stagedIDs(d)
	require.Len(t, ids, 3)
	assert.NotEqual(t, ids[0], ids[2])
	assert.Equal(t, "msk", d.Staged[2].Raw.ID())
	require.NoError(t, e.ReorderPoints(ctx, d.ID, []string{ids[2], ids[1], ids[0]}))
}

func TestSaveBuiltDraft(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	broker := events.NewBroker()
	e := NewEngine(nil, nil, nil, WithRouteSaver(mem), WithPublisher(broker), WithSimplifyTolerance(0.0001))
	d := e.Create(ctx, "")
	ch := broker.Subscribe(d.ID)
	defer broker.Unsubscribe(d.ID, ch)

	stage(t, e, d.ID, moscow, vladimir)
	_, err := e.Save(ctx, d.ID, "")
	assert.ErrorIs(t, err, ErrNotBuilt)

	_, err = e.Build(ctx, d.ID, BuildOptions{})
	require.NoError(t, err)
	r, err := e.Save(ctx, d.ID, "Weekend")
	require.NoError(t, err)
	assert.Equal(t, "Weekend", r.Title)
	assert.Equal(t, 2, r.PointCount())
	assert.Equal(t, [2]float64{55.7558, 37.6173}, r.Polyline[0])

	stored, err := mem.GetRoute(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, string(routing.FallbackStraight), stored.Outcome)

	seen := map[string]bool{}
	for len(ch) > 0 {
		seen[(<-ch).Type] = true
	}
	assert.True(t, seen[events.DraftBuilt])
	assert.True(t, seen[events.RouteSaved])
}

func stagedIDs(d Draft) []string {
	out := make([]string, len(d.Staged))
	for i, p := range d.Staged {
		out[i] = p.ID
	}
	return out
}

func TestHydrateFillsMissingEmbeddedCoordinates(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(favoriteStore(t, model.Favorite{ID: "vla", Title: "Vladimir center", Lat: 56.1286, Lon: 40.4066}), nil, nil)
	d, err := e.Hydrate(ctx, model.StoredRoute{
		Title: "Trip",
		Points: []model.RoutePoint{
			{ID: "msk", Title: "Moscow", Lat: 55.7558, Lon: 37.6173, OrderIndex: 0},
			{ID: "vla", OrderIndex: 1},
			{ID: "lost", Title: "Lost", OrderIndex: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, d.Staged, 3)
	assert.Equal(t, "Moscow", d.Staged[0].Title)
	assert.Equal(t, "Vladimir center", d.Staged[1].Title)
	require.Len(t, d.Warnings, 1)
	assert.Equal(t, "lost", d.Warnings[0].PointID)

	built, err := e.Build(ctx, d.ID, BuildOptions{})
	require.NoError(t, err)
	require.Len(t, built.Points, 2)
	assert.Equal(t, 56.1286, built.Points[1].Lat)
	assert.Equal(t, "Vladimir center", built.Points[1].Title)
}

func TestStageSamePointTwice(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil, nil, nil)
	d := e.Create(ctx, "")
	stage(t, e, d.ID, moscow, vladimir, moscow)

	s, _ := e.Snapshot(d.ID)
	ids := stagedIDs(s)
	assert.Equal(t, "msk", ids[0])
	assert.Equal(t, "vla", ids[1])
	assert.NotEqual(t, "msk", ids[2])
	assert.Equal(t, "msk", s.Staged[2].Raw.ID())

	require.NoError(t, e.ReorderPoints(ctx, d.ID, []string{ids[2], ids[1], ids[0]}))
	s, _ = e.Snapshot(d.ID)
	assert.Equal(t, []string{ids[2], "vla", "msk"}, stagedIDs(s))

	require.NoError(t, e.RemovePoint(ctx, d.ID, ids[2]))
	s, _ = e.Snapshot(d.ID)
	assert.Equal(t, []string{"vla", "msk"}, stagedIDs(s))

	stage(t, e, d.ID, moscow)
	built, err := e.Build(ctx, d.ID, BuildOptions{})
	require.NoError(t, err)
	assert.Len(t, built.Points, 2)
}

func TestHydrateWithCoordinateOnlyRegistry(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(mapRegistry{
		"msk": {Lat: 55.7558, Lon: 37.6173},
		"vla": {Lat: 56.1286, Lon: 40.4066},
	}, nil, nil)
	d, err := e.Hydrate(ctx, model.StoredRoute{Waypoints: []model.Waypoint{
		{MarkerID: "msk", OrderIndex: 0, Notes: "Moscow"},
		{MarkerID: "vla", OrderIndex: 1},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"msk", "vla"}, stagedIDs(d))
	assert.Equal(t, "Moscow", d.Staged[0].Title)
	assert.Empty(t, d.Staged[1].Title)
}
