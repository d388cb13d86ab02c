package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripnav/internal/draft"
	"tripnav/internal/events"
	"tripnav/internal/model"
	"tripnav/internal/reconcile"
	"tripnav/internal/routing"
	"tripnav/internal/store"
)

type testEnv struct {
	srv    *Server
	store  *store.Memory
	broker *events.Broker
	h      http.Handler
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	mem := store.NewMemory()
	broker := events.NewBroker()
	builder := routing.NewBuilder(routing.ProviderFunc(func(context.Context, [][2]float64, string) ([][2]float64, error) {
		return nil, errors.New("provider offline")
	}))
	eng := draft.NewEngine(store.Registry{Store: mem}, builder, nil,
		draft.WithRouteSaver(mem), draft.WithPublisher(broker))
	s := &Server{Engine: eng, Store: mem, Stream: broker}
	return &testEnv{srv: s, store: mem, broker: broker, h: s.Handler()}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthReady(t *testing.T) {
	env := newTestServer(t)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/readyz", "").Code)

	rr := env.do(t, http.MethodGet, "/debug/info", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"build"`)
}

func TestDraftBuildScenario(t *testing.T) {
	env := newTestServer(t)
	rr := env.do(t, http.MethodPost, "/v1/drafts", `{"title":"Moscow - Vladimir"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	d := decode[draft.Draft](t, rr)

	points := []string{
		`{"id":"msk","title":"Moscow center","latitude":55.7558,"longitude":37.6173}`,
		`{"id":"red","title":"Red Square","lat":"55.7539","lng":"37.6208"}`,
		`{"id":"vla","title":"Vladimir center","coordinates":[56.1286,40.4066]}`,
	}
	for _, p := range points {
		rr = env.do(t, http.MethodPost, "/v1/drafts/"+d.ID+"/points", p)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodPost, "/v1/drafts/"+d.ID+"/build", `{"profile":"car"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	built := decode[draft.Draft](t, rr)
	assert.Equal(t, draft.Built, built.Status)
	assert.Equal(t, routing.FallbackStraight, built.Outcome)
	assert.InDelta(t, 179, built.DistanceKm, 1)
	assert.Equal(t, 3.0, built.DurationHours)
	assert.InDelta(t, 945, built.CostCurrency, 5)

	rr = env.do(t, http.MethodGet, "/v1/drafts/"+d.ID+"?format=geojson", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/geo+json", rr.Header().Get("Content-Type"))
	fc := decode[map[string]any](t, rr)
	assert.Equal(t, "FeatureCollection", fc["type"])
	assert.Len(t, fc["features"], 4)
}

func TestBuildFailureReturnsDraft(t *testing.T) {
	env := newTestServer(t)
	d := decode[draft.Draft](t, env.do(t, http.MethodPost, "/v1/drafts", `{"points":[[55.7558,37.6173]]}`))
	require.Len(t, d.Staged, 1)

	rr := env.do(t, http.MethodPost, "/v1/drafts/"+d.ID+"/build", "")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var body struct {
		Problem
		Draft draft.Draft `json:"draft"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, draft.Failed, body.Draft.Status)
	assert.Empty(t, body.Draft.Polyline)
}

func TestDraftErrors(t *testing.T) {
	env := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/v1/drafts/nope", "").Code)

	d := decode[draft.Draft](t, env.do(t, http.MethodPost, "/v1/drafts", ""))
	assert.Equal(t, http.StatusUnprocessableEntity, env.do(t, http.MethodPost, "/v1/drafts/"+d.ID+"/build", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/v1/drafts/"+d.ID+"/build", `{"profile":"rocket"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/v1/drafts/"+d.ID+"/points", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPut, "/v1/drafts/"+d.ID+"/order", `{"order":["x"]}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, env.do(t, http.MethodPost, "/v1/drafts/"+d.ID+"/save", "").Code)

	rr := env.do(t, http.MethodGet, "/v1/drafts/nope", "")
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	p := decode[Problem](t, rr)
	assert.Equal(t, http.StatusNotFound, p.Status)
}

func TestPickInsertsAtPosition(t *testing.T) {
	env := newTestServer(t)
	d := decode[draft.Draft](t, env.do(t, http.MethodPost, "/v1/drafts",
		`{"points":[{"id":"a","lat":55.0,"lon":37.0},{"id":"c","lat":55.0,"lon":39.0}]}`))

	rr := env.do(t, http.MethodPost, "/v1/drafts/"+d.ID+"/picks", `{"insertAt":1}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	h := decode[draft.PickHandle](t, rr)

	rr = env.do(t, http.MethodPost, "/v1/picks/"+h.ID, `{"id":"b","lat":55.0,"lon":38.0}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/v1/picks/"+h.ID, "").Code)

	got := decode[draft.Draft](t, env.do(t, http.MethodGet, "/v1/drafts/"+d.ID, ""))
	require.Len(t, got.Staged, 3)
	assert.Equal(t, "b", got.Staged[1].ID)
}

func TestSaveListAndHydrate(t *testing.T) {
	env := newTestServer(t)
	d := decode[draft.Draft](t, env.do(t, http.MethodPost, "/v1/drafts",
		`{"title":"Trip","points":[{"id":"msk","latitude":55.7558,"longitude":37.6173},{"id":"vla","latitude":56.1286,"longitude":40.4066}]}`))
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/v1/drafts/"+d.ID+"/build", "").Code)

	rr := env.do(t, http.MethodPost, "/v1/drafts/"+d.ID+"/save", "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	saved := decode[model.StoredRoute](t, rr)
	assert.Equal(t, "Trip", saved.Title)

	// a second copy with the same title and point count
	_, err := env.store.SaveRoute(context.Background(), model.StoredRoute{Title: "Trip", Points: saved.Points})
	require.NoError(t, err)

	list := decode[struct {
		Items []model.StoredRoute `json:"items"`
	}](t, env.do(t, http.MethodGet, "/v1/routes", ""))
	assert.Len(t, list.Items, 2)
	list = decode[struct {
		Items []model.StoredRoute `json:"items"`
	}](t, env.do(t, http.MethodGet, "/v1/routes?dedup=true", ""))
	assert.Len(t, list.Items, 1)

	rr = env.do(t, http.MethodGet, "/v1/routes/"+saved.ID+"?format=geojson", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "LineString")

	rr = env.do(t, http.MethodPost, "/v1/routes/"+saved.ID+"/hydrate", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	h := decode[draft.Draft](t, rr)
	assert.Equal(t, draft.Idle, h.Status)
	assert.Len(t, h.Staged, 2)
}

func TestFavoritesHygiene(t *testing.T) {
	env := newTestServer(t)
	for _, body := range []string{
		`{"title":"Home","lat":55.7558,"lon":37.6173,"category":"home"}`,
		`{"title":" home ","lat":55.7558,"lon":37.6173}`,
		`{"title":"Точка 3","lat":56.0,"lon":38.0}`,
	} {
		rr := env.do(t, http.MethodPost, "/v1/favorites", body)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/v1/favorites", `{"title":"nowhere"}`).Code)

	favs := decode[struct {
		Items []model.Favorite `json:"items"`
	}](t, env.do(t, http.MethodGet, "/v1/favorites", ""))
	require.Len(t, favs.Items, 3)
	assert.Equal(t, "home", favs.Items[0].Category)

	rep := decode[model.DuplicateReport](t, env.do(t, http.MethodGet, "/v1/favorites/duplicates", ""))
	assert.True(t, rep.HasDuplicates)
	assert.Equal(t, 1, rep.Duplicates)

	inv := decode[struct {
		Items []model.InvalidFavorite `json:"items"`
	}](t, env.do(t, http.MethodGet, "/v1/favorites/invalid", ""))
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "placeholder_title", inv.Items[0].Reason)

	id := favs.Items[0].ID
	rr := env.do(t, http.MethodPut, "/v1/favorites/"+id, `{"title":"Home","latitude":55.76,"longitude":37.62}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/v1/favorites/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/v1/favorites/"+id, "").Code)
}

func TestDraftEventsSSE(t *testing.T) {
	env := newTestServer(t)
	ts := httptest.NewServer(env.h)
	defer ts.Close()
	d := env.srv.Engine.Create(context.Background(), "")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/v1/drafts/"+d.ID+"/events/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return env.broker.Subscribers(d.ID) == 1 }, time.Second, 5*time.Millisecond)
	_, err = env.srv.Engine.StagePoint(context.Background(), d.ID, mustRaw(t, `[55.75,37.61]`))
	require.NoError(t, err)

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		if strings.HasPrefix(sc.Text(), "event: ") {
			assert.Equal(t, "event: "+events.DraftPointsChanged, sc.Text())
			return
		}
	}
	t.Fatal("no event received")
}

func TestDraftEventsWebSocket(t *testing.T) {
	env := newTestServer(t)
	ts := httptest.NewServer(env.h)
	defer ts.Close()
	d := env.srv.Engine.Create(context.Background(), "")

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/drafts/" + d.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsMessage{Type: "ping"}))
	var msg wsMessage
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "pong", msg.Type)

	require.Eventually(t, func() bool { return env.broker.Subscribers(d.ID) == 1 }, time.Second, 5*time.Millisecond)
	_, err = env.srv.Engine.Reset(context.Background(), d.ID)
	require.NoError(t, err)
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "event", msg.Type)
	var evt events.Event
	require.NoError(t, json.Unmarshal(msg.Payload, &evt))
	assert.Equal(t, events.DraftReset, evt.Type)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestServer(t)
	env.do(t, http.MethodGet, "/healthz", "")
	rr := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "http_requests_total")
}

func mustRaw(t *testing.T, s string) (raw reconcile.RawPoint) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(s), &raw))
	return raw
}

func TestRouteDedupKeepsOldestWithinPage(t *testing.T) {
	env := newTestServer(t)
	ctx := context.Background()
	var ids []string
	for _, title := range []string{"Trip", "Trip", "Other"} {
		r, err := env.store.SaveRoute(ctx, model.StoredRoute{Title: title, Waypoints: []model.Waypoint{{MarkerID: "a"}, {MarkerID: "b"}}})
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}

	type page struct {
		Items      []model.StoredRoute `json:"items"`
		NextCursor string              `json:"nextCursor"`
	}
	all := decode[page](t, env.do(t, http.MethodGet, "/v1/routes?dedup=true", ""))
	require.Len(t, all.Items, 2)
	assert.Equal(t, ids[0], all.Items[0].ID)
	assert.Equal(t, ids[2], all.Items[1].ID)

	first := decode[page](t, env.do(t, http.MethodGet, "/v1/routes?dedup=true&limit=1", ""))
	require.Len(t, first.Items, 1)
	assert.Equal(t, ids[0], first.Items[0].ID)
	second := decode[page](t, env.do(t, http.MethodGet, "/v1/routes?dedup=true&limit=1&cursor="+first.NextCursor, ""))
	require.Len(t, second.Items, 1)
	assert.Equal(t, ids[1], second.Items[0].ID)
}
