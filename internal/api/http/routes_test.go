package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/camara12-arth/weather-app/internal/search"
	"github.com/camara12-arth/weather-app/internal/store"
	"github.com/camara12-arth/weather-app/internal/weather"
)

type fakeGeocoder struct{}

func (fakeGeocoder) Name() string { return "fake" }

func (fakeGeocoder) Lookup(_ context.Context, query string, _ int) ([]weather.Suggestion, error) {
	if !strings.HasPrefix(strings.ToLower(query), "bam") {
		return nil, weather.ErrNotFound
	}
	lat, lon := 12.65, -8.0
	return []weather.Suggestion{{Name: "Bamako", Country: "ML", Lat: &lat, Lon: &lon}}, nil
}

type fakeFetcher struct {
	err error
}

func (f fakeFetcher) Name() string { return "fake" }

func (f fakeFetcher) FetchForecast(context.Context, float64, float64) (weather.ProviderForecast, error) {
	if f.err != nil {
		return weather.ProviderForecast{}, f.err
	}
	start := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	samples := make([]weather.WeatherSample, 40)
	for i := range samples {
		samples[i] = weather.WeatherSample{Timestamp: start.Add(time.Duration(i) * 3 * time.Hour), Temperature: 30}
	}
	return weather.ProviderForecast{ProviderName: "fake", LocationLabel: "Bamako", Country: "ML", Samples: samples}, nil
}

func newTestApp(f weather.ForecastFetcher) (*fiber.App, *store.SessionStore) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	sessions := store.NewSessionStore(10, time.Hour)
	svc := weather.NewService([]weather.Geocoder{fakeGeocoder{}}, f, 16)
	RegisterRoutes(app, NewHandler(svc, sessions, search.Config{DebounceDelay: 5 * time.Millisecond}))
	return app, sessions
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("%s %s: unexpected error: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return resp.StatusCode, data
}

func decodeState(t *testing.T, data []byte) search.ViewState {
	t.Helper()
	var st search.ViewState
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatalf("decoding state %s: %v", data, err)
	}
	return st
}

func poll(t *testing.T, app *fiber.App, id string, st search.ViewState, cond func(search.ViewState) bool) search.ViewState {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond(st) {
		if time.Now().After(deadline) {
			t.Fatalf("condition not reached, last state %+v", st)
		}
		code, data := do(t, app, http.MethodGet, "/api/v1/sessions/"+id+"?wait=1s&since="+strconv.FormatUint(st.Version, 10), "")
		if code != http.StatusOK {
			t.Fatalf("poll: status %d: %s", code, data)
		}
		st = decodeState(t, data)
	}
	return st
}

func TestSuggestValidation(t *testing.T) {
	app, _ := newTestApp(fakeFetcher{})

	if code, _ := do(t, app, http.MethodGet, "/api/v1/geo/suggest?q=%20%20", ""); code != http.StatusBadRequest {
		t.Fatalf("blank query: expected 400, got %d", code)
	}
	if code, _ := do(t, app, http.MethodGet, "/api/v1/geo/suggest?q=Bam&limit=50", ""); code != http.StatusBadRequest {
		t.Fatalf("limit out of range: expected 400, got %d", code)
	}
	if code, _ := do(t, app, http.MethodGet, "/api/v1/geo/suggest?q=Zzz", ""); code != http.StatusNotFound {
		t.Fatalf("unknown city: expected 404, got %d", code)
	}

	code, data := do(t, app, http.MethodGet, "/api/v1/geo/suggest?q=Bam", "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", code, data)
	}
	var res []weather.Suggestion
	if err := json.Unmarshal(data, &res); err != nil || len(res) != 1 || res[0].Label() != "Bamako, ML" {
		t.Fatalf("unexpected suggestions %s (%v)", data, err)
	}
}

func TestForecastEndpoint(t *testing.T) {
	app, _ := newTestApp(fakeFetcher{})

	for _, path := range []string{
		"/api/v1/weather/forecast",
		"/api/v1/weather/forecast?lat=12.65",
		"/api/v1/weather/forecast?lat=abc&lon=1",
		"/api/v1/weather/forecast?lat=91&lon=1",
	} {
		if code, _ := do(t, app, http.MethodGet, path, ""); code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, code)
		}
	}

	code, data := do(t, app, http.MethodGet, "/api/v1/weather/forecast?lat=12.65&lon=-8", "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", code, data)
	}
	var snap weather.ForecastSnapshot
	if err := json.Unmarshal(data, &snap); err != nil || len(snap.Samples) != 16 {
		t.Fatalf("expected 16 samples, got %s (%v)", data, err)
	}
}

func TestForecastEndpointTransientFailure(t *testing.T) {
	app, _ := newTestApp(fakeFetcher{err: weather.ErrTransient})

	code, data := do(t, app, http.MethodGet, "/api/v1/weather/forecast?lat=12.65&lon=-8", "")
	if code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", code)
	}
	if !strings.Contains(string(data), `"error":true`) {
		t.Fatalf("expected error envelope, got %s", data)
	}
}

func TestSessionFlow(t *testing.T) {
	app, sessions := newTestApp(fakeFetcher{})
	defer sessions.CloseAll()

	code, data := do(t, app, http.MethodPost, "/api/v1/sessions", "")
	if code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", code)
	}
	var created struct {
		ID    string           `json:"id"`
		State search.ViewState `json:"state"`
	}
	if err := json.Unmarshal(data, &created); err != nil || created.ID == "" {
		t.Fatalf("unexpected create response %s (%v)", data, err)
	}
	base := "/api/v1/sessions/" + created.ID

	code, data = do(t, app, http.MethodPost, base+"/input", `{"value":"Bam"}`)
	if code != http.StatusOK {
		t.Fatalf("input: expected 200, got %d: %s", code, data)
	}
	st := poll(t, app, created.ID, decodeState(t, data), func(v search.ViewState) bool { return len(v.Suggestions) == 1 })
	if st.Suggestions[0].Label != "Bamako, ML" || st.Suggestions[0].Key != "12.65--8" {
		t.Fatalf("unexpected suggestion %+v", st.Suggestions[0])
	}

	if code, _ = do(t, app, http.MethodPost, base+"/pick", `{"index":3}`); code != http.StatusBadRequest {
		t.Fatalf("out of range pick: expected 400, got %d", code)
	}
	code, data = do(t, app, http.MethodPost, base+"/pick", `{"index":0}`)
	if code != http.StatusOK {
		t.Fatalf("pick: expected 200, got %d: %s", code, data)
	}
	st = decodeState(t, data)
	if st.DisplayValue != "Bamako" || st.Selected == nil || len(st.Suggestions) != 0 {
		t.Fatalf("unexpected state after pick %+v", st)
	}

	code, data = do(t, app, http.MethodPost, base+"/submit", "")
	if code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d: %s", code, data)
	}
	st = poll(t, app, created.ID, decodeState(t, data), func(v search.ViewState) bool { return v.Phase == search.PhaseLoaded })
	if st.Forecast == nil || len(st.Forecast.Samples) != 16 || st.IsLoading {
		t.Fatalf("unexpected final state %+v", st)
	}

	if code, _ = do(t, app, http.MethodDelete, base, ""); code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", code)
	}
	if code, _ = do(t, app, http.MethodGet, base, ""); code != http.StatusNotFound {
		t.Fatalf("deleted session: expected 404, got %d", code)
	}
}

func TestSessionSubmitWithoutSelection(t *testing.T) {
	app, sessions := newTestApp(fakeFetcher{})
	defer sessions.CloseAll()

	_, data := do(t, app, http.MethodPost, "/api/v1/sessions", "")
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("decoding: %v", err)
	}

	code, data := do(t, app, http.MethodPost, "/api/v1/sessions/"+created.ID+"/submit", "")
	if code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d", code)
	}
	st := decodeState(t, data)
	if st.Phase != search.PhaseError || st.Error == nil || st.Error.Kind != search.KindValidation {
		t.Fatalf("expected validation error state, got %+v", st)
	}
}

func TestSessionRequestValidation(t *testing.T) {
	app, sessions := newTestApp(fakeFetcher{})
	defer sessions.CloseAll()

	if code, _ := do(t, app, http.MethodGet, "/api/v1/sessions/not-a-uuid", ""); code != http.StatusBadRequest {
		t.Fatalf("malformed id: expected 400, got %d", code)
	}
	if code, _ := do(t, app, http.MethodGet, "/api/v1/sessions/1b4e28ba-2fa1-11d2-883f-0016d3cca427", ""); code != http.StatusNotFound {
		t.Fatalf("unknown id: expected 404, got %d", code)
	}

	_, data := do(t, app, http.MethodPost, "/api/v1/sessions", "")
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	base := "/api/v1/sessions/" + created.ID

	if code, _ := do(t, app, http.MethodPost, base+"/pick", `{}`); code != http.StatusBadRequest {
		t.Fatalf("empty pick: expected 400, got %d", code)
	}
	if code, _ := do(t, app, http.MethodPost, base+"/pick", `{"suggestion":{"name":"X","latitude":120}}`); code != http.StatusBadRequest {
		t.Fatalf("invalid latitude: expected 400, got %d", code)
	}
	if code, _ := do(t, app, http.MethodGet, base+"?since=x", ""); code != http.StatusBadRequest {
		t.Fatalf("invalid since: expected 400, got %d", code)
	}

	code, data := do(t, app, http.MethodPost, base+"/pick", `{"suggestion":{"name":"Bamako","country":"ML","latitude":12.65,"longitude":-8}}`)
	if code != http.StatusOK {
		t.Fatalf("explicit pick: expected 200, got %d: %s", code, data)
	}
	if st := decodeState(t, data); st.Selected == nil || st.Selected.Name != "Bamako" {
		t.Fatalf("unexpected selection %+v", st.Selected)
	}
}
