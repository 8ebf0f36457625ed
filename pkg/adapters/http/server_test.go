package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlh/aliquot"
	"github.com/openlh/aliquot/internal/logging"
	"github.com/openlh/aliquot/pkg/adapters/memory"
	"github.com/openlh/aliquot/pkg/domain"
	"github.com/openlh/aliquot/pkg/labware"
	"github.com/openlh/aliquot/pkg/runs"
)

const transferYAML = `
name: serial-dilution
labware:
  - name: plate_96_340ul
    slot: 1
  - name: tiprack_300ul
    slot: 2
pipettes:
  - model: p300_single
    mount: right
steps:
  - type: transfer
    volume: 50
    from: {slot: 1, wells: [A1]}
    to: {slot: 1, wells: [B1]}
`

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	mgr := runs.NewManager(memory.NewStore())
	return NewHandler(mgr, labware.NewCatalog(), WithLogger(logging.NewNop()))
}

func postProtocol(t *testing.T, handler http.Handler, url, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", url, strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestSubmitRun(t *testing.T) {
	handler := newTestHandler(t)

	w := postProtocol(t, handler, "/v1/runs?id=run-1", transferYAML)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rec domain.RunRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "run-1", rec.ID)
	assert.Equal(t, "serial-dilution", rec.Protocol)
	assert.Equal(t, domain.RunSucceeded, rec.Status)
	require.Len(t, rec.Trace, 4)
	assert.Equal(t, domain.OpPickUpTip, rec.Trace[0].Op)
	assert.Equal(t, domain.OpDropTip, rec.Trace[3].Op)

	t.Run("record is readable back", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/runs/run-1", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var loaded domain.RunRecord
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loaded))
		assert.Equal(t, domain.RunSucceeded, loaded.Status)
		assert.Len(t, loaded.Trace, 4)
	})

	t.Run("list includes the run", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/runs", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var ids []string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ids))
		assert.Contains(t, ids, "run-1")
	})

	t.Run("delete then load is 404", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", "/v1/runs/run-1", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		require.Equal(t, http.StatusNoContent, w.Code)

		req = httptest.NewRequest("GET", "/v1/runs/run-1", nil)
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSubmitRunGeneratesID(t *testing.T) {
	handler := newTestHandler(t)

	w := postProtocol(t, handler, "/v1/runs", transferYAML)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rec domain.RunRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.True(t, strings.HasPrefix(rec.ID, "run-"))
}

func TestSubmitRunAcceptsJSON(t *testing.T) {
	handler := newTestHandler(t)

	doc := `{
		"name": "json-protocol",
		"labware": [
			{"name": "plate_96_340ul", "slot": 1},
			{"name": "tiprack_300ul", "slot": 2}
		],
		"pipettes": [{"model": "p300_single", "mount": "right"}],
		"steps": [{
			"type": "transfer",
			"volume": 25,
			"from": {"slot": 1, "wells": ["A1"]},
			"to": {"slot": 1, "wells": ["A2"]}
		}]
	}`
	w := postProtocol(t, handler, "/v1/runs", doc)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rec domain.RunRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, domain.RunSucceeded, rec.Status)
}

func TestSubmitRunErrors(t *testing.T) {
	handler := newTestHandler(t)

	t.Run("malformed protocol is 400", func(t *testing.T) {
		w := postProtocol(t, handler, "/v1/runs", "\t{not yaml")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid protocol")
	})

	t.Run("unknown field is 400", func(t *testing.T) {
		w := postProtocol(t, handler, "/v1/runs", strings.Replace(transferYAML, "volume:", "volune:", 1))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate id is 409", func(t *testing.T) {
		w := postProtocol(t, handler, "/v1/runs?id=dup", transferYAML)
		require.Equal(t, http.StatusCreated, w.Code)

		w = postProtocol(t, handler, "/v1/runs?id=dup", transferYAML)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("failing protocol persists as failed", func(t *testing.T) {
		doc := strings.Replace(transferYAML, "volume: 50",
			"volume: 400\n    options: {carryover: false}", 1)
		w := postProtocol(t, handler, "/v1/runs?id=bad-volume", doc)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var rec domain.RunRecord
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
		assert.Equal(t, domain.RunFailed, rec.Status)
		assert.Contains(t, rec.Error, "step 1")
		assert.Empty(t, rec.Trace)
	})
}

func TestSubscribeEvents(t *testing.T) {
	handler := newTestHandler(t)

	// 1. Subscribe before the run exists; the stream is keyed by the
	// client-chosen id.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wSub := httptest.NewRecorder()
	reqSub := httptest.NewRequest("GET", "/v1/runs/stream-1/events", nil).WithContext(ctx)

	go func() {
		handler.ServeHTTP(wSub, reqSub)
	}()

	time.Sleep(100 * time.Millisecond) // Wait for subscription to register

	// 2. Trigger the run
	w := postProtocol(t, handler, "/v1/runs?id=stream-1", transferYAML)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// 3. Stop subscription to flush
	cancel()
	time.Sleep(50 * time.Millisecond)

	output := wSub.Body.String()
	assert.Contains(t, output, "event: ping")
	assert.Contains(t, output, `"op":"pick_up_tip"`)
	assert.Contains(t, output, `"op":"aspirate"`)
	assert.Contains(t, output, `"op":"drop_tip"`)
}

func TestSubscribeEventsFiltered(t *testing.T) {
	handler := newTestHandler(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wSub := httptest.NewRecorder()
	reqSub := httptest.NewRequest("GET", "/v1/runs/stream-2/events?ops=dispense", nil).WithContext(ctx)

	go func() {
		handler.ServeHTTP(wSub, reqSub)
	}()

	time.Sleep(100 * time.Millisecond)

	w := postProtocol(t, handler, "/v1/runs?id=stream-2", transferYAML)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	cancel()
	time.Sleep(50 * time.Millisecond)

	output := wSub.Body.String()
	assert.Contains(t, output, `"op":"dispense"`)
	assert.NotContains(t, output, `"op":"aspirate"`)
}

func TestMatchesOps(t *testing.T) {
	assert.True(t, matchesOps(`{"op":"aspirate"}`, []string{"aspirate", "dispense"}))
	assert.False(t, matchesOps(`{"op":"pick_up_tip"}`, []string{"aspirate"}))
	assert.True(t, matchesOps(`{"op":"dispense"}`, []string{" dispense "}), "filter entries are trimmed")
	assert.True(t, matchesOps("not json", []string{"aspirate"}), "unparseable payloads pass through")
}

func TestListLabware(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest("GET", "/v1/labware", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var defs []labware.Definition
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &defs))
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, "plate_96_340ul")
	assert.Contains(t, names, "tiprack_300ul")

	t.Run("protocol definitions become visible", func(t *testing.T) {
		doc := `
name: custom-labware
definitions:
  - name: deepwell_24_10ml
    rows: 4
    cols: 6
    well_volume_ul: 10000
labware:
  - name: deepwell_24_10ml
    slot: 1
  - name: tiprack_300ul
    slot: 2
pipettes:
  - model: p300_single
    mount: right
steps:
  - type: transfer
    volume: 100
    from: {slot: 1, wells: [A1]}
    to: {slot: 1, wells: [A2]}
`
		w := postProtocol(t, handler, "/v1/runs", doc)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		req := httptest.NewRequest("GET", "/v1/labware", nil)
		w2 := httptest.NewRecorder()
		handler.ServeHTTP(w2, req)
		assert.Contains(t, w2.Body.String(), "deepwell_24_10ml")
	})
}

func TestListModels(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest("GET", "/v1/models", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var models []aliquot.Model
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &models))
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	assert.Contains(t, names, "p300_single")
	assert.Contains(t, names, "p300_multi")
}

func TestHealthAndInfo(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	req = httptest.NewRequest("GET", "/v1/info", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var info map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "aliquot-http", info["app"])
	assert.Equal(t, strings.TrimSpace(aliquot.Version), info["version"])
}

func TestMetricsEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	w := postProtocol(t, handler, "/v1/runs", transferYAML)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	req := httptest.NewRequest("GET", "/metrics", nil)
	wm := httptest.NewRecorder()
	handler.ServeHTTP(wm, req)
	require.Equal(t, http.StatusOK, wm.Code)

	body := wm.Body.String()
	assert.Contains(t, body, `aliquot_commands_total{op="aspirate"} 1`)
	assert.Contains(t, body, "aliquot_tips_used_total 1")
	assert.Contains(t, body, "aliquot_run_duration_seconds")
}

func TestCORSPreflight(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest("OPTIONS", "/v1/runs", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
