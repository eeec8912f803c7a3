package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/channelkit/channelkit/pkg/cache"
	"github.com/channelkit/channelkit/pkg/session"
	"github.com/channelkit/channelkit/pkg/store"
)

const validGraph = `version: 2
nodes:
  - name: Skittles
    type: toybox.SkittleGenerator
  - name: Drop Objects
    type: toybox.RandomPlacement
    inputs:
      Object Generators:
        - link: Skittles.Object Generator
`

const nodeManifest = `package: toybox
nodes:
  - type: SkittleGenerator
    outputs:
      - name: Object Generator
  - type: RandomPlacement
    inputs:
      - name: Object Generators
        required: true
    outputs:
      - name: Objects of Interest
`

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	return newTestServerOpts(t, Options{})
}

func newTestServerOpts(t *testing.T, opts Options) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	srv := New(st, log.New(io.Discard), opts)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, st
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestValidateEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/validate", map[string]any{
		"graph": validGraph,
		"nodes": []string{nodeManifest},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		Valid    bool `json:"valid"`
		Findings []struct {
			Code string `json:"code"`
		} `json:"findings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if !out.Valid || len(out.Findings) != 0 {
		t.Errorf("response = %+v", out)
	}
}

func TestValidateEndpointReportsFindings(t *testing.T) {
	ts, _ := newTestServer(t)

	bad := "version: 2\nnodes:\n  - name: A\n    type: toybox.Ghost\n"
	resp := postJSON(t, ts.URL+"/api/validate", map[string]any{
		"graph": bad,
		"nodes": []string{nodeManifest},
	})
	var out struct {
		Valid    bool `json:"valid"`
		Findings []struct {
			Code string `json:"code"`
		} `json:"findings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Valid || len(out.Findings) == 0 {
		t.Fatalf("response = %+v", out)
	}
	found := false
	for _, f := range out.Findings {
		if f.Code == "UNKNOWN_NODE_TYPE" {
			found = true
		}
	}
	if !found {
		t.Errorf("findings = %+v", out.Findings)
	}
}

func TestValidateEndpointRejectsMalformedBody(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := postJSON(t, ts.URL+"/api/validate", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestValidateRecordsRun(t *testing.T) {
	ts, st := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/validate", map[string]any{
		"graph":   validGraph,
		"nodes":   []string{nodeManifest},
		"channel": "toybox",
		"name":    "default",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	recs, err := st.List(t.Context(), "toybox", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("records = %d, want the validation recorded", len(recs))
	}
	rec := recs[0]
	if rec.Kind != store.KindValidate || rec.GraphName != "default" || rec.Status != "valid" {
		t.Errorf("record = %+v", rec)
	}

	// An invalid descriptor is recorded too, with its outcome.
	postJSON(t, ts.URL+"/api/validate", map[string]any{
		"graph": "version: 2\nnodes:\n  - name: A\n    type: toybox.Ghost\n",
		"nodes": []string{nodeManifest},
	})
	recs, _ = st.List(t.Context(), "", 0)
	if len(recs) != 2 {
		t.Fatalf("records = %d", len(recs))
	}
	if recs[0].Status != "invalid" && recs[1].Status != "invalid" {
		t.Errorf("no invalid record in %+v", recs)
	}
}

func TestPlanEndpoint(t *testing.T) {
	ts, st := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/plan", map[string]any{
		"graph": validGraph,
		"nodes": []string{nodeManifest},
		"seed":  7,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		Seed   int64 `json:"seed"`
		Stages []struct {
			Steps []struct {
				Node string `json:"node"`
			} `json:"steps"`
		} `json:"stages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Seed != 7 || len(out.Stages) != 2 {
		t.Errorf("plan = %+v", out)
	}
	if out.Stages[0].Steps[0].Node != "Skittles" {
		t.Errorf("first step = %+v", out.Stages[0])
	}

	recs, _ := st.List(t.Context(), "", 0)
	if len(recs) != 1 || recs[0].Kind != store.KindPlan || recs[0].Status != "planned" {
		t.Errorf("records = %+v", recs)
	}
	if recs[0].Seed == nil || *recs[0].Seed != 7 {
		t.Errorf("record seed = %v", recs[0].Seed)
	}
}

func TestPlanEndpointRejectsCycles(t *testing.T) {
	ts, _ := newTestServer(t)

	cyclic := "version: 2\nnodes:\n" +
		"  - name: A\n    type: t.A\n    inputs:\n      In:\n        link: B.Out\n" +
		"  - name: B\n    type: t.B\n    inputs:\n      In:\n        link: A.Out\n"
	resp := postJSON(t, ts.URL+"/api/plan", map[string]any{"graph": cyclic})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestPlanEndpointServesCachedPlan(t *testing.T) {
	bc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer bc.Close()
	ts, _ := newTestServerOpts(t, Options{Cache: bc, PlanTTL: time.Hour})

	req := map[string]any{
		"graph": validGraph,
		"nodes": []string{nodeManifest},
		"seed":  int64(7),
	}
	resp := postJSON(t, ts.URL+"/api/plan", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	// Overwrite the cached entry; a second identical request must serve it
	// without rebuilding the plan.
	srv := New(store.NewMemoryStore(), log.New(io.Discard), Options{Cache: bc})
	key := srv.planCacheKey(planRequest{
		Graph: validGraph,
		Nodes: []string{nodeManifest},
		Seed:  7,
	})
	marker := []byte(`{"graph":"cached-marker"}`)
	if err := bc.Set(t.Context(), key, marker, time.Hour); err != nil {
		t.Fatal(err)
	}

	resp2 := postJSON(t, ts.URL+"/api/plan", req)
	body, err := io.ReadAll(resp2.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(body, marker) {
		t.Errorf("body = %q, want the cached plan", body)
	}
}

func TestRequireAuth(t *testing.T) {
	sess, err := session.New("secret-token", &session.User{ID: "u-1"}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	ts, _ := newTestServerOpts(t, Options{Session: sess})

	resp, err := http.Get(ts.URL + "/api/runs")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/runs", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Errorf("valid token: status = %d", resp2.StatusCode)
	}

	// Health stays open for load balancers.
	resp3, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp3.Body.Close()
	if resp3.StatusCode != http.StatusOK {
		t.Errorf("healthz: status = %d", resp3.StatusCode)
	}
}

func TestLocalSessionLeavesAPIOpen(t *testing.T) {
	ts, st := newTestServerOpts(t, Options{Session: session.Local()})

	resp, err := http.Get(ts.URL + "/api/runs")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	// Records carry the local identity.
	postJSON(t, ts.URL+"/api/validate", map[string]any{
		"graph": validGraph,
		"nodes": []string{nodeManifest},
	})
	recs, _ := st.List(t.Context(), "", 0)
	if len(recs) != 1 || recs[0].SubmittedBy != "platform:local" {
		t.Errorf("records = %+v", recs)
	}
}

func TestRunsEndpoints(t *testing.T) {
	ts, st := newTestServer(t)

	rec := &store.Record{
		ID:          "run-1",
		Kind:        store.KindValidate,
		Channel:     "toybox",
		GraphName:   "default",
		Status:      "valid",
		SubmittedAt: time.Now(),
	}
	if err := st.Put(t.Context(), rec); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(ts.URL + "/api/runs?channel=toybox")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var recs []store.Record
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ID != "run-1" {
		t.Errorf("runs = %+v", recs)
	}

	resp2, err := http.Get(ts.URL + "/api/runs/run-1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Errorf("get run status = %d", resp2.StatusCode)
	}

	resp3, err := http.Get(ts.URL + "/api/runs/missing")
	if err != nil {
		t.Fatal(err)
	}
	defer resp3.Body.Close()
	if resp3.StatusCode != http.StatusNotFound {
		t.Errorf("missing run status = %d", resp3.StatusCode)
	}
}
