package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/meridian-geo/landcover.report/internal/store"
	"github.com/meridian-geo/landcover.report/internal/testutil"
)

func newTestServer(t *testing.T) (*Server, *store.Store, string) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.MigrateUp("../store/migrations"); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}

	artifactDir := t.TempDir()
	return NewServer(st, artifactDir), st, artifactDir
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := testutil.NewTestRecorder()
	s.Handler().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/api/health"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestListRuns(t *testing.T) {
	s, st, _ := newTestServer(t)

	for i, id := range []string{"a", "b", "c"} {
		err := st.Insert(&store.Run{
			RunID: id, RasterPath: "scene.grid", Rows: 10, Cols: 10, Bands: 2,
			Classifier: "knn", CreatedAt: int64(100 + i),
		})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	rec := testutil.NewTestRecorder()
	s.Handler().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/api/runs?limit=2"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var runs []*store.Run
	if err := json.NewDecoder(rec.Body).Decode(&runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "c" {
		t.Errorf("unexpected runs: %+v", runs)
	}
}

func TestListRunsBadLimit(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := testutil.NewTestRecorder()
	s.Handler().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/api/runs?limit=zero"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestGetRun(t *testing.T) {
	s, st, _ := newTestServer(t)
	if err := st.Insert(&store.Run{RunID: "abc", RasterPath: "scene.grid", Classifier: "knn"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	rec := testutil.NewTestRecorder()
	s.Handler().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/api/runs/abc"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var run store.Run
	if err := json.NewDecoder(rec.Body).Decode(&run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.RasterPath != "scene.grid" {
		t.Errorf("unexpected run: %+v", run)
	}

	rec = testutil.NewTestRecorder()
	s.Handler().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/api/runs/missing"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestMethodNotAllowed(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := testutil.NewTestRecorder()
	s.Handler().ServeHTTP(rec, testutil.NewTestRequest(http.MethodPost, "/api/runs"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestArtifactServing(t *testing.T) {
	s, _, dir := newTestServer(t)
	if err := os.WriteFile(filepath.Join(dir, "report.html"), []byte("<html></html>"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	rec := testutil.NewTestRecorder()
	s.Handler().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/artifacts/report.html"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	if rec.Body.String() != "<html></html>" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestArtifactTraversalRejected(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := testutil.NewTestRecorder()
	s.Handler().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/artifacts/..%2F..%2Fetc%2Fpasswd"))
	if rec.Code == http.StatusOK {
		t.Error("traversal request served")
	}
}
