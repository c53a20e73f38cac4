package brightdata

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, routes func(r *mux.Router)) *Client {
	t.Helper()

	router := mux.NewRouter()
	routes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	client := New(zap.NewNop(), "secret-token", "ds_test")
	client.APIURL = srv.URL
	client.TriggerDelay = 0

	return client
}

func TestSnapshotPayloadShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		state    JobState
		profiles int
	}{
		{name: "bare list", status: http.StatusOK, body: `[{"name": "A B"}, {"name": "C D"}]`, state: JobComplete, profiles: 2},
		{name: "data wrapper", status: http.StatusOK, body: `{"data": [{"name": "A B"}]}`, state: JobComplete, profiles: 1},
		{name: "results wrapper", status: http.StatusOK, body: `{"results": [{"name": "A B"}, {"name": "C D"}, {"name": "E F"}]}`, state: JobComplete, profiles: 3},
		{name: "partial data", status: http.StatusOK, body: `{"partial_data": [{"name": "A B"}]}`, state: JobRunning, profiles: 1},
		{name: "single object", status: http.StatusOK, body: `{"name": "A B", "url": "https://linkedin.com/in/ab"}`, state: JobComplete, profiles: 1},
		{name: "running with partial results", status: http.StatusAccepted, body: `{"partial_results": [{"name": "A B"}]}`, state: JobRunning, profiles: 1},
		{name: "running with current results", status: http.StatusAccepted, body: `{"current_results": [{"name": "A B"}, {"name": "C D"}]}`, state: JobRunning, profiles: 2},
		{name: "running without data", status: http.StatusAccepted, body: `{"status": "running"}`, state: JobRunning},
		{name: "running with unreadable body", status: http.StatusAccepted, body: `not json`, state: JobRunning},
		{name: "not found", status: http.StatusNotFound, body: `{"error": "snapshot purged"}`, state: JobUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(r *mux.Router) {
				r.HandleFunc("/snapshot/{id}", func(w http.ResponseWriter, req *http.Request) {
					if mux.Vars(req)["id"] != "s_1" {
						t.Errorf("unexpected snapshot id %q", mux.Vars(req)["id"])
					}
					if req.URL.Query().Get("format") != "json" {
						t.Errorf("expected format=json query")
					}
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte(tt.body))
				}).Methods(http.MethodGet)
			})

			snapshot, err := client.Snapshot(context.Background(), "s_1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if snapshot.State != tt.state {
				t.Fatalf("expected state %s, got %s", tt.state, snapshot.State)
			}
			if len(snapshot.Profiles) != tt.profiles {
				t.Fatalf("expected %d profiles, got %d", tt.profiles, len(snapshot.Profiles))
			}
			if snapshot.StatusCode != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, snapshot.StatusCode)
			}
		})
	}
}

func TestSnapshotMalformedCompletePayload(t *testing.T) {
	client := newTestClient(t, func(r *mux.Router) {
		r.HandleFunc("/snapshot/{id}", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[{"name": `))
		})
	})

	if _, err := client.Snapshot(context.Background(), "s_1"); err == nil {
		t.Fatal("expected decode error for malformed payload")
	}
}

func TestSnapshotGzipAndHeaders(t *testing.T) {
	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	_, _ = zw.Write([]byte(`[{"name": "Jane Doe"}]`))
	_ = zw.Close()

	client := newTestClient(t, func(r *mux.Router) {
		r.HandleFunc("/snapshot/{id}", func(w http.ResponseWriter, req *http.Request) {
			if got := req.Header.Get("Authorization"); got != "Bearer secret-token" {
				t.Errorf("unexpected authorization header %q", got)
			}
			w.Header().Set("Content-Encoding", "gzip")
			_, _ = w.Write(compressed.Bytes())
		})
	})

	snapshot, err := client.Snapshot(context.Background(), "s_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !snapshot.Complete() || len(snapshot.Profiles) != 1 || snapshot.Profiles[0].Name != "Jane Doe" {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestSnapshotRequiresID(t *testing.T) {
	client := New(nil, "token", "")
	if _, err := client.Snapshot(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty snapshot id")
	}
}

func TestParseProfiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		profiles int
		skipped  int
		wantErr  bool
	}{
		{name: "saved results", input: `[{"name": "A B", "_quality_score": 7}, {"name": "C D"}]`, profiles: 2},
		{name: "wrapper", input: `{"data": [{"name": "A B"}, "junk"]}`, profiles: 1, skipped: 1},
		{name: "partial", input: `{"partial_data": [{"name": "A B"}]}`, profiles: 1},
		{name: "broken", input: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			profiles, skipped, err := ParseProfiles([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(profiles) != tt.profiles || skipped != tt.skipped {
				t.Fatalf("expected %d/%d, got %d/%d", tt.profiles, tt.skipped, len(profiles), skipped)
			}
		})
	}
}

func TestSnapshotsKeepsOrder(t *testing.T) {
	client := newTestClient(t, func(r *mux.Router) {
		r.HandleFunc("/snapshot/{id}", func(w http.ResponseWriter, req *http.Request) {
			switch mux.Vars(req)["id"] {
			case "done":
				_, _ = w.Write([]byte(`[{"name": "A B"}, {"name": "C D"}]`))
			case "running":
				w.WriteHeader(http.StatusAccepted)
				_, _ = w.Write([]byte(`{"status": "running"}`))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		})
	})

	snapshots, err := client.Snapshots(context.Background(), []string{"running", "done", "gone"}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := make([]string, 0, len(snapshots))
	for _, s := range snapshots {
		got = append(got, s.ID+"="+s.State.String())
	}
	if diff := cmp.Diff([]string{"running=running", "done=complete", "gone=unknown"}, got); diff != "" {
		t.Fatalf("snapshots mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotsFailsOnBadID(t *testing.T) {
	client := New(nil, "token", "")
	if _, err := client.Snapshots(context.Background(), []string{"s_1", ""}, 0); err == nil {
		t.Fatal("expected error for empty snapshot id")
	}
}
