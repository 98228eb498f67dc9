package archive

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func sceneIndexServer(t *testing.T, failFirst int32) (*httptest.Server, *int32) {
	t.Helper()
	geomScene := coveringScene(testGeom(t), "s1", time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC), 5)
	var calls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/scenes", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= failFirst {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]sceneMeta{{
			ID: geomScene.ID, AcquiredAt: geomScene.AcquiredAt,
			CloudPct: geomScene.CloudPct, Path: "/scene/s1",
		}})
	})
	mux.HandleFunc("/scene/s1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(geomScene)
	})
	return httptest.NewServer(mux), &calls
}

func TestHTTPArchive_Query(t *testing.T) {
	srv, _ := sceneIndexServer(t, 0)
	defer srv.Close()

	geom := testGeom(t)
	start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	scenes, err := NewHTTPArchive(srv.URL, "").Query(context.Background(), geom, start, start.AddDate(1, 0, 0), 20)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(scenes) != 1 || scenes[0].ID != "s1" {
		t.Fatalf("scenes = %+v, want s1", scenes)
	}
}

func TestHTTPArchive_RetriesServerErrors(t *testing.T) {
	srv, calls := sceneIndexServer(t, 2)
	defer srv.Close()

	geom := testGeom(t)
	start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	scenes, err := NewHTTPArchive(srv.URL, "").Query(context.Background(), geom, start, start.AddDate(1, 0, 0), 20)
	if err != nil {
		t.Fatalf("Query after transient failures: %v", err)
	}
	if len(scenes) != 1 {
		t.Fatalf("scenes = %+v, want 1", scenes)
	}
	if got := atomic.LoadInt32(calls); got < 3 {
		t.Errorf("index calls = %d, want >= 3 (two failures retried)", got)
	}
}

func TestHTTPArchive_ClientErrorIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "no such collection", http.StatusNotFound)
	}))
	defer srv.Close()

	geom := testGeom(t)
	start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	_, err := NewHTTPArchive(srv.URL, "").Query(context.Background(), geom, start, start.AddDate(1, 0, 0), 20)
	if err == nil {
		t.Fatal("Query succeeded against a 404 index")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want exactly 1 (4xx must not retry)", got)
	}
}

func TestHTTPArchive_SendsAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]sceneMeta{})
	}))
	defer srv.Close()

	geom := testGeom(t)
	start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	if _, err := NewHTTPArchive(srv.URL, "sekrit").Query(context.Background(), geom, start, start.AddDate(1, 0, 0), 20); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if gotAuth != "Bearer sekrit" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
}
