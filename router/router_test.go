// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/clearballot/notify"
	"github.com/danielhkuo/clearballot/testutil"
)

func TestHealthEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	mux := NewRouter(db, cfg, notify.LogSender{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", w.Body.String())
	}
}

func TestRootEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	mux := NewRouter(db, cfg, notify.LogSender{})

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	expected := "clearballot API v1"
	if w.Body.String() != expected {
		t.Errorf("Expected body '%s', got '%s'", expected, w.Body.String())
	}
}

func TestRouteExistence(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	mux := NewRouter(db, cfg, notify.LogSender{})

	// Routes should be matched; 400/401/404/409/500 are all valid
	// handler outcomes on an empty database.
	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/"},

		{"POST", "/election"},
		{"PATCH", "/election"},
		{"POST", "/election/start"},
		{"POST", "/election/finalize"},
		{"GET", "/election/tally"},

		{"POST", "/voters/test-id/code"},
		{"POST", "/votes"},

		{"GET", "/election"},
		{"GET", "/candidates"},
		{"GET", "/voters/test-id"},
		{"GET", "/history"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code == http.StatusMethodNotAllowed {
				t.Errorf("Route %s %s returned 405, expected route handler to exist", tc.method, tc.path)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	mux := NewRouter(db, cfg, notify.LogSender{})

	testCases := []struct {
		method string
		path   string
	}{
		{"POST", "/health"},
		{"DELETE", "/election"},
		{"GET", "/votes"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("Expected 405 for %s %s, got %d", tc.method, tc.path, w.Code)
			}
		})
	}
}

func TestPathParameterExtraction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	testutil.SetTestWindow(t, db, "Test", time.Now().Add(-time.Minute), time.Now().Add(time.Hour), true)
	testutil.CreateTestVoter(t, db, "voter-1", "Ada", "ada@example.edu")

	mux := NewRouter(db, cfg, notify.LogSender{})

	t.Run("voter ID extraction", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/voters/voter-1", nil)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200 for a known voter, got %d. Body: %s", w.Code, w.Body.String())
		}
	})

	t.Run("unknown voter still matches the route", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/voters/ghost", nil)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404 for an unknown voter, got %d", w.Code)
		}
	})
}
