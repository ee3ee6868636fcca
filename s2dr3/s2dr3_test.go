package s2dr3

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetch(t *testing.T) {
	var gotPath, gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotID = r.Header.Get("X-Request-ID")
		if r.URL.Path == "/404/job" {
			http.Error(w, "unknown user", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"done","tiles":3}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL + "/", Job: "job", HTTP: srv.Client()}
	data, err := c.Fetch(context.Background(), "82712455")
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/82712455/job" || gotID == "" {
		t.Errorf("path %s, request id %q", gotPath, gotID)
	}
	if data["status"] != "done" || data["tiles"] != float64(3) {
		t.Errorf("data = %v", data)
	}

	_, err = c.Fetch(context.Background(), "404")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound || se.Body != "unknown user\n" {
		t.Errorf("err = %v", err)
	}
}

func TestFetchBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()
	c := &Client{BaseURL: srv.URL, Job: "job"}
	if _, err := c.Fetch(context.Background(), "1"); err == nil {
		t.Error("expected a decode error")
	}
	if _, err := c.Fetch(context.Background(), ""); err == nil {
		t.Error("expected an error for an empty user id")
	}
}

func TestURL(t *testing.T) {
	c := NewClient()
	want := DefaultBaseURL + "/82712455/" + DefaultJob
	if got := c.URL("82712455"); got != want {
		t.Errorf("url = %s", got)
	}
}
