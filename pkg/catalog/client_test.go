package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetLyrics(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/track/abc/lyrics" {
				t.Errorf("Unexpected path %s", r.URL.Path)
			}
			w.Write([]byte("[00:01.00]Hello"))
		}))
		defer server.Close()

		client := NewClient(server.URL)
		got, err := client.GetLyrics(context.Background(), "abc")
		if err != nil {
			t.Fatalf("Expected success, got error: %v", err)
		}
		if got != "[00:01.00]Hello" {
			t.Errorf("Expected lyric text, got %q", got)
		}
	})

	t.Run("NotFoundIsNotAnError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := NewClient(server.URL)
		got, err := client.GetLyrics(context.Background(), "abc")
		if err != nil {
			t.Fatalf("Expected 404 to be a clean empty result, got error: %v", err)
		}
		if got != "" {
			t.Errorf("Expected empty text, got %q", got)
		}
	})

	t.Run("RetriesOnServerError", func(t *testing.T) {
		requestCount := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestCount++
			if requestCount <= 2 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte("text"))
		}))
		defer server.Close()

		client := NewClient(server.URL)
		got, err := client.GetLyrics(context.Background(), "abc")
		if err != nil {
			t.Fatalf("Expected success after retries, got error: %v", err)
		}
		if requestCount != 3 {
			t.Errorf("Expected 3 requests, got %d", requestCount)
		}
		if got != "text" {
			t.Errorf("Expected body after retry, got %q", got)
		}
	})
}

func TestGetTrack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"abc","title":"Song","artist":"Artist","album":"Album","duration":203.5}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	track, err := client.GetTrack(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Expected success, got error: %v", err)
	}
	if track.Title != "Song" || track.Artist != "Artist" || track.Duration != 203.5 {
		t.Errorf("Unexpected track: %+v", track)
	}
}

func TestURLBuilders(t *testing.T) {
	client := NewClient("http://catalog.local/")
	if got := client.StreamURL("abc"); got != "http://catalog.local/track/abc/stream" {
		t.Errorf("Unexpected stream URL %q", got)
	}
	if got := client.CoverURL("abc", 500); got != "http://catalog.local/track/abc/cover/500" {
		t.Errorf("Unexpected cover URL %q", got)
	}
	if got := client.DownloadURL("abc"); got != "http://catalog.local/track/abc/download" {
		t.Errorf("Unexpected download URL %q", got)
	}
}
