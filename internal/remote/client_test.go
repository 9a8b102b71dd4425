package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"recagent/internal/remote"
	"recagent/internal/services"
)

func newClient(t *testing.T, srv *httptest.Server) *remote.Client {
	t.Helper()
	client, err := remote.New(srv.URL, remote.DefaultEndpoints(), 2*time.Second)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestNewRejectsRelativeURL(t *testing.T) {
	if _, err := remote.New("localhost:5000", remote.Endpoints{}, time.Second); err == nil {
		t.Fatal("expected error for URL without scheme")
	}
	if _, err := remote.New("", remote.Endpoints{}, time.Second); err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestFetchCommandDecodesCaseInsensitively(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/recording/command" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"Action":"start","TYPE":"combined","duration":0,"quality":"high"}`)
	}))
	defer srv.Close()

	cmd, err := newClient(t, srv).FetchCommand(context.Background())
	if err != nil {
		t.Fatalf("FetchCommand returned error: %v", err)
	}
	want := remote.Command{Action: "start", Type: "combined", Duration: 0, Quality: "high"}
	if cmd != want {
		t.Fatalf("got %+v want %+v", cmd, want)
	}
}

func TestFetchCommandDefaults(t *testing.T) {
	for name, body := range map[string]string{
		"object": `{"action":"screenshot"}`,
		"empty":  ``,
		"null":   `null`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, body)
			}))
			defer srv.Close()

			cmd, err := newClient(t, srv).FetchCommand(context.Background())
			if err != nil {
				t.Fatalf("FetchCommand returned error: %v", err)
			}
			if cmd.Quality != "medium" || cmd.Duration != 0 || cmd.Type != "" {
				t.Fatalf("unexpected defaults %+v", cmd)
			}
		})
	}
}

func TestFetchCommandMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"action":"start","duration":"ten"}`)
	}))
	defer srv.Close()

	_, err := newClient(t, srv).FetchCommand(context.Background())
	var decodeErr *remote.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if decodeErr.Payload == "" || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("unexpected decode error %+v", decodeErr)
	}
}

func TestFetchCommandIgnoresOutputPath(t *testing.T) {
	cmd, err := remote.DecodeCommand([]byte(`{"action":"start","type":"screen","outputPath":"C:/elsewhere"}`))
	if err != nil {
		t.Fatalf("DecodeCommand returned error: %v", err)
	}
	want := remote.Command{Action: "start", Type: "screen", Quality: "medium"}
	if cmd != want {
		t.Fatalf("got %+v want %+v", cmd, want)
	}
}

func TestFetchCommandRejectsOversizedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"action":"screenshot","type":"`+strings.Repeat("x", 128<<10)+`"}`)
	}))
	defer srv.Close()

	_, err := newClient(t, srv).FetchCommand(context.Background())
	var decodeErr *remote.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if len(decodeErr.Payload) > 1024 {
		t.Fatalf("payload snippet not truncated: %d bytes", len(decodeErr.Payload))
	}
}

func TestFetchCommandNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newClient(t, srv).FetchCommand(context.Background())
	var transport *remote.TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if transport.StatusCode != http.StatusServiceUnavailable || !errors.Is(err, services.ErrTransient) {
		t.Fatalf("unexpected transport error %+v", transport)
	}
}

func TestFetchCommandUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := remote.New(url, remote.Endpoints{}, time.Second)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.FetchCommand(context.Background()); !errors.As(err, new(*remote.TransportError)) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestReportStatusPostsJSON(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/recording/status" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	if err := newClient(t, srv).ReportStatus(context.Background(), remote.NewStatus(remote.StatusProcessing, "/rec", at)); err != nil {
		t.Fatalf("ReportStatus returned error: %v", err)
	}
	if got["status"] != "processing" || got["currentFile"] != "/rec" || got["duration"] != "00:00:00" {
		t.Fatalf("unexpected payload %v", got)
	}
	if got["startTime"] != "2026-10-19T09:00:00Z" {
		t.Fatalf("unexpected start time %v", got["startTime"])
	}
}

func TestNewStatusDropsFractionalSeconds(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 0, 5, 123456789, time.FixedZone("CEST", 2*60*60))
	status := remote.NewStatus(remote.StatusIdle, "/rec", at)
	if status.StartTime != "2026-10-19T09:00:05+02:00" {
		t.Fatalf("unexpected start time %q", status.StartTime)
	}
}

func TestReportStatusFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := newClient(t, srv).ReportStatus(context.Background(), remote.NewStatus(remote.StatusIdle, "", time.Now()))
	if !errors.As(err, new(*remote.TransportError)) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestUploadSendsMultipartFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "screenshot_20261019_090000.png")
	if err := os.WriteFile(path, []byte("png-bytes"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	var gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/recording/upload" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotName, gotBody = header.Filename, string(data)
	}))
	defer srv.Close()

	if err := newClient(t, srv).Upload(context.Background(), path); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if gotName != filepath.Base(path) || gotBody != "png-bytes" {
		t.Fatalf("unexpected upload %q %q", gotName, gotBody)
	}
}

func TestUploadMissingFile(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	if err := newClient(t, srv).Upload(context.Background(), filepath.Join(t.TempDir(), "nope.mp4")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestBaseURLWithPathPrefix(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	client, err := remote.New(srv.URL+"/agent", remote.Endpoints{Command: "/cmd"}, time.Second)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.FetchCommand(context.Background()); err != nil {
		t.Fatalf("FetchCommand returned error: %v", err)
	}
	if gotPath != "/agent/cmd" {
		t.Fatalf("expected prefixed path, got %q", gotPath)
	}
}
