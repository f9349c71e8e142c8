package memstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestModelManagerStatusMissingThenReadyAfterDownload(t *testing.T) {
	dir := t.TempDir()
	mgr := NewModelManager(dir, nil)

	man, err := mgr.LoadManifest()
	if err != nil {
		t.Fatal(err)
	}
	man.Artifacts["model.gguf"] = "deadbeef"
	if err := mgr.saveManifest(man); err != nil {
		t.Fatal(err)
	}

	status, err := mgr.Status()
	if err != nil {
		t.Fatal(err)
	}
	if status.Ready {
		t.Fatal("expected not ready before download")
	}
	if len(status.Missing) != 1 || status.Missing[0] != "model.gguf" {
		t.Fatalf("Missing = %+v", status.Missing)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake-gguf-bytes"))
	}))
	defer server.Close()

	mgr.source = func(filename string) string { return server.URL + "/" + filename }
	if err := mgr.Download(context.Background(), nil); err != nil {
		t.Fatalf("Download: %v", err)
	}

	status, err = mgr.Status()
	if err != nil {
		t.Fatal(err)
	}
	if !status.Ready {
		t.Fatalf("expected ready after download, missing=%+v", status.Missing)
	}
	if _, err := os.Stat(filepath.Join(dir, "model.gguf")); err != nil {
		t.Fatal("expected downloaded artifact on disk")
	}
}
