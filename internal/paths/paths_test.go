package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDataDirUsesOverride(t *testing.T) {
	t.Setenv("PLANNER_DATA_DIR", "/fake/data")
	if got := DataDir(); got != "/fake/data" {
		t.Errorf("DataDir() = %q, want %q", got, "/fake/data")
	}
}

func TestDataDirUsesAPPDATA(t *testing.T) {
	t.Setenv("PLANNER_DATA_DIR", "")
	t.Setenv("APPDATA", "/fake/appdata")
	got := DataDir()
	want := filepath.Join("/fake/appdata", AppDirName)
	if got != want {
		t.Errorf("DataDir() = %q, want %q", got, want)
	}
}

func TestDataDirFallsBackWithoutAPPDATA(t *testing.T) {
	t.Setenv("PLANNER_DATA_DIR", "")
	t.Setenv("APPDATA", "")
	got := DataDir()
	if filepath.Base(got) != AppDirName {
		t.Errorf("DataDir() = %q, expected base dir %q", got, AppDirName)
	}
}

func TestInDefaultsToDataDir(t *testing.T) {
	t.Setenv("PLANNER_DATA_DIR", "/fake/data")
	if got := In("", EventsFileName); got != filepath.Join("/fake/data", EventsFileName) {
		t.Errorf("In(\"\", ...) = %q", got)
	}
	if got := In("/other", EventsFileName); got != filepath.Join("/other", EventsFileName) {
		t.Errorf("In(\"/other\", ...) = %q", got)
	}
}

func TestAtomicWriteCreatesParentAndReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "dates.json")

	if err := AtomicWrite(path, []byte("[]")); err != nil {
		t.Fatalf("AtomicWrite: %v", err)
	}
	if err := AtomicWrite(path, []byte(`[{"title":"x"}]`)); err != nil {
		t.Fatalf("AtomicWrite: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `[{"title":"x"}]` {
		t.Errorf("content = %q", data)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}
