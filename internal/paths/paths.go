package paths

import (
	"os"
	"path/filepath"
)

const (
	AppDirName         = "planner"
	ConfigFileName     = "planner-config.json"
	EventsFileName     = "dates.json"
	CategoriesFileName = "categories.txt"
	HistoryFileName    = "history.db"
	PIDFileName        = "planner.pid"
	LogFileName        = "planner.log"
	EnvFileName        = ".env"
	SilentFileName     = "silent.json"
	DirPerm            = 0755
	FilePerm           = 0644
)

// AtomicWrite writes data to path via a temporary file + rename to avoid
// partial writes. The parent directory is created if needed. Readers in
// other processes see either the old or the new content, never a mix.
func AtomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), DirPerm); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, FilePerm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// DataDir returns the platform-specific data directory for planner:
//   - $PLANNER_DATA_DIR when set
//   - Windows: %APPDATA%\planner
//   - Unix:    ~/.local/share/planner
//
// Falls back to os.TempDir()/planner if no home directory is available.
func DataDir() string {
	if dir := os.Getenv("PLANNER_DATA_DIR"); dir != "" {
		return dir
	}
	if appdata := os.Getenv("APPDATA"); appdata != "" {
		return filepath.Join(appdata, AppDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppDirName)
	}
	return filepath.Join(home, ".local", "share", AppDirName)
}

// ConfigDir returns the per-user configuration directory
// (~/.config/planner on Unix, %APPDATA%\planner on Windows).
func ConfigDir() string {
	if appdata := os.Getenv("APPDATA"); appdata != "" {
		return filepath.Join(appdata, AppDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppDirName)
	}
	return filepath.Join(home, ".config", AppDirName)
}

// In joins name onto dir, falling back to DataDir when dir is empty.
func In(dir, name string) string {
	if dir == "" {
		dir = DataDir()
	}
	return filepath.Join(dir, name)
}
