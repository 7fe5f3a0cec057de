package confkit

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// LoadDotenvOnce loads .env files on first use. ENV_FILE names a single file;
// otherwise every .env from the working directory up to the module root is
// read, nearest first. Existing variables win unless DOTENV_OVERLOAD=1.
// NO_DOTENV=1 disables loading.
func LoadDotenvOnce() {
	dotenvOnce.Do(loadDotenv)
}

func loadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}
	var paths []string
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		paths = []string{envFile}
	} else if wd, err := os.Getwd(); err == nil {
		paths = dotenvCandidates(wd)
	}
	if len(paths) == 0 {
		return
	}
	if os.Getenv("DOTENV_OVERLOAD") == "1" {
		// Overload applies in order, so the nearest file must come last.
		for i := len(paths) - 1; i >= 0; i-- {
			_ = godotenv.Overload(paths[i])
		}
		return
	}
	_ = godotenv.Load(paths...)
}

// dotenvCandidates lists existing .env files from start up to the module root.
func dotenvCandidates(start string) []string {
	var out []string
	walkUp(start, func(dir string) bool {
		if p := filepath.Join(dir, ".env"); fileExists(p) {
			out = append(out, p)
		}
		return fileExists(filepath.Join(dir, "go.mod"))
	})
	return out
}
