package confkit

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// LoadDotenvOnce loads .env files once per process.
//
//   - NO_DOTENV=1 disables loading.
//   - ENV_FILE names a single file to load instead of searching.
//   - Otherwise .env is loaded from the working directory and each parent up
//     to the module root, nearest first.
//
// Variables already set in the environment win unless DOTENV_OVERLOAD=1.
func LoadDotenvOnce() {
	dotenvOnce.Do(loadDotenv)
}

func loadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}
	load := godotenv.Load
	if os.Getenv("DOTENV_OVERLOAD") == "1" {
		load = godotenv.Overload
	}

	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		_ = load(envFile)
		return
	}

	wd, err := os.Getwd()
	if err != nil {
		_ = load(".env")
		return
	}
	walkUp(wd, func(dir string) {
		if p := filepath.Join(dir, ".env"); fileExists(p) {
			_ = load(p)
		}
	})
}
