package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

const dataDirName = ".mudra"

func main() {
	// A missing .env is fine; variables may come from the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env: %v", err)
	}

	flag.Usage = printUsage
	flag.Parse()

	command := "serve"
	args := flag.Args()
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		handleServe(args)
	case "replay":
		handleReplay(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`mudra - hand gesture media control

Usage: mudra [command] [options]

Commands:
  serve      Run the camera pipeline and the web UI (default)
  replay     Replay an exported frame log through the gesture engine
  help       Show this help message

Environment:
  MUDRA_ADDR      Listen address (default :8080)
  MUDRA_DB        Database path (default ~/.mudra/mudra.db)
  MUDRA_CONFIG    Tuning file (default ~/.mudra/config.json when present)
  MUDRA_PLUGINS   Plugin directory (default ./plugins)
  MUDRA_WEB       Static web directory
  MUDRA_RETENTION Event retention, e.g. 720h (default 30 days, 0 keeps all)

A .env file in the working directory is loaded first.`)
}

// envOr returns the environment variable key, or def when unset.
func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// envDuration parses the environment variable key as a duration, or returns
// def when it is unset or invalid.
func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Ignoring %s=%q: %v", key, v, err)
		return def
	}
	return d
}

// dataDir returns ~/.mudra, creating it if needed.
func dataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(homeDir, dataDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

// findDir returns the first existing directory among candidates, made
// absolute when possible.
func findDir(candidates ...string) string {
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

// findWebDir searches "web", "../web", "../../web" and ~/.mudra/web.
func findWebDir() string {
	candidates := []string{"web", "../web", "../../web"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, dataDirName, "web"))
	}
	return findDir(candidates...)
}

// findPluginDir searches "plugins", "../plugins" and ~/.mudra/plugins.
func findPluginDir() string {
	candidates := []string{"plugins", "../plugins"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, dataDirName, "plugins"))
	}
	return findDir(candidates...)
}
