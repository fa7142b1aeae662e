package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

func handleServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", envOr("MUDRA_ADDR", ":8080"), "HTTP listen address")
	dbPath := fs.String("db", os.Getenv("MUDRA_DB"), "Database path (default ~/.mudra/mudra.db)")
	configPath := fs.String("config", os.Getenv("MUDRA_CONFIG"), "Tuning file (.json)")
	pluginDir := fs.String("plugins", os.Getenv("MUDRA_PLUGINS"), "Plugin directory")
	webDir := fs.String("web", os.Getenv("MUDRA_WEB"), "Static web directory")
	withTray := fs.Bool("tray", false, "Show the system tray menu")
	retention := fs.Duration("retention", envDuration("MUDRA_RETENTION", DefaultRetention), "Drop events older than this at startup (0 keeps all)")
	fs.Parse(args)

	fmt.Println("Mudra - Hand Gesture Media Control")

	dir, err := dataDir()
	if err != nil {
		log.Fatalf("Failed to prepare data directory: %v", err)
	}

	cfg, err := loadConfig(*configPath, dir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *dbPath == "" {
		*dbPath = filepath.Join(dir, "mudra.db")
	}
	st, err := store.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	if n, err := pruneEvents(st, *retention, time.Now()); err != nil {
		log.Printf("Failed to prune events: %v", err)
	} else if n > 0 {
		log.Printf("Pruned %d events older than %s", n, *retention)
	}

	if *pluginDir == "" {
		*pluginDir = findPluginDir()
	}

	a := app.New(app.Config{
		Store:      st,
		PluginDir:  *pluginDir,
		PluginName: cfg.GetPluginName(),
		Capture:    cfg.CaptureConfig(),
		Classifier: cfg.ClassifierConfig(),
		Stabilizer: cfg.StabilizerConfig(),

		MotionFraction: cfg.GetMotionFraction(),
	})

	if err := a.DiscoverPlugins(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	} else {
		for _, p := range a.PluginManager().List() {
			log.Printf("Loaded plugin %s (%v)", p.Manifest.Name, p.Manifest.Actions)
		}
	}
	if err := a.ReloadBindings(); err != nil {
		log.Printf("Failed to load bindings: %v", err)
	}

	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}
	defer a.Stop()

	if *webDir == "" {
		*webDir = findWebDir()
	}
	if *webDir != "" {
		fmt.Printf("Serving static files from: %s\n", *webDir)
	}

	srv := server.New(server.Config{
		StaticDir: *webDir,
		Store:     st,
		Pipeline:  a,
		Export:    func() any { return a.ExportLog() },

		ClearFrames: a.FrameLog().Clear,
	})
	defer srv.Close()

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("Starting server on %s\n", *addr)
		errCh <- srv.ListenAndServe(*addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	if *withTray {
		runTray(a, *addr, sigCh, errCh)
		return
	}

	select {
	case sig := <-sigCh:
		log.Printf("Received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server failed: %v", err)
		}
	}
}

// runTray blocks in the tray loop until Quit, a signal or a server failure.
func runTray(a *app.App, addr string, sigCh <-chan os.Signal, errCh <-chan error) {
	t := tray.New()
	unsubscribe := a.Subscribe(t.Observe)
	defer unsubscribe()

	t.OnToggle(a.SetEnabled)
	t.OnReset(a.Reset)
	t.OnSettings(func() {
		if err := openBrowser(localURL(addr)); err != nil {
			log.Printf("Failed to open settings: %v", err)
		}
	})

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("Received %s, shutting down", sig)
		case err := <-errCh:
			log.Printf("Server stopped: %v", err)
		}
		tray.Quit()
	}()

	t.Run()
}

// DefaultRetention is how long events are kept in the store.
const DefaultRetention = 30 * 24 * time.Hour

// pruneEvents removes events older than retention. A non-positive retention
// keeps everything.
func pruneEvents(st *store.Store, retention time.Duration, now time.Time) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	return st.Events().DeleteBefore(now.Add(-retention))
}

// loadConfig reads path, or dir/config.json when present, or returns an
// empty config that yields every default.
func loadConfig(path, dir string) (*config.Config, error) {
	if path == "" {
		candidate := filepath.Join(dir, "config.json")
		if _, err := os.Stat(candidate); err != nil {
			return &config.Config{}, nil
		}
		path = candidate
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded config from %s", path)
	return cfg, nil
}

func localURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
