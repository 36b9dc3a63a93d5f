// Command drivecoach runs the upload/session HTTP service, or with the
// upload subcommand submits a video to a running service.
//
// Settings may come from a .env file or DRIVECOACH_* environment variables;
// flags take precedence over both.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/banshee-data/drivecoach/internal/api"
	"github.com/banshee-data/drivecoach/internal/config"
	"github.com/banshee-data/drivecoach/internal/db"
	"github.com/banshee-data/drivecoach/internal/version"
	"github.com/banshee-data/drivecoach/internal/vision"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && (args[0] == "serve" || args[0] == "upload") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "upload":
		err = upload(ctx, args, os.Stdout)
	default:
		err = serve(ctx, args, os.Stdout)
	}
	if err != nil {
		log.Fatalf("drivecoach %s: %v", cmd, err)
	}
}

// envOr returns the DRIVECOACH_<key> environment value or def.
func envOr(key, def string) string {
	if v, ok := os.LookupEnv("DRIVECOACH_" + key); ok && v != "" {
		return v
	}
	return def
}

// serveOptions are the settings of the serve subcommand.
type serveOptions struct {
	listen     string
	dataDir    string
	dbPath     string
	configPath string
	maxUpload  int64
}

func parseServe(args []string, stdout io.Writer) (serveOptions, bool, error) {
	fs := flag.NewFlagSet("drivecoach serve", flag.ContinueOnError)
	fs.SetOutput(stdout)
	var o serveOptions
	fs.StringVar(&o.listen, "listen", envOr("LISTEN", ":8080"), "Listen address")
	fs.StringVar(&o.dataDir, "data-dir", envOr("DATA_DIR", "sessions"), "Directory holding one sub-directory per session")
	fs.StringVar(&o.dbPath, "db", envOr("DB", "drivecoach.db"), "Sessions database path")
	fs.StringVar(&o.configPath, "config", envOr("CONFIG", ""), "Pipeline tuning config (.json)")
	fs.Int64Var(&o.maxUpload, "max-upload", api.DefaultMaxUpload, "Maximum upload size in bytes")
	showVersion := fs.Bool("version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, false, err
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String("drivecoach"))
		return o, false, nil
	}
	if o.listen == "" {
		return o, false, fmt.Errorf("listen address is required")
	}
	return o, true, nil
}

func serve(ctx context.Context, args []string, stdout io.Writer) error {
	o, ok, err := parseServe(args, stdout)
	if err != nil || !ok {
		return err
	}

	cfg, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return err
	}
	opts, err := vision.OptionsFrom(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(o.dataDir, 0o755); err != nil {
		return err
	}
	store, err := db.NewDB(o.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open sessions database: %w", err)
	}
	defer store.Close()

	srv := api.NewServer(store, vision.NewRunner(opts), o.dataDir)
	srv.SetMaxUpload(o.maxUpload)
	mux := srv.ServeMux()
	if err := store.AttachAdminRoutes(mux); err != nil {
		return err
	}

	server := &http.Server{
		Addr:    o.listen,
		Handler: api.LoggingMiddleware(mux),
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s, sessions in %s", o.listen, o.dataDir)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("Graceful shutdown complete")
	return nil
}

func upload(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("drivecoach upload", flag.ContinueOnError)
	server := fs.String("server", envOr("SERVER", "http://localhost:8080"), "drivecoach service URL")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: drivecoach upload [flags] <video>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected 1 argument, got %d", fs.NArg())
	}

	c := api.NewClient(*server, nil)
	resp, err := c.Upload(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "session: %s\nlane csv: %s\n", resp.ID, resp.LaneCSV)
	return nil
}
