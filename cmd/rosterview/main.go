// Command rosterview runs one roster view operation against a remote
// collection server: list a page through the query cache, or change one
// user's status through the optimistic mutation path.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/coachpo/rosterview/config"
	"github.com/coachpo/rosterview/internal/fetch"
	"github.com/coachpo/rosterview/internal/mutate"
	"github.com/coachpo/rosterview/internal/observability"
	"github.com/coachpo/rosterview/internal/querycache"
	"github.com/coachpo/rosterview/internal/schema"
	"github.com/coachpo/rosterview/internal/telemetry"
	"github.com/coachpo/rosterview/internal/transport"
	"github.com/coachpo/rosterview/internal/view"
	libtelemetry "github.com/coachpo/rosterview/lib/telemetry"
)

const (
	defaultConfigPath        = "config/rosterview.yaml"
	rosterviewLoggerPrefix   = "rosterview "
	telemetryShutdownTimeout = 5 * time.Second
)

type cliFlags struct {
	configPath string
	serverURL  string
	op         string
	viewURL    string
	userID     string
	status     string
}

func main() {
	flags := parseFlags()
	ctx, cancel := newSignalContext()
	defer cancel()

	logger := log.New(os.Stdout, rosterviewLoggerPrefix, log.LstdFlags|log.Lmicroseconds)
	observability.SetLogger(observability.NewStdLogger(logger))

	cfg, loadedFromFile, err := config.LoadOrDefault(resolveConfigPath(flags.configPath))
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if !loadedFromFile {
		logger.Printf("configuration file not found, using defaults")
	}
	if flags.serverURL != "" {
		cfg.ServerURL = flags.serverURL
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v (pass -server or set ROSTERVIEW_SERVER_URL)", err)
	}

	shutdownTelemetry, err := initTelemetry(ctx, logger, cfg.Telemetry)
	if err != nil {
		logger.Fatalf("initialize telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer shutdownCancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Printf("telemetry shutdown: %v", err)
		}
	}()

	ctrl, err := buildController(cfg, flags.viewURL)
	if err != nil {
		logger.Fatalf("initialise view controller: %v", err)
	}
	defer ctrl.Close()

	boundary := view.NewBoundary(func(err error) string {
		return fmt.Sprintf("roster unavailable: %v", err)
	})

	switch flags.op {
	case "list":
		runList(ctx, ctrl, boundary)
	case "set-status":
		runSetStatus(ctx, logger, ctrl, flags.userID, flags.status)
	default:
		logger.Fatalf("unknown operation %q (want list or set-status)", flags.op)
	}
}

func parseFlags() cliFlags {
	var flags cliFlags
	flag.StringVar(&flags.configPath, "config", "", fmt.Sprintf("Path to configuration file (default: %s)", defaultConfigPath))
	flag.StringVar(&flags.serverURL, "server", "", "Roster server base URL (overrides config)")
	flag.StringVar(&flags.op, "op", "list", "Operation: list or set-status")
	flag.StringVar(&flags.viewURL, "view", "", "Initial view state as a query string, e.g. page=2&status=active")
	flag.StringVar(&flags.userID, "user", "", "User id for set-status")
	flag.StringVar(&flags.status, "status", "", "Target status for set-status: active or inactive")
	flag.Parse()
	return flags
}

func newSignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("ROSTERVIEW_CONFIG"); env != "" {
		return env
	}
	return defaultConfigPath
}

func initTelemetry(ctx context.Context, logger *log.Logger, cfg config.TelemetrySettings) (func(context.Context) error, error) {
	_, shutdown, err := libtelemetry.Init(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry provider: %w", err)
	}
	if cfg.OTLPEndpoint != "" {
		logger.Printf("telemetry initialized: endpoint=%s, service=%s", cfg.OTLPEndpoint, cfg.ServiceName)
	} else {
		logger.Printf("telemetry disabled")
	}
	return shutdown, nil
}

func buildController(cfg config.Settings, viewURL string) (*view.Controller, error) {
	client, err := transport.New(transport.Config{
		BaseURL:           cfg.ServerURL,
		Timeout:           cfg.HTTPTimeout.Std(),
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.RequestBurst,
	})
	if err != nil {
		return nil, fmt.Errorf("build transport: %w", err)
	}

	metrics := telemetry.NewCoreMetrics()
	cache := querycache.New()

	orch, err := fetch.New(cache, client.ListUsers, fetch.Options{
		StalenessWindow: cfg.StalenessWindow.Std(),
		MaxAttempts:     cfg.MaxFetchAttempts,
		InitialBackoff:  cfg.InitialBackoff.Std(),
		MaxBackoff:      cfg.MaxBackoff.Std(),
		Metrics:         metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("build fetch orchestrator: %w", err)
	}

	coord, err := mutate.New(cache, client.UpdateUserStatus, metrics)
	if err != nil {
		return nil, fmt.Errorf("build mutation coordinator: %w", err)
	}

	var prefs *view.PrefStore
	if cfg.PreferencesPath != "" {
		prefs = view.NewPrefStore(cfg.PreferencesPath)
		if err := prefs.Load(); err != nil {
			return nil, fmt.Errorf("load preferences: %w", err)
		}
	}

	return view.NewController(orch, coord, view.Options{
		DebounceWindow: cfg.DebounceInterval.Std(),
		URLSink: func(encoded string) {
			observability.Log().Debug("view state committed",
				observability.Field{Key: "url", Value: encoded})
		},
		Prefs:      prefs,
		InitialURL: viewURL,
	})
}

func runList(ctx context.Context, ctrl *view.Controller, boundary *view.Boundary) {
	out := boundary.Render(func() (string, error) {
		page, err := ctrl.Refresh(ctx)
		if err != nil {
			return "", err
		}
		return renderPage(page, ctrl.State().Page, ctrl.VisibleColumns()), nil
	})
	fmt.Println(out)
}

func runSetStatus(ctx context.Context, logger *log.Logger, ctrl *view.Controller, userID, status string) {
	target, ok := schema.ParseUserStatus(status)
	if !ok {
		logger.Fatalf("set-status: unknown status %q (want active or inactive)", status)
	}
	if userID == "" {
		logger.Fatal("set-status: -user is required")
	}

	opCtx, cancel := mutate.WithDeadline(ctx)
	defer cancel()

	// Warm the cache so the optimistic edit has a page to land on.
	if _, err := ctrl.Refresh(opCtx); err != nil {
		logger.Printf("prefetch before mutation failed, falling back to bulk invalidation: %v", err)
	}

	result, err := ctrl.SetUserStatus(opCtx, userID, target)
	if err != nil {
		logger.Fatalf("set status (attempt %s): %v", result.AttemptID, err)
	}
	logger.Printf("status change %s: user=%s state=%s", result.AttemptID, userID, result.State)
	if result.State == mutate.StateConfirmed {
		logger.Printf("server record: id=%s name=%q status=%s", result.Confirmed.ID, result.Confirmed.Name, result.Confirmed.Status)
	}
}

func renderPage(page schema.CollectionPage, pageIndex int, columns []string) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(columns, "\t")))
	for _, user := range page.Users {
		cells := make([]string, 0, len(columns))
		for _, column := range columns {
			cells = append(cells, userCell(user, column))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
	fmt.Fprintf(&b, "page %d, %d of %d users", pageIndex+1, len(page.Users), page.TotalCount)
	return b.String()
}

func userCell(user schema.User, column string) string {
	switch column {
	case "name":
		return user.Name
	case "email":
		return user.Email
	case "status":
		return string(user.Status)
	case "groups":
		names := make([]string, 0, len(user.Groups))
		for _, group := range user.Groups {
			names = append(names, group.Name)
		}
		return strings.Join(names, ",")
	default:
		return ""
	}
}
