package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/harshit-mishr/sky-scrapper/internal/adapters/live"
	"github.com/harshit-mishr/sky-scrapper/internal/adapters/mock"
	"github.com/harshit-mishr/sky-scrapper/internal/cache"
	"github.com/harshit-mishr/sky-scrapper/internal/config"
	"github.com/harshit-mishr/sky-scrapper/internal/core"
	"github.com/harshit-mishr/sky-scrapper/internal/currency"
	"github.com/harshit-mishr/sky-scrapper/internal/httpclient"
	"github.com/harshit-mishr/sky-scrapper/internal/kv"
	"github.com/harshit-mishr/sky-scrapper/internal/logger"
	"github.com/harshit-mishr/sky-scrapper/internal/prefs"
	"github.com/spf13/cobra"
)

// app holds everything a command needs. db, prefs and cache are nil when the
// data directory cannot be opened; searches still work without them.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	db     *kv.Store
	prefs  *prefs.Prefs
	cache  *cache.Cache
	router *core.Router
	orch   *core.Orchestrator
	json   bool

	closeLog func() error
}

func bootstrap(cmd *cobra.Command) *app {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}
	modeFlag, _ := cmd.Flags().GetString("mode")
	cfg = cfg.WithMode(modeFlag)
	debug, _ := cmd.Flags().GetBool("debug")
	jsonOut, _ := cmd.Flags().GetBool("json")

	a := &app{cfg: cfg, json: jsonOut}

	closeLog, err := logger.Setup(logger.Config{DataDir: cfg.DataDir, Debug: debug})
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: logging disabled:", err)
	} else {
		a.closeLog = closeLog
	}
	a.log = logger.L()

	db, err := kv.Open(cfg.DataDir, prefs.Bucket, cache.Bucket)
	if err != nil {
		a.log.Warn("kv.open_failed", "dir", cfg.DataDir, "error", err.Error())
	} else {
		a.db = db
		a.prefs = prefs.New(db, a.log)
		a.cache = cache.New(db)
	}

	a.router = buildRouter(cfg, a.cache, a.log)
	a.orch = core.NewOrchestrator(a.router, core.NewStore(core.WithLogger(a.log)), a.log)
	return a
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

// requirePrefs fails commands that only make sense with persistent storage.
func (a *app) requirePrefs() error {
	if a.prefs == nil {
		return fmt.Errorf("data directory %s is not available", a.cfg.DataDir)
	}
	return nil
}

// displayCurrency picks the flag value, then the saved preference, then the
// configured default.
func (a *app) displayCurrency(flag string) (currency.Currency, error) {
	if flag != "" {
		return currency.Parse(flag)
	}
	fallback, err := currency.Parse(a.cfg.DefaultCurrency)
	if err != nil {
		fallback = currency.Reference
	}
	if a.prefs == nil {
		return fallback, nil
	}
	return a.prefs.Currency(fallback), nil
}

func buildRouter(cfg *config.Config, c *cache.Cache, log *slog.Logger) *core.Router {
	router := core.NewRouter(cfg)

	router.Register(mock.NewFlightsAdapter())

	client := httpclient.New(httpclient.DefaultConfig().WithTimeout(cfg.Timeout))
	amadeus := live.NewAmadeusAdapter(cfg.Amadeus, client, log.With("provider", "amadeus"))
	router.Register(cache.WrapFlights(amadeus, c, cfg.CacheTTL, log))

	return router
}
