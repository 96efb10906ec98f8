package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ykvlv/schedule-bot/internal/cache"
	"github.com/ykvlv/schedule-bot/internal/config"
	"github.com/ykvlv/schedule-bot/internal/delivery"
	"github.com/ykvlv/schedule-bot/internal/detector"
	"github.com/ykvlv/schedule-bot/internal/metrics"
	"github.com/ykvlv/schedule-bot/internal/scheduler"
	"github.com/ykvlv/schedule-bot/internal/source"
	"github.com/ykvlv/schedule-bot/internal/store"
	"github.com/ykvlv/schedule-bot/internal/telegram"
)

const cachePurgeInterval = time.Hour

type App struct {
	cfg     config.Config
	log     *zap.Logger
	loc     *time.Location
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	reg     *prometheus.Registry
	metrics *metrics.Metrics
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{
		cfg:     cfg,
		log:     log,
		loc:     loc,
		bot:     bot,
		httpSrv: srv,
		reg:     reg,
		metrics: metrics.New(reg),
	}, nil
}

func (a *App) openStore(ctx context.Context) (store.Repo, error) {
	switch a.cfg.StoreDriver {
	case config.DriverMongo:
		return store.OpenMongo(ctx, a.cfg.MongoURI, a.cfg.MongoDB)
	case config.DriverSQLite:
		return store.OpenSQLite(ctx, a.cfg.DBPath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", a.cfg.StoreDriver)
	}
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting schedule-bot",
		zap.String("bot", a.bot.Self.UserName),
		zap.String("store", a.cfg.StoreDriver),
		zap.String("source", a.cfg.SourceBaseURL),
		zap.String("http", a.cfg.HTTPAddr),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := a.openStore(ctx)
	if err != nil {
		a.log.Error("open store failed", zap.Error(err))
		return err
	}
	defer func() { _ = repo.Close() }()
	a.log.Info("store ready")

	c := cache.New(a.loc, a.log, cache.WithScheduleTTL(a.cfg.ScheduleTTL))
	client := source.NewClient(source.Config{
		BaseURL:    a.cfg.SourceBaseURL,
		Timeout:    a.cfg.SourceTimeout,
		Retries:    a.cfg.FetchRetries,
		RetryDelay: a.cfg.FetchRetryDelay,
	}, source.NewParser(source.NewTeachers()), c, a.metrics, a.log)

	deliverer := delivery.New(a.bot, a.bot.Self.ID, repo, c, telegram.FormatNotification, a.metrics, a.log,
		delivery.WithRate(a.cfg.SendRate))
	sched := scheduler.New(repo, client, c, deliverer, a.loc, a.metrics, a.log,
		scheduler.WithWatchInterval(a.cfg.WatchInterval),
		scheduler.WithDefaultTime(a.cfg.DefaultNotifyTime))
	deliverer.OnDeactivate(sched.Cancel)

	det := detector.New(client, c, sched.ScheduleAll, a.metrics, a.log,
		detector.WithInterval(a.cfg.PollInterval),
		detector.WithDebounce(a.cfg.DebounceWindow))

	router := telegram.NewRouter(a.bot, a.bot.Self, repo, client, deliverer, a.loc, a.log)

	if _, err := a.bot.Request(telegram.Commands()); err != nil {
		a.log.Warn("set bot commands failed", zap.Error(err))
	}

	var wg sync.WaitGroup
	for _, run := range []func(context.Context){
		det.Run,
		sched.Watch,
		func(ctx context.Context) { deliverer.RunSweep(ctx, a.cfg.SweepInterval) },
		func(ctx context.Context) { c.Run(ctx, cachePurgeInterval) },
		router.RunJanitor,
	} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(run)
	}

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.bot.StopReceivingUpdates()

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()
			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}

			wg.Wait()
			return nil

		case upd := <-updCh:
			go a.handle(ctx, router, upd)
		}
	}
}

// handle serves one update; a panicking handler must not stop the loop.
func (a *App) handle(ctx context.Context, router *telegram.Router, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("update handler panicked", zap.Int("update_id", upd.UpdateID), zap.Any("panic", r))
		}
	}()
	router.HandleUpdate(ctx, upd)
}
