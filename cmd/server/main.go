package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	persistlog "mapsmith.ai/internal/persistence/log"
	"mapsmith.ai/internal/protocol"
	"mapsmith.ai/internal/sim/authoring"
	"mapsmith.ai/internal/sim/mapdef"
	"mapsmith.ai/internal/sim/scheduler"
	"mapsmith.ai/internal/sim/tuning"
	"mapsmith.ai/internal/transport/ws"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		tuningPath  = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (empty: built-in defaults)")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite read model (steps, sessions, structures)")
		loadRecords = flag.Bool("load_records", false, "seed the map definition from the record log before serving")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(strings.TrimSpace(*tuningPath))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}

	mapDir := filepath.Join(*dataDir, "maps", tune.MapName)
	_ = os.MkdirAll(mapDir, 0o755)

	def := mapdef.New(tune.MapName)
	recordLog := persistlog.NewRecordLogger(mapDir)
	defer recordLog.Close()
	if *loadRecords {
		n := 0
		err := persistlog.ReadRecords(recordLog.Dir(), func(st mapdef.Structure) error {
			if _, err := def.AppendRecord(st); err != nil {
				return err
			}
			n++
			return nil
		})
		if err != nil {
			logger.Fatalf("load records: %v", err)
		}
		logger.Printf("loaded %d structures from %s", n, recordLog.Dir())
	}

	// Optional read model (does not affect the step digest).
	idx, err := openRuntimeIndex(mapDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertConfig("tuning", tune); err != nil {
			logger.Printf("index backend: upsert tuning: %v", err)
		}
	}

	def.OnAppend(func(st mapdef.Structure) {
		if err := recordLog.WriteRecord(st); err != nil {
			logger.Printf("record log: %v", err)
		}
		if idx != nil {
			idx.RecordStructure(st)
		}
	})

	factory := authoring.NewFactory(def, tune.Layouts)
	hub := ws.NewHub(logger)
	sched := scheduler.New(scheduler.Config{
		TickRateHz:       tune.TickRateHz,
		Settings:         tune.Settings(),
		SessionIdleTicks: uint64(tune.SessionIdleTicks),
		InboxSize:        tune.InboxSize,
	}, factory, def, hub)
	sched.SetLogger(logger)

	stepLog := persistlog.NewStepLogger(mapDir)
	defer stepLog.Close()
	if idx != nil {
		sched.SetStepLogger(multiStepLogger{a: stepLog, b: idx})
		sched.SetSessionObserver(idx)
	} else {
		sched.SetStepLogger(multiStepLogger{a: stepLog})
	}

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := sched.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("scheduler stopped: %v", err)
		}
	}()

	wsSrv := ws.NewServer(sched, hub, ws.Info{
		MapName: tune.MapName,
		Params: protocol.MapParams{
			TickRateHz:       tune.TickRateHz,
			RenderInterval:   tune.RenderInterval,
			TriggerCooldown:  tune.TriggerCooldownTicks,
			SessionIdleTicks: tune.SessionIdleTicks,
		},
		Layouts: factory.Layouts(),
	}, logger)

	rt := httpRuntime{
		MapName:     tune.MapName,
		Sched:       sched,
		Hub:         hub,
		Def:         def,
		Index:       idx,
		WS:          wsSrv.Handler(),
		EnableAdmin: envBool("MS_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()),
		EnablePprof: envBool("MS_ENABLE_PPROF_HTTP", false),
	}
	if !rt.EnableAdmin {
		logger.Printf("admin endpoints disabled (MS_ENABLE_ADMIN_HTTP=false)")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newMux(rt),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s map=%s layouts=%v", *addr, tune.MapName, factory.Layouts())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

type multiStepLogger struct {
	a scheduler.StepLogger
	b scheduler.StepLogger
}

func (m multiStepLogger) WriteStep(entry scheduler.StepLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteStep(entry)
	}
	if m.b != nil {
		_ = m.b.WriteStep(entry)
	}
	return nil
}
