package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/rgbautista/parkpoint-backend/internal/modules/authctx"
	"github.com/rgbautista/parkpoint-backend/internal/modules/drawer"
	"github.com/rgbautista/parkpoint-backend/internal/modules/ledger"
	"github.com/rgbautista/parkpoint-backend/internal/modules/parking"
	"github.com/rgbautista/parkpoint-backend/internal/modules/peripheral"
	"github.com/rgbautista/parkpoint-backend/internal/modules/reconcile"
	"github.com/rgbautista/parkpoint-backend/internal/modules/shift"
	"github.com/rgbautista/parkpoint-backend/internal/modules/syncqueue"
)

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// ── Local durable store ─────────────────────────────────
	localPath := envOr("LOCAL_DB_PATH", "parkpoint.db")
	local, err := sql.Open("sqlite3", localPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		log.Fatal("open local store", zap.Error(err))
	}
	defer local.Close()
	if err := local.Ping(); err != nil {
		log.Fatal("ping local store", zap.Error(err))
	}

	// ── Backing store ───────────────────────────────────────
	// May be unreachable at boot: the device starts offline and the
	// reachability prober kicks the replayer once the store answers.
	remote, err := sql.Open("postgres", os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal("open backing store", zap.Error(err))
	}
	defer remote.Close()

	// ── Repositories ────────────────────────────────────────
	ledgerRepo, err := ledger.NewSQLiteRepository(local)
	if err != nil {
		log.Fatal("ledger repository", zap.Error(err))
	}
	drawerRepo, err := drawer.NewSQLiteRepository(local)
	if err != nil {
		log.Fatal("drawer repository", zap.Error(err))
	}
	shiftRepo, err := shift.NewSQLiteRepository(local)
	if err != nil {
		log.Fatal("shift repository", zap.Error(err))
	}
	parkingRepo, err := parking.NewSQLiteRepository(local)
	if err != nil {
		log.Fatal("parking repository", zap.Error(err))
	}
	queueStore, err := syncqueue.NewSQLiteStore(local)
	if err != nil {
		log.Fatal("sync queue store", zap.Error(err))
	}

	if err := parkingRepo.SeedSpots(context.Background(), defaultSpots()); err != nil {
		log.Fatal("seed spots", zap.Error(err))
	}

	// ── Services ────────────────────────────────────────────
	queue := syncqueue.NewQueue(queueStore, log)
	peripherals := peripheral.NewLogPeripherals(log)

	shiftService := shift.NewService(local, shiftRepo, drawerRepo, queue, peripherals, log)
	ledgerService := ledger.NewService(local, ledgerRepo, shiftService, queue, log)
	reconcileService := reconcile.NewService(local, shiftRepo, ledgerService, drawerRepo, queue,
		envInt64("RECONCILE_TOLERANCE_MINOR", reconcile.DefaultTolerance), log)
	parkingService := parking.NewService(local, parkingRepo, shiftService, ledgerService, queue,
		peripherals, nil, nil, log)

	// ── Sync replay ─────────────────────────────────────────
	remoteParking := parking.NewPostgresRepository(remote)
	if err := remoteParking.EnsureSpots(context.Background(), defaultSpots()); err != nil {
		// Offline boot: provisioning is retried on the reachability edge
		// below, before any queued occupancy write replays.
		log.Warn("backing store spot provisioning deferred", zap.Error(err))
	}
	applier := syncqueue.NewStoreApplier(
		shift.NewPostgresRepository(remote),
		drawer.NewPostgresRepository(remote),
		ledger.NewPostgresRepository(remote),
		remoteParking,
		ledgerRepo,
		log)
	replayer := syncqueue.NewReplayer(queueStore, applier,
		time.Duration(envInt64("SYNC_BASE_BACKOFF_MS", 1000))*time.Millisecond,
		int(envInt64("SYNC_MAX_ATTEMPTS", 8)), log)
	onReachable := func() {
		if err := remoteParking.EnsureSpots(context.Background(), defaultSpots()); err != nil {
			log.Warn("backing store spot provisioning failed", zap.Error(err))
		}
		replayer.Notify()
	}
	prober := syncqueue.NewProber(remote,
		time.Duration(envInt64("REACHABILITY_PROBE_SEC", 15))*time.Second,
		onReachable, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go replayer.Run(ctx)
	go prober.Run(ctx)

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(authctx.Middleware([]byte(envOr("JWT_SECRET", "dev-secret"))))

	shift.NewHandler(shiftService).RegisterRoutes(router)
	ledger.NewHandler(ledgerService).RegisterRoutes(router)
	reconcile.NewHandler(reconcileService).RegisterRoutes(router)
	parking.NewHandler(parkingService).RegisterRoutes(router)
	syncqueue.NewHandler(replayer).RegisterRoutes(router)

	port := envOr("APP_PORT", "8080")
	log.Info("parkpoint API starting", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

// defaultSpots is the layout used until an operator provisions a real one.
// Spot ids derive from codes, so every device and the backing store agree.
func defaultSpots() []*parking.Spot {
	var spots []*parking.Spot
	add := func(prefix string, n int, vt parking.VehicleType) {
		for i := 1; i <= n; i++ {
			spots = append(spots, parking.NewSpot(prefix+"-"+strconv.Itoa(i), vt))
		}
	}
	add("M", 10, parking.VehicleMotorcycle)
	add("C", 20, parking.VehicleCar)
	add("T", 5, parking.VehicleTruck)
	return spots
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
