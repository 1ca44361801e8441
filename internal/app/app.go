package app

import (
	"context"
	"errors"
	"net/http"

	"giftcircle/internal/config"
	"giftcircle/internal/db"
	claimsdomain "giftcircle/internal/domain/claims"
	directgiftsdomain "giftcircle/internal/domain/directgifts"
	groupsdomain "giftcircle/internal/domain/groups"
	partiesdomain "giftcircle/internal/domain/parties"
	votingdomain "giftcircle/internal/domain/voting"
	"giftcircle/internal/metrics"
	"giftcircle/internal/realtime"
	"giftcircle/internal/receipts"
	"giftcircle/internal/repository/inmemory"
	"giftcircle/internal/repository/postgres"
	"giftcircle/internal/store"
	"giftcircle/internal/transport/httpserver"
	"giftcircle/internal/transport/httpserver/handler"
	claimshandler "giftcircle/internal/transport/httpserver/handler/claims"
	commonhandler "giftcircle/internal/transport/httpserver/handler/common"
	directgiftshandler "giftcircle/internal/transport/httpserver/handler/directgifts"
	groupshandler "giftcircle/internal/transport/httpserver/handler/groups"
	partieshandler "giftcircle/internal/transport/httpserver/handler/parties"
	realtimehandler "giftcircle/internal/transport/httpserver/handler/realtime"
	votinghandler "giftcircle/internal/transport/httpserver/handler/voting"
	"giftcircle/migrations"
	"giftcircle/pkg/logger"
	"gorm.io/gorm"
)

type App struct {
	cfg        config.Config
	httpServer *http.Server
	db         *gorm.DB
	socket     *realtime.Socket
	stop       context.CancelFunc
	listenDone chan struct{}
	log        logger.Logger
}

func New(log logger.Logger) (*App, error) {
	log.Info("app: loading config")
	cfg, err := config.Load(log)
	if err != nil {
		return nil, err
	}

	ctx, stop := context.WithCancel(context.Background())
	a := &App{cfg: cfg, stop: stop, log: log}

	m := metrics.New()
	hub := realtime.NewHub(m, log)

	log.Info("app: initializing store", "driver", cfg.StoreDriver)
	st, err := a.openStore(ctx, hub)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	var receiptsService *receipts.Service
	if cfg.Receipts.Enabled {
		uploader, err := receipts.NewS3Uploader(ctx, receipts.S3Config{
			Bucket:          cfg.Receipts.Bucket,
			Region:          cfg.Receipts.Region,
			Endpoint:        cfg.Receipts.Endpoint,
			AccessKeyID:     cfg.Receipts.AccessKeyID,
			SecretAccessKey: cfg.Receipts.SecretAccessKey,
			PathStyle:       cfg.Receipts.PathStyle,
			PublicBaseURL:   cfg.Receipts.PublicBaseURL,
		})
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		receiptsService = receipts.NewService(uploader, cfg.Receipts.MaxSizeBytes)
		log.Info("app: receipt uploads enabled", "bucket", cfg.Receipts.Bucket)
	}

	if cfg.Realtime.Enabled {
		a.socket = realtime.NewSocket(hub, log)
	}

	log.Info("app: initializing router")
	handlers := NewHandlers(st, receiptsService, a.socket, m, cfg, log)
	router := httpserver.NewRouter(cfg, handlers, m.Handler(), log)

	log.Info("app: initializing http server")
	a.httpServer = httpserver.New(ctx, cfg, router, log)
	return a, nil
}

// NewHandlers builds every handler group on top of one store.
func NewHandlers(st store.Store, receiptsService *receipts.Service, socket *realtime.Socket, observer commonhandler.Observer, cfg config.Config, log logger.Logger) *handler.Handlers {
	return &handler.Handlers{
		Common:      commonhandler.New(log),
		Groups:      groupshandler.New(groupsdomain.NewService(st), observer, log),
		Parties:     partieshandler.New(partiesdomain.NewService(st), receiptsService, observer, log),
		Voting:      votinghandler.New(votingdomain.NewService(st), observer, log),
		DirectGifts: directgiftshandler.New(directgiftsdomain.NewService(st), observer, log),
		Claims:      claimshandler.New(claimsdomain.NewService(st, cfg.Claims.MaxBatch), observer, log),
		Realtime:    realtimehandler.New(socket, log),
	}
}

func (a *App) openStore(ctx context.Context, hub *realtime.Hub) (store.Store, error) {
	if a.cfg.StoreDriver == config.StoreDriverMemory {
		st := inmemory.NewWithSchema()
		if a.cfg.Realtime.Enabled {
			st.OnChange(hub.Publish)
		}
		a.log.Warn("app: using in-memory store, data is lost on restart")
		return st, nil
	}

	a.log.Info("app: initializing database")
	dbConn, err := db.NewPostgres(a.cfg.DB, a.log)
	if err != nil {
		return nil, err
	}
	a.db = dbConn

	if a.cfg.DB.AutoMigrate {
		if err := db.Migrate(dbConn, migrations.Files, a.log); err != nil {
			return nil, err
		}
	}

	if a.cfg.Realtime.Enabled {
		listener := postgres.NewChangeListener(a.cfg.DB.GetDSN(), a.cfg.Realtime.ListenerMinReconnect, a.cfg.Realtime.ListenerMaxReconnect, a.log)
		a.listenDone = make(chan struct{})
		go func() {
			defer close(a.listenDone)
			if err := listener.Run(ctx, hub.Publish); err != nil {
				a.log.InternalError("realtime: listener stopped", err)
			}
		}()
	}

	return postgres.NewStore(dbConn), nil
}

func (a *App) HTTPServer() *http.Server {
	return a.httpServer
}

func (a *App) Close() error {
	a.stop()
	if a.listenDone != nil {
		<-a.listenDone
	}

	var errs []error
	if a.socket != nil {
		if err := a.socket.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.db != nil {
		sqlDB, err := a.db.DB()
		if err != nil {
			errs = append(errs, err)
		} else if err := sqlDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
