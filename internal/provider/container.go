package provider

import (
	"github.com/smartcargo-next/internal/authz"
	"github.com/smartcargo-next/internal/cache"
	"github.com/smartcargo-next/internal/config"
	"github.com/smartcargo-next/internal/ledger"
	"github.com/smartcargo-next/internal/logger"
	"github.com/smartcargo-next/internal/models"
	"github.com/smartcargo-next/internal/queue"
	"github.com/smartcargo-next/internal/repository"
	"github.com/smartcargo-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config         *config.Config
	QueueClient    *queue.Client
	LedgerProducer *ledger.Producer

	// Repositories
	UserRepo          repository.UserRepository
	CargoOfferRepo    repository.CargoOfferRepository
	VehicleRepo       repository.VehicleRepository
	ShipmentRepo      repository.ShipmentRepository
	SensorReadingRepo repository.SensorReadingRepository
	AlertRepo         repository.AlertRepository
	AuditEventRepo    repository.AuditEventRepository

	// Services
	AuthzService     *authz.Service
	EmitterService   *service.EmitterService
	AuthService      *service.AuthService
	UserAdminService *service.UserAdminService
	CargoService     *service.CargoService
	VehicleService   *service.VehicleService
	MatchingService  *service.MatchingService
	ShipmentService  *service.ShipmentService
	TelemetryService *service.TelemetryService
	AlertService     *service.AlertService
	AuditService     *service.AuditService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:         cfg,
		QueueClient:    queueClient,
		LedgerProducer: ledger.NewProducer(&cfg.Ledger),
	}

	c.initRepositories()
	c.initServices()

	return c
}

// Close 释放队列与事件流连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := c.LedgerProducer.Close(); err != nil {
		logger.Warnw("provider_close_ledger_failed", "error", err)
	}
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.CargoOfferRepo = repository.NewCargoOfferRepository(db)
	c.VehicleRepo = repository.NewVehicleRepository(db)
	c.ShipmentRepo = repository.NewShipmentRepository(db)
	c.SensorReadingRepo = repository.NewSensorReadingRepository(db)
	c.AlertRepo = repository.NewAlertRepository(db)
	c.AuditEventRepo = repository.NewAuditEventRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	var publisher service.AuditPublisher
	if c.LedgerProducer != nil {
		publisher = c.LedgerProducer
	}
	var eventQueue service.EventQueue
	if c.QueueClient != nil {
		eventQueue = c.QueueClient
	}
	c.EmitterService = service.NewEmitterService(eventQueue, c.AlertRepo, c.AuditEventRepo, publisher)

	c.AuthService = service.NewAuthService(c.Config, c.UserRepo, c.EmitterService)
	c.UserAdminService = service.NewUserAdminService(c.UserRepo, c.EmitterService)
	c.CargoService = service.NewCargoService(c.CargoOfferRepo, c.EmitterService)
	c.VehicleService = service.NewVehicleService(c.VehicleRepo, c.EmitterService)
	c.MatchingService = service.NewMatchingService(c.Config.Matching, c.CargoOfferRepo, c.VehicleRepo, c.ShipmentRepo, c.EmitterService)
	c.ShipmentService = service.NewShipmentService(c.Config.Telemetry, c.ShipmentRepo, c.CargoOfferRepo, c.VehicleRepo, c.EmitterService)
	c.TelemetryService = service.NewTelemetryService(c.Config.Telemetry, c.ShipmentRepo, c.SensorReadingRepo, c.EmitterService, nil)
	c.AlertService = service.NewAlertService(c.AlertRepo, c.ShipmentRepo, c.UserRepo)
	c.AuditService = service.NewAuditService(c.AuditEventRepo)
}
