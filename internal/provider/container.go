package provider

import (
	"strings"
	"time"

	"github.com/dujiao-next/checkout/internal/authz"
	"github.com/dujiao-next/checkout/internal/cache"
	"github.com/dujiao-next/checkout/internal/config"
	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/metrics"
	"github.com/dujiao-next/checkout/internal/models"
	"github.com/dujiao-next/checkout/internal/payment/manual"
	"github.com/dujiao-next/checkout/internal/queue"
	"github.com/dujiao-next/checkout/internal/repository"
	"github.com/dujiao-next/checkout/internal/service"
	"github.com/dujiao-next/checkout/internal/shipping"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Metrics     *metrics.Collector
	Authz       *authz.Service

	// Repositories
	OrderRepo            repository.OrderRepository
	OrderLineRepo        repository.OrderLineRepository
	StockReservationRepo repository.StockReservationRepository
	ProductVariantRepo   repository.ProductVariantRepository
	PromotionRepo        repository.PromotionRepository
	OrderPromotionRepo   repository.OrderPromotionRepository
	CollectionRepo       repository.CollectionRepository
	CustomerRepo         repository.CustomerRepository
	TaxRateRepo          repository.TaxRateRepository
	PaymentRepo          repository.PaymentRepository

	// Providers
	ManualPayment *manual.Provider
	Shipping      *shipping.FlatRate

	// Services
	ReservationLedger         *service.ReservationLedger
	TaxRateService            *service.TaxRateService
	PromotionEngine           *service.PromotionEngine
	OrderStateMachine         *service.OrderStateMachine
	OrderService              *service.OrderService
	CartTransferService       *service.CartTransferService
	PaymentService            *service.PaymentService
	ReservationCleanupService *service.ReservationCleanupService
	CustomerAuthService       *service.CustomerAuthService
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
		Config:      cfg,
		QueueClient: queueClient,
		Metrics:     metrics.New(),
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	// 3. 初始化运营授权
	c.initAuthz()

	return c
}

// initAuthz 初始化运营角色与密钥授权；失败时运营接口全部拒绝
func (c *Container) initAuthz() {
	svc, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		return
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_authz_roles_failed", "error", err)
		return
	}
	for _, key := range c.Config.Operator.ResolvedKeys() {
		if err := svc.SetOperatorRoles(key.Name, key.Roles); err != nil {
			logger.Errorw("provider_assign_operator_roles_failed", "operator", key.Name, "error", err)
			return
		}
	}
	c.Authz = svc
}

func (c *Container) initRepositories() {
	db := models.DB
	c.OrderRepo = repository.NewOrderRepository(db)
	c.OrderLineRepo = repository.NewOrderLineRepository(db)
	c.StockReservationRepo = repository.NewStockReservationRepository(db)
	c.ProductVariantRepo = repository.NewProductVariantRepository(db)
	c.PromotionRepo = repository.NewPromotionRepository(db)
	c.OrderPromotionRepo = repository.NewOrderPromotionRepository(db)
	c.CollectionRepo = repository.NewCollectionRepository(db)
	c.CustomerRepo = repository.NewCustomerRepository(db)
	c.TaxRateRepo = repository.NewTaxRateRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
}

func (c *Container) initServices() {
	orderCfg := c.Config.Order

	c.ManualPayment = manual.New()
	if provider := strings.TrimSpace(c.Config.Payment.Provider); provider != "" && provider != constants.PaymentProviderManual {
		logger.Warnw("provider_payment_unsupported_fallback_manual", "provider", provider)
	}
	c.Shipping = shipping.NewFlatRate(c.Config.Shipping.Methods)

	c.ReservationLedger = service.NewReservationLedger(
		c.StockReservationRepo,
		c.ProductVariantRepo,
		time.Duration(orderCfg.ReservationTTLMinutes)*time.Minute,
	)
	c.TaxRateService = service.NewTaxRateService(c.TaxRateRepo, time.Duration(c.Config.Tax.CacheTTLSeconds)*time.Second)
	c.PromotionEngine = service.NewPromotionEngine(c.PromotionRepo, c.CollectionRepo, c.CustomerRepo)
	c.OrderStateMachine = service.NewOrderStateMachine(service.OrderStateMachineOptions{
		OrderRepo:        c.OrderRepo,
		VariantRepo:      c.ProductVariantRepo,
		PromotionRepo:    c.PromotionRepo,
		Ledger:           c.ReservationLedger,
		QueueClient:      c.QueueClient,
		Metrics:          c.Metrics,
		PaymentExtension: time.Duration(orderCfg.PaymentExtensionMinutes) * time.Minute,
	})
	c.OrderService = service.NewOrderService(service.OrderServiceOptions{
		OrderRepo:          c.OrderRepo,
		LineRepo:           c.OrderLineRepo,
		OrderPromotionRepo: c.OrderPromotionRepo,
		CustomerRepo:       c.CustomerRepo,
		Ledger:             c.ReservationLedger,
		StateMachine:       c.OrderStateMachine,
		PromotionEngine:    c.PromotionEngine,
		TaxRateService:     c.TaxRateService,
		Shipping:           c.Shipping,
		Metrics:            c.Metrics,
		Currency:           orderCfg.Currency,
	})
	c.CartTransferService = service.NewCartTransferService(c.OrderService)
	c.PaymentService = service.NewPaymentService(c.OrderRepo, c.PaymentRepo, c.OrderStateMachine, c.ManualPayment)
	c.ReservationCleanupService = service.NewReservationCleanupService(
		c.ReservationLedger,
		c.Metrics,
		time.Duration(orderCfg.ReservationCleanupLockMS)*time.Millisecond,
	)
	c.CustomerAuthService = service.NewCustomerAuthService(c.Config.CustomerJWT)
}
