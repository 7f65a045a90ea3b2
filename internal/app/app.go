package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/matintgp/ecommerce-proj/internal/config"
	"github.com/matintgp/ecommerce-proj/internal/notify"
	"github.com/matintgp/ecommerce-proj/internal/service"
	"github.com/matintgp/ecommerce-proj/internal/storage"
)

// Services - сервисный слой, собранный поверх хранилищ
type Services struct {
	Verification *service.VerificationService
	Auth         *service.AuthService
	Addresses    *service.AddressService
	Products     *service.ProductService
	Carts        *service.CartService
	Checkout     *service.CheckoutService
	Orders       *service.OrderService
	Coupons      *service.CouponService
	Tickets      *service.TicketService
}

type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *sql.DB
	Redis    *redis.Client
	Notifier notify.VerificationNotifier
	Services Services
}

// NewApp создаёт новый экземпляр App: подключения к postgres и redis, сервисы
func NewApp(log *slog.Logger, cfg *config.Config) (*App, error) {
	shipping, taxRate, err := cfg.Checkout.Amounts()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		db.Close()
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	notifier := notify.New(log, notify.ParseBrokers(cfg.Kafka.Brokers), cfg.Kafka.NotificationsTopic)

	// реализация слоев по работе с БД по каждому направлению
	userRepo := storage.NewUserRepository(db)
	addressRepo := storage.NewAddressRepository(db)
	productRepo := storage.NewProductRepository(db)
	movementRepo := storage.NewStockMovementRepository(db)
	cartRepo := storage.NewCartRepository(db)
	couponRepo := storage.NewCouponRepository(db)
	orderRepo := storage.NewOrderRepository(db)
	ticketRepo := storage.NewTicketRepository(db)
	otpRepo := storage.NewOTPRepository(rdb)

	verification := service.NewVerificationService(log, otpRepo, notifier, cfg.Verification.CodeTTL)
	carts := service.NewCartService(log, db, cartRepo, productRepo)

	return &App{
		Config:   cfg,
		Logger:   log,
		DB:       db,
		Redis:    rdb,
		Notifier: notifier,
		Services: Services{
			Verification: verification,
			Auth:         service.NewAuthService(log, userRepo, verification, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL),
			Addresses:    service.NewAddressService(log, db, addressRepo),
			Products:     service.NewProductService(log, productRepo, movementRepo),
			Carts:        carts,
			Checkout: service.NewCheckoutService(log, db, cartRepo, productRepo, couponRepo, orderRepo, movementRepo, addressRepo,
				service.CheckoutConfig{ShippingCost: shipping, TaxRate: taxRate}),
			Orders:  service.NewOrderService(log, db, orderRepo, productRepo, couponRepo, movementRepo),
			Coupons: service.NewCouponService(log, couponRepo, carts),
			Tickets: service.NewTicketService(log, ticketRepo, userRepo),
		},
	}, nil
}

// Close закрывает все внешние подключения
func (a *App) Close() error {
	return errors.Join(a.Notifier.Close(), a.Redis.Close(), a.DB.Close())
}
