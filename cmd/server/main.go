package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/matintgp/ecommerce-proj/internal/app"
	"github.com/matintgp/ecommerce-proj/internal/app/handlers"
	"github.com/matintgp/ecommerce-proj/internal/config"
	"github.com/matintgp/ecommerce-proj/internal/jwt-new/jwtmiddleware"
	"github.com/matintgp/ecommerce-proj/internal/lib/logger"
	"github.com/matintgp/ecommerce-proj/internal/lib/logger/handlers/urllog"
	"github.com/matintgp/ecommerce-proj/internal/lib/metrics"
	"github.com/pkg/errors"
)

func main() {
	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Error("failed to close app", slog.Any("error", err))
		}
	}()

	serverMetrics := metrics.NewServerMetrics("api")

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	router.Use(serverMetrics.Middleware)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", serverMetrics.Handler())

	svc := application.Services
	router.Route("/api", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/verify-email", handlers.VerifyEmailHandler(log, svc.Verification))
			r.Post("/register", handlers.RegisterHandler(log, svc.Auth))
			r.Post("/login", handlers.LoginHandler(log, svc.Auth))
			r.Post("/token/refresh", handlers.RefreshHandler(log, svc.Auth))

			r.Group(func(r chi.Router) {
				r.Use(jwtmiddleware.NewJWTMiddleware())
				r.Get("/profile", handlers.ProfileHandler(log, svc.Auth))
				r.Patch("/profile", handlers.UpdateProfileHandler(log, svc.Auth))
				r.Get("/addresses", handlers.ListAddressesHandler(log, svc.Addresses))
				r.Post("/addresses", handlers.CreateAddressHandler(log, svc.Addresses))
				r.Delete("/addresses/{id}", handlers.DeleteAddressHandler(log, svc.Addresses))
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", handlers.ListProductsHandler(log, svc.Products))
			r.Get("/categories", handlers.CategoriesHandler(log, svc.Products))
			r.Get("/brands", handlers.BrandsHandler(log, svc.Products))
			r.Get("/genders", handlers.GendersHandler(log, svc.Products))
			r.Get("/{id}", handlers.GetProductHandler(log, svc.Products))
			r.With(jwtmiddleware.NewJWTMiddleware()).
				Get("/{id}/stock-movements", handlers.StockMovementsHandler(log, svc.Products))
		})

		r.Route("/orders", func(r chi.Router) {
			// корзина и проверка купона доступны гостям
			r.Group(func(r chi.Router) {
				r.Use(jwtmiddleware.NewOptionalJWTMiddleware())
				r.Get("/cart", handlers.GetCartHandler(log, svc.Carts))
				r.Get("/cart/items", handlers.GetCartHandler(log, svc.Carts))
				r.Post("/cart/items", handlers.AddCartItemHandler(log, svc.Carts))
				r.Delete("/cart/items", handlers.ClearCartHandler(log, svc.Carts))
				r.Patch("/cart/items/{id}", handlers.UpdateCartItemHandler(log, svc.Carts))
				r.Post("/cart/items/{id}/decrease", handlers.DecreaseCartItemHandler(log, svc.Carts))
				r.Delete("/cart/items/{id}", handlers.RemoveCartItemHandler(log, svc.Carts))
				r.Post("/coupons/validate", handlers.ValidateCouponHandler(log, svc.Coupons))
				r.Get("/coupons", handlers.ListCouponsHandler(log, svc.Coupons))
			})

			r.Group(func(r chi.Router) {
				r.Use(jwtmiddleware.NewJWTMiddleware())
				r.Post("/cart/checkout", handlers.CheckoutHandler(log, svc.Checkout))
				r.Get("/", handlers.ListOrdersHandler(log, svc.Orders))
				r.Get("/{id}", handlers.GetOrderHandler(log, svc.Orders))
				r.Get("/{id}/tracking", handlers.TrackingHandler(log, svc.Orders))
				r.Post("/{id}/cancel", handlers.CancelOrderHandler(log, svc.Orders))
				r.Post("/{id}/payment", handlers.PaymentHandler(log, svc.Orders))
				r.Post("/{id}/status", handlers.OrderStatusHandler(log, svc.Orders))
			})
		})

		r.Route("/support", func(r chi.Router) {
			r.Get("/categories", handlers.TicketCategoriesHandler(log, svc.Tickets))

			r.Group(func(r chi.Router) {
				r.Use(jwtmiddleware.NewJWTMiddleware())
				r.Get("/tickets", handlers.ListTicketsHandler(log, svc.Tickets))
				r.Post("/tickets", handlers.CreateTicketHandler(log, svc.Tickets))
				r.Get("/tickets/{id}", handlers.GetTicketHandler(log, svc.Tickets))
				r.Post("/tickets/{id}/manage", handlers.ManageTicketHandler(log, svc.Tickets))
			})
		})
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
