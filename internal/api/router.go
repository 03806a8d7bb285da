// 文件路径: internal/api/router.go
// 模块说明: 组装 chi 路由：全局中间件、健康检查、/metrics，以及 /api/v1 下的商城与后台接口。
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/creamcroissant/vibemall/internal/api/handler"
	"github.com/creamcroissant/vibemall/internal/api/middleware"
	"github.com/creamcroissant/vibemall/internal/config"
	"github.com/creamcroissant/vibemall/internal/security"
	"github.com/creamcroissant/vibemall/internal/service"
	"github.com/creamcroissant/vibemall/internal/support/i18n"
)

// Services 是路由依赖的全部业务服务。
type Services struct {
	Auth          service.AuthService
	Customers     service.CustomerService
	Addresses     service.AddressService
	Catalog       service.CatalogService
	Cart          service.CartService
	Wishlist      service.WishlistService
	Checkout      service.CheckoutService
	Approvals     service.ApprovalService
	Orders        service.OrderService
	Payments      service.PaymentService
	Loyalty       service.LoyaltyService
	Resell        service.ResellService
	Reviews       service.ReviewService
	Questions     service.QuestionService
	Returns       service.ReturnService
	Notifications service.NotificationService
	Dashboard     service.DashboardService
	Invoices      service.InvoiceService
	Content       service.ContentService
	Chat          service.ChatService
	RateLimiter   *security.RateLimiter
	I18n          *i18n.Manager
	// Ready 用于 /_internal/ready，可为 nil。
	Ready func(ctx context.Context) error
}

// Options 控制路由的基础设施部分。
type Options struct {
	HTTP     config.HTTPConfig
	Metrics  config.MetricsConfig
	CORS     middleware.CORSConfig
	MaxBody  int64
	Registry *prometheus.Registry
}

func (s Services) validate() {
	required := map[string]any{
		"AuthService":         s.Auth,
		"CustomerService":     s.Customers,
		"AddressService":      s.Addresses,
		"CatalogService":      s.Catalog,
		"CartService":         s.Cart,
		"WishlistService":     s.Wishlist,
		"CheckoutService":     s.Checkout,
		"ApprovalService":     s.Approvals,
		"OrderService":        s.Orders,
		"PaymentService":      s.Payments,
		"LoyaltyService":      s.Loyalty,
		"ResellService":       s.Resell,
		"ReviewService":       s.Reviews,
		"QuestionService":     s.Questions,
		"ReturnService":       s.Returns,
		"NotificationService": s.Notifications,
		"DashboardService":    s.Dashboard,
		"InvoiceService":      s.Invoices,
		"ContentService":      s.Content,
		"ChatService":         s.Chat,
	}
	for name, svc := range required {
		if svc == nil {
			panic("router requires " + name)
		}
	}
	if s.I18n == nil {
		panic("router requires I18n Manager")
	}
}

// NewRouter wires every HTTP endpoint; it panics when a required service is missing.
func NewRouter(logger *slog.Logger, services Services, opts Options) http.Handler {
	services.validate()
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(
		chiMiddleware.RequestID,
		chiMiddleware.RealIP,
	)
	if opts.Metrics.Enabled {
		mCfg := middleware.DefaultMetricsConfig()
		if opts.Metrics.Namespace != "" {
			mCfg.Namespace = opts.Metrics.Namespace
		}
		if opts.Metrics.Subsystem != "" {
			mCfg.Subsystem = opts.Metrics.Subsystem
		}
		if len(opts.Metrics.Buckets) > 0 {
			mCfg.Buckets = opts.Metrics.Buckets
		}
		var reg prometheus.Registerer
		if opts.Registry != nil {
			reg = opts.Registry
		}
		r.Use(middleware.NewMetrics(mCfg, reg).Middleware())
	}

	cors := opts.CORS
	if len(cors.AllowedOrigins) == 0 {
		cors = middleware.DefaultCORSConfig()
	}
	r.Use(
		middleware.RequestLogger(middleware.LoggingConfig{Logger: logger, SkipPaths: middleware.DefaultLoggingConfig().SkipPaths}),
		chiMiddleware.Recoverer,
		middleware.CORS(cors),
		middleware.BodyLimit(opts.MaxBody),
	)
	if opts.HTTP.RateLimit > 0 {
		r.Use(middleware.RateLimit(services.RateLimiter, middleware.RateLimitConfig{
			Limit:     opts.HTTP.RateLimit,
			Window:    opts.HTTP.RateWindow,
			SkipPaths: []string{"/health", "/healthz", "/_internal/ready", "/metrics"},
		}))
	}
	r.Use(
		chiMiddleware.Compress(5),
		middleware.I18n(services.I18n),
	)

	registerHealthRoutes(r, services.Ready)
	if opts.Metrics.Enabled {
		var metricsHandler http.Handler = promhttp.Handler()
		if opts.Registry != nil {
			metricsHandler = promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})
		}
		if opts.Metrics.Token != "" {
			r.With(middleware.MetricsGuard(opts.Metrics.Token)).Handle("/metrics", metricsHandler)
		} else {
			r.Handle("/metrics", metricsHandler)
		}
	}

	r.Route("/api/v1", func(v1 chi.Router) {
		registerPublicRoutes(v1, services)
		registerUserRoutes(v1, services)
		registerAdminRoutes(v1, services)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		logger.Warn("unmapped route hit", "method", req.Method, "path", req.URL.Path)
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	return r
}

func registerHealthRoutes(r chi.Router, ready func(context.Context) error) {
	health := func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
	r.Get("/healthz", health)
	// Alias for Docker health check
	r.Get("/health", health)
	r.Get("/_internal/ready", func(w http.ResponseWriter, req *http.Request) {
		if ready != nil {
			if err := ready(req.Context()); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
}

func registerPublicRoutes(v1 chi.Router, s Services) {
	auth := handler.NewAuthHandler(s.Auth, s.I18n)
	catalog := handler.NewCatalogHandler(s.Catalog, s.Reviews, s.Questions, s.I18n)
	content := handler.NewContentHandler(s.Content, s.I18n)
	chat := handler.NewChatHandler(s.Chat, s.I18n)

	v1.Route("/auth", func(r chi.Router) {
		r.Post("/register", auth.Register)
		r.Post("/login", auth.Login)
		r.Post("/refresh", auth.Refresh)
		r.Post("/logout", auth.Logout)
	})

	v1.Group(func(r chi.Router) {
		r.Use(middleware.OptionalUser(s.Auth))
		r.Get("/home", catalog.Home)
		r.Get("/categories", catalog.Categories)
		r.Get("/products", catalog.Search)
		r.Get("/products/offers", catalog.SpecialOffers)
		r.Get("/products/{id}", catalog.Get)
		r.Get("/products/{id}/reviews", catalog.Reviews)
		r.Post("/products/{id}/reviews", catalog.SubmitReview)
		r.Get("/products/{id}/questions", catalog.Questions)
		r.Get("/content/banners", content.Banners)
	})

	v1.Route("/guest-chat", func(r chi.Router) {
		r.Post("/", chat.OpenGuest)
		r.Get("/{key}/messages", chat.Messages("chat.guest"))
		r.Post("/{key}/messages", chat.Send("chat.guest"))
	})
}

func registerUserRoutes(v1 chi.Router, s Services) {
	catalog := handler.NewCatalogHandler(s.Catalog, s.Reviews, s.Questions, s.I18n)
	account := handler.NewAccountHandler(s.Customers, s.Addresses, s.Loyalty, s.Notifications, s.I18n)
	cart := handler.NewCartHandler(s.Cart, s.Wishlist, s.I18n)
	orders := handler.NewOrderHandler(handler.OrderDeps{
		Checkout: s.Checkout,
		Orders:   s.Orders,
		Payments: s.Payments,
		Resell:   s.Resell,
		Returns:  s.Returns,
		Invoices: s.Invoices,
	}, s.I18n)
	chat := handler.NewChatHandler(s.Chat, s.I18n)

	v1.Group(func(r chi.Router) {
		r.Use(middleware.UserGuard(s.Auth))

		r.Post("/products/{id}/questions", catalog.AskQuestion)
		r.Post("/reviews/{id}/vote", catalog.VoteReview)

		r.Route("/account", func(a chi.Router) {
			a.Get("/profile", account.Profile)
			a.Patch("/profile", account.UpdateProfile)
			a.Get("/addresses", account.ListAddresses)
			a.Post("/addresses", account.CreateAddress)
			a.Put("/addresses/{id}", account.UpdateAddress)
			a.Delete("/addresses/{id}", account.DeleteAddress)
			a.Post("/addresses/{id}/default", account.SetDefaultAddress)
			a.Get("/loyalty", account.LoyaltyBalance)
			a.Get("/loyalty/history", account.LoyaltyHistory)
			a.Get("/notifications", account.Notifications)
			a.Post("/notifications/read-all", account.MarkAllNotificationsRead)
			a.Post("/notifications/{id}/read", account.MarkNotificationRead)
		})

		r.Route("/cart", func(c chi.Router) {
			c.Get("/", cart.View)
			c.Delete("/", cart.Clear)
			c.Post("/items", cart.Add)
			c.Patch("/items/{id}", cart.Update)
			c.Delete("/items/{id}", cart.Remove)
		})

		r.Route("/wishlist", func(wl chi.Router) {
			wl.Get("/", cart.Wishlist)
			wl.Post("/", cart.AddWishlist)
			wl.Post("/toggle", cart.ToggleWishlist)
			wl.Delete("/{id}", cart.RemoveWishlist)
			wl.Post("/{id}/move-to-cart", cart.MoveToCart)
			wl.Put("/products/{id}/price-alert", cart.SetPriceAlert)
		})

		r.Post("/checkout/quote", orders.Quote)
		r.Post("/checkout", orders.PlaceOrder)
		r.Post("/payments/confirm", orders.ConfirmPayment)

		r.Route("/orders", func(o chi.Router) {
			o.Get("/", orders.List)
			o.Get("/{number}", orders.Get)
			o.Post("/{number}/cancel", orders.Cancel)
			o.Get("/{number}/invoice", orders.Invoice)
			o.Post("/{number}/payment", orders.CreatePayment)
		})
		r.Post("/resell/{id}", orders.Resell)

		r.Route("/returns", func(rt chi.Router) {
			rt.Get("/", orders.Returns)
			rt.Post("/", orders.RequestReturn)
			rt.Get("/{id}", orders.GetReturn)
		})

		r.Route("/chat", func(c chi.Router) {
			c.Post("/", chat.Open)
			c.Get("/{id}/messages", chat.Messages("chat"))
			c.Post("/{id}/messages", chat.Send("chat"))
		})
	})
}

func registerAdminRoutes(v1 chi.Router, s Services) {
	orders := handler.NewAdminOrderHandler(s.Orders, s.Approvals, s.Dashboard, s.I18n)
	catalog := handler.NewAdminCatalogHandler(s.Catalog, s.Reviews, s.Questions, s.I18n)
	customers := handler.NewAdminCustomerHandler(handler.AdminCustomerDeps{
		Customers:     s.Customers,
		Loyalty:       s.Loyalty,
		Returns:       s.Returns,
		Dashboard:     s.Dashboard,
		Notifications: s.Notifications,
	}, s.I18n)
	invoices := handler.NewOrderHandler(handler.OrderDeps{Invoices: s.Invoices}, s.I18n)
	content := handler.NewContentHandler(s.Content, s.I18n)
	chat := handler.NewChatHandler(s.Chat, s.I18n)

	v1.Route("/admin", func(admin chi.Router) {
		admin.Use(middleware.AdminGuard(s.Auth))

		admin.Get("/dashboard", customers.Dashboard)
		admin.Get("/system/status", customers.SystemStatus)
		admin.Get("/settings/email", customers.AdminEmail)
		admin.Put("/settings/email", customers.SaveAdminEmail)
		admin.Get("/email-logs", customers.EmailLogs)

		admin.Route("/orders", func(r chi.Router) {
			r.Get("/", orders.List)
			r.Get("/export", orders.Export)
			r.Get("/{id}", orders.Get)
			r.Get("/{id}/history", orders.History)
			r.Post("/{id}/status", orders.UpdateStatus)
			r.Post("/{id}/payment-status", orders.UpdatePaymentStatus)
			r.Get("/by-number/{number}/invoice", invoices.Invoice)
		})

		admin.Route("/approvals", func(r chi.Router) {
			r.Get("/", orders.ApprovalQueue)
			r.Post("/approve", orders.Approve)
			r.Post("/reject", orders.Reject)
			r.Post("/{id}/auto", orders.AutoProcess)
		})

		admin.Route("/products", func(r chi.Router) {
			r.Post("/", catalog.CreateProduct)
			r.Post("/import", catalog.Import)
			r.Put("/{id}", catalog.UpdateProduct)
			r.Delete("/{id}", catalog.DeleteProduct)
			r.Put("/{id}/images", catalog.SetImages)
			r.Post("/{id}/rating", catalog.AdjustRating)
		})
		admin.Put("/home/countdown", catalog.SetCountdown)
		admin.Put("/home/sections/{section}", catalog.SetSection)

		admin.Route("/reviews", func(r chi.Router) {
			r.Get("/", catalog.PendingReviews)
			r.Post("/{id}/approve", catalog.ApproveReview)
			r.Delete("/{id}", catalog.DeleteReview)
			r.Delete("/{id}/images/{imageID}", catalog.DeleteReviewImage)
		})
		admin.Route("/questions", func(r chi.Router) {
			r.Get("/", catalog.Questions)
			r.Post("/{id}/answer", catalog.AnswerQuestion)
			r.Post("/{id}/approval", catalog.SetQuestionApproved)
			r.Delete("/{id}", catalog.DeleteQuestion)
		})

		for prefix, ep := range map[string]handler.ContentEndpoints{
			"/content/sliders":        content.Sliders(),
			"/content/features":       content.Features(),
			"/content/banners":        content.AdminBanners(),
			"/content/category-icons": content.CategoryIcons(),
		} {
			admin.Route(prefix, func(r chi.Router) {
				r.Get("/", ep.List)
				r.Post("/", ep.Save)
				r.Put("/{id}", ep.Save)
				r.Delete("/{id}", ep.Delete)
			})
		}

		admin.Route("/chats", func(r chi.Router) {
			r.Get("/", chat.Threads)
			r.Get("/{id}/messages", chat.Messages("admin.chats"))
			r.Post("/{id}/messages", chat.Send("admin.chats"))
			r.Post("/{id}/status", chat.SetStatus)
		})

		admin.Route("/customers", func(r chi.Router) {
			r.Get("/", customers.Customers)
			r.Post("/segments/refresh", customers.RefreshSegments)
			r.Post("/{id}/block", customers.SetBlocked)
			r.Post("/{id}/points", customers.AdjustPoints)
		})

		admin.Route("/returns", func(r chi.Router) {
			r.Get("/", customers.Returns)
			for _, action := range []string{"approve", "reject", "picked-up", "refund"} {
				r.Post("/{id}/"+action, customers.ReturnAction(action))
			}
		})
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("failed to encode response JSON", "error", err)
	}
}
