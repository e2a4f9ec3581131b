package router

import (
	"log"
	"os"
	"time"

	"github.com/coursevault/api/config"
	"github.com/coursevault/api/database"
	"github.com/coursevault/api/handlers"
	auth_handlers "github.com/coursevault/api/handlers/auth"
	certificate_handlers "github.com/coursevault/api/handlers/certificate"
	coupon_handlers "github.com/coursevault/api/handlers/coupon"
	course_handlers "github.com/coursevault/api/handlers/course"
	enrollment_handlers "github.com/coursevault/api/handlers/enrollment"
	livesession_handlers "github.com/coursevault/api/handlers/livesession"
	payment_handlers "github.com/coursevault/api/handlers/payment"
	referral_handlers "github.com/coursevault/api/handlers/referral"
	ticket_handlers "github.com/coursevault/api/handlers/ticket"
	"github.com/coursevault/api/model"
	"github.com/coursevault/api/services"
	"github.com/coursevault/api/services/storage"
	"github.com/coursevault/api/utils"
	"github.com/coursevault/api/utils/auth"
	"github.com/coursevault/api/utils/cache"
	"github.com/coursevault/api/utils/middleware"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const webhookPath = "/api/v1/payments/webhook"

// SetupRoutes wires every handler into the Fiber app
func SetupRoutes(app *fiber.App, store database.Storage, env *config.EnvironmentVariable) {
	if env.JWT_SECRET == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := env.JWT_ISSUER
	if jwtIssuer == "" {
		jwtIssuer = "coursevault-api"
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        env.JWT_SECRET,
		Expiry:        24 * time.Hour,
		RefreshExpiry: 7 * 24 * time.Hour,
		Issuer:        jwtIssuer,
	})

	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	redisURL := env.REDIS_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: failed to connect to Redis: %v. Brute force protection disabled.", err)
	}

	var bruteForceProtection *middleware.BruteForceProtection
	if redisCache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(redisCache)
	}

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	// Object storage is optional; thumbnail upload and certificate PDFs
	// degrade gracefully without it
	var spaces *storage.SpacesClient
	if env.SPACES_ACCESS_KEY != "" && env.SPACES_SECRET_KEY != "" {
		spaces, err = storage.NewSpacesClient(storage.SpacesConfig{
			AccessKey: env.SPACES_ACCESS_KEY,
			SecretKey: env.SPACES_SECRET_KEY,
			Bucket:    env.SPACES_BUCKET,
			Region:    env.SPACES_REGION,
			Endpoint:  env.SPACES_ENDPOINT,
			CDNURL:    env.SPACES_CDN_URL,
		})
		if err != nil {
			log.Printf("Warning: failed to initialize object storage: %v", err)
		}
	}

	// Services
	emailService := services.NewEmailService(env)
	certificateService := services.NewCertificateService(db, spaces)
	enrollmentService := services.NewEnrollmentService(db, emailService, certificateService)
	gateway := services.NewRazorpayService(env.RAZORPAY_KEY_ID, env.RAZORPAY_KEY_SECRET)
	paymentService := services.NewPaymentService(db, gateway)

	// Handlers
	authHandler := auth_handlers.NewAuthHandler(db, jwtManager, bruteForceProtection)
	courseHandler := course_handlers.NewCourseHandler(db, spaces)
	enrollmentHandler := enrollment_handlers.NewEnrollmentHandler(db, enrollmentService)
	orderHandler := payment_handlers.NewOrderHandler(db, paymentService, env.RAZORPAY_KEY_ID)
	webhookHandler := payment_handlers.NewWebhookHandler(db, paymentService, env.RAZORPAY_WEBHOOK_SECRET)
	couponHandler := coupon_handlers.NewCouponHandler(db)
	referralHandler := referral_handlers.NewReferralHandler(db)
	certificateHandler := certificate_handlers.NewCertificateHandler(db, certificateService)
	sessionHandler := livesession_handlers.NewSessionHandler(db)
	ticketHandler := ticket_handlers.NewTicketHandler(db, emailService)

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,
		RateLimitWindow:   1 * time.Minute,
		// Gateway retries must never bounce off the rate limiter
		RateLimitExempt: []string{webhookPath},
	})

	// Health check endpoint (public)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, store))

	// API v1 group
	api := app.Group("/api/v1")

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)

	if bruteForceProtection != nil {
		authGroup.Post("/login", bruteForceProtection.CheckLockout(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}

	authGroup.Post("/refresh", authHandler.RefreshToken)

	// Protected auth routes
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Post("/logout-all", authMiddleware.Required(), authHandler.LogoutAll)
	authGroup.Post("/change-password", authMiddleware.Required(), authHandler.ChangePassword)
	authGroup.Get("/profile", authMiddleware.Required(), authHandler.GetProfile)
	authGroup.Put("/profile", authMiddleware.Required(), authHandler.UpdateProfile)

	// Catalog routes
	courses := api.Group("/courses")
	courses.Get("/", courseHandler.ListCourses)
	courses.Get("/teaching", authMiddleware.Required(),
		middleware.RequireRole(model.RoleInstructor, model.RoleAdmin), courseHandler.ListMyCourses)
	courses.Get("/:slug", courseHandler.GetCourse)
	courses.Post("/", authMiddleware.Required(),
		middleware.RequireRole(model.RoleInstructor, model.RoleAdmin), courseHandler.CreateCourse)
	courses.Put("/:id", authMiddleware.Required(),
		middleware.RequireRole(model.RoleInstructor, model.RoleAdmin), courseHandler.UpdateCourse)
	courses.Patch("/:id/publish", authMiddleware.Required(),
		middleware.RequireRole(model.RoleInstructor, model.RoleAdmin), courseHandler.SetPublished)
	courses.Post("/:id/thumbnail", authMiddleware.Required(),
		middleware.RequireRole(model.RoleInstructor, model.RoleAdmin), courseHandler.UploadThumbnail)
	courses.Delete("/:id", authMiddleware.Required(),
		middleware.RequireRole(model.RoleAdmin), courseHandler.DeleteCourse)

	// Payment routes. The webhook is public: the gateway authenticates with
	// its HMAC signature, not a bearer token.
	payments := api.Group("/payments")
	payments.Post("/webhook", webhookHandler.HandleWebhook)
	payments.Post("/orders", authMiddleware.Required(), orderHandler.CreateOrder)
	payments.Get("/orders/my", authMiddleware.Required(), orderHandler.ListMyOrders)
	payments.Get("/my", authMiddleware.Required(), orderHandler.ListMyPayments)

	// Enrollment routes
	enrollments := api.Group("/enrollments", authMiddleware.Required())
	enrollments.Get("/my", enrollmentHandler.ListMyEnrollments)
	enrollments.Patch("/:id/progress", enrollmentHandler.UpdateProgress)

	// Coupon routes
	api.Get("/coupons/:code/preview", authMiddleware.Required(), couponHandler.PreviewCoupon)

	// Referral routes
	api.Get("/referrals/my", authMiddleware.Required(), referralHandler.GetMyReferralStats)

	// Certificate routes
	api.Get("/certificates/verify/:serial", certificateHandler.VerifyCertificate)
	api.Get("/certificates/my", authMiddleware.Required(), certificateHandler.ListMyCertificates)

	// Live session routes
	sessions := api.Group("/sessions", authMiddleware.Required())
	sessions.Get("/upcoming", sessionHandler.ListUpcomingSessions)
	sessions.Post("/",
		middleware.RequireRole(model.RoleInstructor, model.RoleAdmin), sessionHandler.ScheduleSession)
	sessions.Delete("/:id",
		middleware.RequireRole(model.RoleInstructor, model.RoleAdmin), sessionHandler.CancelSession)

	// Support ticket routes
	tickets := api.Group("/tickets", authMiddleware.Required())
	tickets.Post("/", ticketHandler.CreateTicket)
	tickets.Get("/my", ticketHandler.ListMyTickets)
	tickets.Get("/:id", ticketHandler.GetTicket)
	tickets.Post("/:id/replies", ticketHandler.ReplyToTicket)

	// Admin routes
	admin := api.Group("/admin", authMiddleware.Required(), middleware.RequireRole(model.RoleAdmin))
	admin.Post("/enrollments", enrollmentHandler.AdminEnroll)
	admin.Patch("/enrollments/:id/status", enrollmentHandler.SetStatus)
	admin.Get("/courses/:id/enrollments", enrollmentHandler.ListCourseEnrollments)
	admin.Get("/coupons", couponHandler.ListCoupons)
	admin.Post("/coupons", couponHandler.CreateCoupon)
	admin.Put("/coupons/:id", couponHandler.UpdateCoupon)
	admin.Delete("/coupons/:id", couponHandler.DeleteCoupon)
	admin.Get("/tickets", ticketHandler.ListAllTickets)
	admin.Patch("/tickets/:id/assign", ticketHandler.AssignTicket)
	admin.Patch("/tickets/:id/status", ticketHandler.SetTicketStatus)
}
