package app

import (
	"fmt"
	"log"
	"os"

	"github.com/coursevault/api/api"
	"github.com/coursevault/api/config"
	"github.com/coursevault/api/database"
	"github.com/coursevault/api/router"
	"github.com/coursevault/api/services"
	"github.com/coursevault/api/services/cron"
	"gorm.io/gorm"
)

// SetupAndRunServer boots configuration, storage, cron and the HTTP server
func SetupAndRunServer() error {
	if err := config.LoadENV(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	env, err := config.Get()
	if err != nil {
		return err
	}

	store, err := database.StartGORM()
	if err != nil {
		return fmt.Errorf("database connection failed (is Postgres running?): %w", err)
	}

	if err := store.Init(); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}

	// Background jobs are opt-out so multiple replicas don't all run them
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" {
		db, ok := store.GetDB().(*gorm.DB)
		if !ok {
			log.Println("Warning: failed to get database connection for cron jobs")
		} else {
			gateway := services.NewRazorpayService(env.RAZORPAY_KEY_ID, env.RAZORPAY_KEY_SECRET)
			payments := services.NewPaymentService(db, gateway)
			email := services.NewEmailService(env)

			cronManager = cron.NewCronManager(db, payments, email)
			if err := cronManager.Start(); err != nil {
				log.Printf("Warning: failed to start cron jobs: %v", err)
			}
		}
	}

	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		store.Close()
	}()

	server := api.NewAPIServer(fmt.Sprintf(":%d", env.PORT))
	router.SetupRoutes(server.GetEngine(), store, env)

	return server.Run()
}
