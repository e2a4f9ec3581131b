package cron

import (
	"log"
	"time"

	"github.com/coursevault/api/model"
	"github.com/coursevault/api/services"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// CronManager manages all scheduled background jobs
type CronManager struct {
	cron     *cron.Cron
	db       *gorm.DB
	payments *services.PaymentService
	email    *services.EmailService
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB, payments *services.PaymentService, email *services.EmailService) *CronManager {
	return &CronManager{
		cron:     cron.New(cron.WithSeconds()),
		db:       db,
		payments: payments,
		email:    email,
	}
}

// Start registers all jobs and starts the scheduler
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

func (m *CronManager) registerJobs() error {
	// Every 10 minutes: send reminders for live sessions starting soon
	_, err := m.cron.AddFunc("0 */10 * * * *", func() {
		m.runJob("send_session_reminders", m.SendSessionReminders)
	})
	if err != nil {
		return err
	}

	// Every hour: expire gateway orders that never got paid
	_, err = m.cron.AddFunc("0 0 * * * *", func() {
		m.runJob("expire_stale_orders", m.ExpireStaleOrders)
	})
	if err != nil {
		return err
	}

	// Daily at 03:00: purge expired token blacklist entries
	_, err = m.cron.AddFunc("0 0 3 * * *", func() {
		m.runJob("cleanup_token_blacklist", m.CleanupTokenBlacklist)
	})
	if err != nil {
		return err
	}

	return nil
}

// runJob executes a job and records its outcome in cron_job_logs
func (m *CronManager) runJob(name string, job func() (string, error)) {
	started := time.Now()
	entry := model.CronJobLog{
		JobName:   name,
		Status:    "started",
		StartedAt: started,
	}
	m.db.Create(&entry)

	message, err := job()

	completed := time.Now()
	entry.CompletedAt = &completed
	entry.Message = message
	if err != nil {
		entry.Status = "failed"
		entry.ErrorMsg = err.Error()
		log.Printf("cron: job %s failed: %v", name, err)
	} else {
		entry.Status = "completed"
	}
	m.db.Save(&entry)
}
