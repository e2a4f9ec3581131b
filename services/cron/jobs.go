package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/coursevault/api/model"
)

// staleOrderAge matches the gateway's own order validity window
const staleOrderAge = 24 * time.Hour

// ExpireStaleOrders flips unpaid gateway orders older than the validity
// window to expired
func (m *CronManager) ExpireStaleOrders() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	expired, err := m.payments.ExpireStaleOrders(ctx, staleOrderAge)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("expired %d stale orders", expired), nil
}

// SendSessionReminders emails enrolled students about live sessions starting
// within the next hour. Each session gets at most one reminder.
func (m *CronManager) SendSessionReminders() (string, error) {
	now := time.Now()

	var sessions []model.LiveSession
	err := m.db.
		Where("starts_at > ? AND starts_at <= ? AND reminder_sent_at IS NULL", now, now.Add(time.Hour)).
		Find(&sessions).Error
	if err != nil {
		return "", err
	}

	sent := 0
	for _, session := range sessions {
		var enrollments []model.Enrollment
		err := m.db.
			Where("course_id = ? AND status <> ?", session.CourseID, model.EnrollmentStatusRevoked).
			Find(&enrollments).Error
		if err != nil {
			return fmt.Sprintf("sent %d reminders", sent), err
		}

		for _, enrollment := range enrollments {
			var user model.User
			if err := m.db.First(&user, enrollment.UserID).Error; err != nil {
				continue
			}
			if err := m.email.SendSessionReminderEmail(user.Email, user.Name, session.Title, session.StartsAt); err != nil {
				continue
			}
			sent++
		}

		err = m.db.Model(&model.LiveSession{}).
			Where("id = ?", session.ID).
			Update("reminder_sent_at", now).Error
		if err != nil {
			return fmt.Sprintf("sent %d reminders", sent), err
		}
	}

	return fmt.Sprintf("sent %d reminders for %d sessions", sent, len(sessions)), nil
}

// CleanupTokenBlacklist purges blacklist entries whose tokens have expired
// anyway
func (m *CronManager) CleanupTokenBlacklist() (string, error) {
	result := m.db.
		Where("expires_at < ?", time.Now()).
		Delete(&model.JWTTokenBlacklist{})
	if result.Error != nil {
		return "", result.Error
	}
	return fmt.Sprintf("removed %d expired blacklist entries", result.RowsAffected), nil
}
