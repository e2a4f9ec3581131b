package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/coursevault/api/model"
	"gorm.io/gorm"
)

var (
	ErrDuplicateEnrollment = errors.New("user already has an active enrollment for this course")
	ErrEnrollmentNotFound  = errors.New("enrollment not found")
	ErrInvalidProgress     = errors.New("progress must be between 0 and 100")
)

// HasActiveEnrollment reports whether a non-revoked enrollment exists for
// the (user, course) pair. Both the webhook path and the admin path call
// this before creating, which is what keeps the at-most-one invariant.
func HasActiveEnrollment(tx *gorm.DB, userID, courseID uint) (bool, error) {
	var count int64
	err := tx.Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND status <> ?", userID, courseID, model.EnrollmentStatusRevoked).
		Count(&count).Error
	return count > 0, err
}

// EnrollmentService owns enrollment lifecycle outside the webhook path
type EnrollmentService struct {
	db           *gorm.DB
	email        *EmailService
	certificates *CertificateService
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(db *gorm.DB, email *EmailService, certificates *CertificateService) *EnrollmentService {
	return &EnrollmentService{db: db, email: email, certificates: certificates}
}

// Enroll grants a user access to a course manually (admin path). Performs
// the same duplicate pre-check as the reconciler.
func (s *EnrollmentService) Enroll(ctx context.Context, userID, courseID uint) (*model.Enrollment, error) {
	var enrollment *model.Enrollment

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrolled, err := HasActiveEnrollment(tx, userID, courseID)
		if err != nil {
			return err
		}
		if enrolled {
			return ErrDuplicateEnrollment
		}

		var course model.Course
		if err := tx.First(&course, courseID).Error; err != nil {
			return err
		}

		e := model.Enrollment{
			UserID:          userID,
			CourseID:        courseID,
			CourseTitle:     course.Title,
			CourseThumbnail: course.ThumbnailURL,
			Progress:        0,
			Status:          model.EnrollmentStatusActive,
			EnrolledAt:      time.Now(),
		}
		if err := tx.Create(&e).Error; err != nil {
			return err
		}

		enrollment = &e
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.email != nil {
		var user model.User
		if err := s.db.WithContext(ctx).First(&user, userID).Error; err == nil {
			if err := s.email.SendEnrollmentEmail(user.Email, user.Name, enrollment.CourseTitle); err != nil {
				log.Printf("enrollment: failed to send email to %s: %v", user.Email, err)
			}
		}
	}

	return enrollment, nil
}

// UpdateProgress records a student's progress. Hitting 100 completes the
// enrollment and issues a certificate.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, userID, enrollmentID uint, progress int) (*model.Enrollment, error) {
	if progress < 0 || progress > 100 {
		return nil, ErrInvalidProgress
	}

	var enrollment model.Enrollment
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", enrollmentID, userID).
		First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, err
	}

	if enrollment.Status == model.EnrollmentStatusRevoked {
		return nil, ErrEnrollmentNotFound
	}

	enrollment.Progress = progress
	if progress == 100 && enrollment.Status == model.EnrollmentStatusActive {
		now := time.Now()
		enrollment.Status = model.EnrollmentStatusCompleted
		enrollment.CompletedAt = &now
	}

	if err := s.db.WithContext(ctx).Save(&enrollment).Error; err != nil {
		return nil, err
	}

	if enrollment.Status == model.EnrollmentStatusCompleted && s.certificates != nil {
		if _, err := s.certificates.Issue(ctx, &enrollment); err != nil {
			// Certificate issuance is best effort; completion already stuck
			log.Printf("enrollment: failed to issue certificate for enrollment %d: %v", enrollment.ID, err)
		}
	}

	return &enrollment, nil
}

// SetStatus transitions an enrollment between active and revoked (admin
// path). Re-activating checks the duplicate invariant again: another active
// enrollment may have been created since the revoke.
func (s *EnrollmentService) SetStatus(ctx context.Context, enrollmentID uint, status string) (*model.Enrollment, error) {
	if status != model.EnrollmentStatusActive && status != model.EnrollmentStatusRevoked {
		return nil, errors.New("status must be active or revoked")
	}

	var enrollment model.Enrollment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&enrollment, enrollmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEnrollmentNotFound
			}
			return err
		}

		if status == model.EnrollmentStatusActive && enrollment.Status == model.EnrollmentStatusRevoked {
			enrolled, err := HasActiveEnrollment(tx, enrollment.UserID, enrollment.CourseID)
			if err != nil {
				return err
			}
			if enrolled {
				return ErrDuplicateEnrollment
			}
		}

		enrollment.Status = status
		return tx.Save(&enrollment).Error
	})
	if err != nil {
		return nil, err
	}

	return &enrollment, nil
}
