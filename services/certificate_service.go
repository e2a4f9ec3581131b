package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coursevault/api/model"
	"github.com/coursevault/api/services/storage"
	"github.com/google/uuid"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"gorm.io/gorm"
)

// CertificateService issues completion certificates
type CertificateService struct {
	db     *gorm.DB
	spaces *storage.SpacesClient // nil when object storage is unconfigured
}

// NewCertificateService creates a new certificate service
func NewCertificateService(db *gorm.DB, spaces *storage.SpacesClient) *CertificateService {
	return &CertificateService{db: db, spaces: spaces}
}

// Issue creates a certificate for a completed enrollment. Issuing twice for
// the same enrollment returns the existing certificate.
func (s *CertificateService) Issue(ctx context.Context, enrollment *model.Enrollment) (*model.Certificate, error) {
	var existing model.Certificate
	err := s.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollment.ID).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var user model.User
	if err := s.db.WithContext(ctx).First(&user, enrollment.UserID).Error; err != nil {
		return nil, fmt.Errorf("certificate: user lookup failed: %w", err)
	}

	courseTitle := enrollment.CourseTitle
	if courseTitle == "" {
		var course model.Course
		if err := s.db.WithContext(ctx).First(&course, enrollment.CourseID).Error; err == nil {
			courseTitle = course.Title
		}
	}

	issuedAt := time.Now()
	serial := "CV-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])

	cert := model.Certificate{
		UserID:       enrollment.UserID,
		CourseID:     enrollment.CourseID,
		EnrollmentID: enrollment.ID,
		SerialNumber: serial,
		CourseTitle:  courseTitle,
		StudentName:  user.Name,
		IssuedAt:     issuedAt,
	}

	if s.spaces != nil {
		pdf, err := renderCertificatePDF(user.Name, courseTitle, serial, issuedAt)
		if err != nil {
			return nil, fmt.Errorf("certificate: render failed: %w", err)
		}

		key := fmt.Sprintf("certificates/%d/%s.pdf", enrollment.UserID, serial)
		url, err := s.spaces.UploadFile(ctx, key, bytes.NewReader(pdf), "application/pdf")
		if err != nil {
			return nil, fmt.Errorf("certificate: upload failed: %w", err)
		}
		cert.PDFURL = url
	}

	if err := s.db.WithContext(ctx).Create(&cert).Error; err != nil {
		return nil, err
	}

	return &cert, nil
}

// VerifyBySerial looks up a certificate by its public serial number
func (s *CertificateService) VerifyBySerial(ctx context.Context, serial string) (*model.Certificate, error) {
	var cert model.Certificate
	err := s.db.WithContext(ctx).
		Where("serial_number = ?", strings.ToUpper(strings.TrimSpace(serial))).
		First(&cert).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func renderCertificatePDF(studentName, courseTitle, serial string, issuedAt time.Time) ([]byte, error) {
	cfg := config.NewBuilder().
		WithOrientation(orientation.Horizontal).
		Build()

	m := maroto.New(cfg)

	m.AddRows(
		text.NewRow(40, "Certificate of Completion", props.Text{
			Size:  28,
			Style: fontstyle.Bold,
			Align: align.Center,
			Top:   20,
		}),
		text.NewRow(14, "This certifies that", props.Text{
			Size:  12,
			Align: align.Center,
		}),
		text.NewRow(18, studentName, props.Text{
			Size:  22,
			Style: fontstyle.Bold,
			Align: align.Center,
		}),
		text.NewRow(14, "has successfully completed the course", props.Text{
			Size:  12,
			Align: align.Center,
		}),
		text.NewRow(18, courseTitle, props.Text{
			Size:  18,
			Style: fontstyle.Italic,
			Align: align.Center,
		}),
		text.NewRow(12, fmt.Sprintf("Issued on %s", issuedAt.Format("2 January 2006")), props.Text{
			Size:  10,
			Align: align.Center,
		}),
		text.NewRow(10, fmt.Sprintf("Serial: %s", serial), props.Text{
			Size:  9,
			Align: align.Center,
		}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return doc.GetBytes(), nil
}
