package model

import (
	"strings"
	"time"

	"github.com/bigkaa/society-backend/internal/domain/workflow"
)

// MembershipApplication — заявка на вступление.
// После создания меняются только поля рассмотрения (status, processed*).
type MembershipApplication struct {
	Base
	Name           string    `json:"name" validate:"required,max=100"`
	Address        string    `json:"address" validate:"required,max=300"`
	District       string    `json:"district" validate:"required,max=100"`
	PinCode        string    `json:"pinCode" validate:"required,len=6,number"`
	State          string    `json:"state" validate:"required,max=100"`
	Mobile         string    `json:"mobile" validate:"required,min=10,max=15,number"`
	Email          string    `json:"email" validate:"required,email,max=254"`
	MembershipType string    `json:"membershipType" validate:"required,oneof=Life Annual"`
	Qualification  string    `json:"qualification" validate:"required,max=200"`
	DateOfBirth    time.Time `json:"dateOfBirth" validate:"required"`

	// PaymentScreenshot — идентификатор файла скриншота оплаты (обязателен).
	PaymentScreenshot string `json:"paymentScreenshot" validate:"required,fileid"`
	// ApplicationPDF — идентификатор сгенерированного PDF заявки.
	ApplicationPDF *string `json:"applicationPdf,omitempty" validate:"omitempty,fileid"`

	Status          workflow.ApplicationStatus `json:"status" validate:"required,oneof=Pending Approved Rejected"`
	SubmittedAt     time.Time                  `json:"submittedAt"`
	ProcessedAt     *time.Time                 `json:"processedAt,omitempty"`
	ProcessedBy     *string                    `json:"processedBy,omitempty" validate:"omitempty,max=100"`
	RejectionReason *string                    `json:"rejectionReason,omitempty" validate:"omitempty,max=1000"`

	PaymentScreenshotURL string `json:"paymentScreenshotUrl,omitempty"`
	ApplicationPDFURL    string `json:"applicationPdfUrl,omitempty"`
}

func (a *MembershipApplication) Normalize(time.Time) {
	a.Name = strings.TrimSpace(a.Name)
	a.Address = strings.TrimSpace(a.Address)
	a.District = strings.TrimSpace(a.District)
	a.PinCode = strings.TrimSpace(a.PinCode)
	a.State = strings.TrimSpace(a.State)
	a.Mobile = strings.TrimSpace(a.Mobile)
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	a.MembershipType = strings.TrimSpace(a.MembershipType)
	a.Qualification = strings.TrimSpace(a.Qualification)
	a.PaymentScreenshot = strings.TrimSpace(a.PaymentScreenshot)
	a.ApplicationPDF = trimOptional(a.ApplicationPDF)
}

// Decision — результат рассмотрения заявки.
type Decision struct {
	Status          workflow.ApplicationStatus
	ProcessedAt     time.Time
	ProcessedBy     string
	RejectionReason *string
}
