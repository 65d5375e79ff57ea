package domain

import "errors"

// Authentication errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserInactive       = errors.New("user account is deactivated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked due to too many failed login attempts")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidToken       = errors.New("invalid token")
	ErrCodeNotFound       = errors.New("one-time code not found")
	ErrCodeExpired        = errors.New("one-time code expired")
	ErrCodeConsumed       = errors.New("one-time code already used")
	ErrTOTPNotEnabled     = errors.New("two-step verification is not enabled for this account")
	ErrTOTPAlreadyEnabled = errors.New("two-step verification is already enabled")
	ErrInvalidTOTPCode    = errors.New("invalid verification code")
)

// Scheduling errors
var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotTaken           = errors.New("doctor already has an appointment at this time")
	ErrAppointmentClosed   = errors.New("appointment is already completed or cancelled")
)

// Billing and pharmacy errors
var (
	ErrInvoiceNotFound   = errors.New("invoice not found")
	ErrInvoiceNotPayable = errors.New("invoice is not in a payable state")
	ErrStockItemNotFound = errors.New("stock item not found")
	ErrInsufficientStock = errors.New("insufficient stock on hand")
)

// Validation errors
var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrInvalidPhone = errors.New("invalid phone number")
	ErrWeakPassword = errors.New("password does not meet requirements")
)
