package validator

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrEmptyTime indicates the booking time is empty
	ErrEmptyTime = errors.New("time cannot be empty")

	// ErrInvalidTime indicates the booking time is not a valid HH:MM value
	ErrInvalidTime = errors.New("time must be in HH:MM format between 00:00 and 23:59")

	// ErrEmptyDate indicates the booking date is empty
	ErrEmptyDate = errors.New("date cannot be empty")

	// ErrInvalidDate indicates the booking date is not a valid YYYY-MM-DD value
	ErrInvalidDate = errors.New("date must be in YYYY-MM-DD format")

	// ErrEmptyEmail indicates the email is empty
	ErrEmptyEmail = errors.New("email cannot be empty")

	// ErrInvalidEmail indicates the email is malformed
	ErrInvalidEmail = errors.New("email address is not valid")

	// ErrWrongDomain indicates the email does not belong to the campus domain
	ErrWrongDomain = errors.New("email must belong to the campus domain")

	// ErrInvalidRegNumber indicates the registration number is malformed
	ErrInvalidRegNumber = errors.New("registration number must match the campus format, e.g. 7376211CS239")
)

// timeRegex matches 24h clock times: single or double digit hour, two digit minute.
var timeRegex = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

// emailRegex is deliberately loose, the domain check does the real work
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// regNumberRegex matches campus registration numbers: 7 digits, 2 uppercase
// letters, 3 digits
var regNumberRegex = regexp.MustCompile(`^[0-9]{7}[A-Z]{2}[0-9]{3}$`)

// BookingValidator validates booking and account input fields
type BookingValidator struct {
	emailDomain string
}

// NewBookingValidator creates a validator bound to the campus email domain
func NewBookingValidator(emailDomain string) *BookingValidator {
	return &BookingValidator{emailDomain: strings.ToLower(emailDomain)}
}

// ValidateTime checks a booking time string. Returns the normalized HH:MM
// value with a zero-padded hour.
func (v *BookingValidator) ValidateTime(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrEmptyTime
	}
	if !timeRegex.MatchString(value) {
		return "", ErrInvalidTime
	}
	// Normalize "9:30" to "09:30" so string comparison orders by clock time
	if len(value) == 4 {
		value = "0" + value
	}
	return value, nil
}

// ValidateDate checks a booking date string and returns the parsed day
func (v *BookingValidator) ValidateDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrEmptyDate
	}
	day, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return day, nil
}

// ValidateEmail checks an account email address. Returns the lowercased
// address.
func (v *BookingValidator) ValidateEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrEmptyEmail
	}
	if !emailRegex.MatchString(email) {
		return "", ErrInvalidEmail
	}
	if v.emailDomain != "" && !strings.HasSuffix(email, v.emailDomain) {
		return "", ErrWrongDomain
	}
	return email, nil
}

// ValidateRegNumber checks a student registration number
func (v *BookingValidator) ValidateRegNumber(regNumber string) (string, error) {
	regNumber = strings.ToUpper(strings.TrimSpace(regNumber))
	if !regNumberRegex.MatchString(regNumber) {
		return "", ErrInvalidRegNumber
	}
	return regNumber, nil
}

// IsValidTime is a convenience method that returns true if the time is valid
func (v *BookingValidator) IsValidTime(value string) bool {
	_, err := v.ValidateTime(value)
	return err == nil
}
