package validator

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrEmptyCurrency indicates no currency was given
	ErrEmptyCurrency = errors.New("currency cannot be empty")

	// ErrInvalidCurrency indicates the value is not a 3-letter code
	ErrInvalidCurrency = errors.New("currency must be a 3-letter ISO 4217 code")

	// ErrUnsupportedCurrency indicates a valid code we do not charge in
	ErrUnsupportedCurrency = errors.New("currency is not supported")

	// ErrInvalidAmount indicates a non-positive or non-finite amount
	ErrInvalidAmount = errors.New("amount must be a positive number")

	// ErrInvalidDate indicates a date that is not YYYY-MM-DD
	ErrInvalidDate = errors.New("date must be formatted as YYYY-MM-DD")

	// ErrCheckOutBeforeCheckIn indicates an empty or inverted stay
	ErrCheckOutBeforeCheckIn = errors.New("check-out must be after check-in")

	// ErrCheckInInPast indicates a stay that starts before today
	ErrCheckInInPast = errors.New("check-in cannot be in the past")

	// ErrStayTooLong indicates a stay longer than MaxStayNights
	ErrStayTooLong = fmt.Errorf("stay cannot exceed %d nights", MaxStayNights)
)

// MaxStayNights caps a single booking
const MaxStayNights = 90

// dateLayout is the wire format for booking dates
const dateLayout = "2006-01-02"

var currencyRegex = regexp.MustCompile(`^[a-z]{3}$`)

// supportedCurrencies are the two-decimal currencies we accept. Amounts are
// converted to minor units by multiplying by 100, so zero-decimal currencies
// (jpy, krw) are deliberately absent.
var supportedCurrencies = map[string]bool{
	"usd": true,
	"eur": true,
	"gbp": true,
	"aud": true,
	"cad": true,
	"nzd": true,
	"chf": true,
	"sgd": true,
	"inr": true,
	"lkr": true,
	"thb": true,
}

// NormalizeCurrency lower-cases and validates a currency code
func NormalizeCurrency(currency string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(currency))
	if c == "" {
		return "", ErrEmptyCurrency
	}
	if !currencyRegex.MatchString(c) {
		return "", ErrInvalidCurrency
	}
	if !supportedCurrencies[c] {
		return "", ErrUnsupportedCurrency
	}
	return c, nil
}

// ToMinorUnits converts a major-unit amount (500.00) to minor units (50000)
func ToMinorUnits(amount float64) (int64, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, ErrInvalidAmount
	}
	minor := int64(math.Round(amount * 100))
	if minor <= 0 {
		return 0, ErrInvalidAmount
	}
	return minor, nil
}

// ParseBookingDates parses and checks a stay's date range against today
func ParseBookingDates(checkIn, checkOut string, now time.Time) (time.Time, time.Time, error) {
	in, err := time.Parse(dateLayout, checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}
	out, err := time.Parse(dateLayout, checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}

	if !out.After(in) {
		return time.Time{}, time.Time{}, ErrCheckOutBeforeCheckIn
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if in.Before(today) {
		return time.Time{}, time.Time{}, ErrCheckInInPast
	}

	if out.Sub(in) > MaxStayNights*24*time.Hour {
		return time.Time{}, time.Time{}, ErrStayTooLong
	}

	return in, out, nil
}

// RegisterGinValidators adds the "currency" and "bookingdate" tags to gin's
// binding validator
func RegisterGinValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected gin validator engine %T", binding.Validator.Engine())
	}
	return Register(v)
}

// Register adds the custom tags to a validator instance
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		_, err := NormalizeCurrency(fl.Field().String())
		return err == nil
	}); err != nil {
		return fmt.Errorf("failed to register currency validation: %w", err)
	}

	if err := v.RegisterValidation("bookingdate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(dateLayout, fl.Field().String())
		return err == nil
	}); err != nil {
		return fmt.Errorf("failed to register bookingdate validation: %w", err)
	}

	return nil
}
