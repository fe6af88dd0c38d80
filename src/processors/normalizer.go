// src/processors/normalizer.go
package processors

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/momoflow/src/models"
	"github.com/username/momoflow/src/security/validation"
)

// dateLayouts are tried in fixed priority order. The list mirrors the
// formats seen in real SMS exports; all-digit values are treated as unix
// timestamps (seconds or milliseconds) before the layouts are tried.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

var (
	nonAmountChars = regexp.MustCompile(`[^0-9.\-]`)
	nonPhoneChars  = regexp.MustCompile(`[^0-9+]`)
	digitsOnly     = regexp.MustCompile(`^[0-9]+$`)
)

// Normalizer converts raw string fields into typed, canonical values.
// Pure and stateless; every operation returns a value or a *models.FieldError.
type Normalizer struct {
	countryPrefix string // e.g. "+250", applied to local-format numbers
	minAmount     decimal.Decimal
	maxAmount     decimal.Decimal
	now           func() time.Time
}

// NewNormalizer creates a Normalizer with the given country prefix and
// amount bounds.
func NewNormalizer(countryPrefix string, minAmount, maxAmount decimal.Decimal) *Normalizer {
	return &Normalizer{
		countryPrefix: countryPrefix,
		minAmount:     minAmount,
		maxAmount:     maxAmount,
		now:           time.Now,
	}
}

// Normalize converts a whole raw entry, failing on the first bad mandatory
// field. The returned error always names the field and the raw value that
// caused it.
func (n *Normalizer) Normalize(raw models.RawEntry) (models.NormalizedTransaction, error) {
	var tx models.NormalizedTransaction

	amount, err := n.normalizeAmountField(raw.Amount, "amount")
	if err != nil {
		return tx, err
	}
	tx.Amount = amount

	tx.Fee = decimal.Zero
	if raw.Fee != "" {
		fee, err := n.normalizeFee(raw.Fee)
		if err != nil {
			return tx, err
		}
		tx.Fee = fee
	}

	occurredAt, err := n.NormalizeDate(raw.Date)
	if err != nil {
		return tx, err
	}
	tx.OccurredAt = occurredAt

	if raw.Sender != "" {
		phone, err := n.normalizePhoneField(raw.Sender, "sender")
		if err != nil {
			return tx, err
		}
		tx.SenderPhone = phone
	}
	if raw.Recipient != "" {
		phone, err := n.normalizePhoneField(raw.Recipient, "recipient")
		if err != nil {
			return tx, err
		}
		tx.ReceiverPhone = phone
	}
	if tx.SenderPhone == "" && tx.ReceiverPhone == "" {
		if raw.Phone == "" {
			return tx, models.NewFieldError(models.InvalidPhone, "phone", raw.Phone)
		}
		phone, err := n.normalizePhoneField(raw.Phone, "phone")
		if err != nil {
			return tx, err
		}
		// A bare phone attribute identifies the counterparty that
		// initiated the transaction.
		tx.SenderPhone = phone
	}

	tx.Body = NormalizeBody(raw.Body)
	tx.Status = NormalizeStatus(raw.Status)
	tx.ReferenceID = strings.TrimSpace(raw.Reference)

	return tx, nil
}

// NormalizeAmount strips currency symbols and thousands separators and
// parses the numeric value. Zero and negative amounts are rejected, not
// silently coerced.
func (n *Normalizer) NormalizeAmount(raw string) (decimal.Decimal, error) {
	return n.normalizeAmountField(raw, "amount")
}

func (n *Normalizer) normalizeAmountField(raw, field string) (decimal.Decimal, error) {
	cleaned := nonAmountChars.ReplaceAllString(strings.TrimSpace(raw), "")
	if cleaned == "" {
		return decimal.Zero, models.NewFieldError(models.InvalidAmount, field, raw)
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, models.NewFieldError(models.InvalidAmount, field, raw)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, models.NewFieldError(models.InvalidAmount, field, raw)
	}
	if amount.LessThan(n.minAmount) || amount.GreaterThan(n.maxAmount) {
		return decimal.Zero, models.NewFieldError(models.InvalidAmount, field, raw)
	}
	return amount, nil
}

// normalizeFee parses a fee value; unlike the transaction amount, zero is a
// valid fee.
func (n *Normalizer) normalizeFee(raw string) (decimal.Decimal, error) {
	cleaned := nonAmountChars.ReplaceAllString(strings.TrimSpace(raw), "")
	fee, err := decimal.NewFromString(cleaned)
	if err != nil || fee.IsNegative() {
		return decimal.Zero, models.NewFieldError(models.InvalidAmount, "fee", raw)
	}
	return fee, nil
}

// NormalizeDate parses a raw date against the known SMS formats in priority
// order. Dates in the future relative to processing time are rejected.
func (n *Normalizer) NormalizeDate(raw string) (time.Time, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return time.Time{}, models.NewFieldError(models.InvalidDate, "date", raw)
	}

	var parsed time.Time
	matched := false

	if digitsOnly.MatchString(cleaned) {
		// Epoch timestamp: 13 digits means milliseconds, 10 means seconds.
		switch len(cleaned) {
		case 13:
			parsed = time.UnixMilli(mustInt64(cleaned)).UTC()
			matched = true
		case 10:
			parsed = time.Unix(mustInt64(cleaned), 0).UTC()
			matched = true
		}
	}

	if !matched {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, cleaned); err == nil {
				parsed = t
				matched = true
				break
			}
		}
	}

	if !matched {
		return time.Time{}, models.NewFieldError(models.InvalidDate, "date", raw)
	}
	if parsed.After(n.now()) {
		return time.Time{}, models.NewFieldError(models.InvalidDate, "date", raw)
	}
	return parsed, nil
}

// NormalizePhone strips separators, applies the default country prefix to
// local-format numbers and validates the result: 10-15 digits with a
// leading '+'.
func (n *Normalizer) NormalizePhone(raw string) (string, error) {
	return n.normalizePhoneField(raw, "phone")
}

func (n *Normalizer) normalizePhoneField(raw, field string) (string, error) {
	cleaned := nonPhoneChars.ReplaceAllString(strings.TrimSpace(raw), "")
	if cleaned == "" {
		return "", models.NewFieldError(models.InvalidPhone, field, raw)
	}

	hadPlus := strings.HasPrefix(cleaned, "+")
	digits := strings.TrimPrefix(cleaned, "+")
	if !digitsOnly.MatchString(digits) {
		// A '+' anywhere but the front is junk.
		return "", models.NewFieldError(models.InvalidPhone, field, raw)
	}

	prefixDigits := strings.TrimPrefix(n.countryPrefix, "+")
	if !hadPlus && !strings.HasPrefix(digits, prefixDigits) {
		switch {
		case len(digits) == 10 && strings.HasPrefix(digits, "0"):
			digits = prefixDigits + digits[1:]
		case len(digits) == 9:
			digits = prefixDigits + digits
		}
	}

	if len(digits) < 10 || len(digits) > 15 {
		return "", models.NewFieldError(models.InvalidPhone, field, raw)
	}
	return "+" + digits, nil
}

// NormalizeBody strips markup and unprintable characters and collapses
// whitespace. Never fails.
func NormalizeBody(raw string) string {
	cleaned := validation.StripUnprintable(validation.SanitizeText(raw))
	return strings.Join(strings.Fields(cleaned), " ")
}

// statusMappings folds the status spellings seen in exports onto the
// canonical set.
var statusMappings = map[string][]string{
	"success": {"success", "successful", "completed", "done", "ok", "1", "true"},
	"failed":  {"failed", "failure", "error", "rejected", "declined", "0", "false"},
	"pending": {"pending", "processing", "in_progress", "waiting"},
}

// NormalizeStatus maps a raw status onto success|failed|pending|unknown.
func NormalizeStatus(raw string) string {
	status := strings.ToLower(strings.TrimSpace(raw))
	for canonical, variants := range statusMappings {
		for _, v := range variants {
			if status == v {
				return canonical
			}
		}
	}
	return "unknown"
}

func mustInt64(digits string) int64 {
	var v int64
	for _, c := range digits {
		v = v*10 + int64(c-'0')
	}
	return v
}
