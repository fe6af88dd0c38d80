package processors

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/momoflow/src/models"
)

func testNormalizer() *Normalizer {
	n := NewNormalizer("+250", decimal.RequireFromString("0.01"), decimal.NewFromInt(1000000))
	n.now = func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return n
}

func TestNormalizeAmount(t *testing.T) {
	n := testNormalizer()

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "thousands separator", raw: "50,000", want: "50000"},
		{name: "currency suffix", raw: "1500 RWF", want: "1500"},
		{name: "decimal value", raw: "1,234.56", want: "1234.56"},
		{name: "surrounding whitespace", raw: "  2500 ", want: "2500"},
		{name: "negative", raw: "-10", wantErr: true},
		{name: "zero", raw: "0", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "no digits", raw: "RWF", wantErr: true},
		{name: "below minimum", raw: "0.001", wantErr: true},
		{name: "above maximum", raw: "2000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.NormalizeAmount(tt.raw)
			if tt.wantErr {
				var fieldErr *models.FieldError
				require.Error(t, err)
				require.True(t, errors.As(err, &fieldErr))
				assert.Equal(t, models.InvalidAmount, fieldErr.Kind)
				assert.Equal(t, tt.raw, fieldErr.Raw)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestNormalizeAmountErrorMessage(t *testing.T) {
	n := testNormalizer()
	_, err := n.NormalizeAmount("-10")
	require.Error(t, err)
	assert.Equal(t, "InvalidAmount: '-10'", err.Error())
}

func TestNormalizeDate(t *testing.T) {
	n := testNormalizer()

	tests := []struct {
		name    string
		raw     string
		want    time.Time
		wantErr bool
	}{
		{
			name: "datetime layout",
			raw:  "2024-05-10 21:30:00",
			want: time.Date(2024, 5, 10, 21, 30, 0, 0, time.UTC),
		},
		{
			name: "date only",
			raw:  "2024-05-10",
			want: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "rfc3339",
			raw:  "2024-05-10T21:30:00Z",
			want: time.Date(2024, 5, 10, 21, 30, 0, 0, time.UTC),
		},
		{
			name: "epoch milliseconds",
			raw:  "1715376600000",
			want: time.UnixMilli(1715376600000).UTC(),
		},
		{
			name: "epoch seconds",
			raw:  "1715376600",
			want: time.Unix(1715376600, 0).UTC(),
		},
		{name: "garbage", raw: "not-a-date", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "future date", raw: "2030-01-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.NormalizeDate(tt.raw)
			if tt.wantErr {
				var fieldErr *models.FieldError
				require.Error(t, err)
				require.True(t, errors.As(err, &fieldErr))
				assert.Equal(t, models.InvalidDate, fieldErr.Kind)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	n := testNormalizer()

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "local with leading zero", raw: "0788123456", want: "+250788123456"},
		{name: "nine digit local", raw: "788123456", want: "+250788123456"},
		{name: "already international", raw: "+250788123456", want: "+250788123456"},
		{name: "country code without plus", raw: "250788123456", want: "+250788123456"},
		{name: "separators stripped", raw: "078-812-3456", want: "+250788123456"},
		{name: "foreign number kept", raw: "+4915123456789", want: "+4915123456789"},
		{name: "letters rejected", raw: "12AB", wantErr: true},
		{name: "too short", raw: "12345", wantErr: true},
		{name: "too long", raw: "+1234567890123456", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "plus in the middle", raw: "078+8123456", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.NormalizePhone(tt.raw)
			if tt.wantErr {
				var fieldErr *models.FieldError
				require.Error(t, err)
				require.True(t, errors.As(err, &fieldErr))
				assert.Equal(t, models.InvalidPhone, fieldErr.Kind)
				assert.Equal(t, tt.raw, fieldErr.Raw)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePhoneErrorMessage(t *testing.T) {
	n := testNormalizer()
	_, err := n.NormalizePhone("12AB")
	require.Error(t, err)
	assert.Equal(t, "InvalidPhone: '12AB'", err.Error())
}

func TestNormalizeBody(t *testing.T) {
	assert.Equal(t, "You have received 5000 RWF",
		NormalizeBody("  You have \n received   5000 RWF \t"))
	assert.Equal(t, "", NormalizeBody("   "))
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Completed", "success"},
		{"SUCCESSFUL", "success"},
		{"1", "success"},
		{"declined", "failed"},
		{"Error", "failed"},
		{"processing", "pending"},
		{"", "unknown"},
		{"whatever", "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeStatus(tt.raw), "raw=%q", tt.raw)
	}
}

func TestNormalizeEntry(t *testing.T) {
	n := testNormalizer()

	t.Run("full entry", func(t *testing.T) {
		tx, err := n.Normalize(models.RawEntry{
			Date:      "2024-05-10 21:30:00",
			Amount:    "50,000",
			Fee:       "100",
			Sender:    "0788123456",
			Recipient: "0733987654",
			Body:      " You have  received money transfer ",
			Reference: " TX-991 ",
			Status:    "Completed",
		})
		require.NoError(t, err)
		assert.True(t, tx.Amount.Equal(decimal.NewFromInt(50000)))
		assert.True(t, tx.Fee.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, time.Date(2024, 5, 10, 21, 30, 0, 0, time.UTC), tx.OccurredAt)
		assert.Equal(t, "+250788123456", tx.SenderPhone)
		assert.Equal(t, "+250733987654", tx.ReceiverPhone)
		assert.Equal(t, "You have received money transfer", tx.Body)
		assert.Equal(t, "TX-991", tx.ReferenceID)
		assert.Equal(t, "success", tx.Status)
	})

	t.Run("bare phone becomes the sender", func(t *testing.T) {
		tx, err := n.Normalize(models.RawEntry{
			Date:   "2024-05-10",
			Amount: "2500",
			Phone:  "0788123456",
		})
		require.NoError(t, err)
		assert.Equal(t, "+250788123456", tx.SenderPhone)
		assert.Empty(t, tx.ReceiverPhone)
	})

	t.Run("missing fee defaults to zero", func(t *testing.T) {
		tx, err := n.Normalize(models.RawEntry{
			Date:   "2024-05-10",
			Amount: "2500",
			Phone:  "0788123456",
		})
		require.NoError(t, err)
		assert.True(t, tx.Fee.IsZero())
	})

	t.Run("bad amount fails first", func(t *testing.T) {
		_, err := n.Normalize(models.RawEntry{
			Date:   "not-a-date",
			Amount: "-10",
			Phone:  "12AB",
		})
		var fieldErr *models.FieldError
		require.True(t, errors.As(err, &fieldErr))
		assert.Equal(t, models.InvalidAmount, fieldErr.Kind)
	})

	t.Run("bad sender phone named in error", func(t *testing.T) {
		_, err := n.Normalize(models.RawEntry{
			Date:   "2024-05-10",
			Amount: "2500",
			Sender: "12AB",
		})
		var fieldErr *models.FieldError
		require.True(t, errors.As(err, &fieldErr))
		assert.Equal(t, models.InvalidPhone, fieldErr.Kind)
		assert.Equal(t, "sender", fieldErr.Field)
	})

	t.Run("no counterparty at all", func(t *testing.T) {
		_, err := n.Normalize(models.RawEntry{
			Date:   "2024-05-10",
			Amount: "2500",
		})
		var fieldErr *models.FieldError
		require.True(t, errors.As(err, &fieldErr))
		assert.Equal(t, models.InvalidPhone, fieldErr.Kind)
	})
}
