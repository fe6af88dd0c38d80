package processors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/momoflow/src/models"
)

func TestCategorizeDefaultRules(t *testing.T) {
	c, err := NewCategorizer(DefaultRules())
	require.NoError(t, err)

	tests := []struct {
		name string
		body string
		want models.Category
	}{
		{name: "received money transfer", body: "You have received money transfer of 5000 RWF", want: models.CategoryTransfer},
		{name: "sent to", body: "5000 RWF sent to John 0788123456", want: models.CategoryTransfer},
		{name: "payment", body: "Your payment of 2000 RWF to Shop Ltd", want: models.CategoryPayment},
		{name: "case insensitive", body: "AIRTIME purchase of 500 RWF", want: models.CategoryAirtime},
		{name: "regex bundle size", body: "You bought 500 MB valid for 7 days", want: models.CategoryAirtime},
		{name: "bill before payment", body: "bill payment of 10000 RWF to EUCL", want: models.CategoryBillPay},
		{name: "deposit", body: "Cash in of 20000 RWF at agent 5521", want: models.CategoryDeposit},
		{name: "withdraw", body: "You have withdrawn 15000 RWF", want: models.CategoryWithdraw},
		{name: "loan disbursed", body: "Loan disbursed: 30000 RWF", want: models.CategoryLoanDisb},
		{name: "loan repayment before payment", body: "Loan repayment of 5000 RWF received", want: models.CategoryLoanRepay},
		{name: "no match", body: "Welcome to the network", want: models.CategoryUnknown},
		{name: "empty body", body: "", want: models.CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Categorize(tt.body))
		})
	}
}

func TestCategorizeFirstMatchWins(t *testing.T) {
	c, err := NewCategorizer([]Rule{
		{Pattern: "money", Category: models.CategoryDeposit},
		{Pattern: "received money", Category: models.CategoryTransfer},
	})
	require.NoError(t, err)

	// Both rules match; the earlier one decides.
	assert.Equal(t, models.CategoryDeposit, c.Categorize("received money from Alice"))
}

func TestNewCategorizerValidation(t *testing.T) {
	_, err := NewCategorizer([]Rule{{Pattern: "", Category: models.CategoryTransfer}})
	assert.ErrorContains(t, err, "empty pattern")

	_, err = NewCategorizer([]Rule{{Pattern: "x", Category: "NOT_A_CATEGORY"}})
	assert.ErrorContains(t, err, "unknown category")

	_, err = NewCategorizer([]Rule{{Pattern: "([", Regex: true, Category: models.CategoryTransfer}})
	assert.ErrorContains(t, err, "invalid regex")
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `rules:
  - pattern: "cash power"
    category: BILL_PAY
  - pattern: '\d+\s*mb'
    regex: true
    category: AIRTIME
  - pattern: "transfer"
    category: TRANSFER
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "cash power", rules[0].Pattern)
	assert.Equal(t, models.CategoryBillPay, rules[0].Category)
	assert.True(t, rules[1].Regex)

	c, err := NewCategorizer(rules)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryAirtime, c.Categorize("bought 100MB"))
	assert.Equal(t, models.CategoryTransfer, c.Categorize("money transfer done"))
	assert.Equal(t, models.CategoryUnknown, c.Categorize("hello"))
}

func TestLoadRulesErrors(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("rules: []\n"), 0o644))
	_, err = LoadRules(empty)
	assert.ErrorContains(t, err, "no rules")
}
