// src/processors/categorizer.go
package processors

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/username/momoflow/src/models"
)

// Rule is one entry of the categorization table: a pattern matched against
// the normalized SMS body and the category it maps to. Rules are data, not
// code, so new SMS phrasings ship as configuration.
type Rule struct {
	Pattern  string          `yaml:"pattern"`
	Regex    bool            `yaml:"regex,omitempty"`
	Category models.Category `yaml:"category"`
}

type compiledRule struct {
	substr   string // lowercased pattern, when not a regex
	re       *regexp.Regexp
	category models.Category
}

// Categorizer assigns a category code to a transaction body by evaluating
// an ordered rule list, first match wins. Pure and deterministic.
type Categorizer struct {
	rules []compiledRule
}

// NewCategorizer compiles the given ordered rule list. Regex patterns are
// made case-insensitive; substring patterns are matched case-insensitively
// as well.
func NewCategorizer(rules []Rule) (*Categorizer, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for i, rule := range rules {
		if rule.Pattern == "" {
			return nil, fmt.Errorf("rule %d: empty pattern", i)
		}
		if !rule.Category.IsValid() {
			return nil, fmt.Errorf("rule %d: unknown category '%s'", i, rule.Category)
		}
		cr := compiledRule{category: rule.Category}
		if rule.Regex {
			re, err := regexp.Compile("(?i)" + rule.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule %d: invalid regex '%s': %w", i, rule.Pattern, err)
			}
			cr.re = re
		} else {
			cr.substr = strings.ToLower(rule.Pattern)
		}
		compiled = append(compiled, cr)
	}
	return &Categorizer{rules: compiled}, nil
}

// Categorize returns the category of the first matching rule, or
// CategoryUnknown when no rule matches. UNKNOWN is a valid terminal
// outcome, not a failure.
func (c *Categorizer) Categorize(body string) models.Category {
	lower := strings.ToLower(body)
	for _, rule := range c.rules {
		if rule.re != nil {
			if rule.re.MatchString(body) {
				return rule.category
			}
			continue
		}
		if strings.Contains(lower, rule.substr) {
			return rule.category
		}
	}
	return models.CategoryUnknown
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads an ordered rule list from a YAML file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file: %w", err)
	}
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing rule file %s: %w", path, err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("rule file %s contains no rules", path)
	}
	return file.Rules, nil
}

// DefaultRules is the built-in rule table used when no rule file is
// configured. Order matters: the more specific phrasings come first so
// e.g. "bill payment" lands on BILL_PAY before the generic payment rules.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "airtime", Category: models.CategoryAirtime},
		{Pattern: "bundle", Category: models.CategoryAirtime},
		{Pattern: `\d+\s*mb\b`, Regex: true, Category: models.CategoryAirtime},
		{Pattern: "loan disbursed", Category: models.CategoryLoanDisb},
		{Pattern: "loan approved", Category: models.CategoryLoanDisb},
		{Pattern: "loan repayment", Category: models.CategoryLoanRepay},
		{Pattern: "repaid", Category: models.CategoryLoanRepay},
		{Pattern: "repay", Category: models.CategoryLoanRepay},
		{Pattern: "bill", Category: models.CategoryBillPay},
		{Pattern: "cash power", Category: models.CategoryBillPay},
		{Pattern: "electricity", Category: models.CategoryBillPay},
		{Pattern: "deposit", Category: models.CategoryDeposit},
		{Pattern: "cash in", Category: models.CategoryDeposit},
		{Pattern: "added to your account", Category: models.CategoryDeposit},
		{Pattern: "withdraw", Category: models.CategoryWithdraw},
		{Pattern: "cash out", Category: models.CategoryWithdraw},
		{Pattern: "atm", Category: models.CategoryWithdraw},
		{Pattern: "transfer", Category: models.CategoryTransfer},
		{Pattern: "sent to", Category: models.CategoryTransfer},
		{Pattern: "received from", Category: models.CategoryTransfer},
		{Pattern: "send money", Category: models.CategoryTransfer},
		{Pattern: "received money", Category: models.CategoryTransfer},
		{Pattern: "payment", Category: models.CategoryPayment},
		{Pattern: "paid to", Category: models.CategoryPayment},
		{Pattern: "purchase", Category: models.CategoryPayment},
		{Pattern: "bought", Category: models.CategoryPayment},
		{Pattern: "merchant", Category: models.CategoryPayment},
	}
}
