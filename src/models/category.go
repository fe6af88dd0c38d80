// src/models/category.go
package models

// Category is the transaction type label assigned by the categorizer.
type Category string

const (
	CategoryTransfer  Category = "TRANSFER"
	CategoryPayment   Category = "PAYMENT"
	CategoryDeposit   Category = "DEPOSIT"
	CategoryWithdraw  Category = "WITHDRAW"
	CategoryBillPay   Category = "BILL_PAY"
	CategoryAirtime   Category = "AIRTIME"
	CategoryLoanDisb  Category = "LOAN_DISB"
	CategoryLoanRepay Category = "LOAN_REPAY"
	CategoryUnknown   Category = "UNKNOWN"
)

// AllCategories lists every valid category code, UNKNOWN included.
var AllCategories = []Category{
	CategoryTransfer,
	CategoryPayment,
	CategoryDeposit,
	CategoryWithdraw,
	CategoryBillPay,
	CategoryAirtime,
	CategoryLoanDisb,
	CategoryLoanRepay,
	CategoryUnknown,
}

// IsValid reports whether c is one of the enumerated category codes.
func (c Category) IsValid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}
