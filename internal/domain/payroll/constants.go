package payroll

const (
	BonusPending   = "PENDING"
	BonusApproved  = "APPROVED"
	BonusPaid      = "PAID"
	BonusCancelled = "CANCELLED"

	LineEarning   = "earning"
	LineDeduction = "deduction"

	DefaultCurrency = "USD"
)

var (
	BonusTypes     = []string{"PERFORMANCE", "SIGNING", "RETENTION", "REFERRAL", "SPOT", "OTHER"}
	DeductionTypes = []string{"TAX", "PENSION", "INSURANCE", "LOAN", "GARNISHMENT", "OTHER"}
)
