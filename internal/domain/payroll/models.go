package payroll

import (
	"time"

	"hrms/internal/platform/db"
)

type PayGrade struct {
	db.Model
	Code      string  `gorm:"size:32;not null;uniqueIndex" json:"code"`
	Name      string  `gorm:"size:100;not null" json:"name"`
	MinSalary float64 `gorm:"not null" json:"minSalary"`
	MaxSalary float64 `gorm:"not null" json:"maxSalary"`
	Currency  string  `gorm:"size:3;not null" json:"currency"`
}

func (PayGrade) TableName() string { return "pay_grades" }

type SalaryHistory struct {
	db.Model
	EmployeeID    string    `gorm:"size:36;not null;index" json:"employeeId"`
	Amount        float64   `gorm:"not null" json:"amount"`
	Currency      string    `gorm:"size:3;not null" json:"currency"`
	EffectiveDate time.Time `gorm:"not null" json:"effectiveDate"`
	Reason        string    `gorm:"size:500" json:"reason,omitempty"`
	ChangedBy     string    `gorm:"size:36" json:"changedBy,omitempty"`
}

func (SalaryHistory) TableName() string { return "salary_history" }

type Bonus struct {
	db.Model
	EmployeeID string     `gorm:"size:36;not null;index" json:"employeeId"`
	Amount     float64    `gorm:"not null" json:"amount"`
	Type       string     `gorm:"size:32;not null" json:"type"`
	Reason     string     `gorm:"size:500" json:"reason,omitempty"`
	AwardDate  time.Time  `gorm:"not null" json:"awardDate"`
	Status     string     `gorm:"size:16;not null;index" json:"status"`
	ApprovedBy *string    `gorm:"size:36" json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
}

func (Bonus) TableName() string { return "bonuses" }

type Deduction struct {
	db.Model
	EmployeeID  string     `gorm:"size:36;not null;index" json:"employeeId"`
	Amount      float64    `gorm:"not null" json:"amount"`
	Type        string     `gorm:"size:32;not null" json:"type"`
	Description string     `gorm:"size:500" json:"description,omitempty"`
	StartDate   time.Time  `gorm:"not null" json:"startDate"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Recurring   bool       `gorm:"not null" json:"recurring"`
}

func (Deduction) TableName() string { return "deductions" }

// Models lists the tables owned by this package, for test migrations.
var Models = []any{&PayGrade{}, &SalaryHistory{}, &Bonus{}, &Deduction{}}

type PayGradeInput struct {
	Code      string
	Name      string
	MinSalary float64
	MaxSalary float64
	Currency  string
}

type SalaryChange struct {
	Amount        float64
	Currency      string
	EffectiveDate time.Time
	Reason        string
}

type BonusInput struct {
	Amount    float64
	Type      string
	Reason    string
	AwardDate time.Time
}

type DeductionInput struct {
	Amount      float64
	Type        string
	Description string
	StartDate   time.Time
	EndDate     *time.Time
	Recurring   bool
}

// Payslip is computed on demand and never stored.
type Payslip struct {
	EmployeeID      string      `json:"employeeId"`
	EmployeeCode    string      `json:"employeeCode"`
	EmployeeName    string      `json:"employeeName"`
	Year            int         `json:"year"`
	Month           int         `json:"month"`
	Currency        string      `json:"currency"`
	AnnualSalary    float64     `json:"annualSalary"`
	BasePay         float64     `json:"basePay"`
	Lines           []InputLine `json:"lines"`
	Gross           float64     `json:"gross"`
	TotalDeductions float64     `json:"totalDeductions"`
	Net             float64     `json:"net"`
	GeneratedAt     time.Time   `json:"generatedAt"`
}
