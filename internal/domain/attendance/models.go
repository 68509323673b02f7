package attendance

import (
	"time"

	"hrms/internal/platform/db"
)

type Record struct {
	db.Model
	EmployeeID    string     `gorm:"size:36;not null;index:idx_attendance_employee_date" json:"employeeId"`
	WorkDate      time.Time  `gorm:"not null;index:idx_attendance_employee_date" json:"workDate"`
	ClockIn       time.Time  `gorm:"not null" json:"clockIn"`
	ClockOut      *time.Time `json:"clockOut,omitempty"`
	Status        string     `gorm:"size:16;not null;index" json:"status"`
	Notes         string     `gorm:"size:500" json:"notes,omitempty"`
	WorkedMinutes int        `gorm:"not null" json:"workedMinutes"`
	Breaks        []Break    `gorm:"foreignKey:AttendanceID" json:"breaks,omitempty"`
}

func (Record) TableName() string { return "time_attendance" }

type Break struct {
	db.Model
	AttendanceID string     `gorm:"size:36;not null;index" json:"attendanceId"`
	StartedAt    time.Time  `gorm:"not null" json:"startedAt"`
	EndedAt      *time.Time `json:"endedAt,omitempty"`
}

func (Break) TableName() string { return "attendance_breaks" }

type Correction struct {
	db.Model
	AttendanceID      string     `gorm:"size:36;not null;index" json:"attendanceId"`
	EmployeeID        string     `gorm:"size:36;not null;index" json:"employeeId"`
	RequestedClockIn  time.Time  `gorm:"not null" json:"requestedClockIn"`
	RequestedClockOut time.Time  `gorm:"not null" json:"requestedClockOut"`
	Reason            string     `gorm:"size:500;not null" json:"reason"`
	Status            string     `gorm:"size:16;not null;index" json:"status"`
	ReviewerID        *string    `gorm:"size:36" json:"reviewerId,omitempty"`
	ReviewedAt        *time.Time `json:"reviewedAt,omitempty"`
	ReviewNote        string     `gorm:"size:500" json:"reviewNote,omitempty"`
}

func (Correction) TableName() string { return "attendance_corrections" }

// Models lists the tables owned by this package, for test migrations.
var Models = []any{&Record{}, &Break{}, &Correction{}}

type CorrectionInput struct {
	ClockIn  time.Time
	ClockOut time.Time
	Reason   string
}

type CorrectionCriteria struct {
	EmployeeID string
	Status     string
	ManagerID  string
}

type Summary struct {
	EmployeeID     string  `json:"employeeId"`
	From           string  `json:"from"`
	To             string  `json:"to"`
	DaysWorked     int     `json:"daysWorked"`
	Records        int     `json:"records"`
	TotalMinutes   int     `json:"totalMinutes"`
	BreakMinutes   int     `json:"breakMinutes"`
	AverageMinutes float64 `json:"averageMinutesPerDay"`
	AutoClosed     int     `json:"autoClosed"`
	Corrected      int     `json:"corrected"`
	Open           bool    `json:"open"`
}
