package performance

import (
	"time"

	"hrms/internal/platform/db"
)

type Review struct {
	db.Model
	EmployeeID     string     `gorm:"size:36;not null;index" json:"employeeId"`
	ReviewerID     string     `gorm:"size:36;not null;index" json:"reviewerId"`
	PeriodStart    time.Time  `gorm:"not null" json:"periodStart"`
	PeriodEnd      time.Time  `gorm:"not null" json:"periodEnd"`
	Status         string     `gorm:"size:16;not null;index" json:"status"`
	OverallRating  *int       `json:"overallRating,omitempty"`
	Strengths      string     `gorm:"type:text" json:"strengths,omitempty"`
	Improvements   string     `gorm:"type:text" json:"improvements,omitempty"`
	Comments       string     `gorm:"type:text" json:"comments,omitempty"`
	SubmittedAt    *time.Time `json:"submittedAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledgedAt,omitempty"`
}

func (Review) TableName() string { return "performance_reviews" }

type Goal struct {
	db.Model
	EmployeeID  string     `gorm:"size:36;not null;index" json:"employeeId"`
	ReviewID    *string    `gorm:"size:36;index" json:"reviewId,omitempty"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Weight      float64    `gorm:"not null" json:"weight"`
	Progress    int        `gorm:"not null" json:"progress"`
	Status      string     `gorm:"size:16;not null;index" json:"status"`
}

func (Goal) TableName() string { return "goals" }

// Models lists the tables owned by this package, for test migrations.
var Models = []any{&Review{}, &Goal{}}

type ReviewInput struct {
	EmployeeID   string
	ReviewerID   string
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Strengths    string
	Improvements string
	Comments     string
	Rating       *int
}

// ReviewUpdate changes only the fields that are set.
type ReviewUpdate struct {
	PeriodStart  *time.Time
	PeriodEnd    *time.Time
	Strengths    *string
	Improvements *string
	Comments     *string
	Rating       *int
}

type ReviewCriteria struct {
	EmployeeID string
	ReviewerID string
	Status     string
}

type GoalInput struct {
	EmployeeID  string
	ReviewID    *string
	Title       string
	Description string
	DueDate     *time.Time
	Weight      float64
}

type GoalUpdate struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Weight      *float64
}

type Summary struct {
	EmployeeID           string         `json:"employeeId"`
	GoalsTotal           int            `json:"goalsTotal"`
	GoalsCompleted       int            `json:"goalsCompleted"`
	GoalsCancelled       int            `json:"goalsCancelled"`
	AverageProgress      float64        `json:"averageProgress"`
	ReviewsTotal         int            `json:"reviewsTotal"`
	ReviewsCompleted     int            `json:"reviewsCompleted"`
	ReviewCompletionRate float64        `json:"reviewCompletionRate"`
	AverageRating        *float64       `json:"averageRating,omitempty"`
	LatestRating         *int           `json:"latestRating,omitempty"`
	RatingDistribution   map[string]int `json:"ratingDistribution"`
}
