package performance

const (
	ReviewDraft        = "DRAFT"
	ReviewSubmitted    = "SUBMITTED"
	ReviewCompleted    = "COMPLETED"
	ReviewAcknowledged = "ACKNOWLEDGED"

	GoalNotStarted = "NOT_STARTED"
	GoalInProgress = "IN_PROGRESS"
	GoalCompleted  = "COMPLETED"
	GoalCancelled  = "CANCELLED"

	MinRating = 1
	MaxRating = 5
)

var (
	ReviewStatuses = []string{ReviewDraft, ReviewSubmitted, ReviewCompleted, ReviewAcknowledged}
	GoalStatuses   = []string{GoalNotStarted, GoalInProgress, GoalCompleted, GoalCancelled}
)

const (
	NotificationReviewSubmitted = "REVIEW_SUBMITTED"
	NotificationReviewCompleted = "REVIEW_COMPLETED"
)
