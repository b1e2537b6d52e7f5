package domain

import "time"

// QuestionType distinguishes the payload a question resolves to.
type QuestionType string

const (
	TypeBinary         QuestionType = "binary"
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeNumeric        QuestionType = "numeric"
)

// CommunityQuartiles carries the platform's aggregate forecast, when published.
type CommunityQuartiles struct {
	Quartile1 float64
	Median    float64
	Quartile3 float64
}

// Question is the core entity normalized from a platform record. Immutable
// once loaded; downstream stages reference it by ID.
type Question struct {
	ID                 int64
	Title              string
	Description        string
	ResolutionCriteria string
	Type               QuestionType
	Options            []string
	CloseTime          time.Time
	PublishTime        time.Time
	Community          *CommunityQuartiles
}

// Group is a set of questions treated as one forecasting unit. The title is
// assigned once by the grouping engine and stays stable for the whole run.
type Group struct {
	Title       string
	QuestionIDs []int64
}

// UnifiedDetails is the single merged problem statement for a group.
// MissingInformation lists the gaps that prevent a clean forecast; when it is
// non-empty the resulting forecast must not be marked fully valid.
type UnifiedDetails struct {
	Title              string
	Description        string
	ResolutionCriteria string
	MissingInformation []string
}
