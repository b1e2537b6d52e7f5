package domain

import (
	"fmt"
	"math"
	"time"
)

// ProbabilityTolerance bounds the drift allowed when option probabilities of a
// closed outcome set are checked against a total of 1.
const ProbabilityTolerance = 1e-3

// Validity classifies how much a forecast can be trusted after validation.
type Validity string

const (
	ValidityValid      Validity = "valid"
	ValidityIncomplete Validity = "incomplete-information"
	ValidityMalformed  Validity = "malformed"
)

// NumericParams are the distribution parameters reported for numeric questions.
type NumericParams struct {
	Median    float64 `json:"median"`
	Quartile1 float64 `json:"q1"`
	Quartile3 float64 `json:"q3"`
}

// Prediction is the per-question payload inside a forecast. Exactly one of the
// fields is populated, according to the question type.
type Prediction struct {
	Probability *float64           `json:"probability,omitempty"`
	Options     map[string]float64 `json:"options,omitempty"`
	Numeric     *NumericParams     `json:"numeric,omitempty"`
}

// Forecast is the structured output for one group, keyed per question id.
// Written once by the synthesizer, then handed to persistence.
type Forecast struct {
	GroupTitle       string
	Predictions      map[int64]Prediction
	Rationales       map[int64]string
	RationaleSummary string
	Validity         Validity
	RawResponse      string
	CreatedAt        time.Time
}

// Validate checks the forecast against the group that produced it: every
// referenced id must belong to the group, every group id must have a
// prediction, and each prediction must be well formed for its question type.
func (f *Forecast) Validate(group Group, questions map[int64]Question) error {
	inGroup := make(map[int64]bool, len(group.QuestionIDs))
	for _, id := range group.QuestionIDs {
		inGroup[id] = true
	}

	for id := range f.Predictions {
		if !inGroup[id] {
			return fmt.Errorf("%w: prediction for question %d outside group %q", ErrValidationFailed, id, group.Title)
		}
	}

	for _, id := range group.QuestionIDs {
		pred, ok := f.Predictions[id]
		if !ok {
			return fmt.Errorf("%w: no prediction for question %d", ErrValidationFailed, id)
		}
		q, ok := questions[id]
		if !ok {
			return fmt.Errorf("%w: question %d not loaded", ErrValidationFailed, id)
		}
		if err := pred.validateFor(q); err != nil {
			return fmt.Errorf("question %d: %w", id, err)
		}
	}

	return nil
}

func (p Prediction) validateFor(q Question) error {
	switch q.Type {
	case TypeBinary:
		if p.Probability == nil {
			return fmt.Errorf("%w: binary question without probability", ErrValidationFailed)
		}
		if *p.Probability < 0 || *p.Probability > 1 {
			return fmt.Errorf("%w: probability %v out of [0,1]", ErrValidationFailed, *p.Probability)
		}
	case TypeMultipleChoice:
		if len(p.Options) == 0 {
			return fmt.Errorf("%w: multiple-choice question without option probabilities", ErrValidationFailed)
		}
		var sum float64
		for opt, prob := range p.Options {
			if prob < 0 || prob > 1 {
				return fmt.Errorf("%w: option %q probability %v out of [0,1]", ErrValidationFailed, opt, prob)
			}
			sum += prob
		}
		if math.Abs(sum-1) > ProbabilityTolerance {
			return fmt.Errorf("%w: option probabilities sum to %v", ErrValidationFailed, sum)
		}
	case TypeNumeric:
		if p.Numeric == nil {
			return fmt.Errorf("%w: numeric question without distribution parameters", ErrValidationFailed)
		}
		if p.Numeric.Quartile1 > p.Numeric.Median || p.Numeric.Median > p.Numeric.Quartile3 {
			return fmt.Errorf("%w: quartiles out of order", ErrValidationFailed)
		}
	default:
		return fmt.Errorf("%w: unknown question type %q", ErrValidationFailed, q.Type)
	}
	return nil
}
