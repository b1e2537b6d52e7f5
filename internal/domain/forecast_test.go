package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestValidateBinary(t *testing.T) {
	group := Group{Title: "g", QuestionIDs: []int64{1}}
	questions := map[int64]Question{1: {ID: 1, Type: TypeBinary}}

	f := Forecast{Predictions: map[int64]Prediction{1: {Probability: ptr(0.42)}}}
	assert.NoError(t, f.Validate(group, questions))

	f = Forecast{Predictions: map[int64]Prediction{1: {Probability: ptr(1.7)}}}
	err := f.Validate(group, questions)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)

	f = Forecast{Predictions: map[int64]Prediction{1: {}}}
	assert.ErrorIs(t, f.Validate(group, questions), ErrValidationFailed)
}

func TestValidateMultipleChoice(t *testing.T) {
	group := Group{Title: "g", QuestionIDs: []int64{2}}
	questions := map[int64]Question{2: {ID: 2, Type: TypeMultipleChoice, Options: []string{"a", "b", "c"}}}

	f := Forecast{Predictions: map[int64]Prediction{2: {Options: map[string]float64{"a": 0.5, "b": 0.3, "c": 0.2}}}}
	assert.NoError(t, f.Validate(group, questions))

	// drift inside tolerance passes
	f = Forecast{Predictions: map[int64]Prediction{2: {Options: map[string]float64{"a": 0.5004, "b": 0.3, "c": 0.2}}}}
	assert.NoError(t, f.Validate(group, questions))

	f = Forecast{Predictions: map[int64]Prediction{2: {Options: map[string]float64{"a": 0.5, "b": 0.3}}}}
	assert.ErrorIs(t, f.Validate(group, questions), ErrValidationFailed)

	f = Forecast{Predictions: map[int64]Prediction{2: {Options: map[string]float64{"a": 1.2, "b": -0.2}}}}
	assert.ErrorIs(t, f.Validate(group, questions), ErrValidationFailed)
}

func TestValidateNumeric(t *testing.T) {
	group := Group{Title: "g", QuestionIDs: []int64{3}}
	questions := map[int64]Question{3: {ID: 3, Type: TypeNumeric}}

	f := Forecast{Predictions: map[int64]Prediction{3: {Numeric: &NumericParams{Median: 10, Quartile1: 5, Quartile3: 20}}}}
	assert.NoError(t, f.Validate(group, questions))

	f = Forecast{Predictions: map[int64]Prediction{3: {Numeric: &NumericParams{Median: 10, Quartile1: 15, Quartile3: 20}}}}
	assert.ErrorIs(t, f.Validate(group, questions), ErrValidationFailed)
}

func TestValidateGroupMembership(t *testing.T) {
	group := Group{Title: "g", QuestionIDs: []int64{1, 2}}
	questions := map[int64]Question{
		1: {ID: 1, Type: TypeBinary},
		2: {ID: 2, Type: TypeBinary},
	}

	f := Forecast{Predictions: map[int64]Prediction{1: {Probability: ptr(0.5)}}}
	assert.ErrorIs(t, f.Validate(group, questions), ErrValidationFailed, "every group member needs a prediction")

	f = Forecast{Predictions: map[int64]Prediction{
		1: {Probability: ptr(0.5)},
		2: {Probability: ptr(0.5)},
		9: {Probability: ptr(0.5)},
	}}
	assert.ErrorIs(t, f.Validate(group, questions), ErrValidationFailed, "ids outside the group are rejected")
}
