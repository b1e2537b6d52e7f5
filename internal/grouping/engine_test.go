package grouping

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForecastBot/internal/domain"
)

type stubReasoner struct {
	response string
	err      error
}

func (s *stubReasoner) Complete(ctx context.Context, system, user string) (string, error) {
	return s.response, s.err
}

func testQuestions(ids ...int64) map[int64]domain.Question {
	questions := make(map[int64]domain.Question, len(ids))
	for _, id := range ids {
		questions[id] = domain.Question{ID: id, Title: "question " + string(rune('A'+id%26)), Type: domain.TypeBinary}
	}
	return questions
}

func assertPartition(t *testing.T, groups []domain.Group, questions map[int64]domain.Question) {
	t.Helper()
	seen := map[int64]int{}
	for _, g := range groups {
		require.NotEmpty(t, g.QuestionIDs, "group %q has no questions", g.Title)
		for _, id := range g.QuestionIDs {
			seen[id]++
		}
	}
	assert.Len(t, seen, len(questions))
	for id := range questions {
		assert.Equal(t, 1, seen[id], "question %d assigned %d times", id, seen[id])
	}
}

func TestGroupFormsPartition(t *testing.T) {
	t.Parallel()

	questions := testQuestions(1, 2, 3, 4)
	reasoner := &stubReasoner{response: `{"us election outcome": [1, 2], "bitcoin price": [3], "world cup winner": [4]}`}

	engine := NewEngine(reasoner, slog.Default())
	groups, err := engine.Group(context.Background(), questions)
	require.NoError(t, err)

	assert.Len(t, groups, 3)
	assertPartition(t, groups, questions)
}

func TestGroupDropsUnknownIDs(t *testing.T) {
	t.Parallel()

	questions := testQuestions(1, 2)
	reasoner := &stubReasoner{response: `{"some event": [1, 2, 999]}`}

	engine := NewEngine(reasoner, slog.Default())
	groups, err := engine.Group(context.Background(), questions)
	require.NoError(t, err)

	require.Len(t, groups, 1)
	assert.Equal(t, []int64{1, 2}, groups[0].QuestionIDs)
}

func TestGroupSynthesizesSingletonForOmittedID(t *testing.T) {
	t.Parallel()

	questions := testQuestions(1, 2, 3)
	reasoner := &stubReasoner{response: `{"shared subject": [1, 2]}`}

	engine := NewEngine(reasoner, slog.Default())
	groups, err := engine.Group(context.Background(), questions)
	require.NoError(t, err)

	require.Len(t, groups, 2)
	assertPartition(t, groups, questions)
	assert.Equal(t, questions[3].Title, groups[1].Title)
}

func TestGroupDuplicateAssignmentKeepsFirst(t *testing.T) {
	t.Parallel()

	questions := testQuestions(1, 2)
	reasoner := &stubReasoner{response: `{"group a": [1, 2], "group b": [2]}`}

	engine := NewEngine(reasoner, slog.Default())
	groups, err := engine.Group(context.Background(), questions)
	require.NoError(t, err)

	assertPartition(t, groups, questions)
}

func TestGroupResponseWrappedInProse(t *testing.T) {
	t.Parallel()

	questions := testQuestions(7)
	reasoner := &stubReasoner{response: "Here you go:\n```json\n{\"lone subject\": [7]}\n```"}

	engine := NewEngine(reasoner, slog.Default())
	groups, err := engine.Group(context.Background(), questions)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "lone subject", groups[0].Title)
}

func TestGroupReasonerFailureIsBatchWide(t *testing.T) {
	t.Parallel()

	engine := NewEngine(&stubReasoner{err: errors.New("rate limited")}, slog.Default())
	_, err := engine.Group(context.Background(), testQuestions(1))
	assert.ErrorIs(t, err, domain.ErrGroupingUnavailable)
}

func TestGroupUnparsableResponse(t *testing.T) {
	t.Parallel()

	engine := NewEngine(&stubReasoner{response: "I refuse to answer in JSON."}, slog.Default())
	_, err := engine.Group(context.Background(), testQuestions(1))
	assert.ErrorIs(t, err, domain.ErrGroupingUnavailable)
}

func TestGroupEmptyBatch(t *testing.T) {
	t.Parallel()

	engine := NewEngine(&stubReasoner{}, slog.Default())
	_, err := engine.Group(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrGroupingUnavailable)
}

func TestFallbackGroups(t *testing.T) {
	t.Parallel()

	questions := testQuestions(5, 6)
	groups := FallbackGroups(questions)
	require.Len(t, groups, 2)
	assertPartition(t, groups, questions)
}
