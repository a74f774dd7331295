package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAssignmentStateFromFlags(t *testing.T) {
	state, err := AssignmentStateFromFlags(false, false)
	require.NoError(t, err)
	require.Equal(t, AssignmentUnassigned, state)

	state, err = AssignmentStateFromFlags(true, false)
	require.NoError(t, err)
	require.Equal(t, AssignmentAssignedNoAccess, state)

	state, err = AssignmentStateFromFlags(true, true)
	require.NoError(t, err)
	require.True(t, state.GrantsAccess())

	_, err = AssignmentStateFromFlags(false, true)
	require.ErrorIs(t, err, ErrInvalidAssignmentFlags)
}

func TestAssignmentStateRoundTripsThroughRow(t *testing.T) {
	now := time.Now()
	for _, state := range []AssignmentState{AssignmentUnassigned, AssignmentAssignedNoAccess, AssignmentAssignedWithAccess} {
		row := NewQuizAssignment(1, 2, state, 3, now)
		require.Equal(t, state, row.State())
		require.True(t, state.Valid())
	}
	require.False(t, AssignmentState("granted").Valid())

	corrupt := QuizAssignment{HasAccess: true}
	require.Equal(t, AssignmentUnassigned, corrupt.State())
}

func TestQuestionIsCorrectIgnoresCaseAndWhitespace(t *testing.T) {
	q := Question{CorrectAnswer: " Paris "}
	require.True(t, q.IsCorrect("paris"))
	require.True(t, q.IsCorrect("  PARIS"))
	require.False(t, q.IsCorrect("Lyon"))
	require.False(t, Question{}.IsCorrect(""))
}

func TestScorePercentageAndDeadline(t *testing.T) {
	require.Equal(t, 66.7, ScorePercentage(2, 3))
	require.Zero(t, ScorePercentage(1, 0))

	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	deadline, ok := Quiz{TimeLimit: 15}.Deadline(start)
	require.True(t, ok)
	require.Equal(t, start.Add(15*time.Minute), deadline)

	_, ok = Quiz{}.Deadline(start)
	require.False(t, ok)
}

func TestUserIsOnline(t *testing.T) {
	now := time.Now()
	recent := now.Add(-time.Minute)
	stale := now.Add(-OnlineWindow - time.Second)

	require.True(t, User{LastActivityAt: &recent}.IsOnline(now))
	require.False(t, User{LastActivityAt: &stale}.IsOnline(now))
	require.False(t, User{}.IsOnline(now))
}
