package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/domain"
)

func TestStatus_Transitions(t *testing.T) {
	all := []domain.Status{domain.StatusPending, domain.StatusApproved, domain.StatusRejected}
	allowed := map[[2]domain.Status]bool{
		{domain.StatusPending, domain.StatusApproved}: true,
		{domain.StatusPending, domain.StatusRejected}: true,
	}

	for _, from := range all {
		for _, to := range all {
			name := string(from) + "->" + string(to)
			t.Run(name, func(t *testing.T) {
				want := allowed[[2]domain.Status{from, to}]
				assert.Equal(t, want, from.CanTransitionTo(to))

				got, err := from.Transition(to)
				if want {
					require.NoError(t, err)
					assert.Equal(t, to, got)
				} else {
					assert.ErrorIs(t, err, domain.ErrInvalidTransition)
					assert.Equal(t, from, got)
				}
			})
		}
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, domain.StatusPending.IsTerminal())
	assert.True(t, domain.StatusApproved.IsTerminal())
	assert.True(t, domain.StatusRejected.IsTerminal())
}

func TestStatus_Live(t *testing.T) {
	assert.True(t, domain.StatusPending.IsLive())
	assert.True(t, domain.StatusApproved.IsLive())
	assert.False(t, domain.StatusRejected.IsLive())
	assert.ElementsMatch(t, []domain.Status{domain.StatusPending, domain.StatusApproved}, domain.LiveStatuses())
}

func TestParseStatus(t *testing.T) {
	s, err := domain.ParseStatus("APPROVED")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, s)

	_, err = domain.ParseStatus("approved")
	assert.ErrorIs(t, err, domain.ErrUnknownStatus)
}

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, domain.StatusApproved, domain.InitialStatus(true))
	assert.Equal(t, domain.StatusPending, domain.InitialStatus(false))
}
