package errorpolicy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFailFastReturnsErrorImmediately(t *testing.T) {
	t.Parallel()

	h := New(StrategyFailFast)
	err := h.Handle(Issue{Kind: KindMissingVariable, Subject: "env", Message: "no value"})
	require.Error(t, err)
}

func TestWarnContinueAccumulatesWarnings(t *testing.T) {
	t.Parallel()

	h := New(StrategyWarnContinue)
	err := h.Handle(Issue{Kind: KindMissingVariable, Subject: "env", Message: "no value"})
	require.NoError(t, err)
	require.Len(t, h.Report().Warnings, 1)
	require.Empty(t, h.Report().Errors)
}

func TestIgnoreDropsIssue(t *testing.T) {
	t.Parallel()

	h := New(StrategyIgnore)
	err := h.Handle(Issue{Kind: KindTypeConversion, Subject: "count"})
	require.NoError(t, err)
	require.Empty(t, h.Report().Warnings)
	require.Empty(t, h.Report().Errors)
}

func TestCollectReportAccumulatesErrorsAndMissingVariables(t *testing.T) {
	t.Parallel()

	h := New(StrategyCollectReport)
	require.NoError(t, h.Handle(Issue{Kind: KindMissingVariable, Subject: "env"}))
	require.NoError(t, h.Handle(Issue{Kind: KindMissingVariable, Subject: "region"}))
	h.RecordSuccess()

	report := h.Report()
	require.Equal(t, []string{"env", "region"}, report.MissingVariables())
	require.Equal(t, 3, report.Total)
	require.InDelta(t, 1.0/3.0, report.SuccessRate(), 0.0001)
}

func TestSuccessRateDefaultsToOneWhenEmpty(t *testing.T) {
	t.Parallel()

	r := &Report{}
	require.Equal(t, 1.0, r.SuccessRate())
}
