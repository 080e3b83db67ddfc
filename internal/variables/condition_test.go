package variables

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluateConditionEquality(t *testing.T) {
	t.Parallel()

	ok, err := EvaluateCondition(`'production' == 'production'`)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluateConditionHyphenatedLiteral(t *testing.T) {
	t.Parallel()

	ok, err := EvaluateCondition(`'us-east' == 'us-east'`)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluateConditionNumericComparison(t *testing.T) {
	t.Parallel()

	ok, err := EvaluateCondition(`5 > 3 and not (1 == 2)`)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluateConditionOrTrueWhenRightOperandTrue(t *testing.T) {
	t.Parallel()

	ok, err := EvaluateCondition(`False or True`)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluateConditionInvalidSyntax(t *testing.T) {
	t.Parallel()

	_, err := EvaluateCondition(`'a' ~~ 'b'`)
	require.Error(t, err)
}
