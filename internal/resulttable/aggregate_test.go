package resulttable_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchalot/benchalot/internal/resulttable"
)

func groupOf(values ...float64) []resulttable.Row {
	rows := make([]resulttable.Row, len(values))
	for i, v := range values {
		rows[i] = resulttable.Row{Sample: i, Stage: "time", Metric: "time", Value: v}
	}
	return rows
}

func TestAggregateMinMaxMeanMedian(t *testing.T) {
	groups := map[resulttable.GroupKey][]resulttable.Row{
		"g": groupOf(1, 2, 3, 4),
	}

	min, err := resulttable.Aggregate(groups, resulttable.StatMin)
	require.NoError(t, err)
	assert.Equal(t, 1.0, min["g"])

	max, err := resulttable.Aggregate(groups, resulttable.StatMax)
	require.NoError(t, err)
	assert.Equal(t, 4.0, max["g"])

	mean, err := resulttable.Aggregate(groups, resulttable.StatMean)
	require.NoError(t, err)
	assert.Equal(t, 2.5, mean["g"])

	median, err := resulttable.Aggregate(groups, resulttable.StatMedian)
	require.NoError(t, err)
	assert.Equal(t, 2.5, median["g"])
}

func TestAggregateSampleStdDevUsesNMinus1(t *testing.T) {
	groups := map[resulttable.GroupKey][]resulttable.Row{
		"g": groupOf(2, 4, 4, 4, 5, 5, 7, 9),
	}
	std, err := resulttable.Aggregate(groups, resulttable.StatStd)
	require.NoError(t, err)
	assert.InDelta(t, 2.138, std["g"], 0.01)
}

func TestAggregateStdUndefinedForSingleSample(t *testing.T) {
	groups := map[resulttable.GroupKey][]resulttable.Row{
		"g": groupOf(1),
	}
	std, err := resulttable.Aggregate(groups, resulttable.StatStd)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(std["g"]))
}

func TestAggregateRelativeDividesByGroupMinimum(t *testing.T) {
	groups := map[resulttable.GroupKey][]resulttable.Row{
		"baseline": groupOf(2, 2),
		"double":   groupOf(4, 4),
	}
	relative, err := resulttable.Aggregate(groups, resulttable.StatRelative)
	require.NoError(t, err)
	assert.Equal(t, 1.0, relative["baseline"])
	assert.Equal(t, 2.0, relative["double"])
}

func TestModifiedZScoreZeroMADNeverOutlier(t *testing.T) {
	assert.Equal(t, 0.0, resulttable.ModifiedZScore(100, 1, 0))
}

func TestModifiedZScoreFormula(t *testing.T) {
	z := resulttable.ModifiedZScore(10, 5, 2)
	assert.InDelta(t, 0.6745*(10-5)/2, z, 1e-9)
}

func TestMedianAbsoluteDeviation(t *testing.T) {
	med, mad := resulttable.MedianAbsoluteDeviation([]float64{1, 2, 3, 4, 100})
	assert.Equal(t, 3.0, med)
	assert.Equal(t, 1.0, mad)
}
