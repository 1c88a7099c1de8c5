package types

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

// Scenario 6: rolling average of three valid contributions.
func TestAvgTimingsRollingAverage(t *testing.T) {
	c := qt.New(t)
	var a AvgTimings

	a.Apply(0, 100, 0)
	c.Assert(a.FullContribution, qt.Equals, int64(100))

	a.Apply(0, 300, 0)
	c.Assert(a.FullContribution, qt.Equals, int64(200))

	a.Apply(0, 500, 0)
	c.Assert(a.FullContribution, qt.Equals, int64(350))
}
