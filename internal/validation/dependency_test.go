package validation

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EMIC-Electronics/EMIC-DevAgent/internal/inventory"
	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

func TestDependencyCycle(t *testing.T) {
	set := models.NewArtifactSet(
		artifact("A.emic", "EMIC:setInput(B.emic)"),
		artifact("B.emic", "EMIC:setInput(A.emic)"),
	)

	outcome, err := NewDependency(nil, nil).Validate(context.Background(), set)
	require.NoError(t, err)

	assert.False(t, outcome.Passed)
	require.Len(t, outcome.Issues, 1)
	issue := outcome.Issues[0]
	assert.Equal(t, RuleDependencyCycle, issue.Rule)
	assert.Equal(t, models.SeverityError, issue.Severity)
	assert.Contains(t, issue.Message, "A.emic -> B.emic -> A.emic")
}

func TestDependencyReportsOnlyFirstCycle(t *testing.T) {
	set := models.NewArtifactSet(
		artifact("a.emic", "EMIC:setInput(b.emic)"),
		artifact("b.emic", "EMIC:setInput(a.emic)"),
		artifact("c.emic", "EMIC:setInput(d.emic)"),
		artifact("d.emic", "EMIC:setInput(c.emic)"),
	)

	outcome, err := NewDependency(nil, nil).Validate(context.Background(), set)
	require.NoError(t, err)
	assert.Equal(t, []issueKey{{Line: 0, Rule: RuleDependencyCycle}}, keys(outcome))
}

func TestDependencyAcyclicGraphsPass(t *testing.T) {
	for _, n := range []int{1, 5, 40} {
		t.Run(fmt.Sprintf("%d scripts", n), func(t *testing.T) {
			var files []models.GeneratedArtifact
			for i := 0; i < n; i++ {
				var lines []string
				// Every script references all later scripts, so the graph is a dense DAG.
				for j := i + 1; j < n; j++ {
					lines = append(lines, fmt.Sprintf("EMIC:setInput(DEV:_api/gen/s%02d.emic)", j))
				}
				lines = append(lines, "EMIC:setInput(DEV:_hal/GPIO/gpio.emic)")
				files = append(files, artifact(fmt.Sprintf("_api/gen/s%02d.emic", i), lines...))
			}

			outcome, err := NewDependency(nil, nil).Validate(context.Background(), models.NewArtifactSet(files...))
			require.NoError(t, err)
			assert.True(t, outcome.Passed)
			assert.Empty(t, outcome.Issues)
		})
	}
}

func TestDependencyResolution(t *testing.T) {
	inv := inventory.New(map[string][]string{
		"apis": {"_api/Sensors/temp.emic"},
	})

	set := models.NewArtifactSet(
		artifact("_api/LEDs/led.emic",
			"EMIC:setInput(DEV:_hal/GPIO/gpio.emic)",       // external prefix
			"EMIC:setInput(SYS:config.emic)",               // external prefix
			"EMIC:setInput(../Common/util.emic)",           // relative to the script
			"EMIC:setInput(DEV:_api/Sensors/temp.emic)",    // inventory
			"EMIC:setInput(DEV:_api/Sensors/missing.emic)", // unresolved
			"EMIC:setInput(inc/led.h)",                     // generated artifact by suffix
		),
		artifact("_api/Common/util.emic", "EMIC:define(inits.util, util_init)"),
		artifact("out/_api/LEDs/inc/led.h", "void LEDs_init(void);"),
	)

	t.Run("with inventory", func(t *testing.T) {
		outcome, err := NewDependency(inv, nil).Validate(context.Background(), set)
		require.NoError(t, err)
		assert.False(t, outcome.Passed)
		assert.Equal(t, []issueKey{{Line: 5, Rule: RuleDependencyMissing}}, keys(outcome))
		assert.Equal(t, models.SeverityError, outcome.Issues[0].Severity)
		assert.Contains(t, outcome.Issues[0].Message, "DEV:_api/Sensors/missing.emic")
	})

	t.Run("without inventory", func(t *testing.T) {
		outcome, err := NewDependency(nil, nil).Validate(context.Background(), set)
		require.NoError(t, err)
		assert.True(t, outcome.Passed)
		assert.Equal(t, []issueKey{
			{Line: 4, Rule: RuleDependencyUnverified},
			{Line: 5, Rule: RuleDependencyUnverified},
		}, keys(outcome))
		assert.Contains(t, outcome.Issues[0].Message, "cannot verify without inventory")
	})
}

func TestDependencyCycleAcrossPrefixes(t *testing.T) {
	set := models.NewArtifactSet(
		artifact("gen/_api/a.emic", "EMIC:setInput(DEV:_api/b.emic)"),
		artifact("gen/_api/b.emic", "EMIC:setInput(DEV:/_api/a.emic)"),
	)

	outcome, err := NewDependency(nil, nil).Validate(context.Background(), set)
	require.NoError(t, err)
	require.Len(t, outcome.Issues, 1)
	assert.Contains(t, outcome.Issues[0].Message, "gen/_api/a.emic -> gen/_api/b.emic -> gen/_api/a.emic")
}

func TestDependencyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	set := models.NewArtifactSet(artifact("a.emic", "EMIC:setInput(b.emic)"))
	_, err := NewDependency(nil, nil).Validate(ctx, set)
	assert.ErrorIs(t, err, ErrCancelled)
}
