package dwell

import (
	"errors"
	"testing"
	"time"

	"eyenav/internal/core/model"
	"eyenav/internal/core/target"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return epoch.Add(time.Duration(ms) * time.Millisecond)
}

type recorder struct {
	events []Event
}

func (rec *recorder) Report(event Event) {
	rec.events = append(rec.events, event)
}

func (rec *recorder) kinds(kind EventKind) []Event {
	var out []Event
	for _, event := range rec.events {
		if event.Kind == kind {
			out = append(out, event)
		}
	}
	return out
}

func testConfig() model.DwellConfig {
	config := model.DefaultDwellConfig()
	config.OnsetDelay = 300 * time.Millisecond
	config.DwellTime = 800 * time.Millisecond
	return config
}

func element(id string) *target.Element {
	return target.NewElement(id, model.Rect{Right: 10, Bottom: 10}, nil)
}

// drive evaluates every step ms from start to end (inclusive) using pick for the
// resolved target and returns the tick times at which something fired.
func drive(engine *Engine, start, end, step int, pick func(ms int) target.Candidate) map[int]string {
	fired := map[int]string{}
	for ms := start; ms <= end; ms += step {
		outcome := engine.Evaluate(pick(ms), at(ms))
		if outcome.Fired != nil {
			fired[ms] = outcome.Fired.ID()
		}
	}
	return fired
}

func TestFiresAfterOnsetPlusDwell(t *testing.T) {
	rec := &recorder{}
	engine := NewEngine(testConfig(), rec)
	button := element("a")

	fired := drive(engine, 0, 1200, 10, func(int) target.Candidate { return button })

	assert.Equal(t, "a", fired[1100])
	fires := rec.kinds(EventFire)
	require.Len(t, fires, 1, "re-arming after fire needs a full onset and dwell again")
	assert.Equal(t, at(1100), fires[0].At)
	assert.Empty(t, rec.kinds(EventCancel))

	progress := rec.kinds(EventProgress)
	require.NotEmpty(t, progress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i].Progress, progress[i-1].Progress)
		assert.True(t, progress[i].At.After(progress[i-1].At))
	}
	assert.Equal(t, 1.0, progress[len(progress)-1].Progress)
	assert.Equal(t, EventFire, rec.events[len(rec.events)-1].Kind, "fire directly follows the final progress report")
}

func TestAbandonedTargetNeverFires(t *testing.T) {
	rec := &recorder{}
	engine := NewEngine(testConfig(), rec)
	button := element("a")

	fired := drive(engine, 0, 2000, 10, func(ms int) target.Candidate {
		if ms < 200 {
			return button
		}
		return nil
	})

	assert.Empty(t, fired)
	assert.Empty(t, rec.kinds(EventFire))
	require.Len(t, rec.kinds(EventCancel), 1)
	assert.Equal(t, at(200), rec.kinds(EventCancel)[0].At)
	assert.Equal(t, PhaseIdle, engine.Snapshot().Phase)
}

func TestSwitchBeforeOnsetArmsNewTarget(t *testing.T) {
	rec := &recorder{}
	engine := NewEngine(testConfig(), rec)
	first := element("a")
	second := element("b")

	fired := drive(engine, 0, 1400, 10, func(ms int) target.Candidate {
		if ms < 150 {
			return first
		}
		return second
	})

	assert.Equal(t, map[int]string{1250: "b"}, fired)
	cancels := rec.kinds(EventCancel)
	require.Len(t, cancels, 1)
	assert.Equal(t, "a", cancels[0].TargetID())
	for _, event := range rec.kinds(EventFire) {
		assert.NotEqual(t, "a", event.TargetID())
	}
}

func TestNoTargetTickCancelsAndRestartsOnset(t *testing.T) {
	rec := &recorder{}
	engine := NewEngine(testConfig(), rec)
	button := element("a")

	ticks := []int{0, 100, 200, 300, 400, 484, 500, 516, 800, 816, 817, 1615, 1616}
	var firedAt []int
	for _, ms := range ticks {
		var resolved target.Candidate = button
		if ms == 500 {
			resolved = nil
		}
		if outcome := engine.Evaluate(resolved, at(ms)); outcome.Fired != nil {
			firedAt = append(firedAt, ms)
		}
		if ms == 500 {
			assert.Equal(t, PhaseIdle, engine.Snapshot().Phase)
		}
		if ms == 516 {
			state := engine.Snapshot()
			assert.Equal(t, PhaseArming, state.Phase)
			assert.Equal(t, at(816), state.OnsetDeadline)
		}
	}

	assert.Equal(t, []int{1616}, firedAt)
	cancels := rec.kinds(EventCancel)
	require.Len(t, cancels, 1)
	assert.Equal(t, at(500), cancels[0].At)
}

func TestSwitchMidDwellCancelsAndProgressRestarts(t *testing.T) {
	rec := &recorder{}
	engine := NewEngine(testConfig(), rec)
	first := element("a")
	second := element("b")

	drive(engine, 0, 700, 10, func(int) target.Candidate { return first })
	before := engine.Snapshot()
	require.Equal(t, PhaseDwelling, before.Phase)
	require.Greater(t, before.Progress, 0.0)

	outcome := engine.Evaluate(second, at(710))
	assert.Nil(t, outcome.Fired)
	assert.Equal(t, PhaseArming, outcome.State.Phase, "new target arms in the same tick")
	assert.Equal(t, "b", outcome.State.Target.ID())
	assert.Equal(t, 0.0, outcome.State.Progress)
	require.Len(t, rec.kinds(EventCancel), 1)
	assert.Equal(t, "a", rec.kinds(EventCancel)[0].TargetID())

	outcome = engine.Evaluate(second, at(1011))
	assert.Equal(t, PhaseDwelling, outcome.State.Phase)
	assert.Less(t, outcome.State.Progress, before.Progress)
}

func TestReArmsSameTargetAfterFire(t *testing.T) {
	rec := &recorder{}
	engine := NewEngine(testConfig(), rec)
	button := element("a")

	drive(engine, 0, 1100, 10, func(int) target.Candidate { return button })
	assert.Equal(t, PhaseIdle, engine.Snapshot().Phase)

	outcome := engine.Evaluate(button, at(1110))
	assert.Equal(t, PhaseArming, outcome.State.Phase)
	assert.Equal(t, at(1410), outcome.State.OnsetDeadline)

	fired := drive(engine, 1120, 2300, 10, func(int) target.Candidate { return button })
	assert.Equal(t, map[int]string{2210: "a"}, fired)
}

func TestSameIDDifferentHandleKeepsDwelling(t *testing.T) {
	engine := NewEngine(testConfig(), nil)
	drive(engine, 0, 500, 10, func(int) target.Candidate { return element("a") })
	state := engine.Snapshot()

	assert.Equal(t, PhaseDwelling, state.Phase)
	assert.Equal(t, at(300), state.DwellStart)
}

func TestZeroOnsetDelay(t *testing.T) {
	config := testConfig()
	config.OnsetDelay = 0
	engine := NewEngine(config, nil)
	button := element("a")

	fired := drive(engine, 0, 900, 100, func(int) target.Candidate { return button })
	assert.Equal(t, map[int]string{800: "a"}, fired)
}

func TestResetCancelsOnlyActiveAttempts(t *testing.T) {
	rec := &recorder{}
	engine := NewEngine(testConfig(), rec)

	engine.Reset(at(0))
	assert.Empty(t, rec.events)

	engine.Evaluate(element("a"), at(0))
	engine.Reset(at(10))
	require.Len(t, rec.events, 1)
	assert.Equal(t, EventCancel, rec.events[0].Kind)
	assert.Equal(t, PhaseIdle, engine.Snapshot().Phase)
}

func TestIdleWithoutTargetIsSilent(t *testing.T) {
	rec := &recorder{}
	engine := NewEngine(testConfig(), rec)
	drive(engine, 0, 1000, 10, func(int) target.Candidate { return nil })
	assert.Empty(t, rec.events)
}

func TestSetConfigAppliesOnNextTickAndRejectsInvalid(t *testing.T) {
	engine := NewEngine(testConfig(), nil)
	button := element("a")

	invalid := testConfig()
	invalid.DwellTime = 0
	var configErr *model.ConfigurationError
	require.True(t, errors.As(engine.SetConfig(invalid), &configErr))
	assert.Equal(t, 800*time.Millisecond, engine.Config().DwellTime)

	faster := testConfig()
	faster.OnsetDelay = 0
	faster.DwellTime = 100 * time.Millisecond
	require.NoError(t, engine.SetConfig(faster))

	fired := drive(engine, 0, 200, 10, func(int) target.Candidate { return button })
	assert.Equal(t, map[int]string{100: "a"}, fired)
}

func TestProgressStaysMonotonicWhenDwellTimeGrows(t *testing.T) {
	rec := &recorder{}
	engine := NewEngine(testConfig(), rec)
	button := element("a")
	drive(engine, 0, 700, 10, func(int) target.Candidate { return button })

	slower := testConfig()
	slower.DwellTime = 4 * time.Second
	require.NoError(t, engine.SetConfig(slower))
	drive(engine, 710, 800, 10, func(int) target.Candidate { return button })

	progress := rec.kinds(EventProgress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i].Progress, progress[i-1].Progress)
	}
}

func TestMultiPortFansOut(t *testing.T) {
	first := &recorder{}
	second := &recorder{}
	multi := &MultiPort{}
	multi.Add(first)
	multi.Add(nil)
	multi.Add(second)

	multi.Report(Event{Kind: EventFire})
	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 1)
}
