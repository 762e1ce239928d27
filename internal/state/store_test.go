// v0
// internal/state/store_test.go
package state

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MayorChristopher/poultry-management-system/internal/sensor"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) add(d time.Duration) { c.t = c.t.Add(d) }

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("act-%d", n)
	}
}

func newTestStore(t *testing.T, seed int64) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)}
	profile := DefaultProfile()
	profile.UseJitter = false
	s := New(profile,
		WithClock(clock.now),
		WithRand(rand.New(rand.NewSource(seed))),
		WithIDs(seqIDs()),
	)
	return s, clock
}

func TestNewUsesInitialLevelsWithoutJitter(t *testing.T) {
	s, _ := newTestStore(t, 1)
	st := s.State()
	assert.Equal(t, 25.0, st.Temperature)
	assert.Equal(t, 55.0, st.Humidity)
	assert.Equal(t, 75.0, st.WaterLevel)
	assert.Equal(t, 80.0, st.FeedLevel)
	assert.Empty(t, st.ControlActions)
}

func TestNewJitterStaysInBounds(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		s := New(DefaultProfile(), WithRand(rand.New(rand.NewSource(seed))))
		st := s.State()
		for _, ch := range sensor.Channels {
			require.True(t, s.Profile().Bounds[ch].Contains(st.Levels().Get(ch)), "seed %d %s", seed, ch)
		}
	}
}

func TestAdvanceKeepsBoundsAndLevelsNeverRise(t *testing.T) {
	s, clock := newTestStore(t, 42)
	prev := s.State()
	sawTempUp, sawTempDown := false, false
	for i := 0; i < 5000; i++ {
		clock.add(time.Second)
		s.Advance()
		st := s.State()
		for _, ch := range sensor.Channels {
			require.True(t, s.Profile().Bounds[ch].Contains(st.Levels().Get(ch)), "tick %d %s=%v", i, ch, st.Levels().Get(ch))
		}
		require.LessOrEqual(t, st.WaterLevel, prev.WaterLevel, "water rose on tick %d", i)
		require.LessOrEqual(t, st.FeedLevel, prev.FeedLevel, "feed rose on tick %d", i)
		if st.Temperature > prev.Temperature {
			sawTempUp = true
		}
		if st.Temperature < prev.Temperature {
			sawTempDown = true
		}
		require.False(t, st.LastUpdated.Before(prev.LastUpdated))
		prev = st
	}
	assert.True(t, sawTempUp, "temperature drift never went up")
	assert.True(t, sawTempDown, "temperature drift never went down")
	assert.Equal(t, 0.0, prev.WaterLevel, "water should drain to the floor after enough ticks")
}

func TestAdvanceDoesNotNotify(t *testing.T) {
	s, _ := newTestStore(t, 3)
	calls := 0
	s.Subscribe(func(SystemState) { calls++ })
	s.Advance()
	_ = s.GenerateReading()
	assert.Zero(t, calls)
}

func TestGenerateReadingIsRoundedAndStamped(t *testing.T) {
	s, clock := newTestStore(t, 5)
	clock.add(30 * time.Second)
	r := s.GenerateReading()
	st := s.State()
	assert.Equal(t, clock.t, r.Timestamp)
	assert.Equal(t, st.LastUpdated, r.Timestamp)
	for _, ch := range sensor.Channels {
		assert.Equal(t, sensor.Round1(st.Levels().Get(ch)), r.Value(ch), "channel %s", ch)
	}
}

func TestApplyControlRecordsHistoryNewestFirst(t *testing.T) {
	s, clock := newTestStore(t, 9)
	for i := 1; i <= 14; i++ {
		clock.add(time.Second)
		rec := s.ApplyControl(fmt.Sprintf("step-%d", i), EffectMultiple, nil)
		assert.Equal(t, fmt.Sprintf("act-%d", i), rec.ID)

		st := s.State()
		require.Len(t, st.ControlActions, min(i, HistoryLimit))
		assert.Equal(t, rec.ID, st.ControlActions[0].ID)
		assert.Equal(t, clock.t, st.LastUpdated)
	}
	st := s.State()
	assert.Equal(t, "step-14", st.ControlActions[0].Action)
	assert.Equal(t, "step-5", st.ControlActions[HistoryLimit-1].Action)
}

func TestApplyControlClampsAndSnapshotsValue(t *testing.T) {
	s, _ := newTestStore(t, 1)
	rec := s.ApplyControl("overfill", EffectFeedLevel, func(l *Levels, _ sensor.Rand) {
		l.FeedLevel += 500
	})
	require.NotNil(t, rec.Value)
	assert.Equal(t, 100.0, *rec.Value)
	assert.Equal(t, 100.0, s.State().FeedLevel)

	rec = s.ApplyControl("chill", EffectMultiple, func(l *Levels, _ sensor.Rand) {
		l.Temperature = -40
	})
	assert.Nil(t, rec.Value)
	assert.Equal(t, 15.0, s.State().Temperature)
}

func TestApplyControlNilEffectorLeavesChannels(t *testing.T) {
	s, _ := newTestStore(t, 1)
	before := s.State()
	s.ApplyControl("Open The Pod Bay Doors", EffectMultiple, nil)
	after := s.State()
	assert.Equal(t, before.Levels(), after.Levels())
	require.Len(t, after.ControlActions, 1)
	assert.Equal(t, EffectMultiple, after.ControlActions[0].Effect)
}

func TestSubscribeNotifiesOncePerAction(t *testing.T) {
	s, _ := newTestStore(t, 1)
	var got []SystemState
	s.Subscribe(func(st SystemState) { got = append(got, st) })

	s.ApplyControl("refill", EffectWaterLevel, func(l *Levels, _ sensor.Rand) { l.WaterLevel += 10 })
	require.Len(t, got, 1)
	assert.Equal(t, 85.0, got[0].WaterLevel)
	require.Len(t, got[0].ControlActions, 1)

	s.Settle(func(l *Levels, _ sensor.Rand) { l.WaterLevel += 5 })
	require.Len(t, got, 2)
	assert.Equal(t, 90.0, got[1].WaterLevel)
	assert.Len(t, got[1].ControlActions, 1, "settle must not add history")
}

func TestSameListenerSubscribedTwiceRegistersTwice(t *testing.T) {
	s, _ := newTestStore(t, 1)
	calls := 0
	fn := func(SystemState) { calls++ }
	first := s.Subscribe(fn)
	second := s.Subscribe(fn)
	assert.NotEqual(t, first.ID(), second.ID())

	s.ApplyControl("a", EffectMultiple, nil)
	assert.Equal(t, 2, calls)

	assert.True(t, first.Unsubscribe())
	s.ApplyControl("b", EffectMultiple, nil)
	assert.Equal(t, 3, calls)

	assert.False(t, first.Unsubscribe(), "second unsubscribe is a no-op")
	assert.Equal(t, 1, s.Subscribers())

	assert.True(t, second.Unsubscribe())
	s.ApplyControl("c", EffectMultiple, nil)
	assert.Equal(t, 3, calls)
	assert.Zero(t, s.Subscribers())
}

func TestListenerMayReadStoreDuringNotify(t *testing.T) {
	s, _ := newTestStore(t, 1)
	var reading sensor.Reading
	s.Subscribe(func(SystemState) { reading = s.GenerateReading() })
	s.ApplyControl("feed", EffectFeedLevel, func(l *Levels, _ sensor.Rand) { l.FeedLevel = 50 })
	assert.InDelta(t, 50.0, reading.FeedLevel, 1.1)
}

func TestStateIsACopy(t *testing.T) {
	s, _ := newTestStore(t, 1)
	s.ApplyControl("feed", EffectFeedLevel, func(l *Levels, _ sensor.Rand) { l.FeedLevel = 60 })
	st := s.State()
	st.ControlActions[0].Action = "tampered"
	*st.ControlActions[0].Value = 1
	st.FeedLevel = 0

	again := s.State()
	assert.Equal(t, "feed", again.ControlActions[0].Action)
	assert.Equal(t, 60.0, *again.ControlActions[0].Value)
	assert.Equal(t, 60.0, again.FeedLevel)
}

func TestLastUpdatedNeverMovesBackwards(t *testing.T) {
	s, clock := newTestStore(t, 1)
	start := s.State().LastUpdated
	clock.add(-time.Minute)
	s.Advance()
	assert.Equal(t, start, s.State().LastUpdated)
}
