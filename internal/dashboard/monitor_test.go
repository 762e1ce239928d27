// v0
// internal/dashboard/monitor_test.go
package dashboard

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MayorChristopher/poultry-management-system/internal/sensor"
	"github.com/MayorChristopher/poultry-management-system/internal/state"
	"github.com/MayorChristopher/poultry-management-system/internal/status"
)

func newStore() *state.Store {
	p := state.DefaultProfile()
	p.UseJitter = false
	return state.New(p, state.WithRand(rand.New(rand.NewSource(7))))
}

func TestViewNotReadyBeforeFirstSample(t *testing.T) {
	m := NewMonitor(newStore(), time.Minute, nil)
	v := m.View()
	assert.False(t, v.Ready)
	assert.Len(t, v.History, len(sensor.Channels))
	assert.Equal(t, "°C", v.Units[sensor.Temperature])
}

func TestRecordCapsHistory(t *testing.T) {
	m := NewMonitor(newStore(), time.Minute, nil)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 35; i++ {
		m.Record(TriggerTick, sensor.Reading{
			Temperature: float64(i),
			Humidity:    50,
			WaterLevel:  60,
			FeedLevel:   70,
			Timestamp:   base.Add(time.Duration(i) * time.Second),
		})
	}
	v := m.View()
	require.Len(t, v.History[sensor.Temperature], HistoryPoints)
	assert.Equal(t, 15.0, v.History[sensor.Temperature][0].Value, "oldest kept point")
	assert.Equal(t, 34.0, v.History[sensor.Temperature][HistoryPoints-1].Value)
	assert.Equal(t, 34.0, v.Latest.Temperature)
	assert.Equal(t, uint64(35), v.Samples)
	assert.Equal(t, status.Critical, v.Status.Overall)
}

func TestViewIsACopy(t *testing.T) {
	m := NewMonitor(newStore(), time.Minute, nil)
	m.Sample(TriggerStart)
	v := m.View()
	v.History[sensor.Humidity][0].Value = -1
	v.Status.Channels[sensor.Humidity] = status.Critical
	again := m.View()
	assert.NotEqual(t, -1.0, again.History[sensor.Humidity][0].Value)
	assert.Equal(t, status.Normal, again.Status.Channels[sensor.Humidity])
}

func TestRunSamplesOnChangeAndTick(t *testing.T) {
	store := newStore()
	m := NewMonitor(store, 10*time.Millisecond, nil)

	var mu sync.Mutex
	triggers := map[Trigger]int{}
	m.OnUpdate(func(u Update) {
		mu.Lock()
		triggers[u.Trigger]++
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return store.Subscribers() == 1 && m.Samples() > 0 }, time.Second, time.Millisecond)
	store.ApplyControl("Activate Feeder", state.EffectFeedLevel, func(l *state.Levels, _ sensor.Rand) {
		l.FeedLevel = 10
	})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return triggers[TriggerTick] >= 2
	}, time.Second, time.Millisecond)

	cancel()
	<-done
	assert.Zero(t, store.Subscribers(), "run unsubscribes on exit")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, triggers[TriggerStart])
	assert.Equal(t, 1, triggers[TriggerChange])
}

func TestChangeSampleSeesControlEffect(t *testing.T) {
	store := newStore()
	m := NewMonitor(store, time.Hour, nil)
	var got Update
	m.OnUpdate(func(u Update) { got = u })
	sub := store.Subscribe(func(state.SystemState) { m.Sample(TriggerChange) })
	defer sub.Unsubscribe()

	store.ApplyControl("Feed", state.EffectFeedLevel, func(l *state.Levels, _ sensor.Rand) { l.FeedLevel = 10 })
	assert.Equal(t, TriggerChange, got.Trigger)
	assert.LessOrEqual(t, got.Reading.FeedLevel, 10.0)
	assert.Equal(t, status.Critical, got.Status.Channels[sensor.FeedLevel])
}

func TestRecordNotifiesListenersInOrder(t *testing.T) {
	m := NewMonitor(newStore(), time.Minute, nil)
	var got []string
	m.OnUpdate(func(Update) { got = append(got, "first") })
	m.OnUpdate(func(Update) {
		got = append(got, "second")
		m.OnUpdate(func(Update) { got = append(got, "late") })
	})

	m.Record(TriggerTick, sensor.Reading{Temperature: 25, Humidity: 55, WaterLevel: 75, FeedLevel: 80})
	assert.Equal(t, []string{"first", "second"}, got, "listener added during fan-out waits for the next record")

	got = nil
	m.Record(TriggerTick, sensor.Reading{Temperature: 25, Humidity: 55, WaterLevel: 75, FeedLevel: 80})
	assert.Equal(t, []string{"first", "second", "late"}, got)
}
