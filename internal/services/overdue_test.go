package services

import (
	"context"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"field-service/internal/dto"
	"field-service/internal/entities"
	"field-service/internal/events"
	"field-service/pkg/constants"
)

func newSweeper(env *testEnv) *OverdueSweeper {
	return NewOverdueSweeper(env.tx, env.orders, &fakeHistoryRepo{s: env.store}, env.publisher, env.clock.Now, zap.NewNop())
}

func rescheduleTo(at time.Time) dto.RescheduleDTO {
	return dto.RescheduleDTO{NewDate: at, Reason: "согласовано с клиентом"}
}

func TestFindOverdue(t *testing.T) {
	orders := []*entities.ServiceOrder{
		{ID: 1, State: constants.StateAssigned, ScheduledAt: null.TimeFrom(testNow.Add(-time.Minute))},
		{ID: 2, State: constants.StateDone, ScheduledAt: null.TimeFrom(testNow.Add(-time.Hour))},
		{ID: 3, State: constants.StateDraft},
		{ID: 4, State: constants.StateRejected, ScheduledAt: null.TimeFrom(testNow.Add(-24 * time.Hour))},
		{ID: 5, State: constants.StateAssigned, ScheduledAt: null.TimeFrom(testNow)},
	}

	result := FindOverdue(orders, testNow)
	ids := make([]uint64, len(result))
	for i, o := range result {
		ids[i] = o.ID
	}
	assert.Equal(t, []uint64{1, 4}, ids)
}

func TestOverdueSweeper_NotifiesOnce(t *testing.T) {
	env := newTestEnv(OrderPolicy{})
	ctx := context.Background()
	sweeper := newSweeper(env)

	late := env.putOrder(entities.ServiceOrder{State: constants.StateAssigned, ScheduledAt: null.TimeFrom(testNow.Add(-2 * time.Hour))})
	env.putOrder(entities.ServiceOrder{State: constants.StateAssigned, ScheduledAt: null.TimeFrom(testScheduled)})
	env.putOrder(entities.ServiceOrder{State: constants.StateCancelled, ScheduledAt: null.TimeFrom(testNow.Add(-2 * time.Hour))})

	n, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, env.order(late).OverdueNotified)
	assert.Equal(t, []string{events.OrderOverdueEventName}, env.publisher.names())
	assert.Len(t, env.store.historyFor(late, constants.HistoryOverdue), 1)

	n, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "повторно не уведомляем")
	assert.Len(t, env.publisher.events, 1)
}

func TestOverdueSweeper_RescheduleResetsFlag(t *testing.T) {
	env := newTestEnv(OrderPolicy{})
	ctx := context.Background()
	sweeper := newSweeper(env)

	id := env.putOrder(entities.ServiceOrder{
		State:        constants.StateAssigned,
		TechnicianID: null.Uint64From(techIvanID),
		ScheduledAt:  null.TimeFrom(testNow.Add(-time.Hour)),
	})
	_, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	require.True(t, env.order(id).OverdueNotified)

	_, err = env.service.Reschedule(ctx, dispatcher, id, rescheduleTo(testScheduled))
	require.NoError(t, err)
	assert.False(t, env.order(id).OverdueNotified)

	env.clock.Advance(30 * time.Hour)
	env.publisher.reset()
	n, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "новая просрочка уведомляется снова")
	assert.Equal(t, []string{events.OrderOverdueEventName}, env.publisher.names())
}

func TestOverdueSweeper_ClearsFlagWhenNoLongerOverdue(t *testing.T) {
	env := newTestEnv(OrderPolicy{})
	id := env.putOrder(entities.ServiceOrder{
		State:           constants.StateAssigned,
		ScheduledAt:     null.TimeFrom(testScheduled),
		OverdueNotified: true,
	})

	n, err := newSweeper(env).Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, env.order(id).OverdueNotified)
	assert.Empty(t, env.publisher.events)
}

func TestReminderJob(t *testing.T) {
	env := newTestEnv(OrderPolicy{})
	tomorrow := testNow.AddDate(0, 0, 1)

	env.putOrder(entities.ServiceOrder{State: constants.StateAssigned, ScheduledAt: null.TimeFrom(tomorrow)})
	env.putOrder(entities.ServiceOrder{State: constants.StateAssigned, ScheduledAt: null.TimeFrom(tomorrow.Add(14 * time.Hour))})
	env.putOrder(entities.ServiceOrder{State: constants.StateDraft, ScheduledAt: null.TimeFrom(tomorrow)})
	env.putOrder(entities.ServiceOrder{State: constants.StateAssigned, ScheduledAt: null.TimeFrom(tomorrow.AddDate(0, 0, 1))})
	env.putOrder(entities.ServiceOrder{State: constants.StateAssigned, ScheduledAt: null.TimeFrom(testNow.Add(time.Hour))})

	n, err := NewReminderJob(env.orders, env.publisher, env.clock.Now, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{events.OrderReminderEventName, events.OrderReminderEventName}, env.publisher.names())
}
