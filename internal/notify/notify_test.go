package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"taskDesk/internal/models/task"
	"taskDesk/internal/notify"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel(t *testing.T) {
	assert.Equal(t, "task_updates_42", notify.Channel(42))
}

func TestRedis_Notify(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	sub := rdb.Subscribe(ctx, notify.Channel(200))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	tk := &task.Task{UUID: uuid.New(), Title: "Audit", Status: task.StatusSubmitted}
	ev := notify.NewEvent(notify.EventStatusChanged, tk, task.Actor{EmpID: 100, Name: "Lead"})

	require.NoError(t, notify.NewRedis(rdb).Notify(ctx, 200, ev))

	select {
	case msg := <-sub.Channel():
		var got notify.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, notify.EventStatusChanged, got.Type)
		assert.Equal(t, tk.UUID, got.TaskID)
		assert.Equal(t, "SUBMITTED", got.StatusName)
		assert.Equal(t, int64(100), got.ActorID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestRedis_NotifyFailsWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	err := notify.NewRedis(rdb).Notify(context.Background(), 1, notify.Event{Type: notify.EventExtended})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	assert.NoError(t, notify.Nop{}.Notify(context.Background(), 1, notify.Event{}))
}
