package calendar_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskDesk/internal/calendar"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestCached_HitsSourceOnce(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	holiday := day(t, "2025-08-15")
	workday := day(t, "2025-08-14")

	m := new(MockHolidays)
	m.On("Lookup", mock.Anything, holiday).Return("Independence Day", true, nil).Once()
	m.On("Lookup", mock.Anything, workday).Return("", false, nil).Once()

	cached := calendar.NewCached(m, rdb, time.Hour)

	for i := 0; i < 3; i++ {
		name, ok, err := cached.Lookup(ctx, holiday)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "Independence Day", name)

		_, ok, err = cached.Lookup(ctx, workday)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	m.AssertExpectations(t)
}

func TestCached_RedisDownFallsBack(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	mr.Close()

	m := new(MockHolidays)
	m.On("Lookup", mock.Anything, mock.Anything).Return("Diwali", true, nil)

	name, ok, err := calendar.NewCached(m, rdb, time.Hour).Lookup(ctx, day(t, "2025-10-20"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Diwali", name)
}

func TestCached_SourceErrorNotCached(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	d := day(t, "2025-10-20")

	m := new(MockHolidays)
	m.On("Lookup", mock.Anything, d).Return("", false, errors.New("timeout")).Once()

	_, _, err := calendar.NewCached(m, rdb, time.Hour).Lookup(ctx, d)
	assert.Error(t, err)
	assert.False(t, mr.Exists("taskdesk:holiday:2025-10-20"))
}

func TestGoogle_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("timeMin") == "2025-10-20T00:00:00Z" {
			fmt.Fprint(w, `{"items":[{"summary":"Diwali","start":{"date":"2025-10-20"}}]}`)
			return
		}
		fmt.Fprint(w, `{"items":[]}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	gsrv, err := gcal.NewService(ctx,
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	g := calendar.NewGoogle(gsrv, "en.indian#holiday@group.v.calendar.google.com")

	name, ok, err := g.Lookup(ctx, day(t, "2025-10-20"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Diwali", name)

	_, ok, err = g.Lookup(ctx, day(t, "2025-10-22"))
	require.NoError(t, err)
	assert.False(t, ok)
}
