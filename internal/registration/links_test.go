package registration

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raffleapp/registration/internal/metrics"
)

type countingLinks struct {
	calls int
	links map[string]string
	err   error
}

func (c *countingLinks) CommunityLink(_ context.Context, d string) (string, bool, error) {
	c.calls++
	if c.err != nil {
		return "", false, c.err
	}
	l, ok := c.links[d]
	return l, ok, nil
}

func TestCachedLinks(t *testing.T) {
	src := &countingLinks{links: map[string]string{"Левашинский район": "https://t.me/levashi"}}
	m := metrics.New(prometheus.NewRegistry())
	c := NewCachedLinks(src, time.Minute, m)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		link, found, err := c.CommunityLink(ctx, "Левашинский район")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "https://t.me/levashi", link)
	}
	assert.Equal(t, 1, src.calls)

	for i := 0; i < 2; i++ {
		_, found, err := c.CommunityLink(ctx, "Сергокалинский район")
		require.NoError(t, err)
		assert.False(t, found)
	}
	assert.Equal(t, 2, src.calls, "missing links are cached too")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.LinkCacheLookup.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LinkCacheLookup.WithLabelValues("miss")))
}

func TestCachedLinks_ErrorsAreNotCached(t *testing.T) {
	src := &countingLinks{err: errBoom}
	c := NewCachedLinks(src, time.Minute, nil)

	_, _, err := c.CommunityLink(context.Background(), "Левашинский район")
	assert.ErrorIs(t, err, errBoom)

	src.err = nil
	src.links = map[string]string{"Левашинский район": "https://t.me/levashi"}
	link, found, err := c.CommunityLink(context.Background(), "Левашинский район")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "https://t.me/levashi", link)
	assert.Equal(t, 2, src.calls)
}

func TestCachedLinks_NonPositiveTTLDisablesCache(t *testing.T) {
	for _, ttl := range []time.Duration{0, -time.Second} {
		src := &countingLinks{links: map[string]string{"Левашинский район": "https://t.me/old"}}
		c := NewCachedLinks(src, ttl, nil)

		_, _, err := c.CommunityLink(context.Background(), "Левашинский район")
		require.NoError(t, err)
		src.links["Левашинский район"] = "https://t.me/new"

		link, _, err := c.CommunityLink(context.Background(), "Левашинский район")
		require.NoError(t, err)
		assert.Equal(t, "https://t.me/new", link, "ttl %s", ttl)
		assert.Equal(t, 2, src.calls)
	}
}

func TestRegister_RecordsOutcomeMetric(t *testing.T) {
	f := newFixture(t)
	m := metrics.New(prometheus.NewRegistry())
	f.svc = NewService(Deps{Geocoder: f.geo, Store: f.store, Metrics: m, Logger: quietLogger()})

	sub := validSubmission()
	sub.Latitude = ""
	_, err := f.svc.Register(context.Background(), sub)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues(string(OutcomeGeoUnavailable))))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Outcomes.WithLabelValues(string(OutcomePersisted))))
}
