package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
	"github.com/rl1809/bakery-storefront/internal/core/service"
)

func TestObserveSync(t *testing.T) {
	m := New()

	m.ObserveSync(service.SyncEvent{Kind: service.SyncKindHydrate, Duration: 20 * time.Millisecond})
	m.ObserveSync(service.SyncEvent{Kind: service.SyncKindPush, Duration: time.Millisecond})
	m.ObserveSync(service.SyncEvent{Kind: service.SyncKindPush, Err: errors.New("boom")})
	m.ObserveSync(service.SyncEvent{Kind: service.SyncKindHydrate, Stale: true})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.syncTotal.WithLabelValues("hydrate", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.syncTotal.WithLabelValues("hydrate", ResultStale)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.syncTotal.WithLabelValues("push", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.syncTotal.WithLabelValues("push", ResultError)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.syncDuration))
}

func TestObserveCart(t *testing.T) {
	m := New()
	store := service.NewCartStore()
	store.Subscribe(m.ObserveCart)

	store.Dispatch(domain.AddItem("p1"))
	store.Dispatch(domain.AddItem("p1"))
	store.Dispatch(domain.AddItem("p2"))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.cartItems))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.cartVersion))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveSync(service.SyncEvent{Kind: service.SyncKindPush})

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), MetricSyncTotal)
	assert.Contains(t, string(body), `kind="push"`)
}
