package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder(prom.NewRegistry())
	r.AutoBlockFailed("tabs")
	r.AutoBlockFailed("tabs")
	r.RUMCheckpoint("lazy", "site")
	r.RUMObserved("block", 3)
	r.RUMObserved("media", 0)
	r.PageLoad("ok")
	r.ObservePhase("eager", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.autoBlockFailures.WithLabelValues("tabs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rumCheckpoints.WithLabelValues("lazy", "site")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.rumObserved.WithLabelValues("block")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.pageLoads.WithLabelValues("ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.phaseDuration))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	r.AutoBlockFailed("hero")
	r.RUMCheckpoint("lazy", "")
	r.RUMObserved("media", 1)
	r.PageLoad("error")
	r.ObservePhase("lazy", time.Second)
	assert.NotNil(t, r.Handler())
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder(nil)
	r.PageLoad("ok")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "pagedeco_page_loads_total"))
}
