package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexRuns_Increment(t *testing.T) {
	before := testutil.ToFloat64(IndexRuns.WithLabelValues(OutcomeCompleted))
	IndexRuns.WithLabelValues(OutcomeCompleted).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(IndexRuns.WithLabelValues(OutcomeCompleted)))
}

func TestObserveProvider_Status(t *testing.T) {
	ObserveProvider("test", "embed", time.Now(), nil)
	ObserveProvider("test", "embed", time.Now(), errors.New("boom"))

	assert.Equal(t, 2, testutil.CollectAndCount(ProviderDuration, "ragdesk_provider_call_seconds"))
}

func TestHandler_ServesRegistry(t *testing.T) {
	Retrievals.WithLabelValues(OutcomeNoContext).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "ragdesk_retrievals_total"))
	assert.True(t, strings.Contains(body, `outcome="no_context"`))
}
