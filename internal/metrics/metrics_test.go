package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandler_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/entries/{entryID}/tally", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/entries/{entryID}/tally", "418"))
	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/entries/"+id+"/tally", nil))
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/entries/{entryID}/tally", "418"))
	assert.Equal(t, 3.0, after-before)
}

func TestDomainCounters(t *testing.T) {
	claimBefore := testutil.ToFloat64(claims.WithLabelValues("already_claimed"))
	voteBefore := testutil.ToFloat64(votes.WithLabelValues("ok"))
	xpBefore := testutil.ToFloat64(xpGranted)

	RecordClaim("already_claimed")
	RecordVote("ok")
	AddXPGranted(50)
	AddXPGranted(-5)

	assert.Equal(t, 1.0, testutil.ToFloat64(claims.WithLabelValues("already_claimed"))-claimBefore)
	assert.Equal(t, 1.0, testutil.ToFloat64(votes.WithLabelValues("ok"))-voteBefore)
	assert.Equal(t, 50.0, testutil.ToFloat64(xpGranted)-xpBefore)
}

func TestHandler_ExposesRegistry(t *testing.T) {
	RecordClaim("ok")

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.True(t, strings.Contains(body, "engagement_claims_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
