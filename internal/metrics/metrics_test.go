package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := Registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestRecorders(t *testing.T) {
	labels := map[string]string{"from": "CREATED", "to": "ACCEPTED"}
	before := counterValue(t, "food_rescue_donation_transitions_total", labels)
	RecordTransition("CREATED", "ACCEPTED")
	assert.Equal(t, before+1, counterValue(t, "food_rescue_donation_transitions_total", labels))

	src := map[string]string{"source": "ADMIN_ADJUSTMENT"}
	beforePts := counterValue(t, "food_rescue_points_awarded_total", src)
	RecordAward("ADMIN_ADJUSTMENT", -30)
	assert.Equal(t, beforePts+30, counterValue(t, "food_rescue_points_awarded_total", src))

	beforeExpired := counterValue(t, "food_rescue_expiry_donations_expired_total", nil)
	RecordSweep("completed", 3, time.Second)
	assert.Equal(t, beforeExpired+3, counterValue(t, "food_rescue_expiry_donations_expired_total", nil))
}

func TestHandlerServesRegistry(t *testing.T) {
	RecordDuplicateAward("DONATION")

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "food_rescue_points_duplicate_awards_total")
}
