package stats

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAPICall(t *testing.T) {
	s := NewStats()
	s.RecordAPICall("HandleTx")
	s.RecordAPICall("HandleTx")
	s.RecordAPICall("HandleGetVault")

	assert.Equal(t, map[string]uint64{"HandleTx": 2, "HandleGetVault": 1}, s.GetAPICallStats())
	assert.Equal(t, 2.0, testutil.ToFloat64(s.apiCalls.WithLabelValues("HandleTx")))
}

func TestRecordTxAndLamports(t *testing.T) {
	s := NewStats()
	s.RecordTx("withdraw", "SUCCEED", 2*time.Millisecond)
	s.RecordTx("withdraw", "FAILED", time.Millisecond)
	s.RecordLamports(DirectionWithdrawn, 1000)
	s.RecordLamports(DirectionWithdrawn, 0)
	s.VaultOpened()
	s.VaultOpened()
	s.VaultReleased()

	assert.Equal(t, 1.0, testutil.ToFloat64(s.txs.WithLabelValues("withdraw", "SUCCEED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.txs.WithLabelValues("withdraw", "FAILED")))
	assert.Equal(t, 1000.0, testutil.ToFloat64(s.lamports.WithLabelValues(DirectionWithdrawn)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.openVault))

	s.SetOpenVaults(5)
	assert.Equal(t, 5.0, testutil.ToFloat64(s.openVault))
}

func TestMetricsHandler(t *testing.T) {
	s := NewStats()
	s.RecordTx("initialize_lock", "SUCCEED", time.Millisecond)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `timelock_txs_total{kind="initialize_lock",status="SUCCEED"} 1`), body)
}
