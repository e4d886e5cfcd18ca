package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"mapmarks/internal/pkg/metrics"
)

type stubPoolStat struct {
	acquired, idle, total int32
}

func (s stubPoolStat) AcquiredConns() int32 { return s.acquired }
func (s stubPoolStat) IdleConns() int32     { return s.idle }
func (s stubPoolStat) TotalConns() int32    { return s.total }

func TestUpdateDBPoolMetrics_SetsGauges(t *testing.T) {
	metrics.UpdateDBPoolMetrics(stubPoolStat{acquired: 3, idle: 7, total: 10})

	if got := testutil.ToFloat64(metrics.DBPoolConnsAcquired); got != 3 {
		t.Errorf("acquired gauge = %f, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.DBPoolConnsIdle); got != 7 {
		t.Errorf("idle gauge = %f, want 7", got)
	}
	if got := testutil.ToFloat64(metrics.DBPoolConnsOpen); got != 10 {
		t.Errorf("open gauge = %f, want 10", got)
	}
}

func TestUpdateDBPoolMetrics_IgnoresUnknownStatShape(t *testing.T) {
	metrics.UpdateDBPoolMetrics(stubPoolStat{acquired: 5, idle: 5, total: 10})
	metrics.UpdateDBPoolMetrics("not a pool stat")

	if got := testutil.ToFloat64(metrics.DBPoolConnsOpen); got != 10 {
		t.Errorf("open gauge changed on bad input: %f", got)
	}
}
