package metrics

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordImport(t *testing.T) {
	before := testutil.ToFloat64(importRuns.WithLabelValues("teachers", "failure"))

	RecordImport("teachers", stderrors.New("boom"), time.Second)
	RecordImport("teachers", nil, time.Second)

	require.Equal(t, before+1, testutil.ToFloat64(importRuns.WithLabelValues("teachers", "failure")))
}

func TestRecordRows_IgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(importRows.WithLabelValues("students", "skipped"))

	RecordRows("students", "skipped", 0)
	RecordRows("students", "skipped", 3)

	require.Equal(t, before+3, testutil.ToFloat64(importRows.WithLabelValues("students", "skipped")))
}

func TestRecordMirrorRead(t *testing.T) {
	hits := testutil.ToFloat64(mirrorReads.WithLabelValues("students", "hit"))
	misses := testutil.ToFloat64(mirrorReads.WithLabelValues("students", "miss"))

	RecordMirrorRead("students", true)
	RecordMirrorRead("students", false)
	RecordMirrorRead("students", false)

	require.Equal(t, hits+1, testutil.ToFloat64(mirrorReads.WithLabelValues("students", "hit")))
	require.Equal(t, misses+2, testutil.ToFloat64(mirrorReads.WithLabelValues("students", "miss")))
}
