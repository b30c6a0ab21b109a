package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStatusClass(t *testing.T) {
	cases := map[int]string{0: "error", 200: "2xx", 204: "2xx", 404: "4xx", 503: "5xx"}
	for status, want := range cases {
		if got := StatusClass(status); got != want {
			t.Fatalf("StatusClass(%d) = %q, want %q", status, got, want)
		}
	}
}

func TestObserveCall(t *testing.T) {
	before := testutil.ToFloat64(GatewayCalls.WithLabelValues("99", "GET", "5xx"))
	ObserveCall(99, "GET", 502, 20*time.Millisecond)
	after := testutil.ToFloat64(GatewayCalls.WithLabelValues("99", "GET", "5xx"))
	if after != before+1 {
		t.Fatalf("expected counter to increase by one, got %v -> %v", before, after)
	}
}
