package loadgen

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Report collects the results of one run.
type Report struct {
	Target      string
	Latency     LatencyResult
	Concurrency []ConcurrencyResult
	Memory      MemoryResult
}

// Print renders the report for a terminal.
func (r *Report) Print(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "=== User store performance test (%s) ===\n\n", r.Target)

	b.WriteString("--- Response time ---\n")
	fmt.Fprintf(&b, "POST average response time: %.3f ms (%d ok, %d failed)\n",
		millis(r.Latency.CreateMean), r.Latency.Iterations-r.Latency.CreateFailures, r.Latency.CreateFailures)
	fmt.Fprintf(&b, "GET average response time: %.3f ms (%d ok, %d failed)\n\n",
		millis(r.Latency.ListMean), r.Latency.Iterations-r.Latency.ListFailures, r.Latency.ListFailures)

	b.WriteString("--- Concurrent requests ---\n")
	for _, c := range r.Concurrency {
		fmt.Fprintf(&b, "%d concurrent users - average response time: %.3f ms, total time: %.3f ms (%d ok, %d failed)\n",
			c.Level, millis(c.Mean), millis(c.Total), c.Succeeded, c.Failed)
	}
	b.WriteString("\n")

	m := r.Memory
	b.WriteString("--- Memory usage ---\n")
	fmt.Fprintf(&b, "Heap growth after %d requests: %+.3f MB (%.1f bytes per request)\n",
		m.Requests, float64(m.HeapDelta)/(1<<20), m.HeapPerRequest())
	fmt.Fprintf(&b, "RSS growth after %d requests: %+.3f MB (%.1f bytes per request)\n",
		m.Requests, float64(m.RSSDelta)/(1<<20), m.RSSPerRequest())
	if m.Failed > 0 {
		fmt.Fprintf(&b, "Failed requests: %d\n", m.Failed)
	}
	if m.ServiceCount >= 0 {
		fmt.Fprintf(&b, "Total users: %d\n", m.ServiceCount)
	} else {
		b.WriteString("Total users: unavailable\n")
	}
	b.WriteString("\n=== Done ===\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func mean(ds []time.Duration) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range ds {
		sum += d
	}
	return sum / time.Duration(len(ds))
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
