package bench

import (
	"net/http"
	"strconv"
	"time"
)

// Timing response headers the proxy stack attaches to a completion.
// Each value is a duration in seconds as a decimal string.
const (
	headerClientDuration = "X-Client-Duration"
	headerProxyDuration  = "X-Proxy-Duration"
	headerWorkerDuration = "X-Worker-Duration"
)

// TimingInfo holds the self-reported stage durations of a request, in
// seconds. A nil field means the stage did not report.
//
// The stages nest: client wraps proxy wraps worker. Overheads are derived
// by subtraction in Breakdown.
type TimingInfo struct {
	ClientSeconds *float64
	ProxySeconds  *float64
	WorkerSeconds *float64
}

// ParseTimingHeaders extracts a TimingInfo from response headers.
// Returns nil when no timing header is present or parseable.
func ParseTimingHeaders(h http.Header) *TimingInfo {
	if h == nil {
		return nil
	}
	ti := &TimingInfo{
		ClientSeconds: parseSeconds(h.Get(headerClientDuration)),
		ProxySeconds:  parseSeconds(h.Get(headerProxyDuration)),
		WorkerSeconds: parseSeconds(h.Get(headerWorkerDuration)),
	}
	if ti.ClientSeconds == nil && ti.ProxySeconds == nil && ti.WorkerSeconds == nil {
		return nil
	}
	return ti
}

func parseSeconds(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

// ClientDuration returns the self-reported end-to-end client duration.
func (t *TimingInfo) ClientDuration() (float64, bool) {
	if t == nil || t.ClientSeconds == nil {
		return 0, false
	}
	return *t.ClientSeconds, true
}

// Overheads is the per-stage decomposition of one request's latency, in
// seconds. A component is set only when it is derivable and strictly
// positive; it is omitted rather than reported as zero or negative.
type Overheads struct {
	Network *float64 // wall duration minus client duration
	Client  *float64 // client duration minus proxy duration
	Proxy   *float64 // proxy duration minus worker duration
	Worker  *float64 // worker self-reported duration
}

// Breakdown derives the overhead decomposition from the observed wall-clock
// duration.
func (t *TimingInfo) Breakdown(wall time.Duration) Overheads {
	var o Overheads
	if t == nil {
		return o
	}
	if t.WorkerSeconds != nil {
		o.Worker = positive(*t.WorkerSeconds)
	}
	if t.ProxySeconds != nil && t.WorkerSeconds != nil {
		o.Proxy = positive(*t.ProxySeconds - *t.WorkerSeconds)
	}
	if t.ClientSeconds != nil && t.ProxySeconds != nil {
		o.Client = positive(*t.ClientSeconds - *t.ProxySeconds)
	}
	if t.ClientSeconds != nil && wall > 0 {
		o.Network = positive(wall.Seconds() - *t.ClientSeconds)
	}
	return o
}

func positive(v float64) *float64 {
	if v > 0 {
		return &v
	}
	return nil
}
