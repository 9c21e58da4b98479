package host

import (
	"errors"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sys/unix"
)

// Metrics is a Prometheus Collector tracking dispatched syscalls by number
// and outcome. Grounded on the pack's pkg/exporter custom-Collector
// pattern (runZeroInc-conniver): a private mutex-guarded map gathered into
// Prometheus metric families on demand, rather than prometheus.NewCounterVec
// registered eagerly for every possible syscall number up front.
type Metrics struct {
	mu sync.Mutex
	// calls counts successful dispatches, by syscall number.
	calls map[int64]uint64
	// errors counts failed dispatches, by syscall number and errno.
	errors map[int64]map[unix.Errno]uint64

	callsDesc  *prometheus.Desc
	errorsDesc *prometheus.Desc
}

// NewMetrics returns an unregistered Metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		calls:  make(map[int64]uint64),
		errors: make(map[int64]map[unix.Errno]uint64),
		callsDesc: prometheus.NewDesc(
			"sallyport_syscalls_total",
			"Total number of syscalls dispatched successfully, by number.",
			[]string{"num"}, nil,
		),
		errorsDesc: prometheus.NewDesc(
			"sallyport_syscall_errors_total",
			"Total number of syscalls that returned an error, by number and errno.",
			[]string{"num", "errno"}, nil,
		),
	}
}

func (m *Metrics) observe(num int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		m.calls[num]++
		return
	}
	var errno unix.Errno
	errors.As(err, &errno)
	if m.errors[num] == nil {
		m.errors[num] = make(map[unix.Errno]uint64)
	}
	m.errors[num][errno]++
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.callsDesc
	ch <- m.errorsDesc
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for num, n := range m.calls {
		ch <- prometheus.MustNewConstMetric(m.callsDesc, prometheus.CounterValue, float64(n), numLabel(num))
	}
	for num, byErrno := range m.errors {
		for errno, n := range byErrno {
			ch <- prometheus.MustNewConstMetric(m.errorsDesc, prometheus.CounterValue, float64(n), numLabel(num), errno.Error())
		}
	}
}

func numLabel(num int64) string {
	return strconv.FormatInt(num, 10)
}
