package execpool

import "github.com/prometheus/client_golang/prometheus"

// poolMetrics groups the Prometheus collectors an executor registers when
// constructed with a non-nil Options.Registerer (C10). Grounded in the
// teacher's indirect reliance on github.com/prometheus/client_golang
// (pulled transitively through its storage layer) — promoted here to a
// direct, exercised dependency rather than the hand-rolled atomic counters
// the teacher's own worker pools expose via GetMetrics()-style structs.
type poolMetrics struct {
	workerCount    prometheus.Gauge
	activeWorkers  prometheus.Gauge
	queuedTasks    prometheus.Gauge
	submittedTotal prometheus.Counter
	completedTotal prometheus.Counter
	rejectedTotal  prometheus.Counter
	stolenTotal    prometheus.Counter
}

func newPoolMetrics(reg prometheus.Registerer, name string) (*poolMetrics, error) {
	constLabels := prometheus.Labels{"pool": name}
	m := &poolMetrics{
		workerCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "execpool_worker_count", Help: "Current worker_count field of the control word.", ConstLabels: constLabels,
		}),
		activeWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "execpool_active_workers", Help: "Workers currently running a task (idle=false).", ConstLabels: constLabels,
		}),
		queuedTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "execpool_queued_tasks", Help: "Sum of per-worker queue sizes.", ConstLabels: constLabels,
		}),
		submittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "execpool_tasks_submitted_total", Help: "Tasks accepted via execute/submit.", ConstLabels: constLabels,
		}),
		completedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "execpool_tasks_completed_total", Help: "Tasks that finished running, successfully or not.", ConstLabels: constLabels,
		}),
		rejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "execpool_tasks_rejected_total", Help: "Submissions handed to the rejection policy.", ConstLabels: constLabels,
		}),
		stolenTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "execpool_tasks_stolen_total", Help: "Tasks popped from a neighbor's queue instead of the owner's.", ConstLabels: constLabels,
		}),
	}
	for _, c := range []prometheus.Collector{m.workerCount, m.activeWorkers, m.queuedTasks, m.submittedTotal, m.completedTotal, m.rejectedTotal, m.stolenTotal} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
