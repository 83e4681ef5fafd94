// Package dbmonitor watches database connection pools for saturation and
// leak patterns and raises alerts with a per-type cooldown.
//
// The monitor samples every attached pool on a fixed interval (or an
// optional cron schedule), keeps a rolling per-pool history bounded by a
// time window, and evaluates four conditions on every tick:
//
//   - HIGH_UTILIZATION: current utilization above a threshold (default 80%)
//   - LONG_WAIT_TIME: any caller blocked acquiring a connection
//   - POOL_EXHAUSTION: pool at configured size with callers still waiting
//   - CONNECTION_LEAK: sustained high utilization with almost no idle
//     connections over the last five samples (a heuristic, not proof)
//
// Alerts of the same type for the same pool are suppressed for a cooldown
// interval (default 5 minutes) no matter how often the condition recurs.
//
// # Usage
//
//	monitor := dbmonitor.NewMonitor(
//	    dbmonitor.WithLogger(log),
//	    dbmonitor.WithInterval(30*time.Second),
//	)
//	monitor.Attach("write", writeStats)
//	monitor.Attach("read", readStats)
//
//	monitor.OnAlert(func(a dbmonitor.Alert) {
//	    pager.Notify(a.Message)
//	})
//
//	if err := monitor.Start(ctx); err != nil {
//	    return err
//	}
//	defer monitor.Stop()
//
// Pools are attached through the small [Source] interface, so anything that
// can report {total, idle, waiting, max} counters can be monitored. The db
// package's manager attaches its write and read pools automatically when
// constructed with a monitor.
//
// # Subscribers
//
// [Monitor.OnAlert] and [Monitor.OnPoolError] register plain callbacks. They
// are called synchronously from the sampling loop with panics recovered, so
// a broken subscriber cannot stop future samples. Delivery is best-effort;
// the cooldown timestamp per pool and alert type is the only alert state the
// monitor keeps.
//
// # Metrics
//
// Every sample updates Prometheus gauges (total, idle, waiting, max,
// utilization, labelled by pool) and alert/error counters under the
// dbcore_pool namespace. Pass a dedicated registry with [WithRegisterer] in
// tests.
//
// # Lifecycle
//
// Start and Stop are idempotent. Start with no attached pools returns
// [ErrNoSources]. Stop halts the loop but retains history and cooldown
// state until the process exits; nothing is persisted.
package dbmonitor
