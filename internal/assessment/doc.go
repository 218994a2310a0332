// Package assessment provides the business boundary around the risk engine.
// It defines the Service (dedup, lifecycle, async dispatch, deadline), the
// Store interface (persistence), the Assessment record, and the Prometheus
// metrics wired into the engine via hooks.
package assessment
