package cart

import "sync/atomic"

// metrics.go: lightweight atomic counters exposed via Map.Stats. These are
// diagnostic only - nothing on the read path depends on their values.

// Stats is a point-in-time snapshot of a Map's internal counters.
type Stats struct {
	Inserts         uint64
	Erases          uint64
	ProbeRetries    uint64
	PessimisticFallbacks uint64
	ShapeGrowths    uint64
	ShapeShrinks    uint64
	Reclaims        uint64
}

type metricsCounters struct {
	inserts              atomic.Uint64
	erases               atomic.Uint64
	probeRetries         atomic.Uint64
	pessimisticFallbacks atomic.Uint64
	shapeGrowths         atomic.Uint64
	shapeShrinks         atomic.Uint64
	reclaims             atomic.Uint64
}

func (m *metricsCounters) snapshot() Stats {
	return Stats{
		Inserts:              m.inserts.Load(),
		Erases:               m.erases.Load(),
		ProbeRetries:         m.probeRetries.Load(),
		PessimisticFallbacks: m.pessimisticFallbacks.Load(),
		ShapeGrowths:         m.shapeGrowths.Load(),
		ShapeShrinks:         m.shapeShrinks.Load(),
		Reclaims:             m.reclaims.Load(),
	}
}
