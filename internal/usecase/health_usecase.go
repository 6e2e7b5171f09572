package usecase

import (
	"context"
	"time"
)

// Probe reports whether a dependency is ready. Nil probes are skipped.
type Probe func(ctx context.Context) error

type HealthUsecase interface {
	Check(ctx context.Context) map[string]string
}

type healthUsecase struct {
	probes  map[string]Probe
	timeout time.Duration
}

func NewHealthUsecase(probes map[string]Probe) HealthUsecase {
	return &healthUsecase{probes: probes, timeout: 2 * time.Second}
}

// Check always reports "status": "ok" while the process serves; components are informational.
func (u *healthUsecase) Check(ctx context.Context) map[string]string {
	out := map[string]string{
		"status": "ok",
	}
	for name, probe := range u.probes {
		if probe == nil {
			continue
		}
		pctx, cancel := context.WithTimeout(ctx, u.timeout)
		err := probe(pctx)
		cancel()
		if err != nil {
			out[name] = "unavailable"
			continue
		}
		out[name] = "ok"
	}
	return out
}
