package strategy

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// Strategy es la capacidad única de selección: mapear (evento, señal) a como
// mucho una posición candidata. (nil, nil) significa "sin oportunidad", que es
// el resultado mayoritario esperado y no un error.
//
// Las tres variantes (spread, edge, momentum) devuelven la misma forma de
// candidato, así que el resto del pipeline es agnóstico a la estrategia. La
// variante se elige una vez por configuración, no por tipo de mercado.
type Strategy interface {
	Name() string
	Evaluate(ctx context.Context, event domain.Event, sig domain.Signal) (*domain.CandidatePosition, error)
}

// SignalKind devuelve el tipo de señal que necesita la estrategia con el
// nombre dado, para que el engine componga el proveedor correcto.
func SignalKind(name string) (domain.SignalKind, error) {
	switch name {
	case "spread":
		return domain.SignalNone, nil
	case "edge":
		return domain.SignalDistribution, nil
	case "momentum":
		return domain.SignalMomentum, nil
	}
	return domain.SignalNone, fmt.Errorf("strategy.SignalKind: unknown strategy %q", name)
}
