package domain

import (
	"fmt"
	"sort"
	"time"
)

// Bucket es un tramo de resultado de un evento (ej: "68-69°F" o "BTC sube").
// Los precios son centavos enteros 0-100. Snapshot inmutable: se construye en
// cada fetch y se reemplaza completo en el siguiente ciclo.
type Bucket struct {
	Ticker string
	Lower  *int // límite inferior de la magnitud subyacente; nil en el tail bajo
	Upper  *int // límite superior; nil en el tail alto
	YesBid int  // mejor bid del contrato YES (centavos)
	YesAsk int  // mejor ask del contrato YES (centavos, 0 = sin asks)
	Volume int
	Open   bool
}

// Price devuelve el precio de referencia para comprar: ask si existe, bid si no.
func (b Bucket) Price() int {
	if b.YesAsk > 0 {
		return b.YesAsk
	}
	return b.YesBid
}

// ImpliedProb devuelve la probabilidad implícita del mercado (ask/100).
func (b Bucket) ImpliedProb() float64 {
	return float64(b.Price()) / 100
}

// IsTail devuelve true si el bucket es abierto por uno de los dos lados.
func (b Bucket) IsTail() bool {
	return b.Lower == nil || b.Upper == nil
}

// RangeStr devuelve el rango legible del bucket ("<68", "70-71", ">75").
func (b Bucket) RangeStr() string {
	switch {
	case b.Lower == nil && b.Upper == nil:
		return ""
	case b.Lower == nil:
		return fmt.Sprintf("<%d", *b.Upper)
	case b.Upper == nil:
		return fmt.Sprintf(">%d", *b.Lower)
	default:
		return fmt.Sprintf("%d-%d", *b.Lower, *b.Upper)
	}
}

// Event es un evento de liquidación (ciudad+fecha, o ventana de 15 min) con sus
// buckets mutuamente excluyentes y exhaustivos. Solo se usa como agregado que
// recorre el evaluador; no se persiste por separado.
type Event struct {
	Ticker    string
	Title     string
	City      string
	Date      time.Time // fecha de liquidación
	CloseTime time.Time
	Buckets   []Bucket // ordenados por límite inferior (tails en los extremos)
	Status    string
}

// IsOpen devuelve true si el evento sigue abierto para operar.
func (e Event) IsOpen() bool {
	if e.Status != "open" && e.Status != "active" {
		return false
	}
	if !e.CloseTime.IsZero() && !time.Now().Before(e.CloseTime) {
		return false
	}
	return true
}

// MarketKey identifica el par evento+fecha para dedup de idempotencia.
func (e Event) MarketKey() string {
	return e.Ticker + "-" + e.Date.Format("20060102")
}

// MinutesToClose devuelve los minutos hasta el cierre del evento.
func (e Event) MinutesToClose(now time.Time) float64 {
	if e.CloseTime.IsZero() {
		return 0
	}
	return e.CloseTime.Sub(now).Minutes()
}

// Bucket devuelve el bucket con el ticker dado, o false si no existe.
func (e Event) Bucket(ticker string) (Bucket, bool) {
	for _, b := range e.Buckets {
		if b.Ticker == ticker {
			return b, true
		}
	}
	return Bucket{}, false
}

// SortBuckets ordena los buckets por límite inferior. El tail bajo (Lower nil)
// va primero y el tail alto (Upper nil) al final, como -inf/+inf.
func SortBuckets(buckets []Bucket) []Bucket {
	out := make([]Bucket, len(buckets))
	copy(out, buckets)
	sort.SliceStable(out, func(i, j int) bool {
		return bucketSortKey(out[i]) < bucketSortKey(out[j])
	})
	return out
}

func bucketSortKey(b Bucket) int {
	if b.Lower == nil {
		return -1 << 30
	}
	return *b.Lower
}

// Validate comprueba los invariantes del snapshot:
//   - bid <= ask cuando ambos están presentes
//   - límites ordenados (lower < upper)
//   - los buckets forman una partición contigua sin solapes, ordenada por lower
//
// Un evento que no valida se salta entero durante el ciclo; el error nunca
// debe propagarse a otros mercados.
func (e Event) Validate() error {
	if len(e.Buckets) == 0 {
		return fmt.Errorf("event %s: no buckets", e.Ticker)
	}

	for _, b := range e.Buckets {
		if b.YesAsk > 0 && b.YesBid > b.YesAsk {
			return fmt.Errorf("event %s: bucket %s: bid %d > ask %d", e.Ticker, b.Ticker, b.YesBid, b.YesAsk)
		}
		if b.YesBid < 0 || b.YesBid > 100 || b.YesAsk < 0 || b.YesAsk > 100 {
			return fmt.Errorf("event %s: bucket %s: price out of range", e.Ticker, b.Ticker)
		}
		if b.Lower != nil && b.Upper != nil && *b.Lower >= *b.Upper {
			return fmt.Errorf("event %s: bucket %s: lower %d >= upper %d", e.Ticker, b.Ticker, *b.Lower, *b.Upper)
		}
	}

	sorted := SortBuckets(e.Buckets)
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.Upper == nil {
			return fmt.Errorf("event %s: tail bucket %s is not the last", e.Ticker, prev.Ticker)
		}
		if cur.Lower == nil {
			return fmt.Errorf("event %s: tail bucket %s is not the first", e.Ticker, cur.Ticker)
		}
		// Partición contigua en grados/unidades enteras: 68-69, 70-71, ...
		if *cur.Lower != *prev.Upper+1 {
			return fmt.Errorf("event %s: buckets %s and %s are not contiguous", e.Ticker, prev.Ticker, cur.Ticker)
		}
	}
	return nil
}
