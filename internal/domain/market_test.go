package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(n int) *int { return &n }

// makeBuckets construye una partición contigua 60-61, 62-63, ... con tails en
// los extremos y los bids dados.
func makeBuckets(bids ...int) []Bucket {
	buckets := make([]Bucket, 0, len(bids))
	lower := 60
	for i, bid := range bids {
		b := Bucket{
			Ticker: tickerFor(i),
			YesBid: bid,
			YesAsk: bid + 2,
			Open:   true,
		}
		switch i {
		case 0:
			b.Upper = intp(lower - 1)
		case len(bids) - 1:
			b.Lower = intp(lower)
		default:
			b.Lower = intp(lower)
			b.Upper = intp(lower + 1)
			lower += 2
		}
		buckets = append(buckets, b)
	}
	return buckets
}

func tickerFor(i int) string {
	return "KXHIGHNY-26AUG29-B" + string(rune('A'+i))
}

func makeEvent(bids ...int) Event {
	return Event{
		Ticker:    "KXHIGHNY-26AUG29",
		City:      "KXHIGHNY",
		Date:      time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
		CloseTime: time.Now().Add(6 * time.Hour),
		Status:    "open",
		Buckets:   makeBuckets(bids...),
	}
}

func TestBucketPrice_PrefersAsk(t *testing.T) {
	b := Bucket{YesBid: 30, YesAsk: 33}
	assert.Equal(t, 33, b.Price())

	b.YesAsk = 0
	assert.Equal(t, 30, b.Price())
}

func TestSortBuckets_TailsAtEnds(t *testing.T) {
	buckets := []Bucket{
		{Ticker: "high", Lower: intp(70)},
		{Ticker: "mid", Lower: intp(66), Upper: intp(67)},
		{Ticker: "low", Upper: intp(65)},
		{Ticker: "mid2", Lower: intp(68), Upper: intp(69)},
	}

	sorted := SortBuckets(buckets)
	assert.Equal(t, "low", sorted[0].Ticker)
	assert.Equal(t, "mid", sorted[1].Ticker)
	assert.Equal(t, "mid2", sorted[2].Ticker)
	assert.Equal(t, "high", sorted[3].Ticker)
	// El original no se toca.
	assert.Equal(t, "high", buckets[0].Ticker)
}

func TestEventValidate_OK(t *testing.T) {
	ev := makeEvent(5, 20, 45, 20, 5)
	require.NoError(t, ev.Validate())
}

func TestEventValidate_BidAboveAsk(t *testing.T) {
	ev := makeEvent(5, 20, 45)
	ev.Buckets[1].YesBid = 50
	ev.Buckets[1].YesAsk = 40

	err := ev.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bid")
}

func TestEventValidate_ZeroAskAllowed(t *testing.T) {
	// Sin asks publicados (ask=0) el bid no puede compararse: snapshot válido.
	ev := makeEvent(5, 20, 45)
	ev.Buckets[1].YesAsk = 0
	require.NoError(t, ev.Validate())
}

func TestEventValidate_GapInPartition(t *testing.T) {
	ev := makeEvent(5, 20, 45, 20, 5)
	// Romper la contigüidad: 62-63 pasa a 63-64.
	ev.Buckets[2].Lower = intp(63)
	ev.Buckets[2].Upper = intp(64)

	err := ev.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contiguous")
}

func TestEventValidate_PriceOutOfRange(t *testing.T) {
	ev := makeEvent(5, 20, 45)
	ev.Buckets[0].YesAsk = 101

	require.Error(t, ev.Validate())
}

func TestEventValidate_NoBuckets(t *testing.T) {
	ev := Event{Ticker: "X"}
	require.Error(t, ev.Validate())
}

func TestEventIsOpen(t *testing.T) {
	ev := makeEvent(5, 20, 45)
	assert.True(t, ev.IsOpen())

	ev.Status = "closed"
	assert.False(t, ev.IsOpen())

	ev.Status = "open"
	ev.CloseTime = time.Now().Add(-time.Minute)
	assert.False(t, ev.IsOpen())
}

func TestEventMarketKey(t *testing.T) {
	ev := makeEvent(5, 20)
	assert.Equal(t, "KXHIGHNY-26AUG29-20260829", ev.MarketKey())
}

func TestEventMinutesToClose(t *testing.T) {
	ev := makeEvent(5, 20)
	now := ev.CloseTime.Add(-10 * time.Minute)
	assert.InDelta(t, 10, ev.MinutesToClose(now), 0.01)
}
