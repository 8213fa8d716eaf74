// Package candle aggregates observed tick mids into one-minute OHLC bars
// per symbol, purely for operator reporting over the monitor API/WS. It
// never participates in any gate.
package candle

import (
	"sync"
	"time"

	"github.com/akephisit/reflexguard/pkg/models"
)

// Cache holds the in-progress candle for each symbol.
type Cache struct {
	mu      sync.RWMutex
	candles map[string]models.Candle
}

// New creates an empty candle cache.
func New() *Cache {
	return &Cache{candles: make(map[string]models.Candle)}
}

// Update folds a new mid price into the current minute's candle for
// symbol, starting a fresh bar when the UTC minute bucket advances.
func (c *Cache) Update(symbol string, mid float64, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bucket := now.Truncate(time.Minute)
	existing, ok := c.candles[symbol]
	if !ok || bucket.After(existing.BucketFrom) {
		c.candles[symbol] = models.Candle{
			Symbol:     symbol,
			BucketFrom: bucket,
			Open:       mid,
			High:       mid,
			Low:        mid,
			Close:      mid,
			TickCount:  1,
		}
		return
	}

	if mid > existing.High {
		existing.High = mid
	}
	if mid < existing.Low {
		existing.Low = mid
	}
	existing.Close = mid
	existing.TickCount++
	c.candles[symbol] = existing
}

// Latest returns the current candle for symbol, if any.
func (c *Cache) Latest(symbol string) (models.Candle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cd, ok := c.candles[symbol]
	return cd, ok
}
