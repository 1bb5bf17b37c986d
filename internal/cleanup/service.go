// Package cleanup removes expired listings in the background. Reads
// already treat lapsed listings as absent; the janitor keeps the table
// from accumulating dead rows.
package cleanup

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var expiredRemoved = promauto.NewCounter(prometheus.CounterOpts{
	Name: "emeraldmarket_expired_listings_removed_total",
	Help: "Total number of expired listings removed by the janitor",
})

// ListingStore is the persistence surface the janitor needs.
// *database.ListingRepository satisfies it.
type ListingStore interface {
	CleanupExpired(ctx context.Context, batchSize int) (int, error)
}

// Janitor periodically sweeps expired listings
type Janitor struct {
	store  ListingStore
	config Config
	log    *logrus.Entry

	stop chan struct{}
	done chan struct{}
}

// NewJanitor creates a janitor. Call Start to begin sweeping.
func NewJanitor(store ListingStore, config Config, log *logrus.Logger) *Janitor {
	return &Janitor{
		store:  store,
		config: config,
		log:    log.WithField("component", "cleanup"),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the sweep loop
func (j *Janitor) Start() {
	go func() {
		defer close(j.done)

		ticker := time.NewTicker(j.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				j.sweep()
			case <-j.stop:
				return
			}
		}
	}()
}

// Stop halts the sweep loop and waits for it to exit
func (j *Janitor) Stop() {
	close(j.stop)
	<-j.done
}

// sweep deletes expired listings batch by batch until a sweep comes
// up short, so one pass drains the backlog without holding long locks.
func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	total := 0
	for {
		removed, err := j.store.CleanupExpired(ctx, j.config.BatchSize)
		if err != nil {
			j.log.WithError(err).Error("failed to clean up expired listings")
			break
		}

		total += removed
		expiredRemoved.Add(float64(removed))

		if removed < j.config.BatchSize {
			break
		}
	}

	if total > 0 {
		j.log.WithField("removed", total).Info("removed expired listings")
	}
}
