package audio

import "time"

// Observer receives resolution and cache events. Implementations must be
// safe for concurrent use.
type Observer interface {
	ObserveResolution(outcome string, elapsed time.Duration)
	ObserveCacheLookup(hit bool)
	ObserveDownload(err error, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveResolution(string, time.Duration) {}
func (nopObserver) ObserveCacheLookup(bool) {}
func (nopObserver) ObserveDownload(error, time.Duration) {}

// NopObserver discards all events.
var NopObserver Observer = nopObserver{}
