package mapctl

import (
	"math"
	"sync"
	"time"
)

// pulse posts animation frames to the controller loop until stopped.
type pulse struct {
	stopCh chan struct{}
	once   sync.Once
}

func startPulse(fps int, post func(func()) bool, frame func(elapsed time.Duration)) *pulse {
	p := &pulse{stopCh: make(chan struct{})}
	if fps <= 0 {
		return p
	}
	go func() {
		ticker := time.NewTicker(time.Second / time.Duration(fps))
		defer ticker.Stop()
		start := time.Now()
		for {
			select {
			case <-p.stopCh:
				return
			case <-ticker.C:
				elapsed := time.Since(start)
				if !post(func() { frame(elapsed) }) {
					return
				}
			}
		}
	}()
	return p
}

func (p *pulse) stop() {
	p.once.Do(func() { close(p.stopCh) })
}

// pulseOpacity oscillates between 0.35 and 1.0 once per period.
func pulseOpacity(elapsed, period time.Duration) float64 {
	if period <= 0 {
		return 1
	}
	phase := float64(elapsed%period) / float64(period)
	return 0.675 + 0.325*math.Sin(2*math.Pi*phase)
}
