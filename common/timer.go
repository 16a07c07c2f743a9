package common

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
)

// TimeoutHandler handler callback on timeout
type TimeoutHandler func() error

// IntervalTimer support class for triggering events at specific intervals
type IntervalTimer interface {
	// Start begin triggering the handler every interval. A one-shot timer fires once.
	Start(interval time.Duration, handler TimeoutHandler, oneShot bool) error
	// Stop stop the timer. The handler is not called again once Stop returns.
	Stop() error
}

// intervalTimerImpl implements IntervalTimer
type intervalTimerImpl struct {
	Component
	rootContext   context.Context
	contextCancel context.CancelFunc
	running       *sync.WaitGroup
	wg            *sync.WaitGroup
	lock          sync.Mutex
}

// GetIntervalTimerInstance create new interval timer instance
func GetIntervalTimerInstance(
	rootCtxt context.Context, wg *sync.WaitGroup, logTags log.Fields,
) (IntervalTimer, error) {
	if wg == nil {
		return nil, fmt.Errorf("interval timer requires a wait group")
	}
	timerTags := log.Fields{"module": "common", "component": "interval-timer"}
	for k, v := range logTags {
		timerTags[k] = v
	}
	return &intervalTimerImpl{
		Component:   Component{LogTags: timerTags},
		rootContext: rootCtxt,
		wg:          wg,
	}, nil
}

// Start start the interval timer
func (t *intervalTimerImpl) Start(
	interval time.Duration, handler TimeoutHandler, oneShot bool,
) error {
	if interval <= 0 {
		return fmt.Errorf("timer interval must be positive: %s", interval)
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.contextCancel != nil {
		return fmt.Errorf("timer already started")
	}
	log.WithFields(t.LogTags).Debugf("Starting with int %s", interval)
	ctxt, cancel := context.WithCancel(t.rootContext)
	t.contextCancel = cancel
	running := &sync.WaitGroup{}
	t.running = running
	t.wg.Add(1)
	running.Add(1)
	go func() {
		defer t.wg.Done()
		defer running.Done()
		defer log.WithFields(t.LogTags).Debug("Timer loop exiting")
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctxt.Done():
				return
			case <-ticker.C:
				// Stop may have raced with the tick
				if ctxt.Err() != nil {
					return
				}
				if err := handler(); err != nil {
					log.WithError(err).WithFields(t.LogTags).Error("Handler failed")
				}
				if oneShot {
					t.lock.Lock()
					t.contextCancel = nil
					t.lock.Unlock()
					cancel()
					return
				}
			}
		}
	}()
	return nil
}

// Stop stop the interval timer
func (t *intervalTimerImpl) Stop() error {
	t.lock.Lock()
	cancel := t.contextCancel
	running := t.running
	t.contextCancel = nil
	t.lock.Unlock()
	if cancel != nil {
		log.WithFields(t.LogTags).Debug("Stopping timer loop")
		cancel()
	}
	if running != nil {
		running.Wait()
	}
	return nil
}
