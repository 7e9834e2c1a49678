// Package utils holds small helpers shared by the service entrypoints.
package utils //nolint:revive // var-naming: utils is an acceptable package name for shared utilities

import "sync"

// MergeErrorChans fans several listener error channels into one. Nil channels are
// skipped, so optional listeners can hand in a nil channel when disabled. The merged
// channel closes after every input channel has closed.
//
//	errs := utils.MergeErrorChans(httpErrs, metricsErrs, grpcErrs)
//	for err := range errs {
//		log.Error("Listener failed", logger.ErrorField(err))
//	}
func MergeErrorChans(channels ...chan error) chan error {
	out := make(chan error, len(channels))
	var wg sync.WaitGroup

	for _, ch := range channels {
		if ch == nil {
			continue
		}
		wg.Add(1)
		go func(c chan error) {
			defer wg.Done()
			for err := range c {
				out <- err
			}
		}(ch)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
