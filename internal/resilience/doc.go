// Package resilience groups the fault tolerance helpers used around the push
// gateway and the database:
//
//   - circuitbreaker wraps github.com/sony/gobreaker with typed calls and state metrics
//   - retry runs an operation with exponential backoff and jitter
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.PushAPIConfig(), logger)
//	id, err := circuitbreaker.Do(cb, func() (string, error) {
//	    var id string
//	    err := retry.WithBackoff(ctx, retry.PushConfig(), func() (err error) {
//	        id, err = post(ctx, msg)
//	        return err
//	    })
//	    return id, err
//	})
package resilience
