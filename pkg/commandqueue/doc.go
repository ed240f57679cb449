// Package commandqueue provides lane-based task execution with FIFO ordering per lane.
//
// Invariants:
// - Tasks in the same lane execute in FIFO order.
// - Tasks in different lanes may execute concurrently.
//
// The conversation engine uses one lane per sender ID so each sender's
// messages are handled strictly in arrival order.
//
// Usage:
//
//	queue := commandqueue.New()
//	defer queue.Close()
//	result, err := queue.Enqueue("628123", func(ctx context.Context) (interface{}, error) {
//		return "ok", nil
//	})
package commandqueue
