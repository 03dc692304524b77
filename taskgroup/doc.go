// Package taskgroup provides a structured task group: a scope-bound owner
// of concurrently running tasks that all produce the same result type.
//
// Tasks are submitted with Spawn and their results are consumed with Next
// in completion order, not submission order:
//
//	g := taskgroup.New[string](ctx, taskgroup.Supervisor)
//	for i := 1; i <= 3; i++ {
//		_ = g.Spawn(func(ctx context.Context) (string, error) {
//			return fmt.Sprintf("Result from task %d", i), nil
//		})
//	}
//	for v, err := range g.All(ctx) {
//		...
//	}
//	err := g.Close()
//
// A group moves through Open, Draining and Closed. Close stops new
// submissions and waits until every task has resolved, so no task outlives
// the group. Run wraps that sequence around a function body and performs it
// on every exit path.
//
// Every spawned task yields exactly one Result. A failing task yields a
// *WorkError; a task cancelled before or during execution yields a
// *CancelledError. Whether one failure cancels the siblings is chosen
// explicitly when the group is created: FailFast does, Supervisor does not.
package taskgroup
