package taskgroup_test

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/NetPo4ki/go-taskgroup/taskgroup"
)

func ExampleGroup() {
	ctx := context.Background()
	g := taskgroup.New[string](ctx, taskgroup.Supervisor)
	for i := 1; i <= 3; i++ {
		_ = g.Spawn(func(context.Context) (string, error) {
			return fmt.Sprintf("Result from task %d", i), nil
		})
	}

	// Completion order is not deterministic; sort for stable output.
	var got []string
	for v, err := range g.All(ctx) {
		if err != nil {
			panic(err)
		}
		got = append(got, v)
	}
	sort.Strings(got)
	for _, v := range got {
		fmt.Println(v)
	}
	fmt.Println(g.Close())
	// Output:
	// Result from task 1
	// Result from task 2
	// Result from task 3
	// <nil>
}

func ExampleRun() {
	errBoom := errors.New("boom")
	err := taskgroup.Run(context.Background(), taskgroup.Supervisor,
		func(ctx context.Context, g *taskgroup.Group[int]) error {
			_ = g.Spawn(func(context.Context) (int, error) { return 0, errBoom })
			return nil
		})
	fmt.Println(errors.Is(err, errBoom))
	// Output: true
}

func ExampleAsync() {
	task := taskgroup.Async(context.Background(), func(context.Context) (string, error) {
		return "Data loaded", nil
	})
	v, err := task.Await(context.Background())
	fmt.Println(v, err)
	// Output: Data loaded <nil>
}
