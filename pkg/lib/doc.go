// Package lib provides a Go SDK for the Gist prioritized tasks backend.
//
// It allows applications to read and reorder the tasks of a user and to follow
// the onboarding task generation without shelling out to the gist CLI binary.
// The SDK shares the local task cache and onboarding progress with the CLI.
//
// # Quick Start
//
//	client, err := lib.New(ctx, lib.Config{
//	    APIURL: "https://gist.example.com/api",
//	    Token:  os.Getenv("GIST_TOKEN"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	tasks, _ := client.ListTasks(ctx, nil)
//	for _, t := range tasks {
//	    fmt.Println(t.ID, t.Text)
//	}
//
// # Reordering
//
// Moving a task to the position of another one sends the ranking feedback to
// the backend and updates the cached order and scores:
//
//	res, _ := client.MoveTask(ctx, "task-b", "task-a")
//
// # Task Generation
//
// Follow the onboarding task generation until it finishes:
//
//	err := client.WatchTaskGeneration(ctx, func(ev lib.StatusEvent) {
//	    fmt.Println(ev.Kind, ev.Message)
//	})
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: Resource does not exist.
//   - [ErrNotValid]: Invalid input.
//   - [ErrConnectionLost]: The task generation status could not be followed.
//   - [ErrTimeout]: The task generation status went silent for too long.
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines. The underlying
// storage uses SQLite with WAL mode.
package lib
