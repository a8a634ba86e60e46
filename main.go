package main

import (
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"

	"snappurge/cmd"
)

func main() {
	// Respect container CPU quotas before any worker pool is sized
	undo, err := maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to set GOMAXPROCS: %v\n", err)
	}

	code := cmd.Execute()
	undo()
	os.Exit(code)
}
