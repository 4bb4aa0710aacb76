// Command jarpatch injects a diagnostic println into one class of a jar.
//
// Usage:
//
//	jarpatch <input-jar> <output-jar> [class-to-modify]
//	jarpatch <input-jar> -dShowClasses
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
