package main

import (
	"context"
	"os"
	"os/signal"

	"nobg/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cmd.Execute(ctx)
	cancel()

	os.Exit(code)
}
