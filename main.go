package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"sjsage522/pagescope/internal/cli"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		// a second signal terminates immediately
		<-ctx.Done()
		stop()
	}()
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
