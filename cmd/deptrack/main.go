package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"deptrack/cmd/deptrack/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := commands.Execute(ctx); err != nil {
		stop()
		log.Println(err)
		os.Exit(1)
	}
}
