package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vespers/internal/apperr"
	"vespers/internal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		stop()
		if apperr.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, "Error:", apperr.Message(err))
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
