package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teranos/pam/cmd/pam/commands"
	"github.com/teranos/pam/errors"
	"github.com/teranos/pam/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.NewRootCmd().ExecuteContext(ctx)
	stop()
	logger.Cleanup()

	if err != nil {
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(1)
	}
}
