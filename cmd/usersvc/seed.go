package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

const defaultSeedTimeout = 30 * time.Second

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the default roles and the root user",
		Long: `Creates the Administrator and Guest roles and the configured root user
when the store is empty. Running it again changes nothing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := runSeed(ctx); err != nil {
				return err
			}
			cmd.Println("seed complete")
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", defaultSeedTimeout, "timeout for store operations (e.g., 30s, 1m)")

	return cmd
}

func runSeed(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.close(context.Background()) }()

	procCtx, stop := context.WithCancel(context.Background())
	defer func() {
		stop()
		<-a.processor.Done()
	}()
	a.processor.Start(procCtx)

	return a.processor.Seed(ctx)
}
