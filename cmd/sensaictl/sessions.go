package main

import (
	"fmt"
	"time"

	"github.com/sensai/sensai-backend/internal/repository"
	"github.com/spf13/cobra"
)

func purgeSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-sessions",
		Short: "Delete expired login sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := connect(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()

			n, err := repository.NewSessionRepository(e.pool).DeleteExpired(cmd.Context(), time.Now())
			if err != nil {
				return fmt.Errorf("purge sessions: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired sessions\n", n)
			return nil
		},
	}
}
