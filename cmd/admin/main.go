// Command admin runs maintenance operations directly against the database.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"hackmate/backend/internal/config"
	"hackmate/backend/internal/storage"
	"hackmate/backend/internal/teammatch"

	"github.com/spf13/cobra"
)

var (
	matchLimit int
	timeout    time.Duration
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Maintenance commands for the hackmate database",
	Long: `admin connects to the database configured by the HACKMATE_* environment
(or a .env file) and runs one maintenance command. Redis is not used.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "overall command timeout")

	profilesMatchCmd.Flags().IntVar(&matchLimit, "limit", 5, "number of matches to show")
	profilesCmd.AddCommand(profilesListCmd, profilesMatchCmd)

	rootCmd.AddCommand(migrateCmd, messagesCmd, profilesCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update every table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStorage(cmd, func(ctx context.Context, s *storage.Service) error {
			if err := s.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations complete.")
			return nil
		})
	},
}

var messagesCmd = &cobra.Command{
	Use:   "messages <teamId>",
	Short: "Print a team's message history, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(cmd, func(ctx context.Context, s *storage.Service) error {
			msgs, err := s.ListMessages(ctx, args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tSENDER\tMESSAGE")
			for _, m := range msgs {
				sender := m.Sender
				if m.SenderName != "" {
					sender = m.SenderName
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", m.CreatedAt.UTC().Format(time.RFC3339), sender, m.Body)
			}
			return w.Flush()
		})
	},
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Inspect team formation profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStorage(cmd, func(ctx context.Context, s *storage.Service) error {
			profiles, err := s.ListProfiles(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tROLE\tSKILLS")
			for _, p := range profiles {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Role, p.Skills)
			}
			return w.Flush()
		})
	},
}

var profilesMatchCmd = &cobra.Command{
	Use:   "match <profileId>",
	Short: "Rank the best teammates for a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid profile id %q", args[0])
		}
		return withStorage(cmd, func(ctx context.Context, s *storage.Service) error {
			matches, err := teammatch.NewMatcherService(s, nil).Matches(ctx, uint(id), matchLimit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SCORE\tID\tNAME\tREASONS")
			for _, m := range matches {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", m.Score, m.Profile.ID, m.Profile.Name, strings.Join(m.Reasons, "; "))
			}
			return w.Flush()
		})
	},
}

// withStorage opens the configured database for the duration of fn.
func withStorage(cmd *cobra.Command, fn func(ctx context.Context, s *storage.Service) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := storage.Open(cfg.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	return fn(ctx, storage.NewStorageService(db, nil))
}
