package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/geoknoesis/wap-go/internal/profile"
)

func (c *CLI) newProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Inspect and update the JSON-LD profile cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cached profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := profile.New(c.Config, c.Logger)
			if err != nil {
				return err
			}
			return c.printProfiles(cache.Profiles())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Download every profile that is stale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := profile.New(c.Config, c.Logger)
			if err != nil {
				return err
			}
			if err := cache.Refresh(cmd.Context()); err != nil {
				return err
			}
			return c.printProfiles(cache.Profiles())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add URL...",
		Short: "Download and register profiles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := profile.New(c.Config, c.Logger)
			if err != nil {
				return err
			}
			var failed int
			for _, u := range args {
				if !cache.CacheProfile(cmd.Context(), u) {
					c.Logger.WithField("url", u).Error("profile could not be cached")
					failed++
				}
			}
			if err := c.printProfiles(cache.Profiles()); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d profiles could not be cached", failed, len(args))
			}
			return nil
		},
	})
	return cmd
}

func (c *CLI) printProfiles(entries []profile.Entry) error {
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "URL\tCACHED\tLAST SUCCESS\tFAILURES")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%t\t%s\t%d\n", e.URL, e.Cached, formatTime(e.LastSuccess), e.Failures)
	}
	return w.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
