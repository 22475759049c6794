package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mediagate/pkg/ratelimit"
	"mediagate/pkg/ui"
)

var (
	rlBackend   string
	rlStateFile string
)

var ratelimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Inspect and reset per-client rate limit state",
	Long: `Inspect and reset the per-client admission state of the
/fetch_channel_data endpoint.

With the file backend, stop the server first: it keeps the whole file in
memory and rewrites it on every request.`,
}

var ratelimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every client with its usage in the current window",
	Args:  cobra.NoArgs,
	RunE:  runRatelimitList,
}

var ratelimitResetCmd = &cobra.Command{
	Use:     "reset <client>",
	Short:   "Forget a client's window so its next request starts fresh",
	Example: `  mediagate ratelimit reset 203.0.113.7`,
	Args:    cobra.ExactArgs(1),
	RunE:    runRatelimitReset,
}

func init() {
	rootCmd.AddCommand(ratelimitCmd)
	ratelimitCmd.AddCommand(ratelimitListCmd)
	ratelimitCmd.AddCommand(ratelimitResetCmd)

	ratelimitCmd.PersistentFlags().StringVar(&rlBackend, "backend", "", "rate limit backend: file, memory or redis")
	ratelimitCmd.PersistentFlags().StringVar(&rlStateFile, "state-file", "", "rate limit state file for the file backend")
}

// openLimiter opens the configured store and wraps it in a limiter with the
// configured quota
func openLimiter(cmd *cobra.Command) (*ratelimit.Limiter, func() error, error) {
	cfg, err := loadConfig(map[string]interface{}{
		"backend":    rlBackend,
		"state-file": rlStateFile,
	})
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := openStore(cmd.Context(), cfg.RateLimit)
	if err != nil {
		return nil, nil, err
	}
	limiter := ratelimit.New(store,
		ratelimit.WithMaxAttempts(cfg.RateLimit.MaxAttempts),
		ratelimit.WithWindow(cfg.RateLimit.Window),
	)
	return limiter, closeStore, nil
}

func runRatelimitList(cmd *cobra.Command, args []string) error {
	limiter, closeStore, err := openLimiter(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	entries, err := limiter.Snapshot(cmd.Context())
	if err != nil {
		return err
	}
	writeEntries(cmd.OutOrStdout(), entries, limiter.MaxAttempts(), limiter.Window(), time.Now())
	return nil
}

// writeEntries renders one row per client, sorted by client id
func writeEntries(w io.Writer, entries map[string]ratelimit.Entry, maxAttempts int, window time.Duration, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(w, ui.Dim("No clients recorded"))
		return
	}

	clients := make([]string, 0, len(entries))
	for id := range entries {
		clients = append(clients, id)
	}
	sort.Strings(clients)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CLIENT\tUSAGE\tRESETS IN")
	for _, id := range clients {
		entry := entries[id]
		remaining := entry.WindowStart.Add(window).Sub(now)
		used := entry.Attempts
		if remaining <= 0 {
			used = 0
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", id, ui.QuotaBar(used, maxAttempts), ui.FormatRemaining(remaining))
	}
	tw.Flush()
}

func runRatelimitReset(cmd *cobra.Command, args []string) error {
	limiter, closeStore, err := openLimiter(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := limiter.Reset(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to reset %s: %w", args[0], err)
	}
	ui.PrintSuccess(cmd.OutOrStdout(), "Reset rate limit for "+args[0])
	return nil
}
