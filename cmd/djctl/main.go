// djctl is the operator CLI: create and renew events, submit requests,
// inspect the queue and apply privileged vote adjustments.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Manuele79/dj-requests/internal/apiclient"
	"github.com/Manuele79/dj-requests/internal/localstate"
	"github.com/Manuele79/dj-requests/internal/request"
)

var (
	flagAPI      string
	flagSecret   string
	flagStateDir string

	flagPassword   string
	flagTitle      string
	flagDedication string
	flagDelta      int
)

var rootCmd = &cobra.Command{
	Use:          "djctl",
	Short:        "Operator tool for the party song-request queue",
	SilenceUsage: true,
}

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Manage events",
}

var eventCreateCmd = &cobra.Command{
	Use:   "create <code>",
	Short: "Create an event, or renew its 12h window if it already exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ev, err := client().CreateEvent(cmdCtx(cmd), args[0], flagPassword)
		if err != nil {
			return err
		}
		fmt.Printf("event %s open until %s\n", ev.EventCode, ev.ExpiresAt.Local().Format(time.RFC1123))
		return nil
	},
}

var eventCheckCmd = &cobra.Command{
	Use:   "check <code>",
	Short: "Check whether an event exists and is still open",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ev, err := client().GetEvent(cmdCtx(cmd), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("event %s open, expires %s\n", ev.EventCode, ev.ExpiresAt.Local().Format(time.RFC1123))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list <code>",
	Short: "Show the ranked queue for an event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := client().ListRequests(cmdCtx(cmd), args[0])
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("queue is empty")
			return nil
		}
		for i, it := range items {
			fmt.Printf("%2d. [%3d voti] %-40s %s  %s\n", i+1, it.Votes, truncate(it.Title, 40), it.Platform, it.ID)
			if it.Dedication != "" {
				fmt.Printf("      dedica: %s\n", it.Dedication)
			}
		}
		return nil
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit <code> <url>",
	Short: "Submit a song request and remember it in the local history",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, rawURL := args[0], args[1]
		res, err := client().Submit(cmdCtx(cmd), request.SubmitInput{
			EventCode:  code,
			URL:        rawURL,
			Title:      flagTitle,
			Dedication: flagDedication,
		})
		if err != nil {
			return err
		}

		if st, err := stateStore(); err == nil {
			_ = st.AppendHistory(code, localstate.HistoryEntry{
				Title: res.Request.Title,
				URL:   rawURL,
				At:    time.Now(),
			})
		}

		if res.Merged {
			fmt.Printf("merged into %q, now %d voti\n", res.Request.Title, res.Request.Votes)
		} else {
			fmt.Printf("added %q\n", res.Request.Title)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <code>",
	Short: "Show recent submissions made from this machine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := stateStore()
		if err != nil {
			return err
		}
		entries, err := st.History(args[0])
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("no local history")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %-40s %s\n", e.At.Local().Format("02 Jan 15:04"), truncate(e.Title, 40), e.URL)
		}
		return nil
	},
}

var voteCmd = &cobra.Command{
	Use:   "vote <request-id>",
	Short: "Adjust a request's votes (privileged; --delta may be negative)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		it, err := client().AdjustVotes(cmdCtx(cmd), args[0], flagDelta)
		if err != nil {
			return err
		}
		fmt.Printf("%q now has %d voti\n", it.Title, it.Votes)
		return nil
	},
}

func init() {
	_ = godotenv.Load()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagAPI, "api", getenv("API_BASE", "http://localhost:3001"), "queue API base URL")
	pf.StringVar(&flagSecret, "secret", os.Getenv("API_SECRET"), "shared secret for privileged calls")
	pf.StringVar(&flagStateDir, "state-dir", os.Getenv("STATE_DIR"), "directory for local history (defaults to the user config dir)")

	eventCreateCmd.Flags().StringVar(&flagPassword, "password", os.Getenv("CREATE_EVENT_PASSWORD"), "event creation password")
	submitCmd.Flags().StringVar(&flagTitle, "title", "", "title override (otherwise resolved server-side)")
	submitCmd.Flags().StringVar(&flagDedication, "dedication", "", "dedication shown with the track")
	voteCmd.Flags().IntVar(&flagDelta, "delta", 1, "vote delta to apply")

	eventCmd.AddCommand(eventCreateCmd, eventCheckCmd)
	rootCmd.AddCommand(eventCmd, listCmd, submitCmd, historyCmd, voteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("djctl: %v", err)
	}
}

func client() *apiclient.Client {
	return apiclient.New(flagAPI, flagSecret)
}

func stateStore() (*localstate.Store, error) {
	if flagStateDir != "" {
		return localstate.New(flagStateDir)
	}
	return localstate.Default()
}

// cmdCtx returns the command context; the API client carries its own
// request timeout.
func cmdCtx(cmd *cobra.Command) context.Context {
	return cmd.Context()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
