package cli

import (
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"feedmail/internal/feed"
	"feedmail/internal/hooks"
	"feedmail/internal/mail"
	"feedmail/internal/runner"
)

func runCmd(a *app) *cobra.Command {
	var noSend bool

	cmd := &cobra.Command{
		Use:   "run [feed...]",
		Short: "Fetch feeds and mail new entries",
		Long: `Fetch every active feed, mail entries that have not been seen before
and record them in the database. Naming feeds limits the run to those
feeds. With --no-send entries are recorded without mailing anything,
which initializes a fresh feed without a flood of old posts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.loadDatabase()
			if err != nil {
				return err
			}

			fetcher := feed.NewFetcher(a.opts.Run.Timeout)
			if a.opts.Run.UserAgent != "" {
				fetcher.SetUserAgent(a.opts.Run.UserAgent)
			}
			mailer := mail.NewMailer(a.opts.Mail)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			r := runner.New(a.store, fetcher, mailer, hooks.DefaultRegistry(), a.opts)
			report, runErr := r.Run(ctx, db, runner.Params{NoSend: noSend, Feeds: args})
			if report != nil {
				cmd.Printf("fetched %d feeds: %d new, %d changed, %d sent\n",
					report.Fetched, report.New, report.Changed, report.Sent)
				if len(report.Failed) > 0 {
					cmd.Printf("failed: %s\n", strings.Join(report.Failed, ", "))
				}
			}
			return runErr
		},
	}
	cmd.Flags().BoolVarP(&noSend, "no-send", "n", false, "record entries without mailing them")
	return cmd
}
