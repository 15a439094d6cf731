package cmd

import (
	"fmt"
	"strings"

	"github.com/clarityhire/clarity/internal/clarity"
	"github.com/clarityhire/clarity/internal/errs"
	"github.com/clarityhire/clarity/internal/poller"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [resume-id]",
	Short: "Show the analysis status of the latest or a given resume",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var id string
		if len(args) == 1 {
			id = args[0]
		}
		status(cmd, id)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolP("follow", "f", false, "keep polling the latest resume until the analysis finishes")
}

func status(cmd *cobra.Command, id string) {
	e := setup()
	defer e.close()

	ctx, cancel := e.commandContext()
	defer cancel()

	out := cmd.OutOrStdout()

	if id != "" {
		r, err := e.client.GetResume(ctx, id)
		if err != nil {
			e.fatal(ctx, "getting document", err)
		}
		if err := printResume(out, r); err != nil {
			e.fatal(ctx, "printing document", err)
		}
		return
	}

	p := poller.New(e.client, e.session, e.logger, poller.WithInterval(e.config.Poll.Interval))
	defer p.Close()

	updates, unsubscribe := p.Subscribe()
	defer unsubscribe()

	outcome, err := p.QueryLatest(ctx)
	switch outcome {
	case poller.OutcomeSkipped:
		e.fatal(ctx, "getting latest document", errs.Auth("not logged in", nil))
	case poller.OutcomeFailed:
		e.fatal(ctx, "getting latest document", err)
	case poller.OutcomeNotFound:
		fmt.Fprintln(out, "No document submitted yet. Run `clarity upload <file>`.")
		return
	}

	r := p.Record()
	if r == nil {
		fmt.Fprintln(out, "No document submitted yet. Run `clarity upload <file>`.")
		return
	}
	if err := printResume(out, r); err != nil {
		e.fatal(ctx, "printing document", err)
	}

	follow, _ := cmd.Flags().GetBool("follow")
	if !follow || !r.State().Active() {
		return
	}

	last := r.State()
	for {
		select {
		case <-ctx.Done():
			e.fatal(ctx, "following document", ctx.Err())
		case update, ok := <-updates:
			if !ok {
				return
			}
			state := update.State()
			if state == last {
				continue
			}
			last = state

			if state == clarity.StatusNone {
				fmt.Fprintln(out, "Document is gone from the server.")
				return
			}
			if !state.Terminal() {
				fmt.Fprintf(out, "Status:   %s\n", strings.ToUpper(string(state)))
				continue
			}
			fmt.Fprintln(out)
			if err := printResume(out, &update); err != nil {
				e.fatal(ctx, "printing document", err)
			}
			return
		}
	}
}
