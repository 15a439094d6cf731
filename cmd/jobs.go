package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/clarityhire/clarity/internal/board"
	"github.com/clarityhire/clarity/internal/clarity"
	"github.com/clarityhire/clarity/internal/filtering"
	"github.com/clarityhire/clarity/internal/poller"
	"github.com/clarityhire/clarity/internal/utils"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptRefresh         = "Refresh"
	PromptReportByCompany = "Report by company"
	PromptShowJob         = "Show a job"
	PromptBoardToFile     = "Dump board to file"
	PromptExit            = "Exit"
	PromptBack            = "back"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptRefresh, PromptReportByCompany, PromptShowJob, PromptBoardToFile, PromptExit},
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Browse job postings banded by how well they fit your latest resume",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		jobs(cmd)
	},
}

var jobShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show a job posting with its analyzed requirements",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := setup()
		defer e.close()

		ctx, cancel := e.commandContext()
		defer cancel()

		job, err := e.client.GetJob(ctx, args[0])
		if err != nil {
			e.fatal(ctx, "getting job", err)
		}
		printJob(cmd.OutOrStdout(), job)
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobShowCmd)

	jobsCmd.Flags().String("min-tier", "", "hide postings banded below this tier: high, medium or low")
	jobsCmd.Flags().StringSlice("exclude-company", nil, "hide postings by these companies")
	jobsCmd.Flags().String("skill", "", "only show postings requiring this skill")
	jobsCmd.Flags().StringP("output", "o", string(board.FormatTable), "output format: table, json or yaml")
	jobsCmd.Flags().Duration("watch", 0, "refresh the board at this interval until interrupted")
	jobsCmd.Flags().BoolP("interactive", "i", false, "browse the board with an interactive menu")

	viper.BindPFlag("board.min-tier", jobsCmd.Flags().Lookup("min-tier"))
	viper.BindPFlag("board.exclude-companies", jobsCmd.Flags().Lookup("exclude-company"))
	viper.BindPFlag("board.skill", jobsCmd.Flags().Lookup("skill"))
	viper.BindPFlag("output", jobsCmd.Flags().Lookup("output"))
}

func jobs(cmd *cobra.Command) {
	e := setup()
	defer e.close()

	ctx, cancel := e.commandContext()
	defer cancel()

	format, err := board.ParseFormat(viper.GetString("output"))
	if err != nil {
		e.fatal(ctx, "parsing flags", err)
	}

	agg := board.New(e.client, e.logger)

	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		if err := browse(ctx, cmd.OutOrStdout(), e, agg); err != nil && !errors.Is(err, errExit) {
			e.fatal(ctx, "browsing jobs", err)
		}
		return
	}

	if every, _ := cmd.Flags().GetDuration("watch"); every > 0 {
		watchBoard(ctx, cmd.OutOrStdout(), e, agg, format, every)
		return
	}

	if _, err := renderBoard(ctx, cmd.OutOrStdout(), e, agg, format); err != nil {
		e.fatal(ctx, "building job board", err)
	}
}

// showBoard prints a freshly built board using the configured filters.
func showBoard(ctx context.Context, cmd *cobra.Command, e *env) {
	format, err := board.ParseFormat(viper.GetString("output"))
	if err != nil {
		format = board.FormatTable
	}
	if _, err := renderBoard(ctx, cmd.OutOrStdout(), e, board.New(e.client, e.logger), format); err != nil {
		e.fatal(ctx, "building job board", err)
	}
}

func filterConfig(cfg *BoardConfig) *filtering.Config {
	return &filtering.Config{
		MinTier:          board.Tier(cfg.MinTier),
		ExcludeCompanies: cfg.ExcludeCompanies,
		Skill:            cfg.Skill,
	}
}

// refreshBoard rebuilds the board and applies the filters. A refresh that
// lost to a newer one falls back to the board that won.
func refreshBoard(ctx context.Context, e *env, agg *board.Aggregator) (*board.Board, error) {
	b, err := agg.Refresh(ctx)
	if errors.Is(err, board.ErrStale) {
		b, err = agg.Current(), nil
	}
	if err != nil {
		return nil, err
	}

	filtered, err := filtering.Run(ctx, filterConfig(e.config.Board), filtering.Deps{Logger: e.logger}, filtering.Default(), b)
	if err != nil {
		return nil, fmt.Errorf("filtering board: %w", err)
	}

	counts := filtered.Count()
	e.logger.Info("job board",
		zap.Int("jobs", b.Len()),
		zap.Int("shown", filtered.Len()),
		zap.Int("high", counts[board.TierHigh]),
		zap.Int("medium", counts[board.TierMedium]),
		zap.Int("low", counts[board.TierLow]),
		zap.Int("pending", counts[board.TierPending]),
	)

	return filtered, nil
}

func renderBoard(ctx context.Context, out io.Writer, e *env, agg *board.Aggregator, format board.Format) (*board.Board, error) {
	b, err := refreshBoard(ctx, e, agg)
	if err != nil {
		return nil, err
	}
	if err := board.Render(out, b, format); err != nil {
		return nil, fmt.Errorf("rendering board: %w", err)
	}
	return b, nil
}

// watchBoard re-renders the board every interval and as soon as a document
// being analyzed becomes PARSED. Failed refreshes are logged and retried on
// the next cycle.
func watchBoard(ctx context.Context, out io.Writer, e *env, agg *board.Aggregator, format board.Format, every time.Duration) {
	p := poller.New(e.client, e.session, e.logger, poller.WithInterval(e.config.Poll.Interval))
	defer p.Close()

	updates, unsubscribe := p.Subscribe()
	defer unsubscribe()

	for {
		fmt.Fprintf(out, "--- %s ---\n", time.Now().Format(time.TimeOnly))
		if _, err := renderBoard(ctx, out, e, agg, format); err != nil {
			if ctx.Err() != nil {
				return
			}
			e.logger.Warn("refreshing job board failed", zap.Error(err))
		}

		if !p.Armed() {
			if _, err := p.QueryLatest(ctx); err != nil {
				e.logger.Debug("checking latest document", zap.Error(err))
			}
		}

		waitCtx, stopWait := context.WithCancel(ctx)
		tick := make(chan error, 1)
		go func() { tick <- utils.WaitFor(waitCtx, every) }()

		for waiting := true; waiting; {
			select {
			case <-ctx.Done():
				stopWait()
				return
			case <-tick:
				waiting = false
			case r, ok := <-updates:
				if !ok {
					updates = nil
					continue
				}
				if r.State() == clarity.StatusParsed && r.ID != "" {
					e.logger.Info("document parsed, refreshing board", zap.String("resume_id", r.ID))
					waiting = false
				}
			}
		}
		stopWait()
	}
}

func browse(ctx context.Context, out io.Writer, e *env, agg *board.Aggregator) error {
	b, err := renderBoard(ctx, out, e, agg, board.FormatTable)
	if err != nil {
		return err
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			return err
		}

		if b, err = handleAction(ctx, out, action, e, agg, b); err != nil {
			return err
		}
	}
}

func handleAction(ctx context.Context, out io.Writer, action string, e *env, agg *board.Aggregator, b *board.Board) (*board.Board, error) {
	switch action {
	case PromptRefresh:
		next, err := renderBoard(ctx, out, e, agg, board.FormatTable)
		if err != nil {
			if ctx.Err() != nil {
				return b, ctx.Err()
			}
			e.logger.Warn("refreshing job board failed", zap.Error(err))
			return b, nil
		}
		return next, nil
	case PromptReportByCompany:
		pretty, _ := json.MarshalIndent(b.ReportByCompany(), "", "  ")
		fmt.Fprintln(out, string(pretty))
		return b, nil
	case PromptShowJob:
		return b, showJob(ctx, out, e, b)
	case PromptBoardToFile:
		filename, err := b.DumpToTmpFile()
		if err != nil {
			return b, fmt.Errorf("dump board to file: %w", err)
		}
		e.logger.Info("dumping board to file", zap.String("filename", filename))
		return b, nil
	case PromptExit:
		return b, errExit
	default:
		return b, fmt.Errorf("invalid action: %s", action)
	}
}

func showJob(ctx context.Context, out io.Writer, e *env, b *board.Board) error {
	items := make([]string, 0, b.Len()+1)
	for _, entry := range b.Entries {
		score := "-"
		if entry.Scored {
			score = fmt.Sprintf("%d", entry.Score)
		}
		items = append(items, fmt.Sprintf("%s %s / %s / %s", entry.Job.ID, entry.Job.Title, entry.Job.Company, score))
	}

	jobPrompt := promptui.Select{
		Label: "Choose a job and press ENTER",
		Items: append(items, PromptBack),
		Size:  10,
	}

	_, selected, err := jobPrompt.Run()
	if err != nil {
		return err
	}
	if selected == PromptBack {
		return nil
	}

	id := strings.Split(selected, " ")[0]
	job, err := e.client.GetJob(ctx, id)
	if err != nil {
		return err
	}
	printJob(out, job)
	return nil
}
