package cmd

import (
	"fmt"

	"github.com/clarityhire/clarity/internal/clarity"
	"github.com/clarityhire/clarity/internal/poller"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: fmt.Sprintf("Submit a resume for analysis (%s, up to %s)", clarity.DocumentTypeHint, clarity.DocumentSizeHint),
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		upload(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().BoolP("wait", "w", false, "wait until the analysis finishes")
	uploadCmd.Flags().Bool("jobs", false, "show the job board once the analysis finishes. Implies --wait.")
}

func upload(cmd *cobra.Command, path string) {
	e := setup()
	defer e.close()

	ctx, cancel := e.commandContext()
	defer cancel()

	doc, err := clarity.OpenDocument(path)
	if err != nil {
		e.fatal(ctx, "opening document", err)
	}
	if !doc.IsPDF() {
		e.logger.Warn("document does not look like a PDF, the server may reject it",
			zap.String("content_type", doc.ContentType()),
		)
	}

	p := poller.New(e.client, e.session, e.logger, poller.WithInterval(e.config.Poll.Interval))
	defer p.Close()

	r, err := p.Submit(ctx, doc)
	if err != nil {
		e.fatal(ctx, "submitting document", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Submitted %s as %s\n", doc.Name, r.ID)

	showJobs, _ := cmd.Flags().GetBool("jobs")
	wait, _ := cmd.Flags().GetBool("wait")
	if !wait && !showJobs {
		fmt.Fprintln(out, "Run `clarity status --follow` to track the analysis.")
		return
	}

	final, err := p.Wait(ctx)
	if err != nil {
		e.fatal(ctx, "waiting for the analysis", err)
	}
	if err := printResume(out, final); err != nil {
		e.fatal(ctx, "printing document", err)
	}

	if showJobs && final.State() == clarity.StatusParsed {
		fmt.Fprintln(out)
		showBoard(ctx, cmd, e)
	}
}
