package cmd

import (
	"os"

	"github.com/clarityhire/clarity/internal/clarity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Create a job posting",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		post(cmd)
	},
}

func init() {
	rootCmd.AddCommand(postCmd)

	postCmd.Flags().StringP("title", "t", "", "job title")
	postCmd.Flags().StringP("company", "c", "", "company name")
	postCmd.Flags().StringP("location", "l", clarity.DefaultLocation, "job location")
	postCmd.Flags().String("description", "", "job description")
	postCmd.Flags().String("description-file", "", "read the job description from a file")
}

func post(cmd *cobra.Command) {
	e := setup()
	defer e.close()

	ctx, cancel := e.commandContext()
	defer cancel()

	in := clarity.NewJob{}
	in.Title, _ = cmd.Flags().GetString("title")
	in.Company, _ = cmd.Flags().GetString("company")
	in.Location, _ = cmd.Flags().GetString("location")
	in.Description, _ = cmd.Flags().GetString("description")

	if file, _ := cmd.Flags().GetString("description-file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			e.fatal(ctx, "reading description", err)
		}
		in.Description = string(data)
	}

	job, err := e.client.CreateJob(ctx, in)
	if err != nil {
		e.fatal(ctx, "creating job", err)
	}

	e.logger.Info("job created", zap.String("job_id", job.ID))
	printJob(cmd.OutOrStdout(), job)
}
