package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/placement-assistant/internal/client"
	"github.com/spigell/placement-assistant/internal/models"
)

const (
	PromptReportByCompanies = "Report by companies"
	PromptDumpToFile        = "Dump recommendations to file"
	PromptExit              = "Exit"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "List the best matching jobs for a candidate",
	Run: func(cmd *cobra.Command, _ []string) {
		runRecommend(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringP("user", "u", "", "candidate profile id")
	recommendCmd.Flags().Float64("min-score", 0, "hide jobs scoring below this percentage")
	recommendCmd.Flags().IntP("limit", "n", 10, "maximum number of jobs")
	recommendCmd.Flags().BoolP("qualifying", "q", false, "only jobs whose threshold the candidate meets")
	recommendCmd.Flags().String("company", "", "only jobs of this company")
	recommendCmd.Flags().StringSlice("exclude-company", nil, "company ids to skip")
	recommendCmd.Flags().BoolP("interactive", "i", false, "ask what to do with the result")
	recommendCmd.MarkFlagRequired("user")
}

func runRecommend(cmd *cobra.Command) {
	logger, api := newCLI()
	defer logger.Sync()

	flags := cmd.Flags()
	userID, _ := flags.GetString("user")
	opts := client.RecommendOptions{}
	opts.MinScore, _ = flags.GetFloat64("min-score")
	opts.Limit, _ = flags.GetInt("limit")
	opts.OnlyQualifying, _ = flags.GetBool("qualifying")
	opts.CompanyID, _ = flags.GetString("company")
	opts.ExcludeCompanies, _ = flags.GetStringSlice("exclude-company")

	recs, err := api.Recommend(userID, opts)
	if err != nil {
		logger.Fatal("getting recommendations", zap.Error(err))
	}

	if recs.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no matching jobs"))
		return
	}

	for _, rec := range recs.Items {
		logger.Info("recommended job",
			zap.String("job_id", rec.JobID),
			zap.String("job_title", rec.JobTitle),
			zap.String("company", rec.CompanyName),
			zap.Float64("score", rec.Score),
			zap.Bool("meets_threshold", rec.MeetsThreshold),
		)
	}

	if interactive, _ := flags.GetBool("interactive"); !interactive {
		return
	}

	if err := promptRecommendations(recs, logger); err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}
}

func promptRecommendations(recs *models.Recommendations, logger *zap.Logger) error {
	prompt := promptui.Select{
		Label: "What next?",
		Items: []string{PromptReportByCompanies, PromptDumpToFile, PromptExit},
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			return err
		}

		switch action {
		case PromptReportByCompanies:
			pretty, _ := json.MarshalIndent(recs.ReportByCompany(), "", "  ")
			logger.Info(string(pretty), zap.Int("recommendations count", recs.Len()))
		case PromptDumpToFile:
			filename, err := recs.DumpToTmpFile()
			if err != nil {
				return fmt.Errorf("dump results to file: %w", err)
			}
			logger.Info("dumping result to file", zap.String("filename", filename))
		case PromptExit:
			return nil
		default:
			return fmt.Errorf("invalid action: %s", action)
		}
	}
}
