package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/placement-assistant/internal/client"
	"github.com/spigell/placement-assistant/internal/logger"
)

const PromptCancel = "cancel"

var errCanceled = errors.New("canceled from prompt")

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score a candidate against a job on a running placement server",
	Run: func(cmd *cobra.Command, _ []string) {
		runMatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("user", "u", "", "candidate profile id")
	matchCmd.Flags().String("job", "", "job id. Without it the job is picked from a list")
	matchCmd.MarkFlagRequired("user")
}

func newCLI() (*zap.Logger, *client.Client) {
	logger, err := logger.New("", viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	return logger, client.New(context.Background(), logger, viper.GetString("api-url"))
}

func runMatch(cmd *cobra.Command) {
	logger, api := newCLI()
	defer logger.Sync()

	userID, _ := cmd.Flags().GetString("user")
	jobID, _ := cmd.Flags().GetString("job")

	status, err := api.MatchStatus(userID)
	if err != nil {
		logger.Fatal("getting match status", zap.Error(err))
	}
	if !status.ReadyForMatching {
		logger.Info("exiting", zap.String("reason", status.Message), zap.String("user_id", userID))
		return
	}

	if jobID == "" {
		jobID, err = pickJob(api, logger)
		if errors.Is(err, errCanceled) {
			logger.Info("exiting", zap.String("reason", "got cancel from prompt"))
			return
		}
		if err != nil {
			logger.Fatal("picking a job", zap.Error(err))
		}
	}

	result, err := api.Match(userID, jobID)
	if err != nil {
		logger.Fatal("matching", zap.Error(err))
	}

	pretty, _ := json.MarshalIndent(result, "", "  ")
	logger.Info(string(pretty),
		zap.Float64("match_score", result.MatchScore),
		zap.Bool("meets_threshold", result.Details.MeetsThreshold),
	)
}

func pickJob(api *client.Client, logger *zap.Logger) (string, error) {
	jobs, err := api.ListJobs("")
	if err != nil {
		return "", err
	}

	logger.Info("getting jobs", zap.Int("count", jobs.Len()))

	if jobs.Len() == 0 {
		return "", errors.New("no jobs on the server")
	}

	jobPrompt := promptui.Select{
		Label: "Choose a job and press ENTER",
		Items: append(jobs.Titles(), PromptCancel),
		Size:  10,
	}

	idx, selected, err := jobPrompt.Run()
	if err != nil {
		return "", err
	}
	if selected == PromptCancel {
		return "", errCanceled
	}

	if idx < 0 || idx >= jobs.Len() {
		return "", fmt.Errorf("invalid job selection %q", selected)
	}

	return jobs.Items[idx].ID, nil
}
