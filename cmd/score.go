package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spigell/placement-assistant/internal/embedding"
	"github.com/spigell/placement-assistant/internal/match"
	"github.com/spigell/placement-assistant/internal/placement"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score two embedding files offline",
	Long: `Score two embedding files offline. Each file holds a JSON array of numbers,
the pgvector text form or an object with an "embedding" array.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runScore(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().String("candidate", "", "candidate embedding file")
	scoreCmd.Flags().String("job", "", "job embedding file")
	scoreCmd.Flags().IntP("threshold", "t", 50, "minimum score required by the job, 0-100")
	scoreCmd.Flags().String("title", "target", "job title used in the analysis text")
	scoreCmd.MarkFlagRequired("candidate")
	scoreCmd.MarkFlagRequired("job")
}

type scoreReport struct {
	match.Result
	MinScore int    `json:"min_score_required"`
	Analysis string `json:"analysis"`
	Advice   string `json:"advice"`
}

func runScore(cmd *cobra.Command) error {
	candidatePath, _ := cmd.Flags().GetString("candidate")
	jobPath, _ := cmd.Flags().GetString("job")
	threshold, _ := cmd.Flags().GetInt("threshold")
	title, _ := cmd.Flags().GetString("title")

	report, err := scoreFiles(candidatePath, jobPath, title, threshold)
	if err != nil {
		return err
	}

	pretty, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(pretty))

	return nil
}

func scoreFiles(candidatePath, jobPath, title string, threshold int) (*scoreReport, error) {
	candidate, err := readEmbeddingFile(candidatePath)
	if err != nil {
		return nil, fmt.Errorf("candidate: %w", err)
	}

	job, err := readEmbeddingFile(jobPath)
	if err != nil {
		return nil, fmt.Errorf("job: %w", err)
	}

	result, err := match.Compute(candidate, job, threshold)
	if err != nil {
		return nil, err
	}

	return &scoreReport{
		Result:   *result,
		MinScore: threshold,
		Analysis: placement.Analysis(result.Score, title),
		Advice:   placement.Advice(result.MeetsThreshold, threshold),
	}, nil
}

func readEmbeddingFile(path string) (match.Embedding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		Embedding json.RawMessage `json:"embedding"`
	}
	if json.Unmarshal(data, &wrapped) == nil && len(wrapped.Embedding) > 0 {
		data = wrapped.Embedding
	}

	return embedding.Parse(data)
}
