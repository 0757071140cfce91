package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Upload a plain text resume for a candidate",
	Run: func(cmd *cobra.Command, _ []string) {
		runResume(cmd)
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)

	resumeCmd.Flags().StringP("user", "u", "", "candidate profile id")
	resumeCmd.Flags().StringP("file", "f", "", "resume file (.txt or .md)")
	resumeCmd.MarkFlagRequired("user")
	resumeCmd.MarkFlagRequired("file")
}

func runResume(cmd *cobra.Command) {
	logger, api := newCLI()
	defer logger.Sync()

	userID, _ := cmd.Flags().GetString("user")
	path, _ := cmd.Flags().GetString("file")

	content, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal("reading resume", zap.Error(err), zap.String("file", path))
	}

	receipt, err := api.UploadResume(userID, filepath.Base(path), string(content))
	if err != nil {
		logger.Fatal("uploading resume", zap.Error(err))
	}

	logger.Info(receipt.Message,
		zap.String("user_id", receipt.Details.UserID),
		zap.Int("text_length", receipt.Details.TextLength),
		zap.Int("embedding_dimensions", receipt.Details.EmbeddingDimensions),
		zap.Strings("skills", receipt.Details.Skills),
	)
}
