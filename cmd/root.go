package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "event-faces",
	Short: "Find and group people in event photo galleries",
	Long: `Event Faces compares a selfie against every photo of an event to find
the photos a guest appears in, and groups an event's photos by the people
in them. Face detection and comparison run on Amazon Rekognition or on a
self-hosted InsightFace embedding server.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
