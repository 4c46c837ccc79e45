package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize <cv-id>",
	Short: "Rewrite the profile summary for a target role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApplication(ctx, appOptions{withAI: true})
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.editor.Snapshot(args[0])
		if err != nil {
			return err
		}

		summary := doc.Personal.ProfileSummary
		if strings.TrimSpace(summary) == "" {
			return fmt.Errorf("cv %s has no profile summary to optimize", doc.ID)
		}

		role, _ := cmd.Flags().GetString("role")
		optimized := a.assistant.OptimizeSummary(ctx, summary, role)
		fmt.Println(optimized)

		if apply, _ := cmd.Flags().GetBool("apply"); !apply || optimized == summary {
			return nil
		}

		_, err = a.editor.SetPersonal(ctx, doc.ID, map[string]any{"profileSummary": optimized})
		return err
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <cv-id> [job description]",
	Short: "Compare a job description with the CV and suggest changes",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := jobDescription(cmd, args[1:])
		if err != nil {
			return err
		}

		ctx := context.Background()
		a, err := newApplication(ctx, appOptions{withAI: true})
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.editor.Snapshot(args[0])
		if err != nil {
			return err
		}

		fmt.Println(a.assistant.AnalyzeJob(ctx, job, doc))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(optimizeCmd, analyzeCmd)

	optimizeCmd.Flags().String("role", "", "target role, e.g. \"Ingeniero de Software\"")
	optimizeCmd.Flags().Bool("apply", false, "store the optimized summary in the CV")

	analyzeCmd.Flags().StringP("file", "f", "", "read the job description from a file")
}

func jobDescription(cmd *cobra.Command, args []string) (string, error) {
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading job description: %w", err)
		}
		return string(data), nil
	}

	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("a job description is required, pass it as an argument or with --file")
	}
	return args[0], nil
}
