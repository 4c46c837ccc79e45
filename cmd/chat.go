package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/cv-assistant/internal/ai"
	"github.com/spigell/cv-assistant/internal/cv"
	"github.com/spigell/cv-assistant/internal/editor"
	"github.com/spigell/cv-assistant/internal/input"
	"github.com/spigell/cv-assistant/internal/reconcile"
)

const (
	promptNewCV = "+ Nuevo currículum"
	chatLabel   = "Tú"
)

var chatCmd = &cobra.Command{
	Use:   "chat [cv-id]",
	Short: "Edit a CV by talking to the assistant",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().Bool("stdin", false, "read messages line by line from stdin instead of an interactive prompt")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApplication(ctx, appOptions{withAI: true})
	if err != nil {
		return err
	}
	defer a.Close()

	id := ""
	if len(args) > 0 {
		id = args[0]
	}

	doc, err := chooseCV(ctx, a.editor, id)
	if err != nil {
		return err
	}

	a.logger.Info("chat started", zap.String("cv_id", doc.ID), zap.String("title", doc.Title))
	fmt.Printf("Editando «%s». Escribe tu mensaje (Ctrl+C para salir).\n", bold(doc.Title))

	var source input.Source
	if stdin, _ := cmd.Flags().GetBool("stdin"); stdin || !isInteractive() {
		source = input.NewLines(os.Stdin)
	} else {
		source = input.NewPrompt(chatLabel)
	}

	transcripts, err := source.Start(ctx)
	if err != nil {
		return err
	}
	defer source.Stop()

	for transcript := range transcripts {
		if !transcript.Final {
			continue
		}

		reply, outcome, err := a.editor.Chat(ctx, doc.ID, transcript.Text)
		if err != nil {
			a.logger.Error("applying assistant action", zap.Error(err))
			fmt.Println("No se pudo guardar el cambio. Inténtalo de nuevo.")
			continue
		}

		printReply(reply, outcome)
	}

	if failing, ok := source.(interface{ Err() error }); ok && failing.Err() != nil {
		return fmt.Errorf("reading input: %w", failing.Err())
	}

	return nil
}

// chooseCV resolves the CV to edit: the given id, a selection among the
// owner's CVs, or a fresh one.
func chooseCV(ctx context.Context, e *editor.Editor, id string) (cv.CV, error) {
	if id != "" {
		return e.Snapshot(id)
	}

	cvs := e.List()
	if len(cvs) == 0 {
		return e.Create(ctx, nil)
	}
	if len(cvs) == 1 {
		return cvs[0], nil
	}

	items := make([]string, 0, len(cvs)+1)
	for _, doc := range cvs {
		items = append(items, cvLabel(doc))
	}
	items = append(items, promptNewCV)

	selectPrompt := promptui.Select{
		Label: "Elige un currículum",
		Items: items,
	}

	idx, _, err := selectPrompt.Run()
	if err != nil {
		return cv.CV{}, err
	}

	if idx == len(cvs) {
		return e.Create(ctx, nil)
	}
	return cvs[idx], nil
}

func printReply(reply ai.Reply, outcome reconcile.Outcome) {
	fmt.Printf("\n%s %s\n", cyan("Asistente:"), reply.Message)

	if !reply.HasAction() {
		fmt.Println()
		return
	}

	if outcome.Applied {
		applied := fmt.Sprintf("  ✓ %s en %s", reply.Action.Type, reply.Action.Section)
		if outcome.ItemID != "" {
			applied += fmt.Sprintf(" (%s)", outcome.ItemID)
		}
		fmt.Printf("%s\n\n", green(applied))
		return
	}

	fmt.Printf("%s\n\n", gray("  · cambio no aplicado: "+outcome.Reason))
}

func cvLabel(doc cv.CV) string {
	return fmt.Sprintf("%s  %s  %s", doc.ID, doc.Title, doc.LastModified.Local().Format("2006-01-02 15:04"))
}

var errCancelled = errors.New("cancelled")
