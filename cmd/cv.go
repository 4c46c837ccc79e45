package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/spigell/cv-assistant/internal/cv"
)

var cvCmd = &cobra.Command{
	Use:   "cv",
	Short: "Manage stored CVs",
}

var cvListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the owner's CVs",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		a, err := newApplication(context.Background(), appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		cvs := a.editor.List()
		if len(cvs) == 0 {
			fmt.Println("No hay currículums todavía.")
			return nil
		}
		for _, doc := range cvs {
			fmt.Println(cvLabel(doc))
		}
		return nil
	},
}

var cvShowCmd = &cobra.Command{
	Use:   "show <cv-id>",
	Short: "Print a CV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApplication(context.Background(), appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.editor.Snapshot(args[0])
		if err != nil {
			return err
		}

		if raw, _ := cmd.Flags().GetBool("raw"); raw {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		}

		renderCV(os.Stdout, doc)
		return nil
	},
}

var cvNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create an empty CV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApplication(context.Background(), appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		var partial *cv.Partial
		if title, _ := cmd.Flags().GetString("title"); strings.TrimSpace(title) != "" {
			partial = &cv.Partial{Title: title}
		}

		doc, err := a.editor.Create(context.Background(), partial)
		if err != nil {
			return err
		}

		fmt.Println(doc.ID)
		return nil
	},
}

var cvDeleteCmd = &cobra.Command{
	Use:   "delete <cv-id>",
	Short: "Delete a CV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApplication(context.Background(), appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.editor.Snapshot(args[0])
		if err != nil {
			return err
		}

		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			confirm := promptui.Prompt{
				Label:     fmt.Sprintf("¿Eliminar «%s»? Esta acción no se puede deshacer", doc.Title),
				IsConfirm: true,
			}
			if _, err := confirm.Run(); err != nil {
				return errCancelled
			}
		}

		return a.editor.Delete(context.Background(), doc.ID)
	},
}

func init() {
	rootCmd.AddCommand(cvCmd)
	cvCmd.AddCommand(cvListCmd, cvShowCmd, cvNewCmd, cvDeleteCmd)

	cvShowCmd.Flags().Bool("raw", false, "print the stored JSON document")
	cvNewCmd.Flags().String("title", "", "title of the new CV")
	cvDeleteCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}

func renderCV(w io.Writer, doc cv.CV) {
	p := doc.Personal

	fmt.Fprintf(w, "%s\n", strings.ToUpper(orDash(p.FullName())))
	contact := joinNonEmpty(" | ", p.Email, p.Phone, joinNonEmpty(", ", p.City, p.Country), p.LinkedIn, p.Website)
	if contact != "" {
		fmt.Fprintln(w, contact)
	}
	if p.ProfileSummary != "" {
		fmt.Fprintf(w, "\n%s\n", p.ProfileSummary)
	}

	if len(doc.Experience) > 0 {
		fmt.Fprintln(w, "\nEXPERIENCIA")
		for _, e := range doc.Experience {
			fmt.Fprintf(w, "- %s, %s (%s - %s) [%s]\n", orDash(e.Role), orDash(e.Company), e.StartDate, e.DisplayEnd(), e.ID)
			if e.Description != "" {
				fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(e.Description, "\n", "\n  "))
			}
			for _, achievement := range e.Achievements {
				fmt.Fprintf(w, "  • %s\n", achievement)
			}
		}
	}

	if len(doc.Education) > 0 {
		fmt.Fprintln(w, "\nEDUCACIÓN")
		for _, e := range doc.Education {
			fmt.Fprintf(w, "- %s, %s (%s - %s) [%s]\n", orDash(e.Degree), orDash(e.Institution), e.StartDate, e.EndDate, e.ID)
		}
	}

	if len(doc.Skills) > 0 {
		fmt.Fprintln(w, "\nHABILIDADES")
		for _, s := range doc.Skills {
			fmt.Fprintf(w, "- %s (%s) [%s]\n", s.Name, s.Type, s.ID)
		}
	}

	if len(doc.Languages) > 0 {
		fmt.Fprintln(w, "\nIDIOMAS")
		for _, l := range doc.Languages {
			fmt.Fprintf(w, "- %s: %s %d%% [%s]\n", l.Name, l.Level, l.Level.Percent(), l.ID)
		}
	}

	if len(doc.Certifications) > 0 {
		fmt.Fprintln(w, "\nCERTIFICACIONES")
		for _, c := range doc.Certifications {
			fmt.Fprintf(w, "- %s, %s %s [%s]\n", c.Name, c.Issuer, c.Date, c.ID)
		}
	}

	if len(doc.Projects) > 0 {
		fmt.Fprintln(w, "\nPROYECTOS")
		for _, pr := range doc.Projects {
			fmt.Fprintf(w, "- %s %s [%s]\n", pr.Name, pr.Link, pr.ID)
			if pr.Description != "" {
				fmt.Fprintf(w, "  %s\n", pr.Description)
			}
		}
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return strings.Join(out, sep)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
