package cmd

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/cv-assistant/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Create a CV from a PDF, DOC or DOCX résumé",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("mime-type", "", "media type of the file (detected from the extension by default)")
}

func runImport(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	mimeType, _ := cmd.Flags().GetString("mime-type")
	if strings.TrimSpace(mimeType) == "" {
		mimeType = detectMIMEType(path, data)
	}

	ctx := context.Background()
	a, err := newApplication(ctx, appOptions{withAI: true})
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("Analizando con IA...")

	doc, err := a.editor.Import(ctx, base64.StdEncoding.EncodeToString(data), mimeType)
	if err != nil {
		a.logger.Error("import failed", zap.String("file", path), zap.Error(err))
		return fmt.Errorf("Error al analizar el documento: %w", err)
	}

	fmt.Printf("¡Completado! Currículum «%s» creado con id %s\n", doc.Title, doc.ID)
	return nil
}

// detectMIMEType prefers the extension since Office documents sniff as
// generic zip or ole containers.
func detectMIMEType(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return importer.MIMETypePDF
	case ".doc":
		return importer.MIMETypeDOC
	case ".docx":
		return importer.MIMETypeDOCX
	}

	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		mediaType, _, err := mime.ParseMediaType(byExt)
		if err == nil {
			return mediaType
		}
	}

	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mediaType
}
