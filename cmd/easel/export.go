package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ayusman/easel/internal/export"
	"github.com/ayusman/easel/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the saved drawing to a PNG or PDF file",
	Long: `Write the saved drawing to a file. The format follows the extension
of --out: .png copies the stored image, .pdf lays it out on an A4 page.

Example:
  easel export --out drawing.pdf`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("out", "easel.png", "Output file (.png or .pdf)")
}

func runExport(cmd *cobra.Command, args []string) error {
	out := mustGetString(cmd, "out")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	d, err := st.Drawings().Get(store.DrawingKey)
	if errors.Is(err, store.ErrNotFound) {
		return errors.New("no saved drawing")
	}
	if err != nil {
		return fmt.Errorf("failed to read drawing: %w", err)
	}

	if err := writeExport(out, d.Data); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", out)
	return nil
}

// writeExport writes a PNG drawing to path in the format named by its extension.
func writeExport(path string, data []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return os.WriteFile(path, data, 0644)
	case ".pdf":
		if _, _, err := export.PNGSize(data); err != nil {
			return fmt.Errorf("saved drawing: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := export.PDFFromPNG(f, data); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	default:
		return fmt.Errorf("unsupported export format %q", filepath.Ext(path))
	}
}
