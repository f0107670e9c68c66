package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/easel/internal/store"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved drawing",
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if err := st.Drawings().Delete(store.DrawingKey); err != nil {
		return fmt.Errorf("failed to clear drawing: %w", err)
	}
	fmt.Println("Drawing cleared.")
	return nil
}
