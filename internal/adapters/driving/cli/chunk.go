package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bindery-cli/internal/core/domain"
)

var editCmd = &cobra.Command{
	Use:   "edit [chunk-id] [new-content]",
	Short: "Replace a chunk's content and re-embed it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		chunk, err := pipelineService.EditChunk(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("edit failed: %w", err)
		}
		cmd.Printf("Updated chunk %s (%d words, embedded=%t)\n", chunk.ID, chunk.WordCount, chunk.Embedded)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [chunk-id]",
	Short: "Delete a chunk and its vector",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := pipelineService.DeleteChunk(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
		cmd.Println("Deleted.")
		return nil
	},
}

var reorderCmd = &cobra.Command{
	Use:   "reorder [chunk-id] [up|down]",
	Short: "Move a chunk within its section",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		direction := domain.Direction(args[1])
		if err := pipelineService.ReorderChunk(cmd.Context(), args[0], direction); err != nil {
			return fmt.Errorf("reorder failed: %w", err)
		}
		cmd.Println("Reordered.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(reorderCmd)
}
