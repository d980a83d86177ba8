package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bindery-cli/internal/core/ports/driving"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export [book-id]",
	Short: "Export a book as markdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	structure, err := pipelineService.GetBook(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("loading book: %w", err)
	}

	markdown := renderMarkdown(structure)
	if exportOutput == "" {
		cmd.Print(markdown)
		return nil
	}

	if err := os.WriteFile(exportOutput, []byte(markdown), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", exportOutput, err)
	}
	cmd.Printf("Wrote %s\n", exportOutput)
	return nil
}

// renderMarkdown writes the book as nested markdown headings.
func renderMarkdown(structure *driving.BookStructure) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", structure.Book.Title)
	for _, chapter := range structure.Chapters {
		fmt.Fprintf(&b, "## %s\n\n", chapter.Chapter.Title)
		for _, section := range chapter.Sections {
			fmt.Fprintf(&b, "### %s\n\n", section.Section.Title)
			for _, chunk := range section.Chunks {
				if chunk.Title != "" {
					fmt.Fprintf(&b, "**%s**\n\n", chunk.Title)
				}
				fmt.Fprintf(&b, "%s\n\n", chunk.Content)
			}
		}
	}

	return b.String()
}
