package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List books",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		books, err := pipelineService.ListBooks(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing books: %w", err)
		}
		if len(books) == 0 {
			cmd.Println("No books yet.")
			return nil
		}
		for _, book := range books {
			cmd.Printf("%s  %-30q  %s/%s\n", book.ID, book.Title, book.EmbeddingType, book.Mode)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show [book-id]",
	Short: "Show a book's chapter tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		structure, err := pipelineService.GetBook(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("loading book: %w", err)
		}
		cmd.Printf("Book %s (%q)\n", structure.Book.ID, structure.Book.Title)
		printStructure(cmd, structure)
		return nil
	},
}

var deleteBookCmd = &cobra.Command{
	Use:   "delete-book [book-id]",
	Short: "Delete a book, its tree and its vectors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := pipelineService.DeleteBook(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("deleting book: %w", err)
		}
		cmd.Println("Deleted.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteBookCmd)
}
