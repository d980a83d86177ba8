package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bindery-cli/internal/core/domain"
	"github.com/custodia-labs/bindery-cli/internal/core/ports/driving"
)

var (
	uploadTitle     string
	uploadProvider  string
	uploadMode      string
	uploadIntensity float64
	uploadTarget    string
	uploadClusters  int
)

var uploadCmd = &cobra.Command{
	Use:   "upload [files...]",
	Short: "Organize note files into a book",
	Long: `Runs the organization pipeline over one or more text files:
chunk, embed, optionally cluster, and persist as a book.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadTitle, "title", "t", "", "book title")
	uploadCmd.Flags().StringVar(&uploadProvider, "embedding", string(domain.EmbeddingTypeLocal), "embedding provider (local, ollama, openai)")
	uploadCmd.Flags().StringVar(&uploadMode, "mode", string(domain.OrganizeByFile), "organization mode (file, cluster)")
	uploadCmd.Flags().Float64Var(&uploadIntensity, "intensity", 0, "delegated chunking intensity (0..1, 0 = rule-based)")
	uploadCmd.Flags().StringVar(&uploadTarget, "book", "", "re-upload into an existing book ID")
	uploadCmd.Flags().IntVar(&uploadClusters, "chapters", 0, "chapter cap in cluster mode (0 = heuristic)")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	files := make([]driving.UploadFile, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		files = append(files, driving.UploadFile{Name: name, Content: string(data)})
	}

	structure, err := pipelineService.ProcessUpload(cmd.Context(), files, driving.UploadOptions{
		Title:         uploadTitle,
		EmbeddingType: domain.EmbeddingType(uploadProvider),
		Mode:          domain.OrganizeMode(uploadMode),
		Intensity:     uploadIntensity,
		TargetBookID:  uploadTarget,
		ClusterCount:  uploadClusters,
	})
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	cmd.Printf("Book %s (%q)\n", structure.Book.ID, structure.Book.Title)
	printStructure(cmd, structure)
	return nil
}

// printStructure renders the chapter/section/chunk tree.
func printStructure(cmd *cobra.Command, structure *driving.BookStructure) {
	for _, chapter := range structure.Chapters {
		cmd.Printf("  %s\n", chapter.Chapter.Title)
		for _, section := range chapter.Sections {
			cmd.Printf("    %s (%d chunks)\n", section.Section.Title, len(section.Chunks))
			for _, chunk := range section.Chunks {
				cmd.Printf("      [%s] %s (%d words)\n", chunk.ID, chunk.Title, chunk.WordCount)
			}
		}
	}
}
