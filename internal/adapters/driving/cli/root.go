// Package cli provides the cobra command surface for Bindery.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bindery-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/bindery-cli/internal/adapters/driven/embedding"
	"github.com/custodia-labs/bindery-cli/internal/adapters/driven/embedding/local"
	ollamaembed "github.com/custodia-labs/bindery-cli/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/bindery-cli/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/bindery-cli/internal/adapters/driven/storage/sqlite"
	ollamastruct "github.com/custodia-labs/bindery-cli/internal/adapters/driven/structurer/ollama"
	vectormemory "github.com/custodia-labs/bindery-cli/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/bindery-cli/internal/chunker"
	"github.com/custodia-labs/bindery-cli/internal/core/domain"
	"github.com/custodia-labs/bindery-cli/internal/core/ports/driven"
	"github.com/custodia-labs/bindery-cli/internal/core/ports/driving"
	"github.com/custodia-labs/bindery-cli/internal/core/services"
	"github.com/custodia-labs/bindery-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	flagVerbose    bool
	flagConfigPath string
)

// Services wired during PersistentPreRunE and shared by all commands.
var (
	bookStore       *sqlite.Store
	pipelineService driving.PipelineService
	searchService   driving.SearchService
)

var rootCmd = &cobra.Command{
	Use:   "bindery",
	Short: "Organize raw notes into navigable books",
	Long: `Bindery ingests unstructured personal notes and organizes them into
a book of chapters, sections and chunks, each chunk embedded for
semantic search.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)
		if cmd.Name() == "version" {
			return nil
		}
		return initServices(cmd.Context())
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if bookStore != nil {
			_ = bookStore.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose pipeline logging")
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path (default ~/.bindery/config.toml)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initServices loads the config and wires the adapters into the
// pipeline and search services.
func initServices(ctx context.Context) error {
	path := flagConfigPath
	if path == "" {
		var err error
		path, err = file.DefaultPath()
		if err != nil {
			return err
		}
	}
	cfg, err := file.Load(path)
	if err != nil {
		return err
	}

	bookStore, err = sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening book store: %w", err)
	}

	vectors := vectormemory.NewStore()
	embedders := buildEmbedders(cfg)

	// The vector store is in-memory; the SQLite store is the durable
	// copy of every embedding.
	if err := services.Rehydrate(ctx, bookStore, vectors); err != nil {
		return fmt.Errorf("rebuilding vector index: %w", err)
	}

	opts := []services.PipelineOption{
		services.WithSplitter(chunker.New(chunker.WithChunkSize(cfg.ChunkSize))),
	}
	if cfg.Structurer.Enabled {
		opts = append(opts, services.WithStructurer(ollamastruct.NewStructurer(ollamastruct.Config{
			BaseURL: cfg.Structurer.BaseURL,
			Model:   cfg.Structurer.Model,
		})))
	}

	pipelineService = services.NewPipeline(bookStore, vectors, embedders, opts...)
	searchService = services.NewSearch(bookStore, vectors, embedders)
	return nil
}

// buildEmbedders constructs one embedding service per configured
// provider. The local embedder is always available; remote providers
// are added when configured, wrapped with a rate limiter if one is
// set.
func buildEmbedders(cfg *file.Config) map[domain.EmbeddingType]driven.EmbeddingService {
	embedders := map[domain.EmbeddingType]driven.EmbeddingService{
		domain.EmbeddingTypeLocal: local.NewEmbeddingService(cfg.Embedding.Dimensions),
	}

	ollamaSvc := ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	})
	embedders[domain.EmbeddingTypeOllama] = limit(ollamaSvc, cfg.Embedding.RequestsPerSecond)

	if cfg.Embedding.APIKey != "" {
		openaiSvc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     cfg.Embedding.APIKey,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		})
		if err == nil {
			embedders[domain.EmbeddingTypeOpenAI] = limit(openaiSvc, cfg.Embedding.RequestsPerSecond)
		} else {
			logger.Warn("OpenAI embedder disabled: %v", err)
		}
	}

	return embedders
}

func limit(svc driven.EmbeddingService, rps float64) driven.EmbeddingService {
	if rps <= 0 {
		return svc
	}
	return embedding.NewRateLimited(svc, rps, 1)
}
