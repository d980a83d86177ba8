// Package services contains the application services that sequence
// the content-organization pipeline over the driven ports.
package services

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/bindery-cli/internal/assembler"
	"github.com/custodia-labs/bindery-cli/internal/chunker"
	"github.com/custodia-labs/bindery-cli/internal/cluster"
	"github.com/custodia-labs/bindery-cli/internal/core/domain"
	"github.com/custodia-labs/bindery-cli/internal/core/ports/driven"
	"github.com/custodia-labs/bindery-cli/internal/core/ports/driving"
	"github.com/custodia-labs/bindery-cli/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.PipelineService = (*Pipeline)(nil)

// maxClusterCount caps the heuristic chapter count in cluster mode.
const maxClusterCount = 8

// Pipeline orchestrates chunk → embed → (cluster) → assemble →
// persist per upload, and the edit/delete/reorder paths that keep the
// book store and the vector store consistent.
type Pipeline struct {
	books      driven.BookStore
	vectors    driven.VectorStore
	embedders  map[domain.EmbeddingType]driven.EmbeddingService
	structurer driven.Structurer
	splitter   *chunker.Splitter
	rng        *rand.Rand

	// Mutations within one book are serialized with a per-book lock
	// so concurrent reorders or deletes cannot lose position updates.
	mu        sync.Mutex
	bookLocks map[string]*sync.Mutex
}

// PipelineOption configures the pipeline.
type PipelineOption func(*Pipeline)

// WithStructurer enables delegated chunking through the given
// provider when an upload requests a non-zero intensity.
func WithStructurer(s driven.Structurer) PipelineOption {
	return func(p *Pipeline) { p.structurer = s }
}

// WithSplitter replaces the default rule-based splitter.
func WithSplitter(s *chunker.Splitter) PipelineOption {
	return func(p *Pipeline) { p.splitter = s }
}

// WithRand injects the random source used for cluster seeding,
// making cluster-mode uploads deterministic.
func WithRand(rng *rand.Rand) PipelineOption {
	return func(p *Pipeline) { p.rng = rng }
}

// NewPipeline creates the pipeline orchestrator. One embedder per
// embedding type; books created with a type that has no embedder fail
// with domain.ErrProviderUnavailable.
func NewPipeline(
	books driven.BookStore,
	vectors driven.VectorStore,
	embedders map[domain.EmbeddingType]driven.EmbeddingService,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		books:     books,
		vectors:   vectors,
		embedders: embedders,
		splitter:  chunker.New(),
		bookLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// lockBook acquires the per-book mutex and returns its unlock func.
func (p *Pipeline) lockBook(bookID string) func() {
	p.mu.Lock()
	lock, ok := p.bookLocks[bookID]
	if !ok {
		lock = &sync.Mutex{}
		p.bookLocks[bookID] = lock
	}
	p.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// filePieces is the chunking result for one uploaded file.
type filePieces struct {
	title  string
	chunks []domain.Chunk
}

// ProcessUpload organizes files into a book.
func (p *Pipeline) ProcessUpload(
	ctx context.Context, files []driving.UploadFile, opts driving.UploadOptions,
) (*driving.BookStructure, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files: %w", domain.ErrEmptyInput)
	}

	book, isNew, err := p.resolveBook(ctx, files, opts)
	if err != nil {
		return nil, err
	}

	embedder, ok := p.embedders[book.EmbeddingType]
	if !ok {
		return nil, fmt.Errorf("no embedder for type %q: %w",
			book.EmbeddingType, domain.ErrProviderUnavailable)
	}

	// Fail fast before any chunking or purging: an unreachable
	// provider would otherwise surface only after the old tree is
	// gone on re-upload.
	if err := embedder.Ping(ctx); err != nil {
		return nil, fmt.Errorf("embedding provider %q: %w", book.EmbeddingType, err)
	}

	unlock := p.lockBook(book.ID)
	defer unlock()

	// Re-upload replaces the whole tree: purge the old vectors, then
	// the old chapters/sections/chunks. The embedding type itself is
	// immutable.
	if !isNew {
		if err := p.purge(ctx, book); err != nil {
			return nil, err
		}
	}

	logger.Section("Chunking")
	perFile, err := p.chunkFiles(ctx, files, opts.Intensity)
	if err != nil {
		return nil, err
	}

	var total int
	for _, f := range perFile {
		total += len(f.chunks)
	}
	if total == 0 {
		return nil, fmt.Errorf("no usable text in %d file(s): %w", len(files), domain.ErrEmptyInput)
	}
	logger.Info("Produced %d chunk(s) from %d file(s)", total, len(files))

	logger.Section("Embedding")
	if err := p.embedAll(ctx, embedder, perFile); err != nil {
		return nil, err
	}

	var plans []assembler.ChapterPlan
	lookup := make(map[string]*domain.Chunk, total)
	for fi := range perFile {
		for ci := range perFile[fi].chunks {
			c := &perFile[fi].chunks[ci]
			lookup[c.ID] = c
		}
	}

	switch book.Mode {
	case domain.OrganizeByCluster:
		logger.Section("Clustering")
		plans, err = p.clusterPlans(perFile, lookup, opts.ClusterCount)
		if err != nil {
			return nil, err
		}
	default:
		for _, f := range perFile {
			ids := make([]string, 0, len(f.chunks))
			for _, c := range f.chunks {
				ids = append(ids, c.ID)
			}
			plans = append(plans, assembler.FileChapter(f.title, ids))
		}
	}
	logger.Info("Assembled %d chapter(s)", len(plans))

	logger.Section("Persisting")
	if err := p.persist(ctx, book, isNew, plans, lookup); err != nil {
		return nil, err
	}

	return p.GetBook(ctx, book.ID)
}

// resolveBook loads the target book for a re-upload or constructs a
// new one from the options.
func (p *Pipeline) resolveBook(
	ctx context.Context, files []driving.UploadFile, opts driving.UploadOptions,
) (*domain.Book, bool, error) {
	if opts.TargetBookID != "" {
		book, err := p.books.GetBook(ctx, opts.TargetBookID)
		if err != nil {
			return nil, false, fmt.Errorf("target book %s: %w", opts.TargetBookID, err)
		}
		if opts.EmbeddingType != "" && opts.EmbeddingType != book.EmbeddingType {
			return nil, false, fmt.Errorf(
				"embedding type is fixed at creation (book uses %q): %w",
				book.EmbeddingType, domain.ErrInvalidInput)
		}
		if opts.Mode != "" && opts.Mode != book.Mode {
			return nil, false, fmt.Errorf(
				"organize mode is fixed at creation (book uses %q): %w",
				book.Mode, domain.ErrInvalidInput)
		}
		return book, false, nil
	}

	if !opts.EmbeddingType.Valid() {
		return nil, false, fmt.Errorf("embedding type %q: %w",
			opts.EmbeddingType, domain.ErrUnsupportedType)
	}
	mode := opts.Mode
	if mode == "" {
		mode = domain.OrganizeByFile
	}
	if !mode.Valid() {
		return nil, false, fmt.Errorf("organize mode %q: %w", opts.Mode, domain.ErrUnsupportedType)
	}

	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = files[0].Name
	}

	var raw strings.Builder
	for i, f := range files {
		if i > 0 {
			raw.WriteString("\n\n")
		}
		raw.WriteString(f.Content)
	}

	now := time.Now().UTC()
	return &domain.Book{
		ID:            uuid.New().String(),
		Title:         title,
		EmbeddingType: opts.EmbeddingType,
		Mode:          mode,
		RawSource:     raw.String(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, true, nil
}

// purge removes a book's vectors and its chapter tree.
func (p *Pipeline) purge(ctx context.Context, book *domain.Book) error {
	chunks, err := p.books.ListBookChunks(ctx, book.ID)
	if err != nil {
		return fmt.Errorf("listing chunks of book %s: %w", book.ID, err)
	}
	collection := book.EmbeddingType.Collection()
	for _, c := range chunks {
		if _, err := p.vectors.Remove(ctx, collection, c.ID); err != nil {
			return fmt.Errorf("removing vector %s: %w", c.ID, err)
		}
	}
	if err := p.books.DeleteTree(ctx, book.ID); err != nil {
		return fmt.Errorf("deleting tree of book %s: %w", book.ID, err)
	}
	logger.Debug("Purged %d chunk(s) before re-upload", len(chunks))
	return nil
}

// chunkFiles runs the chunker on each file independently. Delegated
// chunking is used when a structurer is configured and the upload
// requested a non-zero intensity.
func (p *Pipeline) chunkFiles(
	ctx context.Context, files []driving.UploadFile, intensity float64,
) ([]filePieces, error) {
	now := time.Now().UTC()
	out := make([]filePieces, 0, len(files))

	for _, file := range files {
		var pieces []chunker.Piece
		var title string

		if p.structurer != nil && intensity > 0 {
			result, err := p.structurer.Structure(ctx, file.Content, intensity)
			if err != nil {
				return nil, fmt.Errorf("structuring %s: %w", file.Name, err)
			}
			title = result.Title
			for _, c := range result.Chunks {
				pieces = append(pieces, chunker.Piece{Title: c.Title, Content: c.Content})
			}
		} else {
			var suggested string
			pieces, suggested = p.splitter.Split(file.Content)
			title = suggested
		}

		if title == "" {
			title = file.Name
		}

		chunks := make([]domain.Chunk, 0, len(pieces))
		for _, piece := range pieces {
			chunks = append(chunks, domain.Chunk{
				ID:        uuid.New().String(),
				Title:     piece.Title,
				Content:   piece.Content,
				WordCount: len(strings.Fields(piece.Content)),
				CreatedAt: now,
				UpdatedAt: now,
			})
		}

		// Link chunks of the same file with a "next" relation for
		// linear navigation. Not consulted by clustering.
		for i := 0; i+1 < len(chunks); i++ {
			chunks[i].NextID = chunks[i+1].ID
		}

		logger.Debug("File %q: %d chunk(s)", file.Name, len(chunks))
		out = append(out, filePieces{title: title, chunks: chunks})
	}

	return out, nil
}

// embedAll batch-embeds every chunk, failing the whole upload on any
// provider error so no partial batch is ever persisted.
func (p *Pipeline) embedAll(
	ctx context.Context, embedder driven.EmbeddingService, perFile []filePieces,
) error {
	var texts []string
	for _, f := range perFile {
		for _, c := range f.chunks {
			texts = append(texts, c.Content)
		}
	}

	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d chunk(s): %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedder returned %d vector(s) for %d input(s): %w",
			len(vectors), len(texts), domain.ErrMalformedProviderResponse)
	}

	i := 0
	for fi := range perFile {
		for ci := range perFile[fi].chunks {
			perFile[fi].chunks[ci].SetEmbedding(vectors[i])
			i++
		}
	}
	logger.Info("Embedded %d chunk(s) with %s", len(texts), embedder.ModelName())
	return nil
}

// clusterPlans pools all chunks, clusters their embeddings and maps
// the clusters onto chapter plans.
func (p *Pipeline) clusterPlans(
	perFile []filePieces, lookup map[string]*domain.Chunk, requested int,
) ([]assembler.ChapterPlan, error) {
	var points []cluster.Point
	for _, f := range perFile {
		for _, c := range f.chunks {
			points = append(points, cluster.Point{ID: c.ID, Vector: c.Embedding})
		}
	}

	k := requested
	if k <= 0 {
		k = heuristicK(len(points))
	}

	clusters, err := cluster.KMeans(points, k, p.rng)
	if err != nil {
		return nil, fmt.Errorf("clustering %d chunk(s) into %d group(s): %w", len(points), k, err)
	}
	logger.Debug("k=%d produced %d non-empty cluster(s)", k, len(clusters))

	return assembler.Assemble(clusters, lookup), nil
}

// heuristicK picks a chapter count of roughly sqrt(n/2), clamped to
// [1, maxClusterCount]. Approximate by design; empty clusters are
// dropped downstream so the effective count may be lower still.
func heuristicK(n int) int {
	k := int(math.Round(math.Sqrt(float64(n) / 2)))
	if k < 1 {
		k = 1
	}
	if k > maxClusterCount {
		k = maxClusterCount
	}
	return k
}

// persist writes the book tree and the chunk vectors. On any failure
// everything written so far is rolled back so readers never observe a
// partially-populated book.
func (p *Pipeline) persist(
	ctx context.Context,
	book *domain.Book,
	isNew bool,
	plans []assembler.ChapterPlan,
	lookup map[string]*domain.Chunk,
) error {
	collection := book.EmbeddingType.Collection()
	var addedVectors []string

	rollback := func() {
		for _, id := range addedVectors {
			_, _ = p.vectors.Remove(ctx, collection, id)
		}
		_ = p.books.DeleteTree(ctx, book.ID)
		if isNew {
			_ = p.books.DeleteBook(ctx, book.ID)
		}
	}

	book.UpdatedAt = time.Now().UTC()
	if err := p.books.SaveBook(ctx, book); err != nil {
		return fmt.Errorf("saving book: %w", err)
	}

	for chapterPos, plan := range plans {
		chapter := domain.Chapter{
			ID:       uuid.New().String(),
			BookID:   book.ID,
			Title:    plan.Title,
			Position: chapterPos,
		}
		if err := p.books.SaveChapter(ctx, &chapter); err != nil {
			rollback()
			return fmt.Errorf("saving chapter %q: %w", chapter.Title, err)
		}

		for sectionPos, sectionPlan := range plan.Sections {
			section := domain.Section{
				ID:        uuid.New().String(),
				ChapterID: chapter.ID,
				Title:     sectionPlan.Title,
				Position:  sectionPos,
			}
			if err := p.books.SaveSection(ctx, &section); err != nil {
				rollback()
				return fmt.Errorf("saving section %q: %w", section.Title, err)
			}

			chunks := make([]domain.Chunk, 0, len(sectionPlan.ChunkIDs))
			for pos, id := range sectionPlan.ChunkIDs {
				chunk := lookup[id]
				chunk.SectionID = section.ID
				chunk.Position = pos
				chunks = append(chunks, *chunk)
			}
			if err := p.books.SaveChunks(ctx, chunks); err != nil {
				rollback()
				return fmt.Errorf("saving %d chunk(s): %w", len(chunks), err)
			}

			for _, chunk := range chunks {
				err := p.vectors.Add(ctx, collection, chunk.ID, chunk.Embedding, driven.VectorMetadata{
					BookID:  book.ID,
					ChunkID: chunk.ID,
					Title:   chunk.Title,
					Content: chunk.Content,
				})
				if err != nil {
					rollback()
					return fmt.Errorf("indexing chunk %s: %w", chunk.ID, err)
				}
				addedVectors = append(addedVectors, chunk.ID)
			}
		}
	}

	logger.Info("Persisted book %s (%d vectors)", book.ID, len(addedVectors))
	return nil
}

// EditChunk replaces a chunk's content, re-embedding it synchronously
// before the change is acknowledged.
func (p *Pipeline) EditChunk(ctx context.Context, chunkID, newContent string) (*domain.Chunk, error) {
	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return nil, fmt.Errorf("chunk content: %w", domain.ErrEmptyInput)
	}

	book, err := p.books.GetChunkBook(ctx, chunkID)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", chunkID, err)
	}

	unlock := p.lockBook(book.ID)
	defer unlock()

	chunk, err := p.books.GetChunk(ctx, chunkID)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", chunkID, err)
	}

	embedder, ok := p.embedders[book.EmbeddingType]
	if !ok {
		return nil, fmt.Errorf("no embedder for type %q: %w",
			book.EmbeddingType, domain.ErrProviderUnavailable)
	}

	// Embed first: if the provider fails, the chunk keeps its
	// previous content and embedding.
	vector, err := embedder.Embed(ctx, newContent)
	if err != nil {
		return nil, fmt.Errorf("re-embedding chunk %s: %w", chunkID, err)
	}

	updated := *chunk
	updated.SetContent(newContent)
	updated.SetEmbedding(vector)

	collection := book.EmbeddingType.Collection()
	err = p.vectors.Add(ctx, collection, chunkID, vector, driven.VectorMetadata{
		BookID:  book.ID,
		ChunkID: chunkID,
		Title:   updated.Title,
		Content: newContent,
	})
	if err != nil {
		return nil, fmt.Errorf("replacing vector for chunk %s: %w", chunkID, err)
	}

	if err := p.books.SaveChunks(ctx, []domain.Chunk{updated}); err != nil {
		// Restore the previous vector so store and index stay
		// consistent with the unchanged chunk row. A chunk that had no
		// vector gets the just-added one removed instead.
		if chunk.Embedded {
			_ = p.vectors.Add(ctx, collection, chunkID, chunk.Embedding, driven.VectorMetadata{
				BookID:  book.ID,
				ChunkID: chunkID,
				Title:   chunk.Title,
				Content: chunk.Content,
			})
		} else {
			_, _ = p.vectors.Remove(ctx, collection, chunkID)
		}
		return nil, fmt.Errorf("saving chunk %s: %w", chunkID, err)
	}

	logger.Debug("Re-embedded chunk %s (%d words)", chunkID, updated.WordCount)
	return &updated, nil
}

// DeleteChunk removes a chunk. The vector is removed first so a
// vector-store failure never leaves a dangling persisted chunk.
func (p *Pipeline) DeleteChunk(ctx context.Context, chunkID string) error {
	book, err := p.books.GetChunkBook(ctx, chunkID)
	if err != nil {
		return fmt.Errorf("chunk %s: %w", chunkID, err)
	}

	unlock := p.lockBook(book.ID)
	defer unlock()

	chunk, err := p.books.GetChunk(ctx, chunkID)
	if err != nil {
		return fmt.Errorf("chunk %s: %w", chunkID, err)
	}

	if _, err := p.vectors.Remove(ctx, book.EmbeddingType.Collection(), chunkID); err != nil {
		return fmt.Errorf("removing vector for chunk %s: %w", chunkID, err)
	}

	if err := p.books.DeleteChunk(ctx, chunkID); err != nil {
		return fmt.Errorf("deleting chunk %s: %w", chunkID, err)
	}

	// Keep sibling positions dense and unhook the navigation chain.
	siblings, err := p.books.GetChunks(ctx, chunk.SectionID)
	if err != nil {
		return fmt.Errorf("listing section %s: %w", chunk.SectionID, err)
	}
	var changed []domain.Chunk
	for i := range siblings {
		dirty := false
		if siblings[i].Position != i {
			siblings[i].Position = i
			dirty = true
		}
		if siblings[i].NextID == chunkID {
			siblings[i].NextID = chunk.NextID
			dirty = true
		}
		if dirty {
			changed = append(changed, siblings[i])
		}
	}
	if len(changed) > 0 {
		if err := p.books.SaveChunks(ctx, changed); err != nil {
			return fmt.Errorf("resequencing section %s: %w", chunk.SectionID, err)
		}
	}

	return nil
}

// ReorderChunk swaps a chunk's position with its neighbour. Already
// at the boundary is a successful no-op.
func (p *Pipeline) ReorderChunk(ctx context.Context, chunkID string, direction domain.Direction) error {
	if !direction.Valid() {
		return fmt.Errorf("direction %q: %w", direction, domain.ErrInvalidInput)
	}

	book, err := p.books.GetChunkBook(ctx, chunkID)
	if err != nil {
		return fmt.Errorf("chunk %s: %w", chunkID, err)
	}

	unlock := p.lockBook(book.ID)
	defer unlock()

	chunk, err := p.books.GetChunk(ctx, chunkID)
	if err != nil {
		return fmt.Errorf("chunk %s: %w", chunkID, err)
	}

	siblings, err := p.books.GetChunks(ctx, chunk.SectionID)
	if err != nil {
		return fmt.Errorf("listing section %s: %w", chunk.SectionID, err)
	}

	idx := -1
	for i := range siblings {
		if siblings[i].ID == chunkID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("chunk %s: %w", chunkID, domain.ErrNotFound)
	}

	target := idx - 1
	if direction == domain.DirectionDown {
		target = idx + 1
	}
	if target < 0 || target >= len(siblings) {
		return nil
	}

	siblings[idx].Position, siblings[target].Position =
		siblings[target].Position, siblings[idx].Position

	return p.books.SaveChunks(ctx, []domain.Chunk{siblings[idx], siblings[target]})
}

// GetBook returns the hydrated book tree.
func (p *Pipeline) GetBook(ctx context.Context, bookID string) (*driving.BookStructure, error) {
	book, err := p.books.GetBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("book %s: %w", bookID, err)
	}

	chapters, err := p.books.GetChapters(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("chapters of book %s: %w", bookID, err)
	}

	structure := &driving.BookStructure{Book: *book}
	for _, chapter := range chapters {
		cs := driving.ChapterStructure{Chapter: chapter}

		sections, err := p.books.GetSections(ctx, chapter.ID)
		if err != nil {
			return nil, fmt.Errorf("sections of chapter %s: %w", chapter.ID, err)
		}
		for _, section := range sections {
			chunks, err := p.books.GetChunks(ctx, section.ID)
			if err != nil {
				return nil, fmt.Errorf("chunks of section %s: %w", section.ID, err)
			}
			cs.Sections = append(cs.Sections, driving.SectionStructure{
				Section: section,
				Chunks:  chunks,
			})
		}
		structure.Chapters = append(structure.Chapters, cs)
	}

	return structure, nil
}

// ListBooks returns all books.
func (p *Pipeline) ListBooks(ctx context.Context) ([]domain.Book, error) {
	return p.books.ListBooks(ctx)
}

// DeleteBook removes a book, its tree and its vectors.
func (p *Pipeline) DeleteBook(ctx context.Context, bookID string) error {
	book, err := p.books.GetBook(ctx, bookID)
	if err != nil {
		return fmt.Errorf("book %s: %w", bookID, err)
	}

	unlock := p.lockBook(bookID)
	defer unlock()

	chunks, err := p.books.ListBookChunks(ctx, bookID)
	if err != nil {
		return fmt.Errorf("listing chunks of book %s: %w", bookID, err)
	}
	collection := book.EmbeddingType.Collection()
	for _, c := range chunks {
		if _, err := p.vectors.Remove(ctx, collection, c.ID); err != nil {
			return fmt.Errorf("removing vector %s: %w", c.ID, err)
		}
	}

	return p.books.DeleteBook(ctx, bookID)
}
