package storage

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/BKrowchuk/Horizon/config"
	"github.com/BKrowchuk/Horizon/core"
)

// DefaultTopK caps search results when the caller does not ask for a count.
const DefaultTopK = 5

// Chunker splits a transcript into ordered chunks. Params reports the window
// geometry so the index metadata can record how the chunks were cut.
type Chunker interface {
	Chunk(text string) []core.TranscriptChunk
	Params() (sizeWords, overlapWords int)
}

// VectorBackend mirrors chunk rows into an external vector database. The
// flat index on disk stays authoritative; a backend that errors is logged
// and skipped rather than failing the request.
type VectorBackend interface {
	Name() string
	Upsert(ctx context.Context, meetingID string, records []core.ChunkRecord) error
	Query(ctx context.Context, meetingID string, vector []float32, topK int) ([]BackendHit, error)
	Delete(ctx context.Context, meetingID string) error
	Close() error
}

// BackendHit is one row from an external backend. Distance is squared L2 so
// scores stay comparable with the flat index.
type BackendHit struct {
	ChunkID  int
	Text     string
	Distance float32
}

// ---------------- Index store ----------------

// IndexStore owns the embedding artifacts for all meetings under one storage
// root: the binary flat index, its metadata sidecar, and the optional mirror
// into an external vector backend.
type IndexStore struct {
	root    string
	emb     Embedder
	chunker Chunker
	backend VectorBackend

	locks sync.Map // meeting id -> *sync.Mutex
}

func NewIndexStore(root string, emb Embedder, chunker Chunker, backend VectorBackend) *IndexStore {
	return &IndexStore{root: root, emb: emb, chunker: chunker, backend: backend}
}

func (s *IndexStore) Root() string { return s.root }

// lockFor serializes builds per meeting id. Concurrent builds of different
// meetings proceed independently.
func (s *IndexStore) lockFor(meetingID string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(meetingID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// BuildIndex chunks the meeting transcript, embeds every chunk, and persists
// the flat index plus metadata. Rebuilding is idempotent: artifacts are
// replaced atomically, and a failed build leaves the previous ones in place.
func (s *IndexStore) BuildIndex(ctx context.Context, meetingID string) (core.EmbedResult, error) {
	const op = "index.build"

	mu := s.lockFor(meetingID)
	mu.Lock()
	defer mu.Unlock()

	doc, err := LoadTranscript(s.root, meetingID)
	if err != nil {
		return core.EmbedResult{}, err
	}

	chunks := s.chunker.Chunk(doc.Transcript)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := s.emb.EmbedBatch(ctx, texts)
	if err != nil {
		return core.EmbedResult{}, err
	}

	dim := s.emb.Dimension()
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}

	ix := NewFlatIndex(dim)
	records := make([]core.ChunkRecord, len(chunks))
	for i, c := range chunks {
		if err := ix.Add(vectors[i]); err != nil {
			return core.EmbedResult{}, core.E(core.KindProvider, op, err)
		}
		records[i] = core.ChunkRecord{ChunkID: c.ChunkID, Text: c.Text, Embedding: vectors[i]}
	}

	size, overlap := s.chunker.Params()
	projectID := doc.ProjectID
	if projectID == "" {
		projectID = "demo_project"
	}
	meta := core.IndexMeta{
		MeetingID:      meetingID,
		ProjectID:      projectID,
		CreatedAt:      doc.CreatedAt,
		NumChunks:      len(chunks),
		ChunkSizeWords: size,
		OverlapWords:   overlap,
		EmbeddingModel: s.emb.ModelInfo(),
		IndexType:      "IndexFlatL2",
		Dimension:      dim,
		Vectors:        records,
	}

	idxPath := IndexPath(s.root, meetingID)
	metaPath := MetaPath(s.root, meetingID)
	if err := ix.Save(idxPath); err != nil {
		return core.EmbedResult{}, core.E(core.KindInternal, op, err)
	}
	if err := SaveIndexMeta(s.root, meta); err != nil {
		return core.EmbedResult{}, core.E(core.KindInternal, op, err)
	}

	if s.backend != nil {
		if err := s.backend.Upsert(ctx, meetingID, records); err != nil {
			fmt.Printf("Warning: %s upsert failed, flat index remains authoritative: %v\n", s.backend.Name(), err)
		}
	}

	return core.EmbedResult{
		MeetingID:       meetingID,
		NumChunks:       len(chunks),
		VectorIndexPath: idxPath,
		MetaPath:        metaPath,
	}, nil
}

// Search embeds the query and returns the nearest chunks, ranked by
// ascending distance. A meeting without a built index is NotFound; an index
// that disagrees with its metadata is Corrupt, never silently truncated.
func (s *IndexStore) Search(ctx context.Context, meetingID, query string, topK int) ([]core.SearchResult, error) {
	const op = "index.search"

	if topK <= 0 {
		topK = DefaultTopK
	}

	meta, err := LoadIndexMeta(s.root, meetingID)
	if err != nil {
		return nil, err
	}

	qvec, err := s.emb.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	if s.backend != nil {
		hits, berr := s.backend.Query(ctx, meetingID, qvec, topK)
		if berr != nil {
			fmt.Printf("Warning: %s search failed, falling back to flat index: %v\n", s.backend.Name(), berr)
		} else if len(hits) == 0 && meta.NumChunks > 0 {
			fmt.Printf("Warning: %s returned no rows for an embedded meeting, falling back to flat index\n", s.backend.Name())
		} else {
			rows := make([]core.SearchResult, 0, len(hits))
			for i, h := range hits {
				rows = append(rows, core.SearchResult{
					Rank:            i + 1,
					ChunkID:         h.ChunkID,
					Text:            h.Text,
					SimilarityScore: Similarity(h.Distance),
					Distance:        float64(h.Distance),
				})
			}
			return rows, nil
		}
	}

	ix, err := LoadFlatIndex(IndexPath(s.root, meetingID))
	if err != nil {
		return nil, err
	}
	if ix.Ntotal() != len(meta.Vectors) {
		return nil, core.Ef(core.KindCorrupt, op, "index holds %d vectors but metadata lists %d", ix.Ntotal(), len(meta.Vectors))
	}

	ids, dists, err := ix.Search(qvec, topK)
	if err != nil {
		return nil, core.E(core.KindInternal, op, err)
	}

	rows := make([]core.SearchResult, 0, len(ids))
	for i, id := range ids {
		if id < 0 || id >= len(meta.Vectors) {
			return nil, core.Ef(core.KindCorrupt, op, "chunk id %d outside metadata range %d", id, len(meta.Vectors))
		}
		rows = append(rows, core.SearchResult{
			Rank:            i + 1,
			ChunkID:         id,
			Text:            meta.Vectors[id].Text,
			SimilarityScore: Similarity(dists[i]),
			Distance:        float64(dists[i]),
		})
	}
	return rows, nil
}

// IndexStatus reports whether a meeting has been embedded.
type IndexStatus struct {
	MeetingID      string `json:"meeting_id"`
	Status         string `json:"status"`
	NumChunks      int    `json:"num_chunks,omitempty"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}

func (s *IndexStore) Status(meetingID string) (IndexStatus, error) {
	meta, err := LoadIndexMeta(s.root, meetingID)
	if core.IsNotFound(err) {
		return IndexStatus{MeetingID: meetingID, Status: "not_embedded"}, nil
	}
	if err != nil {
		return IndexStatus{}, err
	}
	if _, statErr := os.Stat(IndexPath(s.root, meetingID)); statErr != nil {
		return IndexStatus{MeetingID: meetingID, Status: "not_embedded"}, nil
	}
	return IndexStatus{
		MeetingID:      meetingID,
		Status:         "embedded",
		NumChunks:      meta.NumChunks,
		EmbeddingModel: meta.EmbeddingModel,
		CreatedAt:      meta.CreatedAt,
	}, nil
}

// ---------------- Backend selection ----------------

// PickBackend selects the external mirror from the STORE environment
// variable: "pgvector", "milvus", or unset for the flat index alone. An
// unreachable backend logs a warning and the store continues without it.
func PickBackend(cfg *config.Config) VectorBackend {
	switch os.Getenv("STORE") {
	case "pgvector":
		b, err := NewPgVectorBackend(context.Background(), cfg.PostgresURL)
		if err != nil {
			fmt.Println("Warning: pgvector unavailable, continuing with flat index only:", err)
			return nil
		}
		return b
	case "milvus":
		b, err := NewMilvusBackend(context.Background(), cfg.MilvusAddr)
		if err != nil {
			fmt.Println("Warning: milvus unavailable, continuing with flat index only:", err)
			return nil
		}
		return b
	default:
		return nil
	}
}
