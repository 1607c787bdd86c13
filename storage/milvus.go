package storage

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/BKrowchuk/Horizon/core"
)

// ---------------- Milvus backend ----------------

// MilvusBackend mirrors chunk rows into a Milvus collection with a flat L2
// index, matching the on-disk index metric. The collection is created lazily
// on first upsert because the vector dimension comes from the embedder.
type MilvusBackend struct {
	mc   client.Client
	coll string

	mu      sync.Mutex
	dim     int
	ensured bool
}

func NewMilvusBackend(ctx context.Context, addr string) (*MilvusBackend, error) {
	if addr == "" {
		addr = "localhost:19530"
	}
	username := os.Getenv("MILVUS_USERNAME")
	password := os.Getenv("MILVUS_PASSWORD")
	apiKey := os.Getenv("MILVUS_API_KEY") // For Zilliz Cloud
	coll := os.Getenv("MILVUS_COLLECTION")
	if coll == "" {
		coll = "meeting_chunks"
	}

	mc, err := client.NewClient(ctx, client.Config{Address: addr, Username: username, Password: password, APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}
	return &MilvusBackend{mc: mc, coll: coll}, nil
}

func (b *MilvusBackend) Name() string { return "milvus" }

func (b *MilvusBackend) ensureCollection(ctx context.Context, dim int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ensured && b.dim == dim {
		return nil
	}

	has, err := b.mc.HasCollection(ctx, b.coll)
	if err != nil {
		return err
	}
	if !has {
		schema := entity.NewSchema()
		schema.WithName(b.coll)
		schema.WithField(entity.NewField().WithName("id").WithIsAutoID(true).WithIsPrimaryKey(true).WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName("meeting_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(128))
		schema.WithField(entity.NewField().WithName("chunk_id").WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName("text").WithDataType(entity.FieldTypeVarChar).WithMaxLength(16384))
		schema.WithField(entity.NewField().WithName("embedding").WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dim)))

		if err := b.mc.CreateCollection(ctx, schema, int32(2)); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	}

	idx, err := entity.NewIndexFlat(entity.L2)
	if err != nil {
		return fmt.Errorf("new flat index: %w", err)
	}
	if err := b.mc.CreateIndex(ctx, b.coll, "embedding", idx, false, client.WithIndexName("idx_embedding")); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := b.mc.LoadCollection(ctx, b.coll, false); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}

	b.dim = dim
	b.ensured = true
	return nil
}

func meetingFilter(meetingID string) string {
	return fmt.Sprintf("meeting_id == \"%s\"", strings.ReplaceAll(meetingID, "\"", "\\\""))
}

func (b *MilvusBackend) Upsert(ctx context.Context, meetingID string, records []core.ChunkRecord) error {
	if len(records) == 0 {
		has, err := b.mc.HasCollection(ctx, b.coll)
		if err != nil || !has {
			return err
		}
		return b.Delete(ctx, meetingID)
	}

	dim := len(records[0].Embedding)
	if err := b.ensureCollection(ctx, dim); err != nil {
		return err
	}
	if err := b.Delete(ctx, meetingID); err != nil {
		return err
	}

	meetingIDs := make([]string, 0, len(records))
	chunkIDs := make([]int64, 0, len(records))
	texts := make([]string, 0, len(records))
	vectors := make([][]float32, 0, len(records))
	for _, rec := range records {
		meetingIDs = append(meetingIDs, meetingID)
		chunkIDs = append(chunkIDs, int64(rec.ChunkID))
		texts = append(texts, rec.Text)
		vectors = append(vectors, rec.Embedding)
	}

	_, err := b.mc.Insert(ctx, b.coll, "",
		entity.NewColumnVarChar("meeting_id", meetingIDs),
		entity.NewColumnInt64("chunk_id", chunkIDs),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnFloatVector("embedding", dim, vectors),
	)
	return err
}

func (b *MilvusBackend) Query(ctx context.Context, meetingID string, vector []float32, topK int) ([]BackendHit, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	has, err := b.mc.HasCollection(ctx, b.coll)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, fmt.Errorf("collection %s does not exist", b.coll)
	}

	sp, _ := entity.NewIndexFlatSearchParam()
	res, err := b.mc.Search(ctx, b.coll, []string{}, meetingFilter(meetingID),
		[]string{"chunk_id", "text"},
		[]entity.Vector{entity.FloatVector(vector)},
		"embedding", entity.L2, topK, sp)
	if err != nil {
		return nil, err
	}

	var hits []BackendHit
	for _, r := range res {
		cols := map[string]entity.Column{}
		for _, c := range r.Fields {
			cols[c.Name()] = c
		}
		for i := 0; i < r.ResultCount; i++ {
			var chunkID int64
			var text string
			if c, ok := cols["chunk_id"].(*entity.ColumnInt64); ok {
				data := c.Data()
				if i < len(data) {
					chunkID = data[i]
				}
			}
			if c, ok := cols["text"].(*entity.ColumnVarChar); ok {
				data := c.Data()
				if i < len(data) {
					text = data[i]
				}
			}
			// L2 metric scores are already squared distances.
			hits = append(hits, BackendHit{ChunkID: int(chunkID), Text: text, Distance: r.Scores[i]})
		}
	}
	return hits, nil
}

func (b *MilvusBackend) Delete(ctx context.Context, meetingID string) error {
	return b.mc.Delete(ctx, b.coll, "", meetingFilter(meetingID))
}

func (b *MilvusBackend) Close() error {
	return b.mc.Close()
}
