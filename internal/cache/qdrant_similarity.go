package cache

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantSimilarityIndex backs the similarity tier with a Qdrant
// collection instead of an in-memory brute-force scan. It implements
// the same SimilarityIndex interface as MemorySimilarityIndex, so the
// router can swap between them purely from configuration (see
// config.VectorConfig — a non-empty Host selects this backend).
type QdrantSimilarityIndex struct {
	client         *qdrant.Client
	collectionName string
	dimension      uint64
}

// NewQdrantSimilarityIndex connects to a Qdrant instance and ensures
// the routing-cache collection exists, creating it with cosine
// distance if it doesn't.
func NewQdrantSimilarityIndex(ctx context.Context, host string, port int, collection string, dimension int) (*QdrantSimilarityIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to connect to %s:%d: %w", host, port, err)
	}

	idx := &QdrantSimilarityIndex{
		client:         client,
		collectionName: collection,
		dimension:      uint64(dimension),
	}

	if err := idx.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *QdrantSimilarityIndex) ensureCollection(ctx context.Context) error {
	exists, err := idx.client.CollectionExists(ctx, idx.collectionName)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection %s: %w", idx.collectionName, err)
	}
	if exists {
		return nil
	}

	err = idx.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: idx.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     idx.dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %s: %w", idx.collectionName, err)
	}
	return nil
}

// hashToPointID derives a deterministic point ID from a cache hash so
// that re-adding the same hash overwrites rather than duplicates.
func hashToPointID(hash string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(hash)).String()
}

// Add upserts hash's embedding into the collection, storing the hash
// itself as payload so Nearest can map a match back to a cache entry.
func (idx *QdrantSimilarityIndex) Add(ctx context.Context, hash string, embedding []float32) error {
	payload, err := qdrant.TryValueMap(map[string]any{"hash": hash})
	if err != nil {
		return fmt.Errorf("qdrant: failed to build payload for %s: %w", hash, err)
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(hashToPointID(hash)),
		Vectors: qdrant.NewVectors(embedding...),
		Payload: payload,
	}

	_, err = idx.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: idx.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to upsert point for %s: %w", hash, err)
	}
	return nil
}

// Remove deletes hash's point from the collection.
func (idx *QdrantSimilarityIndex) Remove(ctx context.Context, hash string) error {
	_, err := idx.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: idx.collectionName,
		Points:         qdrant.NewPointsSelector(qdrant.NewID(hashToPointID(hash))),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to delete point for %s: %w", hash, err)
	}
	return nil
}

// Nearest queries the collection for the single closest point.
func (idx *QdrantSimilarityIndex) Nearest(ctx context.Context, embedding []float32) (string, float64, bool, error) {
	limit := uint64(1)
	result, err := idx.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: idx.collectionName,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return "", 0, false, fmt.Errorf("qdrant: query failed on collection %s: %w", idx.collectionName, err)
	}
	if len(result) == 0 {
		return "", 0, false, nil
	}

	point := result[0]
	hashValue, ok := point.GetPayload()["hash"]
	if !ok {
		return "", 0, false, nil
	}
	return hashValue.GetStringValue(), float64(point.GetScore()), true, nil
}
