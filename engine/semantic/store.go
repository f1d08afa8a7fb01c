// Package semantic owns the Qdrant collection: chunk storage with
// whole-video deduplication, similarity search, and collection stats.
package semantic

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/vidsage/vidsage/engine/domain"
	"github.com/vidsage/vidsage/pkg/fn"
)

const embedBatchSize = 100

// pointsAPI is the slice of pb.PointsClient the store uses.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Count(ctx context.Context, in *pb.CountPoints, opts ...grpc.CallOption) (*pb.CountResponse, error)
	Scroll(ctx context.Context, in *pb.ScrollPoints, opts ...grpc.CallOption) (*pb.ScrollResponse, error)
}

// collectionsAPI is the slice of pb.CollectionsClient the store uses.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// VectorStore is the sole owner of all Qdrant operations.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
	embedder    Embedder
	dims        int
	initialized bool
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
// Call Initialize before any other operation.
func New(addr, collection string, embedder Embedder, dims int) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		embedder:    embedder,
		dims:        dims,
	}, nil
}

// NewWithClients builds a VectorStore on caller-supplied clients. Used in tests.
func NewWithClients(points pointsAPI, collections collectionsAPI, collection string, embedder Embedder, dims int) *VectorStore {
	return &VectorStore{
		points:      points,
		collections: collections,
		collection:  collection,
		embedder:    embedder,
		dims:        dims,
	}
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	if v.conn == nil {
		return nil
	}
	return v.conn.Close()
}

// Initialize creates the collection if it doesn't exist. Idempotent.
func (v *VectorStore) Initialize(ctx context.Context) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("%w: list collections: %v", domain.ErrStoreUnavailable, err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			v.initialized = true
			return nil
		}
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(v.dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: create collection %s: %v", domain.ErrStoreUnavailable, v.collection, err)
	}
	v.initialized = true
	return nil
}

func (v *VectorStore) ready() error {
	if !v.initialized {
		return fmt.Errorf("%w: collection %s not initialized", domain.ErrStoreUnavailable, v.collection)
	}
	return nil
}

// AddItemChunks embeds and stores a video's chunks. If any chunks for
// the video already exist the whole call is a no-op and returns 0:
// deduplication is all-or-nothing at video granularity.
func (v *VectorStore) AddItemChunks(ctx context.Context, videoID, videoURL, title string, chunks []string) (int, error) {
	if err := v.ready(); err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	existing, err := v.countByVideo(ctx, videoID)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, nil
	}

	var vectors [][]float32
	for _, batch := range fn.Chunk(chunks, embedBatchSize) {
		vs, err := v.embedder.EmbedBatch(ctx, batch, EmbedDocument)
		if err != nil {
			return 0, err
		}
		vectors = append(vectors, vs...)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("%w: embedder returned %d vectors for %d chunks", domain.ErrEmbeddingBackend, len(vectors), len(chunks))
	}

	points := make([]*pb.PointStruct, len(chunks))
	for i, text := range chunks {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: chunkPointID(videoID, i)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: vectors[i]},
				},
			},
			Payload: map[string]*pb.Value{
				"content":     {Kind: &pb.Value_StringValue{StringValue: text}},
				"video_id":    {Kind: &pb.Value_StringValue{StringValue: videoID}},
				"video_url":   {Kind: &pb.Value_StringValue{StringValue: videoURL}},
				"video_title": {Kind: &pb.Value_StringValue{StringValue: title}},
				"chunk_index": {Kind: &pb.Value_IntegerValue{IntegerValue: int64(i)}},
			},
		}
	}

	wait := true
	_, err = v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: upsert %d points: %v", domain.ErrStoreUnavailable, len(points), err)
	}
	return len(points), nil
}

// Search embeds the query and returns the topK nearest chunks, closest
// first. A non-empty videoID restricts results to that video.
func (v *VectorStore) Search(ctx context.Context, query string, topK int, videoID string) ([]RetrievedChunk, error) {
	if err := v.ready(); err != nil {
		return nil, err
	}

	vs, err := v.embedder.EmbedBatch(ctx, []string{query}, EmbedQuery)
	if err != nil {
		return nil, err
	}
	if len(vs) != 1 {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for one query", domain.ErrEmbeddingBackend, len(vs))
	}

	req := &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         vs[0],
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if videoID != "" {
		req.Filter = &pb.Filter{Must: []*pb.Condition{fieldMatch("video_id", videoID)}}
	}

	resp, err := v.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", domain.ErrStoreUnavailable, err)
	}

	results := make([]RetrievedChunk, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		rc := RetrievedChunk{
			// Qdrant reports cosine similarity; callers want distance.
			Distance: 1 - r.GetScore(),
		}
		for k, val := range r.GetPayload() {
			switch k {
			case "content":
				rc.Text = val.GetStringValue()
			case "video_id":
				rc.VideoID = val.GetStringValue()
			case "video_url":
				rc.VideoURL = val.GetStringValue()
			case "video_title":
				rc.Title = val.GetStringValue()
			case "chunk_index":
				rc.Ordinal = int(val.GetIntegerValue())
			}
		}
		results[i] = rc
	}
	return results, nil
}

// DeleteItem removes all chunks for a video and reports how many existed.
func (v *VectorStore) DeleteItem(ctx context.Context, videoID string) (int, error) {
	if err := v.ready(); err != nil {
		return 0, err
	}

	existing, err := v.countByVideo(ctx, videoID)
	if err != nil {
		return 0, err
	}
	if existing == 0 {
		return 0, nil
	}

	wait := true
	_, err = v.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{Must: []*pb.Condition{fieldMatch("video_id", videoID)}},
			},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: delete video %s: %v", domain.ErrStoreUnavailable, videoID, err)
	}
	return existing, nil
}

// Stats scrolls the whole collection to count chunks and distinct videos.
func (v *VectorStore) Stats(ctx context.Context) (Stats, error) {
	if err := v.ready(); err != nil {
		return Stats{}, err
	}

	seen := make(map[string]bool)
	var stats Stats
	limit := uint32(256)
	var offset *pb.PointId

	for {
		resp, err := v.points.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: v.collection,
			Limit:          &limit,
			Offset:         offset,
			WithPayload: &pb.WithPayloadSelector{
				SelectorOptions: &pb.WithPayloadSelector_Include{
					Include: &pb.PayloadIncludeSelector{Fields: []string{"video_id"}},
				},
			},
		})
		if err != nil {
			return Stats{}, fmt.Errorf("%w: scroll: %v", domain.ErrStoreUnavailable, err)
		}

		for _, p := range resp.GetResult() {
			stats.TotalChunks++
			id := p.GetPayload()["video_id"].GetStringValue()
			if id != "" && !seen[id] {
				seen[id] = true
				stats.ItemIDs = append(stats.ItemIDs, id)
			}
		}

		offset = resp.GetNextPageOffset()
		if offset == nil || len(resp.GetResult()) == 0 {
			break
		}
	}

	stats.TotalItems = len(stats.ItemIDs)
	return stats, nil
}

func (v *VectorStore) countByVideo(ctx context.Context, videoID string) (int, error) {
	exact := true
	resp, err := v.points.Count(ctx, &pb.CountPoints{
		CollectionName: v.collection,
		Exact:          &exact,
		Filter:         &pb.Filter{Must: []*pb.Condition{fieldMatch("video_id", videoID)}},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count video %s: %v", domain.ErrStoreUnavailable, videoID, err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// chunkPointID derives a stable point UUID from the video ID and chunk
// ordinal, so re-ingesting a video can never produce duplicate points.
func chunkPointID(videoID string, ordinal int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s:%d", videoID, ordinal))).String()
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}
