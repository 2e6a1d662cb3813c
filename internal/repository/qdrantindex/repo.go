// Package qdrantindex is the Qdrant implementation of the vector index adapter.
package qdrantindex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/kailas-cloud/locadex/internal/domain"
	"github.com/kailas-cloud/locadex/internal/domain/vector"
)

const idPayloadKey = "vector_id"

// listPayloadKeys hold comma-joined values that are stored as keyword lists.
var listPayloadKeys = map[string]bool{"tags": true}

// pointNamespace seeds the UUIDv5 point ids derived from vector ids.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://locadex/vector"))

type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Get(ctx context.Context, in *pb.GetPoints, opts ...grpc.CallOption) (*pb.GetResponse, error)
	Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
}

type collectionsAPI interface {
	CollectionExists(
		ctx context.Context, in *pb.CollectionExistsRequest, opts ...grpc.CallOption,
	) (*pb.CollectionExistsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// Repo stores listing vectors as Qdrant points.
type Repo struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
	dim         atomic.Int64
}

// Dial connects to Qdrant's gRPC endpoint without TLS.
func Dial(addr, collection string) (*Repo, error) {
	if collection == "" {
		return nil, errors.New("collection is required")
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	r := newRepo(pb.NewPointsClient(conn), pb.NewCollectionsClient(conn), collection)
	r.conn = conn
	return r, nil
}

func newRepo(points pointsAPI, collections collectionsAPI, collection string) *Repo {
	return &Repo{points: points, collections: collections, collection: collection}
}

// Close releases the gRPC connection.
func (r *Repo) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

// PointID derives the stable point UUID for a vector id.
func PointID(vectorID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(vectorID)).String()
}

// EnsureIndex creates a cosine collection of dim-sized vectors when missing.
func (r *Repo) EnsureIndex(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", dim)
	}
	r.dim.Store(int64(dim))

	resp, err := r.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: r.collection})
	if err != nil {
		return wrapErr("collection exists", err)
	}
	if resp.GetResult().GetExists() {
		return nil
	}

	_, err = r.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{Params: &pb.VectorParams{
			Size:     uint64(dim),
			Distance: pb.Distance_Cosine,
		}}},
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return wrapErr("create collection", err)
	}
	return nil
}

// Healthy reports whether the collection exists.
func (r *Repo) Healthy(ctx context.Context) error {
	resp, err := r.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: r.collection})
	if err != nil {
		return wrapErr("collection exists", err)
	}
	if !resp.GetResult().GetExists() {
		return fmt.Errorf("%w: collection %s", domain.ErrNotFound, r.collection)
	}
	return nil
}

// Upsert writes one point.
func (r *Repo) Upsert(ctx context.Context, e vector.Entry) error {
	return r.UpsertBatch(ctx, []vector.Entry{e})
}

// UpsertBatch writes all points in one call. Qdrant replaces the whole
// payload of an upserted point, so no stale metadata survives.
func (r *Repo) UpsertBatch(ctx context.Context, entries []vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	dim := int(r.dim.Load())
	points := make([]*pb.PointStruct, len(entries))
	for i := range entries {
		e := &entries[i]
		if err := e.Validate(dim); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrInvalidListing, err)
		}
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(e.ID)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: e.Values}}},
			Payload: toPayload(e),
		}
	}

	wait := true
	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return wrapErr("upsert", err)
	}
	return nil
}

// Query returns up to topK nearest points, best first.
func (r *Repo) Query(
	ctx context.Context, vec []float32, topK int, filter map[string]string,
) ([]vector.Match, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", domain.ErrInvalidQuery)
	}
	if topK <= 0 {
		return nil, nil
	}

	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         vec,
		Limit:          uint64(topK),
		Filter:         toFilter(filter),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, wrapErr("search", err)
	}

	matches := make([]vector.Match, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		id, meta := fromPayload(pt.GetPayload())
		if id == "" {
			id = pt.GetId().GetUuid()
		}
		matches = append(matches, vector.Match{
			ID:       id,
			Score:    vector.Clamp01(float64(pt.GetScore())),
			Metadata: meta,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Vector returns the stored vector for id, or domain.ErrNotFound.
func (r *Repo) Vector(ctx context.Context, id string) ([]float32, error) {
	resp, err := r.points.Get(ctx, &pb.GetPoints{
		CollectionName: r.collection,
		Ids:            []*pb.PointId{{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(id)}}},
		WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("vector %s: %w", id, domain.ErrNotFound)
		}
		return nil, wrapErr("get point", err)
	}
	for _, pt := range resp.GetResult() {
		if data := pt.GetVectors().GetVector().GetData(); len(data) > 0 {
			return data, nil
		}
	}
	return nil, fmt.Errorf("vector %s: %w", id, domain.ErrNotFound)
}

// DeleteByIDs removes points. Unknown ids are ignored by Qdrant.
func (r *Repo) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pids := make([]*pb.PointId, len(ids))
	for i, id := range ids {
		pids[i] = &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(id)}}
	}
	wait := true
	_, err := r.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: r.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{PointsSelectorOneOf: &pb.PointsSelector_Points{
			Points: &pb.PointsIdsList{Ids: pids},
		}},
	})
	if err != nil {
		return wrapErr("delete", err)
	}
	return nil
}

func toPayload(e *vector.Entry) map[string]*pb.Value {
	payload := make(map[string]*pb.Value, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		if listPayloadKeys[k] {
			payload[k] = keywordList(v)
			continue
		}
		payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
	}
	payload[idPayloadKey] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: e.ID}}
	return payload
}

func keywordList(joined string) *pb.Value {
	var values []*pb.Value
	for _, part := range strings.Split(joined, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, &pb.Value{Kind: &pb.Value_StringValue{StringValue: part}})
		}
	}
	return &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: values}}}
}

func fromPayload(payload map[string]*pb.Value) (string, map[string]string) {
	meta := make(map[string]string, len(payload))
	var id string
	for k, v := range payload {
		if k == idPayloadKey {
			id = v.GetStringValue()
			continue
		}
		if list := v.GetListValue(); list != nil {
			parts := make([]string, 0, len(list.GetValues()))
			for _, item := range list.GetValues() {
				parts = append(parts, item.GetStringValue())
			}
			meta[k] = strings.Join(parts, ",")
			continue
		}
		meta[k] = v.GetStringValue()
	}
	return id, meta
}

func toFilter(filter map[string]string) *pb.Filter {
	if len(filter) == 0 {
		return nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	must := make([]*pb.Condition, 0, len(keys))
	for _, k := range keys {
		must = append(must, &pb.Condition{ConditionOneOf: &pb.Condition_Field{Field: &pb.FieldCondition{
			Key:   k,
			Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: filter[k]}},
		}}})
	}
	return &pb.Filter{Must: must}
}

func wrapErr(op string, err error) error {
	switch status.Code(err) {
	case codes.DeadlineExceeded:
		return fmt.Errorf("qdrant %s: %w: %w", op, context.DeadlineExceeded, err)
	case codes.Canceled:
		return fmt.Errorf("qdrant %s: %w: %w", op, context.Canceled, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("qdrant %s: %w", op, err)
	}
	return fmt.Errorf("%w: qdrant %s: %w", domain.ErrProviderError, op, err)
}
