package qdrantindex

import (
	"context"
	"errors"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kailas-cloud/locadex/internal/domain"
	"github.com/kailas-cloud/locadex/internal/domain/vector"
)

type fakePoints struct {
	upserted *pb.UpsertPoints
	searched *pb.SearchPoints
	deleted  *pb.DeletePoints
	search   *pb.SearchResponse
	get      *pb.GetResponse
	err      error
}

func (f *fakePoints) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	f.upserted = in
	return &pb.PointsOperationResponse{}, f.err
}

func (f *fakePoints) Search(_ context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	f.searched = in
	if f.err != nil {
		return nil, f.err
	}
	if f.search == nil {
		return &pb.SearchResponse{}, nil
	}
	return f.search, nil
}

func (f *fakePoints) Get(_ context.Context, _ *pb.GetPoints, _ ...grpc.CallOption) (*pb.GetResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.get == nil {
		return &pb.GetResponse{}, nil
	}
	return f.get, nil
}

func (f *fakePoints) Delete(_ context.Context, in *pb.DeletePoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	f.deleted = in
	return &pb.PointsOperationResponse{}, f.err
}

type fakeCollections struct {
	exists  bool
	created *pb.CreateCollection
	err     error
}

func (f *fakeCollections) CollectionExists(
	_ context.Context, _ *pb.CollectionExistsRequest, _ ...grpc.CallOption,
) (*pb.CollectionExistsResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &pb.CollectionExistsResponse{Result: &pb.CollectionExists{Exists: f.exists}}, nil
}

func (f *fakeCollections) Create(
	_ context.Context, in *pb.CreateCollection, _ ...grpc.CallOption,
) (*pb.CollectionOperationResponse, error) {
	f.created = in
	return &pb.CollectionOperationResponse{Result: true}, nil
}

func strVal(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func TestPointID_StableAndDistinct(t *testing.T) {
	a1, a2, b := PointID("listing_1"), PointID("listing_1"), PointID("listing_2")
	if a1 != a2 {
		t.Error("point id must be deterministic")
	}
	if a1 == b {
		t.Error("different ids must map to different points")
	}
}

func TestEnsureIndex_Creates(t *testing.T) {
	cols := &fakeCollections{}
	r := newRepo(&fakePoints{}, cols, "listings")

	if err := r.EnsureIndex(context.Background(), 1536); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols.created == nil {
		t.Fatal("expected collection create")
	}
	params := cols.created.GetVectorsConfig().GetParams()
	if params.GetSize() != 1536 || params.GetDistance() != pb.Distance_Cosine {
		t.Errorf("unexpected params: %v", params)
	}
}

func TestEnsureIndex_Exists(t *testing.T) {
	cols := &fakeCollections{exists: true}
	r := newRepo(&fakePoints{}, cols, "listings")
	if err := r.EnsureIndex(context.Background(), 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols.created != nil {
		t.Error("existing collection must not be recreated")
	}
}

func TestUpsertBatch_Payload(t *testing.T) {
	pts := &fakePoints{}
	r := newRepo(pts, &fakeCollections{}, "listings")

	err := r.UpsertBatch(context.Background(), []vector.Entry{{
		ID:       "listing_1",
		Values:   []float32{0.1, 0.2},
		Metadata: map[string]string{"category": "bakery", "tags": "bio, vegan"},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := pts.upserted.GetPoints()[0]
	if p.GetId().GetUuid() != PointID("listing_1") {
		t.Errorf("unexpected point id %s", p.GetId().GetUuid())
	}
	if p.GetPayload()["vector_id"].GetStringValue() != "listing_1" {
		t.Error("original id must be kept in payload")
	}
	tags := p.GetPayload()["tags"].GetListValue().GetValues()
	if len(tags) != 2 || tags[1].GetStringValue() != "vegan" {
		t.Errorf("tags should be a keyword list, got %v", tags)
	}
	if !pts.upserted.GetWait() {
		t.Error("upsert should wait for persistence")
	}
}

func TestUpsert_Invalid(t *testing.T) {
	r := newRepo(&fakePoints{}, &fakeCollections{}, "listings")
	err := r.Upsert(context.Background(), vector.Entry{ID: "listing_1"})
	if !errors.Is(err, domain.ErrInvalidListing) {
		t.Fatalf("expected ErrInvalidListing, got %v", err)
	}
}

func TestQuery_FilterAndMapping(t *testing.T) {
	pts := &fakePoints{search: &pb.SearchResponse{Result: []*pb.ScoredPoint{
		{Score: 0.7, Payload: map[string]*pb.Value{"vector_id": strVal("listing_2"), "city": strVal("Berlin")}},
		{Score: 0.95, Payload: map[string]*pb.Value{"vector_id": strVal("listing_1")}},
		{Score: -0.2, Payload: map[string]*pb.Value{"vector_id": strVal("listing_3")}},
	}}}
	r := newRepo(pts, &fakeCollections{}, "listings")

	matches, err := r.Query(context.Background(), []float32{1, 0}, 3,
		map[string]string{"status": "active", "category": "bakery"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	must := pts.searched.GetFilter().GetMust()
	if len(must) != 2 || must[0].GetField().GetKey() != "category" ||
		must[0].GetField().GetMatch().GetKeyword() != "bakery" {
		t.Errorf("unexpected filter: %v", must)
	}
	if pts.searched.GetLimit() != 3 {
		t.Errorf("limit = %d", pts.searched.GetLimit())
	}
	if len(matches) != 3 || matches[0].ID != "listing_1" || matches[1].Metadata["city"] != "Berlin" {
		t.Errorf("unexpected matches: %+v", matches)
	}
	if matches[2].Score != 0 {
		t.Errorf("negative similarity should clamp to 0, got %v", matches[2].Score)
	}
}

func TestQuery_Errors(t *testing.T) {
	pts := &fakePoints{err: status.Error(codes.DeadlineExceeded, "slow")}
	r := newRepo(pts, &fakeCollections{}, "listings")
	if _, err := r.Query(context.Background(), []float32{1}, 5, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline, got %v", err)
	}

	pts.err = status.Error(codes.Unavailable, "down")
	if _, err := r.Query(context.Background(), []float32{1}, 5, nil); !errors.Is(err, domain.ErrProviderError) {
		t.Errorf("expected ErrProviderError, got %v", err)
	}

	if _, err := r.Query(context.Background(), nil, 5, nil); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestVector_NotFound(t *testing.T) {
	r := newRepo(&fakePoints{}, &fakeCollections{}, "listings")
	if _, err := r.Vector(context.Background(), "listing_1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteByIDs(t *testing.T) {
	pts := &fakePoints{}
	r := newRepo(pts, &fakeCollections{}, "listings")
	if err := r.DeleteByIDs(context.Background(), []string{"listing_1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := pts.deleted.GetPoints().GetPoints().GetIds()
	if len(ids) != 1 || ids[0].GetUuid() != PointID("listing_1") {
		t.Errorf("unexpected ids: %v", ids)
	}
}
