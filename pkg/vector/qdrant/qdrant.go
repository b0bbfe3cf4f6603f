// Package qdrant provides a vector.Persister that mirrors snapshots into
// Qdrant collections published behind an alias.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/papercomputeco/pdfqa/pkg/vector"
)

const (
	// DefaultCollection is the collection used when none is configured.
	DefaultCollection = "pdfqa_chunks"

	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	pageSize = 256
)

// Config holds configuration for the Qdrant persister.
type Config struct {
	// Target is the Qdrant gRPC address as "host" or "host:port".
	Target string

	// Collection is the alias the current snapshot is published under,
	// defaults to DefaultCollection.
	Collection string

	// APIKey is an optional Qdrant API key.
	APIKey string
}

// pointsClient is the subset of the Qdrant client used by the persister.
type pointsClient interface {
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	DeleteCollection(ctx context.Context, collectionName string) error
	GetCollectionInfo(ctx context.Context, collectionName string) (*qdrant.CollectionInfo, error)
	ListAliases(ctx context.Context) ([]*qdrant.AliasDescription, error)
	UpdateAliases(ctx context.Context, actions []*qdrant.AliasOperations) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Scroll(ctx context.Context, request *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, error)
	Close() error
}

// Persister implements vector.Persister on Qdrant. Collection is used as an
// alias over one generation collection per save. Point IDs are the record
// IDs; chunk fields are stored in the payload.
type Persister struct {
	client     pointsClient
	collection string
	logger     *zap.Logger
}

// NewPersister connects to Qdrant.
func NewPersister(c Config, logger *zap.Logger) (*Persister, error) {
	if c.Target == "" {
		return nil, errors.New("qdrant target is required")
	}

	host, port, err := splitTarget(c.Target)
	if err != nil {
		return nil, err
	}

	collection := c.Collection
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	logger.Info("qdrant snapshot persister initialized",
		zap.String("host", host),
		zap.Int("port", port),
		zap.String("collection", collection),
	)

	return &Persister{
		client:     client,
		collection: collection,
		logger:     logger,
	}, nil
}

func splitTarget(target string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// no port given
		return target, DefaultPort, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, nil
}

// Save writes the snapshot into a fresh collection and then points the
// configured name, which is a Qdrant alias, at it in one alias update. Any
// failure before the switch drops the new collection and leaves the previous
// snapshot readable.
func (p *Persister) Save(ctx context.Context, snap *vector.Snapshot) error {
	prev, err := p.currentCollection(ctx)
	if err != nil {
		return err
	}

	if snap.Len() == 0 {
		return p.switchAlias(ctx, prev, "")
	}

	next := p.collection + "_" + uuid.NewString()
	err = p.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: next,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(snap.Dimension),
			Distance: qdrant.Distance_Euclid,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	if err := p.upsertAll(ctx, next, snap); err != nil {
		p.dropCollection(ctx, next)
		return err
	}

	if err := p.switchAlias(ctx, prev, next); err != nil {
		p.dropCollection(ctx, next)
		return err
	}

	p.logger.Debug("saved snapshot to qdrant",
		zap.String("alias", p.collection),
		zap.String("collection", next),
		zap.Int("records", snap.Len()),
	)

	return nil
}

func (p *Persister) upsertAll(ctx context.Context, collection string, snap *vector.Snapshot) error {
	for start := 0; start < len(snap.Records); start += pageSize {
		end := min(start+pageSize, len(snap.Records))

		points := make([]*qdrant.PointStruct, 0, end-start)
		for _, r := range snap.Records[start:end] {
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDNum(r.ID),
				Vectors: qdrant.NewVectors(r.Embedding...),
				Payload: qdrant.NewValueMap(map[string]any{
					"text":        r.Chunk.Text,
					"source":      r.Chunk.Source,
					"chunk_index": int64(r.Chunk.ChunkIndex),
				}),
			})
		}

		if _, err := p.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		}); err != nil {
			return fmt.Errorf("upserting points %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// switchAlias moves the alias from prev to next. An empty next removes the
// alias. The superseded collection is dropped once the switch succeeded.
func (p *Persister) switchAlias(ctx context.Context, prev, next string) error {
	var ops []*qdrant.AliasOperations
	if prev != "" {
		ops = append(ops, qdrant.NewAliasDelete(p.collection))
	}
	if next != "" {
		ops = append(ops, qdrant.NewAliasCreate(p.collection, next))
	}
	if len(ops) == 0 {
		return nil
	}

	if err := p.client.UpdateAliases(ctx, ops); err != nil {
		return fmt.Errorf("switching alias %s: %w", p.collection, err)
	}

	if prev != "" {
		p.dropCollection(ctx, prev)
	}
	return nil
}

func (p *Persister) dropCollection(ctx context.Context, name string) {
	if err := p.client.DeleteCollection(ctx, name); err != nil {
		p.logger.Warn("failed to drop qdrant collection",
			zap.String("collection", name),
			zap.Error(err),
		)
	}
}

// currentCollection returns the collection behind the alias, or "" when the
// alias does not exist.
func (p *Persister) currentCollection(ctx context.Context) (string, error) {
	aliases, err := p.client.ListAliases(ctx)
	if err != nil {
		return "", fmt.Errorf("listing aliases: %w", err)
	}
	for _, a := range aliases {
		if a.GetAliasName() == p.collection {
			return a.GetCollectionName(), nil
		}
	}
	return "", nil
}

func (p *Persister) collectionDimension(ctx context.Context, collection string) (int, error) {
	info, err := p.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("reading collection info: %w", err)
	}
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	return int(params.GetSize()), nil
}

// Load scrolls the collection behind the alias in ID order. Reading stops at
// the first gap in the ID sequence.
func (p *Persister) Load(ctx context.Context) (*vector.Snapshot, error) {
	collection, err := p.currentCollection(ctx)
	if err != nil {
		return nil, err
	}
	if collection == "" {
		return nil, vector.ErrSnapshotNotFound
	}

	dim, err := p.collectionDimension(ctx, collection)
	if err != nil {
		return nil, err
	}

	snap := &vector.Snapshot{Dimension: dim}
	var offset *qdrant.PointId
scroll:
	for {
		points, err := p.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: collection,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(pageSize)),
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, fmt.Errorf("scrolling points: %w", err)
		}

		for _, pt := range points {
			if pt.GetId().GetNum() != uint64(snap.Len()) {
				p.logger.Warn("qdrant collection has a gap in point ids, ignoring the rest",
					zap.String("collection", collection),
					zap.Int("records", snap.Len()),
					zap.Uint64("next_id", pt.GetId().GetNum()),
				)
				break scroll
			}
			snap.Records = append(snap.Records, recordFromPoint(pt))
		}

		if len(points) < pageSize {
			break
		}
		offset = qdrant.NewIDNum(points[len(points)-1].GetId().GetNum() + 1)
	}

	if snap.Len() == 0 {
		snap.Dimension = 0
	}

	return snap, nil
}

func recordFromPoint(pt *qdrant.RetrievedPoint) vector.Record {
	payload := pt.GetPayload()

	out := pt.GetVectors().GetVector()
	embedding := out.GetData()
	if dense := out.GetDense(); dense != nil && len(dense.GetData()) > 0 {
		embedding = dense.GetData()
	}

	return vector.Record{
		ID: pt.GetId().GetNum(),
		Chunk: vector.Chunk{
			Text:       payload["text"].GetStringValue(),
			Source:     payload["source"].GetStringValue(),
			ChunkIndex: int(payload["chunk_index"].GetIntegerValue()),
		},
		Embedding: embedding,
	}
}

// Close closes the gRPC connection.
func (p *Persister) Close() error {
	return p.client.Close()
}

var _ vector.Persister = (*Persister)(nil)
