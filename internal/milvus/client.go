package milvus

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
	"go.uber.org/zap"

	"github.com/tsukihi/ruiji/internal/config"
	"github.com/tsukihi/ruiji/internal/models"
	"github.com/tsukihi/ruiji/internal/schema"
)

// Client implements Store against a running Milvus service.
type Client struct {
	cli    *milvusclient.Client
	logger *zap.Logger
}

// Connect dials the database with bounded retry. Milvus can take tens of
// seconds to come up under docker-compose, so a fresh `ruiji serve` right
// after `docker-compose up -d` should not fail immediately.
func Connect(ctx context.Context, cfg *config.MilvusConfig, logger *zap.Logger) (*Client, error) {
	var lastErr error
	for attempt := 0; attempt < cfg.ConnectAttempts; attempt++ {
		dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		cli, err := milvusclient.New(dialCtx, &milvusclient.ClientConfig{
			Address:  cfg.Address,
			Username: cfg.Username,
			Password: cfg.Password,
			DBName:   cfg.Database,
		})
		cancel()
		if err == nil {
			logger.Info("connected to milvus",
				zap.String("address", cfg.Address),
				zap.Int("attempt", attempt+1))
			return &Client{cli: cli, logger: logger}, nil
		}
		lastErr = err
		logger.Warn("milvus connect attempt failed",
			zap.String("address", cfg.Address),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect to %s: %w: %v", cfg.Address, ErrUnavailable, ctx.Err())
		case <-time.After(cfg.RetryDelay):
		}
	}
	return nil, fmt.Errorf("connect to %s after %d attempts: %w: %v",
		cfg.Address, cfg.ConnectAttempts, ErrUnavailable, lastErr)
}

// Has reports whether the named collection exists.
func (c *Client) Has(ctx context.Context, name string) (bool, error) {
	has, err := c.cli.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err != nil {
		return false, fmt.Errorf("has collection %q: %w: %v", name, ErrUnavailable, err)
	}
	return has, nil
}

// Create creates the collection, the vector index, and loads the collection.
func (c *Client) Create(ctx context.Context, col *schema.Collection) error {
	opt := milvusclient.NewCreateCollectionOption(col.Name, toEntitySchema(col)).
		WithConsistencyLevel(consistencyLevel(col.Consistency))
	if err := c.cli.CreateCollection(ctx, opt); err != nil {
		return fmt.Errorf("create collection %q: %w: %v", col.Name, ErrUnavailable, err)
	}

	vf := col.VectorField()
	idx := vectorIndex(col.Index)
	c.logger.Info("creating vector index",
		zap.String("collection", col.Name),
		zap.String("field", vf.Name),
		zap.String("type", col.Index.Type),
		zap.String("metric", col.Index.Metric))
	task, err := c.cli.CreateIndex(ctx, milvusclient.NewCreateIndexOption(col.Name, vf.Name, idx))
	if err != nil {
		return fmt.Errorf("create index on %q: %w: %v", col.Name, ErrUnavailable, err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("await index on %q: %w: %v", col.Name, ErrUnavailable, err)
	}

	loadTask, err := c.cli.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(col.Name))
	if err != nil {
		return fmt.Errorf("load collection %q: %w: %v", col.Name, ErrUnavailable, err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("await load of %q: %w: %v", col.Name, ErrUnavailable, err)
	}
	return nil
}

// Describe returns the schema of an existing collection.
func (c *Client) Describe(ctx context.Context, name string) (*schema.Collection, error) {
	desc, err := c.cli.DescribeCollection(ctx, milvusclient.NewDescribeCollectionOption(name))
	if err != nil {
		return nil, fmt.Errorf("describe collection %q: %w: %v", name, ErrUnavailable, err)
	}
	return fromEntitySchema(desc.Schema), nil
}

// Drop removes the collection.
func (c *Client) Drop(ctx context.Context, name string) error {
	if err := c.cli.DropCollection(ctx, milvusclient.NewDropCollectionOption(name)); err != nil {
		return fmt.Errorf("drop collection %q: %w: %v", name, ErrUnavailable, err)
	}
	return nil
}

// Insert forwards a batch of canonical records as columnar data.
func (c *Client) Insert(ctx context.Context, col *schema.Collection, records []models.Record) (int64, error) {
	columns, err := toColumns(col, records)
	if err != nil {
		return 0, err
	}
	res, err := c.cli.Insert(ctx, milvusclient.NewColumnBasedInsertOption(col.Name, columns...))
	if err != nil {
		return 0, fmt.Errorf("insert into %q: %w: %v", col.Name, ErrUnavailable, err)
	}
	return res.InsertCount, nil
}

// Delete removes entities matching the filter expression.
func (c *Client) Delete(ctx context.Context, col *schema.Collection, filter string) (int64, error) {
	res, err := c.cli.Delete(ctx, milvusclient.NewDeleteOption(col.Name).WithExpr(filter))
	if err != nil {
		return 0, fmt.Errorf("delete from %q: %w: %v", col.Name, ErrUnavailable, err)
	}
	return res.DeleteCount, nil
}

// Search runs a vector similarity query.
func (c *Client) Search(ctx context.Context, col *schema.Collection, req *SearchRequest) ([]*models.SearchHit, error) {
	vf := col.VectorField()
	opt := milvusclient.NewSearchOption(col.Name, req.Limit, []entity.Vector{entity.FloatVector(req.Vector)}).
		WithANNSField(vf.Name).
		WithOutputFields(req.OutputFields...).
		WithConsistencyLevel(consistencyLevel(col.Consistency))
	if ap := annParam(col.Index); ap != nil {
		opt = opt.WithAnnParam(ap)
	}

	start := time.Now()
	results, err := c.cli.Search(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w: %v", col.Name, ErrUnavailable, err)
	}
	c.logger.Debug("search completed",
		zap.String("collection", col.Name),
		zap.Duration("latency", time.Since(start)))

	var hits []*models.SearchHit
	for _, rs := range results {
		for i := 0; i < rs.ResultCount; i++ {
			hit := &models.SearchHit{
				ID:    idAt(rs.IDs, i),
				Score: float64(rs.Scores[i]),
			}
			if len(req.OutputFields) > 0 {
				hit.Fields = make(map[string]interface{}, len(req.OutputFields))
				for _, name := range req.OutputFields {
					fieldCol := rs.GetColumn(name)
					if fieldCol == nil {
						continue
					}
					if v, err := fieldCol.Get(i); err == nil {
						hit.Fields[name] = v
					}
				}
			}
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

// Flush persists growing segments.
func (c *Client) Flush(ctx context.Context, name string) error {
	task, err := c.cli.Flush(ctx, milvusclient.NewFlushOption(name))
	if err != nil {
		return fmt.Errorf("flush %q: %w: %v", name, ErrUnavailable, err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("await flush of %q: %w: %v", name, ErrUnavailable, err)
	}
	return nil
}

// RowCount returns the persisted row count from collection stats.
func (c *Client) RowCount(ctx context.Context, name string) (int64, error) {
	stats, err := c.cli.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(name))
	if err != nil {
		return 0, fmt.Errorf("stats for %q: %w: %v", name, ErrUnavailable, err)
	}
	n, err := strconv.ParseInt(stats["row_count"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("stats for %q: unexpected row_count %q", name, stats["row_count"])
	}
	return n, nil
}

// Close releases the connection.
func (c *Client) Close(ctx context.Context) error {
	return c.cli.Close(ctx)
}

func consistencyLevel(s string) entity.ConsistencyLevel {
	switch s {
	case "Bounded":
		return entity.ClBounded
	case "Session":
		return entity.ClSession
	case "Eventually":
		return entity.ClEventually
	default:
		return entity.ClStrong
	}
}

func vectorIndex(ix schema.Index) index.Index {
	metric := entity.MetricType(ix.Metric)
	switch ix.Type {
	case schema.IndexIVFFlat:
		return index.NewIvfFlatIndex(metric, ix.Nlist)
	case schema.IndexHNSW:
		return index.NewHNSWIndex(metric, 16, 200)
	case schema.IndexFlat:
		return index.NewFlatIndex(metric)
	default:
		return index.NewAutoIndex(metric)
	}
}

func annParam(ix schema.Index) index.AnnParam {
	switch ix.Type {
	case schema.IndexIVFFlat:
		return index.NewIvfAnnParam(ix.Nprobe)
	case schema.IndexHNSW:
		return index.NewHNSWAnnParam(64)
	default:
		return nil
	}
}
