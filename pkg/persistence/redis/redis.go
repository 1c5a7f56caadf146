// Package redis provides Redis-backed persistence. Each record is a JSON string key and each
// collection keeps a sorted set of ids scored by id, so listings come back in id order.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

const defaultNamespace = "flowforge"

// Option configures the Redis persistence.
type Option func(*Persistence)

// WithNamespace sets the key prefix.
func WithNamespace(ns string) Option {
	return func(p *Persistence) {
		if ns != "" {
			p.namespace = ns
		}
	}
}

// Persistence implements persistence.Persistence on top of a Redis client.
type Persistence struct {
	client    goredis.UniversalClient
	namespace string
}

var (
	_ persistence.Persistence     = (*Persistence)(nil)
	_ persistence.AtomicPublisher = (*Persistence)(nil)
)

// NewPersistence connects to redisURL (e.g. "redis://localhost:6379/0") and verifies the
// connection.
func NewPersistence(ctx context.Context, redisURL string, opts ...Option) (*Persistence, error) {
	redisOpts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := goredis.NewClient(redisOpts)

	p := NewPersistenceWithClient(client, opts...)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.HealthCheck(pingCtx); err != nil {
		_ = client.Close()

		return nil, err
	}

	return p, nil
}

// NewPersistenceWithClient wraps an existing client.
func NewPersistenceWithClient(client goredis.UniversalClient, opts ...Option) *Persistence {
	p := &Persistence{client: client, namespace: defaultNamespace}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Persistence) draftKey(id int64) string {
	return p.namespace + ":draft:" + strconv.FormatInt(id, 10)
}

func (p *Persistence) draftIndexKey() string {
	return p.namespace + ":drafts"
}

func (p *Persistence) liveFlowKey(id int64) string {
	return p.namespace + ":live:" + strconv.FormatInt(id, 10)
}

func (p *Persistence) liveFlowIndexKey() string {
	return p.namespace + ":live-flows"
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}

func (p *Persistence) Drafts(ctx context.Context) ([]*models.Draft, error) {
	drafts, err := loadAll[models.Draft](ctx, p.client, p.draftIndexKey(), p.draftKey)
	if err != nil {
		return nil, persistence.NewDraftError("GetAll", 0, err)
	}

	return drafts, nil
}

func (p *Persistence) DraftByID(ctx context.Context, id int64) (*models.Draft, error) {
	draft, err := load[models.Draft](ctx, p.client, p.draftKey(id))
	if err != nil {
		return nil, persistence.NewDraftError("GetByID", id, err)
	}

	return draft, nil
}

func (p *Persistence) SaveDraft(ctx context.Context, draft *models.Draft) error {
	stampDraft(draft)

	data, err := json.Marshal(draft)
	if err != nil {
		return persistence.NewDraftError("Save", draft.ID, err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, p.draftKey(draft.ID), data, 0)
		pipe.ZAdd(ctx, p.draftIndexKey(), goredis.Z{Score: float64(draft.ID), Member: draft.ID})

		return nil
	})
	if err != nil {
		return persistence.NewDraftError("Save", draft.ID, err)
	}

	return nil
}

func (p *Persistence) DeleteDraft(ctx context.Context, id int64) error {
	_, err := p.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, p.draftKey(id))
		pipe.ZRem(ctx, p.draftIndexKey(), id)

		return nil
	})
	if err != nil {
		return persistence.NewDraftError("Delete", id, err)
	}

	return nil
}

func (p *Persistence) LiveFlows(ctx context.Context) ([]*models.LiveFlow, error) {
	flows, err := loadAll[models.LiveFlow](ctx, p.client, p.liveFlowIndexKey(), p.liveFlowKey)
	if err != nil {
		return nil, persistence.NewLiveFlowError("GetAll", 0, err)
	}

	return flows, nil
}

func (p *Persistence) LiveFlowByID(ctx context.Context, id int64) (*models.LiveFlow, error) {
	flow, err := load[models.LiveFlow](ctx, p.client, p.liveFlowKey(id))
	if err != nil {
		return nil, persistence.NewLiveFlowError("GetByID", id, err)
	}

	return flow, nil
}

func (p *Persistence) SaveLiveFlow(ctx context.Context, flow *models.LiveFlow) error {
	stampLiveFlow(flow)

	data, err := json.Marshal(flow)
	if err != nil {
		return persistence.NewLiveFlowError("Save", flow.ID, err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		p.queueLiveFlow(ctx, pipe, flow.ID, data)

		return nil
	})
	if err != nil {
		return persistence.NewLiveFlowError("Save", flow.ID, err)
	}

	return nil
}

func (p *Persistence) DeleteLiveFlow(ctx context.Context, id int64) error {
	_, err := p.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, p.liveFlowKey(id))
		pipe.ZRem(ctx, p.liveFlowIndexKey(), id)

		return nil
	})
	if err != nil {
		return persistence.NewLiveFlowError("Delete", id, err)
	}

	return nil
}

// PublishDraft writes flow and removes the draft inside one MULTI/EXEC block.
func (p *Persistence) PublishDraft(ctx context.Context, flow *models.LiveFlow, draftID int64) error {
	stampLiveFlow(flow)

	data, err := json.Marshal(flow)
	if err != nil {
		return persistence.NewLiveFlowError("Publish", flow.ID, err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		p.queueLiveFlow(ctx, pipe, flow.ID, data)
		pipe.Del(ctx, p.draftKey(draftID))
		pipe.ZRem(ctx, p.draftIndexKey(), draftID)

		return nil
	})
	if err != nil {
		return persistence.NewLiveFlowError("Publish", flow.ID, err)
	}

	return nil
}

func (p *Persistence) queueLiveFlow(ctx context.Context, pipe goredis.Pipeliner, id int64, data []byte) {
	pipe.Set(ctx, p.liveFlowKey(id), data, 0)
	pipe.ZAdd(ctx, p.liveFlowIndexKey(), goredis.Z{Score: float64(id), Member: id})
}

// load returns (nil, nil) when key does not exist.
func load[T any](ctx context.Context, client goredis.UniversalClient, key string) (*T, error) {
	data, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	var record T
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %w", persistence.ErrCorruptRecord, err)
	}

	return &record, nil
}

func loadAll[T any](ctx context.Context, client goredis.UniversalClient, indexKey string, key func(int64) string) ([]*T, error) {
	members, err := client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing index: %w", err)
	}

	if len(members) == 0 {
		return []*T{}, nil
	}

	keys := make([]string, 0, len(members))

	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: index member %q", persistence.ErrCorruptRecord, member)
		}

		keys = append(keys, key(id))
	}

	values, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetching records: %w", err)
	}

	records := make([]*T, 0, len(values))

	for i, val := range values {
		raw, ok := val.(string)
		if !ok {
			// Index entry without a record; skip it.
			continue
		}

		var record T
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", persistence.ErrCorruptRecord, keys[i], err)
		}

		records = append(records, &record)
	}

	return records, nil
}

func stampDraft(draft *models.Draft) {
	now := time.Now().UTC()
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}

	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = now
	}
}

func stampLiveFlow(flow *models.LiveFlow) {
	now := time.Now().UTC()
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	if flow.UpdatedAt.IsZero() {
		flow.UpdatedAt = now
	}
}
