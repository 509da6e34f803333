package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/google/uuid"
)

// EtcdStore is a Store backed by etcd. Each job manifest is JSON-marshaled,
// Reed-Solomon sharded, and written to manifestDataShards+
// manifestParityShards keys under prefix plus one key holding the original
// payload length. This trades extra etcd keys for tolerance of losing any
// manifestParityShards of the shard keys; the size key itself is not
// protected, and a job whose size key is missing reads as ErrNotFound.
type EtcdStore struct {
	client *clientv3.Client
	prefix string
}

// NewEtcdStore builds an EtcdStore whose keys live under prefix.
func NewEtcdStore(client *clientv3.Client, prefix string) *EtcdStore {
	return &EtcdStore{client: client, prefix: strings.TrimSuffix(prefix, "/")}
}

func (s *EtcdStore) shardKey(id uuid.UUID, shard int) string {
	return fmt.Sprintf("%s/%s/shard-%d", s.prefix, id.String(), shard)
}

func (s *EtcdStore) sizeKey(id uuid.UUID) string {
	return fmt.Sprintf("%s/%s/size", s.prefix, id.String())
}

func (s *EtcdStore) put(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("jobs: marshaling job: %w", err)
	}
	shards, err := splitManifest(data)
	if err != nil {
		return err
	}

	ops := make([]clientv3.Op, 0, len(shards)+1)
	ops = append(ops, clientv3.OpPut(s.sizeKey(job.JobID), strconv.Itoa(len(data))))
	for i, shard := range shards {
		ops = append(ops, clientv3.OpPut(s.shardKey(job.JobID, i), string(shard)))
	}

	if _, err := s.client.Txn(ctx).Then(ops...).Commit(); err != nil {
		return fmt.Errorf("jobs: writing manifest shards: %w", err)
	}
	return nil
}

func (s *EtcdStore) get(ctx context.Context, id uuid.UUID) (*Job, error) {
	sizeResp, err := s.client.Get(ctx, s.sizeKey(id))
	if err != nil {
		return nil, fmt.Errorf("jobs: reading manifest size: %w", err)
	}
	if len(sizeResp.Kvs) == 0 {
		return nil, ErrNotFound
	}
	size, err := strconv.Atoi(string(sizeResp.Kvs[0].Value))
	if err != nil {
		return nil, fmt.Errorf("jobs: parsing manifest size: %w", err)
	}

	shards := make([][]byte, manifestDataShards+manifestParityShards)
	for i := range shards {
		resp, err := s.client.Get(ctx, s.shardKey(id, i))
		if err != nil {
			return nil, fmt.Errorf("jobs: reading manifest shard %d: %w", i, err)
		}
		if len(resp.Kvs) > 0 {
			shards[i] = resp.Kvs[0].Value
		}
	}

	data, err := joinManifest(shards, size)
	if err != nil {
		return nil, err
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("jobs: unmarshaling job: %w", err)
	}
	return &job, nil
}

// Create implements Store.
func (s *EtcdStore) Create(ctx context.Context, job *Job) error {
	if _, err := s.get(ctx, job.JobID); err == nil {
		return ErrExists
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.put(ctx, job)
}

// Get implements Store.
func (s *EtcdStore) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	return s.get(ctx, id)
}

// Update implements Store.
func (s *EtcdStore) Update(ctx context.Context, job *Job) error {
	if _, err := s.get(ctx, job.JobID); err != nil {
		return err
	}
	return s.put(ctx, job)
}

// Delete implements Store.
func (s *EtcdStore) Delete(ctx context.Context, id uuid.UUID) error {
	ops := make([]clientv3.Op, 0, manifestDataShards+manifestParityShards+1)
	ops = append(ops, clientv3.OpDelete(s.sizeKey(id)))
	for i := 0; i < manifestDataShards+manifestParityShards; i++ {
		ops = append(ops, clientv3.OpDelete(s.shardKey(id, i)))
	}
	if _, err := s.client.Txn(ctx).Then(ops...).Commit(); err != nil {
		return fmt.Errorf("jobs: deleting manifest shards: %w", err)
	}
	return nil
}

// List implements Store. It scans the key prefix for distinct job IDs, then
// reconstructs and filters each manifest in turn.
func (s *EtcdStore) List(ctx context.Context, filter *Filter) ([]*Job, int, error) {
	resp, err := s.client.Get(ctx, s.prefix+"/", clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return nil, 0, fmt.Errorf("jobs: listing manifest keys: %w", err)
	}

	seen := make(map[string]struct{})
	for _, kv := range resp.Kvs {
		rest := strings.TrimPrefix(string(kv.Key), s.prefix+"/")
		id, _, found := strings.Cut(rest, "/")
		if found {
			seen[id] = struct{}{}
		}
	}

	var result []*Job
	for idStr := range seen {
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		job, err := s.get(ctx, id)
		if err != nil {
			continue
		}
		if filter != nil && filter.State != nil && job.State != *filter.State {
			continue
		}
		result = append(result, job)
	}
	total := len(result)

	if filter != nil && filter.Limit > 0 {
		start := filter.Offset
		end := start + filter.Limit
		if start > len(result) {
			return []*Job{}, total, nil
		}
		if end > len(result) {
			end = len(result)
		}
		result = result[start:end]
	}

	return result, total, nil
}

// Count implements Store.
func (s *EtcdStore) Count(ctx context.Context) (int, error) {
	_, total, err := s.List(ctx, nil)
	return total, err
}
