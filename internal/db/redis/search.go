package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/regalo-labs/giftfinder/internal/db"
	"github.com/regalo-labs/giftfinder/internal/metrics"
)

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
//
// The query is issued with DIALECT 2. Some deployments reject the DIALECT
// argument; in that case the same command is retried exactly once without the
// flag. This is a protocol-compatibility fallback, not a reliability retry,
// and must never be looped.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(knnArgs(q, true)...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil && isRedisErr(err, "DIALECT") {
		metrics.DialectFallbacksTotal.Inc()
		cmd = s.b().Arbitrary("FT.SEARCH").Args(knnArgs(q, false)...).Build()
		raw, err = s.do(ctx, cmd).ToArray()
	}
	if err != nil {
		if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseKNNResult(raw)
}

// knnArgs assembles FT.SEARCH arguments for a hybrid filter+KNN query:
//
//	(<filter>)=>[KNN <k> @embedding $vec AS score]
func knnArgs(q *db.KNNQuery, withDialect bool) []string {
	filter := q.Filter
	if filter == "" {
		filter = "*"
	}
	queryStr := fmt.Sprintf("(%s)=>[KNN %d @embedding $vec AS score]", filter, q.K)

	args := []string{q.IndexName, queryStr}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}

	args = append(args,
		"SORTBY", "score",
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "vec", vectorToBytes(q.Vector),
	)
	if withDialect {
		args = append(args, "DIALECT", "2")
	}
	return args
}

// parseKNNResult decodes the RESP2 reply: [total, key1, fields1, key2, fields2, ...].
func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, total)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

// parseFieldPairs decodes alternating name/value pairs into a map.
func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
