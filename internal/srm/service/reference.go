package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"

	"github.com/redis/go-redis/v9"
)

const (
	referenceMax      = 999999
	referenceAttempts = 5
)

var referencePattern = regexp.MustCompile(`^[A-Z]{3}-\d{6}$`)

// SequenceSource 编号序列来源
type SequenceSource interface {
	Next(ctx context.Context, prefix string) (int64, error)
}

// RedisSequence 基于Redis INCR的单调序列，超过999999后回绕
type RedisSequence struct {
	client *redis.Client
}

func NewRedisSequence(client *redis.Client) *RedisSequence {
	return &RedisSequence{client: client}
}

func (s *RedisSequence) Next(ctx context.Context, prefix string) (int64, error) {
	n, err := s.client.Incr(ctx, "srm:seq:"+prefix).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}
	return (n-1)%referenceMax + 1, nil
}

// RandomSequence 随机序列（未配置Redis时使用）
type RandomSequence struct{}

func (RandomSequence) Next(ctx context.Context, prefix string) (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(referenceMax))
	if err != nil {
		return 0, err
	}
	return n.Int64() + 1, nil
}

// FormatReference 格式化编号，如 RET-000042
func FormatReference(prefix string, n int64) string {
	return fmt.Sprintf("%s-%06d", prefix, n)
}

// IsReference 是否为合法的 XXX-###### 编号
func IsReference(ref string) bool {
	return referencePattern.MatchString(ref)
}

// ReferenceGenerator 生成不重复的退货/返工编号
type ReferenceGenerator struct {
	seq SequenceSource
}

func NewReferenceGenerator(seq SequenceSource) *ReferenceGenerator {
	if seq == nil {
		seq = RandomSequence{}
	}
	return &ReferenceGenerator{seq: seq}
}

// Generate 生成编号，exists用于在当前事务中检查是否占用；唯一索引兜底
func (g *ReferenceGenerator) Generate(ctx context.Context, prefix string, exists func(ctx context.Context, ref string) (bool, error)) (string, error) {
	for i := 0; i < referenceAttempts; i++ {
		n, err := g.seq.Next(ctx, prefix)
		if err != nil {
			return "", err
		}
		ref := FormatReference(prefix, n)
		taken, err := exists(ctx, ref)
		if err != nil {
			return "", err
		}
		if !taken {
			return ref, nil
		}
	}
	return "", &ConflictError{Message: fmt.Sprintf("生成%s编号失败: 连续%d次冲突", prefix, referenceAttempts)}
}
