package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SetWithExpiration 设置键值对并设置过期时间
func SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return Rdb.Set(ctx, key, value, expiration).Err()
}

// GetValue 获取字符串类型的值
func GetValue(ctx context.Context, key string) (string, error) {
	value, err := Rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// IncrWithWindow 固定窗口计数，首次自增时设置窗口过期时间
func IncrWithWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := Rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err = Rdb.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		return count, window, nil
	}

	ttl, err := Rdb.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	// 上次设置过期失败会留下永久键
	if ttl < 0 {
		if err = Rdb.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		ttl = window
	}
	return count, ttl, nil
}

func GetRdbClient() *redis.Client {
	return Rdb
}
