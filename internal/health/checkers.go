package health

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type dbChecker struct {
	db *gorm.DB
}

func NewDBChecker(db *gorm.DB) Checker {
	return dbChecker{db: db}
}

func (c dbChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "database"}
	sqlDB, err := c.db.DB()
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Healthy = true
	return res
}

type redisChecker struct {
	client *redis.Client
}

func NewRedisChecker(client *redis.Client) Checker {
	return redisChecker{client: client}
}

func (c redisChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "redis"}
	if err := c.client.Ping(ctx).Err(); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Healthy = true
	return res
}
