package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const checkTimeout = 2 * time.Second

// PoolChecker returns a health check function for the pgx connection pool
func PoolChecker(pool *pgxpool.Pool) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		return pool.Ping(ctx)
	}
}

// RedisChecker returns a health check function for Redis
func RedisChecker(client *redis.Client) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		return client.Ping(ctx).Err()
	}
}

// HTTPEndpointChecker returns a health check function for an external
// HTTP dependency. Any 2xx or 3xx response counts as healthy.
func HTTPEndpointChecker(url string) func() error {
	client := &http.Client{Timeout: checkTimeout}
	return func() error {
		resp, err := client.Get(url)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return fmt.Errorf("endpoint %s returned status %d", url, resp.StatusCode)
		}
		return nil
	}
}

// ChainChecker reports the evidence chain's integrity as a readiness
// signal. A compromised chain makes the service not-ready rather than
// silently serving unverifiable evidence.
func ChainChecker(validate func() bool) func() error {
	return func() error {
		if !validate() {
			return errors.New("evidence chain validation failed")
		}
		return nil
	}
}
