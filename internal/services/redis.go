package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is nil until InitRedis runs; the helpers below degrade to
// no-ops or cache misses so a missing cache never blocks a request.
var RedisClient *redis.Client

// InitRedis initializes the Redis client
func InitRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://redis:6379" // Default Redis address for Docker
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	RedisClient = redis.NewClient(opt)

	// Test the connection
	ctx := context.Background()
	_, err = RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return nil
}

// SetVendorLocation stores a vendor's live location in Redis
func SetVendorLocation(ctx context.Context, vendorID uint, lat, lng, heading float64) error {
	if RedisClient == nil {
		return nil
	}

	locationData := map[string]interface{}{
		"lat":     lat,
		"lng":     lng,
		"heading": heading,
		"updated": time.Now().Unix(),
	}

	data, err := json.Marshal(locationData)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("vendor:location:%d", vendorID)
	return RedisClient.Set(ctx, key, data, time.Hour).Err()
}

// GetVendorLocation retrieves a vendor's live location from Redis
func GetVendorLocation(ctx context.Context, vendorID uint) (lat, lng, heading float64, err error) {
	if RedisClient == nil {
		return 0, 0, 0, redis.Nil
	}

	key := fmt.Sprintf("vendor:location:%d", vendorID)
	data, err := RedisClient.Get(ctx, key).Result()
	if err != nil {
		return 0, 0, 0, err
	}

	var locationData map[string]interface{}
	if err := json.Unmarshal([]byte(data), &locationData); err != nil {
		return 0, 0, 0, err
	}

	lat, _ = locationData["lat"].(float64)
	lng, _ = locationData["lng"].(float64)
	heading, _ = locationData["heading"].(float64)

	return lat, lng, heading, nil
}

// SetVendorAvailability caches a vendor's availability status
func SetVendorAvailability(ctx context.Context, vendorID uint, status string) error {
	if RedisClient == nil {
		return nil
	}

	key := fmt.Sprintf("vendor:availability:%d", vendorID)
	return RedisClient.Set(ctx, key, status, time.Hour).Err()
}

// GetVendorAvailability retrieves a vendor's cached availability status
func GetVendorAvailability(ctx context.Context, vendorID uint) (string, error) {
	if RedisClient == nil {
		return "", redis.Nil
	}

	key := fmt.Sprintf("vendor:availability:%d", vendorID)
	return RedisClient.Get(ctx, key).Result()
}

// PublishBookingUpdate publishes a booking status update to Redis pub/sub so
// other API instances can fan it out to their connected sockets.
func PublishBookingUpdate(ctx context.Context, bookingID uint, status string, data map[string]interface{}) error {
	if RedisClient == nil {
		return nil
	}

	updateData := map[string]interface{}{
		"bookingId": bookingID,
		"status":    status,
		"data":      data,
		"timestamp": time.Now().Unix(),
	}

	jsonData, err := json.Marshal(updateData)
	if err != nil {
		return err
	}

	return RedisClient.Publish(ctx, "booking:updates", jsonData).Err()
}

// OTPRequestCount increments and returns the number of OTP sends for a
// contact within the current window. Used for the resend cap.
func OTPRequestCount(ctx context.Context, contact string, window time.Duration) (int64, error) {
	if RedisClient == nil {
		return 0, nil
	}

	key := fmt.Sprintf("otp:requests:%s", contact)
	count, err := RedisClient.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		RedisClient.Expire(ctx, key, window)
	}
	return count, nil
}
