// internal/bot/classifier/classifier.go
package classifier

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Category is the coarse intent bucket the fallback model sorts a message
// into when the rule ladder could not decide.
type Category string

const (
	CategoryBrowseProducts Category = "browse_products"
	CategoryTrackOrder     Category = "track_order"
	CategoryAskQuestion    Category = "ask_question"
	CategoryComplaint      Category = "complaint"
	CategoryGreeting       Category = "greeting"
	CategoryUnknown        Category = "unknown"
)

var (
	ErrClassificationFailed = errors.New("CLASSIFICATION_FAILED")
	ErrClassifierTimeout    = errors.New("CLASSIFIER_TIMEOUT")
)

type Classifier interface {
	Classify(ctx context.Context, text string) (Category, error)
}

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// HTTPClassifier calls an external model endpoint, with exponential-backoff
// retries and an optional Redis result cache keyed by message hash.
type HTTPClassifier struct {
	config *Config
	client *http.Client
	cache  redis.Cmdable
	logger Logger
}

func NewHTTPClassifier(config *Config, cache redis.Cmdable, log Logger) *HTTPClassifier {
	return &HTTPClassifier{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		cache:  cache,
		logger: log,
	}
}

func (c *HTTPClassifier) Classify(ctx context.Context, text string) (Category, error) {
	cacheKey := "intent:" + hashText(text)

	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			return normalizeCategory(cached), nil
		}
	}

	category, err := c.callModel(ctx, text)
	if err != nil {
		return CategoryUnknown, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, string(category), c.config.CacheTTL).Err(); err != nil {
			c.logger.Warn("failed to cache classification", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return category, nil
}

func (c *HTTPClassifier) callModel(ctx context.Context, text string) (Category, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"message": text,
	})

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return CategoryUnknown, ErrClassifierTimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/api/classify", bytes.NewBuffer(body))
		if err != nil {
			return CategoryUnknown, fmt.Errorf("%w: %v", ErrClassificationFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, lastErr = c.client.Do(req)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return CategoryUnknown, ErrClassifierTimeout
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil {
		return CategoryUnknown, fmt.Errorf("%w: %v", ErrClassificationFailed, lastErr)
	}
	if resp == nil {
		return CategoryUnknown, fmt.Errorf("%w: no successful response after retries", ErrClassificationFailed)
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Category   string  `json:"category"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return CategoryUnknown, fmt.Errorf("%w: decode error: %v", ErrClassificationFailed, err)
	}

	return normalizeCategory(apiResponse.Category), nil
}

func normalizeCategory(raw string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(raw))) {
	case CategoryBrowseProducts:
		return CategoryBrowseProducts
	case CategoryTrackOrder:
		return CategoryTrackOrder
	case CategoryAskQuestion:
		return CategoryAskQuestion
	case CategoryComplaint:
		return CategoryComplaint
	case CategoryGreeting:
		return CategoryGreeting
	default:
		return CategoryUnknown
	}
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(text))))
	return hex.EncodeToString(sum[:8])
}
