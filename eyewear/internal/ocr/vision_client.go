package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrNoAPIKey 未配置识别服务的 API key
var ErrNoAPIKey = errors.New("recognition API key not configured")

// ErrTimeout 识别请求超时
var ErrTimeout = errors.New("request timed out")

// apiKeyHeader 识别服务的 API key 请求头
const apiKeyHeader = "X-Goog-Api-Key"

// HTTPError 识别服务返回非 200
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("recognition service returned HTTP %d", e.StatusCode)
}

// VisionRequest 识别请求体
type VisionRequest struct {
	Requests []VisionImageRequest `json:"requests"`
}

// VisionImageRequest 单张图片请求
type VisionImageRequest struct {
	Image    VisionImage     `json:"image"`
	Features []VisionFeature `json:"features"`
}

// VisionImage base64 图片内容
type VisionImage struct {
	Content string `json:"content"`
}

// VisionFeature 识别特性
type VisionFeature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults"`
}

// VisionClient 文本识别服务客户端
// 响应体不解析，直接流式交给 FieldExtractor
type VisionClient struct {
	httpClient *resty.Client
	apiKey     string
	path       string
	extractor  *FieldExtractor
	logger     *zap.Logger
}

// NewVisionClient 创建识别客户端
// 不重试：失败由用户重新触发
func NewVisionClient(baseURL, path, apiKey string, timeout time.Duration, logger *zap.Logger) *VisionClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json")

	return &VisionClient{
		httpClient: client,
		apiKey:     apiKey,
		path:       path,
		extractor:  NewFieldExtractor("description"),
		logger:     logger,
	}
}

// Recognize 上传图片并返回识别出的文本；没有文本时返回空字符串
func (c *VisionClient) Recognize(ctx context.Context, image []byte) (string, error) {
	if len(c.apiKey) < 10 {
		return "", ErrNoAPIKey
	}

	request := VisionRequest{
		Requests: []VisionImageRequest{{
			Image: VisionImage{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []VisionFeature{{
				Type:       "DOCUMENT_TEXT_DETECTION",
				MaxResults: 1,
			}},
		}},
	}

	c.logger.Info("Calling recognition service",
		zap.Int("image_bytes", len(image)),
	)
	start := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader(apiKeyHeader, c.apiKey).
		SetBody(request).
		SetDoNotParseResponse(true).
		Post(c.path)
	if err != nil {
		err = transportError(err)
		c.logger.Warn("Recognition request failed", zap.Error(err))
		return "", err
	}
	body := resp.RawBody()
	if body != nil {
		defer body.Close()
	}

	if resp.StatusCode() != 200 {
		c.logger.Warn("Recognition service returned error",
			zap.Int("status_code", resp.StatusCode()),
		)
		return "", &HTTPError{StatusCode: resp.StatusCode()}
	}
	if body == nil {
		return "", nil
	}

	text, err := c.extractor.Extract(body)
	if err != nil {
		return "", err
	}

	c.logger.Info("Recognition finished",
		zap.Int("text_length", len(text)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return text, nil
}

// transportError 去掉错误中的请求 URL，只保留失败原因
func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return ErrTimeout
		}
		return fmt.Errorf("failed to call recognition service: %w", urlErr.Err)
	}
	return fmt.Errorf("failed to call recognition service: %w", err)
}
