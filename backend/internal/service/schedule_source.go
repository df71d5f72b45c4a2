package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"sga-horarios/backend/config"
	"sga-horarios/backend/internal/model"
)

const (
	scheduleMaxDocSize      = 5 * 1024 * 1024 // 5MB
	scheduleFetchTimeout    = 30 * time.Second
	scheduleSourceCacheKey  = "schedule:source"
	scheduleDefaultCacheTTL = 5 * time.Minute
)

// ErrFetchFailure 课表文档无法获取（网络错误、非 200 响应或超出大小限制）
var ErrFetchFailure = errors.New("课表文档获取失败")

// FetchScheduleDocument 以普通 GET 获取课表文档，不重试，不带缓存头
func FetchScheduleDocument(ctx context.Context, rawURL string) ([]byte, error) {
	return fetchDocument(ctx, &http.Client{Timeout: scheduleFetchTimeout}, rawURL)
}

func fetchDocument(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailure, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrFetchFailure, resp.StatusCode)
	}

	// 多读 1 字节用于判断是否超限
	data, err := io.ReadAll(io.LimitReader(resp.Body, scheduleMaxDocSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailure, err)
	}
	if len(data) > scheduleMaxDocSize {
		return nil, fmt.Errorf("%w: 文档超过 %d 字节", ErrFetchFailure, scheduleMaxDocSize)
	}
	return data, nil
}

// ScheduleLoader 课表文档加载接口
type ScheduleLoader interface {
	Load(ctx context.Context) (*model.ScheduleSystem, error)
	Invalidate()
}

// ScheduleSource 远端课表文档源
// 成功解析的结果在进程内缓存 TTL 时长，失败结果不缓存
type ScheduleSource struct {
	url    string
	client *http.Client
	cache  *cache.Cache
	logger *zap.Logger
}

// NewScheduleSource 创建课表文档源
func NewScheduleSource(cfg *config.ScheduleConfig, logger *zap.Logger) *ScheduleSource {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = scheduleFetchTimeout
	}
	ttl := cfg.SourceCacheTTL
	if ttl <= 0 {
		ttl = scheduleDefaultCacheTTL
	}
	return &ScheduleSource{
		url:    cfg.SourceURL,
		client: &http.Client{Timeout: timeout},
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

// URL 文档地址
func (s *ScheduleSource) URL() string { return s.url }

// Load 获取并解析课表文档，返回值为缓存的深拷贝
func (s *ScheduleSource) Load(ctx context.Context) (*model.ScheduleSystem, error) {
	if v, ok := s.cache.Get(scheduleSourceCacheKey); ok {
		return v.(*model.ScheduleSystem).Clone(), nil
	}

	data, err := fetchDocument(ctx, s.client, s.url)
	if err != nil {
		s.logger.Warn("获取课表文档失败", zap.String("url", s.url), zap.Error(err))
		return nil, err
	}

	sys, err := ParseScheduleXML(data)
	if err != nil {
		s.logger.Warn("解析课表文档失败", zap.String("url", s.url), zap.Error(err))
		return nil, err
	}

	s.cache.Set(scheduleSourceCacheKey, sys, cache.DefaultExpiration)
	s.logger.Info("课表文档已加载",
		zap.String("url", s.url),
		zap.Int("entries", len(sys.Entries)),
	)
	return sys.Clone(), nil
}

// Invalidate 清除缓存，下次 Load 重新获取
func (s *ScheduleSource) Invalidate() {
	s.cache.Delete(scheduleSourceCacheKey)
}
