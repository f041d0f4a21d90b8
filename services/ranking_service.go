package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ssclub/club-system/cache"
)

// DefaultRankingPrefix — единственный разрешённый источник рейтинга.
const DefaultRankingPrefix = "https://bttf.org.bd/"

type RankingResult struct {
	HTML       string `json:"html"`
	Cached     bool   `json:"cached"`
	FetchError string `json:"fetch_error,omitempty"`
}

// RankingService — сквозной кэш HTML внешнего рейтинга. Разрешён
// только один источник; при ошибке запроса отдаётся устаревшая копия,
// если она есть.
type RankingService interface {
	Fetch(ctx context.Context, url string, forceRefresh bool) (*RankingResult, error)
}

type rankingService struct {
	cache         *cache.FileCache
	client        *http.Client
	allowedPrefix string
	logger        *slog.Logger
}

func NewRankingService(fileCache *cache.FileCache, client *http.Client, allowedPrefix string, logger *slog.Logger) RankingService {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &rankingService{
		cache:         fileCache,
		client:        client,
		allowedPrefix: allowedPrefix,
		logger:        logger,
	}
}

func (s *rankingService) Fetch(ctx context.Context, url string, forceRefresh bool) (*RankingResult, error) {
	if !strings.HasPrefix(url, s.allowedPrefix) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRankingURL, url)
	}

	if !forceRefresh {
		if entry, fresh := s.cache.Get(url); fresh {
			return &RankingResult{HTML: entry.HTML, Cached: true}, nil
		}
	}

	html, fetchErr := s.fetchUpstream(ctx, url)
	if fetchErr != nil {
		// Источник недоступен: устаревшая копия лучше, чем ничего.
		if entry, _ := s.cache.Get(url); entry != nil {
			s.logger.WarnContext(ctx, "serving stale ranking cache after fetch failure",
				slog.String("url", url), slog.Any("error", fetchErr))
			return &RankingResult{HTML: entry.HTML, Cached: true, FetchError: fetchErr.Error()}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFetch, fetchErr)
	}

	if err := s.cache.Put(url, html); err != nil {
		s.logger.WarnContext(ctx, "failed to write ranking cache entry",
			slog.String("url", url), slog.Any("error", err))
	}
	return &RankingResult{HTML: html, Cached: false}, nil
}

func (s *rankingService) fetchUpstream(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
