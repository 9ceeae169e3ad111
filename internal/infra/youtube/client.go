// Package youtube provides a client for the YouTube Data API v3.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Client is a YouTube Data API client.
type Client struct {
	apiKey     string
	baseURL    string
	region     string
	maxResults int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Config represents YouTube client configuration.
type Config struct {
	APIKey         string
	MaxResults     int
	RequestsPerSec float64
	Region         string
}

// Video represents a single video returned by a search.
type Video struct {
	ID          string
	Title       string
	Channel     string
	DurationSec int
	Embeddable  bool
}

// searchResponse represents the response from the search.list endpoint.
type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

// videosResponse represents the response from the videos.list endpoint.
type videosResponse struct {
	Items []struct {
		ID             string `json:"id"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Status struct {
			Embeddable bool `json:"embeddable"`
		} `json:"status"`
	} `json:"items"`
}

// apiError represents an error response from the Data API.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// New creates a new YouTube client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("youtube API key is required")
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.MaxResults > 50 {
		cfg.MaxResults = 50
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 2
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    "https://www.googleapis.com/youtube/v3",
		region:     cfg.Region,
		maxResults: cfg.MaxResults,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
	}, nil
}

// SearchVideos searches for videos matching the query and enriches the
// results with duration and embeddability from the videos endpoint.
func (c *Client) SearchVideos(ctx context.Context, query string) ([]Video, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is required")
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("videoEmbeddable", "true")
	params.Set("q", query)
	params.Set("maxResults", fmt.Sprintf("%d", c.maxResults))
	params.Set("key", c.apiKey)
	if c.region != "" {
		params.Set("regionCode", c.region)
	}

	var searchResp searchResponse
	if err := c.get(ctx, "/search", params, &searchResp); err != nil {
		return nil, errors.Wrap(err, "search request failed")
	}

	if len(searchResp.Items) == 0 {
		zlog.Debug().Msgf("no search results for query: %s", query)
		return nil, nil
	}

	ids := make([]string, 0, len(searchResp.Items))
	byID := make(map[string]Video, len(searchResp.Items))
	for _, item := range searchResp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		ids = append(ids, item.ID.VideoID)
		byID[item.ID.VideoID] = Video{
			ID:      item.ID.VideoID,
			Title:   item.Snippet.Title,
			Channel: item.Snippet.ChannelTitle,
		}
	}

	details := url.Values{}
	details.Set("part", "contentDetails,status")
	details.Set("id", strings.Join(ids, ","))
	details.Set("key", c.apiKey)

	var videosResp videosResponse
	if err := c.get(ctx, "/videos", details, &videosResp); err != nil {
		return nil, errors.Wrap(err, "videos request failed")
	}

	// Preserve search result order, it already reflects relevance
	videos := make([]Video, 0, len(ids))
	for _, item := range videosResp.Items {
		v, ok := byID[item.ID]
		if !ok {
			continue
		}
		dur, err := parseISODuration(item.ContentDetails.Duration)
		if err != nil {
			zlog.Warn().Msgf("unparseable duration %q for video %s", item.ContentDetails.Duration, item.ID)
			dur = 0
		}
		v.DurationSec = dur
		v.Embeddable = item.Status.Embeddable
		byID[item.ID] = v
	}
	for _, id := range ids {
		videos = append(videos, byID[id])
	}

	return videos, nil
}

// get performs a rate-limited GET against the Data API and decodes the
// JSON response into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter wait failed")
	}

	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Code != 0 {
			return errors.Errorf("youtube API error %d: %s", apiErr.Error.Code, apiErr.Error.Message)
		}
		return errors.Errorf("youtube API returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}

	return nil
}
