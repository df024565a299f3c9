// Package dofusdb drains the paginated DofusDB collections.
package dofusdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cesargomez89/dofusdb-explorer/internal/constants"
	"github.com/cesargomez89/dofusdb-explorer/internal/httpclient"
	"github.com/cesargomez89/dofusdb-explorer/internal/logger"
	"github.com/cesargomez89/dofusdb-explorer/internal/metrics"
)

// Progress receives the cumulative fetched count after each page.
type Progress func(collection string, current, total int)

// Source is what the import pipeline needs from the upstream API.
type Source interface {
	FetchItems(ctx context.Context, pageSize int, progress Progress) ([]RawItem, error)
	FetchRecipes(ctx context.Context, pageSize int, progress Progress) ([]RawRecipe, error)
}

type Options struct {
	RateLimit  time.Duration
	RetryBase  time.Duration
	MaxRetries int
}

type Client struct {
	http    *httpclient.Client
	logger  *logger.Logger
	BaseURL string
}

// NewClient builds a client whose requests are spaced by RateLimit and retried
// with exponential backoff.
func NewClient(baseURL string, opts Options, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Default()
	}
	log = log.WithComponent("dofusdb")
	hc := httpclient.NewClient(nil, httpclient.Options{
		MinRequestInterval: opts.RateLimit,
		RetryBase:          opts.RetryBase,
		MaxRetries:         opts.MaxRetries,
		OnRetry: func(retry int, wait time.Duration, err error) {
			metrics.UpstreamRetries.Inc()
			log.Warn("Upstream request failed, retrying", "retry", retry, "max_retries", opts.MaxRetries, "wait", wait, "error", err)
		},
	})
	return NewClientWithHTTP(baseURL, hc, log)
}

// NewClientWithHTTP uses a preconfigured httpclient.Client.
func NewClientWithHTTP(baseURL string, hc *httpclient.Client, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Default()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		logger:  log,
	}
}

// FetchAll drains a collection page by page, in increasing skip order, until
// the cumulative count reaches the total reported by the first page. Records
// are returned undeduplicated. Any page that still fails after retries fails
// the whole fetch.
func (c *Client) FetchAll(ctx context.Context, collection string, pageSize int, progress Progress) ([]json.RawMessage, error) {
	if pageSize <= 0 {
		pageSize = constants.DefaultFetchPageSize
	}
	log := c.logger.WithCollection(collection)

	var all []json.RawMessage
	total := -1

	for total < 0 || len(all) < total {
		u := fmt.Sprintf("%s/%s?$limit=%d&$skip=%d", c.BaseURL, collection, pageSize, len(all))

		var page Page
		if err := c.http.GetJSON(ctx, u, &page); err != nil {
			return nil, fmt.Errorf("fetch %s at skip %d: %w", collection, len(all), err)
		}
		metrics.UpstreamPagesFetched.WithLabelValues(collection).Inc()

		if total < 0 {
			total = page.Total
			log.Info("Collection size", "total", total)
		}

		if len(page.Data) == 0 {
			if len(all) < total {
				log.Warn("Upstream returned an empty page before reaching total", "fetched", len(all), "total", total)
			}
			break
		}

		all = append(all, page.Data...)

		if progress != nil {
			progress(collection, len(all), total)
		}
		log.Info("Fetched page", "current", len(all), "total", total, "percent", percent(len(all), total))
	}

	log.Info("Collection fetched", "records", len(all))
	return all, nil
}

// FetchItems drains the items collection.
func (c *Client) FetchItems(ctx context.Context, pageSize int, progress Progress) ([]RawItem, error) {
	records, err := c.FetchAll(ctx, constants.CollectionItems, pageSize, progress)
	if err != nil {
		return nil, err
	}
	return decodeAll[RawItem](records, c.logger.WithCollection(constants.CollectionItems)), nil
}

// FetchRecipes drains the recipes collection.
func (c *Client) FetchRecipes(ctx context.Context, pageSize int, progress Progress) ([]RawRecipe, error) {
	records, err := c.FetchAll(ctx, constants.CollectionRecipes, pageSize, progress)
	if err != nil {
		return nil, err
	}
	return decodeAll[RawRecipe](records, c.logger.WithCollection(constants.CollectionRecipes)), nil
}

// decodeAll decodes each record, logging and dropping the ones that do not fit T.
func decodeAll[T any](records []json.RawMessage, log *logger.Logger) []T {
	out := make([]T, 0, len(records))
	for i, raw := range records {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			log.Warn("Skipping undecodable record", "index", i, "error", err)
			continue
		}
		out = append(out, v)
	}
	return out
}

func percent(current, total int) int {
	if total <= 0 {
		return 100
	}
	return current * 100 / total
}
