// Package photos checks the before/after photo links of complaint records.
//
// A record carries two links: the photo uploaded with the complaint (before)
// and the photo attached on resolution (after). Each link is classified as:
//   - missing: the cell is empty
//   - broken: the request failed or the server answered with status >= 400
//   - ok: anything else
//
// Links are checked concurrently by a bounded worker pool, so a page of
// records can be screened before a reviewer opens it.
package photos

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/api"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/ingest"

	"go.uber.org/zap"
)

// Status is the outcome of checking one link.
type Status string

const (
	StatusOK      Status = "ok"
	StatusMissing Status = "missing"
	StatusBroken  Status = "broken"
)

// Kind says which photo of a record a link points to.
type Kind string

const (
	Before Kind = "before"
	After  Kind = "after"
)

// Link is one photo to check.
type Link struct {
	ComplaintNumber string
	Kind            Kind
	URL             string
}

// Result is the outcome for one Link.
type Result struct {
	ComplaintNumber string `json:"complaint_number"`
	Kind            Kind   `json:"kind"`
	URL             string `json:"url"`
	Status          Status `json:"status"`
	HTTPStatus      int    `json:"http_status,omitempty"`
	Error           string `json:"error,omitempty"`
}

// LinksFor lists the before and after links of each record, in record order.
func LinksFor(records []ingest.Record) []Link {
	links := make([]Link, 0, len(records)*2)
	for _, r := range records {
		links = append(links,
			Link{ComplaintNumber: r.ID(), Kind: Before, URL: strings.TrimSpace(r.Get(ingest.ColUploadDocuments))},
			Link{ComplaintNumber: r.ID(), Kind: After, URL: strings.TrimSpace(r.Get(ingest.ColResolvedDocuments))},
		)
	}
	return links
}

// Checker classifies photo links.
type Checker struct {
	client  *http.Client
	workers int
	logger  *zap.Logger
}

// NewChecker creates a checker running up to workers requests at once. A nil
// client uses the shared pooled client.
func NewChecker(client *http.Client, workers int, logger *zap.Logger) *Checker {
	if client == nil {
		client = api.GetHTTPClient()
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{client: client, workers: workers, logger: logger}
}

// Check classifies the photo links of records. Results are in LinksFor order.
func (c *Checker) Check(ctx context.Context, records []ingest.Record) []Result {
	links := LinksFor(records)
	results := make([]Result, len(links))
	if len(links) == 0 {
		return results
	}

	workers := c.workers
	if workers > len(links) {
		workers = len(links)
	}
	pool := newWorkerPool(ctx, c, workers)

	go func() {
		for i, l := range links {
			pool.submit(job{index: i, link: l})
		}
		pool.close()
	}()

	broken := 0
	for out := range pool.results {
		results[out.index] = out.result
		if out.result.Status == StatusBroken {
			broken++
		}
	}

	c.logger.Info("📷 Photo links checked",
		zap.Int("links", len(links)),
		zap.Int("broken", broken),
		zap.Int("workers", workers))
	return results
}

// checkOne classifies a single link. HEAD is tried first; servers that
// reject HEAD with 405 get a GET whose body is discarded.
func (c *Checker) checkOne(ctx context.Context, l Link) Result {
	res := Result{ComplaintNumber: l.ComplaintNumber, Kind: l.Kind, URL: l.URL}

	if l.URL == "" {
		res.Status = StatusMissing
		return res
	}
	if u, err := url.Parse(l.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		res.Status = StatusBroken
		res.Error = "not an http(s) link"
		return res
	}

	status, err := c.request(ctx, http.MethodHead, l.URL)
	if err == nil && status == http.StatusMethodNotAllowed {
		status, err = c.request(ctx, http.MethodGet, l.URL)
	}
	if err != nil {
		res.Status = StatusBroken
		res.Error = err.Error()
		return res
	}

	res.HTTPStatus = status
	if status >= 400 {
		res.Status = StatusBroken
	} else {
		res.Status = StatusOK
	}
	return res
}

func (c *Checker) request(ctx context.Context, method, link string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, link, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	return resp.StatusCode, nil
}

type job struct {
	index int
	link  Link
}

type jobResult struct {
	index  int
	result Result
}

// workerPool runs a fixed number of workers pulling jobs from a shared
// channel.
//
// Lifecycle:
//  1. newWorkerPool starts the workers
//  2. submit queues jobs (blocks when the buffer is full)
//  3. close stops intake, waits for the workers, then closes results
type workerPool struct {
	jobs    chan job
	results chan jobResult
	wg      sync.WaitGroup
}

func newWorkerPool(ctx context.Context, c *Checker, workers int) *workerPool {
	p := &workerPool{
		jobs:    make(chan job, 100),
		results: make(chan jobResult, 100),
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for j := range p.jobs {
				r := c.checkOne(ctx, j.link)
				if r.Status == StatusBroken {
					c.logger.Debug("broken photo link",
						zap.Int("worker", id),
						zap.String("complaint", j.link.ComplaintNumber),
						zap.String("kind", string(j.link.Kind)),
						zap.String("error", r.Error))
				}
				p.results <- jobResult{index: j.index, result: r}
			}
		}(i + 1)
	}
	return p
}

func (p *workerPool) submit(j job) {
	p.jobs <- j
}

func (p *workerPool) close() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
}
