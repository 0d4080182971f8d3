package server

import (
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/zeusync/drgpu/internal/core/analysis"
	"github.com/zeusync/drgpu/internal/core/config"
	"github.com/zeusync/drgpu/internal/core/observability/diag"
	"github.com/zeusync/drgpu/internal/core/observability/log"
	"github.com/zeusync/drgpu/internal/core/observability/metrics"
	"github.com/zeusync/drgpu/internal/render"
	"github.com/zeusync/drgpu/internal/report"
)

// Request is one analysis asked over the API. Report holds the raw CSV export and Source
// the optional per-line source report.
type Request struct {
	ID     string `json:"id,omitempty"`
	Config string `json:"config,omitempty"`
	Kernel int    `json:"kernel"`
	Report string `json:"report"`
	Source string `json:"source,omitempty"`
}

// Response answers a Request; exactly one of Result and Error is set.
type Response struct {
	ID     string           `json:"id,omitempty"`
	Result *render.Document `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Analyzer runs requests against the embedded GPU profiles. Engines are built once per
// profile and shared between requests.
type Analyzer struct {
	logger  log.Log
	metrics metrics.Collector

	mu      sync.Mutex
	engines map[string]*analysis.Engine
}

func NewAnalyzer(logger log.Log, m metrics.Collector) *Analyzer {
	if logger == nil {
		logger = log.NewNop()
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &Analyzer{
		logger:  logger.Named("analyzer"),
		metrics: m,
		engines: make(map[string]*analysis.Engine),
	}
}

// engine returns the engine of an embedded profile. Filesystem paths are not accepted
// from remote callers.
func (a *Analyzer) engine(profile string) (*analysis.Engine, error) {
	if profile == "" {
		profile = config.DefaultProfile
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.engines[profile]; ok {
		return e, nil
	}
	cfg, err := config.LoadProfile(profile)
	if err != nil {
		return nil, err
	}
	e := analysis.NewEngine(cfg, a.logger)
	a.engines[profile] = e
	return e, nil
}

// Analyze reads one kernel of the report and returns its tree.
func (a *Analyzer) Analyze(ctx context.Context, req *Request) (*render.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := a.engine(req.Config)
	if err != nil {
		a.metrics.AnalysisFailed("config")
		return nil, err
	}

	kernels, err := report.NewReader(e.Config(), a.logger).Read(strings.NewReader(req.Report))
	if err != nil {
		a.metrics.AnalysisFailed("report")
		return nil, err
	}
	k, err := report.Select(kernels, req.Kernel)
	if err != nil {
		a.metrics.AnalysisFailed("kernel")
		return nil, err
	}

	job := analysis.New(k.ShortName(), k.Stats)
	if req.Source != "" {
		src, err := report.ReadSource(strings.NewReader(req.Source))
		if err != nil {
			a.metrics.AnalysisFailed("source")
			return nil, errors.Wrap(err, "source report")
		}
		job.WithSource(src)
	}

	res, err := e.Run(job)
	if err != nil {
		a.metrics.AnalysisFailed("engine")
		return nil, err
	}

	collector := diag.NewCollector(a.logger.With(log.String("analysis_id", res.ID.String())))
	doc, err := render.Snapshot(res, collector)
	if err != nil {
		a.metrics.AnalysisFailed("render")
		return nil, err
	}
	doc.Diagnostics = append(doc.Diagnostics, collector.Items()...)

	a.metrics.AnalysisFinished(string(res.Bottleneck), res.Duration, res.Suggestions, len(doc.Diagnostics))
	return doc, nil
}

// readRequest builds a Request from an HTTP call: either a JSON Request body or the raw
// CSV export with config and kernel given in the query.
func readRequest(r *http.Request, limit int64) (*Request, error) {
	body := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if int64(len(data)) > limit {
		return nil, errors.Wrapf(ErrInvalidMessage, "body exceeds %d bytes", limit)
	}

	req := &Request{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(data, req); err != nil {
			return nil, err
		}
	} else {
		req.Report = string(data)
	}

	q := r.URL.Query()
	if v := q.Get("config"); v != "" {
		req.Config = v
	}
	if v := q.Get("kernel"); v != "" {
		kernel, err := parseKernel(v)
		if err != nil {
			return nil, err
		}
		req.Kernel = kernel
	}
	return req, nil
}

// statusOf maps an analysis error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, config.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidMessage),
		errors.Is(err, report.ErrEmptyReport),
		errors.Is(err, report.ErrNoKernels),
		errors.Is(err, report.ErrKernelIndex),
		errors.Is(err, report.ErrMissingColumn),
		errors.Is(err, report.ErrMalformedValue),
		errors.Is(err, analysis.ErrNoStats):
		return http.StatusBadRequest
	case errors.As(err, new(*csv.ParseError)):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
