package injector

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/zeusync/drgpu/internal/core/analysis"
	"github.com/zeusync/drgpu/internal/core/config"
	"github.com/zeusync/drgpu/internal/core/observability/log"
	"github.com/zeusync/drgpu/internal/core/observability/metrics"
	"github.com/zeusync/drgpu/internal/server"
)

// App is what the command line needs for one GPU profile.
type App struct {
	Logger log.Log
	Config *config.Configuration
	Engine *analysis.Engine
}

func NewApp(logger log.Log, cfg *config.Configuration, engine *analysis.Engine) *App {
	return &App{Logger: logger, Config: cfg, Engine: engine}
}

func ProvideLog(level log.Level) log.Log {
	return log.New(level)
}

// ProvideRegistry returns a registry carrying the Go runtime and process collectors.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func ProvideMetrics(reg *prometheus.Registry) metrics.Collector {
	return metrics.NewPrometheus(reg)
}

func ProvideGatherer(reg *prometheus.Registry) prometheus.Gatherer {
	return reg
}

var (
	AppSet = wire.NewSet(
		ProvideLog,
		config.Load,
		analysis.NewEngine,
		NewApp,
	)

	ServerSet = wire.NewSet(
		ProvideLog,
		ProvideRegistry,
		ProvideMetrics,
		ProvideGatherer,
		server.NewAnalyzer,
		server.NewServer,
	)
)
