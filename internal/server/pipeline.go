package server

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/tjfontaine/fullstack-app-server/internal/config"
)

// Stage names, in the only order Build ever produces them.
const (
	StageCORS         = "cors"
	StageBody         = "body"
	StageRouter       = "router"
	StageStaticPublic = "static-public"
	StageStaticClient = "static-client"
	StageSPAFallback  = "spa-fallback"
	StageLogErrors    = "log-errors"
)

// Stage is one non-error step of the request pipeline. Wrap either serves
// the request itself or hands it to next.
type Stage struct {
	Name string
	Wrap func(next http.Handler) http.Handler
}

// ErrorHandler produces the client-visible response for an error.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// ErrorStage observes an error forwarded by an earlier stage. It must call
// next with the error so a response is still written.
type ErrorStage func(w http.ResponseWriter, r *http.Request, err error, next ErrorHandler)

// Options is the startup snapshot the pipeline is assembled from. Empty
// ClientURL, PublicDir and ClientDir mean the matching stages are omitted.
type Options struct {
	ClientURL string
	BodyMode  string
	BodyLimit int64
	PublicDir string
	ClientDir string
	IndexFile string
}

// Probe evaluates the environment and filesystem once and returns the
// resulting Options. Missing directories are not an error.
func Probe(cfg config.ServerConfig, logger *slog.Logger) Options {
	opts := Options{
		ClientURL: cfg.ClientURL,
		BodyMode:  cfg.BodyMode,
		BodyLimit: cfg.BodyLimit,
		IndexFile: cfg.IndexFile,
	}

	if dirExists(cfg.PublicDir) {
		opts.PublicDir = cfg.PublicDir
	} else {
		logger.Debug("public directory not found, static serving disabled", slog.String("dir", cfg.PublicDir))
	}

	if dirExists(cfg.ClientDir) {
		opts.ClientDir = cfg.ClientDir
	} else {
		logger.Debug("client build directory not found, spa fallback disabled", slog.String("dir", cfg.ClientDir))
	}

	return opts
}

func dirExists(dir string) bool {
	if dir == "" {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// Pipeline is an ordered request-handling chain with a single terminal
// error stage.
type Pipeline struct {
	stages   []Stage
	terminal ErrorStage
}

// Build assembles the pipeline in its fixed order:
//
//  1. cross-origin policy (only with a client URL)
//  2. body decoding
//  3. router, mounted at /
//  4. static public assets, then static client assets (each if present)
//  5. SPA fallback (only with a client directory)
//
// followed by the terminal error logger.
func Build(opts Options, router http.Handler, logger *slog.Logger) (*Pipeline, error) {
	if router == nil {
		return nil, errors.New("pipeline: router is required")
	}
	if opts.IndexFile == "" {
		opts.IndexFile = "index.html"
	}

	var stages []Stage

	if opts.ClientURL != "" {
		stages = append(stages, Stage{Name: StageCORS, Wrap: CORS(opts.ClientURL)})
	}

	body, err := BodyDecoder(opts.BodyMode, opts.BodyLimit)
	if err != nil {
		return nil, err
	}
	stages = append(stages,
		Stage{Name: StageBody, Wrap: body},
		Stage{Name: StageRouter, Wrap: Mount(router)},
	)

	if opts.PublicDir != "" {
		stages = append(stages, Stage{Name: StageStaticPublic, Wrap: Static(opts.PublicDir, opts.IndexFile)})
	}
	if opts.ClientDir != "" {
		stages = append(stages,
			Stage{Name: StageStaticClient, Wrap: Static(opts.ClientDir, opts.IndexFile)},
			Stage{Name: StageSPAFallback, Wrap: SPAFallback(opts.ClientDir, opts.IndexFile)},
		)
	}

	p := &Pipeline{
		stages:   stages,
		terminal: LogErrors(logger),
	}

	logger.Info("pipeline assembled", slog.Any("stages", p.Stages()))

	return p, nil
}

// Stages returns the stage names in execution order, terminal stage last.
func (p *Pipeline) Stages() []string {
	names := make([]string, 0, len(p.stages)+1)
	for _, s := range p.stages {
		names = append(names, s.Name)
	}
	return append(names, StageLogErrors)
}

// Handler composes the stages into a single http.Handler. Requests no stage
// serves get the default not-found response.
func (p *Pipeline) Handler() http.Handler {
	var h http.Handler = http.HandlerFunc(http.NotFound)
	for i := len(p.stages) - 1; i >= 0; i-- {
		h = p.stages[i].Wrap(h)
	}
	return p.errorBoundary(h)
}
