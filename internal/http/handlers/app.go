package handlers

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"writeflow/internal/feedback"
	"writeflow/internal/generator"
	"writeflow/internal/imagegen"
	"writeflow/internal/infra"
	"writeflow/internal/jobs"
)

// App holds the handler dependencies.
type App struct {
	Logger    *infra.Logger
	Cfg       *infra.Config
	Store     *jobs.Store
	Runner    *jobs.Runner
	Generator *generator.Generator
	Pipeline  *imagegen.Pipeline
	Feedback  *feedback.Store

	usage imageUsage
	seed  func() int64
}

func NewApp(logger *infra.Logger, cfg *infra.Config, store *jobs.Store, runner *jobs.Runner, gen *generator.Generator, pipeline *imagegen.Pipeline, fb *feedback.Store) *App {
	return &App{
		Logger:    logger,
		Cfg:       cfg,
		Store:     store,
		Runner:    runner,
		Generator: gen,
		Pipeline:  pipeline,
		Feedback:  fb,
		seed:      func() int64 { return rand.Int63n(100000) + 1 },
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]any{"ok": false, "error": message})
}

// usageSnapshot is the wire form of the image usage counters.
type usageSnapshot struct {
	GenerateRequests  int        `json:"generateRequests"`
	ImageRequested    int        `json:"imageRequested"`
	ImageAttempted    int        `json:"imageAttempted"`
	ImagesGenerated   int        `json:"imagesGenerated"`
	LastStatus        string     `json:"lastStatus,omitempty"`
	LastAttemptAt     *time.Time `json:"lastAttemptAt,omitempty"`
	LastRetryAfterSec int        `json:"lastRetryAfterSeconds,omitempty"`
}

// imageUsage accumulates counters for the synchronous generate path.
type imageUsage struct {
	mu   sync.Mutex
	snap usageSnapshot
}

func (u *imageUsage) recordRequest(imagesRequested int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.snap.GenerateRequests++
	u.snap.ImageRequested += imagesRequested
}

func (u *imageUsage) recordBatch(attempted bool, generated int, status string, retryAfterSeconds int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if attempted {
		u.snap.ImageAttempted++
		now := time.Now()
		u.snap.LastAttemptAt = &now
		u.snap.LastRetryAfterSec = retryAfterSeconds
	}
	u.snap.ImagesGenerated += generated
	u.snap.LastStatus = status
}

func (u *imageUsage) snapshot() usageSnapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.snap
}
