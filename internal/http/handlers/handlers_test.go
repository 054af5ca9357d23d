package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"writeflow/internal/domain"
	"writeflow/internal/feedback"
	"writeflow/internal/generator"
	"writeflow/internal/imagegen"
	"writeflow/internal/infra"
	"writeflow/internal/jobs"
	"writeflow/internal/providers/image"
)

type fakeImage struct {
	calls int
	err   error
}

func (f *fakeImage) Name() string { return "fake" }

func (f *fakeImage) Generate(context.Context, string, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "data:image/png;base64,ok", nil
}

func newTestApp() (*App, *fakeImage) {
	logger := infra.Logger(zerolog.New(io.Discard))
	cfg := &infra.Config{
		ImageProvider:   image.ProviderGoogle,
		GoogleAPIKey:    "AIzaTestKey",
		RateLimitPerMin: 30,
	}
	gen := generator.New(generator.Options{TemplateDelay: time.Millisecond})
	img := &fakeImage{}
	pipeline := imagegen.New(imagegen.Options{
		APIKey:     cfg.EffectiveImageAPIKey(),
		Generators: map[string]image.Generator{image.ProviderGoogle: img},
		Retry:      imagegen.RetryPolicy{MaxAttempts: 1},
	})
	store := jobs.NewStore()
	runner := jobs.NewRunner(&logger, store, gen, pipeline)
	app := NewApp(&logger, cfg, store, runner, gen, pipeline, feedback.NewStore())
	app.seed = func() int64 { return 99 }
	return app, img
}

func newTestRouter(a *App) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/jobs", a.CreateJob)
	r.Route("/api/jobs/{jobID}", func(r chi.Router) {
		r.Get("/", a.GetJob)
		r.Get("/events", a.JobEvents)
		r.Post("/cancel", a.CancelJob)
		r.Post("/resolve-no-images", a.ResolveNoImages)
		r.Post("/upload-images", a.UploadImages)
		r.Post("/retry-images", a.RetryImages)
	})
	return r
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
}

func validBody() map[string]any {
	return map[string]any{
		"topic":    "Introduction to Python Programming",
		"subject":  "Computer Science",
		"level":    "University",
		"length":   "Medium",
		"style":    "Academic",
		"pages":    1,
		"language": "English",
	}
}

func waitForTerminal(t *testing.T, store *jobs.Store, id string) domain.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := store.Get(id)
		if !ok {
			t.Fatalf("job %s disappeared", id)
		}
		if job.Status.IsTerminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", id)
	return domain.Job{}
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp()
	w := httptest.NewRecorder()
	app.Health(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	decodeBody(t, w, &body)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestGenerateSync(t *testing.T) {
	app, _ := newTestApp()
	body := validBody()
	body["seed"] = 42

	w := httptest.NewRecorder()
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/generate", bytes.NewReader(data))
	app.Generate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Seed    int64  `json:"seed"`
			Content string `json:"content"`
			Topic   string `json:"topic"`
		} `json:"data"`
	}
	decodeBody(t, w, &resp)
	if !resp.Success || resp.Data.Content == "" {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Data.Seed != 42 {
		t.Errorf("seed = %d, want 42", resp.Data.Seed)
	}
	if resp.Data.Topic != "Introduction to Python Programming" {
		t.Errorf("topic = %q", resp.Data.Topic)
	}

	usage := app.usage.snapshot()
	if usage.GenerateRequests != 1 {
		t.Errorf("generateRequests = %d, want 1", usage.GenerateRequests)
	}
}

func TestGenerateRejectsInvalidPayload(t *testing.T) {
	app, _ := newTestApp()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"subject":"CS"}`))
	app.Generate(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Success bool     `json:"success"`
		Errors  []string `json:"errors"`
	}
	decodeBody(t, w, &resp)
	if resp.Success || len(resp.Errors) == 0 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestCreateJobAndPoll(t *testing.T) {
	app, _ := newTestApp()
	router := newTestRouter(app)

	w := postJSON(t, router, "/api/jobs", validBody())
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var created struct {
		OK  bool `json:"ok"`
		Job struct {
			ID string `json:"id"`
		} `json:"job"`
	}
	decodeBody(t, w, &created)
	if !created.OK || created.Job.ID == "" {
		t.Fatalf("resp = %+v", created)
	}

	job := waitForTerminal(t, app.Store, created.Job.ID)
	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("status = %q, error = %+v", job.Status, job.Error)
	}

	getW := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+created.Job.ID, nil)
	router.ServeHTTP(getW, req)
	if getW.Code != http.StatusOK {
		t.Fatalf("poll status = %d", getW.Code)
	}
	var polled struct {
		OK  bool `json:"ok"`
		Job struct {
			Status  string `json:"status"`
			Percent int    `json:"percent"`
			LastSeq int64  `json:"lastEventSeq"`
		} `json:"job"`
		Result *struct {
			Content         string   `json:"content"`
			GeneratedImages []string `json:"generatedImages"`
		} `json:"result"`
	}
	decodeBody(t, getW, &polled)
	if polled.Job.Status != "completed" || polled.Job.Percent != 100 {
		t.Errorf("job = %+v", polled.Job)
	}
	if polled.Job.LastSeq == 0 {
		t.Error("lastEventSeq = 0, want progress events")
	}
	if polled.Result == nil || polled.Result.Content == "" {
		t.Fatalf("result = %+v", polled.Result)
	}
	if polled.Result.GeneratedImages == nil {
		t.Error("generatedImages null, want empty array")
	}
}

func TestCreateJobValidation(t *testing.T) {
	app, _ := newTestApp()
	router := newTestRouter(app)

	w := postJSON(t, router, "/api/jobs", map[string]any{"subject": "CS"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		OK     bool     `json:"ok"`
		Errors []string `json:"errors"`
	}
	decodeBody(t, w, &resp)
	if resp.OK || len(resp.Errors) == 0 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGetJobNotFound(t *testing.T) {
	app, _ := newTestApp()
	router := newTestRouter(app)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	decodeBody(t, w, &resp)
	if resp.OK || resp.Error != "Job not found" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestCancelJob(t *testing.T) {
	app, _ := newTestApp()
	router := newTestRouter(app)
	job := app.Store.Create(payloadFromBody(t), 1)

	w := postJSON(t, router, "/api/jobs/"+job.ID+"/cancel", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		OK  bool `json:"ok"`
		Job struct {
			Status string `json:"status"`
		} `json:"job"`
	}
	decodeBody(t, w, &resp)
	if resp.Job.Status != "cancelled" {
		t.Errorf("status = %q", resp.Job.Status)
	}
	got, _ := app.Store.Get(job.ID)
	if !got.Cancelled {
		t.Error("cancel flag not set")
	}
	if got.Status != domain.JobStatusCancelled {
		t.Errorf("stored status = %q, poll view must match the cancel response", got.Status)
	}
}

func TestCancelTerminalJobReportsCurrentStatus(t *testing.T) {
	app, _ := newTestApp()
	router := newTestRouter(app)
	job := app.Store.Create(payloadFromBody(t), 1)
	app.Store.Update(job.ID, func(j *domain.Job) { j.Status = domain.JobStatusCompleted })

	w := postJSON(t, router, "/api/jobs/"+job.ID+"/cancel", nil)
	var resp struct {
		Job struct {
			Status string `json:"status"`
		} `json:"job"`
	}
	decodeBody(t, w, &resp)
	if resp.Job.Status != "completed" {
		t.Errorf("status = %q, cancel must not touch a finished job", resp.Job.Status)
	}
}

func TestResolveNoImages(t *testing.T) {
	app, _ := newTestApp()
	router := newTestRouter(app)
	job := app.Store.Create(payloadFromBody(t), 1)

	w := postJSON(t, router, "/api/jobs/"+job.ID+"/resolve-no-images", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d before content is ready", w.Code)
	}

	app.Store.Update(job.ID, func(j *domain.Job) { j.Content = "# Done\n\nBody." })
	w = postJSON(t, router, "/api/jobs/"+job.ID+"/resolve-no-images", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	got, _ := app.Store.Get(job.ID)
	if got.Status != domain.JobStatusCompleted || got.Message != "Completed (without images)" {
		t.Errorf("job = %q %q", got.Status, got.Message)
	}
	if got.Payload.IncludeImages || got.Payload.ImageCount != 0 {
		t.Errorf("payload images still on: %+v", got.Payload)
	}
	if got.ImageGeneration == nil || got.ImageGeneration.Status != domain.ImageStatusSkipped {
		t.Errorf("imageGeneration = %+v", got.ImageGeneration)
	}
}

func TestUploadImages(t *testing.T) {
	app, _ := newTestApp()
	router := newTestRouter(app)
	job := app.Store.Create(payloadFromBody(t), 1)

	body := map[string]any{"images": []string{
		"data:image/png;base64,aaa",
		"https://example.com/not-a-data-uri.png",
		"data:image/jpeg;base64,bbb",
	}}
	w := postJSON(t, router, "/api/jobs/"+job.ID+"/upload-images", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	got, _ := app.Store.Get(job.ID)
	if len(got.Payload.Images) != 2 {
		t.Fatalf("kept %d images, want 2", len(got.Payload.Images))
	}
	if got.Payload.ImageCount != 2 || !got.Payload.IncludeImages {
		t.Errorf("payload = %+v", got.Payload)
	}
	if got.ImageGeneration == nil || got.ImageGeneration.Status != domain.ImageStatusUploadedOnly {
		t.Errorf("imageGeneration = %+v", got.ImageGeneration)
	}
	if got.Message != "Completed (with uploaded images)" {
		t.Errorf("message = %q", got.Message)
	}
}

func TestUploadImagesRejectsNonDataURIs(t *testing.T) {
	app, _ := newTestApp()
	router := newTestRouter(app)
	job := app.Store.Create(payloadFromBody(t), 1)

	w := postJSON(t, router, "/api/jobs/"+job.ID+"/upload-images",
		map[string]any{"images": []string{"https://example.com/a.png"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRetryImagesMaxAttempts(t *testing.T) {
	app, _ := newTestApp()
	router := newTestRouter(app)
	job := app.Store.Create(payloadFromBody(t), 1)
	app.Store.Update(job.ID, func(j *domain.Job) {
		j.Content = "# Done\n\nBody."
		j.Attempt = j.MaxAttempts
	})

	w := postJSON(t, router, "/api/jobs/"+job.ID+"/retry-images", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Error string `json:"error"`
	}
	decodeBody(t, w, &resp)
	if resp.Error != "Max attempts reached" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestRetryImagesRunsPipeline(t *testing.T) {
	app, img := newTestApp()
	router := newTestRouter(app)

	p := payloadFromBody(t)
	p.IncludeImages = true
	p.ImageCount = 1
	job := app.Store.Create(p, 1)
	content := "# Done\n\n[IMAGE: SECTION_TITLE=\"Done\" KEYWORDS=\"a, b\"]\n\nBody."
	app.Store.Update(job.ID, func(j *domain.Job) { j.Content = content })

	w := postJSON(t, router, "/api/jobs/"+job.ID+"/retry-images", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	got, _ := app.Store.Get(job.ID)
	if got.Attempt != 2 {
		t.Errorf("attempt = %d, want 2", got.Attempt)
	}
	if got.Status != domain.JobStatusCompleted || got.Percent != 100 {
		t.Errorf("job = %q %d", got.Status, got.Percent)
	}
	if len(got.GeneratedImages) != 1 || img.calls != 1 {
		t.Errorf("generated = %d, calls = %d", len(got.GeneratedImages), img.calls)
	}
}

func TestJobEventsStream(t *testing.T) {
	app, _ := newTestApp()
	router := newTestRouter(app)
	job := app.Store.Create(payloadFromBody(t), 1)
	app.Store.Emit(job.ID, domain.JobEvent{Stage: "queued", Message: "Job created", Percent: 0})
	app.Store.Emit(job.ID, domain.JobEvent{Stage: "running", Message: "Analyzing requirements...", Percent: 5})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID+"/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "event: snapshot") {
		t.Errorf("missing snapshot event:\n%s", body)
	}
	if !strings.Contains(body, "id: "+job.ID+":1") || !strings.Contains(body, "id: "+job.ID+":2") {
		t.Errorf("missing replayed progress events:\n%s", body)
	}
	if !strings.Contains(body, "Analyzing requirements...") {
		t.Errorf("missing event payload:\n%s", body)
	}
}

func TestJobEventsResume(t *testing.T) {
	app, _ := newTestApp()
	router := newTestRouter(app)
	job := app.Store.Create(payloadFromBody(t), 1)
	app.Store.Emit(job.ID, domain.JobEvent{Stage: "running", Message: "first"})
	app.Store.Emit(job.ID, domain.JobEvent{Stage: "running", Message: "second"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID+"/events", nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", job.ID+":1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	body := w.Body.String()
	if strings.Contains(body, `"message":"first"`) {
		t.Errorf("replayed an already seen event:\n%s", body)
	}
	if !strings.Contains(body, `"message":"second"`) {
		t.Errorf("missing unseen event:\n%s", body)
	}
}

func TestLastEventSeq(t *testing.T) {
	cases := []struct {
		header string
		query  string
		want   int64
	}{
		{"abc-123:7", "", 7},
		{"", "4", 4},
		{"12", "", 12},
		{"garbage", "", 0},
		{"", "", 0},
		{"job:-3", "", 0},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/events?since="+tc.query, nil)
		if tc.header != "" {
			req.Header.Set("Last-Event-ID", tc.header)
		}
		if got := lastEventSeq(req); got != tc.want {
			t.Errorf("lastEventSeq(header=%q, since=%q) = %d, want %d", tc.header, tc.query, got, tc.want)
		}
	}
}

func TestSubmitFeedbackValidation(t *testing.T) {
	app, _ := newTestApp()

	w := httptest.NewRecorder()
	app.SubmitFeedback(w, httptest.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader(`{"rating":5}`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing jobId: status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	app.SubmitFeedback(w, httptest.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader(`{"jobId":"j1","rating":0}`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad rating: status = %d", w.Code)
	}
}

func TestSubmitFeedbackStoresEntry(t *testing.T) {
	app, _ := newTestApp()
	longTag := strings.Repeat("x", 40)
	body := `{"jobId":"j1","rating":4,"notes":" helpful ","tags":["clear","` + longTag + `"]}`

	w := httptest.NewRecorder()
	app.SubmitFeedback(w, httptest.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	items := app.Feedback.Recent(1)
	if len(items) != 1 {
		t.Fatalf("stored %d entries", len(items))
	}
	e := items[0]
	if e.JobID != "j1" || e.Rating != 4 || e.Notes != "helpful" {
		t.Errorf("entry = %+v", e)
	}
	if len(e.Tags) != 1 || e.Tags[0] != "clear" {
		t.Errorf("tags = %v, oversized tag must be dropped", e.Tags)
	}
}

func TestRecentFeedbackEmptyList(t *testing.T) {
	app, _ := newTestApp()
	w := httptest.NewRecorder()
	app.RecentFeedback(w, httptest.NewRequest(http.MethodGet, "/api/monitoring/feedback", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"items":[]`) {
		t.Errorf("body = %s, want empty items array", w.Body.String())
	}
}

func TestImageGenerationStatus(t *testing.T) {
	app, _ := newTestApp()
	w := httptest.NewRecorder()
	app.ImageGenerationStatus(w, httptest.NewRequest(http.MethodGet, "/api/monitoring/image-generation", nil))

	var resp struct {
		OK            bool   `json:"ok"`
		Provider      string `json:"provider"`
		KeyConfigured bool   `json:"keyConfigured"`
	}
	decodeBody(t, w, &resp)
	if !resp.OK || resp.Provider != "google" || !resp.KeyConfigured {
		t.Errorf("resp = %+v", resp)
	}
}

func TestTextProviderStatus(t *testing.T) {
	app, _ := newTestApp()
	w := httptest.NewRecorder()
	app.TextProviderStatus(w, httptest.NewRequest(http.MethodGet, "/api/monitoring/text-providers", nil))

	var resp struct {
		OK        bool                      `json:"ok"`
		Providers map[string]map[string]any `json:"providers"`
	}
	decodeBody(t, w, &resp)
	if !resp.OK {
		t.Errorf("resp = %+v", resp)
	}
}

func payloadFromBody(t *testing.T) domain.Payload {
	t.Helper()
	raw := domain.RawPayload{
		Topic:    "Introduction to Python Programming",
		Subject:  "Computer Science",
		Level:    "University",
		Length:   "Medium",
		Style:    "Academic",
		Pages:    1,
		Language: "English",
	}
	p, errs := domain.NormalizePayload(raw)
	if len(errs) > 0 {
		t.Fatalf("payload errors: %v", errs)
	}
	return p
}
