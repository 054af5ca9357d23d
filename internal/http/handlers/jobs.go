package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"writeflow/internal/domain"
	"writeflow/internal/imagegen"
)

type jobResult struct {
	domain.Payload
	Seed            int64                  `json:"seed"`
	Content         string                 `json:"content"`
	GeneratedImages []string               `json:"generatedImages"`
	ImageGeneration domain.ImageGeneration `json:"imageGeneration"`
}

func resultFor(job domain.Job) *jobResult {
	if job.Status != domain.JobStatusCompleted {
		return nil
	}
	images := job.GeneratedImages
	if images == nil {
		images = []string{}
	}
	state := domain.ImageGeneration{Status: domain.ImageStatusIdle, Attempted: false, Generated: 0, Errors: []domain.ImageError{}}
	if job.ImageGeneration != nil {
		state = *job.ImageGeneration
	}
	return &jobResult{
		Payload:         job.Payload,
		Seed:            job.Seed,
		Content:         job.Content,
		GeneratedImages: images,
		ImageGeneration: state,
	}
}

// CreateJob enqueues an async generation job and starts its runner.
func (a *App) CreateJob(w http.ResponseWriter, r *http.Request) {
	var raw domain.RawPayload
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		a.json(w, http.StatusBadRequest, map[string]any{"ok": false, "errors": []string{"invalid JSON body"}})
		return
	}
	p, errs := domain.NormalizePayload(raw)
	if len(errs) > 0 {
		a.json(w, http.StatusBadRequest, map[string]any{"ok": false, "errors": errs})
		return
	}

	seed := p.Seed
	if seed == 0 {
		seed = a.seed()
	}
	job := a.Store.Create(p, seed)
	a.Store.Emit(job.ID, domain.JobEvent{Stage: "queued", Message: "Job created", Percent: 0})

	a.Logger.Info().
		Str("job_id", job.ID).
		Str("topic", p.Topic).
		Str("level", p.Level).
		Str("language", p.Language).
		Bool("include_images", p.IncludeImages).
		Msg("job created")

	go a.Runner.Run(context.Background(), job.ID)

	a.json(w, http.StatusAccepted, map[string]any{"ok": true, "job": map[string]string{"id": job.ID}})
}

// GetJob returns the job snapshot, plus the result once the job completed.
func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := a.Store.Get(chi.URLParam(r, "jobID"))
	if !ok {
		a.error(w, http.StatusNotFound, "Job not found")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"ok": true, "job": job, "result": resultFor(job)})
}

// CancelJob cancels a running job immediately; an in-flight runner stops at
// its next checkpoint. The response carries the stored status so it always
// matches what a subsequent poll returns.
func (a *App) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	job, ok := a.Store.Cancel(id)
	if !ok {
		a.error(w, http.StatusNotFound, "Job not found")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"ok": true, "job": map[string]any{"id": job.ID, "status": job.Status}})
}

// ResolveNoImages accepts the generated content as-is and completes the job
// without any images.
func (a *App) ResolveNoImages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	job, ok := a.Store.Get(id)
	if !ok {
		a.error(w, http.StatusNotFound, "Job not found")
		return
	}
	if strings.TrimSpace(job.Content) == "" {
		a.error(w, http.StatusBadRequest, "Content not ready")
		return
	}

	a.Store.Update(id, func(j *domain.Job) {
		j.Payload.IncludeImages = false
		j.Payload.ImageCount = 0
		j.Payload.Images = nil
		j.GeneratedImages = nil
		j.ImageGeneration = &domain.ImageGeneration{Status: domain.ImageStatusSkipped, Errors: []domain.ImageError{}}
		j.Warning = nil
		j.Status = domain.JobStatusCompleted
		j.Stage = domain.StageCompleted
		j.Message = "Completed (without images)"
		j.Percent = 100
	})
	a.Store.Emit(id, domain.JobEvent{Stage: domain.StageCompleted, Message: "Completed (without images)", Percent: 100})
	a.json(w, http.StatusOK, map[string]any{"ok": true})
}

type uploadImagesRequest struct {
	Images []string `json:"images"`
}

// UploadImages attaches client-supplied images to a job instead of generated
// ones and completes it.
func (a *App) UploadImages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	job, ok := a.Store.Get(id)
	if !ok {
		a.error(w, http.StatusNotFound, "Job not found")
		return
	}

	var req uploadImagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	var sanitized []string
	for _, img := range req.Images {
		if strings.HasPrefix(img, "data:image/") {
			sanitized = append(sanitized, img)
		}
		if len(sanitized) == domain.MaxUploads {
			break
		}
	}
	if len(sanitized) == 0 {
		a.error(w, http.StatusBadRequest, "No valid images provided")
		return
	}

	imageCount := job.Payload.ImageCount
	if len(sanitized) > imageCount {
		imageCount = len(sanitized)
	}
	a.Store.Update(id, func(j *domain.Job) {
		j.Payload.IncludeImages = true
		j.Payload.ImageCount = imageCount
		j.Payload.Images = sanitized
		j.ImageGeneration = &domain.ImageGeneration{Status: domain.ImageStatusUploadedOnly, Attempted: true, Errors: []domain.ImageError{}}
		j.Warning = nil
		j.Status = domain.JobStatusCompleted
		j.Stage = domain.StageCompleted
		j.Message = "Completed (with uploaded images)"
		j.Percent = 100
	})
	a.Store.Emit(id, domain.JobEvent{Stage: domain.StageCompleted, Message: "Completed (with uploaded images)", Percent: 100})
	a.json(w, http.StatusOK, map[string]any{"ok": true})
}

// RetryImages reruns image generation for a job whose content is already in
// place, counting one more attempt.
func (a *App) RetryImages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	job, ok := a.Store.Get(id)
	if !ok {
		a.error(w, http.StatusNotFound, "Job not found")
		return
	}
	if strings.TrimSpace(job.Content) == "" {
		a.error(w, http.StatusBadRequest, "Content not ready")
		return
	}
	if job.Attempt >= job.MaxAttempts {
		a.error(w, http.StatusBadRequest, "Max attempts reached")
		return
	}

	attempt := job.Attempt + 1
	percent := job.Percent
	if percent == 0 {
		percent = 70
	}
	if percent > 95 {
		percent = 95
	}
	a.Store.Update(id, func(j *domain.Job) {
		j.Attempt = attempt
		j.Status = domain.JobStatusRunning
		j.Stage = domain.StageGeneratingImages
		j.Message = "Retrying images..."
		j.Percent = percent
		j.Warning = nil
		j.Error = nil
	})
	a.Store.Emit(id, domain.JobEvent{
		Stage:   "running",
		Message: "Retrying images...",
		Percent: percent,
		Meta:    map[string]any{"attempt": attempt, "maxAttempts": job.MaxAttempts},
	})

	generated, state := a.Pipeline.GenerateForContent(r.Context(), job.Payload, job.Content, job.Seed, func(p imagegen.Progress) {
		total := p.Total
		if total < 1 {
			total = 1
		}
		pct := 70 + int(float64(25*p.Done)/float64(total)+0.5)
		a.Store.Update(id, func(j *domain.Job) {
			j.Percent = pct
			j.Message = p.Message
			j.Stage = domain.StageGeneratingImages
		})
		a.Store.Emit(id, domain.JobEvent{Stage: "running", Message: p.Message, Percent: pct, Meta: p.Meta})
	})

	a.Store.Update(id, func(j *domain.Job) {
		j.GeneratedImages = generated
		j.ImageGeneration = &state
		j.Status = domain.JobStatusCompleted
		j.Stage = domain.StageCompleted
		j.Message = "Completed"
		j.Percent = 100
	})
	a.Store.Emit(id, domain.JobEvent{Stage: domain.StageCompleted, Message: "Completed", Percent: 100})
	a.json(w, http.StatusOK, map[string]any{"ok": true})
}
