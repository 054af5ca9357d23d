package jobs

import (
	"context"
	"fmt"
	"math"
	"strings"

	"writeflow/internal/domain"
	"writeflow/internal/generator"
	"writeflow/internal/imagegen"
	"writeflow/internal/infra"
	"writeflow/internal/quality"
)

// Error codes recorded on failed jobs and warnings.
const (
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
	ErrCodeServerError       = "SERVER_ERROR"
	WarnCodeImageFailed      = "IMAGE_FAILED"
	WarnCodeProviderLimited  = "PROVIDER_RATE_LIMIT"
	WarnCodeImageMissingKey  = "MISSING_KEY"
	WarnCodeImageInvalidKey  = "INVALID_KEY"
	imageProgressBasePercent = 70
	imageProgressSpan        = 25
)

// Runner executes one job end to end: text generation, re-validation, and
// the image batch, publishing progress events at each checkpoint.
type Runner struct {
	logger    *infra.Logger
	store     *Store
	generator *generator.Generator
	pipeline  *imagegen.Pipeline
}

// NewRunner constructs a Runner.
func NewRunner(logger *infra.Logger, store *Store, gen *generator.Generator, pipeline *imagegen.Pipeline) *Runner {
	return &Runner{logger: logger, store: store, generator: gen, pipeline: pipeline}
}

// Run drives the job to a terminal state. It is safe to call in its own
// goroutine; a panic inside generation is converted into a job failure.
func (r *Runner) Run(ctx context.Context, jobID string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Str("job_id", jobID).Any("panic", rec).Msg("job runner panicked")
			r.fail(jobID, &domain.JobError{
				Code:      ErrCodeServerError,
				Message:   fmt.Sprintf("internal error: %v", rec),
				Retryable: true,
			})
		}
	}()

	job, ok := r.store.Get(jobID)
	if !ok {
		return
	}
	if signal, ok := r.store.CancelSignal(jobID); ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-signal:
				cancel()
			case <-ctx.Done():
			}
		}()
	}
	r.logger.Info().
		Str("job_id", jobID).
		Str("topic", job.Payload.Topic).
		Str("level", job.Payload.Level).
		Int("pages", job.Payload.Pages).
		Str("language", job.Payload.Language).
		Bool("images", job.Payload.IncludeImages).
		Msg("job started")

	r.progress(jobID, domain.JobStatusRunning, domain.StageAnalyzing, "Analyzing requirements...", 5)

	if r.cancelledCheckpoint(jobID) {
		return
	}

	r.progress(jobID, domain.JobStatusRunning, domain.StageGeneratingText, "Generating content...", 15)
	content, err := r.generator.Generate(ctx, job.Payload)
	if err != nil {
		if ctx.Err() != nil && r.cancelledCheckpoint(jobID) {
			return
		}
		r.fail(jobID, &domain.JobError{Code: ErrCodeServerError, Message: err.Error(), Retryable: true})
		return
	}

	validation := quality.Validate(content, job.Payload)
	r.logger.Info().
		Str("job_id", jobID).
		Str("digest", quality.HashText(content)[:12]).
		Int("words", validation.Stats.WordCount).
		Msg("content generated")

	if !validation.OK {
		r.store.Update(jobID, func(j *domain.Job) { j.Content = content })
		r.store.Emit(jobID, domain.JobEvent{
			Stage:   "running",
			Message: "Validation failed",
			Percent: 60,
			Meta:    map[string]any{"issues": validation.Issues},
		})
		r.fail(jobID, &domain.JobError{
			Code:      ErrCodeValidationFailed,
			Message:   "Generated content failed parameter validation.",
			Retryable: true,
			Issues:    validation.Issues,
		})
		return
	}

	r.store.Update(jobID, func(j *domain.Job) {
		j.Content = content
		if !j.Cancelled {
			j.Percent = 60
		}
	})
	r.store.Emit(jobID, domain.JobEvent{
		Stage:   "running",
		Message: "Content generated",
		Percent: 60,
		Meta:    map[string]any{"contentLength": len(content)},
	})

	if r.cancelledCheckpoint(jobID) {
		return
	}

	requested := 0
	if job.Payload.IncludeImages {
		requested = job.Payload.ImageCount
	}
	if requested == 0 {
		r.store.Update(jobID, func(j *domain.Job) {
			j.GeneratedImages = nil
			j.ImageGeneration = &domain.ImageGeneration{Status: domain.ImageStatusSkipped}
		})
		r.complete(jobID)
		return
	}

	r.progress(jobID, domain.JobStatusRunning, domain.StageGeneratingImages, "Creating images...", imageProgressBasePercent)
	generated, state := r.pipeline.GenerateForContent(ctx, job.Payload, content, job.Seed, func(p imagegen.Progress) {
		percent := imageProgressBasePercent + int(math.Round(imageProgressSpan*float64(p.Done)/math.Max(1, float64(p.Total))))
		updated := false
		r.store.Update(jobID, func(j *domain.Job) {
			if j.Cancelled {
				return
			}
			j.Percent = percent
			j.Message = p.Message
			j.Stage = domain.StageGeneratingImages
			updated = true
		})
		if updated {
			r.store.Emit(jobID, domain.JobEvent{Stage: "running", Message: p.Message, Percent: percent, Meta: p.Meta})
		}
	})

	if r.cancelledCheckpoint(jobID) {
		return
	}

	r.store.Update(jobID, func(j *domain.Job) {
		j.GeneratedImages = generated
		j.ImageGeneration = &state
	})

	if hasImageShortfall(requested, generated, state) &&
		state.Status != domain.ImageStatusQuotaExceeded &&
		state.Status != domain.ImageStatusQuotaBlocked {
		warning := classifyImageFailure(state)
		r.store.Update(jobID, func(j *domain.Job) { j.Warning = &warning })
		r.store.Emit(jobID, domain.JobEvent{
			Stage:   "running",
			Message: "Some images failed. You can retry, upload images, or continue without images.",
			Percent: 95,
			Meta:    map[string]any{"warning": true},
		})
	}

	r.complete(jobID)
}

func hasImageShortfall(requested int, generated []string, state domain.ImageGeneration) bool {
	return requested > 0 && len(generated) < requested && len(state.Errors) > 0
}

// classifyImageFailure converts the final image batch state into the warning
// shown on a completed job.
func classifyImageFailure(state domain.ImageGeneration) domain.JobWarning {
	message := "Some images could not be generated."
	if len(state.Errors) > 0 {
		message = state.Errors[0].Reason
	}
	switch state.Status {
	case domain.ImageStatusQuotaExceeded, domain.ImageStatusQuotaBlocked, domain.ImageStatusBillingRequired:
		return domain.JobWarning{Code: WarnCodeProviderLimited, Message: message}
	case domain.ImageStatusMissingKey:
		return domain.JobWarning{Code: WarnCodeImageMissingKey, Message: message}
	case domain.ImageStatusInvalidKey:
		return domain.JobWarning{Code: WarnCodeImageInvalidKey, Message: message}
	}
	return domain.JobWarning{Code: WarnCodeImageFailed, Message: message}
}

// cancelledCheckpoint reports whether the job was cancelled. Store.Cancel
// already moved the job to its terminal state and emitted the event; the
// runner only has to stop.
func (r *Runner) cancelledCheckpoint(jobID string) bool {
	job, ok := r.store.Get(jobID)
	if !ok {
		return true
	}
	if !job.Cancelled {
		return false
	}
	r.logger.Info().Str("job_id", jobID).Msg("job cancelled")
	return true
}

func (r *Runner) progress(jobID string, status domain.JobStatus, stage, message string, percent int) {
	updated := false
	r.store.Update(jobID, func(j *domain.Job) {
		if j.Cancelled {
			return
		}
		j.Status = status
		j.Stage = stage
		j.Message = message
		j.Percent = percent
		updated = true
	})
	if updated {
		r.store.Emit(jobID, domain.JobEvent{Stage: "running", Message: message, Percent: percent})
	}
}

func (r *Runner) complete(jobID string) {
	if r.cancelledCheckpoint(jobID) {
		return
	}
	completed := false
	r.store.Update(jobID, func(j *domain.Job) {
		if j.Cancelled {
			return
		}
		j.Status = domain.JobStatusCompleted
		j.Stage = domain.StageCompleted
		j.Message = "Completed"
		j.Percent = 100
		completed = true
	})
	if !completed {
		return
	}
	r.store.Emit(jobID, domain.JobEvent{Stage: domain.StageCompleted, Message: "Completed", Percent: 100})
	r.logger.Info().Str("job_id", jobID).Msg("job completed")
}

func (r *Runner) fail(jobID string, jobErr *domain.JobError) {
	job, _ := r.store.Get(jobID)
	percent := job.Percent
	if percent < 0 {
		percent = 0
	}
	message := jobErr.Message
	if strings.TrimSpace(message) == "" {
		message = "Generation failed"
	}
	failed := false
	r.store.Update(jobID, func(j *domain.Job) {
		if j.Cancelled {
			return
		}
		j.Status = domain.JobStatusFailed
		j.Stage = domain.StageFailed
		j.Message = message
		j.Percent = percent
		j.Error = jobErr
		failed = true
	})
	if !failed {
		return
	}
	r.store.Emit(jobID, domain.JobEvent{
		Stage:   domain.StageFailed,
		Message: message,
		Percent: percent,
		Error:   jobErr,
	})
	r.logger.Warn().Str("job_id", jobID).Str("code", jobErr.Code).Msg("job failed")
}
