package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"writeflow/internal/feedback"
)

const (
	maxFeedbackTags   = 10
	maxFeedbackTagLen = 32
)

type feedbackRequest struct {
	JobID  string   `json:"jobId"`
	Rating float64  `json:"rating"`
	Notes  string   `json:"notes"`
	Tags   []string `json:"tags"`
}

// SubmitFeedback records a rating for a finished job.
func (a *App) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	jobID := strings.TrimSpace(req.JobID)
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "jobId is required")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		a.error(w, http.StatusBadRequest, "rating must be 1..5")
		return
	}

	var tags []string
	for _, tag := range req.Tags {
		if len(tag) > maxFeedbackTagLen {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == maxFeedbackTags {
			break
		}
	}

	a.Feedback.Add(feedback.Entry{
		JobID:  jobID,
		Rating: int(req.Rating),
		Notes:  strings.TrimSpace(req.Notes),
		Tags:   tags,
	})
	a.json(w, http.StatusOK, map[string]any{"ok": true})
}

// RecentFeedback lists the latest feedback entries, newest first.
func (a *App) RecentFeedback(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items := a.Feedback.Recent(limit)
	if items == nil {
		items = []feedback.Entry{}
	}
	a.json(w, http.StatusOK, map[string]any{"ok": true, "items": items})
}
