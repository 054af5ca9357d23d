package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"writeflow/internal/domain"
)

const keepaliveInterval = 15 * time.Second

// JobEvents streams a job's progress log over SSE. The stream opens with a
// snapshot of the job, replays retained events, then follows live ones. A
// reconnecting client sends Last-Event-ID and resumes without duplicates.
func (a *App) JobEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	job, ok := a.Store.Get(id)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		a.error(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sinceSeq := lastEventSeq(r)
	replay, live, cancel, ok := a.Store.Subscribe(id, sinceSeq)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeSSE(w, "snapshot", map[string]any{"job": job})
	for _, evt := range replay {
		writeProgress(w, evt)
	}
	flusher.Flush()

	heartbeat := time.NewTicker(keepaliveInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, open := <-live:
			if !open {
				return
			}
			writeProgress(w, evt)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ":keepalive %d\n\n", time.Now().UnixMilli())
			flusher.Flush()
		}
	}
}

// lastEventSeq extracts the sequence number a reconnecting SSE client last
// saw, from the Last-Event-ID header or a since query parameter.
func lastEventSeq(r *http.Request) int64 {
	raw := r.Header.Get("Last-Event-ID")
	if raw == "" {
		raw = r.URL.Query().Get("since")
	}
	if raw == "" {
		return 0
	}
	if i := strings.LastIndex(raw, ":"); i >= 0 {
		raw = raw[i+1:]
	}
	seq, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || seq < 0 {
		return 0
	}
	return seq
}

func writeSSE(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

// writeProgress includes the event ID so the browser's EventSource can
// resume from it on reconnect.
func writeProgress(w http.ResponseWriter, evt domain.JobEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "id: %s\nevent: progress\ndata: %s\n\n", evt.ID, data)
}
