package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/openclaw/mind/internal/manager"
	"github.com/openclaw/mind/internal/store"
)

// --- JSON Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON: encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- API Handlers ---

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.mgr.Dashboard(r.PathValue("agent"), s.cfg.SinceDays)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleLearnings(w http.ResponseWriter, r *http.Request) {
	st, err := s.mgr.MindStore(r.PathValue("agent"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"approved": st.GetApprovedLearnings(),
		"pending":  st.GetPendingLearnings(),
	})
}

func (s *Server) learningID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, ok := s.learningID(w, r)
	if !ok {
		return
	}
	st, err := s.mgr.MindStore(r.PathValue("agent"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	st.ApproveLearning(id)
	s.publish(st.AgentID(), "learning_approved", id)
	writeJSON(w, http.StatusOK, map[string]any{"approved": id})
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	id, ok := s.learningID(w, r)
	if !ok {
		return
	}
	st, err := s.mgr.MindStore(r.PathValue("agent"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	st.RejectLearning(id)
	s.publish(st.AgentID(), "learning_rejected", id)
	writeJSON(w, http.StatusOK, map[string]any{"rejected": id})
}

func (s *Server) handleCron(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, manager.DreamCronPayload(r.PathValue("agent")))
}

func (s *Server) publish(agent, event string, id int64) {
	if s.hub == nil {
		return
	}
	data, err := json.Marshal(map[string]any{"event": event, "id": id})
	if err != nil {
		return
	}
	s.hub.Publish(agent, string(data))
}

// --- SSE ---

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusNotFound, "event streaming disabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	agent := store.NormalizeAgentID(r.PathValue("agent"))
	ch, cancel := s.hub.Subscribe(agent)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case line, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", line)
			flusher.Flush()
		}
	}
}

// --- HTML View ---

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><title>Mind: {{.Agent}}</title>
<style>body { font-family: sans-serif; max-width: 60rem; margin: 2rem auto; }</style>
</head>
<body>{{.Body}}</body>
</html>
`))

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.mgr.Dashboard(r.PathValue("agent"), s.cfg.SinceDays)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var html bytes.Buffer
	if err := md.Convert([]byte(snapshotMarkdown(snapshot)), &html); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = pageTmpl.Execute(w, struct {
		Agent string
		Body  template.HTML
	}{snapshot.Agent, template.HTML(html.String())}) //nolint:gosec // goldmark output of our own markdown
}

// snapshotMarkdown renders the dashboard snapshot as a markdown document.
func snapshotMarkdown(snap *manager.DashboardSnapshot) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Mind Dashboard: %s\n\n", snap.Agent)
	fmt.Fprintf(&sb, "%d behavioral signals in the window.\n\n", snap.LogCount)

	sb.WriteString("## Approved Learnings\n")
	if len(snap.Approved) == 0 {
		sb.WriteString("*None.*\n")
	} else {
		sb.WriteString(store.FormatLearnings(snap.Approved))
		sb.WriteString("\n")
	}

	sb.WriteString("\n## Pending Learnings\n")
	if len(snap.Pending) == 0 {
		sb.WriteString("*None.*\n")
	} else {
		sb.WriteString(store.FormatLearnings(snap.Pending))
		sb.WriteString("\n")
	}

	sb.WriteString("\n## Recent Dreams\n")
	if len(snap.Dreams) == 0 {
		sb.WriteString("*None.*\n")
	} else {
		for _, d := range snap.Dreams {
			fmt.Fprintf(&sb, "- [%s] analyzed %d days, %d logs\n",
				store.FormatTimestamp(d.CreatedAt), d.DaysAnalyzed, d.LogCount)
		}
	}

	if len(snap.RejectedTitles) > 0 {
		sb.WriteString("\n## Rejected\n")
		for _, t := range snap.RejectedTitles {
			fmt.Fprintf(&sb, "- %s\n", t)
		}
	}

	return sb.String()
}
