package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/migrator/internal/core"
	"github.com/JonMunkholm/migrator/internal/logging"
)

// createMigrationRequest is the JSON body of POST /api/migrations.
type createMigrationRequest struct {
	Name          string `json:"name"`
	MigrationType string `json:"migration_type"`
	Description   string `json:"description"`
	FileName      string `json:"file_name"`

	// Hold creates the migration pending so a file can be uploaded first.
	Hold bool `json:"hold"`
}

// migrationResponse is a job plus its derived progress percentage.
type migrationResponse struct {
	core.Job
	Progress float64 `json:"progress"`
}

func toMigrationResponse(j core.Job) migrationResponse {
	return migrationResponse{Job: j, Progress: j.Counters.Progress()}
}

// handleCreateMigration accepts either a JSON body naming a file already in
// the upload directory, or a multipart form carrying the file itself. A
// multipart upload is stored before the job is started so the runner never
// sees a job without its file.
func (s *Server) handleCreateMigration(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		s.createWithUpload(w, r)
		return
	}

	var req createMigrationRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: invalid JSON body: %v", core.ErrInvalidJob, err), http.StatusBadRequest)
		return
	}

	job, err := s.service.CreateJob(r.Context(), core.NewJob{
		Name:        req.Name,
		Kind:        core.TargetKind(req.MigrationType),
		Description: req.Description,
		FileName:    req.FileName,
		Hold:        req.Hold,
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusCreated, toMigrationResponse(job))
}

func (s *Server) createWithUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := uploadedFile(w, r, s.cfg.Migration.MaxFileSize)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	defer file.Close()

	ctx := r.Context()
	job, err := s.service.CreateJob(ctx, core.NewJob{
		Name:        r.FormValue("name"),
		Kind:        core.TargetKind(r.FormValue("migration_type")),
		Description: r.FormValue("description"),
		Hold:        true,
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	// The job exists from here on; failures report its id so the client can
	// retry the upload or start it later.
	attached, err := s.service.AttachFile(ctx, job.ID, header.Filename, file)
	if err != nil {
		logging.ForJob(ctx, job.ID).Warn("upload failed, migration left pending", "error", err)
		s.respondJobError(w, r, job.ID, err)
		return
	}

	if hold, _ := strconv.ParseBool(r.FormValue("hold")); hold {
		writeJSON(w, http.StatusCreated, toMigrationResponse(attached))
		return
	}
	started, err := s.service.StartJob(ctx, attached.ID)
	if err != nil {
		s.respondJobError(w, r, attached.ID, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMigrationResponse(started))
}

func (s *Server) handleListMigrations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.JobFilter{
		Kind:   core.TargetKind(strings.ToLower(q.Get("type"))),
		Status: core.Status(strings.ToLower(q.Get("status"))),
		Offset: parseIntParam(r, "offset", 0),
		Limit:  parseIntParam(r, "limit", 100),
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		s.respondError(w, r, fmt.Errorf("%w: %q", core.ErrUnknownTarget, filter.Kind), 0)
		return
	}

	jobs, err := s.service.ListJobs(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	out := make([]migrationResponse, len(jobs))
	for i, j := range jobs {
		out[i] = toMigrationResponse(j)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"migrations": out,
		"offset":     filter.Offset,
		"limit":      filter.Limit,
	})
}

func (s *Server) handleGetMigration(w http.ResponseWriter, r *http.Request) {
	id, err := jobIDParam(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	job, err := s.service.GetJob(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, toMigrationResponse(job))
}

func (s *Server) handleStartMigration(w http.ResponseWriter, r *http.Request) {
	id, err := jobIDParam(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	job, err := s.service.StartJob(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, toMigrationResponse(job))
}

// handleUploadFile attaches a file to a pending migration.
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	id, err := jobIDParam(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	file, header, err := uploadedFile(w, r, s.cfg.Migration.MaxFileSize)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	defer file.Close()

	job, err := s.service.AttachFile(r.Context(), id, header.Filename, file)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, toMigrationResponse(job))
}

func (s *Server) handleMigrationLogs(w http.ResponseWriter, r *http.Request) {
	id, err := jobIDParam(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	logs, err := s.service.Logs(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if logs == nil {
		logs = []core.LogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"migration_id": id, "logs": logs})
}

func (s *Server) handleLatestLog(w http.ResponseWriter, r *http.Request) {
	id, err := jobIDParam(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	latest, ok, err := s.service.LatestLog(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"formats": s.service.SupportedFormats()})
}

func (s *Server) handleProcessorStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ProcessorStatus())
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"targets": s.service.Targets()})
}

// handleHealth reports whether the processor loop is alive. The cache is
// optional, so a failing cache is reported without failing the check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.service.ProcessorStatus()
	status := http.StatusOK
	state := "ok"
	if !st.Running {
		status = http.StatusServiceUnavailable
		state = "processor stopped"
	}
	writeJSON(w, status, map[string]any{
		"status":    state,
		"in_flight": len(st.InFlight),
		"cache":     s.service.CacheStatus(r.Context()),
	})
}
