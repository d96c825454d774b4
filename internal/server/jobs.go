package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/pdf2jpk/constants"
	"github.com/joseph-ayodele/pdf2jpk/internal/common"
	"github.com/joseph-ayodele/pdf2jpk/internal/core"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
	"github.com/joseph-ayodele/pdf2jpk/internal/ingest"
)

type artifactKind int

const (
	artifactResult artifactKind = iota
	artifactReport
)

// jobList is the GET /jobs response.
type jobList struct {
	Jobs []*entity.JobDescriptor `json:"jobs"`
}

// metaFromForm reads submission metadata fields and fills blanks from the filer defaults.
func (s *Server) metaFromForm(r *http.Request) (entity.JobMeta, error) {
	meta := entity.JobMeta{
		CompanyName: strings.TrimSpace(r.FormValue("company_name")),
		CompanyNIP:  strings.TrimSpace(r.FormValue("company_nip")),
		OfficeCode:  strings.TrimSpace(r.FormValue("office_code")),
		Period:      strings.TrimSpace(r.FormValue("period")),
		FirstName:   strings.TrimSpace(r.FormValue("first_name")),
		LastName:    strings.TrimSpace(r.FormValue("last_name")),
		BirthDate:   strings.TrimSpace(r.FormValue("birth_date")),
		Email:       strings.TrimSpace(r.FormValue("email")),
		Phone:       strings.TrimSpace(r.FormValue("phone")),
		BuyerName:   strings.TrimSpace(r.FormValue("buyer_name")),
	}
	if p := strings.TrimSpace(r.FormValue("purpose")); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return meta, common.NewAppError("VALIDATION_ERROR", "purpose: must be 1 (filing) or 2 (correction)", common.ErrValidation)
		}
		meta.Purpose = n
	}
	meta = s.filer.Apply(meta)
	if err := common.ValidateJobMeta(meta); err != nil {
		return meta, err
	}
	return meta, nil
}

// stageUploads writes the multipart "files" parts into dir, in form order.
func stageUploads(form *multipart.Form, dir string) ([]entity.SubmittedFile, error) {
	var files []entity.SubmittedFile
	for i, fh := range form.File["files"] {
		name := filepath.Base(strings.ReplaceAll(fh.Filename, "\\", "/"))
		if name == "." || name == "/" || name == "" {
			return nil, common.NewAppError("UNSUPPORTED_FILE", "file without a name", common.ErrInvalidInput)
		}
		if !ingest.AllowedExt(filepath.Ext(name)) {
			return nil, common.NewAppError("UNSUPPORTED_FILE", fmt.Sprintf("unsupported file type: %s", name), common.ErrInvalidInput)
		}
		dst := filepath.Join(dir, fmt.Sprintf("%03d%s", i+1, strings.ToLower(filepath.Ext(name))))
		if err := saveUpload(fh, dst); err != nil {
			return nil, err
		}
		files = append(files, entity.SubmittedFile{Path: dst, OriginalName: name})
	}
	if len(files) == 0 {
		return nil, common.NewAppError("NO_FILES", "submission has no files", common.ErrInvalidInput)
	}
	return files, nil
}

func saveUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("stage upload: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("stage upload: %w", err)
	}
	return out.Close()
}

// readSubmission parses a multipart submission into staged files and metadata.
// The caller removes the returned directory.
func (s *Server) readSubmission(w http.ResponseWriter, r *http.Request) (string, []entity.SubmittedFile, entity.JobMeta, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return "", nil, entity.JobMeta{}, common.NewAppError("BAD_UPLOAD", err.Error(), common.ErrInvalidInput)
	}
	meta, err := s.metaFromForm(r)
	if err != nil {
		return "", nil, meta, err
	}
	dir, err := os.MkdirTemp("", "pdf2jpk-upload-*")
	if err != nil {
		return "", nil, meta, err
	}
	files, err := stageUploads(r.MultipartForm, dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, meta, err
	}
	return dir, files, meta, nil
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	dir, files, meta, err := s.readSubmission(w, r)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	defer os.RemoveAll(dir)

	job, err := s.store.Create(r.Context(), meta, files)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	s.logger.Info("job submitted", "job_id", job.ID, "files", len(job.Files), "company_nip", meta.CompanyNIP)
	if s.kicker != nil {
		s.kicker.Kick()
	}
	w.Header().Set("Location", "/jobs/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.List(r.Context())
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	status := constants.JobStatus(r.URL.Query().Get("status"))
	out := make([]*entity.JobDescriptor, 0, len(jobs))
	for _, j := range jobs {
		if status == "" || j.Status == status {
			out = append(out, j)
		}
	}
	writeJSON(w, http.StatusOK, jobList{Jobs: out})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) jobArtifact(kind artifactKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		switch job.Status {
		case constants.JobStatusPending:
			writeError(w, http.StatusConflict, "NOT_READY", "job is still pending")
			return
		case constants.JobStatusError:
			writeError(w, http.StatusConflict, "JOB_FAILED", job.Error)
			return
		}

		path, ctype, ext := job.ResultFile, "application/xml", "xml"
		if kind == artifactReport {
			path, ctype, ext = job.ReportFile, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx"
		}
		if path == "" {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "artifact not available")
			return
		}
		f, err := os.Open(path)
		if err != nil {
			s.writeAppError(w, fmt.Errorf("open artifact: %w", err))
			return
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		w.Header().Set("Content-Type", ctype)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="JPK_%s.%s"`, job.ID, ext))
		http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
	}
}

// sweep runs one sweep inline, or with ?async=1 only requests one.
func (s *Server) sweep(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("async") == "1" && s.kicker != nil {
		s.kicker.Kick()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
		return
	}
	st, err := s.sweeper.Sweep(r.Context())
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"scanned": st.Scanned,
		"done":    st.Done,
		"failed":  st.Failed,
		"busy":    st.Busy,
	})
}

// convertResponse carries the extracted records, or the raw text when none matched.
type convertResponse struct {
	Records  []entity.InvoiceRecord `json:"records"`
	Warnings []string               `json:"warnings,omitempty"`
	RawText  string                 `json:"raw_text,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// convert processes a submission synchronously without creating a job.
// ?format=xml returns the filing itself.
func (s *Server) convert(w http.ResponseWriter, r *http.Request) {
	dir, files, meta, err := s.readSubmission(w, r)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	defer os.RemoveAll(dir)

	inputs := make([]core.InputFile, 0, len(files))
	for _, f := range files {
		inputs = append(inputs, core.InputFile{Path: f.Path, OriginalName: f.OriginalName, Ext: filepath.Ext(f.OriginalName)})
	}
	out, err := s.proc.Process(r.Context(), inputs, meta)
	if errors.Is(err, context.Canceled) {
		return
	}
	if err != nil {
		var appErr *common.AppError
		code := "CONVERT_FAILED"
		if errors.As(err, &appErr) {
			code = appErr.Code
		}
		writeJSON(w, http.StatusUnprocessableEntity, convertResponse{
			Records:  []entity.InvoiceRecord{},
			Warnings: out.Warnings,
			RawText:  out.RawText,
			Error:    code,
		})
		return
	}
	if r.URL.Query().Get("format") == "xml" {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out.XML)
		return
	}
	writeJSON(w, http.StatusOK, convertResponse{Records: out.Records, Warnings: out.Warnings})
}
