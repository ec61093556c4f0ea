package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/extract"
	"github.com/hyperjump/manabu/internal/models"
	"github.com/hyperjump/manabu/internal/service"
)

const maxUploadBytes = 64 << 20

const noDocumentsMessage = "No documents uploaded yet. Please upload course materials first."

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok"}
	if used, err := s.svc.DiskUsage(); err == nil {
		resp["disk_usage_bytes"] = used
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "expected multipart form with files")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		s.respondError(w, http.StatusBadRequest, "No files provided")
		return
	}
	dir := filepath.Join(s.config.Server.UploadDir, tenant, strconv.FormatInt(time.Now().UnixNano(), 10))
	var saved []string
	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		if name == "." || name == string(filepath.Separator) || !extract.SupportedExtension(filepath.Ext(name)) {
			s.logger.Debug("skipping upload", zap.String("tenant", tenant), zap.String("filename", fh.Filename))
			continue
		}
		path, err := saveUpload(fh, dir, name)
		if err != nil {
			s.logger.Error("failed to save upload", zap.String("tenant", tenant), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "failed to save upload")
			return
		}
		saved = append(saved, path)
	}
	if len(saved) == 0 {
		s.respondError(w, http.StatusBadRequest, "No valid files processed")
		return
	}

	res := s.svc.Ingest(r.Context(), tenant, saved)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": res.Status == models.IngestSuccess || res.Status == models.IngestWarning,
		"result":  res,
	})
}

func saveUpload(fh *multipart.FileHeader, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()
	path := filepath.Join(dir, name)
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", err
	}
	return path, dst.Close()
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Success bool `json:"success"`
	models.Answer
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ans, err := s.svc.Ask(r.Context(), tenantFrom(r), req.Question)
	if err != nil {
		s.respondServiceError(w, err, "No question provided")
		return
	}
	s.respondJSON(w, http.StatusOK, askResponse{Success: true, Answer: ans})
}

type topicRequest struct {
	Topic        string `json:"topic"`
	NumQuestions int    `json:"num_questions"`
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	summary, err := s.svc.Summarize(r.Context(), tenantFrom(r), req.Topic)
	if err != nil {
		s.respondServiceError(w, err, "No topic provided")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "summary": summary})
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	n := req.NumQuestions
	if n <= 0 {
		n = s.config.Retrieval.QuizQuestions
	}
	quiz, err := s.svc.Quiz(r.Context(), tenantFrom(r), req.Topic, n)
	if err != nil {
		s.respondServiceError(w, err, "No topic provided")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "quiz": quiz})
}

type quizSubmitRequest struct {
	Score *int   `json:"score"`
	Total *int   `json:"total"`
	Topic string `json:"topic"`
}

func (s *Server) handleQuizSubmit(w http.ResponseWriter, r *http.Request) {
	var req quizSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Score == nil || req.Total == nil {
		s.respondError(w, http.StatusBadRequest, "Score and total are required")
		return
	}
	ok := s.svc.SubmitQuiz(r.Context(), tenantFrom(r), *req.Score, *req.Total, req.Topic)
	msg := "Score saved"
	if !ok {
		msg = "Failed to save score"
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"success": ok, "message": msg})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats := s.svc.Dashboard(r.Context(), tenantFrom(r))
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "stats": stats})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := s.config.Retrieval.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}
	hist := s.svc.History(r.Context(), tenantFrom(r), limit)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "history": hist})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	n, err := s.svc.Clear(r.Context(), tenant)
	if err != nil {
		s.logger.Error("clear failed", zap.String("tenant", tenant), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"message":         "Cleared all documents and history",
		"vectors_removed": n,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Status(r.Context(), tenantFrom(r))
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "status": st})
}

// respondServiceError maps service errors: missing input is a 400, no documents is a
// normal response with success false.
func (s *Server) respondServiceError(w http.ResponseWriter, err error, emptyMsg string) {
	switch {
	case errors.Is(err, service.ErrEmptyInput):
		s.respondError(w, http.StatusBadRequest, emptyMsg)
	case errors.Is(err, service.ErrNoDocuments):
		s.respondError(w, http.StatusOK, noDocumentsMessage)
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]interface{}{"success": false, "error": message})
}
