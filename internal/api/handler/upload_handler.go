package handler

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuongbtq/employee-ingest/internal/api/dto"
)

var csvContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/vnd.ms-excel": true,
}

// UploadEmployees handles POST /api/v1/employees/upload
// Saves the CSV to the upload directory and queues a bulk import. Progress is
// reported only on the notification stream.
func (h *EmployeeHandler) UploadEmployees(c *gin.Context) {
	if h.maxUploadSize > 0 {
		if c.Request.ContentLength > h.maxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "CSV file is too large",
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "CSV file is too large",
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "CSV file is required",
		})
		return
	}

	if h.maxUploadSize > 0 && file.Size > h.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "CSV file is too large",
		})
		return
	}

	if !isCSV(file) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid file type. Only CSV files are accepted",
		})
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o750); err != nil {
		h.logger.Error("Failed to create upload directory", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store upload",
		})
		return
	}

	dst := filepath.Join(h.uploadDir, uuid.New().String()+".csv")
	if err := c.SaveUploadedFile(file, dst); err != nil {
		h.logger.Error("Failed to save uploaded file", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store upload",
		})
		return
	}

	handle, err := h.jobs.EnqueueEmployeeCSV(c.Request.Context(), dst)
	if err != nil {
		h.logger.Error("Failed to enqueue CSV job",
			slog.String("file_path", dst),
			slog.String("error", err.Error()),
		)
		if rmErr := os.Remove(dst); rmErr != nil {
			h.logger.Warn("Failed to remove orphaned upload",
				slog.String("file_path", dst),
				slog.String("error", rmErr.Error()),
			)
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue job",
		})
		return
	}

	h.logger.Info("CSV upload queued",
		slog.String("job_id", handle.JobID),
		slog.String("file_name", file.Filename),
		slog.Int64("size", file.Size),
	)

	c.JSON(http.StatusAccepted, dto.UploadResponse{
		JobID:    handle.JobID,
		FileName: file.Filename,
		FilePath: dst,
	})
}

func isCSV(file *multipart.FileHeader) bool {
	if strings.EqualFold(filepath.Ext(file.Filename), ".csv") {
		return true
	}
	contentType, _, _ := strings.Cut(file.Header.Get("Content-Type"), ";")
	return csvContentTypes[strings.TrimSpace(strings.ToLower(contentType))]
}
