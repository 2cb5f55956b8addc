package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/database"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/dataset"
	apperrors "github.com/ZanzyTHEbar/survey-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/types"
	"github.com/gin-gonic/gin"
)

// upload is a parsed dataset upload.
type upload struct {
	name      string
	table     *dataset.Table
	questions []string
}

// fail records err on the context; ErrorHandler renders it.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

// readUpload validates and parses the multipart "file" and "questions" fields.
func (a *app) readUpload(c *gin.Context) (*upload, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, err
		}
		return nil, apperrors.NewValidationError("A survey file is required", map[string]string{"file": "missing multipart field"})
	}

	name := a.security.SanitizeFilename(fh.Filename)
	if err := a.security.ValidateFilename(name); err != nil {
		return nil, apperrors.NewValidationError("Invalid file name", map[string]string{"file": err.Error()})
	}

	format, err := dataset.FormatFromName(name)
	if err != nil {
		return nil, err
	}

	questions, err := a.security.ParseQuestionIDs(c.PostForm("questions"))
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid question selection", map[string]string{"questions": err.Error()})
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	table, err := dataset.Read(f, format)
	if err != nil {
		return nil, apperrors.NewInputFormatError("Could not parse "+string(format)+" upload", err)
	}

	return &upload{name: name, table: table, questions: questions}, nil
}

// handleHealth godoc
// @Summary  Service health
// @Tags     system
// @Produce  json
// @Success  200  {object}  types.HealthResponse
// @Failure  503  {object}  types.HealthResponse
// @Router   /health [get]
func (a *app) handleHealth(c *gin.Context) {
	resp := types.HealthResponse{
		Status:  "ok",
		Version: version,
		Uptime:  monitoring.Uptime().Round(time.Second).String(),
		Time:    time.Now().UTC(),
		Checks:  map[string]string{"database": "ok", "redis": "disabled"},
		Stats:   a.metrics.GetStats(),
	}
	resp.Stats["compression"] = a.compression.GetStats()
	resp.Stats["ratelimit"] = a.limiter.GetStats()
	status := http.StatusOK

	if err := a.db.Health(c.Request.Context()); err != nil {
		resp.Status = "degraded"
		resp.Checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	if a.redis.IsEnabled() {
		resp.Checks["redis"] = "ok"
		if err := a.redis.HealthCheck(c.Request.Context()); err != nil {
			// Rate limiting degrades to in-process; the service stays up.
			resp.Checks["redis"] = err.Error()
			if resp.Status == "ok" {
				resp.Status = "degraded"
			}
		}
	}

	c.JSON(status, resp)
}

// handleQuestions godoc
// @Summary  Question catalog
// @Tags     catalog
// @Produce  json
// @Success  200  {array}  types.QuestionDTO
// @Router   /api/questions [get]
func (a *app) handleQuestions(c *gin.Context) {
	c.JSON(http.StatusOK, types.NewQuestionDTOs(a.catalog))
}

// handleCategories godoc
// @Summary  Category taxonomy with selection minimums
// @Tags     catalog
// @Produce  json
// @Success  200  {array}  catalog.Category
// @Router   /api/categories [get]
func (a *app) handleCategories(c *gin.Context) {
	c.JSON(http.StatusOK, a.catalog.Taxonomy().Categories())
}

// handleRunPipeline godoc
// @Summary  Score, cluster and label an uploaded survey export
// @Tags     datasets
// @Accept   multipart/form-data
// @Produce  json
// @Param    file       formData  file    true   "CSV or XLSX export"
// @Param    questions  formData  string  false  "JSON array or comma list of question ids"
// @Success  200  {object}  types.PipelineResponse
// @Failure  400  {object}  errors.AppError
// @Failure  422  {object}  errors.AppError
// @Failure  429  {object}  errors.AppError
// @Router   /api/datasets [post]
func (a *app) handleRunPipeline(c *gin.Context) {
	up, err := a.readUpload(c)
	if err != nil {
		fail(c, err)
		return
	}

	start := time.Now()
	result, err := a.analyzer.Run(up.table, analysis.Options{
		Source:    up.name,
		Questions: up.questions,
		OutputDir: a.cfg.Storage.OutputDir,
	})
	if err != nil {
		a.metrics.PipelineFailed(string(apperrors.ToAppError(err).Category))
		fail(c, err)
		return
	}
	duration := time.Since(start)

	var silhouette *float64
	if result.Diagnostics != nil && result.Diagnostics.Silhouette != nil {
		silhouette = &result.Diagnostics.Silhouette.Mean
	}
	a.metrics.ObservePipeline(duration, result.Rows(), result.RowsDropped, silhouette)
	a.logger.PipelineLogger(up.name, result.RowsBefore, result.Rows(), result.ModelHandle, duration)

	// The model is already persisted; a history failure only costs the run id.
	runID := ""
	if run, err := a.runs.Record(c.Request.Context(), result, duration); err != nil {
		a.logger.Error("Failed to record run", "source", up.name, "model", result.ModelHandle, "error", err)
	} else {
		runID = run.ID
	}

	c.JSON(http.StatusOK, types.NewPipelineResponse(result, runID, result.Files))
}

// handleElbow godoc
// @Summary  K-means inertia for k = 1..max_k
// @Tags     datasets
// @Accept   multipart/form-data
// @Produce  json
// @Param    file       formData  file     true   "CSV or XLSX export"
// @Param    questions  formData  string   false  "JSON array or comma list of question ids"
// @Param    max_k      formData  integer  false  "largest k to fit"
// @Success  200  {object}  types.ElbowResponse
// @Failure  400  {object}  errors.AppError
// @Router   /api/datasets/elbow [post]
func (a *app) handleElbow(c *gin.Context) {
	up, err := a.readUpload(c)
	if err != nil {
		fail(c, err)
		return
	}

	maxK := a.cfg.Clustering.ElbowMaxK
	if raw := c.PostForm("max_k"); raw != "" {
		maxK, err = strconv.Atoi(raw)
		if err != nil || maxK < 1 {
			fail(c, apperrors.NewValidationError("Invalid max_k", map[string]string{"max_k": "must be a positive integer"}))
			return
		}
	}

	points, err := a.analyzer.Elbow(up.table, up.questions, maxK)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ElbowResponse{Source: up.name, Questions: up.questions, Points: points})
}

// handleDownload godoc
// @Summary  Download an exported result file
// @Tags     datasets
// @Produce  octet-stream
// @Param    name  path  string  true  "file name from a pipeline response"
// @Success  200
// @Failure  404  {object}  errors.AppError
// @Router   /api/files/{name} [get]
func (a *app) handleDownload(c *gin.Context) {
	name := c.Param("name")
	if err := a.security.ValidateFilename(name); err != nil {
		fail(c, apperrors.NewValidationError("Invalid file name", map[string]string{"name": err.Error()}))
		return
	}

	path := filepath.Join(a.cfg.Storage.OutputDir, name)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		fail(c, apperrors.NewNotFoundError("file", name))
		return
	}

	c.FileAttachment(path, name)
}

// handleListModels godoc
// @Summary  Persisted model handles, newest first
// @Tags     models
// @Produce  json
// @Success  200  {object}  types.ModelListResponse
// @Router   /api/models [get]
func (a *app) handleListModels(c *gin.Context) {
	names, err := a.store.List()
	if err != nil {
		fail(c, apperrors.NewInternalError("failed to list models", err))
		return
	}
	if names == nil {
		names = []string{}
	}

	c.JSON(http.StatusOK, types.ModelListResponse{Models: names, Count: len(names)})
}

// handleModelInfo godoc
// @Summary  Model summary
// @Tags     models
// @Produce  json
// @Param    name  path  string  true  "model handle"
// @Success  200  {object}  artifacts.Info
// @Failure  404  {object}  errors.AppError
// @Router   /api/models/{name} [get]
func (a *app) handleModelInfo(c *gin.Context) {
	info, err := a.store.Info(c.Param("name"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// handlePredict godoc
// @Summary  Classify one respondent with a persisted model
// @Tags     models
// @Accept   json
// @Produce  json
// @Param    name     path  string                true  "model handle"
// @Param    request  body  types.PredictRequest  true  "answers keyed by question text or id"
// @Success  200  {object}  types.PredictResponse
// @Failure  400  {object}  errors.AppError
// @Failure  404  {object}  errors.AppError
// @Router   /api/models/{name}/predict [post]
func (a *app) handlePredict(c *gin.Context) {
	var req types.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.NewValidationError("Invalid request body", map[string]string{"body": err.Error()}))
		return
	}

	name := c.Param("name")
	artifact, err := a.store.Load(name)
	if err != nil {
		fail(c, err)
		return
	}

	prediction, err := a.predictor.Predict(artifact.Model, artifact.Data, req.Answers)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.PredictResponse{Model: name, Prediction: prediction})
}

// handleListRuns godoc
// @Summary  Pipeline run history, newest first
// @Tags     runs
// @Produce  json
// @Param    limit  query  integer  false  "page size (default 50)"
// @Success  200  {array}  database.Run
// @Router   /api/runs [get]
func (a *app) handleListRuns(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		var err error
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			fail(c, apperrors.NewValidationError("Invalid limit", map[string]string{"limit": "must be a positive integer"}))
			return
		}
	}

	runs, err := a.runs.List(c.Request.Context(), limit)
	if err != nil {
		fail(c, apperrors.NewInternalError("failed to list runs", err))
		return
	}

	c.JSON(http.StatusOK, runs)
}

// handleGetRun godoc
// @Summary  One pipeline run
// @Tags     runs
// @Produce  json
// @Param    id  path  string  true  "run id"
// @Success  200  {object}  database.Run
// @Failure  404  {object}  errors.AppError
// @Router   /api/runs/{id} [get]
func (a *app) handleGetRun(c *gin.Context) {
	id := c.Param("id")
	run, err := a.runs.Get(c.Request.Context(), id)
	if errors.Is(err, database.ErrRunNotFound) {
		fail(c, apperrors.NewNotFoundError("run", id))
		return
	}
	if err != nil {
		fail(c, apperrors.NewInternalError("failed to load run", err))
		return
	}

	c.JSON(http.StatusOK, run)
}
