// Package httpapi exposes the plan analytics engine over a JSON REST API.
package httpapi

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"pdmtracker/internal/archive"
	"pdmtracker/internal/report"
	"pdmtracker/internal/snapshot"
	"pdmtracker/internal/workbook"
	"pdmtracker/pkg/domain"
)

// DefaultFileName names raw uploads that carry no ?name= parameter.
const DefaultFileName = "workbook.xlsx"

// Engine is the analytics facade served by the handlers.
type Engine interface {
	SubmitAnalysis(ctx context.Context, fileName string, r io.Reader) (*domain.Dataset, *domain.AnalysisReport, error)
	Dataset() *domain.Dataset
	Report() *domain.AnalysisReport
	FilteredProducts(filter domain.ProductFilter) []domain.InvestmentProduct
	DistinctSectors() []string
	DistinctStrategicLines() []string
	DistinctAssignedDepartments() []string
	CacheInfo(ctx context.Context) snapshot.Info
	Clear(ctx context.Context) error
	AssignDepartment(ctx context.Context, productCode, department string) (int, error)
	RecordProgress(ctx context.Context, productCode string, year int, executed float64, comment string) (int, error)
	Submissions(ctx context.Context) ([]domain.Submission, error)
	OpenSubmission(ctx context.Context, submissionID string) (domain.Submission, io.ReadCloser, error)
}

// Handler serves the /api/pdm routes.
type Handler struct {
	engine Engine
	logger zerolog.Logger
	now    func() time.Time
}

// UploadResponse is returned after a workbook is accepted.
type UploadResponse struct {
	Metadata domain.Metadata        `json:"metadata"`
	Report   *domain.AnalysisReport `json:"reporte"`
}

// UpdateResponse reports how many loaded products a record touched.
type UpdateResponse struct {
	Updated int `json:"actualizados"`
}

type assignmentRequest struct {
	Department string `json:"secretaria"`
}

type progressRequest struct {
	ExecutedValue *float64 `json:"valor"`
	Comment       string   `json:"comentario"`
}

func (h *Handler) register(g *echo.Group) {
	g.POST("/workbook", h.upload)
	g.GET("/dataset", h.dataset)
	g.GET("/report", h.report)
	g.GET("/summary", h.summary)
	g.GET("/products", h.products)
	g.GET("/sectors", h.sectors)
	g.GET("/lines", h.lines)
	g.GET("/departments", h.departments)
	g.GET("/cache", h.cacheInfo)
	g.DELETE("/cache", h.clear)
	g.PUT("/assignments/:code", h.assign)
	g.PUT("/progress/:code/:year", h.progress)
	g.GET("/submissions", h.submissions)
	g.GET("/submissions/:id/workbook", h.submissionWorkbook)
}

func (h *Handler) upload(c echo.Context) error {
	name, body, err := workbookFrom(c)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	ds, rep, err := h.engine.SubmitAnalysis(c.Request().Context(), name, body)
	if err != nil {
		return h.fail(c, "submit", err)
	}
	return c.JSON(http.StatusCreated, UploadResponse{Metadata: ds.Metadata, Report: rep})
}

// workbookFrom reads the "file" multipart field, or the raw request body named
// by ?name=.
func workbookFrom(c echo.Context) (string, io.ReadCloser, error) {
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return "", nil, echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
		}
		f, err := fh.Open()
		if err != nil {
			return "", nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
		}
		return uploadName(fh), f, nil
	}
	name := strings.TrimSpace(c.QueryParam("name"))
	if name == "" {
		name = DefaultFileName
	}
	return name, c.Request().Body, nil
}

func uploadName(fh *multipart.FileHeader) string {
	if name := strings.TrimSpace(fh.Filename); name != "" {
		return name
	}
	return DefaultFileName
}

func (h *Handler) dataset(c echo.Context) error {
	ds := h.engine.Dataset()
	if ds == nil {
		return errNoDataset
	}
	return c.JSON(http.StatusOK, ds)
}

func (h *Handler) report(c echo.Context) error {
	r := h.engine.Report()
	if r == nil {
		return errNoDataset
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) summary(c echo.Context) error {
	ds, r := h.engine.Dataset(), h.engine.Report()
	if ds == nil || r == nil {
		return errNoDataset
	}
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(report.Summary(ds, r, h.now())))
}

func (h *Handler) products(c echo.Context) error {
	if h.engine.Report() == nil {
		return errNoDataset
	}
	var (
		f      domain.ProductFilter
		status string
	)
	err := echo.QueryParamsBinder(c).
		Int("year", &f.Year).
		String("sector", &f.Sector).
		String("line", &f.StrategicLine).
		String("status", &status).
		String("department", &f.AssignedDepartment).
		String("ods", &f.GoalCode).
		Bool("bpin", &f.HasBPIN).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f.Status = domain.Status(status)
	if status != "" && !f.Status.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown status "+strconv.Quote(status))
	}
	return c.JSON(http.StatusOK, h.engine.FilteredProducts(f))
}

func (h *Handler) sectors(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.DistinctSectors())
}

func (h *Handler) lines(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.DistinctStrategicLines())
}

func (h *Handler) departments(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.DistinctAssignedDepartments())
}

func (h *Handler) cacheInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.CacheInfo(c.Request().Context()))
}

func (h *Handler) clear(c echo.Context) error {
	if err := h.engine.Clear(c.Request().Context()); err != nil {
		return h.fail(c, "clear", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) assign(c echo.Context) error {
	code, err := productCode(c)
	if err != nil {
		return err
	}
	var req assignmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid assignment body")
	}
	n, err := h.engine.AssignDepartment(c.Request().Context(), code, req.Department)
	if err != nil {
		return h.fail(c, "assign", err)
	}
	return c.JSON(http.StatusOK, UpdateResponse{Updated: n})
}

func (h *Handler) progress(c echo.Context) error {
	code, err := productCode(c)
	if err != nil {
		return err
	}
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || !domain.IsFiscalYear(year) {
		return echo.NewHTTPError(http.StatusBadRequest, "year must be between 2024 and 2027")
	}
	var req progressRequest
	if err := c.Bind(&req); err != nil || req.ExecutedValue == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "body must carry a numeric \"valor\"")
	}
	n, err := h.engine.RecordProgress(c.Request().Context(), code, year, *req.ExecutedValue, req.Comment)
	if err != nil {
		return h.fail(c, "progress", err)
	}
	return c.JSON(http.StatusOK, UpdateResponse{Updated: n})
}

func productCode(c echo.Context) (string, error) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "product code required")
	}
	return code, nil
}

func (h *Handler) submissions(c echo.Context) error {
	list, err := h.engine.Submissions(c.Request().Context())
	if err != nil {
		return h.fail(c, "submissions", err)
	}
	return c.JSON(http.StatusOK, list)
}

// submissionWorkbook streams an archived workbook back as an attachment.
func (h *Handler) submissionWorkbook(c echo.Context) error {
	sub, rc, err := h.engine.OpenSubmission(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, "submission workbook", err)
	}
	defer func() { _ = rc.Close() }()
	c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": sub.FileName}))
	return c.Stream(http.StatusOK, archive.ContentType, rc)
}

var errNoDataset = echo.NewHTTPError(http.StatusNotFound, "no dataset loaded")

// fail maps engine errors to HTTP errors. Unknown failures are logged and
// hidden behind a 500.
func (h *Handler) fail(c echo.Context, op string, err error) error {
	var parseErr *workbook.ParseError
	switch {
	case errors.As(err, &parseErr):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, parseErr.Error())
	case errors.Is(err, archive.ErrInvalidID):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid submission id")
	case errors.Is(err, domain.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, context.Canceled):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "request canceled")
	}
	h.logger.Error().Err(err).Str("op", op).Str("path", c.Path()).Msg("request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
