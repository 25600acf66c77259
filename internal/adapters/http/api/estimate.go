package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/estimatb/internal/adapters/table"
	service "github.com/okian/estimatb/internal/app"
	"github.com/okian/estimatb/internal/domain/estimator"
	"github.com/okian/estimatb/internal/domain/model"
	"github.com/okian/estimatb/internal/domain/prepare"
	"github.com/okian/estimatb/pkg/logger"
	"github.com/okian/estimatb/pkg/metrics"
)

// Response formats of POST /estimate.
const (
	FormatJSON   = "json"
	FormatCSV    = "csv"
	FormatDetail = "detail"
)

// multipartMemory is the part of an upload kept in memory; the rest spills
// to temporary files that are removed after the request.
const multipartMemory = 8 << 20

// estimateForm mirrors the multipart fields of POST /estimate.
type estimateForm struct {
	TbMin     *float64 `form:"tb_min"`
	TbMax     *float64 `form:"tb_max"`
	TbStep    *float64 `form:"tb_step" validate:"omitempty,gt=0"`
	SkipRows  *int     `form:"skip_rows" validate:"omitempty,gte=0"`
	ScoreMode string   `form:"score_mode" validate:"omitempty,oneof=mse qme r2"`
	Sheet     string   `form:"sheet" validate:"max=31"`
	Columns   string   `form:"columns" validate:"omitempty,oneof=strict fuzzy"`
	ColDate   string   `form:"col_date" validate:"max=255"`
	ColTMin   string   `form:"col_tmin" validate:"max=255"`
	ColTMax   string   `form:"col_tmax" validate:"max=255"`
	ColNF     string   `form:"col_nf" validate:"max=255"`
	Format    string   `form:"format" validate:"omitempty,oneof=json csv detail"`
	BOM       bool     `form:"bom"`
}

func parseEstimateForm(values map[string][]string) (estimateForm, error) {
	f := &formValues{values: values}
	form := estimateForm{
		TbMin:     f.float("tb_min"),
		TbMax:     f.float("tb_max"),
		TbStep:    f.float("tb_step"),
		SkipRows:  f.int("skip_rows"),
		ScoreMode: strings.ToLower(f.text("score_mode")),
		Sheet:     f.text("sheet"),
		Columns:   strings.ToLower(f.text("columns")),
		ColDate:   f.text("col_date"),
		ColTMin:   f.text("col_tmin"),
		ColTMax:   f.text("col_tmax"),
		ColNF:     f.text("col_nf"),
		Format:    strings.ToLower(f.text("format")),
		BOM:       f.bool("bom"),
	}
	return form, f.err
}

// request completes a partial grid from def. An explicit column mapping is
// tried before the selected resolver, or before fuzzy matching when none
// was selected.
func (f estimateForm) request(def model.CandidateRange) (service.Request, error) {
	var req service.Request
	if f.TbMin != nil || f.TbMax != nil || f.TbStep != nil {
		r := def
		if f.TbMin != nil {
			r.Min = *f.TbMin
		}
		if f.TbMax != nil {
			r.Max = *f.TbMax
		}
		if f.TbStep != nil {
			r.Step = *f.TbStep
		}
		req.Range = &r
	}
	req.SkipRows = f.SkipRows
	if f.ScoreMode != "" {
		mode, err := model.ParseScoreMode(f.ScoreMode)
		if err != nil {
			return req, err
		}
		req.Mode = mode
	}

	var base prepare.Resolver
	switch f.Columns {
	case "strict":
		base = prepare.NewStrictResolver()
	case "fuzzy":
		base = prepare.NewFuzzyResolver()
	}
	mapping := prepare.ExplicitMapping{}
	for role, name := range map[prepare.Role]string{
		prepare.RoleDate:      f.ColDate,
		prepare.RoleTMin:      f.ColTMin,
		prepare.RoleTMax:      f.ColTMax,
		prepare.RoleLeafCount: f.ColNF,
	} {
		if name != "" {
			mapping[role] = name
		}
	}
	switch {
	case len(mapping) == 0:
		req.Resolver = base
	case base == nil:
		req.Resolver = prepare.ChainResolver{mapping, prepare.NewFuzzyResolver()}
	default:
		req.Resolver = prepare.ChainResolver{mapping, base}
	}
	return req, nil
}

// failureResponse carries the analysis next to the error so that clients
// see the validation messages of a rejected table.
type failureResponse struct {
	errorResponse
	*service.Analysis
}

// EstimateHandler handles table uploads.
type EstimateHandler struct {
	analyzer  Analyzer
	validate  *validator.Validate
	maxUpload int64
	rng       model.CandidateRange
	logger    logger.Logger
}

// newEstimateHandler creates a new estimate handler.
func newEstimateHandler(analyzer Analyzer, cfg serverConfig) *EstimateHandler {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
	})
	l := cfg.logger
	if l == nil {
		l = logger.Nop()
	}
	return &EstimateHandler{
		analyzer:  analyzer,
		validate:  v,
		maxUpload: cfg.maxUploadBytes,
		rng:       cfg.defaultRange,
		logger:    l.Named("api"),
	}
}

// HandleEstimate handles POST /estimate requests.
func (h *EstimateHandler) HandleEstimate(w http.ResponseWriter, r *http.Request) {
	const op = "api.estimate"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large",
				WrapKind(op, ErrTooLarge, fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit)))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form, err := parseEstimateForm(r.MultipartForm.Value)
	if err == nil {
		err = h.validateForm(form)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, errors.New("file is required")))
		return
	}
	defer func() { _ = file.Close() }()
	metrics.RecordUploadBytes(hdr.Size)

	t, err := table.Read(hdr.Filename, file, form.Sheet)
	switch {
	case errors.Is(err, table.ErrEmptyTable):
		writeError(w, http.StatusUnprocessableEntity, "invalid_data", WrapKind(op, ErrInvalidData, err))
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	req, err := form.request(h.rng)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	a, err := h.analyzer.Analyze(ctx, t, req)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidData), errors.Is(err, estimator.ErrNoUsableFit):
		if werr := writeJSON(w, http.StatusUnprocessableEntity, failureResponse{
			errorResponse: errorResponse{Code: "invalid_data", Message: err.Error()},
			Analysis:      a,
		}); werr != nil {
			h.logger.Error(ctx, "write response failed", logger.String("file", hdr.Filename), logger.Error(werr))
		}
		return
	case errors.Is(err, estimator.ErrInvalidRange),
		errors.Is(err, estimator.ErrTooManyCandidates),
		errors.Is(err, estimator.ErrInvalidScoreMode),
		errors.Is(err, estimator.ErrInvalidSkipRows):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	default:
		h.logger.Error(ctx, "analysis failed", logger.String("file", hdr.Filename), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", NewKind(op, ErrInternal))
		return
	}

	opts := table.WriteOptions{BOMPrefix: form.BOM}
	switch form.Format {
	case FormatCSV:
		writeCSVHeaders(w, "estimatb_results.csv")
		err = table.WriteResults(w, a.Results, opts)
	case FormatDetail:
		writeCSVHeaders(w, "estimatb_detail.csv")
		err = table.WriteDetail(w, a.Detail, opts)
	default:
		err = writeJSON(w, http.StatusOK, a)
	}
	if err != nil {
		h.logger.Error(ctx, "write response failed", logger.String("run_id", a.RunID), logger.Error(err))
	}
}

func writeCSVHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
}

func (h *EstimateHandler) validateForm(form estimateForm) error {
	err := h.validate.Struct(form)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err //nolint:wrapcheck // nil or validator misuse
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, formatValidationError(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}
