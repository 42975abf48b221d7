package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/okian/segscore/internal/adapters/archive"
	service "github.com/okian/segscore/internal/app"
	"github.com/okian/segscore/internal/domain/dice"
	"github.com/okian/segscore/internal/domain/scoring"
	"github.com/okian/segscore/pkg/logger"
	"github.com/okian/segscore/pkg/metrics"
)

const (
	// formOverhead is the allowance for multipart framing and the name field.
	formOverhead = 64 << 10

	idempotencyHeader = "Idempotency-Key"

	internalMessage = "An internal error occurred while processing the request"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9 _\-\.\(\)]+$`)

// SubmitDependencies defines what the submit handler needs from the service.
type SubmitDependencies interface {
	Limits
	Submit(ctx context.Context, sub service.Submission) (service.Result, error)
	SeenAndRecord(ctx context.Context, key string) bool
	Unrecord(ctx context.Context, key string)
}

// submitRequest is the validated form of POST /dice-score.
type submitRequest struct {
	Name     string `validate:"contestant"`
	FileName string `validate:"required"`
}

// SubmitHandler handles scoring uploads.
type SubmitHandler struct {
	deps     SubmitDependencies
	validate *validator.Validate
	log      logger.Logger
}

// NewSubmitHandler creates a new submit handler.
func NewSubmitHandler(deps SubmitDependencies, log logger.Logger) *SubmitHandler {
	if log == nil {
		log = logger.Nop()
	}
	h := &SubmitHandler{deps: deps, validate: validator.New(), log: log}
	_ = h.validate.RegisterValidation("contestant", h.validContestant)
	return h
}

func (h *SubmitHandler) validContestant(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	n := utf8.RuneCountInString(name)
	return n >= 1 && n <= h.deps.NameMaxLen() && namePattern.MatchString(name)
}

// HandleSubmit handles POST /dice-score multipart uploads with `file` and `name`.
func (h *SubmitHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if key != "" && h.deps.SeenAndRecord(ctx, key) {
		metrics.RecordSubmission(metrics.OutcomeDuplicate)
		h.fail(w, r, WrapKind(op, ErrDuplicate, fmt.Errorf("key %q", key)))
		return
	}

	res, err := h.submit(ctx, w, r)
	if err != nil {
		if key != "" {
			h.deps.Unrecord(ctx, key)
		}
		h.fail(w, r, Wrap(op, err))
		return
	}

	metrics.RecordSubmission(metrics.OutcomeAccepted)
	writeJSON(w, http.StatusOK, res)
}

func (h *SubmitHandler) submit(ctx context.Context, w http.ResponseWriter, r *http.Request) (submitResponse, error) {
	limit := h.deps.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)

	req, spool, err := h.readForm(r, limit)
	if spool != nil {
		defer func() {
			if cerr := spool.Close(); cerr != nil {
				h.log.Warn(ctx, "removing spooled upload", logger.Error(cerr))
			}
		}()
	}
	if err != nil {
		return submitResponse{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && verrs[0].Field() == "FileName" {
			return submitResponse{}, WrapKind("validate", ErrMissingFile, err)
		}
		return submitResponse{}, WrapKind("validate", ErrInvalidName, err)
	}
	if ext := h.deps.Extension(); !strings.EqualFold(filepath.Ext(req.FileName), ext) {
		return submitResponse{}, NewKind("validate", ErrInvalidExtension)
	}
	if spool == nil {
		return submitResponse{}, NewKind("validate", ErrMissingFile)
	}

	metrics.RecordUploadBytes(spool.Size())
	return h.deps.Submit(ctx, service.Submission{
		Name:    req.Name,
		Archive: spool.File(),
		Size:    spool.Size(),
	})
}

// readForm streams the multipart body. The file part is spooled to disk only
// when its extension matches; the name part is read into memory.
func (h *SubmitHandler) readForm(r *http.Request, limit int64) (submitRequest, *archive.Spool, error) {
	var (
		req   submitRequest
		spool *archive.Spool
	)
	mr, err := r.MultipartReader()
	if err != nil {
		return req, nil, WrapKind("read form", ErrBadRequest, err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return req, spool, nil
		}
		if err != nil {
			return req, spool, formError(err)
		}

		switch part.FormName() {
		case "name":
			b, err := io.ReadAll(io.LimitReader(part, int64(4*h.deps.NameMaxLen()+1)))
			if err != nil {
				return req, spool, formError(err)
			}
			req.Name = string(b)
		case "file":
			if spool != nil {
				return req, spool, WrapKind("read form", ErrBadRequest, errors.New("more than one file"))
			}
			req.FileName = part.FileName()
			ext := h.deps.Extension()
			if !strings.EqualFold(filepath.Ext(req.FileName), ext) {
				if err := drain(part); err != nil {
					return req, spool, formError(err)
				}
				continue
			}
			spool, err = archive.NewSpool(h.deps.TempDir(), ext, part, limit)
			if err != nil {
				return req, nil, err
			}
		default:
			if err := drain(part); err != nil {
				return req, spool, formError(err)
			}
		}
	}
}

func drain(p *multipart.Part) error {
	_, err := io.Copy(io.Discard, p)
	return err
}

func formError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return archive.ErrTooLarge
	}
	return WrapKind("read form", ErrBadRequest, err)
}

// fail logs err and answers with its public classification.
func (h *SubmitHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := h.classify(err)
	fields := []logger.Field{
		logger.String("request_id", RequestID(r.Context())),
		logger.Int("status", status),
		logger.Error(err),
	}
	if status >= http.StatusInternalServerError {
		metrics.RecordSubmission(metrics.OutcomeFailed)
		h.log.Error(r.Context(), "submission failed", fields...)
	} else {
		if status != http.StatusConflict {
			metrics.RecordSubmission(metrics.OutcomeRejected)
		}
		h.log.Info(r.Context(), "submission rejected", fields...)
	}
	writeError(w, status, code, msg)
}

// classify maps an error to a status, a machine code and a client message.
// Unknown errors never leak their text.
func (h *SubmitHandler) classify(err error) (int, string, string) {
	var (
		keyErr     *scoring.KeyMismatchError
		subjectErr *scoring.SubjectError
	)
	switch {
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict, "duplicate", "A submission with this idempotency key was already received"
	case errors.Is(err, archive.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large", "File too large"
	case errors.Is(err, ErrInvalidName):
		return http.StatusBadRequest, "invalid_name", fmt.Sprintf(
			"Name must be 1-%d characters long and contain only letters, numbers, spaces, and - _ . ( )",
			h.deps.NameMaxLen())
	case errors.Is(err, ErrMissingFile):
		return http.StatusBadRequest, "missing_file", "A file is required"
	case errors.Is(err, ErrInvalidExtension):
		return http.StatusBadRequest, "invalid_extension", fmt.Sprintf("File must be a %s file", h.deps.Extension())
	case errors.As(err, &keyErr):
		return http.StatusBadRequest, "key_mismatch", keyErr.Error()
	case errors.Is(err, dice.ErrShapeMismatch) && errors.As(err, &subjectErr):
		return http.StatusBadRequest, "shape_mismatch", subjectErr.Error()
	case errors.Is(err, archive.ErrInvalidLabels), errors.Is(err, archive.ErrUnsupportedDType):
		return http.StatusBadRequest, "invalid_archive", publicArchiveMessage(err)
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request", "Malformed multipart request"
	case errors.Is(err, service.ErrBusy):
		return http.StatusServiceUnavailable, "busy", "The leaderboard is busy, please retry"
	default:
		return http.StatusInternalServerError, "internal_error", internalMessage
	}
}

// publicArchiveMessage strips the api operation prefix from archive validation errors.
func publicArchiveMessage(err error) string {
	for {
		var ae *Error
		if !errors.As(err, &ae) || ae.Err == nil {
			return err.Error()
		}
		err = ae.Err
	}
}
