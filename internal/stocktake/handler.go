package stocktake

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Christophertabanag/Inventory-System/internal/platform/httpx"
	"github.com/Christophertabanag/Inventory-System/internal/records"
	"github.com/Christophertabanag/Inventory-System/internal/shared"
	"github.com/Christophertabanag/Inventory-System/internal/view"
)

// MaxUploadBytes bounds scan uploads.
const MaxUploadBytes = 10 << 20

// Handler serves the stocktake upload page.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler constructs the stocktake handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers stocktake routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showForm)
	r.Post("/", h.handleUpload)
	r.Post("/column", h.handleColumn)
}

type pageData struct {
	FileName   string
	Candidates []string
	Column     string
	Report     *Report
	Error      string
}

// pendingScan keeps an upload in the session until a column is chosen.
type pendingScan struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageData{})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		h.render(w, r, http.StatusBadRequest, pageData{Error: "Upload a .csv, .xlsx or .txt scan file."})
		return
	}
	file, header, err := r.FormFile("scan")
	if err != nil {
		h.render(w, r, http.StatusBadRequest, pageData{Error: "Choose a scan file to upload."})
		return
	}
	defer func() {
		_ = file.Close()
	}()
	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("read stocktake upload", slog.Any("error", err))
		h.render(w, r, http.StatusBadRequest, pageData{Error: "The upload could not be read."})
		return
	}
	h.run(w, r, pendingScan{Name: filepath.Base(header.Filename), Data: data}, r.FormValue("column"))
}

func (h *Handler) handleColumn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	var scan pendingScan
	if sess == nil {
		h.render(w, r, http.StatusBadRequest, pageData{Error: "Upload the scan file again."})
		return
	}
	if ok, err := sess.TakeJSON(shared.SessionStocktakeScan, &scan); err != nil || !ok {
		h.render(w, r, http.StatusBadRequest, pageData{Error: "Upload the scan file again."})
		return
	}
	h.run(w, r, scan, r.PostFormValue("column"))
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, scan pendingScan, column string) {
	report, err := h.service.Run(r.Context(), scan.Name, bytes.NewReader(scan.Data), column)
	if err != nil {
		data := pageData{FileName: scan.Name, Column: column, Candidates: report.Candidates, Error: UserMessage(err)}
		if errors.Is(err, ErrColumnRequired) || errors.Is(err, ErrUnknownColumn) {
			if sess := shared.SessionFromContext(r.Context()); sess != nil {
				if err := sess.SetJSON(shared.SessionStocktakeScan, scan); err != nil {
					h.logger.Error("keep stocktake upload", slog.Any("error", err))
				}
			}
			h.render(w, r, http.StatusOK, data)
			return
		}
		h.logger.Warn("stocktake failed", slog.String("file", scan.Name), slog.Any("error", err))
		h.render(w, r, StatusFor(err), data)
		return
	}
	h.render(w, r, http.StatusOK, pageData{FileName: scan.Name, Column: report.Column, Report: &report})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	sess := shared.SessionFromContext(r.Context())
	var (
		csrfToken string
		flash     *shared.FlashMessage
		staff     string
	)
	if sess != nil {
		csrfToken, _ = h.csrf.EnsureToken(r.Context(), sess)
		flash = sess.PopFlash()
		staff = sess.Staff()
	}
	viewData := view.TemplateData{Title: "Stocktake", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Staff: staff, Data: data}
	if err := h.templates.RenderStatus(w, status, "pages/stocktake.html", viewData); err != nil {
		h.logger.Error("render stocktake page", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// APIHandler exposes reconciliation as JSON.
type APIHandler struct {
	logger  *slog.Logger
	service *Service
}

// NewAPIHandler constructs the JSON handler.
func NewAPIHandler(logger *slog.Logger, service *Service) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{logger: logger, service: service}
}

// MountRoutes registers the JSON routes.
func (h *APIHandler) MountRoutes(r chi.Router) {
	r.Post("/stocktake", h.reconcile)
}

type reconcileRequest struct {
	Scanned []string `json:"scanned"`
}

type reconcileResponse struct {
	Result
	Column       string       `json:"column,omitempty"`
	Scanned      int          `json:"scanned"`
	MissingItems []itemOutput `json:"missing_items"`
}

type itemOutput struct {
	Barcode   string `json:"barcode"`
	FrameCode string `json:"frame_code"`
	Product   string `json:"product"`
	Quantity  int    `json:"quantity"`
}

// reconcile accepts either a multipart scan file or a JSON list of codes.
func (h *APIHandler) reconcile(w http.ResponseWriter, r *http.Request) {
	var (
		report Report
		err    error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
		file, header, ferr := r.FormFile("scan")
		if ferr != nil {
			httpx.RespondError(w, httpx.Kind(httpx.ErrValidation, fmt.Errorf("scan file: %w", ferr)))
			return
		}
		defer func() {
			_ = file.Close()
		}()
		report, err = h.service.Run(r.Context(), header.Filename, file, r.FormValue("column"))
	} else {
		var req reconcileRequest
		if derr := httpx.DecodeJSON(w, r, &req); derr != nil {
			httpx.RespondError(w, derr)
			return
		}
		report, err = h.service.RunCodes(r.Context(), req.Scanned)
	}
	if err != nil {
		h.logger.Info("stocktake request rejected", slog.Any("error", err))
		httpx.RespondError(w, ProblemKind(err))
		return
	}
	out := reconcileResponse{Result: report.Result, Column: report.Column, Scanned: report.Scanned, MissingItems: []itemOutput{}}
	for _, item := range report.MissingItems {
		out.MissingItems = append(out.MissingItems, itemOutput{
			Barcode: item.Barcode, FrameCode: item.FrameCode, Product: item.Product(), Quantity: item.Quantity,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

// UserMessage maps stocktake errors to page text.
func UserMessage(err error) string {
	var colErr *ColumnError
	switch {
	case errors.As(err, &colErr) && errors.Is(err, ErrColumnRequired):
		return "Several columns could hold barcodes. Choose one: " + strings.Join(colErr.Candidates, ", ") + "."
	case errors.As(err, &colErr) && errors.Is(err, ErrUnknownColumn):
		return fmt.Sprintf("Column %q is not in the upload.", colErr.Column)
	case errors.Is(err, ErrEmptyUpload):
		return "The upload has no data."
	default:
		return shared.UserSafeMessage(err)
	}
}

// StatusFor maps stocktake errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrColumnRequired), errors.Is(err, ErrUnknownColumn), errors.Is(err, ErrEmptyUpload), errors.Is(err, records.ErrEmptyWorkbook):
		return http.StatusBadRequest
	case errors.Is(err, records.ErrUnsupportedFileType):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// ProblemKind translates a stocktake error into the httpx error kinds.
func ProblemKind(err error) error {
	switch StatusFor(err) {
	case http.StatusBadRequest:
		return httpx.Kind(httpx.ErrValidation, err)
	case http.StatusUnsupportedMediaType:
		return httpx.Kind(httpx.ErrUnsupportedType, err)
	default:
		return err
	}
}
