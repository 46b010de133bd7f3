package labels

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Christophertabanag/Inventory-System/internal/inventory"
	"github.com/Christophertabanag/Inventory-System/internal/records"
	"github.com/Christophertabanag/Inventory-System/internal/shared"
	"github.com/Christophertabanag/Inventory-System/internal/view"
)

// Handler serves the label designer.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler constructs the labels handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers label routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showDesigner)
	r.Get("/print", h.printPage)
	r.Post("/pdf", h.exportPDF)
	r.Post("/templates", h.saveTemplate)
	r.Post("/templates/delete", h.deleteTemplate)
	r.Get("/files/{name}", h.downloadFile)
}

type catalogEntry struct {
	Barcode  string
	Label    string
	Selected bool
}

type savedTemplate struct {
	Name string
	Href template.URL
}

type fieldOption struct {
	Column  string
	Label   string
	Checked bool
}

type designerData struct {
	Template     Template
	TemplateName string
	Names        []savedTemplate
	Catalog      []catalogEntry
	Selected     []string
	Fields       []fieldOption
	Symbologies  []Symbology
	Preview      template.HTML
	Problems     []string
	Errors       map[string]string
}

func (h *Handler) showDesigner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	errs := map[string]string{}
	t, name, err := h.templateFromRequest(r, q)
	if err != nil {
		errs["template"] = UserMessage(err)
	}
	status := http.StatusOK
	if verr := t.Validate(); verr != nil {
		errs["template"] = UserMessage(verr)
		status = http.StatusBadRequest
	}

	catalog, err := h.service.Catalog(ctx)
	if err != nil {
		h.renderFatal(w, r, err)
		return
	}
	names, err := h.service.Templates().List(ctx)
	if err != nil {
		h.logger.Error("list label templates", slog.Any("error", err))
		errs["template"] = UserMessage(err)
	}
	selected := selectedBarcodes(q)
	data := designerData{
		Template:     t,
		TemplateName: name,
		Names:        savedTemplates(names, selected),
		Catalog:      catalogEntries(catalog, selected),
		Selected:     selected,
		Fields:       fieldOptions(t),
		Symbologies:  Symbologies,
		Errors:       errs,
	}
	if len(selected) > 0 && status == http.StatusOK {
		preview, problems, err := h.service.Preview(ctx, selected, t)
		if err != nil {
			errs["general"] = UserMessage(err)
			status = StatusFor(err)
		}
		data.Preview = template.HTML(preview)
		data.Problems = problemMessages(problems)
		if sess := shared.SessionFromContext(ctx); sess != nil {
			if err := sess.SetJSON(shared.SessionLabelTemplate, t); err != nil {
				h.logger.Warn("remember label template", slog.Any("error", err))
			}
		}
	}
	h.render(w, r, status, data)
}

func (h *Handler) printPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	t, _, err := h.templateFromRequest(r, q)
	if err == nil {
		err = t.Validate()
	}
	if err != nil {
		http.Error(w, UserMessage(err), http.StatusBadRequest)
		return
	}
	page, problems, err := h.service.PrintPage(r.Context(), selectedBarcodes(q), t)
	if err != nil {
		http.Error(w, UserMessage(err), StatusFor(err))
		return
	}
	for _, p := range problems {
		h.logger.Warn("label barcode skipped", slog.Any("error", p))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

func (h *Handler) exportPDF(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	selected := selectedBarcodes(r.PostForm)
	back := "/labels?" + designerQuery(DefaultTemplate(), selected).Encode()
	t, _, err := h.templateFromRequest(r, r.PostForm)
	if err == nil {
		err = t.Validate()
	}
	if err == nil {
		back = "/labels?" + designerQuery(t, selected).Encode()
	}
	if err != nil {
		h.flashRedirect(w, r, shared.FlashError, UserMessage(err), back)
		return
	}
	var staff string
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		staff = sess.Staff()
	}
	export, err := h.service.ExportPDF(r.Context(), selected, t, staff)
	if err != nil {
		h.logger.Error("export label pdf", slog.Int("labels", len(selected)), slog.Any("error", err))
		h.flashRedirect(w, r, shared.FlashError, UserMessage(err), back)
		return
	}
	if export.Queued() {
		h.flashRedirect(w, r, shared.FlashInfo,
			fmt.Sprintf("%d labels queued. The PDF will be available at /labels/files/%s shortly.", len(selected), export.FileName), back)
		return
	}
	for _, p := range export.Problems {
		h.logger.Warn("label barcode skipped", slog.Any("error", p))
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Data)))
	_, _ = w.Write(export.Data)
}

func (h *Handler) saveTemplate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(r.PostFormValue("name"))
	t := templateFromValues(r.PostForm, DefaultTemplate())
	q := designerQuery(t, selectedBarcodes(r.PostForm))
	if err := h.service.Templates().Save(r.Context(), name, t); err != nil {
		h.logger.Warn("save label template", slog.String("name", name), slog.Any("error", err))
		h.flashRedirect(w, r, shared.FlashError, UserMessage(err), "/labels?"+q.Encode())
		return
	}
	q.Set("template", name)
	h.flashRedirect(w, r, shared.FlashSuccess, fmt.Sprintf("Template %q saved.", name), "/labels?"+q.Encode())
}

func (h *Handler) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(r.PostFormValue("name"))
	if err := h.service.Templates().Delete(r.Context(), name); err != nil {
		h.flashRedirect(w, r, shared.FlashError, UserMessage(err), "/labels")
		return
	}
	h.flashRedirect(w, r, shared.FlashSuccess, fmt.Sprintf("Template %q deleted.", name), "/labels")
}

func (h *Handler) downloadFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	path, err := h.service.StoredFile(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "The PDF is not ready yet.", http.StatusNotFound)
			return
		}
		h.logger.Error("open label file", slog.String("name", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

// BarcodePNG serves a barcode image for ?value=&type=&width=.
func (h *Handler) BarcodePNG(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width, err := strconv.Atoi(q.Get("width"))
	if err != nil || width < 80 || width > 400 {
		width = DefaultTemplate().BarcodeWidth
	}
	symbology := Symbology(strings.ToLower(q.Get("type")))
	if symbology == "" {
		symbology = Code128
	}
	png, err := RenderBarcode(records.CanonicalCode(q.Get("value")), symbology, width)
	if err != nil {
		http.Error(w, UserMessage(err), http.StatusUnprocessableEntity)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(png)
}

// templateFromRequest resolves the layout: a named template, then explicit
// settings, then the last layout used in the session, then the default.
func (h *Handler) templateFromRequest(r *http.Request, values url.Values) (Template, string, error) {
	base := DefaultTemplate()
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		var last Template
		if ok, err := sess.GetJSON(shared.SessionLabelTemplate, &last); ok && err == nil {
			base = last.Normalize()
		}
	}
	name := strings.TrimSpace(values.Get("template"))
	if name != "" {
		t, err := h.service.Templates().Get(r.Context(), name)
		if err != nil {
			return base, "", err
		}
		return t, name, nil
	}
	return templateFromValues(values, base), "", nil
}

func (h *Handler) flashRedirect(w http.ResponseWriter, r *http.Request, kind, msg, to string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.Flash(kind, msg)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data designerData) {
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
	viewData := view.TemplateData{Title: "Barcode Labels", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Staff: staff, Data: data}
	if err := h.templates.RenderStatus(w, status, "pages/labels.html", viewData); err != nil {
		h.logger.Error("render labels page", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) renderFatal(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("load inventory for labels", slog.Any("error", err))
	h.render(w, r, http.StatusInternalServerError, designerData{
		Template: DefaultTemplate(),
		Errors:   map[string]string{"general": UserMessage(err)},
	})
}

// templateFromValues overlays submitted designer settings on base. Fields
// are only replaced when the form carried the field list.
func templateFromValues(values url.Values, base Template) Template {
	t := base
	setInt := func(key string, dst *int) {
		if v := strings.TrimSpace(values.Get(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			} else {
				*dst = -1
			}
		}
	}
	setInt("width", &t.Width)
	setInt("height", &t.Height)
	setInt("font_size", &t.FontSize)
	setInt("barcode_width", &t.BarcodeWidth)
	setInt("margin", &t.Margin)
	if v := strings.TrimSpace(values.Get("barcode_type")); v != "" {
		t.BarcodeType = v
	}
	if v := strings.TrimSpace(values.Get("orientation")); v != "" {
		t.Orientation = v
	}
	if _, ok := values["inc_gst_text"]; ok {
		t.IncGSTText = strings.TrimSpace(values.Get("inc_gst_text"))
	}
	if _, ok := values["fields_sent"]; ok {
		t.FieldOrder = slices.Clone(values["field"])
	}
	return t.Normalize()
}

func designerQuery(t Template, selected []string) url.Values {
	q := url.Values{}
	q.Set("width", strconv.Itoa(t.Width))
	q.Set("height", strconv.Itoa(t.Height))
	q.Set("font_size", strconv.Itoa(t.FontSize))
	q.Set("barcode_type", t.BarcodeType)
	q.Set("barcode_width", strconv.Itoa(t.BarcodeWidth))
	q.Set("margin", strconv.Itoa(t.Margin))
	q.Set("orientation", t.Orientation)
	q.Set("inc_gst_text", t.IncGSTText)
	q.Set("fields_sent", "1")
	q["field"] = slices.Clone(t.FieldOrder)
	q["barcode"] = slices.Clone(selected)
	return q
}

func selectedBarcodes(values url.Values) []string {
	var out []string
	for _, v := range values["barcode"] {
		for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '\n' || r == ' ' }) {
			code := records.CanonicalCode(part)
			if code != "" && !slices.Contains(out, code) {
				out = append(out, code)
			}
		}
	}
	return out
}

func savedTemplates(names, selected []string) []savedTemplate {
	out := make([]savedTemplate, 0, len(names))
	for _, name := range names {
		q := url.Values{"template": {name}, "barcode": selected}
		out = append(out, savedTemplate{Name: name, Href: template.URL("/labels?" + q.Encode())})
	}
	return out
}

func catalogEntries(items []inventory.Item, selected []string) []catalogEntry {
	out := make([]catalogEntry, 0, len(items))
	for _, item := range items {
		out = append(out, catalogEntry{
			Barcode:  item.Barcode,
			Label:    strings.TrimSpace(item.Barcode + " - " + item.Model),
			Selected: slices.Contains(selected, item.Barcode),
		})
	}
	return out
}

// fieldOptions lists chosen fields in template order, then the rest.
func fieldOptions(t Template) []fieldOption {
	out := make([]fieldOption, 0, len(Fields))
	for _, col := range t.FieldOrder {
		out = append(out, fieldOption{Column: col, Label: FieldLabel(col), Checked: true})
	}
	for _, f := range Fields {
		if !slices.Contains(t.FieldOrder, f.Column) {
			out = append(out, fieldOption{Column: f.Column, Label: f.Label})
		}
	}
	return out
}

func problemMessages(problems []error) []string {
	out := make([]string, 0, len(problems))
	for _, p := range problems {
		out = append(out, UserMessage(p))
	}
	return out
}

// UserMessage maps label errors to page text.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidTemplate):
		msg := strings.TrimPrefix(err.Error(), ErrInvalidTemplate.Error()+": ")
		return "Template settings are invalid: " + msg + "."
	case errors.Is(err, ErrTemplateNotFound):
		return "That template no longer exists."
	case errors.Is(err, ErrTemplateName):
		return "Enter a template name."
	case errors.Is(err, ErrNoItems):
		return "Select at least one product."
	default:
		return inventory.UserMessage(err)
	}
}

// StatusFor maps label errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidTemplate), errors.Is(err, ErrNoItems), errors.Is(err, ErrTemplateName):
		return http.StatusBadRequest
	case errors.Is(err, ErrTemplateNotFound):
		return http.StatusNotFound
	default:
		return inventory.StatusFor(err)
	}
}
