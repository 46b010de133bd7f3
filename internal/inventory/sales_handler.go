package inventory

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Christophertabanag/Inventory-System/internal/records"
	"github.com/Christophertabanag/Inventory-System/internal/shared"
	"github.com/Christophertabanag/Inventory-System/internal/view"
)

const salesHistoryLimit = 100

// SalesHandler serves the sell/return page and the sales history.
type SalesHandler struct {
	*Handler
	idem *shared.IdempotencyStore
}

// NewSalesHandler constructs the sales handler. idem may be nil.
func NewSalesHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, idem *shared.IdempotencyStore) *SalesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SalesHandler{Handler: NewHandler(logger, service, templates, csrf, nil), idem: idem}
}

// MountRoutes registers sales routes.
func (h *SalesHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.showSales)
	r.Post("/sell", h.handleTransaction(TransactionSale))
	r.Post("/return", h.handleTransaction(TransactionReturn))
	r.Get("/history", h.showHistory)
	r.Get("/export.csv", h.exportSales(records.FormatCSV))
	r.Get("/export.xlsx", h.exportSales(records.FormatXLSX))
}

type salesPageData struct {
	Barcode        string
	Lookup         *Lookup
	Fields         []labelledValue
	Form           transactionForm
	Errors         map[string]string
	Result         *Transaction
	IdempotencyKey string
}

type labelledValue struct {
	Label string
	Value string
}

type transactionForm struct {
	Type     TransactionType
	Qty      string
	Price    string
	Staff    string
	Customer string
}

type historyPageData struct {
	Sales []SalesRecord
	Total int
}

func (h *SalesHandler) showSales(w http.ResponseWriter, r *http.Request) {
	barcode := strings.TrimSpace(r.URL.Query().Get("barcode"))
	h.renderSales(w, r, barcode, transactionForm{Type: TransactionSale, Qty: "1"}, map[string]string{}, nil, http.StatusOK)
}

func (h *SalesHandler) renderSales(w http.ResponseWriter, r *http.Request, barcode string, form transactionForm, errs map[string]string, result *Transaction, status int) {
	data := salesPageData{
		Barcode:        barcode,
		Form:           form,
		Errors:         errs,
		Result:         result,
		IdempotencyKey: uuid.NewString(),
	}
	if form.Staff == "" {
		if sess := shared.SessionFromContext(r.Context()); sess != nil {
			data.Form.Staff = sess.Staff()
		}
	}
	if barcode != "" {
		lk, err := h.service.Lookup(r.Context(), barcode)
		switch {
		case err == nil:
			data.Lookup = &lk
			data.Fields = productFields(lk)
			if data.Form.Price == "" {
				data.Form.Price = lk.Item.RRP
			}
		case IsRejection(err):
			if _, ok := errs["general"]; !ok {
				errs["general"] = UserMessage(err)
			}
			if status == http.StatusOK {
				status = StatusFor(err)
			}
		default:
			h.renderFatal(w, r, err)
			return
		}
	}
	h.render(w, r, status, "pages/sales.html", "Sell / Return", data)
}

func (h *SalesHandler) handleTransaction(kind TransactionType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		barcode := strings.TrimSpace(r.PostFormValue("barcode"))
		form := transactionForm{
			Type:     kind,
			Qty:      strings.TrimSpace(r.PostFormValue("qty")),
			Price:    strings.TrimSpace(r.PostFormValue("price")),
			Staff:    strings.TrimSpace(r.PostFormValue("staff")),
			Customer: strings.TrimSpace(r.PostFormValue("customer")),
		}
		qty, err := strconv.Atoi(form.Qty)
		if err != nil || qty <= 0 {
			h.renderSales(w, r, barcode, form, map[string]string{"qty": "Quantity must be a whole number greater than zero."}, nil, http.StatusBadRequest)
			return
		}
		module := strings.ToLower(string(kind))
		key := r.PostFormValue("idempotency_key")
		if h.idem != nil && key != "" {
			if err := h.idem.CheckAndInsert(r.Context(), key, module); err != nil {
				h.logger.Warn("duplicate transaction submit", slog.String("barcode", barcode), slog.Any("error", err))
				h.flashRedirect(w, r, shared.FlashInfo, shared.UserSafeMessage(err), salesURL(barcode))
				return
			}
		}
		actor := ActorFromRequest(r)
		in := TransactionInput{
			Barcode:  barcode,
			Qty:      qty,
			Price:    form.Price,
			Staff:    actor.Staff,
			Customer: form.Customer,
			ClientIP: actor.ClientIP,
		}
		var tx Transaction
		if kind == TransactionReturn {
			tx, err = h.service.ProcessReturn(r.Context(), in)
		} else {
			tx, err = h.service.Sell(r.Context(), in)
		}
		if err != nil {
			if h.idem != nil && key != "" {
				_ = h.idem.Delete(r.Context(), key, module)
			}
			h.logger.Warn("transaction rejected", slog.String("type", string(kind)), slog.String("barcode", barcode), slog.Any("error", err))
			h.renderSales(w, r, barcode, form, map[string]string{"general": UserMessage(err)}, nil, StatusFor(err))
			return
		}
		msg := fmt.Sprintf("%s processed: %d units of %s.", tx.Type, tx.Qty, tx.Product)
		if tx.Archived {
			msg += " Stock reached zero and the item was archived."
		}
		h.flashRedirect(w, r, shared.FlashSuccess, msg, salesURL(tx.Barcode))
	}
}

func (h *SalesHandler) showHistory(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.State(r.Context())
	if err != nil {
		h.renderFatal(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "pages/sales_history.html", "Sales History", historyPageData{
		Sales: NewestSales(st.Sales, salesHistoryLimit),
		Total: len(st.Sales),
	})
}

func (h *SalesHandler) exportSales(format records.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := h.service.State(r.Context())
		if err != nil {
			h.renderFatal(w, r, err)
			return
		}
		var buf bytes.Buffer
		table := SalesToTable(st.Sales)
		if format == records.FormatXLSX {
			err = records.WriteXLSX(&buf, table)
		} else {
			err = records.WriteCSV(&buf, table)
		}
		if err != nil {
			h.logger.Error("export sales", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		WriteDownload(w, "sales_history."+string(format), format, buf.Bytes())
	}
}

// NewestSales returns up to limit records, newest first.
func NewestSales(sales []SalesRecord, limit int) []SalesRecord {
	out := slices.Clone(sales)
	slices.SortStableFunc(out, func(a, b SalesRecord) int {
		return b.At().Compare(a.At())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func productFields(lk Lookup) []labelledValue {
	stock := strconv.Itoa(lk.Item.Quantity)
	if lk.Source == SourceArchive {
		stock = "Archived"
	}
	return []labelledValue{
		{"Model", lk.Item.Model},
		{"Size", lk.Item.Size},
		{"Frame Colour", lk.Item.Colour},
		{"Manufacturer", lk.Item.Manufacturer},
		{"Current Stock", stock},
		{"RRP", records.FormatPrice(lk.Item.RRP)},
		{"Frame No.", lk.Item.FrameCode},
		{"Status", lk.Item.Status},
		{"Location", lk.Item.Location},
		{"Sold / Returned", fmt.Sprintf("%d / %d", lk.TotalSold, lk.TotalReturned)},
	}
}

func salesURL(barcode string) string {
	if barcode == "" {
		return "/sales"
	}
	return "/sales?barcode=" + url.QueryEscape(barcode)
}
