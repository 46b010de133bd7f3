package inventory

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Christophertabanag/Inventory-System/internal/platform/httpx"
	"github.com/Christophertabanag/Inventory-System/internal/shared"
)

// APIHandler exposes the ledger as JSON under /api/v1.
type APIHandler struct {
	logger  *slog.Logger
	service *Service
	idem    *shared.IdempotencyStore
}

// NewAPIHandler constructs the JSON handler. idem may be nil.
func NewAPIHandler(logger *slog.Logger, service *Service, idem *shared.IdempotencyStore) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{logger: logger, service: service, idem: idem}
}

// MountRoutes registers the JSON routes.
func (h *APIHandler) MountRoutes(r chi.Router) {
	r.Get("/items", h.listItems)
	r.Post("/items", h.createItem)
	r.Get("/items/{id}", h.getItem)
	r.Put("/items/{id}", h.updateItem)
	r.Delete("/items/{id}", h.deleteItem)
	r.Get("/archive", h.listArchive)
	r.Get("/lookup/{barcode}", h.lookup)
	r.Post("/sales", h.sell)
	r.Post("/returns", h.processReturn)
	r.Post("/codes/barcode", h.nextBarcode)
	r.Post("/codes/framecode", h.nextFrameCode)
}

// ItemDTO is the JSON shape of an item.
type ItemDTO struct {
	Barcode       string            `json:"barcode"`
	FrameCode     string            `json:"frame_code"`
	Quantity      int               `json:"quantity"`
	Manufacturer  string            `json:"manufacturer,omitempty"`
	Model         string            `json:"model,omitempty"`
	Colour        string            `json:"colour,omitempty"`
	Size          string            `json:"size,omitempty"`
	Supplier      string            `json:"supplier,omitempty"`
	FrameType     string            `json:"frame_type,omitempty"`
	Temple        string            `json:"temple,omitempty"`
	Depth         string            `json:"depth,omitempty"`
	Diag          string            `json:"diag,omitempty"`
	RRP           string            `json:"rrp,omitempty"`
	ExCostPrice   string            `json:"ex_cost_price,omitempty"`
	CostPrice     string            `json:"cost_price,omitempty"`
	TaxCode       string            `json:"tax_code,omitempty"`
	Status        string            `json:"status,omitempty"`
	AvailableFrom string            `json:"available_from,omitempty"`
	Location      string            `json:"location,omitempty"`
	Note          string            `json:"note,omitempty"`
	Timestamp     string            `json:"timestamp,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

func toDTO(item Item) ItemDTO {
	return ItemDTO{
		Barcode: item.Barcode, FrameCode: item.FrameCode, Quantity: item.Quantity,
		Manufacturer: item.Manufacturer, Model: item.Model, Colour: item.Colour, Size: item.Size,
		Supplier: item.Supplier, FrameType: item.FrameType, Temple: item.Temple, Depth: item.Depth,
		Diag: item.Diag, RRP: item.RRP, ExCostPrice: item.ExCostPrice, CostPrice: item.CostPrice,
		TaxCode: item.TaxCode, Status: item.Status, AvailableFrom: item.AvailableFrom,
		Location: item.Location, Note: item.Note, Timestamp: item.Timestamp, Extra: item.Extra,
	}
}

func (d ItemDTO) item() Item {
	return Item{
		Barcode: d.Barcode, FrameCode: d.FrameCode, Quantity: d.Quantity,
		Manufacturer: d.Manufacturer, Model: d.Model, Colour: d.Colour, Size: d.Size,
		Supplier: d.Supplier, FrameType: d.FrameType, Temple: d.Temple, Depth: d.Depth,
		Diag: d.Diag, RRP: d.RRP, ExCostPrice: d.ExCostPrice, CostPrice: d.CostPrice,
		TaxCode: d.TaxCode, Status: d.Status, AvailableFrom: d.AvailableFrom,
		Location: d.Location, Note: d.Note, Timestamp: d.Timestamp, Extra: d.Extra,
	}
}

type transactionRequest struct {
	Barcode  string `json:"barcode"`
	Qty      int    `json:"qty"`
	Price    string `json:"price"`
	Staff    string `json:"staff"`
	Customer string `json:"customer"`
}

type transactionResponse struct {
	ID        string          `json:"id"`
	Type      TransactionType `json:"type"`
	Barcode   string          `json:"barcode"`
	Product   string          `json:"product"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	QtyBefore int             `json:"qty_before"`
	QtyAfter  int             `json:"qty_after"`
	Source    Source          `json:"source"`
	Archived  bool            `json:"archived"`
	At        time.Time       `json:"at"`
}

type lookupResponse struct {
	Item          ItemDTO `json:"item"`
	Source        Source  `json:"source"`
	TotalSold     int     `json:"total_sold"`
	TotalReturned int     `json:"total_returned"`
	NetSold       int     `json:"net_sold"`
}

func (h *APIHandler) listItems(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.State(r.Context())
	if err != nil {
		h.fail(w, "list items", err)
		return
	}
	items := filterItems(st.Inventory, r.URL.Query().Get("q"))
	out := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, toDTO(item))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out, "total": len(out)})
}

func (h *APIHandler) listArchive(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.State(r.Context())
	if err != nil {
		h.fail(w, "list archive", err)
		return
	}
	out := make([]ItemDTO, 0, len(st.Archive))
	for _, item := range st.Archive {
		out = append(out, toDTO(item))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out, "total": len(out)})
}

func (h *APIHandler) getItem(w http.ResponseWriter, r *http.Request) {
	lk, err := h.service.Lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDTO(lk.Item))
}

func (h *APIHandler) createItem(w http.ResponseWriter, r *http.Request) {
	var req ItemDTO
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := h.service.AddItem(r.Context(), ActorFromRequest(r), req.item())
	if err != nil {
		h.fail(w, "create item", err)
		return
	}
	lk, err := h.service.Lookup(r.Context(), id)
	if err != nil {
		h.fail(w, "create item", err)
		return
	}
	w.Header().Set("Location", "/api/v1/items/"+id)
	httpx.JSON(w, http.StatusCreated, toDTO(lk.Item))
}

func (h *APIHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	var req ItemDTO
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.EditItem(r.Context(), ActorFromRequest(r), chi.URLParam(r, "id"), req.item()); err != nil {
		h.fail(w, "update item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) deleteItem(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.DeleteItem(r.Context(), ActorFromRequest(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "delete item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDTO(removed))
}

func (h *APIHandler) lookup(w http.ResponseWriter, r *http.Request) {
	lk, err := h.service.Lookup(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		h.fail(w, "lookup", err)
		return
	}
	httpx.JSON(w, http.StatusOK, lookupResponse{
		Item:          toDTO(lk.Item),
		Source:        lk.Source,
		TotalSold:     lk.TotalSold,
		TotalReturned: lk.TotalReturned,
		NetSold:       lk.NetSold,
	})
}

func (h *APIHandler) sell(w http.ResponseWriter, r *http.Request) {
	h.transact(w, r, "sale", h.service.Sell)
}

func (h *APIHandler) processReturn(w http.ResponseWriter, r *http.Request) {
	h.transact(w, r, "return", h.service.ProcessReturn)
}

func (h *APIHandler) transact(w http.ResponseWriter, r *http.Request, module string, run func(context.Context, TransactionInput) (Transaction, error)) {
	var req transactionRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	key := r.Header.Get("Idempotency-Key")
	if key != "" && h.idem != nil {
		if err := h.idem.CheckAndInsert(r.Context(), key, module); err != nil {
			httpx.Problem(w, http.StatusConflict, "Duplicate Request", shared.UserSafeMessage(err))
			return
		}
	}
	actor := ActorFromRequest(r)
	if req.Staff == "" {
		req.Staff = actor.Staff
	}
	tx, err := run(r.Context(), TransactionInput{
		Barcode:  req.Barcode,
		Qty:      req.Qty,
		Price:    req.Price,
		Staff:    req.Staff,
		Customer: req.Customer,
		ClientIP: actor.ClientIP,
	})
	if err != nil {
		if key != "" && h.idem != nil {
			_ = h.idem.Delete(r.Context(), key, module)
		}
		h.fail(w, module, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, transactionResponse{
		ID: tx.ID, Type: tx.Type, Barcode: tx.Barcode, Product: tx.Product, Qty: tx.Qty,
		Price: tx.Price, QtyBefore: tx.QtyBefore, QtyAfter: tx.QtyAfter, Source: tx.Source,
		Archived: tx.Archived, At: tx.At,
	})
}

func (h *APIHandler) nextBarcode(w http.ResponseWriter, r *http.Request) {
	code, err := h.service.NextBarcode(r.Context())
	if err != nil {
		h.fail(w, "next barcode", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"barcode": code})
}

func (h *APIHandler) nextFrameCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Supplier string `json:"supplier"`
	}
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	code, err := h.service.NextFrameCode(r.Context(), req.Supplier)
	if err != nil {
		h.fail(w, "next frame code", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"frame_code": code})
}

func (h *APIHandler) fail(w http.ResponseWriter, op string, err error) {
	if IsRejection(err) {
		h.logger.Info("api request rejected", slog.String("op", op), slog.Any("error", err))
	} else {
		h.logger.Error("api request failed", slog.String("op", op), slog.Any("error", err))
	}
	httpx.RespondError(w, ProblemKind(err))
}
