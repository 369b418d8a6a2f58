package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/pedidos-pro/internal/application/dto"
	"github.com/tu-usuario/pedidos-pro/internal/application/ledger"
	"github.com/tu-usuario/pedidos-pro/internal/domain/entity"
)

// LedgerHandler maneja el libro contable del panel: transacciones manuales,
// anulaciones y resúmenes por período.
type LedgerHandler struct {
	uc *ledger.Service
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(uc *ledger.Service) *LedgerHandler {
	return &LedgerHandler{uc: uc}
}

// RecordExpense registra un egreso manual; inventory-purchase también
// incrementa stock.
func (h *LedgerHandler) RecordExpense(c *fiber.Ctx) error {
	var in dto.RecordExpenseRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	t, err := h.uc.RecordExpense(c.Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toTransactionResponse(t))
}

// RecordIncome registra un ingreso manual.
func (h *LedgerHandler) RecordIncome(c *fiber.Ctx) error {
	var in dto.RecordIncomeRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	t, err := h.uc.RecordIncome(c.Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toTransactionResponse(t))
}

// Void anula una transacción manual.
func (h *LedgerHandler) Void(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	var in dto.VoidTransactionRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	t, err := h.uc.Void(c.Context(), id, in.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toTransactionResponse(t))
}

// GetByID transacción por ID.
func (h *LedgerHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	t, err := h.uc.Get(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toTransactionResponse(t))
}

// List transacciones; con ?from= y ?to= (RFC 3339) acota el rango [from, to).
func (h *LedgerHandler) List(c *fiber.Ctx) error {
	fromStr, toStr := c.Query("from"), c.Query("to")
	var all []*entity.Transaction
	var err error
	if fromStr != "" || toStr != "" {
		from, ferr := time.Parse(time.RFC3339, fromStr)
		to, terr := time.Parse(time.RFC3339, toStr)
		if ferr != nil || terr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from y to deben ser RFC 3339"})
		}
		all, err = h.uc.ListPeriod(c.Context(), from, to)
	} else {
		all, err = h.uc.List(c.Context())
	}
	if err != nil {
		return respondError(c, err)
	}
	out := make([]*dto.TransactionResponse, 0, len(all))
	for _, t := range all {
		out = append(out, toTransactionResponse(t))
	}
	return c.JSON(out)
}

// Summary totales del período que contiene a ?date= (hoy por defecto);
// ?period= day | week | month.
func (h *LedgerHandler) Summary(c *fiber.Ctx) error {
	period := c.Query("period", "day")
	ref := time.Now()
	if d := c.Query("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "date debe ser YYYY-MM-DD"})
		}
		ref = parsed
	}
	sum, err := h.uc.Summary(c.Context(), period, ref)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sum)
}

func toTransactionResponse(t *entity.Transaction) *dto.TransactionResponse {
	return &dto.TransactionResponse{
		ID:          t.ID,
		Type:        t.Type,
		Category:    t.Category,
		Amount:      t.Amount,
		Date:        t.Date,
		OrderID:     t.OrderID,
		Description: t.Description,
		IsAutomatic: t.IsAutomatic,
		Products:    t.Products,
		Voided:      t.Voided,
		VoidReason:  t.VoidReason,
		CreatedAt:   t.CreatedAt,
	}
}
