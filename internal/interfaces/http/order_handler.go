package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/pedidos-pro/internal/application/dto"
	"github.com/tu-usuario/pedidos-pro/internal/application/orders"
	"github.com/tu-usuario/pedidos-pro/internal/domain"
	"github.com/tu-usuario/pedidos-pro/internal/domain/entity"
	"github.com/tu-usuario/pedidos-pro/internal/domain/order"
)

// OrderHandler maneja el checkout público y las operaciones del panel sobre
// órdenes. Los reintentos idempotentes (volver a entregar, volver a cancelar)
// responden 200 con un código en lugar de error.
type OrderHandler struct {
	uc *orders.Service
}

// NewOrderHandler construye el handler.
func NewOrderHandler(uc *orders.Service) *OrderHandler {
	return &OrderHandler{uc: uc}
}

// Checkout crea una orden desde el carrito de un cliente (público).
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	var in dto.CreateOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.CreateOrder(c.Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID orden por ID.
func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	o, err := h.uc.Get(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toOrderResponse(o))
}

// List órdenes, opcionalmente filtradas con ?status=.
func (h *OrderHandler) List(c *fiber.Ctx) error {
	all, err := h.uc.List(c.Context(), c.Query("status"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]*dto.OrderResponse, 0, len(all))
	for _, o := range all {
		out = append(out, toOrderResponse(o))
	}
	return c.JSON(out)
}

// UpdateStatus aplica una transición de estado.
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	var in dto.UpdateStatusRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	st, err := order.Parse(in.Status)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "estado desconocido: " + in.Status})
	}
	o, err := h.uc.UpdateStatus(c.Context(), id, st, in.Note)
	if err != nil {
		return h.respondStatus(c, id, err)
	}
	return c.JSON(dto.OrderStatusResponse{OrderID: o.ID, Status: string(o.Status)})
}

// Cancel cancela la orden y libera su stock.
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	var in dto.UpdateStatusRequest
	_ = c.BodyParser(&in) // nota opcional
	o, err := h.uc.CancelOrder(c.Context(), id, in.Note)
	if err != nil {
		return h.respondStatus(c, id, err)
	}
	return c.JSON(dto.OrderStatusResponse{OrderID: o.ID, Status: string(o.Status)})
}

// AssignDelivery asigna repartidor sin cambiar el estado.
func (h *OrderHandler) AssignDelivery(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	var in dto.AssignDeliveryRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	o, err := h.uc.AssignDelivery(c.Context(), id, in.DeliveryID, in.DeliveryName, in.DeliveryCode)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toOrderResponse(o))
}

// UnassignDelivery limpia la asignación de repartidor.
func (h *OrderHandler) UnassignDelivery(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	o, err := h.uc.UnassignDelivery(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toOrderResponse(o))
}

// respondStatus responde los no-op idempotentes como 200 con código; el resto
// pasa por el mapeo común de errores.
func (h *OrderHandler) respondStatus(c *fiber.Ctx, orderID string, err error) error {
	switch {
	case errors.Is(err, domain.ErrAlreadyDelivered):
		return c.JSON(dto.OrderStatusResponse{OrderID: orderID, Status: string(order.StatusDelivered), Code: "ALREADY_DELIVERED"})
	case errors.Is(err, domain.ErrAlreadyCancelled):
		return c.JSON(dto.OrderStatusResponse{OrderID: orderID, Status: string(order.StatusCancelled), Code: "ALREADY_CANCELLED"})
	default:
		return respondError(c, err)
	}
}

func toOrderResponse(o *entity.Order) *dto.OrderResponse {
	return &dto.OrderResponse{
		ID:                   o.ID,
		OrderNumber:          o.OrderNumber,
		Customer:             o.Customer,
		Items:                o.Items,
		Status:               string(o.Status),
		StatusHistory:        o.StatusHistory,
		AssignedDeliveryID:   o.AssignedDeliveryID,
		AssignedDeliveryName: o.AssignedDeliveryName,
		AssignedDeliveryCode: o.AssignedDeliveryCode,
		Subtotal:             o.Subtotal,
		DeliveryCost:         o.DeliveryCost,
		Total:                o.Total,
		PaymentMethod:        o.PaymentMethod,
		CreatedAt:            o.CreatedAt,
		AssignedAt:           o.AssignedAt,
		DeliveredAt:          o.DeliveredAt,
		CancelledAt:          o.CancelledAt,
	}
}
