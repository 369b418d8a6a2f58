package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/pedidos-pro/internal/application/catalog"
	"github.com/tu-usuario/pedidos-pro/internal/application/dto"
	"github.com/tu-usuario/pedidos-pro/internal/domain/entity"
)

// ProductHandler maneja el catálogo: CRUD administrativo y la vista pública
// que consume el checkout (sin costo ni margen).
type ProductHandler struct {
	uc *catalog.Service
}

// NewProductHandler construye el handler.
func NewProductHandler(uc *catalog.Service) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// Create alta de producto (admin).
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "name es requerido"})
	}
	p, err := h.uc.Create(c.Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toProductResponse(p))
}

// GetByID producto por ID (admin, vista completa).
func (h *ProductHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	p, err := h.uc.Get(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toProductResponse(p))
}

// List productos (admin; con ?include_inactive=true incluye borrados lógicos).
func (h *ProductHandler) List(c *fiber.Ctx) error {
	includeInactive := c.QueryBool("include_inactive", false)
	all, err := h.uc.List(c.Context(), includeInactive)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]*dto.ProductResponse, 0, len(all))
	for _, p := range all {
		out = append(out, toProductResponse(p))
	}
	return c.JSON(out)
}

// Update actualización parcial (admin). El stock no se toca por esta ruta.
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	var in dto.UpdateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	p, err := h.uc.Update(c.Context(), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toProductResponse(p))
}

// Delete borrado lógico (admin).
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	if err := h.uc.SoftDelete(c.Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PublicList catálogo público para el checkout: solo productos activos y sin
// exponer costo.
func (h *ProductHandler) PublicList(c *fiber.Ctx) error {
	all, err := h.uc.List(c.Context(), false)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]*dto.PublicProductResponse, 0, len(all))
	for _, p := range all {
		out = append(out, toPublicProductResponse(p))
	}
	return c.JSON(out)
}

// PublicGetByID vista pública de un producto.
func (h *ProductHandler) PublicGetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	p, err := h.uc.Get(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	if !p.Active {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "producto no encontrado"})
	}
	return c.JSON(toPublicProductResponse(p))
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:            p.ID,
		Name:          p.Name,
		Category:      p.Category,
		Cost:          p.Cost,
		Price:         p.Price,
		SalePrice:     p.SalePrice(),
		Stock:         p.Stock,
		MinStock:      p.MinStock,
		Discount:      p.Discount,
		Disponible:    p.Disponible,
		OutOfStock:    p.OutOfStock,
		ForceDisabled: p.ForceDisabled,
		Active:        p.Active,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toPublicProductResponse(p *entity.Product) *dto.PublicProductResponse {
	return &dto.PublicProductResponse{
		ID:         p.ID,
		Name:       p.Name,
		Category:   p.Category,
		Price:      p.Price,
		SalePrice:  p.SalePrice(),
		Discount:   p.Discount,
		Stock:      p.Stock,
		Disponible: p.Disponible,
	}
}
