package http

import (
	"bufio"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/pedidos-pro/internal/application/dto"
	"github.com/tu-usuario/pedidos-pro/internal/domain/store"
	"github.com/tu-usuario/pedidos-pro/pkg/logger"
	"github.com/valyala/fasthttp"
)

// Prefijos suscribibles por el feed de cambios. Cualquier otro valor se rechaza
// para no exponer rutas internas (contadores, índices de idempotencia).
var allowedPrefixes = map[string]string{
	"orders":       "orders/",
	"products":     "products/",
	"transactions": "transactions/",
}

// EventsHandler expone el feed de cambios del store como Server-Sent Events.
// El panel lo usa para refrescar órdenes y stock sin polling.
type EventsHandler struct {
	st  store.Store
	log *logger.Logger
}

// NewEventsHandler construye el handler.
func NewEventsHandler(st store.Store, log *logger.Logger) *EventsHandler {
	return &EventsHandler{st: st, log: log}
}

// Stream abre un stream SSE con los cambios bajo ?topic= (orders por defecto).
// Cada evento lleva la ruta como ID y el documento como payload.
func (h *EventsHandler) Stream(c *fiber.Ctx) error {
	topic := c.Query("topic", "orders")
	prefix, ok := allowedPrefixes[topic]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "topic desconocido: " + topic})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// Buffer amplio: si el cliente no drena, los eventos excedentes se descartan.
		events := make(chan store.Event, 64)
		unsubscribe := h.st.Subscribe(prefix, func(ev store.Event) {
			select {
			case events <- ev:
			default:
			}
		})
		defer unsubscribe()

		// El ping periódico detecta la desconexión aunque no haya cambios.
		ping := time.NewTicker(5 * time.Second)
		defer ping.Stop()

		for {
			select {
			case ev := <-events:
				fmt.Fprintf(w, "id: %s@%d\n", ev.Path, ev.Version)
				fmt.Fprintf(w, "event: change\n")
				fmt.Fprintf(w, "data: %s\n\n", ev.Data)
			case <-ping.C:
				fmt.Fprint(w, ": ping\n\n")
			}
			if err := w.Flush(); err != nil {
				h.log.Debug().Str("topic", topic).Msg("stream SSE cerrado")
				return
			}
		}
	}))
	return nil
}
