package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ksultani/go-dinebot-backend/internal/domain"
	"github.com/ksultani/go-dinebot-backend/internal/services"
)

// customerPhoneHeader identifies the caller on tracking endpoints. Orders are
// only visible to the customer that placed them.
const customerPhoneHeader = "X-Customer-Phone"

// OrderResponse is the payload returned by the tracking endpoints.
type OrderResponse struct {
	Order   *domain.Order `json:"order"`
	Message string        `json:"message" example:"Order BRG-20260825-0042 is being prepared."`
}

// callerCustomer resolves the customer from the phone header. It writes the
// error response itself and returns nil when the request should not proceed.
func (h *Handlers) callerCustomer(c *gin.Context) *domain.Customer {
	phone, okPhone := normalizePhone(c.GetHeader(customerPhoneHeader))
	if !okPhone {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest,
			customerPhoneHeader+" header required (7-15 digits, optionally prefixed with +)")
		return nil
	}
	cust, err := h.customers.ResolveByPhone(c.Request.Context(), phone)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeTrackingFailed, "could not resolve customer")
		return nil
	}
	return cust
}

// trackOrder is shared by both tracking endpoints; an empty number means
// "the caller's most recent order".
func (h *Handlers) trackOrder(c *gin.Context, orderNumber string) {
	cust := h.callerCustomer(c)
	if cust == nil {
		return
	}

	order, err := h.orders.Track(c.Request.Context(), cust.ID, orderNumber)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "order not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeTrackingFailed, "could not look up order")
		return
	}

	ok(c, http.StatusOK, OrderResponse{Order: order, Message: h.orders.TrackingMessage(order)})
}

// GetOrder godoc
// @ID          getOrder
// @Summary     Track an order by number
// @Description Returns the order identified by its human-readable number, scoped to the calling customer.
// @Tags        Orders
// @Produce     json
//
// @Param       X-Customer-Phone  header  string  true  "Customer phone number"      example(+15550001111)
// @Param       number            path    string  true  "Order number"               example(BRG-20260825-0042)
//
// @Success     200  {object}  handlers.OrderResponse  "Order with status message"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Order not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /orders/{number} [get]
func (h *Handlers) GetOrder(c *gin.Context) {
	number := strings.TrimSpace(c.Param("number"))
	if number == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "order number required")
		return
	}
	h.trackOrder(c, number)
}

// GetLatestOrder godoc
// @ID          getLatestOrder
// @Summary     Track the most recent order
// @Description Returns the calling customer's most recently placed order.
// @Tags        Orders
// @Produce     json
//
// @Param       X-Customer-Phone  header  string  true  "Customer phone number"  example(+15550001111)
//
// @Success     200  {object}  handlers.OrderResponse  "Order with status message"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "No orders yet"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /orders [get]
func (h *Handlers) GetLatestOrder(c *gin.Context) {
	h.trackOrder(c, "")
}
