// Package rooms exposes GET /v1/rooms, an HTTP mirror of the WebSocket
// get_room_list operation (§4.3/§6), for dashboards and health tooling
// that would rather poll than hold a socket open.
package rooms

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/screenhub/signalhub/internal/v1/message"
	"github.com/screenhub/signalhub/internal/v1/registry"
)

// Registry is the subset of *registry.Registry this handler calls.
type Registry interface {
	GetAvailableRooms(q registry.GetAvailableRoomsQuery) (map[string]message.RoomInfo, int)
}

// Handler serves GET /v1/rooms.
type Handler struct {
	reg Registry
}

// NewHandler returns a Handler bound to reg.
func NewHandler(reg Registry) *Handler {
	return &Handler{reg: reg}
}

// List handles GET /v1/rooms, translating query-string parameters into
// the same GetAvailableRoomsQuery the WebSocket get_room_list frame
// uses, so both surfaces apply identical filter/sort/page semantics.
func (h *Handler) List(c *gin.Context) {
	q := registry.GetAvailableRoomsQuery{
		OS:      optionalQuery(c, "os"),
		Version: optionalQuery(c, "version"),
		Server:  optionalQuery(c, "server"),
		Name:    optionalQuery(c, "name"),
		Sort:    optionalQuery(c, "sort"),
		Control: optionalBoolQuery(c, "control"),
		Page:    optionalIntQuery(c, "page"),
		PerPage: optionalIntQuery(c, "per_page"),
	}

	rooms, total := h.reg.GetAvailableRooms(q)
	c.JSON(http.StatusOK, message.RoomListResponse{
		Rooms:      rooms,
		TotalCount: total,
		Page:       q.Page,
		PerPage:    q.PerPage,
	})
}

func optionalQuery(c *gin.Context, key string) *string {
	v, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	return &v
}

func optionalBoolQuery(c *gin.Context, key string) *bool {
	v, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

func optionalIntQuery(c *gin.Context, key string) *int {
	v, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}
