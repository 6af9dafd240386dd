package http

import (
	"net/http"
	"reflect"

	"github.com/go-chi/render"
)

// SuccessResponse is the envelope of every successful JSON response
type SuccessResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
	Count  *int        `json:"count,omitempty"`
}

// respond renders data in the success envelope. Slices also report their
// length as count.
func respond(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	resp := SuccessResponse{Status: "success", Data: data}
	if v := reflect.ValueOf(data); v.Kind() == reflect.Slice {
		n := v.Len()
		resp.Count = &n
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}

// respondCount renders data with an explicit count
func respondCount(w http.ResponseWriter, r *http.Request, data interface{}, count int) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, SuccessResponse{Status: "success", Data: data, Count: &count})
}
