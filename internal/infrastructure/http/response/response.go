package response

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mrops-br/products-inventory-api/internal/domain"
)

// Envelope is the body shape shared by every API response
type Envelope struct {
	Success  bool                `json:"success"`
	Message  string              `json:"message,omitempty"`
	Data     any                 `json:"data,omitempty"`
	Errors   map[string][]string `json:"errors,omitempty"`
	TotalSum string              `json:"total_sum,omitempty"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Success sends a successful envelope
func Success(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a failed envelope carrying only a message
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{
		Success: false,
		Message: message,
	})
}

// ValidationFailed sends the per-field messages with status 422
func ValidationFailed(w http.ResponseWriter, verr *domain.ValidationError) {
	JSON(w, http.StatusUnprocessableEntity, Envelope{
		Success: false,
		Message: "Validation failed",
		Errors:  verr.Errors,
	})
}

// NotFound sends the standard missing product response
func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, "Product not found")
}

// Download sends data as a file attachment
func Download(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
