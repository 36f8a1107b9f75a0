package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopmate/backend/internal/database"
	"github.com/shopmate/backend/internal/services"
)

// respond writes the success envelope, merging any extra payload fields.
func respond(c *gin.Context, status int, message string, extras gin.H) {
	body := gin.H{
		"success": true,
		"message": message,
	}
	for k, v := range extras {
		body[k] = v
	}
	c.JSON(status, body)
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

// errorStatus maps domain errors to HTTP statuses: validation 400,
// authorization 403, missing entities 404, stock conflicts 409, external
// dependency failures 502, everything else 500.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, database.ErrEmailTaken):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrPurchaseRequired):
		return http.StatusForbidden
	case errors.Is(err, database.ErrUserNotFound),
		errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrOrderNotFound),
		errors.Is(err, database.ErrReviewNotFound),
		errors.Is(err, database.ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, database.ErrPaymentFailed),
		errors.Is(err, services.ErrEmptyRanking):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// handleError translates an error into the JSON error envelope. Unexpected
// errors are logged and hidden behind a generic message.
func handleError(c *gin.Context, err error) {
	status := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		message = "internal server error"
	}
	respondError(c, status, message)
}
