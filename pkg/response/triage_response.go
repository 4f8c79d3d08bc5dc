// Package response provides the JSON envelopes the classification API
// answers with.
package response

import (
	"github.com/gofiber/fiber/v2"
)

// Classifications is the success body of every classify endpoint.
type Classifications[T any] struct {
	Classifications []T `json:"classifications"`
}

// Error is the failure body of every endpoint.
type Error struct {
	Error string `json:"error"`
}

// OK returns a successful classify response. A nil slice is sent as [].
func OK[T any](c *fiber.Ctx, results []T) error {
	if results == nil {
		results = []T{}
	}
	return c.JSON(Classifications[T]{Classifications: results})
}

// Fail returns an error response.
func Fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(Error{Error: message})
}
