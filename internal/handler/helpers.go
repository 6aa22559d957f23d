package handler

import "github.com/gofiber/fiber/v2"

// chain returns middlewares followed by final without aliasing the caller's slice.
func chain(middlewares []fiber.Handler, final fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(middlewares)+1)
	out = append(out, middlewares...)
	return append(out, final)
}
