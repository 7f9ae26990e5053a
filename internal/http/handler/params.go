package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// Values read from the request alias fasthttp buffers that are reused once the
// handler returns. Anything handed to a service may be retained by a store, so
// it is copied here.

func param(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.Params(key))
}

func formValue(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.FormValue(key))
}
