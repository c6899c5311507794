package plugins

import "github.com/gofiber/fiber/v2"

// APIResponse is the JSON envelope of every API response. Mutating radio
// operations carry the op id they were logged under.
type APIResponse struct {
	Success bool        `json:"success"`
	OpID    string      `json:"op_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// SendSuccess sends a successful response
func SendSuccess(c *fiber.Ctx, data interface{}, message string) error {
	return c.JSON(APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// SendOpSuccess sends a successful response for operation op
func SendOpSuccess(c *fiber.Ctx, op string, data interface{}, message string) error {
	return c.JSON(APIResponse{
		Success: true,
		OpID:    op,
		Data:    data,
		Message: message,
	})
}

// SendError sends an error response
func SendError(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// SendOpError sends an error response for operation op
func SendOpError(c *fiber.Ctx, status int, op string, err error) error {
	return c.Status(status).JSON(APIResponse{
		Success: false,
		OpID:    op,
		Error:   err.Error(),
	})
}

// SendErrorMessage sends an error response with a custom message
func SendErrorMessage(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(APIResponse{
		Success: false,
		Error:   message,
	})
}
