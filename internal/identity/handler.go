package identity

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/certledger/certledger/internal/httputil"
)

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (r *registerRequest) Validate() error {
	return httputil.Required(
		[2]string{"username", r.Username},
		[2]string{"password", r.Password},
		[2]string{"role", r.Role},
	)
}

type registerResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
}

// Register handles account creation.
func (h *Handler) Register(c *fiber.Ctx) error {
	req, err := httputil.DecodeJSON[registerRequest](c)
	if err != nil {
		return err
	}
	user, err := h.service.Register(c.UserContext(), Credentials{Username: req.Username, Password: req.Password, Role: req.Role})
	if err != nil {
		return err
	}
	h.logger.Info("identity.register completed",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
		slog.String("role", user.Role),
	)
	return c.Status(http.StatusCreated).JSON(registerResponse{Success: true, Message: "User created successfully", UserID: user.ID})
}
