package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mssola/useragent"

	"github.com/certledger/certledger/internal/apperr"
	"github.com/certledger/certledger/internal/httputil"
)

// Handler exposes the login endpoint.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *loginRequest) Validate() error {
	return httputil.Required([2]string{"username", r.Username}, [2]string{"password", r.Password})
}

type loginResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token"`
	Role      string `json:"role"`
	ExpiresIn int64  `json:"expiresIn"`
}

// Login validates credentials and returns a session token.
func (h *Handler) Login(c *fiber.Ctx) error {
	req, err := httputil.DecodeJSON[loginRequest](c)
	if err != nil {
		return err
	}
	client := clientAttrs(c.Get(fiber.HeaderUserAgent))

	res, err := h.svc.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeUnauthorized) {
			h.logger.Warn("auth.login rejected", append(client, slog.String("username", req.Username))...)
			return err
		}
		return apperr.Wrap(err, apperr.CodeInternal, "Server error")
	}

	h.logger.Info("auth.login completed", append(client,
		slog.Int64("user_id", res.User.ID),
		slog.String("role", res.User.Role),
	)...)
	return c.Status(http.StatusOK).JSON(loginResponse{
		Success:   true,
		Token:     res.Token,
		Role:      res.User.Role,
		ExpiresIn: int64(h.svc.tokens.TTL().Seconds()),
	})
}

// Me returns the identity bound to the bearer token.
func (h *Handler) Me(c *fiber.Ctx) error {
	session, ok := SessionFrom(c)
	if !ok {
		return apperr.Unauthorized("missing session")
	}
	return c.JSON(fiber.Map{"success": true, "userId": session.UserID, "role": session.Role})
}

func clientAttrs(ua string) []any {
	if ua == "" {
		return []any{slog.String("client", "unknown")}
	}
	parsed := useragent.New(ua)
	browser, version := parsed.Browser()
	platform := "desktop"
	if parsed.Mobile() {
		platform = "mobile"
	}
	if parsed.Bot() {
		platform = "bot"
	}
	return []any{
		slog.String("browser", strings.TrimSpace(browser+" "+version)),
		slog.String("os", parsed.OS()),
		slog.String("platform", platform),
	}
}
