package credential

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/certledger/certledger/internal/httputil"
)

// Handler exposes credential lookup and issuance.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type verifyResponse struct {
	Success      bool `json:"success"`
	Certificates Set  `json:"certificates"`
}

// Verify returns every record issued to the :address path parameter.
func (h *Handler) Verify(c *fiber.Ctx) error {
	set, err := h.svc.GetCredentials(c.UserContext(), c.Params("address"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(verifyResponse{Success: true, Certificates: set})
}

type issueRequest struct {
	Address  string `json:"address"`
	CertHash string `json:"certHash"`
}

func (r *issueRequest) Validate() error {
	return httputil.Required([2]string{"address", r.Address}, [2]string{"certHash", r.CertHash})
}

type issueResponse struct {
	Success  bool   `json:"success"`
	TxHash   string `json:"txHash"`
	Address  string `json:"address"`
	CertHash string `json:"certHash"`
}

// Issue submits an issuance transaction and answers once the node accepts it.
func (h *Handler) Issue(c *fiber.Ctx) error {
	req, err := httputil.DecodeJSON[issueRequest](c)
	if err != nil {
		return err
	}
	issued, err := h.svc.Issue(c.UserContext(), req.Address, req.CertHash)
	if err != nil {
		return err
	}
	h.logger.Info("credential.issue submitted",
		slog.String("address", issued.Learner),
		slog.String("cert_hash", issued.CertHash),
		slog.String("tx_hash", issued.TxHash),
	)
	return c.Status(http.StatusAccepted).JSON(issueResponse{
		Success:  true,
		TxHash:   issued.TxHash,
		Address:  issued.Learner,
		CertHash: issued.CertHash,
	})
}
