package verification

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/certledger/certledger/internal/apperr"
	"github.com/certledger/certledger/internal/credential"
)

const formField = "file"

// Handler matches an uploaded document against a learner's credentials.
type Handler struct {
	creds  *credential.Service
	logger *slog.Logger
}

func NewHandler(creds *credential.Service, logger *slog.Logger) *Handler {
	return &Handler{creds: creds, logger: logger}
}

type documentResponse struct {
	Success      bool           `json:"success"`
	Digest       string         `json:"digest"`
	Matches      []int          `json:"matches"`
	Certificates credential.Set `json:"certificates"`
}

// Document hashes the multipart "file" field and reports which records
// of :address carry that digest.
func (h *Handler) Document(c *fiber.Ctx) error {
	fh, err := c.FormFile(formField)
	if err != nil {
		return apperr.Validation("A document must be uploaded in the \"file\" field.")
	}
	f, err := fh.Open()
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "Unable to read the uploaded document.")
	}
	defer f.Close()

	digest, err := Digest(f)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "Unable to read the uploaded document.")
	}

	set, err := h.creds.GetCredentials(c.UserContext(), c.Params("address"))
	if err != nil {
		return err
	}
	res, err := Match(set, digest)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, credential.MsgVerifyFailed)
	}
	h.logger.Debug("verification.document matched",
		slog.String("digest", res.Digest),
		slog.Int("records", len(set)),
		slog.Int("matches", len(res.Matches)),
	)
	return c.Status(http.StatusOK).JSON(documentResponse{
		Success:      true,
		Digest:       res.Digest,
		Matches:      res.Matches,
		Certificates: set,
	})
}
