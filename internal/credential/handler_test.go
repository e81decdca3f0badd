package credential

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/certledger/certledger/internal/auth"
	"github.com/certledger/certledger/internal/credential/mocks"
	"github.com/certledger/certledger/internal/ledger"
	"github.com/certledger/certledger/internal/logging"
	"github.com/certledger/certledger/internal/middleware"
)

var testTokens = auth.NewTokens("secret", time.Hour)

func newCredentialApp(svc *Service) *fiber.App {
	h := NewHandler(svc, logging.Discard())
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(logging.Discard())})
	authn := middleware.BearerAuth(testTokens)
	app.Get("/verify/:address", authn, middleware.RequireRole("learner", "employer"), h.Verify)
	app.Post("/credentials", authn, middleware.RequireRole("issuer"), h.Issue)
	return app
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	token, _, err := testTokens.Issue(1, role)
	require.NoError(t, err)
	return "Bearer " + token
}

func doRequest(t *testing.T, app *fiber.App, method, path, authz, body string) (int, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if authz != "" {
		req.Header.Set(fiber.HeaderAuthorization, authz)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(payload)
}

func TestVerifyNoRecords(t *testing.T) {
	svc := NewService(ledger.NewInMemory(issuer), logging.Discard())
	app := newCredentialApp(svc)

	status, body := doRequest(t, app, fiber.MethodGet, "/verify/0xabc0000000000000000000000000000000000001", bearer(t, "employer"), "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.JSONEq(t, `{"success":false,"message":"No certificates found for this address."}`, body)
}

func TestVerifyReturnsRecordsInOrder(t *testing.T) {
	mem := ledger.NewInMemory(issuer)
	learner := common.HexToAddress(learnerHex)
	ledger.SeedCredentials(mem, learner, tuple(hashA, 100), tuple(hashB, 200))
	app := newCredentialApp(NewService(mem, logging.Discard()))

	status, body := doRequest(t, app, fiber.MethodGet, "/verify/"+learnerHex, bearer(t, "employer"), "")
	require.Equal(t, fiber.StatusOK, status)

	var out struct {
		Success      bool `json:"success"`
		Certificates Set  `json:"certificates"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.True(t, out.Success)
	assert.Equal(t, Set{
		{CertHash: hashA, Timestamp: 100, Issuer: issuer.Hex()},
		{CertHash: hashB, Timestamp: 200, Issuer: issuer.Hex()},
	}, out.Certificates)
}

func TestVerifyLedgerFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	l := mocks.NewMockLedger(ctrl)
	l.EXPECT().GetCredentials(gomock.Any(), gomock.Any()).Return(nil, errors.New("rpc timeout"))
	app := newCredentialApp(NewService(l, logging.Discard()))

	status, body := doRequest(t, app, fiber.MethodGet, "/verify/"+learnerHex, bearer(t, "learner"), "")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.JSONEq(t, `{"success":false,"message":"Server error during verification."}`, body)
}

func TestVerifyAuthPrecedesLedgerAccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	l := mocks.NewMockLedger(ctrl)
	app := newCredentialApp(NewService(l, logging.Discard()))

	status, _ := doRequest(t, app, fiber.MethodGet, "/verify/"+learnerHex, "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = doRequest(t, app, fiber.MethodGet, "/verify/"+learnerHex, "Bearer forged", "")
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestVerifyRejectsMalformedAddress(t *testing.T) {
	ctrl := gomock.NewController(t)
	app := newCredentialApp(NewService(mocks.NewMockLedger(ctrl), logging.Discard()))

	status, body := doRequest(t, app, fiber.MethodGet, "/verify/0x123", bearer(t, "employer"), "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, MsgInvalidAddress)
}

func TestIssueThenVerify(t *testing.T) {
	mem := ledger.NewInMemory(issuer)
	app := newCredentialApp(NewService(mem, logging.Discard(), WithWriter(mem)))

	status, body := doRequest(t, app, fiber.MethodPost, "/credentials", bearer(t, "issuer"),
		`{"address":"`+learnerHex+`","certHash":"`+strings.ToUpper(hashA)+`"}`)
	require.Equal(t, fiber.StatusAccepted, status, body)
	var issued map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &issued))
	assert.Equal(t, true, issued["success"])
	assert.NotEmpty(t, issued["txHash"])
	assert.Equal(t, hashA, issued["certHash"])

	status, body = doRequest(t, app, fiber.MethodGet, "/verify/"+learnerHex, bearer(t, "employer"), "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, hashA)
}

func TestIssueRequiresIssuerAndWriter(t *testing.T) {
	mem := ledger.NewInMemory(issuer)
	payload := `{"address":"` + learnerHex + `","certHash":"` + hashA + `"}`

	app := newCredentialApp(NewService(mem, logging.Discard(), WithWriter(mem)))
	for _, role := range []string{"learner", "employer"} {
		status, _ := doRequest(t, app, fiber.MethodPost, "/credentials", bearer(t, role), payload)
		assert.Equal(t, fiber.StatusForbidden, status, role)
	}

	readOnly := newCredentialApp(NewService(mem, logging.Discard()))
	status, body := doRequest(t, readOnly, fiber.MethodPost, "/credentials", bearer(t, "issuer"), payload)
	assert.Equal(t, fiber.StatusNotImplemented, status)
	assert.Contains(t, body, MsgIssueDisabled)

	status, _ = doRequest(t, app, fiber.MethodPost, "/credentials", bearer(t, "issuer"), `{"address":"`+learnerHex+`"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}
