package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-learn/core/certificate"
)

type CertificateResponse struct {
	Certificate certificate.Certificate `json:"certificate"`
	Token       string                  `json:"token"`
}

type certificateApi struct {
	signer *certificate.Signer
}

func registerCertificateAPI(g *echo.Group, deps Deps) {
	api := certificateApi{signer: deps.Signer}

	// un-authed endpoints: anyone holding a token may verify it
	g.GET("/certificates/verify", api.verify)
}

func (api *certificateApi) verify(ctx echo.Context) error {
	cert, err := api.signer.Verify(ctx.QueryParam("token"))
	if err != nil {
		return errors.Wrap(err, "verifying certificate")
	}
	return ctx.JSON(http.StatusOK, cert)
}
