package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"linkgate/internal/apperr"
	"linkgate/internal/logging"
	"linkgate/internal/service"
)

const qrSize = 256

type QRCodeController struct {
	linkService service.LinkService
	baseURL     string
}

func NewQRCodeController(linkService service.LinkService, baseURL string) *QRCodeController {
	return &QRCodeController{
		linkService: linkService,
		baseURL:     baseURL,
	}
}

// GenerateQRCode handles GET /api/qrcode/:shortCode
func (qc *QRCodeController) GenerateQRCode(c *gin.Context) {
	link, err := qc.linkService.Lookup(c.Request.Context(), c.Param("shortCode"))
	if err != nil {
		respondError(c, err)
		return
	}

	shortURL := qc.baseURL + "/" + link.ShortCode

	qr, err := qrcode.New(shortURL, qrcode.Medium)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.KindInternal, "failed to generate QR code", err))
		return
	}

	pngData, err := qr.PNG(qrSize)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.KindInternal, "failed to encode QR code", err))
		return
	}

	logging.Ctx(c.Request.Context()).Debug().Str("short_code", link.ShortCode).Msg("qr code generated")
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", pngData)
}
