package handler

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"wallet-txcore/internal/handler/request"
	"wallet-txcore/internal/handler/response"
	"wallet-txcore/internal/signer"
	"wallet-txcore/pkg/errno"
)

// SigningHandler exposes pending signing sessions to the wallet UI.
type SigningHandler struct {
	signer *signer.Dispatcher
}

func NewSigningHandler(d *signer.Dispatcher) *SigningHandler {
	return &SigningHandler{signer: d}
}

// Sessions 待签名会话
// @Summary 列出签名会话
// @Tags Signing
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/signing/sessions [get]
func (h *SigningHandler) Sessions(c *gin.Context) {
	response.Success(c, h.signer.Sessions())
}

// QR 会话签名载荷的二维码 (PNG)
// @Summary 签名二维码
// @Tags Signing
// @Produce png
// @Param id path string true "Session ID"
// @Router /api/v1/signing/sessions/{id}/qr [get]
func (h *SigningHandler) QR(c *gin.Context) {
	s, ok := h.signer.Session(c.Param("id"))
	if !ok {
		response.Error(c, errno.ErrSessionNotFound)
		return
	}
	png, err := signer.Render(s)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// Scan 回传离线设备的签名
// @Summary 提交扫描签名
// @Tags Signing
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body request.ScanRequest true "Scanned signature"
// @Success 200 {object} response.Response
// @Router /api/v1/signing/sessions/{id}/scan [post]
func (h *SigningHandler) Scan(c *gin.Context) {
	var req request.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	sig, err := hexutil.Decode(req.Signature)
	if err != nil {
		response.Error(c, errno.ErrInvalidParams.WithMessage("Invalid signature: "+err.Error()))
		return
	}
	if err := h.signer.Scan(c.Param("id"), sig, req.Digest); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Cancel 用户拒绝签名
// @Summary 取消签名会话
// @Tags Signing
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Response
// @Router /api/v1/signing/sessions/{id}/cancel [post]
func (h *SigningHandler) Cancel(c *gin.Context) {
	if err := h.signer.Cancel(c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
