package signer

import (
	"context"
	"encoding/json"
	"time"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/skip2/go-qrcode"

	"wallet-txcore/pkg/errno"
	"wallet-txcore/pkg/wallet/types"
)

const qrImageSize = 320

// QRBackend publishes the payload as an envelope for an air-gapped signer
// and waits for the signature to be scanned back through Dispatcher.Scan.
type QRBackend struct {
	timeout time.Duration
}

func NewQRBackend(timeout time.Duration) *QRBackend {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &QRBackend{timeout: timeout}
}

func (b *QRBackend) Sign(ctx context.Context, s *Session, req Request) (Result, error) {
	payload := req.Payload
	var signer ethtypes.Signer
	if req.EVMTx != nil {
		signer = ethtypes.LatestSignerForChainID(req.EVMChainID)
		payload = signer.Hash(req.EVMTx).Bytes()
	}
	env := types.NewSigningEnvelope(s.ID, req.Chain, req.Address, payload)
	s.setEnvelope(env)

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case sc := <-s.scans:
		if sc.digest != env.Digest {
			return Result{}, errno.NewTxError(errno.KindUnableToSign, types.ErrDigestMismatch.Error())
		}
		if signer == nil {
			return Result{Signature: sc.signature}, nil
		}
		signed, err := req.EVMTx.WithSignature(signer, sc.signature)
		if err != nil {
			return Result{}, errno.NewTxError(errno.KindUnableToSign, err.Error())
		}
		return encodeSigned(signed)
	case <-s.Done():
		return Result{}, errno.NewTxError(errno.KindUserRejectRequest, "")
	case <-ctx.Done():
		return Result{}, errno.NewTxError(errno.KindUserRejectRequest, "")
	case <-timer.C:
		return Result{}, errno.NewTxError(errno.KindUserRejectRequest, "Signing request timed out")
	}
}

// Render encodes the session envelope as a PNG QR code.
func Render(s *Session) ([]byte, error) {
	q, err := envelopeCode(s)
	if err != nil {
		return nil, err
	}
	return q.PNG(qrImageSize)
}

// RenderText draws the envelope QR code with block characters for terminals.
func RenderText(s *Session) (string, error) {
	q, err := envelopeCode(s)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(false), nil
}

func envelopeCode(s *Session) (*qrcode.QRCode, error) {
	env, ok := s.Envelope()
	if !ok {
		return nil, errno.TxErrorf(errno.KindInvalidParams, "Session %s has no payload to display", s.ID)
	}
	content, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return qrcode.New(string(content), qrcode.Medium)
}
