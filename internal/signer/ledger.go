package signer

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"wallet-txcore/pkg/errno"
	"wallet-txcore/pkg/logger"
)

// Device is a hardware signer transport. SignTransaction receives the
// extrinsic payload or the EVM signing hash; SignMessage a raw message.
type Device interface {
	Connected() bool
	Refresh(ctx context.Context) error
	SignTransaction(ctx context.Context, payload []byte, accountIndex, addressOffset uint32, address string) ([]byte, error)
	SignMessage(ctx context.Context, payload []byte, accountIndex, addressOffset uint32, address string) ([]byte, error)
}

// LedgerBackend signs on a hardware device. The legacy and generic device
// apps are separate Device values registered under their own modes.
type LedgerBackend struct {
	device  Device
	timeout time.Duration
	log     *zap.Logger
}

func NewLedgerBackend(device Device, timeout time.Duration) *LedgerBackend {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &LedgerBackend{device: device, timeout: timeout, log: logger.Named("signer.ledger")}
}

func (b *LedgerBackend) Sign(ctx context.Context, s *Session, req Request) (Result, error) {
	if !b.device.Connected() {
		// 设备未连接：发起重连后立即返回，不在这里等待
		go b.refresh()
		return Result{}, errno.NewTxError(errno.KindDeviceNotConnected, "")
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	ctx, stop := withSessionCancel(ctx, s)
	defer stop()

	if req.EVMTx != nil {
		signer := types.LatestSignerForChainID(req.EVMChainID)
		sig, err := b.device.SignTransaction(ctx, signer.Hash(req.EVMTx).Bytes(), req.AccountIndex, req.AddressOffset, req.Address)
		if err != nil {
			return Result{}, deviceError(err)
		}
		signed, err := req.EVMTx.WithSignature(signer, sig)
		if err != nil {
			return Result{}, errno.NewTxError(errno.KindUnableToSign, err.Error())
		}
		return encodeSigned(signed)
	}

	sign := b.device.SignTransaction
	if req.Message {
		sign = b.device.SignMessage
	}
	sig, err := sign(ctx, req.Payload, req.AccountIndex, req.AddressOffset, req.Address)
	if err != nil {
		return Result{}, deviceError(err)
	}
	return Result{Signature: sig}, nil
}

func (b *LedgerBackend) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := b.device.Refresh(ctx); err != nil {
		b.log.Warn("device refresh failed", zap.Error(err))
	}
}

func deviceError(err error) error {
	if errors.Is(err, ErrUserRejected) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errno.NewTxError(errno.KindUserRejectRequest, "")
	}
	return errno.NewTxError(errno.KindUnableToSign, err.Error())
}

// withSessionCancel derives a context that is also cancelled by Dispatcher.Cancel.
func withSessionCancel(ctx context.Context, s *Session) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-s.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
