package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type transferForm struct {
	Chain  string `validate:"required"`
	From   string `validate:"required,chain_address"`
	Amount string `validate:"omitempty,numeric"`
	Mode   string `validate:"omitempty,oneof=password ledger qr"`
}

func TestStruct(t *testing.T) {
	ok := transferForm{Chain: "polkadot", From: "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5", Amount: "10"}
	assert.NoError(t, Struct(ok))

	evm := transferForm{Chain: "moonbeam", From: "0x931715FEE2d06333043d11F658C8CE934aC61D0c"}
	assert.NoError(t, Struct(evm))

	bad := transferForm{From: "nope", Amount: "ten", Mode: "email"}
	err := Struct(bad)
	assert.Error(t, err)

	msg := GetErrorMsg(err)
	assert.Contains(t, msg, "Chain is required")
	assert.Contains(t, msg, "From is not a valid address")
	assert.Contains(t, msg, "Amount must be a number")
	assert.Contains(t, msg, "Mode must be one of [password ledger qr]")
}

func TestGetErrorMsgOther(t *testing.T) {
	assert.Equal(t, "Invalid params", GetErrorMsg(assert.AnError))
}
