package request

// TransferRequest 同链转账请求, value 为最小单位
type TransferRequest struct {
	From        string `json:"from" binding:"required"`
	To          string `json:"to" binding:"required"`
	Chain       string `json:"chain" binding:"required"`
	Asset       string `json:"asset" binding:"required"`
	Value       string `json:"value"`
	TransferAll bool   `json:"transfer_all"`
	Password    string `json:"password"`
	SkipFee     bool   `json:"skip_fee_validation"`
	// Balance 可选, 提供时做手续费可支付性校验
	Balance *BalanceRequest `json:"balance"`
}

// XcmTransferRequest 跨链转账请求
type XcmTransferRequest struct {
	From        string `json:"from" binding:"required"`
	To          string `json:"to" binding:"required"`
	OriginChain string `json:"origin_chain" binding:"required"`
	DestChain   string `json:"dest_chain" binding:"required"`
	DestParaID  uint32 `json:"dest_para_id"`
	Asset       string `json:"asset" binding:"required"`
	Value       string `json:"value" binding:"required"`
	WeightLimit uint64 `json:"weight_limit"`
	Password    string `json:"password"`
	SkipFee     bool   `json:"skip_fee_validation"`
	// DestAsset 目标链上的对应资产, 为空时按原生资产或同一资产处理
	DestAsset  string          `json:"dest_asset"`
	Snowbridge bool            `json:"snowbridge"`
	Balance    *BalanceRequest `json:"balance"`
}

// CallRequest 模块化链的原始调用
type CallRequest struct {
	Section string `json:"section" binding:"required"`
	Method  string `json:"method" binding:"required"`
	Args    []any  `json:"args"`
}

// EVMCallRequest 账户模型链的原始调用, data 为 0x 前缀十六进制
type EVMCallRequest struct {
	To    string `json:"to" binding:"required"`
	Value string `json:"value"`
	Data  string `json:"data"`
}

// BalanceRequest 调用方查询到的余额. receiver_free 与 sender_transferable
// 提供时做存在性押金校验
type BalanceRequest struct {
	Available          string              `json:"available" binding:"required"`
	NativeAmount       string              `json:"native_amount"`
	ReceiverFree       string              `json:"receiver_free"`
	SenderTransferable string              `json:"sender_transferable"`
	Account            *AccountInfoRequest `json:"account"`
}

// AccountInfoRequest 账户引用计数
type AccountInfoRequest struct {
	Consumers   uint32 `json:"consumers"`
	Providers   uint32 `json:"providers"`
	Sufficients uint32 `json:"sufficients"`
}

// TransactionRequest 通用交易请求, call 与 evm 二选一
type TransactionRequest struct {
	Address     string          `json:"address" binding:"required"`
	Chain       string          `json:"chain" binding:"required"`
	Type        string          `json:"type" binding:"required"`
	Asset       string          `json:"asset"`
	Call        *CallRequest    `json:"call"`
	EVM         *EVMCallRequest `json:"evm"`
	TransferAll bool            `json:"transfer_all"`
	SkipFee     bool            `json:"skip_fee_validation"`
	URL         string          `json:"url"`
	External    bool            `json:"external"`
	Password    string          `json:"password"`
	Balance     *BalanceRequest `json:"balance"`
}

// ScanRequest 回传 QR 签名
type ScanRequest struct {
	Signature string `json:"signature" binding:"required"`
	Digest    string `json:"digest" binding:"required"`
}

// HistoryQuery 历史记录查询
type HistoryQuery struct {
	Chain   string `form:"chain" binding:"required"`
	Address string `form:"address" binding:"required"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=500"`
}
