package types

type ConnectRequest struct {
	Mnemonic   string `json:"mnemonic"`
	ApiKey     string `json:"api_key" binding:"required"`
	Network    string `json:"network"`
	StorageDir string `json:"storage_dir"`
}

type CreateInvoiceRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type PayRequest struct {
	Invoice string `json:"invoice" binding:"required"`
	// TimeoutSeconds <= 0 means the server default
	TimeoutSeconds int `json:"timeout_seconds"`
}

type ClaimDepositRequest struct {
	Txid   string `json:"txid" binding:"required"`
	Vout   uint32 `json:"vout"`
	MaxFee int64  `json:"max_fee"`
}

type Status struct {
	Connected        bool   `json:"connected"`
	Monitoring       bool   `json:"monitoring"`
	LastKnownBalance int64  `json:"last_known_balance"`
	CheckInterval    string `json:"check_interval"`
	Version          string `json:"version,omitempty"`
}

type Payment struct {
	Id          string `json:"id"`
	Kind        string `json:"kind"`   // "send" or "receive"
	Status      string `json:"status"` // "pending", "failed", "succeeded"
	Amount      int64  `json:"amount"`
	Fee         int64  `json:"fee"`
	Timestamp   int64  `json:"timestamp"`
	Invoice     string `json:"invoice,omitempty"`
	Description string `json:"description,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
