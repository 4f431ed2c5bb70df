package http

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type ClaimRequest struct {
	WalletAddress string `json:"walletAddress,omitempty"`
	VisitorID     string `json:"visitorId"`
}

type ClaimResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId"`
	Amount        string `json:"amount"`
	TransferID    string `json:"transferId,omitempty"`
}
