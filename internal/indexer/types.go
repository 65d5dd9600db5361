package indexer

// Transfer is one entry of an account's indexed transfer history.
type Transfer struct {
	TxID         string `json:"txid"`
	Sender       string `json:"sender"`
	Receiver     string `json:"receiver"`
	Amount       string `json:"amount"`
	Token        string `json:"token"`
	Title        string `json:"title"`
	Image        string `json:"image"`
	Status       string `json:"status"`
	Error        bool   `json:"error"`
	Time         int64  `json:"time"`
	Type         int    `json:"type"`
	TransferType int    `json:"transferType"`
	// Indexed marks items that came from the indexer rather than the local
	// pending ledger.
	Indexed bool `json:"indexed"`
}

type TransferPage struct {
	Transactions []Transfer `json:"transactions"`
	Total        int        `json:"total"`
}

func (p *TransferPage) clone() *TransferPage {
	out := &TransferPage{Total: p.Total, Transactions: make([]Transfer, len(p.Transactions))}
	copy(out.Transactions, p.Transactions)
	return out
}
