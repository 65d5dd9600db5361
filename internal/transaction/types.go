package transaction

import "encoding/json"

// Status markers stored on pending records. Chain status strings are stored
// verbatim, so other values may appear.
const (
	StatusPending = "PENDING"
	StatusSealed  = "SEALED"
	StatusFailed  = "FAILED"
	StatusExpired = "EXPIRED"
)

// StatusCodeFailed is the transaction result code the chain reports for a
// failed execution.
const StatusCodeFailed = 1

const partitionPrefix = "pending_tx:"

// PendingTransaction is a locally submitted transaction that has not yet
// been confirmed by the indexer.
type PendingTransaction struct {
	CadenceTxID string   `json:"cadenceTxId"`
	EVMTxIDs    []string `json:"evmTxIds"`
	Sender      string   `json:"sender"`
	Image       string   `json:"image"`
	Title       string   `json:"title"`
	Status      string   `json:"status"`
	Error       bool     `json:"error"`
}

func (p *PendingTransaction) clone() PendingTransaction {
	out := *p
	out.EVMTxIDs = append([]string{}, p.EVMTxIDs...)
	return out
}

func (p *PendingTransaction) hasID(id string) bool {
	if p.CadenceTxID == id {
		return true
	}
	for _, evmID := range p.EVMTxIDs {
		if evmID == id {
			return true
		}
	}
	return false
}

// Event is one event emitted by a transaction. Data is kept raw because its
// shape depends on the event type.
type Event struct {
	Type             string          `json:"type"`
	TransactionID    string          `json:"transactionId,omitempty"`
	TransactionIndex int             `json:"transactionIndex,omitempty"`
	EventIndex       int             `json:"eventIndex,omitempty"`
	Data             json.RawMessage `json:"data,omitempty"`
}

// TransactionStatus is the status payload delivered by the chain client.
type TransactionStatus struct {
	BlockID      string  `json:"blockId,omitempty"`
	Status       int     `json:"status"`
	StatusString string  `json:"statusString"`
	StatusCode   int     `json:"statusCode"`
	ErrorMessage string  `json:"errorMessage"`
	Events       []Event `json:"events"`
}
