package ledger

import (
	"database/sql"
	"encoding/json"

	"github.com/zecbridge/bridge-go/agreement"
)

// audit record kinds
const (
	AuditCheckpointUpdated   = "checkpoint-updated"
	AuditWithdrawalRequested = "withdrawal-requested"
	AuditWithdrawalProcessed = "withdrawal-processed"
	AuditMintProcessed       = "mint-processed"
)

type CheckpointUpdatedEvent struct {
	Old *agreement.JSONCheckpoint `json:"old,omitempty"` // nil at genesis
	New *agreement.JSONCheckpoint `json:"new"`
}

type WithdrawalRequestedEvent struct {
	Id          uint64 `json:"id"`
	Requester   string `json:"requester"`
	Amount      string `json:"amount"`
	Destination string `json:"destination"`
	Key         string `json:"key"`
}

type WithdrawalProcessedEvent struct {
	Id          uint64 `json:"id"`
	Amount      string `json:"amount"`
	Destination string `json:"destination"`
	Key         string `json:"key"`
}

type MintProcessedEvent struct {
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
}

func (l *Ledger) appendAuditTx(tx *sql.Tx, kind string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return l.db.AppendAuditTx(tx, kind, payload)
}
