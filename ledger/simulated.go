package ledger

import (
	"database/sql"
	"math/big"

	logger "github.com/sirupsen/logrus"

	"github.com/zecbridge/bridge-go/agreement"
	"github.com/zecbridge/bridge-go/common"
)

func RandCheckpoint(zecBlock, ethBlock uint64) *agreement.Checkpoint {
	return &agreement.Checkpoint{
		ZecRoot:  common.RandBytes32(),
		ZecBlock: zecBlock,
		EthRoot:  common.RandBytes32(),
		EthBlock: ethBlock,
	}
}

func RandWithdrawal() *WithdrawalRequest {
	amount := big.NewInt(100)
	destination := common.RandBytes(20)

	return &WithdrawalRequest{
		Requester:   common.RandEthAddress(),
		Amount:      amount,
		Destination: destination,
		Key:         ComputeWithdrawalKey(amount, destination),
	}
}

func getMemoryDB() *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		logger.Fatal(err)
	}
	return db
}
