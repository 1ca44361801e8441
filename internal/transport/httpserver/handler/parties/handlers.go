package parties

import (
	partiesdomain "giftcircle/internal/domain/parties"
	"giftcircle/internal/receipts"
	commonhandler "giftcircle/internal/transport/httpserver/handler/common"
	"giftcircle/pkg/logger"
)

type Handlers struct {
	Parties  *partiesdomain.Service
	Receipts *receipts.Service
	metrics  commonhandler.Observer
	log      logger.Logger
}

// New wires the party handlers. receiptsService may be nil when no receipt
// storage is configured.
func New(parties *partiesdomain.Service, receiptsService *receipts.Service, metrics commonhandler.Observer, log logger.Logger) *Handlers {
	return &Handlers{
		Parties:  parties,
		Receipts: receiptsService,
		metrics:  metrics,
		log:      log,
	}
}
