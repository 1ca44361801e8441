package voting

import (
	votingdomain "giftcircle/internal/domain/voting"
	commonhandler "giftcircle/internal/transport/httpserver/handler/common"
	"giftcircle/pkg/logger"
)

type Handlers struct {
	Voting  *votingdomain.Service
	metrics commonhandler.Observer
	log     logger.Logger
}

func New(voting *votingdomain.Service, metrics commonhandler.Observer, log logger.Logger) *Handlers {
	return &Handlers{
		Voting:  voting,
		metrics: metrics,
		log:     log,
	}
}
