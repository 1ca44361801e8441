package groups

import (
	groupsdomain "giftcircle/internal/domain/groups"
	commonhandler "giftcircle/internal/transport/httpserver/handler/common"
	"giftcircle/pkg/logger"
)

type Handlers struct {
	Groups  *groupsdomain.Service
	metrics commonhandler.Observer
	log     logger.Logger
}

func New(groups *groupsdomain.Service, metrics commonhandler.Observer, log logger.Logger) *Handlers {
	return &Handlers{
		Groups:  groups,
		metrics: metrics,
		log:     log,
	}
}
