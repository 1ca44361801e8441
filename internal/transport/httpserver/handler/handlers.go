package handler

import (
	claimshandler "giftcircle/internal/transport/httpserver/handler/claims"
	commonhandler "giftcircle/internal/transport/httpserver/handler/common"
	directgiftshandler "giftcircle/internal/transport/httpserver/handler/directgifts"
	groupshandler "giftcircle/internal/transport/httpserver/handler/groups"
	partieshandler "giftcircle/internal/transport/httpserver/handler/parties"
	realtimehandler "giftcircle/internal/transport/httpserver/handler/realtime"
	votinghandler "giftcircle/internal/transport/httpserver/handler/voting"
)

type Handlers struct {
	Common      *commonhandler.Handlers
	Groups      *groupshandler.Handlers
	Parties     *partieshandler.Handlers
	Voting      *votinghandler.Handlers
	DirectGifts *directgiftshandler.Handlers
	Claims      *claimshandler.Handlers
	Realtime    *realtimehandler.Handlers
}
