package httpserver

import (
	"net/http"
	"time"

	"giftcircle/internal/config"
	"giftcircle/internal/transport/httpserver/handler"
	authmw "giftcircle/internal/transport/httpserver/middleware"
	"giftcircle/pkg/logger"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const defaultRequestTimeout = 30 * time.Second

func NewRouter(cfg config.Config, handlers *handler.Handlers, metrics http.Handler, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(authmw.RequestLogger(log))
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(authmw.NewCORS(cfg.CORS.AllowedOrigins))

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	auth := authmw.NewSupabaseAuth(cfg.Supabase, log)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Common.Health)

		// Websocket connections outlive the request timeout below.
		r.With(auth.Optional).Get("/realtime", handlers.Realtime.Subscribe)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(requestTimeout(cfg.HTTP.RequestTimeout)))

			r.Group(func(r chi.Router) {
				r.Use(auth.Middleware)

				r.Get("/auth/me", handlers.Common.AuthMe)
				r.Get("/me/groups", handlers.Groups.ListMyGroups)
				r.Get("/me/direct-gifts", handlers.DirectGifts.ListMine)
				r.Post("/claims", handlers.Claims.Link)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.Optional)

				r.Post("/groups", handlers.Groups.CreateGroup)
				r.Post("/groups/join", handlers.Groups.JoinGroup)
				r.Get("/groups/invite/{code}", handlers.Groups.GetGroupByInviteCode)
				r.Get("/groups/{group_id}", handlers.Groups.GetGroup)
				r.Patch("/groups/{group_id}", handlers.Groups.UpdateGroup)
				r.Get("/groups/{group_id}/deletion-check", handlers.Groups.ValidateGroupDeletion)
				r.Delete("/groups/{group_id}", handlers.Groups.DeleteGroup)
				r.Get("/groups/{group_id}/families", handlers.Groups.ListFamilies)

				r.Get("/families/{family_id}", handlers.Groups.GetFamily)
				r.Delete("/families/{family_id}", handlers.Groups.DeleteFamily)

				r.Get("/groups/{group_id}/birthdays", handlers.Groups.ListBirthdays)
				r.Post("/groups/{group_id}/birthdays", handlers.Groups.CreateBirthday)
				r.Get("/birthdays/{birthday_id}", handlers.Groups.GetBirthday)
				r.Delete("/birthdays/{birthday_id}", handlers.Groups.DeleteBirthday)
				r.Get("/birthdays/{birthday_id}/ideas", handlers.Groups.ListIdeas)
				r.Post("/birthdays/{birthday_id}/ideas", handlers.Groups.CreateIdea)
				r.Delete("/ideas/{idea_id}", handlers.Groups.DeleteIdea)

				r.Get("/groups/{group_id}/parties", handlers.Parties.ListParties)
				r.Post("/groups/{group_id}/parties", handlers.Parties.CreateParty)
				r.Get("/parties/{party_id}", handlers.Parties.GetParty)
				r.Patch("/parties/{party_id}", handlers.Parties.UpdateParty)
				r.Get("/parties/{party_id}/status", handlers.Parties.GetPartyStatus)
				r.Get("/parties/{party_id}/deletion-check", handlers.Parties.ValidatePartyDeletion)
				r.Delete("/parties/{party_id}", handlers.Parties.DeleteParty)

				r.Get("/parties/{party_id}/proposals", handlers.Voting.ListProposals)
				r.Post("/parties/{party_id}/proposals", handlers.Voting.CreateProposal)
				r.Get("/proposals/{proposal_id}", handlers.Voting.GetProposal)
				r.Post("/proposals/{proposal_id}/select", handlers.Voting.SelectProposal)
				r.Get("/proposals/{proposal_id}/deletion-check", handlers.Voting.ValidateProposalDeletion)
				r.Delete("/proposals/{proposal_id}", handlers.Voting.DeleteProposal)
				r.Get("/proposals/{proposal_id}/votes", handlers.Voting.ListVotes)
				r.Post("/proposals/{proposal_id}/votes", handlers.Voting.Vote)
				r.Delete("/proposals/{proposal_id}/votes", handlers.Voting.RetractVote)

				r.Post("/parties/{party_id}/gift", handlers.Parties.CreateGift)
				r.Get("/gifts/share/{code}", handlers.Parties.GetGiftByShareCode)
				r.Get("/gifts/{gift_id}", handlers.Parties.GetGift)
				r.Delete("/gifts/{gift_id}", handlers.Parties.DeleteGift)
				r.Post("/gifts/{gift_id}/close", handlers.Parties.CloseParticipation)
				r.Post("/gifts/{gift_id}/reopen", handlers.Parties.ReopenParticipation)
				r.Post("/gifts/{gift_id}/finalize", handlers.Parties.FinalizeGift)
				r.Post("/gifts/{gift_id}/receipt", handlers.Parties.UploadReceipt)
				r.Get("/gifts/{gift_id}/participants", handlers.Parties.ListParticipants)
				r.Post("/gifts/{gift_id}/participants", handlers.Parties.JoinGift)
				r.Delete("/participants/{participant_id}", handlers.Parties.LeaveGift)

				r.Post("/direct-gifts", handlers.DirectGifts.Create)
				r.Get("/direct-gifts/share/{code}", handlers.DirectGifts.GetByShareCode)
				r.Get("/direct-gifts/{direct_gift_id}", handlers.DirectGifts.Get)
				r.Post("/direct-gifts/{direct_gift_id}/cancel", handlers.DirectGifts.Cancel)
				r.Post("/direct-gifts/{direct_gift_id}/purchase", handlers.DirectGifts.MarkPurchased)
			})
		})
	})

	return r
}

func requestTimeout(configured time.Duration) time.Duration {
	if configured <= 0 {
		return defaultRequestTimeout
	}
	return configured
}
