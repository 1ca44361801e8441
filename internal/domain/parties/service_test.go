package parties

import (
	"context"
	"errors"
	"testing"
	"time"

	"giftcircle/internal/domain/domainerr"
	"giftcircle/internal/domain/voting"
	"giftcircle/internal/repository/inmemory"
	"giftcircle/internal/store"
)

type fixture struct {
	svc    *Service
	voting *voting.Service
	store  *inmemory.Store
}

func newFixture(t *testing.T, opts ...inmemory.Option) *fixture {
	t.Helper()
	ctx := context.Background()
	st := inmemory.NewWithSchema(opts...)

	seed := []struct {
		table string
		row   store.Row
	}{
		{store.TableGroups, store.Row{"id": "group-1", "name": "4ºB", "invite_code": "AAAA2222"}},
		{store.TableGroups, store.Row{"id": "group-2", "name": "Other", "invite_code": "BBBB3333"}},
		{store.TableFamilies, store.Row{"id": "family-1", "group_id": "group-1", "name": "Garcia", "is_creator": true}},
		{store.TableFamilies, store.Row{"id": "family-2", "group_id": "group-2", "name": "Lopez", "is_creator": true}},
		{store.TableBirthdays, store.Row{"id": "leo", "group_id": "group-1", "child_name": "Leo"}},
		{store.TableBirthdays, store.Row{"id": "mia", "group_id": "group-1", "child_name": "Mia"}},
		{store.TableBirthdays, store.Row{"id": "outsider", "group_id": "group-2", "child_name": "Max"}},
	}
	for _, item := range seed {
		if err := st.Insert(ctx, item.table, item.row); err != nil {
			t.Fatalf("seed %s: %v", item.table, err)
		}
	}

	svc := NewService(st)
	codes := 0
	svc.shareCode = func() (string, error) {
		codes++
		return "share-" + string(rune('a'+codes)), nil
	}
	return &fixture{svc: svc, voting: voting.NewService(st), store: st}
}

func (f *fixture) party(t *testing.T, birthdays ...string) *PartyDetails {
	t.Helper()
	if len(birthdays) == 0 {
		birthdays = []string{"leo"}
	}
	party, err := f.svc.CreateParty(context.Background(), CreatePartyInput{
		GroupID:     "group-1",
		EventDate:   time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC),
		BirthdayIDs: birthdays,
	})
	if err != nil {
		t.Fatalf("create party: %v", err)
	}
	return party
}

func TestComputeStatus(t *testing.T) {
	purchased := time.Now()
	cases := []struct {
		name     string
		snapshot Snapshot
		want     Status
	}{
		{"empty", Snapshot{}, StatusPending},
		{"proposals", Snapshot{Proposals: []voting.Proposal{{ID: "a"}, {ID: "b"}}}, StatusVoting},
		{"selected", Snapshot{Proposals: []voting.Proposal{{ID: "a"}, {ID: "b", IsSelected: true}}}, StatusDecided},
		{"multiple selected", Snapshot{Proposals: []voting.Proposal{{ID: "a", IsSelected: true}, {ID: "b", IsSelected: true}}}, StatusDecided},
		{"gift without proposals", Snapshot{Gift: &Gift{ID: "g"}}, StatusDecided},
		{"purchased", Snapshot{Proposals: []voting.Proposal{{ID: "a"}}, Gift: &Gift{ID: "g", PurchasedAt: &purchased}}, StatusPurchased},
	}
	for _, tc := range cases {
		if got := ComputeStatus(tc.snapshot); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestCreateParty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	coordinator := "family-1"

	party, err := f.svc.CreateParty(ctx, CreatePartyInput{
		GroupID:             "group-1",
		EventDate:           time.Date(2024, 5, 10, 18, 0, 0, 0, time.UTC),
		CoordinatorFamilyID: &coordinator,
		BirthdayIDs:         []string{"leo", "mia", "leo"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if party.Status != StatusPending {
		t.Fatalf("expected pending, got %s", party.Status)
	}
	if !party.EventDate.Equal(time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected date only, got %v", party.EventDate)
	}
	if len(f.store.Rows(store.TablePartyBirthdays)) != 2 {
		t.Fatalf("expected 2 celebrant links")
	}

	got, err := f.svc.GetParty(ctx, party.ID)
	if err != nil {
		t.Fatalf("get party: %v", err)
	}
	if len(got.BirthdayIDs) != 2 || got.CoordinatorFamilyID == nil || *got.CoordinatorFamilyID != "family-1" {
		t.Fatalf("unexpected party: %+v", got)
	}
}

func TestCreatePartyValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	foreign := "family-2"

	cases := []struct {
		name  string
		input CreatePartyInput
		want  error
	}{
		{"no celebrants", CreatePartyInput{GroupID: "group-1", EventDate: date}, ErrCelebrantRequired},
		{"no date", CreatePartyInput{GroupID: "group-1", BirthdayIDs: []string{"leo"}}, ErrInvalidEventDate},
		{"missing group", CreatePartyInput{GroupID: "nope", EventDate: date, BirthdayIDs: []string{"leo"}}, ErrGroupNotFound},
		{"missing birthday", CreatePartyInput{GroupID: "group-1", EventDate: date, BirthdayIDs: []string{"ghost"}}, ErrBirthdayNotFound},
		{"foreign birthday", CreatePartyInput{GroupID: "group-1", EventDate: date, BirthdayIDs: []string{"outsider"}}, ErrCelebrantOutsideGroup},
		{"foreign coordinator", CreatePartyInput{GroupID: "group-1", EventDate: date, BirthdayIDs: []string{"leo"}, CoordinatorFamilyID: &foreign}, ErrCoordinatorOutsideGroup},
	}
	for _, tc := range cases {
		if _, err := f.svc.CreateParty(ctx, tc.input); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if len(f.store.Rows(store.TableParties)) != 0 {
		t.Fatalf("no party should have been stored")
	}
}

func TestUpdateParty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	party := f.party(t)
	coordinator := "family-1"
	next := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	updated, err := f.svc.UpdateParty(ctx, party.ID, UpdatePartyInput{EventDate: &next, CoordinatorFamilyID: &coordinator})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.EventDate.Equal(next) || updated.CoordinatorFamilyID == nil {
		t.Fatalf("unexpected party: %+v", updated)
	}

	cleared, err := f.svc.UpdateParty(ctx, party.ID, UpdatePartyInput{ClearCoordinator: true})
	if err != nil {
		t.Fatalf("clear coordinator: %v", err)
	}
	if cleared.CoordinatorFamilyID != nil {
		t.Fatalf("expected coordinator cleared")
	}

	foreign := "family-2"
	if _, err := f.svc.UpdateParty(ctx, party.ID, UpdatePartyInput{CoordinatorFamilyID: &foreign}); !errors.Is(err, ErrCoordinatorOutsideGroup) {
		t.Fatalf("expected ErrCoordinatorOutsideGroup, got %v", err)
	}
}

func TestStatusFollowsLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	party := f.party(t)

	assertStatus := func(want Status) {
		t.Helper()
		got, err := f.svc.Status(ctx, party.ID)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}

	assertStatus(StatusPending)
	bike, err := f.voting.CreateProposal(ctx, voting.CreateProposalInput{PartyID: party.ID, Name: "Bike", TotalPrice: 80})
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	assertStatus(StatusVoting)
	if _, err := f.voting.SelectProposal(ctx, bike.ID); err != nil {
		t.Fatalf("select: %v", err)
	}
	assertStatus(StatusDecided)

	gift, err := f.svc.CreateGift(ctx, CreateGiftInput{PartyID: party.ID, ProposalID: &bike.ID})
	if err != nil {
		t.Fatalf("create gift: %v", err)
	}
	price := 85.0
	if _, err := f.svc.FinalizeGift(ctx, gift.ID, FinalizeInput{FinalPrice: &price}); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	assertStatus(StatusPurchased)
}

func TestCreateGift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	party := f.party(t)
	other := f.party(t, "mia")

	foreign, err := f.voting.CreateProposal(ctx, voting.CreateProposalInput{PartyID: other.ID, Name: "Kite"})
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	if _, err := f.svc.CreateGift(ctx, CreateGiftInput{PartyID: party.ID, ProposalID: &foreign.ID}); !errors.Is(err, ErrProposalOutsideParty) {
		t.Fatalf("expected ErrProposalOutsideParty, got %v", err)
	}

	gift, err := f.svc.CreateGift(ctx, CreateGiftInput{PartyID: party.ID})
	if err != nil {
		t.Fatalf("create gift: %v", err)
	}
	if !gift.ParticipationOpen || gift.State() != GiftOpen {
		t.Fatalf("expected open gift, got %+v", gift)
	}

	byCode, err := f.svc.GetGiftByShareCode(ctx, " "+gift.ShareCode+" ")
	if err != nil || byCode.ID != gift.ID {
		t.Fatalf("lookup by share code: %v", err)
	}

	_, err = f.svc.CreateGift(ctx, CreateGiftInput{PartyID: party.ID})
	if !errors.Is(err, ErrGiftExists) {
		t.Fatalf("expected ErrGiftExists, got %v", err)
	}
}

func TestShareCodeCollisionIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.party(t)
	second := f.party(t, "mia")
	f.svc.shareCode = func() (string, error) { return "same", nil }

	if _, err := f.svc.CreateGift(ctx, CreateGiftInput{PartyID: first.ID}); err != nil {
		t.Fatalf("create gift: %v", err)
	}
	_, err := f.svc.CreateGift(ctx, CreateGiftInput{PartyID: second.ID})
	if !errors.Is(err, ErrShareCodeTaken) || domainerr.KindOf(err) != domainerr.KindConflict {
		t.Fatalf("expected ErrShareCodeTaken, got %v", err)
	}
}

func TestFinalizeGift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	party := f.party(t)
	gift, err := f.svc.CreateGift(ctx, CreateGiftInput{PartyID: party.ID})
	if err != nil {
		t.Fatalf("create gift: %v", err)
	}

	if _, err := f.svc.FinalizeGift(ctx, gift.ID, FinalizeInput{}); !errors.Is(err, ErrFinalPriceRequired) {
		t.Fatalf("expected ErrFinalPriceRequired, got %v", err)
	}

	price := 85.0
	receipt := "https://cdn.example/receipt.jpg"
	comment := " thanks all "
	finalized, err := f.svc.FinalizeGift(ctx, gift.ID, FinalizeInput{FinalPrice: &price, ReceiptImageURL: &receipt, Comment: &comment})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if finalized.State() != GiftPurchased || finalized.ParticipationOpen {
		t.Fatalf("expected purchased and closed, got %+v", finalized)
	}
	if finalized.PurchasedAt == nil || finalized.ClosedAt == nil || !finalized.PurchasedAt.Equal(*finalized.ClosedAt) {
		t.Fatalf("expected purchased_at and closed_at set together")
	}
	if finalized.FinalPrice == nil || *finalized.FinalPrice != 85 {
		t.Fatalf("unexpected final price %v", finalized.FinalPrice)
	}
	if finalized.CoordinatorComment == nil || *finalized.CoordinatorComment != "thanks all" {
		t.Fatalf("unexpected comment %v", finalized.CoordinatorComment)
	}

	other := 90.0
	if _, err := f.svc.FinalizeGift(ctx, gift.ID, FinalizeInput{FinalPrice: &other}); !errors.Is(err, ErrGiftPurchased) {
		t.Fatalf("expected ErrGiftPurchased on second finalize, got %v", err)
	}
	again, _ := f.svc.GetGift(ctx, gift.ID)
	if *again.FinalPrice != 85 {
		t.Fatalf("second finalize must not change the price")
	}

	if _, err := f.svc.ReopenParticipation(ctx, gift.ID); !errors.Is(err, ErrGiftPurchased) {
		t.Fatalf("expected ErrGiftPurchased on reopen, got %v", err)
	}
	if _, err := f.svc.DeleteGift(ctx, gift.ID); !errors.Is(err, ErrGiftPurchased) {
		t.Fatalf("expected ErrGiftPurchased on delete, got %v", err)
	}
	if _, err := f.svc.FinalizeGift(ctx, "missing", FinalizeInput{FinalPrice: &price}); !errors.Is(err, ErrGiftNotFound) {
		t.Fatalf("expected ErrGiftNotFound, got %v", err)
	}
}

func TestParticipation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	party := f.party(t)
	gift, err := f.svc.CreateGift(ctx, CreateGiftInput{PartyID: party.ID})
	if err != nil {
		t.Fatalf("create gift: %v", err)
	}

	garcia, err := f.svc.JoinGift(ctx, gift.ID, " Garcia ")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := f.svc.JoinGift(ctx, gift.ID, "Garcia"); err != nil {
		t.Fatalf("duplicate family names are tolerated: %v", err)
	}

	if _, err := f.svc.CloseParticipation(ctx, gift.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := f.svc.JoinGift(ctx, gift.ID, "Lopez"); !errors.Is(err, ErrParticipationClosed) {
		t.Fatalf("expected ErrParticipationClosed, got %v", err)
	}
	if _, err := f.svc.ReopenParticipation(ctx, gift.ID); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := f.svc.JoinGift(ctx, gift.ID, "Lopez"); err != nil {
		t.Fatalf("join after reopen: %v", err)
	}

	if err := f.svc.LeaveGift(ctx, garcia.ID); err != nil {
		t.Fatalf("leave: %v", err)
	}
	participants, err := f.svc.ListParticipants(ctx, gift.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(participants))
	}

	price := 40.0
	if _, err := f.svc.FinalizeGift(ctx, gift.ID, FinalizeInput{FinalPrice: &price}); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := f.svc.LeaveGift(ctx, participants[0].ID); !errors.Is(err, ErrGiftPurchased) {
		t.Fatalf("expected ErrGiftPurchased on leave, got %v", err)
	}
	if _, err := f.svc.JoinGift(ctx, gift.ID, "Perez"); !errors.Is(err, ErrGiftPurchased) {
		t.Fatalf("expected ErrGiftPurchased on join, got %v", err)
	}
}

// finalizingStore runs finalize right after the first participant insert,
// as a concurrent coordinator would.
type finalizingStore struct {
	store.Store
	finalize func()
}

func (s *finalizingStore) Insert(ctx context.Context, table string, row any) error {
	if err := s.Store.Insert(ctx, table, row); err != nil {
		return err
	}
	if table == store.TableParticipants && s.finalize != nil {
		finalize := s.finalize
		s.finalize = nil
		finalize()
	}
	return nil
}

func TestJoinGiftLosesToConcurrentFinalize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	party := f.party(t)
	gift, err := f.svc.CreateGift(ctx, CreateGiftInput{PartyID: party.ID})
	if err != nil {
		t.Fatalf("create gift: %v", err)
	}

	racing := &finalizingStore{Store: f.store}
	joining := NewService(racing)
	racing.finalize = func() {
		price := 25.0
		if _, err := f.svc.FinalizeGift(ctx, gift.ID, FinalizeInput{FinalPrice: &price}); err != nil {
			t.Fatalf("finalize: %v", err)
		}
	}

	if _, err := joining.JoinGift(ctx, gift.ID, "Garcia"); !errors.Is(err, ErrGiftPurchased) {
		t.Fatalf("expected ErrGiftPurchased, got %v", err)
	}
	if rows := f.store.Rows(store.TableParticipants); len(rows) != 0 {
		t.Fatalf("purchased gift must not keep a late participant, got %v", rows)
	}
}

func TestDeletePartyCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	party := f.party(t, "leo", "mia")
	keep := f.party(t, "leo")

	bike, err := f.voting.CreateProposal(ctx, voting.CreateProposalInput{
		PartyID: party.ID, Name: "Bike", Items: []voting.ItemInput{{Name: "Bike"}},
	})
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	if _, err := f.voting.Vote(ctx, bike.ID, "Ana"); err != nil {
		t.Fatalf("vote: %v", err)
	}
	gift, err := f.svc.CreateGift(ctx, CreateGiftInput{PartyID: party.ID, ProposalID: &bike.ID})
	if err != nil {
		t.Fatalf("create gift: %v", err)
	}
	if _, err := f.svc.JoinGift(ctx, gift.ID, "Garcia"); err != nil {
		t.Fatalf("join: %v", err)
	}

	warnings, err := f.svc.ValidatePartyDeletion(ctx, party.ID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected participant and vote warnings, got %v", warnings)
	}

	report, err := f.svc.DeleteParty(ctx, party.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(report.Steps) != 7 {
		t.Fatalf("expected 7 steps, got %+v", report.Steps)
	}
	for _, table := range []string{store.TableParticipants, store.TableGifts, store.TableVotes, store.TableProposalItems, store.TableProposals} {
		if rows := f.store.Rows(table); len(rows) != 0 {
			t.Fatalf("expected %s emptied, got %d rows", table, len(rows))
		}
	}
	links := f.store.Rows(store.TablePartyBirthdays)
	if len(links) != 1 || links[0]["party_id"] != keep.ID {
		t.Fatalf("expected only the other party's link to remain, got %v", links)
	}
	if len(f.store.Rows(store.TableBirthdays)) != 3 {
		t.Fatalf("birthdays outlive their parties")
	}
}

func TestDeletePartyVerificationFailure(t *testing.T) {
	f := newFixture(t, inmemory.WithDeleteGuard(func(table string, row store.Row) bool {
		return table == store.TableParties
	}))
	party := f.party(t)

	_, err := f.svc.DeleteParty(context.Background(), party.ID)
	var verification *store.DeleteVerificationFailed
	if !errors.As(err, &verification) {
		t.Fatalf("expected DeleteVerificationFailed, got %v", err)
	}
	if verification.Table != store.TableParties {
		t.Fatalf("unexpected table %s", verification.Table)
	}
	if len(f.store.Rows(store.TableParties)) != 1 || len(f.store.Rows(store.TablePartyBirthdays)) != 1 {
		t.Fatalf("a failed plan must not leave partial deletes behind")
	}
}
