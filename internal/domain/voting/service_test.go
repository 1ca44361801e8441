package voting

import (
	"context"
	"errors"
	"testing"
	"time"

	"giftcircle/internal/domain/domainerr"
	"giftcircle/internal/repository/inmemory"
	"giftcircle/internal/store"
)

func newTestService(t *testing.T, opts ...inmemory.Option) (*Service, *inmemory.Store) {
	t.Helper()
	st := inmemory.NewWithSchema(opts...)
	if err := st.Insert(context.Background(), store.TableParties, store.Row{"id": "party-1", "group_id": "group-1"}); err != nil {
		t.Fatalf("seed party: %v", err)
	}
	return NewService(st), st
}

func createProposal(t *testing.T, svc *Service, name string) *ProposalDetails {
	t.Helper()
	price := 80.0
	proposal, err := svc.CreateProposal(context.Background(), CreateProposalInput{
		PartyID:    "party-1",
		Name:       name,
		TotalPrice: 80,
		Items:      []ItemInput{{Name: name, Price: &price}},
	})
	if err != nil {
		t.Fatalf("create proposal %s: %v", name, err)
	}
	return proposal
}

func selectedIDs(t *testing.T, svc *Service) []string {
	t.Helper()
	proposals, err := svc.ListProposals(context.Background(), "party-1")
	if err != nil {
		t.Fatalf("list proposals: %v", err)
	}
	var ids []string
	for _, proposal := range proposals {
		if proposal.IsSelected {
			ids = append(ids, proposal.ID)
		}
	}
	return ids
}

func TestCreateProposalWithItems(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	link := "  https://shop.example/bike  "
	created, err := svc.CreateProposal(ctx, CreateProposalInput{
		PartyID:    "party-1",
		Name:       "  Bike  ",
		TotalPrice: 80,
		Items: []ItemInput{
			{Name: "Bike", Link: &link},
			{Name: "Helmet"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Name != "Bike" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}
	if len(st.Rows(store.TableProposalItems)) != 2 {
		t.Fatalf("expected 2 items stored")
	}

	got, err := svc.GetProposal(ctx, created.ID)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if len(got.Items) != 2 || got.Items[0].Name != "Bike" || got.Items[1].Position != 1 {
		t.Fatalf("unexpected items: %+v", got.Items)
	}
	if got.Items[0].Link == nil || *got.Items[0].Link != "https://shop.example/bike" {
		t.Fatalf("expected trimmed link, got %v", got.Items[0].Link)
	}
}

func TestCreateProposalValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []CreateProposalInput{
		{PartyID: "party-1", Name: " "},
		{PartyID: "party-1", Name: "Bike", TotalPrice: -1},
		{PartyID: "party-1", Name: "Bike", Items: []ItemInput{{Name: ""}}},
	}
	for _, input := range cases {
		if _, err := svc.CreateProposal(ctx, input); domainerr.KindOf(err) != domainerr.KindValidation {
			t.Fatalf("expected validation error for %+v, got %v", input, err)
		}
	}

	_, err := svc.CreateProposal(ctx, CreateProposalInput{PartyID: "missing", Name: "Bike"})
	if !errors.Is(err, ErrPartyNotFound) {
		t.Fatalf("expected ErrPartyNotFound, got %v", err)
	}
}

func TestCreateProposalRejectedAfterPurchase(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	purchased := time.Now().UTC()
	if err := st.Insert(ctx, store.TableGifts, store.Row{"id": "gift-1", "party_id": "party-1", "share_code": "code", "purchased_at": purchased}); err != nil {
		t.Fatalf("seed gift: %v", err)
	}

	_, err := svc.CreateProposal(ctx, CreateProposalInput{PartyID: "party-1", Name: "Bike"})
	if !errors.Is(err, ErrPartyPurchased) {
		t.Fatalf("expected ErrPartyPurchased, got %v", err)
	}
}

func TestVoteOncePerVoter(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	proposal := createProposal(t, svc, "Bike")

	if _, err := svc.Vote(ctx, proposal.ID, "Ana"); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	_, err := svc.Vote(ctx, proposal.ID, "  Ana ")
	if !errors.Is(err, ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}
	if !store.IsConstraint(err, store.ConstraintVoteVoter) {
		t.Fatalf("expected constraint cause to be preserved, got %v", err)
	}
	if domainerr.KindOf(err) != domainerr.KindConflict {
		t.Fatalf("expected conflict kind, got %v", domainerr.KindOf(err))
	}

	if _, err := svc.Vote(ctx, proposal.ID, "Luis"); err != nil {
		t.Fatalf("second voter: %v", err)
	}
	got, err := svc.GetProposal(ctx, proposal.ID)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if got.VoteCount != 2 {
		t.Fatalf("expected 2 votes, got %d", got.VoteCount)
	}
}

func TestVoteNameValidation(t *testing.T) {
	svc, _ := newTestService(t)
	proposal := createProposal(t, svc, "Bike")

	long := make([]rune, MaxVoterNameLength+1)
	for i := range long {
		long[i] = 'ñ'
	}
	for _, name := range []string{"", "   ", string(long)} {
		if _, err := svc.Vote(context.Background(), proposal.ID, name); domainerr.KindOf(err) != domainerr.KindValidation {
			t.Fatalf("expected validation error for %q, got %v", name, err)
		}
	}

	exact := string(long[:MaxVoterNameLength])
	if _, err := svc.Vote(context.Background(), proposal.ID, exact); err != nil {
		t.Fatalf("expected %d runes to be accepted: %v", MaxVoterNameLength, err)
	}
}

func TestVoteAfterDeadline(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	deadline := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	proposal, err := svc.CreateProposal(ctx, CreateProposalInput{PartyID: "party-1", Name: "Bike", VotingDeadline: &deadline})
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}

	svc.now = func() time.Time { return deadline.Add(-time.Minute) }
	if _, err := svc.Vote(ctx, proposal.ID, "Ana"); err != nil {
		t.Fatalf("vote before deadline: %v", err)
	}

	svc.now = func() time.Time { return deadline }
	if _, err := svc.Vote(ctx, proposal.ID, "Luis"); !errors.Is(err, ErrVotingClosed) {
		t.Fatalf("expected ErrVotingClosed at deadline, got %v", err)
	}
	if err := svc.RetractVote(ctx, proposal.ID, "Ana"); !errors.Is(err, ErrVotingClosed) {
		t.Fatalf("expected ErrVotingClosed on retract, got %v", err)
	}
}

func TestRetractVote(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	proposal := createProposal(t, svc, "Bike")

	if _, err := svc.Vote(ctx, proposal.ID, "Ana"); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := svc.RetractVote(ctx, proposal.ID, "Ana"); err != nil {
		t.Fatalf("retract: %v", err)
	}
	if err := svc.RetractVote(ctx, proposal.ID, "Ana"); !errors.Is(err, ErrVoteNotFound) {
		t.Fatalf("expected ErrVoteNotFound, got %v", err)
	}
	if _, err := svc.Vote(ctx, proposal.ID, "Ana"); err != nil {
		t.Fatalf("vote again after retract: %v", err)
	}
}

func TestSelectProposalIsExclusive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	bike := createProposal(t, svc, "Bike")
	lego := createProposal(t, svc, "Lego")

	if _, err := svc.SelectProposal(ctx, bike.ID); err != nil {
		t.Fatalf("select bike: %v", err)
	}
	if ids := selectedIDs(t, svc); len(ids) != 1 || ids[0] != bike.ID {
		t.Fatalf("expected only bike selected, got %v", ids)
	}

	selected, err := svc.SelectProposal(ctx, lego.ID)
	if err != nil {
		t.Fatalf("select lego: %v", err)
	}
	if !selected.IsSelected || selected.PartyID != "party-1" {
		t.Fatalf("unexpected selected proposal: %+v", selected)
	}
	if ids := selectedIDs(t, svc); len(ids) != 1 || ids[0] != lego.ID {
		t.Fatalf("expected only lego selected, got %v", ids)
	}
}

func TestSelectProposalRepairsMultipleSelections(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	bike := createProposal(t, svc, "Bike")
	lego := createProposal(t, svc, "Lego")
	book := createProposal(t, svc, "Book")

	if _, err := st.Update(ctx, store.TableProposals, store.Where{"id": []string{bike.ID, lego.ID, book.ID}}, map[string]any{"is_selected": true}); err != nil {
		t.Fatalf("force selections: %v", err)
	}

	if _, err := svc.SelectProposal(ctx, book.ID); err != nil {
		t.Fatalf("select: %v", err)
	}
	if ids := selectedIDs(t, svc); len(ids) != 1 || ids[0] != book.ID {
		t.Fatalf("expected only book selected, got %v", ids)
	}
}

// failingDeselect rejects updates that clear is_selected while fail is set.
type failingDeselect struct {
	store.Store
	fail bool
}

var errDeselect = errors.New("connection reset")

func (s *failingDeselect) Update(ctx context.Context, table string, where store.Where, patch map[string]any) (int64, error) {
	if value, ok := patch["is_selected"]; ok && value == false && table == store.TableProposals && s.fail {
		return 0, errDeselect
	}
	return s.Store.Update(ctx, table, where, patch)
}

func TestSelectProposalIncompleteThenRetried(t *testing.T) {
	_, st := newTestService(t)
	flaky := &failingDeselect{Store: st}
	svc := NewService(flaky)
	ctx := context.Background()

	a := createProposal(t, svc, "a")
	b := createProposal(t, svc, "b")
	if _, err := svc.SelectProposal(ctx, a.ID); err != nil {
		t.Fatalf("select a: %v", err)
	}

	flaky.fail = true
	_, err := svc.SelectProposal(ctx, b.ID)
	if !errors.Is(err, ErrSelectionIncomplete) {
		t.Fatalf("expected ErrSelectionIncomplete, got %v", err)
	}
	if !errors.Is(err, errDeselect) {
		t.Fatalf("expected the cause to be wrapped, got %v", err)
	}
	if domainerr.KindOf(err) != domainerr.KindConflict {
		t.Fatalf("expected conflict kind, got %v", domainerr.KindOf(err))
	}
	if got := selectedIDs(t, svc); len(got) != 2 {
		t.Fatalf("expected both proposals selected after the partial failure, got %v", got)
	}

	flaky.fail = false
	if _, err := svc.SelectProposal(ctx, b.ID); err != nil {
		t.Fatalf("retry select b: %v", err)
	}
	if got := selectedIDs(t, svc); len(got) != 1 || got[0] != b.ID {
		t.Fatalf("expected only %s selected after retry, got %v", b.ID, got)
	}
}

func TestSelectProposalLeavesOtherPartiesAlone(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	if err := st.Insert(ctx, store.TableParties, store.Row{"id": "party-2", "group_id": "group-1"}); err != nil {
		t.Fatalf("seed party: %v", err)
	}
	other, err := svc.CreateProposal(ctx, CreateProposalInput{PartyID: "party-2", Name: "Kite"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.SelectProposal(ctx, other.ID); err != nil {
		t.Fatalf("select other: %v", err)
	}

	bike := createProposal(t, svc, "Bike")
	if _, err := svc.SelectProposal(ctx, bike.ID); err != nil {
		t.Fatalf("select bike: %v", err)
	}

	got, err := svc.GetProposal(ctx, other.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.IsSelected {
		t.Fatalf("selection in another party must not be cleared")
	}
}

func TestSelectProposalErrors(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SelectProposal(ctx, "missing"); !errors.Is(err, ErrProposalNotFound) {
		t.Fatalf("expected ErrProposalNotFound, got %v", err)
	}

	bike := createProposal(t, svc, "Bike")
	purchased := time.Now().UTC()
	if err := st.Insert(ctx, store.TableGifts, store.Row{"id": "gift-1", "party_id": "party-1", "share_code": "code", "proposal_id": bike.ID, "purchased_at": purchased}); err != nil {
		t.Fatalf("seed gift: %v", err)
	}
	if _, err := svc.SelectProposal(ctx, bike.ID); !errors.Is(err, ErrPartyPurchased) {
		t.Fatalf("expected ErrPartyPurchased, got %v", err)
	}
}

func TestDeleteProposal(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	bike := createProposal(t, svc, "Bike")
	if _, err := svc.Vote(ctx, bike.ID, "Ana"); err != nil {
		t.Fatalf("vote: %v", err)
	}

	report, err := svc.DeleteProposal(ctx, bike.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(report.Warnings) != 1 || report.Warnings[0] != "1 vote will be removed" {
		t.Fatalf("unexpected warnings: %v", report.Warnings)
	}
	if len(st.Rows(store.TableVotes)) != 0 || len(st.Rows(store.TableProposalItems)) != 0 || len(st.Rows(store.TableProposals)) != 0 {
		t.Fatalf("expected proposal and dependents removed")
	}
}

func TestDeleteProposalReferencedByGift(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	bike := createProposal(t, svc, "Bike")
	if err := st.Insert(ctx, store.TableGifts, store.Row{"id": "gift-1", "party_id": "party-1", "share_code": "code", "proposal_id": bike.ID}); err != nil {
		t.Fatalf("seed gift: %v", err)
	}

	if _, err := svc.DeleteProposal(ctx, bike.ID); !errors.Is(err, ErrProposalInUse) {
		t.Fatalf("expected ErrProposalInUse, got %v", err)
	}
}

func TestDeleteProposalVerificationFailure(t *testing.T) {
	svc, _ := newTestService(t, inmemory.WithDeleteGuard(func(table string, row store.Row) bool {
		return table == store.TableProposals
	}))
	bike := createProposal(t, svc, "Bike")

	_, err := svc.DeleteProposal(context.Background(), bike.ID)
	if domainerr.KindOf(err) != domainerr.KindDeleteVerificationFailed {
		t.Fatalf("expected delete verification failure, got %v", err)
	}
}
