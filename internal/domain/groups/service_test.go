package groups

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"giftcircle/internal/domain/domainerr"
	"giftcircle/internal/domain/parties"
	"giftcircle/internal/domain/voting"
	"giftcircle/internal/repository/inmemory"
	"giftcircle/internal/store"
)

type fixture struct {
	groups  *Service
	parties *parties.Service
	voting  *voting.Service
	store   *inmemory.Store
}

func newFixture(opts ...inmemory.Option) *fixture {
	st := inmemory.NewWithSchema(opts...)
	return &fixture{
		groups:  NewService(st),
		parties: parties.NewService(st),
		voting:  voting.NewService(st),
		store:   st,
	}
}

func (f *fixture) group(t *testing.T) *CreateGroupResult {
	t.Helper()
	result, err := f.groups.CreateGroup(context.Background(), CreateGroupInput{
		Name:              "4ºB",
		Type:              TypeClass,
		CreatorFamilyName: "Garcia",
	})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	return result
}

func TestCreateGroupWithCreatorFamily(t *testing.T) {
	f := newFixture()
	result := f.group(t)

	if result.Group.CreatorFamilyID == nil || *result.Group.CreatorFamilyID != result.Family.ID {
		t.Fatalf("group must reference its creator family")
	}
	if !result.Family.IsCreator || result.Family.UserID != nil {
		t.Fatalf("unexpected creator family: %+v", result.Family)
	}
	if len(result.Group.InviteCode) != 8 {
		t.Fatalf("expected 8 char invite code, got %q", result.Group.InviteCode)
	}
	if len(f.store.Rows(store.TableFamilies)) != 1 {
		t.Fatalf("expected one family stored")
	}
}

func TestCreateGroupValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.groups.CreateGroup(ctx, CreateGroupInput{Name: "", CreatorFamilyName: "Garcia"}); domainerr.KindOf(err) != domainerr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.groups.CreateGroup(ctx, CreateGroupInput{Name: "4ºB"}); domainerr.KindOf(err) != domainerr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.groups.CreateGroup(ctx, CreateGroupInput{Name: "4ºB", CreatorFamilyName: "Garcia", Type: "school"}); !errors.Is(err, ErrInvalidGroupType) {
		t.Fatalf("expected ErrInvalidGroupType, got %v", err)
	}

	result, err := f.groups.CreateGroup(ctx, CreateGroupInput{Name: "4ºB", CreatorFamilyName: "Garcia"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.Group.Type != TypeClass {
		t.Fatalf("expected default type class, got %s", result.Group.Type)
	}
}

func TestInviteCodeCollisionLeavesNothingBehind(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.groups.inviteCode = func() (string, error) { return "SAMECODE", nil }

	if _, err := f.groups.CreateGroup(ctx, CreateGroupInput{Name: "A", CreatorFamilyName: "Garcia"}); err != nil {
		t.Fatalf("first group: %v", err)
	}
	_, err := f.groups.CreateGroup(ctx, CreateGroupInput{Name: "B", CreatorFamilyName: "Lopez"})
	if !errors.Is(err, ErrInviteCodeTaken) {
		t.Fatalf("expected ErrInviteCodeTaken, got %v", err)
	}
	if len(f.store.Rows(store.TableGroups)) != 1 || len(f.store.Rows(store.TableFamilies)) != 1 {
		t.Fatalf("failed create must not leave rows behind")
	}
}

func TestJoinGroupByInviteCode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created := f.group(t)

	family, err := f.groups.JoinGroup(ctx, " "+strings.ToLower(created.Group.InviteCode)+" ", "Lopez", nil)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if family.GroupID != created.Group.ID || family.IsCreator {
		t.Fatalf("unexpected family: %+v", family)
	}
	if _, err := f.groups.JoinGroup(ctx, "NOPE", "Perez", nil); !errors.Is(err, ErrInviteCodeNotFound) {
		t.Fatalf("expected ErrInviteCodeNotFound, got %v", err)
	}

	families, err := f.groups.ListFamilies(ctx, created.Group.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(families) != 2 {
		t.Fatalf("expected 2 families, got %d", len(families))
	}
}

func TestListGroupsForUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user := "user-1"

	mine, err := f.groups.CreateGroup(ctx, CreateGroupInput{Name: "Mine", CreatorFamilyName: "Garcia", UserID: &user})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.group(t)

	groups, err := f.groups.ListGroupsForUser(ctx, user)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != mine.Group.ID {
		t.Fatalf("unexpected groups: %+v", groups)
	}

	none, err := f.groups.ListGroupsForUser(ctx, "stranger")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no groups, got %v %v", none, err)
	}
}

func TestUpdateGroup(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created := f.group(t)

	name := "5ºB"
	description := "  next year  "
	friends := TypeFriends
	updated, err := f.groups.UpdateGroup(ctx, created.Group.ID, UpdateGroupInput{Name: &name, Description: &description, Type: &friends})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "5ºB" || updated.Type != TypeFriends || updated.Description == nil || *updated.Description != "next year" {
		t.Fatalf("unexpected group: %+v", updated)
	}

	if _, err := f.groups.UpdateGroup(ctx, "missing", UpdateGroupInput{Name: &name}); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestDeleteFamily(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created := f.group(t)

	if _, err := f.groups.DeleteFamily(ctx, created.Family.ID, nil); !errors.Is(err, ErrCreatorFamily) {
		t.Fatalf("expected ErrCreatorFamily, got %v", err)
	}

	lopez, err := f.groups.JoinGroup(ctx, created.Group.InviteCode, "Lopez", nil)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	birthday, err := f.groups.CreateBirthday(ctx, created.Group.ID, "Leo", time.Date(2016, 5, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("birthday: %v", err)
	}
	party, err := f.parties.CreateParty(ctx, parties.CreatePartyInput{
		GroupID:             created.Group.ID,
		EventDate:           time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		CoordinatorFamilyID: &lopez.ID,
		BirthdayIDs:         []string{birthday.ID},
	})
	if err != nil {
		t.Fatalf("party: %v", err)
	}

	report, err := f.groups.DeleteFamily(ctx, lopez.ID, nil)
	if err != nil {
		t.Fatalf("delete family: %v", err)
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("expected coordinator warning, got %v", report.Warnings)
	}
	got, err := f.parties.GetParty(ctx, party.ID)
	if err != nil {
		t.Fatalf("get party: %v", err)
	}
	if got.CoordinatorFamilyID != nil {
		t.Fatalf("expected coordinator cleared")
	}
}

func TestDeleteClaimedFamilyRequiresOwner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created := f.group(t)
	owner := "user-1"
	stranger := "user-2"

	family, err := f.groups.JoinGroup(ctx, created.Group.InviteCode, "Lopez", &owner)
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	if _, err := f.groups.DeleteFamily(ctx, family.ID, nil); !errors.Is(err, ErrNotFamilyOwner) {
		t.Fatalf("anonymous caller: expected ErrNotFamilyOwner, got %v", err)
	}
	if _, err := f.groups.DeleteFamily(ctx, family.ID, &stranger); !errors.Is(err, ErrNotFamilyOwner) {
		t.Fatalf("other user: expected ErrNotFamilyOwner, got %v", err)
	}
	if domainerr.KindOf(ErrNotFamilyOwner) != domainerr.KindUnauthorized {
		t.Fatalf("expected unauthorized kind")
	}
	if _, err := f.groups.GetFamily(ctx, family.ID); err != nil {
		t.Fatalf("family must survive rejected deletes: %v", err)
	}

	if _, err := f.groups.DeleteFamily(ctx, family.ID, &owner); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := f.groups.GetFamily(ctx, family.ID); !errors.Is(err, ErrFamilyNotFound) {
		t.Fatalf("expected family removed, got %v", err)
	}
}

func TestBirthdaysAndIdeas(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created := f.group(t)

	if _, err := f.groups.CreateBirthday(ctx, created.Group.ID, " ", time.Now()); domainerr.KindOf(err) != domainerr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	mia, err := f.groups.CreateBirthday(ctx, created.Group.ID, "Mia", time.Date(2016, 9, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("birthday: %v", err)
	}
	leo, err := f.groups.CreateBirthday(ctx, created.Group.ID, "Leo", time.Date(2016, 5, 2, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("birthday: %v", err)
	}
	birthdays, err := f.groups.ListBirthdays(ctx, created.Group.ID)
	if err != nil {
		t.Fatalf("list birthdays: %v", err)
	}
	if len(birthdays) != 2 || birthdays[0].ID != leo.ID {
		t.Fatalf("expected birthdays ordered by date, got %+v", birthdays)
	}

	price := 20.0
	idea, err := f.groups.CreateIdea(ctx, CreateIdeaInput{BirthdayID: leo.ID, Text: "Lego", Price: &price})
	if err != nil {
		t.Fatalf("idea: %v", err)
	}
	if _, err := f.groups.CreateIdea(ctx, CreateIdeaInput{BirthdayID: leo.ID, Text: "Books"}); err != nil {
		t.Fatalf("idea: %v", err)
	}
	if _, err := f.groups.CreateIdea(ctx, CreateIdeaInput{BirthdayID: "missing", Text: "Books"}); !errors.Is(err, ErrBirthdayNotFound) {
		t.Fatalf("expected ErrBirthdayNotFound, got %v", err)
	}
	if err := f.groups.DeleteIdea(ctx, idea.ID); err != nil {
		t.Fatalf("delete idea: %v", err)
	}
	if err := f.groups.DeleteIdea(ctx, idea.ID); !errors.Is(err, ErrIdeaNotFound) {
		t.Fatalf("expected ErrIdeaNotFound, got %v", err)
	}

	party, err := f.parties.CreateParty(ctx, parties.CreatePartyInput{
		GroupID:     created.Group.ID,
		EventDate:   time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		BirthdayIDs: []string{leo.ID, mia.ID},
	})
	if err != nil {
		t.Fatalf("party: %v", err)
	}

	report, err := f.groups.DeleteBirthday(ctx, leo.ID)
	if err != nil {
		t.Fatalf("delete birthday: %v", err)
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("expected celebrant warning, got %v", report.Warnings)
	}
	if len(f.store.Rows(store.TableIdeas)) != 0 {
		t.Fatalf("ideas must go with their birthday")
	}
	got, err := f.parties.GetParty(ctx, party.ID)
	if err != nil {
		t.Fatalf("party must outlive a removed celebrant: %v", err)
	}
	if len(got.BirthdayIDs) != 1 || got.BirthdayIDs[0] != mia.ID {
		t.Fatalf("unexpected celebrants: %v", got.BirthdayIDs)
	}
}

func TestDeleteLastCelebrantWarnsAboutParty(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created := f.group(t)

	leo, err := f.groups.CreateBirthday(ctx, created.Group.ID, "Leo", time.Date(2016, 5, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("birthday: %v", err)
	}
	party, err := f.parties.CreateParty(ctx, parties.CreatePartyInput{
		GroupID:     created.Group.ID,
		EventDate:   time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		BirthdayIDs: []string{leo.ID},
	})
	if err != nil {
		t.Fatalf("party: %v", err)
	}

	report, err := f.groups.DeleteBirthday(ctx, leo.ID)
	if err != nil {
		t.Fatalf("delete birthday: %v", err)
	}
	if len(report.Warnings) != 2 {
		t.Fatalf("expected celebrant and orphaned party warnings, got %v", report.Warnings)
	}
	if !strings.Contains(report.Warnings[1], party.ID) {
		t.Fatalf("expected warning to name party %s, got %q", party.ID, report.Warnings[1])
	}
}

func TestDeleteGroupCascades(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created := f.group(t)
	other := f.group(t)

	leo, err := f.groups.CreateBirthday(ctx, created.Group.ID, "Leo", time.Date(2016, 5, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("birthday: %v", err)
	}
	if _, err := f.groups.CreateIdea(ctx, CreateIdeaInput{BirthdayID: leo.ID, Text: "Lego"}); err != nil {
		t.Fatalf("idea: %v", err)
	}
	party, err := f.parties.CreateParty(ctx, parties.CreatePartyInput{
		GroupID:     created.Group.ID,
		EventDate:   time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		BirthdayIDs: []string{leo.ID},
	})
	if err != nil {
		t.Fatalf("party: %v", err)
	}
	bike, err := f.voting.CreateProposal(ctx, voting.CreateProposalInput{PartyID: party.ID, Name: "Bike", Items: []voting.ItemInput{{Name: "Bike"}}})
	if err != nil {
		t.Fatalf("proposal: %v", err)
	}
	if _, err := f.voting.Vote(ctx, bike.ID, "Ana"); err != nil {
		t.Fatalf("vote: %v", err)
	}
	gift, err := f.parties.CreateGift(ctx, parties.CreateGiftInput{PartyID: party.ID, ProposalID: &bike.ID})
	if err != nil {
		t.Fatalf("gift: %v", err)
	}
	if _, err := f.parties.JoinGift(ctx, gift.ID, "Garcia"); err != nil {
		t.Fatalf("join gift: %v", err)
	}

	warnings, err := f.groups.ValidateGroupDeletion(ctx, created.Group.ID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(warnings) == 0 {
		t.Fatalf("expected warnings for a group with an active gift")
	}

	report, err := f.groups.DeleteGroup(ctx, created.Group.ID)
	if err != nil {
		t.Fatalf("delete group: %v", err)
	}
	wantOrder := []string{
		store.TableParticipants, store.TableGifts, store.TableVotes, store.TableProposalItems, store.TableProposals,
		store.TablePartyBirthdays, store.TableParties, store.TableIdeas, store.TableBirthdays, store.TableFamilies, store.TableGroups,
	}
	if len(report.Steps) != len(wantOrder) {
		t.Fatalf("expected %d steps, got %+v", len(wantOrder), report.Steps)
	}
	for i, table := range wantOrder {
		if report.Steps[i].Table != table {
			t.Fatalf("step %d: expected %s, got %s", i, table, report.Steps[i].Table)
		}
	}

	for _, table := range []string{store.TableParticipants, store.TableGifts, store.TableVotes, store.TableProposals, store.TableParties, store.TableIdeas, store.TableBirthdays} {
		if rows := f.store.Rows(table); len(rows) != 0 {
			t.Fatalf("expected %s emptied, got %d rows", table, len(rows))
		}
	}
	if groups := f.store.Rows(store.TableGroups); len(groups) != 1 || groups[0]["id"] != other.Group.ID {
		t.Fatalf("other group must survive, got %v", groups)
	}
	if families := f.store.Rows(store.TableFamilies); len(families) != 1 {
		t.Fatalf("other group's family must survive, got %v", families)
	}
}

func TestDeleteGroupVerificationFailure(t *testing.T) {
	f := newFixture(inmemory.WithDeleteGuard(func(table string, row store.Row) bool {
		return table == store.TableGroups
	}))
	created := f.group(t)

	_, err := f.groups.DeleteGroup(context.Background(), created.Group.ID)
	if domainerr.KindOf(err) != domainerr.KindDeleteVerificationFailed {
		t.Fatalf("expected DeleteVerificationFailed, got %v", err)
	}
	if len(f.store.Rows(store.TableFamilies)) != 1 {
		t.Fatalf("families must be restored when the group delete is refused")
	}
}

func TestBirthdayPartyScenario(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created := f.group(t)

	leo, err := f.groups.CreateBirthday(ctx, created.Group.ID, "Leo", time.Date(2016, 5, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("birthday: %v", err)
	}
	party, err := f.parties.CreateParty(ctx, parties.CreatePartyInput{
		GroupID:     created.Group.ID,
		EventDate:   time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		BirthdayIDs: []string{leo.ID},
	})
	if err != nil {
		t.Fatalf("party: %v", err)
	}

	price := 80.0
	bike, err := f.voting.CreateProposal(ctx, voting.CreateProposalInput{
		PartyID:    party.ID,
		Name:       "Bike",
		TotalPrice: 80,
		Items:      []voting.ItemInput{{Name: "Bike", Price: &price}},
	})
	if err != nil {
		t.Fatalf("proposal: %v", err)
	}
	for _, voter := range []string{"Ana", "Luis"} {
		if _, err := f.voting.Vote(ctx, bike.ID, voter); err != nil {
			t.Fatalf("vote %s: %v", voter, err)
		}
	}
	if _, err := f.voting.SelectProposal(ctx, bike.ID); err != nil {
		t.Fatalf("select: %v", err)
	}

	status, err := f.parties.Status(ctx, party.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != parties.StatusDecided {
		t.Fatalf("expected decided, got %s", status)
	}

	gift, err := f.parties.CreateGift(ctx, parties.CreateGiftInput{PartyID: party.ID, ProposalID: &bike.ID})
	if err != nil {
		t.Fatalf("gift: %v", err)
	}
	final := 85.0
	if _, err := f.parties.FinalizeGift(ctx, gift.ID, parties.FinalizeInput{FinalPrice: &final}); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	status, err = f.parties.Status(ctx, party.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != parties.StatusPurchased {
		t.Fatalf("expected purchased, got %s", status)
	}
}
