package groups

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"giftcircle/internal/domain/domainerr"
	"giftcircle/internal/domain/parties"
	"giftcircle/internal/domain/tokens"
	"giftcircle/internal/store"
	"github.com/google/uuid"
)

type Service struct {
	store      store.Store
	inviteCode func() (string, error)
}

func NewService(st store.Store) *Service {
	return &Service{
		store:      st,
		inviteCode: tokens.InviteCode,
	}
}

// CreateGroup creates the group together with its creator family.
func (s *Service) CreateGroup(ctx context.Context, input CreateGroupInput) (*CreateGroupResult, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domainerr.Validation("name is required")
	}
	familyName := strings.TrimSpace(input.CreatorFamilyName)
	if familyName == "" {
		return nil, domainerr.Validation("creator family name is required")
	}
	groupType := input.Type
	if groupType == "" {
		groupType = TypeClass
	}
	if !groupType.Valid() {
		return nil, ErrInvalidGroupType
	}

	code, err := s.inviteCode()
	if err != nil {
		return nil, err
	}

	familyID := uuid.NewString()
	group := Group{
		ID:              uuid.NewString(),
		Name:            name,
		Description:     trimmedOrNil(input.Description),
		Type:            groupType,
		InviteCode:      code,
		CreatorFamilyID: &familyID,
	}
	family := Family{
		ID:        familyID,
		GroupID:   group.ID,
		Name:      familyName,
		IsCreator: true,
		UserID:    trimmedOrNil(input.UserID),
	}

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.Insert(ctx, store.TableGroups, &group); err != nil {
			return err
		}
		return tx.Insert(ctx, store.TableFamilies, &family)
	})
	if err != nil {
		if store.IsConstraint(err, store.ConstraintGroupInviteCode) {
			return nil, domainerr.Wrap(ErrInviteCodeTaken, err)
		}
		return nil, err
	}

	return &CreateGroupResult{Group: group, Family: family}, nil
}

func (s *Service) GetGroup(ctx context.Context, groupID string) (*Group, error) {
	var group Group
	if err := s.store.SelectOne(ctx, store.TableGroups, store.Where{"id": groupID}, &group); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return &group, nil
}

func (s *Service) GetGroupByInviteCode(ctx context.Context, code string) (*Group, error) {
	code = tokens.NormalizeInviteCode(code)
	if code == "" {
		return nil, ErrInviteCodeNotFound
	}
	var group Group
	if err := s.store.SelectOne(ctx, store.TableGroups, store.Where{"invite_code": code}, &group); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInviteCodeNotFound
		}
		return nil, err
	}
	return &group, nil
}

// ListGroupsForUser returns the groups in which userID has claimed a family.
func (s *Service) ListGroupsForUser(ctx context.Context, userID string) ([]Group, error) {
	var families []Family
	if err := s.store.Select(ctx, store.TableFamilies, store.Where{"user_id": userID}, &families); err != nil {
		return nil, err
	}
	groupIDs := make([]string, 0, len(families))
	for _, family := range families {
		groupIDs = append(groupIDs, family.GroupID)
	}
	groups := []Group{}
	if err := s.store.Select(ctx, store.TableGroups, store.Where{"id": groupIDs}, &groups, "created_at asc"); err != nil {
		return nil, err
	}
	return groups, nil
}

func (s *Service) UpdateGroup(ctx context.Context, groupID string, input UpdateGroupInput) (*Group, error) {
	patch := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, domainerr.Validation("name is required")
		}
		patch["name"] = name
	}
	if input.Description != nil {
		patch["description"] = trimmedOrNil(input.Description)
	}
	if input.Type != nil {
		if !input.Type.Valid() {
			return nil, ErrInvalidGroupType
		}
		patch["type"] = string(*input.Type)
	}

	if len(patch) > 0 {
		updated, err := s.store.Update(ctx, store.TableGroups, store.Where{"id": groupID}, patch)
		if err != nil {
			return nil, err
		}
		if updated == 0 {
			return nil, ErrGroupNotFound
		}
	}
	return s.GetGroup(ctx, groupID)
}

// JoinGroup adds a new family to the group behind inviteCode. Without a
// userID the family stays unclaimed and its ID acts as the claim token.
func (s *Service) JoinGroup(ctx context.Context, inviteCode, familyName string, userID *string) (*Family, error) {
	familyName = strings.TrimSpace(familyName)
	if familyName == "" {
		return nil, domainerr.Validation("family name is required")
	}
	group, err := s.GetGroupByInviteCode(ctx, inviteCode)
	if err != nil {
		return nil, err
	}

	family := Family{
		ID:      uuid.NewString(),
		GroupID: group.ID,
		Name:    familyName,
		UserID:  trimmedOrNil(userID),
	}
	if err := s.store.Insert(ctx, store.TableFamilies, &family); err != nil {
		return nil, err
	}
	return &family, nil
}

func (s *Service) ListFamilies(ctx context.Context, groupID string) ([]Family, error) {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	var families []Family
	if err := s.store.Select(ctx, store.TableFamilies, store.Where{"group_id": groupID}, &families, "created_at asc"); err != nil {
		return nil, err
	}
	return families, nil
}

func (s *Service) GetFamily(ctx context.Context, familyID string) (*Family, error) {
	var family Family
	if err := s.store.SelectOne(ctx, store.TableFamilies, store.Where{"id": familyID}, &family); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrFamilyNotFound
		}
		return nil, err
	}
	return &family, nil
}

// DeleteFamily removes a non-creator family. Parties it coordinates keep
// going without a coordinator. A claimed family can only be removed by its
// owner; actorUserID is nil for anonymous callers.
func (s *Service) DeleteFamily(ctx context.Context, familyID string, actorUserID *string) (*store.DeleteReport, error) {
	family, err := s.GetFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if family.IsCreator {
		return nil, ErrCreatorFamily
	}
	if !ownsFamily(family, actorUserID) {
		return nil, ErrNotFamilyOwner
	}

	coordinated, err := s.store.Count(ctx, store.TableParties, store.Where{"coordinator_family_id": familyID})
	if err != nil {
		return nil, err
	}
	warnings := []string{}
	if coordinated > 0 {
		warnings = append(warnings, fmt.Sprintf("%d parties lose their coordinator", coordinated))
	}

	var steps []store.StepResult
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		var current Family
		if err := tx.SelectOne(ctx, store.TableFamilies, store.Where{"id": familyID}, &current); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrFamilyNotFound
			}
			return err
		}
		if !ownsFamily(&current, actorUserID) {
			return ErrNotFamilyOwner
		}

		if _, err := tx.Update(ctx, store.TableParties, store.Where{"coordinator_family_id": familyID}, map[string]any{"coordinator_family_id": nil}); err != nil {
			return err
		}
		plan := store.Plan{
			Steps: []store.Step{{
				Table: store.TableFamilies,
				Where: store.Where{"id": familyID, "is_creator": false, "user_id": ownerFilter(current.UserID)},
			}},
			Verify: store.Step{Table: store.TableFamilies, Where: store.Where{"id": familyID}},
		}
		steps, err = plan.Execute(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &store.DeleteReport{Warnings: warnings, Steps: steps}, nil
}

// ownsFamily reports whether actor may remove family. Unclaimed families
// are open to anyone; claimed ones only to their owner.
func ownsFamily(family *Family, actorUserID *string) bool {
	if family.UserID == nil {
		return true
	}
	return actorUserID != nil && *actorUserID == *family.UserID
}

func ownerFilter(userID *string) any {
	if userID == nil {
		return nil
	}
	return *userID
}

// ValidateGroupDeletion lists what DeleteGroup would discard without
// deleting anything.
func (s *Service) ValidateGroupDeletion(ctx context.Context, groupID string) ([]string, error) {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.deletionWarnings(ctx, s.store, groupID)
}

func (s *Service) deletionWarnings(ctx context.Context, st store.Store, groupID string) ([]string, error) {
	partyIDs, err := s.partyIDs(ctx, st, groupID)
	if err != nil {
		return nil, err
	}
	warnings, err := parties.DeletionWarnings(ctx, st, partyIDs)
	if err != nil {
		return nil, err
	}
	if len(partyIDs) > 0 {
		warnings = append(warnings, fmt.Sprintf("%d parties will be removed", len(partyIDs)))
	}
	families, err := st.Count(ctx, store.TableFamilies, store.Where{"group_id": groupID})
	if err != nil {
		return nil, err
	}
	if families > 1 {
		warnings = append(warnings, fmt.Sprintf("%d families will be removed", families))
	}
	return warnings, nil
}

// DeleteGroup removes the group with everything it owns: its parties with
// their gifts and proposals, then ideas, birthdays and families.
func (s *Service) DeleteGroup(ctx context.Context, groupID string) (*store.DeleteReport, error) {
	warnings, err := s.ValidateGroupDeletion(ctx, groupID)
	if err != nil {
		return nil, err
	}

	var results []store.StepResult
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		partyIDs, err := s.partyIDs(ctx, tx, groupID)
		if err != nil {
			return err
		}
		steps, err := parties.DeletionSteps(ctx, tx, partyIDs)
		if err != nil {
			return err
		}

		var birthdays []Birthday
		if err := tx.Select(ctx, store.TableBirthdays, store.Where{"group_id": groupID}, &birthdays); err != nil {
			return err
		}
		birthdayIDs := make([]string, 0, len(birthdays))
		for _, birthday := range birthdays {
			birthdayIDs = append(birthdayIDs, birthday.ID)
		}

		steps = append(steps,
			store.Step{Table: store.TableIdeas, Where: store.Where{"birthday_id": birthdayIDs}},
			store.Step{Table: store.TableBirthdays, Where: store.Where{"group_id": groupID}},
			store.Step{Table: store.TableFamilies, Where: store.Where{"group_id": groupID}},
			store.Step{Table: store.TableGroups, Where: store.Where{"id": groupID}},
		)
		plan := store.Plan{
			Steps:  steps,
			Verify: store.Step{Table: store.TableGroups, Where: store.Where{"id": groupID}},
		}
		results, err = plan.Execute(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &store.DeleteReport{Warnings: warnings, Steps: results}, nil
}

func (s *Service) partyIDs(ctx context.Context, st store.Store, groupID string) ([]string, error) {
	var rows []parties.Party
	if err := st.Select(ctx, store.TableParties, store.Where{"group_id": groupID}, &rows); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

func (s *Service) CreateBirthday(ctx context.Context, groupID, childName string, birthDate time.Time) (*Birthday, error) {
	childName = strings.TrimSpace(childName)
	if childName == "" {
		return nil, domainerr.Validation("child name is required")
	}
	if birthDate.IsZero() {
		return nil, domainerr.Validation("birth date is required")
	}
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}

	birthday := Birthday{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		ChildName: childName,
		BirthDate: time.Date(birthDate.Year(), birthDate.Month(), birthDate.Day(), 0, 0, 0, 0, time.UTC),
	}
	if err := s.store.Insert(ctx, store.TableBirthdays, &birthday); err != nil {
		return nil, err
	}
	return &birthday, nil
}

func (s *Service) ListBirthdays(ctx context.Context, groupID string) ([]Birthday, error) {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	var birthdays []Birthday
	if err := s.store.Select(ctx, store.TableBirthdays, store.Where{"group_id": groupID}, &birthdays, "birth_date asc"); err != nil {
		return nil, err
	}
	return birthdays, nil
}

func (s *Service) GetBirthday(ctx context.Context, birthdayID string) (*Birthday, error) {
	var birthday Birthday
	if err := s.store.SelectOne(ctx, store.TableBirthdays, store.Where{"id": birthdayID}, &birthday); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrBirthdayNotFound
		}
		return nil, err
	}
	return &birthday, nil
}

// DeleteBirthday removes the birthday and its ideas and unlinks it from any
// party. The parties themselves stay.
func (s *Service) DeleteBirthday(ctx context.Context, birthdayID string) (*store.DeleteReport, error) {
	if _, err := s.GetBirthday(ctx, birthdayID); err != nil {
		return nil, err
	}
	warnings, err := s.birthdayWarnings(ctx, birthdayID)
	if err != nil {
		return nil, err
	}

	plan := store.Plan{
		Steps: []store.Step{
			{Table: store.TableIdeas, Where: store.Where{"birthday_id": birthdayID}},
			{Table: store.TablePartyBirthdays, Where: store.Where{"birthday_id": birthdayID}},
			{Table: store.TableBirthdays, Where: store.Where{"id": birthdayID}},
		},
		Verify: store.Step{Table: store.TableBirthdays, Where: store.Where{"id": birthdayID}},
	}
	steps, err := plan.Execute(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return &store.DeleteReport{Warnings: warnings, Steps: steps}, nil
}

// birthdayWarnings reports the parties celebrating the birthday, naming
// those it is the only celebrant of.
func (s *Service) birthdayWarnings(ctx context.Context, birthdayID string) ([]string, error) {
	var links []parties.PartyBirthday
	if err := s.store.Select(ctx, store.TablePartyBirthdays, store.Where{"birthday_id": birthdayID}, &links); err != nil {
		return nil, err
	}
	warnings := []string{}
	if len(links) == 0 {
		return warnings, nil
	}
	warnings = append(warnings, fmt.Sprintf("birthday is celebrated in %d parties", len(links)))

	var orphaned []string
	for _, link := range links {
		celebrants, err := s.store.Count(ctx, store.TablePartyBirthdays, store.Where{"party_id": link.PartyID})
		if err != nil {
			return nil, err
		}
		if celebrants <= 1 {
			orphaned = append(orphaned, link.PartyID)
		}
	}
	if len(orphaned) > 0 {
		sort.Strings(orphaned)
		warnings = append(warnings, fmt.Sprintf("parties left without celebrants: %s", strings.Join(orphaned, ", ")))
	}
	return warnings, nil
}

func (s *Service) CreateIdea(ctx context.Context, input CreateIdeaInput) (*Idea, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, domainerr.Validation("text is required")
	}
	if input.Price != nil && *input.Price < 0 {
		return nil, domainerr.Validation("price must be non-negative")
	}
	if _, err := s.GetBirthday(ctx, input.BirthdayID); err != nil {
		return nil, err
	}

	idea := Idea{
		ID:         uuid.NewString(),
		BirthdayID: input.BirthdayID,
		Text:       text,
		Price:      input.Price,
		Link:       trimmedOrNil(input.Link),
	}
	if err := s.store.Insert(ctx, store.TableIdeas, &idea); err != nil {
		return nil, err
	}
	return &idea, nil
}

func (s *Service) ListIdeas(ctx context.Context, birthdayID string) ([]Idea, error) {
	if _, err := s.GetBirthday(ctx, birthdayID); err != nil {
		return nil, err
	}
	var ideas []Idea
	if err := s.store.Select(ctx, store.TableIdeas, store.Where{"birthday_id": birthdayID}, &ideas, "created_at asc"); err != nil {
		return nil, err
	}
	return ideas, nil
}

func (s *Service) DeleteIdea(ctx context.Context, ideaID string) error {
	deleted, err := s.store.Delete(ctx, store.TableIdeas, store.Where{"id": ideaID})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrIdeaNotFound
	}
	return nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
