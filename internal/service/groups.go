package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/mmynk/splitsnap/internal/events"
	"github.com/mmynk/splitsnap/internal/ledger"
	"github.com/mmynk/splitsnap/internal/models"
)

// CreateGroup creates a new group with an initial member list.
func (s *LedgerService) CreateGroup(ctx context.Context, name string, members []string) (*models.Group, error) {
	slog.Info("CreateGroup request received", "name", name, "members_count", len(members))

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name required", ErrInvalidInput)
	}

	var unique []string
	for _, m := range members {
		m = strings.TrimSpace(m)
		if m == "" {
			return nil, fmt.Errorf("%w: empty member id", ledger.ErrInvalidMember)
		}
		if !slices.Contains(unique, m) {
			unique = append(unique, m)
		}
	}

	group := &models.Group{Name: name, Members: unique, CreatedAt: s.now().Unix()}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, err
	}

	slog.Info("Group created", "group_id", group.ID)
	return group, nil
}

// GetGroup retrieves a group by ID.
func (s *LedgerService) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		slog.Error("GetGroup failed", "group_id", groupID, "error", err)
		return nil, err
	}
	return group, nil
}

// ListGroups retrieves all groups.
func (s *LedgerService) ListGroups(ctx context.Context) ([]*models.Group, error) {
	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		slog.Error("ListGroups failed", "error", err)
		return nil, err
	}
	return groups, nil
}

// AddMember adds a member to a group.
func (s *LedgerService) AddMember(ctx context.Context, groupID, member string) error {
	slog.Info("AddMember request received", "group_id", groupID, "member", member)
	member = strings.TrimSpace(member)

	return s.withWrite(groupID, func() error {
		g, err := s.loadForWrite(ctx, groupID)
		if err != nil {
			return err
		}
		if g.IsMember(member) {
			return nil
		}
		if err := g.AddMember(member); err != nil {
			s.reject("add_member", err)
			return err
		}
		if err := s.store.AddGroupMember(ctx, groupID, member); err != nil {
			slog.Error("AddMember failed", "group_id", groupID, "error", err)
			return err
		}

		s.committed(ctx, g, events.MemberAdded, member)
		slog.Info("Member added", "group_id", groupID, "member", member)
		return nil
	})
}

// RemoveMember removes a member whose balance in the group is zero.
func (s *LedgerService) RemoveMember(ctx context.Context, groupID, member string) error {
	slog.Info("RemoveMember request received", "group_id", groupID, "member", member)

	return s.withWrite(groupID, func() error {
		g, err := s.loadForWrite(ctx, groupID)
		if err != nil {
			return err
		}
		if err := g.RemoveMember(member); err != nil {
			s.reject("remove_member", err)
			slog.Warn("RemoveMember rejected", "group_id", groupID, "member", member, "error", err)
			return err
		}
		if err := s.store.RemoveGroupMember(ctx, groupID, member); err != nil {
			slog.Error("RemoveMember failed", "group_id", groupID, "error", err)
			return err
		}

		s.committed(ctx, g, events.MemberRemoved, member)
		slog.Info("Member removed", "group_id", groupID, "member", member)
		return nil
	})
}
