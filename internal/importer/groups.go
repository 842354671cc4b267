package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/d66d666/SchMang-sub000/internal/model"
	"github.com/d66d666/SchMang-sub000/pkg/errors"

	"github.com/google/uuid"
)

// fileGroupKeys returns the distinct (stage, group) pairs referenced by rows,
// in discovery order. Rows missing either part are ignored.
func fileGroupKeys(rows []model.RosterRow) []model.GroupKey {
	seen := make(map[model.GroupKey]struct{})
	var keys []model.GroupKey

	for _, row := range rows {
		key := model.NewGroupKey(row.Get(model.ColStage), row.Get(model.ColGroup))
		if key.Empty() {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	return keys
}

// resolveGroups maps every group referenced by rows to an id, creating the
// groups the store does not know yet. It returns the map and how many groups
// it created. A creation failure aborts; groups created before it remain.
func (s *Service) resolveGroups(ctx context.Context, rows []model.RosterRow) (map[model.GroupKey]string, int, error) {
	keys := fileGroupKeys(rows)

	existing, err := s.store.ListGroups(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load groups: %w", err)
	}

	ids := make(map[model.GroupKey]string, len(existing)+len(keys))
	for _, g := range existing {
		if _, ok := ids[g.Key()]; !ok {
			ids[g.Key()] = g.ID
		}
	}

	created := 0
	for _, key := range keys {
		if _, ok := ids[key]; ok {
			continue
		}

		group := model.Group{
			ID:           uuid.NewString(),
			Stage:        key.Stage,
			Name:         key.Name,
			DisplayOrder: 0,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.store.CreateGroup(ctx, &group); err != nil {
			return ids, created, &errors.GroupCreationError{Stage: key.Stage, Name: key.Name, Err: err}
		}

		ids[key] = group.ID
		created++

		s.log.Debug().Str("group_id", group.ID).Str("group", key.String()).Msg("Group created")
		if err := s.mirror.PutGroup(ctx, group); err != nil {
			s.log.Warn().Err(err).Str("group_id", group.ID).Msg("Failed to mirror group")
		}
	}

	return ids, created, nil
}
