package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/d66d666/SchMang-sub000/internal/config"
	"github.com/d66d666/SchMang-sub000/internal/excel"
	"github.com/d66d666/SchMang-sub000/internal/logger"
	"github.com/d66d666/SchMang-sub000/internal/metrics"
	"github.com/d66d666/SchMang-sub000/internal/model"
	"github.com/d66d666/SchMang-sub000/pkg/errors"

	"github.com/rs/zerolog"
)

type Service struct {
	cfg    *config.Config
	store  Store
	mirror Mirror
	log    zerolog.Logger
}

// NewService wires the importer. A nil mirror disables mirroring.
func NewService(cfg *config.Config, store Store, mirror Mirror) *Service {
	if mirror == nil {
		mirror = noopMirror{}
	}
	return &Service{
		cfg:    cfg,
		store:  store,
		mirror: mirror,
		log:    logger.For("importer"),
	}
}

// Import parses an uploaded roster file and runs the import on its rows.
func (s *Service) Import(ctx context.Context, filename string, data []byte, opts Options) (*Result, error) {
	strategy, err := excel.NewStrategy(filename)
	if err != nil {
		return nil, err
	}

	rows, err := strategy.Parse(ctx, data)
	if err != nil {
		s.log.Error().Err(err).Str("filename", filename).Msg("Failed to parse roster file")
		return nil, err
	}

	s.log.Debug().Str("filename", filename).Int("rows", len(rows)).Msg("Roster file parsed")
	return s.execute(ctx, rows, opts, strategy.Validate)
}

// ImportRows runs the import pipeline on already parsed rows.
func (s *Service) ImportRows(ctx context.Context, rows []model.RosterRow, opts Options) (*Result, error) {
	return s.execute(ctx, rows, opts, func(_ context.Context, kind model.ImportKind, rows []model.RosterRow) error {
		return excel.ValidateColumns(kind, rows)
	})
}

type validateFunc func(ctx context.Context, kind model.ImportKind, rows []model.RosterRow) error

func (s *Service) execute(ctx context.Context, rows []model.RosterRow, opts Options, validate validateFunc) (*Result, error) {
	start := time.Now()
	log := s.log.With().Str("kind", string(opts.Kind)).Int("rows", len(rows)).Logger()

	result, err := s.run(ctx, rows, opts, validate)
	metrics.RecordImport(string(opts.Kind), err, time.Since(start))
	if err != nil {
		log.Error().Err(err).Msg("Roster import failed")
		return nil, err
	}

	metrics.RecordRows(string(opts.Kind), "inserted", result.Inserted)
	metrics.RecordRows(string(opts.Kind), "updated", result.Updated)
	metrics.RecordRows(string(opts.Kind), "skipped", result.Skipped)
	metrics.RecordRows(string(opts.Kind), "failed", result.Failed)
	metrics.RecordRows(string(opts.Kind), "duplicate", len(result.DuplicatesInFile))
	metrics.RecordGroupsCreated(result.GroupsCreated)

	log.Info().
		Int("inserted", result.Inserted).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Int("groups_created", result.GroupsCreated).
		Int("duplicates", len(result.DuplicatesInFile)).
		Dur("duration", time.Since(start)).
		Msg("Roster import completed")

	if opts.OnComplete != nil {
		opts.OnComplete(result)
	}
	return result, nil
}

func (s *Service) run(ctx context.Context, rows []model.RosterRow, opts Options, validate validateFunc) (*Result, error) {
	if err := validate(ctx, opts.Kind, rows); err != nil {
		return nil, err
	}

	policy := s.policyFor(opts)

	var (
		counts     Counts
		duplicates []string
		warnings   []string
	)

	switch opts.Kind {
	case model.ImportStudents:
		groupIDs, created, err := s.resolveGroups(ctx, rows)
		if err != nil {
			return nil, err
		}

		existing, err := s.store.StudentIDsByNationalID(ctx, StudentNationalIDs(rows))
		if err != nil {
			return nil, fmt.Errorf("failed to load existing students: %w", err)
		}

		plan, err := ReconcileStudents(rows, groupIDs, existing, policy)
		if err != nil {
			return nil, err
		}
		for _, w := range plan.Warnings {
			s.log.Warn().Msg(w)
		}

		counts, err = s.commitStudents(ctx, plan)
		if err != nil {
			return nil, err
		}
		counts.GroupsCreated = created
		duplicates, warnings = plan.DuplicatesInFile, plan.Warnings

	case model.ImportTeachers:
		existing, err := s.store.TeacherIDsByPhone(ctx, TeacherPhones(rows))
		if err != nil {
			return nil, fmt.Errorf("failed to load existing teachers: %w", err)
		}

		plan := ReconcileTeachers(rows, existing, policy)
		counts, err = s.commitTeachers(ctx, plan)
		if err != nil {
			return nil, err
		}
		duplicates, warnings = plan.DuplicatesInFile, plan.Warnings

	default:
		return nil, errors.ErrUnknownImportKind
	}

	summary := Summarize(opts.Kind, counts, duplicates)
	return &Result{
		Kind:             opts.Kind,
		Inserted:         counts.Inserted,
		Updated:          counts.Updated,
		Skipped:          counts.Skipped,
		Failed:           counts.Failed,
		GroupsCreated:    counts.GroupsCreated,
		DuplicatesInFile: duplicates,
		Warnings:         warnings,
		Message:          summary.Message,
		Warning:          summary.Warning,
	}, nil
}

func (s *Service) policyFor(opts Options) model.DuplicatePolicy {
	if opts.OnDuplicate != "" {
		return opts.OnDuplicate
	}

	configured := ""
	if s.cfg != nil {
		if opts.Kind == model.ImportTeachers {
			configured = s.cfg.Import.Teachers.OnDuplicate
		} else {
			configured = s.cfg.Import.Students.OnDuplicate
		}
	}
	if p, ok := model.ParseDuplicatePolicy(configured); ok {
		return p
	}

	if opts.Kind == model.ImportTeachers {
		return model.KeepLast
	}
	return model.KeepFirst
}
