package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jjenkins/orgadmin/internal/hierarchy"
	"github.com/jjenkins/orgadmin/internal/model"
	"github.com/jjenkins/orgadmin/internal/store"
	"github.com/sirupsen/logrus"
)

// EntityStats tracks import statistics for one record type
type EntityStats struct {
	Fetched  int
	Upserted int
	Failed   int
	Pruned   int
}

// ImportStats tracks import statistics
type ImportStats struct {
	Units     EntityStats
	Positions EntityStats
	Slots     EntityStats
	Members   EntityStats

	Orphans     int
	Duplicates  int
	CycleBreaks int

	SnapshotsChanged   int
	SnapshotsUnchanged int
	SnapshotsFailed    int

	Duration time.Duration
}

// Failed returns the total number of records that could not be stored
func (s *ImportStats) Failed() int {
	return s.Units.Failed + s.Positions.Failed + s.Slots.Failed + s.Members.Failed + s.SnapshotsFailed
}

// Importer copies the organization from the backend into the local database
type Importer struct {
	upstream  Source
	units     *store.UnitStore
	positions *store.PositionStore
	slots     *store.SlotStore
	members   *store.MemberStore
	snapshots *store.SnapshotStore
	logger    *logrus.Logger
	errLogger *logrus.Logger
	metrics   *importMetrics
}

// NewImporter creates a new Importer
func NewImporter(upstream Source, units *store.UnitStore, positions *store.PositionStore, slots *store.SlotStore, members *store.MemberStore, snapshots *store.SnapshotStore) *Importer {
	errLogger := logrus.New()
	errLogger.SetOutput(os.Stderr)

	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	return &Importer{
		upstream:  upstream,
		units:     units,
		positions: positions,
		slots:     slots,
		members:   members,
		snapshots: snapshots,
		logger:    logger,
		errLogger: errLogger,
		metrics:   importMetricsSingleton(),
	}
}

// SetLogLevel adjusts the verbosity of both loggers
func (i *Importer) SetLogLevel(level logrus.Level) {
	i.logger.SetLevel(level)
	i.errLogger.SetLevel(level)
}

// Import fetches every record type, stores it, prunes records that vanished
// upstream and writes staffing snapshots for the given date
func (i *Importer) Import(ctx context.Context, date string) (*ImportStats, error) {
	// Parse the snapshot date
	snapshotDate, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("invalid date format: %w", err)
	}

	start := time.Now()
	stats := &ImportStats{}
	defer func() {
		stats.Duration = time.Since(start)
		i.metrics.duration.Observe(stats.Duration.Seconds())
	}()

	// Units first so positions and slots can reference them
	i.logger.Info("Fetching units from organization API...")
	units, err := i.upstream.Units(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to fetch units: %w", err)
	}
	importEach(ctx, i, "unit", units, &stats.Units,
		func(u model.UnitRecord) string { return u.ID },
		func(ctx context.Context, u model.UnitRecord) error { return i.units.UpsertUnit(ctx, &u) },
		i.units.DeleteMissing)
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	// Positions
	i.logger.Info("Fetching positions...")
	positions, err := i.upstream.Positions(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to fetch positions: %w", err)
	}
	importEach(ctx, i, "position", positions, &stats.Positions,
		func(p model.PositionRecord) string { return p.ID },
		func(ctx context.Context, p model.PositionRecord) error { return i.positions.UpsertPosition(ctx, &p) },
		i.positions.DeleteMissing)
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	// Recruitment slots
	i.logger.Info("Fetching recruitment slots...")
	slots, err := i.upstream.Slots(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to fetch recruitment slots: %w", err)
	}
	importEach(ctx, i, "slot", slots, &stats.Slots,
		func(s model.RecruitmentSlot) string { return s.ID },
		func(ctx context.Context, s model.RecruitmentSlot) error { return i.slots.UpsertSlot(ctx, &s) },
		i.slots.DeleteMissing)
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	// Members are replaced wholesale, including with an empty list
	i.logger.Info("Fetching members...")
	members, err := i.upstream.Members(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to fetch members: %w", err)
	}
	stats.Members.Fetched = len(members)
	if err := i.members.ReplaceAll(ctx, members); err != nil {
		i.errLogger.WithError(err).Error("Failed to store members")
		stats.Members.Failed = len(members)
		i.metrics.records.WithLabelValues("member", "failed").Add(float64(len(members)))
	} else {
		stats.Members.Upserted = len(members)
		i.metrics.records.WithLabelValues("member", "upserted").Add(float64(len(members)))
	}

	// Build the tree from what was fetched and report data quality issues
	assembly := NewAssembly(units, positions, slots, members)
	i.logDiagnostics(assembly, stats)

	// Snapshot staffing per unit, only where it changed
	i.logger.Info("Writing staffing snapshots...")
	i.writeSnapshots(ctx, assembly, snapshotDate, stats)

	return stats, ctx.Err()
}

// importEach upserts every record, counting outcomes, then prunes stored
// records missing from the batch. Pruning is skipped when nothing was fetched
// so an empty upstream response cannot wipe the table.
func importEach[T any](
	ctx context.Context,
	i *Importer,
	entity string,
	records []T,
	stats *EntityStats,
	id func(T) string,
	upsert func(context.Context, T) error,
	prune func(context.Context, []string) (int, error),
) {
	stats.Fetched = len(records)
	i.logger.Infof("Found %d %ss", len(records), entity)

	keep := make([]string, 0, len(records))
	for idx, rec := range records {
		if ctx.Err() != nil {
			return
		}
		keep = append(keep, id(rec))

		if err := upsert(ctx, rec); err != nil {
			i.errLogger.WithFields(logrus.Fields{
				"entity":   entity,
				"id":       id(rec),
				"progress": fmt.Sprintf("[%d/%d]", idx+1, len(records)),
			}).WithError(err).Error("Failed to store record")
			stats.Failed++
			i.metrics.records.WithLabelValues(entity, "failed").Inc()
			continue
		}
		stats.Upserted++
		i.metrics.records.WithLabelValues(entity, "upserted").Inc()
	}

	if len(records) == 0 {
		i.logger.Warnf("No %ss fetched, skipping prune", entity)
		return
	}

	pruned, err := prune(ctx, keep)
	if err != nil {
		i.errLogger.WithField("entity", entity).WithError(err).Error("Failed to prune records")
		return
	}
	stats.Pruned = pruned
	if pruned > 0 {
		i.logger.Infof("Pruned %d %ss no longer present upstream", pruned, entity)
		i.metrics.records.WithLabelValues(entity, "pruned").Add(float64(pruned))
	}
}

func (i *Importer) logDiagnostics(a *Assembly, stats *ImportStats) {
	d := a.Forest.Diagnostics
	stats.Orphans = len(d.Orphans)
	stats.Duplicates = len(d.Duplicates)
	stats.CycleBreaks = len(d.CycleBreaks)

	for _, u := range d.Orphans {
		i.logger.WithFields(logrus.Fields{"unit": u.ID, "parent": *u.ParentID}).
			Warn("Unit references a missing parent, placed at root")
	}
	for _, u := range d.Duplicates {
		i.logger.WithField("unit", u.ID).Warn("Duplicate unit ID, earlier record dropped")
	}
	for _, u := range d.CycleBreaks {
		i.logger.WithField("unit", u.ID).Warn("Parent cycle detected, unit promoted to root")
	}
	if n := len(a.UnmatchedPositions); n > 0 {
		i.logger.Warnf("%d positions reference units that do not exist", n)
	}
	if n := len(a.UnmatchedSlots); n > 0 {
		i.logger.Warnf("%d recruitment slots reference units that do not exist", n)
	}
}

func (i *Importer) writeSnapshots(ctx context.Context, a *Assembly, date time.Time, stats *ImportStats) {
	hierarchy.Walk(a.Roots, func(n *model.UnitNode, _ int) {
		if ctx.Err() != nil {
			return
		}
		s := a.Staffing[n.ID]
		snap := &model.StaffingSnapshot{
			UnitID:         n.ID,
			UnitName:       n.Name,
			PositionCount:  s.Positions,
			VacantCount:    s.Vacant,
			SlotsTotal:     s.SlotsTotal,
			SlotsAvailable: s.SlotsAvailable,
			Checksum:       s.Checksum(),
			SnapshotDate:   date,
		}

		changed, err := i.snapshots.InsertSnapshotIfChanged(ctx, snap)
		switch {
		case err != nil:
			i.errLogger.WithField("unit", n.ID).WithError(err).Error("Failed to write snapshot")
			stats.SnapshotsFailed++
			i.metrics.snapshots.WithLabelValues("failed").Inc()
		case changed:
			i.logger.Debugf("  Unit %s changed (snapshot created)", n.ID)
			stats.SnapshotsChanged++
			i.metrics.snapshots.WithLabelValues("changed").Inc()
		default:
			stats.SnapshotsUnchanged++
			i.metrics.snapshots.WithLabelValues("unchanged").Inc()
		}
	})
}

// PrintSummary prints the import statistics
func (i *Importer) PrintSummary(stats *ImportStats) {
	i.logger.Info("")
	i.logger.Info("=== Import Summary ===")
	for _, row := range []struct {
		name  string
		stats EntityStats
	}{
		{"Units", stats.Units},
		{"Positions", stats.Positions},
		{"Slots", stats.Slots},
		{"Members", stats.Members},
	} {
		i.logger.Infof("%-10s fetched %d, upserted %d, failed %d, pruned %d",
			row.name+":", row.stats.Fetched, row.stats.Upserted, row.stats.Failed, row.stats.Pruned)
	}
	i.logger.Infof("Orphans:      %d", stats.Orphans)
	i.logger.Infof("Duplicates:   %d", stats.Duplicates)
	i.logger.Infof("Cycle breaks: %d", stats.CycleBreaks)
	i.logger.Infof("Snapshots:    %d changed, %d unchanged, %d failed",
		stats.SnapshotsChanged, stats.SnapshotsUnchanged, stats.SnapshotsFailed)
	i.logger.Infof("Duration:     %s", stats.Duration.Round(time.Millisecond))
}
