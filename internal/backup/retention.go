package backup

import (
	"context"
	"fmt"
	"time"

	"dirvault/internal/logging"
)

// RetentionEnforcer decides which cataloged snapshots to delete under the
// configured policy and deletes them. Per-file deletion failures are logged
// and skipped; pruning of the remaining candidates continues.
type RetentionEnforcer struct {
	catalog *Catalog
	logger  *logging.Logger
	now     func() time.Time
}

// NewRetentionEnforcer creates a retention enforcer over the catalog.
func NewRetentionEnforcer(catalog *Catalog, logger *logging.Logger) *RetentionEnforcer {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &RetentionEnforcer{
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
	}
}

// Prune applies the retention policy in one pass. A zero cap means unlimited,
// not "delete all"; with nothing configured the pass is a no-op.
func (re *RetentionEnforcer) Prune(ctx context.Context, policy RetentionOptions, dryRun bool) (*PruneResult, error) {
	start := re.now()
	result := &PruneResult{DryRun: dryRun}

	if !policy.configured() {
		result.Duration = re.now().Sub(start)
		return result, nil
	}

	snapshots, err := re.catalog.List()
	if err != nil {
		return nil, fmt.Errorf("failed to catalog snapshots for pruning: %w", err)
	}
	result.Processed = len(snapshots)
	if len(snapshots) == 0 {
		result.Duration = re.now().Sub(start)
		return result, nil
	}

	doomed := re.selectForDeletion(snapshots, policy)

	for _, snapshot := range snapshots {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !doomed[snapshot.Path] {
			result.Kept++
			continue
		}
		if dryRun {
			result.Deleted++
			result.DeletedPaths = append(result.DeletedPaths, snapshot.Path)
			continue
		}
		if err := removeArtifact(snapshot.Path); err != nil {
			msg := fmt.Sprintf("failed to delete snapshot %s: %v", snapshot.Path, err)
			re.logger.Error(msg)
			result.Errors = append(result.Errors, msg)
			result.Kept++
			continue
		}
		re.logger.Infof("Retention deleted snapshot: %s (created: %s)",
			snapshot.FileName, snapshot.CreatedAt.Format(time.RFC3339))
		result.Deleted++
		result.DeletedPaths = append(result.DeletedPaths, snapshot.Path)
	}

	result.Duration = re.now().Sub(start)
	re.logger.LogRetentionRun(result.Processed, result.Deleted, result.Kept, dryRun, result.Duration)
	return result, nil
}

// selectForDeletion marks snapshots for deletion. The input is newest-first
// per the catalog ordering; caps compose, so a snapshot doomed by any rule is
// deleted.
func (re *RetentionEnforcer) selectForDeletion(snapshots []*Snapshot, policy RetentionOptions) map[string]bool {
	doomed := make(map[string]bool)

	if policy.MaxBackups > 0 && len(snapshots) > policy.MaxBackups {
		for _, s := range snapshots[policy.MaxBackups:] {
			doomed[s.Path] = true
		}
	}

	if policy.MaxAgeDays > 0 {
		cutoff := re.now().Add(-policy.MaxAge())
		for _, s := range snapshots {
			if s.CreatedAt.Before(cutoff) {
				doomed[s.Path] = true
			}
		}
	}

	if sizeCap := policy.MaxTotalSizeBytes(); sizeCap > 0 {
		var total int64
		for _, s := range snapshots {
			if !doomed[s.Path] {
				total += s.SizeBytes
			}
		}
		// Oldest-first until the directory fits under the cap.
		for i := len(snapshots) - 1; i >= 0 && total > sizeCap; i-- {
			s := snapshots[i]
			if doomed[s.Path] {
				continue
			}
			doomed[s.Path] = true
			total -= s.SizeBytes
		}
	}

	if policy.Smart {
		for path := range re.selectSmart(snapshots, policy) {
			doomed[path] = true
		}
	}

	return doomed
}

// selectSmart implements tiered thinning: within the daily horizon the newest
// snapshot per calendar day survives, within the weekly horizon the newest per
// ISO week, within the monthly horizon the newest per calendar month, and
// everything older than all horizons is deleted. Snapshots arrive newest
// first, so the first snapshot seen in a bucket is its survivor.
func (re *RetentionEnforcer) selectSmart(snapshots []*Snapshot, policy RetentionOptions) map[string]bool {
	now := re.now()
	dailyCutoff := now.AddDate(0, 0, -policy.KeepDaily)
	weeklyCutoff := dailyCutoff.AddDate(0, 0, -7*policy.KeepWeekly)
	monthlyCutoff := weeklyCutoff.AddDate(0, -policy.KeepMonthly, 0)

	doomed := make(map[string]bool)
	seen := make(map[string]bool)
	for _, s := range snapshots {
		var bucket string
		switch {
		case !s.CreatedAt.Before(dailyCutoff):
			bucket = "day:" + s.CreatedAt.Format("2006-01-02")
		case !s.CreatedAt.Before(weeklyCutoff):
			year, week := s.CreatedAt.ISOWeek()
			bucket = fmt.Sprintf("week:%d-%02d", year, week)
		case !s.CreatedAt.Before(monthlyCutoff):
			bucket = "month:" + s.CreatedAt.Format("2006-01")
		default:
			doomed[s.Path] = true
			continue
		}
		if seen[bucket] {
			doomed[s.Path] = true
		}
		seen[bucket] = true
	}
	return doomed
}
