package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"dumptrack-api/internal/model"
	"dumptrack-api/internal/repository"
	"dumptrack-api/pkg/uid"
)

// NewBatchID returns a batch identifier of the form
// BATCH-<unix millis>-<9 random upper-case characters>.
func (s *TrackingDumpStore) NewBatchID() string {
	return fmt.Sprintf("BATCH-%d-%s", s.opts.now().UnixMilli(), uid.Suffix(9))
}

// AddDump creates a batch and then its first delivery. The two inserts are
// not atomic: if the delivery fails the batch stays behind, unless the
// store was built WithBatchCompensation, in which case it is deleted.
// A dump name not yet known gets a tracking_dumps row, so other sessions
// list it too. If that insert fails the dump is kept in the local list and
// its mirror only.
func (s *TrackingDumpStore) AddDump(ctx context.Context, in model.NewDumpInput) (_ *model.Batch, _ *model.TrackingDelivery, err error) {
	done := s.begin("add_dump")
	defer func() { done(err) }()

	date := in.Date
	if strings.TrimSpace(date) == "" {
		date = s.opts.now().Format(dayLayout)
	}
	if err := checkDate(date); err != nil {
		return nil, nil, err
	}

	batch := model.Batch{
		BatchID:         s.NewBatchID(),
		BatchName:       in.Name,
		CreatedAt:       nowString(s.opts.now),
		CreatedBy:       in.CreatedBy,
		Status:          StatusActive,
		Description:     in.Description,
		TotalContainers: in.ContainersDelivered,
	}
	row, err := repository.EncodeRow(batch)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.gw.Insert(ctx, repository.TableBatches, row)
	if err != nil {
		return nil, nil, err
	}
	var storedBatch []model.Batch
	if err := repository.DecodeRows(rows, &storedBatch); err != nil {
		return nil, nil, err
	}
	if len(storedBatch) == 0 {
		return nil, nil, ErrNotFound
	}

	delivery, err := s.insertDelivery(ctx, model.TrackingDelivery{
		BatchID:             batch.BatchID,
		Dump:                in.Name,
		Date:                date,
		ContainerNo:         in.ContainerNo,
		Driver:              in.Driver,
		ContainersDelivered: in.ContainersDelivered,
		VesselDetails:       in.VesselDetails,
		Comments:            in.Comments,
	})
	if err != nil {
		s.compensate(ctx, batch.BatchID, err)
		return nil, nil, err
	}

	s.mu.RLock()
	known := s.hasDumpLocked(in.Name)
	s.mu.RUnlock()

	var dumpID int64
	if !known {
		id, perr := s.persistDump(ctx, in.Name)
		if perr != nil {
			s.opts.logger.Warn("dump row not saved; kept in this workspace only",
				zap.String("dump", in.Name), zap.Error(perr))
		}
		dumpID = id
	}

	s.mu.Lock()
	s.deliveries = append([]model.TrackingDelivery{*delivery}, s.deliveries...)
	if !s.hasDumpLocked(in.Name) {
		if dumpID == 0 {
			dumpID = s.nextDumpIDLocked()
		}
		s.dumps = append(s.dumps, model.TrackingDump{ID: dumpID, Name: in.Name, Status: StatusActive})
	}
	s.mu.Unlock()

	s.UpdateDumpCounts(ctx)
	return &storedBatch[0], delivery, nil
}

// persistDump returns the id of the tracking_dumps row for name, inserting
// it when missing. Loading first seeds the defaults into an empty table.
func (s *TrackingDumpStore) persistDump(ctx context.Context, name string) (int64, error) {
	persisted, err := s.loadDumps(ctx)
	if err != nil {
		return 0, err
	}
	for _, d := range persisted {
		if d.Name == name {
			return d.ID, nil
		}
	}

	row, err := repository.EncodeRow(model.TrackingDumpRow{
		Name:      name,
		Status:    StatusActive,
		CreatedAt: nowString(s.opts.now),
	})
	if err != nil {
		return 0, err
	}
	rows, err := s.gw.Insert(ctx, repository.TableDumps, row)
	if err != nil {
		return 0, err
	}
	var stored []model.TrackingDumpRow
	if err := repository.DecodeRows(rows, &stored); err != nil {
		return 0, err
	}
	if len(stored) == 0 {
		return 0, ErrNotFound
	}
	return stored[0].ID, nil
}

// compensate removes an orphaned batch when compensation is enabled.
func (s *TrackingDumpStore) compensate(ctx context.Context, batchID string, cause error) {
	if !s.opts.compensateBatches {
		s.opts.logger.Warn("delivery insert failed; batch left orphaned",
			zap.String("batch_id", batchID), zap.Error(cause))
		return
	}
	if err := s.gw.Delete(ctx, repository.TableBatches, repository.Eq("batch_id", batchID)); err != nil {
		s.opts.logger.Error("failed to delete orphaned batch",
			zap.String("batch_id", batchID), zap.Error(err))
		return
	}
	s.opts.logger.Info("orphaned batch deleted", zap.String("batch_id", batchID))
}

func (s *TrackingDumpStore) hasDumpLocked(name string) bool {
	for _, d := range s.dumps {
		if d.Name == name {
			return true
		}
	}
	return false
}

func (s *TrackingDumpStore) nextDumpIDLocked() int64 {
	var highest int64
	for _, d := range s.dumps {
		if d.ID > highest {
			highest = d.ID
		}
	}
	return highest + 1
}
