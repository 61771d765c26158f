package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/fintrack-ai/internal/contract"
	"github.com/dvloznov/fintrack-ai/internal/jobs"
	"github.com/dvloznov/fintrack-ai/internal/logger"
)

// HandleJob is the jobs.JobHandler for ingest jobs. The job ID doubles as the
// document ID of the stored transactions. Bad input and answers that stayed
// invalid after every attempt are marked permanent so the queue does not
// retry them.
func (s *Service) HandleJob(ctx context.Context, job jobs.Job) error {
	ij, ok := job.(*jobs.IngestJob)
	if !ok {
		return jobs.Permanent(fmt.Errorf("HandleJob: unexpected job type %T", job))
	}

	log := logger.FromContext(ctx).With().Str("job_id", ij.JobID).Str("source", string(ij.Source)).Logger()
	log.Info().Str("gcs_uri", ij.GCSURI).Msg("Processing ingest job")

	var (
		res *IngestResult
		err error
	)
	switch ij.Source {
	case jobs.SourceText:
		res, err = s.IngestText(ctx, ij.JobID, ij.Text)
	case jobs.SourceGCS:
		res, err = s.IngestGCS(ctx, ij.JobID, ij.GCSURI)
	default:
		return jobs.Permanent(fmt.Errorf("HandleJob: unknown source %q", ij.Source))
	}
	if err != nil {
		if errors.Is(err, ErrInvalidInput) || contract.IsValidation(err) {
			return jobs.Permanent(err)
		}
		return err
	}

	ij.TransactionCount = len(res.Transactions)
	log.Info().Int("transactions", ij.TransactionCount).Msg("Ingest job completed")
	return nil
}
