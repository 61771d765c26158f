package jobs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermanent(t *testing.T) {
	base := errors.New("bad uri")
	err := fmt.Errorf("ingest: %w", Permanent(base))

	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
	assert.Nil(t, Permanent(nil))
}

func TestIngestJobImplementsJob(t *testing.T) {
	var j Job = &IngestJob{JobID: "j1", Status: JobStatusPending}
	assert.Equal(t, "j1", j.GetID())
	assert.Equal(t, JobTypeIngest, j.GetType())
	assert.Equal(t, JobStatusPending, j.GetStatus())
}
