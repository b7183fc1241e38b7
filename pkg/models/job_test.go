package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJob_UnmarshalData(t *testing.T) {
	t.Parallel()

	job := &Job{Type: JobTypeSync, Data: `{"work_ids":["n1234ab"],"known":true,"ranking":true}`}
	require.NoError(t, job.UnmarshalData())

	data, ok := job.DataParsed.(*JobSyncData)
	require.True(t, ok)
	assert.Equal(t, []string{"n1234ab"}, data.WorkIDs)
	assert.True(t, data.Known)
	assert.True(t, data.Ranking)
}

func TestJob_UnmarshalData_UnknownType(t *testing.T) {
	t.Parallel()

	job := &Job{Type: "scan", Data: `{}`}
	assert.Error(t, job.UnmarshalData())
}

func TestVolume_Slugs(t *testing.T) {
	t.Parallel()

	v := &Volume{ChapterSlugs: JoinSlugs([]string{"1", "2", "3"})}
	assert.Equal(t, []string{"1", "2", "3"}, v.Slugs())
	assert.Equal(t, "abc123-2", VolumeCode("abc123", 2))
	assert.Nil(t, (&Volume{}).Slugs())
}
