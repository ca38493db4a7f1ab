package report

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mwalcott/account-portal/internal/models"
)

type fakeCounter struct {
	total  int64
	recent int64
	err    error

	lastSince time.Time
}

func (f *fakeCounter) CountUsers(context.Context) (int64, error) {
	return f.total, f.err
}

func (f *fakeCounter) CountUsersCreatedSince(_ context.Context, since time.Time) (int64, error) {
	f.lastSince = since
	return f.recent, f.err
}

type fakeArchive struct {
	keys []string
	data [][]byte
}

func (f *fakeArchive) Upload(_ context.Context, key string, data []byte, contentType string) error {
	f.keys = append(f.keys, key)
	f.data = append(f.data, data)
	return nil
}

func TestGenerate_ComputesAndArchives(t *testing.T) {
	counter := &fakeCounter{total: 42, recent: 7}
	archive := &fakeArchive{}
	svc := NewService(counter, nil, archive, time.Minute)

	rep, err := svc.Generate(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 42, rep.TotalUsers)
	require.EqualValues(t, 7, rep.NewUsersLast30Days)
	require.WithinDuration(t, time.Now().UTC(), rep.Timestamp, 5*time.Second)

	// The 30-day window is anchored at now.
	require.WithinDuration(t, time.Now().AddDate(0, 0, -30), counter.lastSince, 5*time.Second)

	// The archived snapshot matches the served report.
	require.Len(t, archive.keys, 1)
	require.True(t, strings.HasPrefix(archive.keys[0], "user-report-"))
	require.True(t, strings.HasSuffix(archive.keys[0], ".json"))

	var archived models.UserReport
	require.NoError(t, json.Unmarshal(archive.data[0], &archived))
	require.Equal(t, *rep, archived)
}

func TestGenerate_StoreError(t *testing.T) {
	counter := &fakeCounter{err: errors.New("boom")}
	svc := NewService(counter, nil, nil, time.Minute)

	_, err := svc.Generate(context.Background())
	require.Error(t, err)
}

func TestGenerate_NoArchiveConfigured(t *testing.T) {
	svc := NewService(&fakeCounter{total: 1}, nil, nil, time.Minute)

	rep, err := svc.Generate(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, rep.TotalUsers)
}
