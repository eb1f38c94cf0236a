package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/dicomharvest/internal/probe"
)

func openMemory(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSaveAndRecords(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()

	records := []probe.Record{
		{FilePath: "/data/b.dcm", PatientName: "Roe^Jane", PatientID: "7"},
		{FilePath: "/data/a.dcm", PatientName: "Doe^John", PatientID: "00A123"},
	}
	run := Run{ID: "run-1", Root: "/data", Candidates: 3, Decoded: 2, Failed: 1}
	require.NoError(t, c.Save(ctx, run, records))

	got, err := c.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, []probe.Record{records[1], records[0]}, got)

	n, err := c.RunCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSave_ReplacesPreviousRunForRoot(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, Run{ID: "run-1", Root: "/data"}, []probe.Record{
		{FilePath: "/data/a.dcm", PatientName: "Doe^John", PatientID: "1"},
		{FilePath: "/data/gone.dcm", PatientName: "Gone", PatientID: "2"},
	}))
	require.NoError(t, c.Save(ctx, Run{ID: "run-2", Root: "/other"}, []probe.Record{
		{FilePath: "/other/x.dcm", PatientName: "X", PatientID: "9"},
	}))
	require.NoError(t, c.Save(ctx, Run{ID: "run-3", Root: "/data"}, []probe.Record{
		{FilePath: "/data/a.dcm", PatientName: "Doe^Johnny", PatientID: "1"},
	}))

	got, err := c.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, []probe.Record{
		{FilePath: "/data/a.dcm", PatientName: "Doe^Johnny", PatientID: "1"},
		{FilePath: "/other/x.dcm", PatientName: "X", PatientID: "9"},
	}, got)
}

func TestSave_RelativeRootsShareRows(t *testing.T) {
	t.Chdir(t.TempDir())
	c := openMemory(t)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, Run{ID: "run-1", Root: "./data"}, []probe.Record{
		{FilePath: "data/a.dcm", PatientName: "Doe^John", PatientID: "1"},
		{FilePath: "data/gone.dcm", PatientName: "Gone", PatientID: "2"},
	}))
	require.NoError(t, c.Save(ctx, Run{ID: "run-2", Root: "data/"}, []probe.Record{
		{FilePath: "./data/a.dcm", PatientName: "Doe^John", PatientID: "1"},
	}))

	abs, err := filepath.Abs(filepath.Join("data", "a.dcm"))
	require.NoError(t, err)
	got, err := c.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, []probe.Record{{FilePath: abs, PatientName: "Doe^John", PatientID: "1"}}, got)
}

func TestRecordsForPatient(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()
	require.NoError(t, c.Save(ctx, Run{ID: "r", Root: "/d", FinishedAt: time.Now()}, []probe.Record{
		{FilePath: "/d/1.dcm", PatientName: "A", PatientID: "00A123"},
		{FilePath: "/d/2.dcm", PatientName: "A", PatientID: "00A123"},
		{FilePath: "/d/3.dcm", PatientName: "B", PatientID: "A123"},
	}))

	got, err := c.RecordsForPatient(ctx, "00A123")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/d/1.dcm", got[0].FilePath)
	assert.Equal(t, "/d/2.dcm", got[1].FilePath)
}

func TestSave_RequiresRunID(t *testing.T) {
	c := openMemory(t)
	err := c.Save(context.Background(), Run{Root: "/d"}, nil)
	require.Error(t, err)
}

func TestSave_DuplicateRunRollsBack(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()
	rec := []probe.Record{{FilePath: "/d/1.dcm", PatientName: "A", PatientID: "1"}}
	require.NoError(t, c.Save(ctx, Run{ID: "r", Root: "/d"}, rec))

	err := c.Save(ctx, Run{ID: "r", Root: "/d"}, []probe.Record{
		{FilePath: "/d/2.dcm", PatientName: "B", PatientID: "2"},
	})
	require.Error(t, err)

	got, err := c.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestOpen_FileCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")
	c, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, c.Path())
	require.NoError(t, c.Save(context.Background(), Run{ID: "r", Root: "/d"}, nil))
	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	defer c.Close()
	n, err := c.RunCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
