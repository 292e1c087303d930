package reader

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"

	"github.com/ajitpratap0/datalogger/pkg/compression"
	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
	"github.com/ajitpratap0/datalogger/pkg/export"
	"github.com/ajitpratap0/datalogger/pkg/field"
	"github.com/ajitpratap0/datalogger/pkg/session"
	"github.com/ajitpratap0/datalogger/pkg/storage"
	"github.com/ajitpratap0/datalogger/pkg/testutil/runtest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	poseSamples  = 1200
	eventSamples = 40
)

type ReaderSuite struct {
	runtest.Suite
	runDir string
}

func TestReaderSuite(t *testing.T) {
	suite.Run(t, new(ReaderSuite))
}

// SetupTest records a fresh run with a multi-frame group, a small group
// and a group without samples.
func (s *ReaderSuite) SetupTest() {
	sess := s.NewSession(session.WithAllowedBufferSize(2048))
	s.runDir = s.CreateRun(sess, "reader").Directory

	pose := s.RegisterGroup(sess, "pose",
		field.New("t", field.Float64(0)),
		field.New("p", field.Vector32(0, 0, 0)),
		field.New("tick", field.Int64(0)),
	)
	events := s.RegisterGroup(sess, "events",
		field.New("code", field.Int64(0)),
		field.New("msg", field.String("")),
		field.New("ok", field.Bool(false)),
	)
	s.RegisterGroup(sess, "idle", field.New("x", field.Float64(0)))

	for i := 0; i < poseSamples; i++ {
		s.Append(sess, pose,
			field.Float64(float64(i)*0.01),
			field.Vector32(float32(i), 4.2, -1),
			field.Int64(int64(i)),
		)
		if i%(poseSamples/eventSamples) == 0 {
			s.Append(sess, events,
				field.Int64(int64(i)),
				field.String("event "+strconv.Itoa(i)),
				field.Bool((i/30)%2 == 0),
			)
		}
	}
	s.Require().NoError(sess.Close())
}

func (s *ReaderSuite) open(opts ...Option) *Reader {
	opts = append([]Option{WithLogger(s.Logger())}, opts...)
	r, err := Open(s.runDir, opts...)
	s.Require().NoError(err)
	return r
}

func (s *ReaderSuite) TestGroups() {
	r := s.open()
	s.Equal(s.runDir, r.Dir())
	s.Equal([]string{"events", "idle", "pose"}, r.Groups())

	m, err := r.Manifest()
	s.Require().NoError(err)
	s.True(m.Closed)
	s.Len(m.Groups, 3)
}

func (s *ReaderSuite) TestDataSet() {
	r := s.open()
	ds, err := r.DataSet("pose")
	s.Require().NoError(err)
	s.Equal([]string{"t", "p_1", "p_2", "p_3", "tick"}, ds.Columns)
	s.Equal(poseSamples, ds.Rows)
	s.Len(ds.Specs(), 5)

	p2, err := ds.Strings("p_2")
	s.Require().NoError(err)
	s.Equal("4.2", p2[0])
	s.Equal("-1", ds.Data["p_3"][poseSamples-1])

	ticks, err := ds.Float64s("tick")
	s.Require().NoError(err)
	for i, v := range ticks {
		s.Require().Equal(float64(i), v)
	}
	p, err := ds.Float64s("p_2")
	s.Require().NoError(err)
	s.Equal(4.2, p[0])

	a, err := r.Artifact("pose")
	s.Require().NoError(err)
	s.Greater(len(a.Frames), 1)
	s.Nil(a.Damage)

	again, err := r.Artifact("pose")
	s.Require().NoError(err)
	s.Same(a, again)
}

func (s *ReaderSuite) TestDataSetKinds() {
	ds, err := s.open().DataSet("events")
	s.Require().NoError(err)
	s.Equal(eventSamples, ds.Rows)
	s.Equal("event 0", ds.Data["msg"][0])
	s.Equal("1", ds.Data["ok"][0])
	s.Equal("0", ds.Data["ok"][1])

	ok, err := ds.Float64s("ok")
	s.Require().NoError(err)
	s.Equal([]float64{1, 0}, ok[:2])

	_, err = ds.Float64s("msg")
	s.True(dlerrors.IsType(err, dlerrors.ErrorTypeSchema))
	_, err = ds.Strings("nope")
	s.True(dlerrors.IsType(err, dlerrors.ErrorTypeNotFound))
}

func (s *ReaderSuite) TestZeroSampleGroup() {
	ds, err := s.open().DataSet("idle")
	s.Require().NoError(err)
	s.Equal(0, ds.Rows)
	s.Equal([]string{"x"}, ds.Columns)
	s.NotNil(ds.Data["x"])
	s.Empty(ds.Data["x"])
}

func (s *ReaderSuite) TestNotFound() {
	_, err := s.open().DataSet("missing")
	s.True(dlerrors.IsType(err, dlerrors.ErrorTypeNotFound))

	_, err = Open(filepath.Join(s.TempDir(), "no-such-run"))
	s.True(dlerrors.IsType(err, dlerrors.ErrorTypeNotFound))

	file := filepath.Join(s.TempDir(), "plain.txt")
	s.Require().NoError(os.WriteFile(file, []byte("x"), 0o644))
	_, err = Open(file)
	s.True(dlerrors.IsType(err, dlerrors.ErrorTypeRead))
}

func (s *ReaderSuite) TestExportCSV() {
	r := s.open()
	s.Require().NoError(r.ExportCSV())

	for _, group := range r.Groups() {
		ds, err := r.DataSet(group)
		s.Require().NoError(err)
		records := s.readCSV(filepath.Join(s.runDir, group+".csv"))
		s.Require().Len(records, ds.Rows+1, group)
		s.Equal(ds.Columns, records[0], group)
		for row := 0; row < ds.Rows; row++ {
			for c, name := range ds.Columns {
				s.Require().Equal(ds.Data[name][row], records[row+1][c])
			}
		}
	}
}

func (s *ReaderSuite) TestExportAllFormats() {
	r := s.open(WithParallelism(2))
	out := filepath.Join(s.TempDir(), "formats")
	for _, format := range export.Formats {
		s.Run(string(format), func() {
			s.Require().NoError(r.Export(s.Context(), format, out))
			for _, group := range r.Groups() {
				info, err := os.Stat(filepath.Join(out, group+format.Extension()))
				s.Require().NoError(err)
				s.Greater(info.Size(), int64(0))
			}
		})
	}
}

func (s *ReaderSuite) TestExportCanceled() {
	ctx, cancel := context.WithCancel(s.Context())
	cancel()
	err := s.open().Export(ctx, export.CSV, filepath.Join(s.TempDir(), "canceled"))
	s.Error(err)
}

func (s *ReaderSuite) TestExportCompressed() {
	stream := &compression.Config{Algorithm: compression.Zstd, Level: compression.Default}
	r := s.open(WithExportCompression(stream))
	out := filepath.Join(s.TempDir(), "compressed")
	s.Require().NoError(r.Export(s.Context(), export.CSV, out))

	comp, err := compression.NewCompressor(stream)
	s.Require().NoError(err)
	for _, group := range r.Groups() {
		ds, err := r.DataSet(group)
		s.Require().NoError(err)

		f, err := os.Open(filepath.Join(out, group+".csv.zst"))
		s.Require().NoError(err)
		rc, err := comp.DecompressStream(f)
		s.Require().NoError(err)
		records, err := csv.NewReader(rc).ReadAll()
		rc.Close()
		f.Close()
		s.Require().NoError(err)

		s.Require().Len(records, ds.Rows+1, group)
		s.Equal(ds.Columns, records[0], group)
		if ds.Rows > 0 {
			s.Equal(ds.Data[ds.Columns[0]][ds.Rows-1], records[ds.Rows][0], group)
		}
		_, statErr := os.Stat(filepath.Join(out, group+".csv"))
		s.True(os.IsNotExist(statErr), group)
	}
}

func (s *ReaderSuite) TestExportStopsOnFatalError() {
	out := filepath.Join(s.TempDir(), "blocked")
	s.Require().NoError(os.MkdirAll(filepath.Join(out, "events.csv"), 0o755))

	err := s.open(WithParallelism(1)).Export(s.Context(), export.CSV, out)
	s.Require().Error(err)
	s.True(dlerrors.IsType(err, dlerrors.ErrorTypeIO), "got %v", err)
	s.Contains(err.Error(), "events")
	s.ErrorIs(err, context.Canceled)
	for _, group := range []string{"idle", "pose"} {
		_, statErr := os.Stat(filepath.Join(out, group+".csv"))
		s.True(os.IsNotExist(statErr), group)
	}
}

func (s *ReaderSuite) TestDamagedGroup() {
	path := storage.ArtifactPath(s.runDir, "pose")
	_, frames, err := storage.ScanFile(path)
	s.Require().NoError(err)
	s.Require().Greater(len(frames), 2)

	info, err := os.Stat(path)
	s.Require().NoError(err)
	s.Require().NoError(os.Truncate(path, info.Size()-3))

	r := s.open()
	_, err = r.DataSet("pose")
	s.True(dlerrors.IsType(err, dlerrors.ErrorTypeRead), "got %v", err)

	err = r.ExportCSV()
	s.Require().Error(err)
	s.Contains(err.Error(), "pose")
	_, statErr := os.Stat(filepath.Join(s.runDir, "events.csv"))
	s.NoError(statErr, "healthy groups still export")
	_, statErr = os.Stat(filepath.Join(s.runDir, "pose.csv"))
	s.True(os.IsNotExist(statErr))

	salvaged := s.open(WithSalvage(true))
	ds, err := salvaged.DataSet("pose")
	s.Require().NoError(err)
	s.Greater(ds.Rows, 0)
	s.Less(ds.Rows, poseSamples)
	for i, tick := range ds.Data["tick"] {
		s.Require().Equal(strconv.Itoa(i), tick)
	}
	a, err := salvaged.Artifact("pose")
	s.Require().NoError(err)
	s.True(dlerrors.IsType(a.Damage, dlerrors.ErrorTypeRead))
	s.Len(a.Frames, len(frames)-1)
}

func (s *ReaderSuite) readCSV(path string) [][]string {
	f, err := os.Open(path)
	s.Require().NoError(err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	s.Require().NoError(err)
	return records
}
