// Package runtest provides a testify suite for tests that record runs with
// a session and then work on the artifacts.
package runtest

import (
	"context"
	"os"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/ajitpratap0/datalogger/pkg/field"
	"github.com/ajitpratap0/datalogger/pkg/schema"
	"github.com/ajitpratap0/datalogger/pkg/session"
	"github.com/ajitpratap0/datalogger/pkg/testutil"
)

// Suite records runs into a directory shared by all of its tests.
type Suite struct {
	suite.Suite
	ctx    context.Context
	cancel context.CancelFunc
	dir    string
	logger *zap.Logger
}

// SetupSuite creates the run directory.
func (s *Suite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)

	dir, err := os.MkdirTemp("", "datalogger-test-*")
	require.NoError(s.T(), err)
	s.dir = dir
	s.logger = testutil.Logger(s.T())
}

// TearDownSuite removes the run directory.
func (s *Suite) TearDownSuite() {
	s.cancel()
	if s.dir != "" {
		os.RemoveAll(s.dir)
	}
}

// Context returns the suite context.
func (s *Suite) Context() context.Context {
	return s.ctx
}

// TempDir returns the directory runs are created in.
func (s *Suite) TempDir() string {
	return s.dir
}

// Logger returns the suite logger.
func (s *Suite) Logger() *zap.Logger {
	return s.logger
}

// NewSession returns a session logging to the suite logger. It is closed
// when the current test ends if the test has not closed it.
func (s *Suite) NewSession(opts ...session.Option) *session.Session {
	opts = append([]session.Option{session.WithLogger(s.logger)}, opts...)
	sess := session.New(opts...)
	s.T().Cleanup(func() { _ = sess.Close() })
	return sess
}

// CreateRun starts a run named name in the suite directory.
func (s *Suite) CreateRun(sess *session.Session, name string) *session.Run {
	run, err := sess.CreateRun(name, s.dir)
	s.Require().NoError(err)
	return run
}

// RegisterGroup registers a group and fails the test if that is refused.
func (s *Suite) RegisterGroup(sess *session.Session, name string, fields ...field.Field) schema.Handle {
	h, err := sess.RegisterGroup(name, fields...)
	s.Require().NoError(err, "group %q", name)
	return h
}

// Append records one sample and fails the test if it is refused.
func (s *Suite) Append(sess *session.Session, h schema.Handle, values ...field.Value) {
	s.Require().NoError(sess.Append(h, values...))
}
