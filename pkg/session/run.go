package session

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/host"
	"go.uber.org/zap"

	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
	"github.com/ajitpratap0/datalogger/pkg/storage"
)

// RunDirLayout is the time format of the run directory suffix.
const RunDirLayout = "2006-01-02_15-04-05"

// maxRunDirAttempts bounds the _N suffixes tried when a run directory name
// is taken.
const maxRunDirAttempts = 1000

// Run is one recording bound to a directory.
type Run struct {
	ID        string
	BaseName  string
	Parent    string
	Directory string
	Created   time.Time
}

// createRunDir creates <parent>/<base>_<timestamp>, or <..>_N if that name
// is taken.
func createRunDir(parent, base string, now time.Time) (string, error) {
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to create run parent directory").
			WithDetail("dir", parent)
	}

	name := base + "_" + now.Format(RunDirLayout)
	for i := 0; i < maxRunDirAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = name + "_" + strconv.Itoa(i)
		}
		dir := filepath.Join(parent, candidate)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to create run directory").
				WithDetail("dir", dir)
		}
	}
	return "", dlerrors.Newf(dlerrors.ErrorTypeIO, "no free run directory name for %q", name).
		WithDetail("dir", parent)
}

func newRunID() string {
	return uuid.NewString()
}

// hostInfo collects the host section of the manifest. Failures degrade to
// what the runtime knows.
func hostInfo(logger *zap.Logger) storage.HostInfo {
	info := storage.HostInfo{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
		CPUs: runtime.NumCPU(),
	}
	stat, err := host.Info()
	if err != nil {
		logger.Warn("failed to read host info", zap.Error(err))
		info.Hostname, _ = os.Hostname()
		return info
	}
	info.Hostname = stat.Hostname
	info.Platform = stat.Platform
	info.PlatformVersion = stat.PlatformVersion
	info.KernelVersion = stat.KernelVersion
	if stat.KernelArch != "" {
		info.Arch = stat.KernelArch
	}
	return info
}
