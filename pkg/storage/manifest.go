package storage

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/datalogger/pkg/dlerrors"
)

// ManifestFile is the name of the run manifest inside a run directory.
const ManifestFile = "run.yaml"

// Manifest describes a run. It is informational: artifacts are
// self-describing and readable without it.
type Manifest struct {
	ID                string          `yaml:"id"`
	BaseName          string          `yaml:"base_name"`
	Created           time.Time       `yaml:"created"`
	Updated           time.Time       `yaml:"updated"`
	Closed            bool            `yaml:"closed"`
	Host              HostInfo        `yaml:"host"`
	Codec             string          `yaml:"codec"`
	Level             string          `yaml:"level"`
	AllowedBufferSize int64           `yaml:"allowed_buffer_size"`
	Groups            []ManifestGroup `yaml:"groups"`
}

// HostInfo identifies the machine a run was recorded on.
type HostInfo struct {
	Hostname        string `yaml:"hostname"`
	OS              string `yaml:"os"`
	Platform        string `yaml:"platform,omitempty"`
	PlatformVersion string `yaml:"platform_version,omitempty"`
	KernelVersion   string `yaml:"kernel_version,omitempty"`
	Arch            string `yaml:"arch"`
	CPUs            int    `yaml:"cpus"`
}

// ManifestGroup summarizes one group artifact.
type ManifestGroup struct {
	Name        string `yaml:"name"`
	File        string `yaml:"file"`
	Fingerprint string `yaml:"fingerprint"`
	Columns     int    `yaml:"columns"`
	Rows        int64  `yaml:"rows"`
	Frames      int    `yaml:"frames"`
	Bytes       int64  `yaml:"bytes"`
}

// WriteManifest replaces the manifest of the run in dir. The new content is
// written to a temporary file and renamed into place.
func WriteManifest(dir string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return dlerrors.Wrap(err, dlerrors.ErrorTypeInternal, "failed to marshal manifest")
	}

	tmp, err := os.CreateTemp(dir, ManifestFile+".*")
	if err != nil {
		return dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to create manifest").
			WithDetail("dir", dir)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to write manifest").
			WithDetail("dir", dir)
	}
	if err := tmp.Close(); err != nil {
		return dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to write manifest").
			WithDetail("dir", dir)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, ManifestFile)); err != nil {
		return dlerrors.Wrap(err, dlerrors.ErrorTypeIO, "failed to install manifest").
			WithDetail("dir", dir)
	}
	return nil
}

// ReadManifest reads the manifest of the run in dir.
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path) //nolint:gosec // G304: run directory chosen by caller
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeNotFound, "run manifest not found").
				WithDetail("path", path)
		}
		return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeRead, "failed to read manifest").
			WithDetail("path", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, dlerrors.Wrap(err, dlerrors.ErrorTypeRead, "malformed manifest").
			WithDetail("path", path)
	}
	return &m, nil
}
