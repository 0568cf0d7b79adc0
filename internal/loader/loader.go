// Package loader resolves template names to source text.
//
// Templates live on named disks, each mounted at a directory of an
// afero.Fs. A name is either "path" on the default disk or "disk::path".
// The ".edge" extension is optional in names.
package loader

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/anhnt/edge/internal/errors"
)

const (
	// DefaultDisk is used for names without a "disk::" prefix.
	DefaultDisk = "default"
	// Extension is appended to names that do not carry it.
	Extension = ".edge"

	diskSeparator = "::"
)

// PresenterFunc transforms component props before rendering.
type PresenterFunc func(props map[string]interface{}) map[string]interface{}

// Template is a resolved template.
type Template struct {
	// Name is the normalized "disk::path" name without extension.
	Name      string
	Path      string
	Source    string
	Presenter PresenterFunc
}

// Loader resolves template names.
type Loader interface {
	Resolve(name string) (*Template, error)
}

// FSLoader loads templates from mounted directories of an afero.Fs.
type FSLoader struct {
	fs afero.Fs

	mu         sync.RWMutex
	disks      map[string]string
	presenters map[string]PresenterFunc
}

// NewFSLoader creates a loader over fsys. A nil fsys uses the OS
// filesystem.
func NewFSLoader(fsys afero.Fs) *FSLoader {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &FSLoader{
		fs:         fsys,
		disks:      make(map[string]string),
		presenters: make(map[string]PresenterFunc),
	}
}

// Fs returns the underlying filesystem.
func (l *FSLoader) Fs() afero.Fs {
	return l.fs
}

// Mount maps disk to dir. An empty disk is the default disk.
func (l *FSLoader) Mount(disk, dir string) error {
	if disk == "" {
		disk = DefaultDisk
	}
	if strings.Contains(disk, diskSeparator) {
		return errors.NewConfigError(errors.ErrCodeInvalidPath,
			fmt.Sprintf("disk name %q cannot contain %q", disk, diskSeparator))
	}
	info, err := l.fs.Stat(dir)
	if err != nil {
		return errors.WrapIO(err, errors.ErrCodeInvalidPath,
			fmt.Sprintf("cannot mount %q on disk %q", dir, disk))
	}
	if !info.IsDir() {
		return errors.NewConfigError(errors.ErrCodeInvalidPath,
			fmt.Sprintf("cannot mount %q on disk %q: not a directory", dir, disk))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.disks[disk] = filepath.Clean(dir)
	return nil
}

// Unmount removes disk.
func (l *FSLoader) Unmount(disk string) {
	if disk == "" {
		disk = DefaultDisk
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.disks, disk)
}

// Mounted returns the disk to directory mapping.
func (l *FSLoader) Mounted() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]string, len(l.disks))
	for k, v := range l.disks {
		out[k] = v
	}
	return out
}

// RegisterPresenter attaches a presenter to a template name.
func (l *FSLoader) RegisterPresenter(name string, fn PresenterFunc) error {
	disk, rel, err := Split(name)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.presenters[Join(disk, rel)] = fn
	return nil
}

// Resolve implements Loader.
func (l *FSLoader) Resolve(name string) (*Template, error) {
	disk, rel, err := Split(name)
	if err != nil {
		return nil, err
	}

	l.mu.RLock()
	dir, ok := l.disks[disk]
	presenter := l.presenters[Join(disk, rel)]
	l.mu.RUnlock()
	if !ok {
		return nil, errors.NewTemplateNotFoundError(name).
			WithContext("reason", fmt.Sprintf("disk %q is not mounted", disk))
	}

	full := filepath.Join(dir, filepath.FromSlash(rel+Extension))
	data, err := afero.ReadFile(l.fs, full)
	if err != nil {
		return nil, errors.NewTemplateNotFoundError(name).WithCause(err).WithContext("path", full)
	}

	return &Template{
		Name:      Join(disk, rel),
		Path:      full,
		Source:    string(data),
		Presenter: presenter,
	}, nil
}

// PathFor maps a file under a mounted directory back to its template name.
func (l *FSLoader) PathFor(file string) (string, bool) {
	if !strings.HasSuffix(file, Extension) {
		return "", false
	}
	file = filepath.Clean(file)

	l.mu.RLock()
	defer l.mu.RUnlock()
	for disk, dir := range l.disks {
		rel, err := filepath.Rel(dir, file)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		return Join(disk, strings.TrimSuffix(filepath.ToSlash(rel), Extension)), true
	}
	return "", false
}

// List returns every template name on the mounted disks, sorted.
func (l *FSLoader) List() ([]string, error) {
	disks := l.Mounted()

	var names []string
	for disk, dir := range disks {
		err := afero.Walk(l.fs, dir, func(p string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || !strings.HasSuffix(p, Extension) {
				return nil
			}
			rel, err := filepath.Rel(dir, p)
			if err != nil {
				return err
			}
			names = append(names, Join(disk, strings.TrimSuffix(filepath.ToSlash(rel), Extension)))
			return nil
		})
		if err != nil {
			return nil, errors.WrapIO(err, errors.ErrCodeInvalidPath,
				fmt.Sprintf("cannot list templates on disk %q", disk))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Split parses a template name into its disk and cleaned relative path,
// rejecting absolute paths and paths leaving the disk.
func Split(name string) (disk, rel string, err error) {
	disk, rel = DefaultDisk, name
	if i := strings.Index(name, diskSeparator); i >= 0 {
		disk, rel = name[:i], name[i+len(diskSeparator):]
		if disk == "" {
			disk = DefaultDisk
		}
	}

	rel = strings.TrimSuffix(filepath.ToSlash(strings.TrimSpace(rel)), Extension)
	if rel == "" {
		return "", "", errors.NewConfigError(errors.ErrCodeInvalidPath, "template name cannot be empty").
			WithContext("template", name)
	}
	if strings.HasPrefix(rel, "/") || filepath.IsAbs(rel) {
		return "", "", errors.NewConfigError(errors.ErrCodeInvalidPath,
			fmt.Sprintf("template name %q must be relative", name))
	}
	cleaned := path.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", "", errors.NewConfigError(errors.ErrCodeInvalidPath,
			fmt.Sprintf("template name %q escapes its disk", name))
	}
	return disk, cleaned, nil
}

// Join builds the normalized name of a template.
func Join(disk, rel string) string {
	if disk == "" || disk == DefaultDisk {
		return rel
	}
	return disk + diskSeparator + rel
}
