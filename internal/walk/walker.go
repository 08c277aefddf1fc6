package walk

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/quay/pkgscan/model"
)

// walkTree is Phase 1 (spec §5 "single-threaded production of FileInfos;
// each file acquires a stable integer index"). Symlinks are followed
// (spec §6 "Input"); a canonical-path visited set detects cycles, since a
// symlink loop would otherwise recurse forever.
func walkTree(root string) ([]*model.FileInfo, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("pkgscan/walk: stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("pkgscan/walk: root %s is not a directory", root)
	}

	w := &walker{visited: map[string]bool{}}
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		realRoot = root
	}
	w.visited[realRoot] = true

	if err := w.walk(root, ""); err != nil {
		return nil, err
	}
	return w.files, nil
}

type walker struct {
	files   []*model.FileInfo
	visited map[string]bool
}

func (w *walker) walk(dir, rel string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.addErrorFile(rel, err)
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		relPath := path.Join(rel, e.Name())

		lst, err := os.Lstat(full)
		if err != nil {
			w.addErrorFile(relPath, err)
			continue
		}

		if lst.Mode()&os.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(full)
			if err != nil {
				w.addErrorFile(relPath, err)
				continue
			}
			tinfo, err := os.Stat(target)
			if err != nil {
				w.addErrorFile(relPath, err)
				continue
			}
			if tinfo.IsDir() {
				w.files = append(w.files, w.newFileInfo(relPath, model.Directory, 0))
				if w.visited[target] {
					continue // symlink cycle or already-visited directory: record it, don't recurse
				}
				w.visited[target] = true
				if err := w.walk(target, relPath); err != nil {
					return err
				}
				continue
			}
			w.files = append(w.files, w.newFileInfo(relPath, model.File, tinfo.Size()))
			continue
		}

		if lst.IsDir() {
			w.files = append(w.files, w.newFileInfo(relPath, model.Directory, 0))
			if err := w.walk(full, relPath); err != nil {
				return err
			}
			continue
		}

		w.files = append(w.files, w.newFileInfo(relPath, model.File, lst.Size()))
	}
	return nil
}

func (w *walker) newFileInfo(relPath string, ft model.FileType, size int64) *model.FileInfo {
	base := path.Base(relPath)
	ext := ""
	if dot := lastDot(base); dot >= 0 {
		ext = base[dot+1:]
	}
	return &model.FileInfo{
		Index:     len(w.files),
		Path:      relPath,
		Name:      base,
		BaseName:  base,
		Extension: ext,
		FileType:  ft,
		Size:      size,
	}
}

func (w *walker) addErrorFile(relPath string, err error) {
	w.files = append(w.files, &model.FileInfo{
		Index:      len(w.files),
		Path:       relPath,
		Name:       path.Base(relPath),
		BaseName:   path.Base(relPath),
		FileType:   model.File,
		ScanErrors: []string{err.Error()},
	})
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

// sniffMimeType reads up to 512 bytes and classifies content with the
// standard library's content sniffer (spec §6 "Binary files are not read
// except by specific parsers"): no mime-sniffing library appears anywhere
// in the retrieved corpus, so this stays on net/http.DetectContentType
// rather than introducing an unwired dependency.
func sniffMimeType(content []byte) string {
	if len(content) > 512 {
		content = content[:512]
	}
	return http.DetectContentType(content)
}
