package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Hybrid holds states in memory until the count exceeds spillThreshold, then
// spills every member to a disk store and mirrors all further inserts there
// too, so membership stays consistent across both backends.
type Hybrid struct {
	mem            *Mem
	disk           *Disk
	spillThreshold int
	diskPath       string
	diskOpts       DiskOptions
}

func NewHybrid(spillThreshold int, diskPath string, opts DiskOptions) *Hybrid {
	return &Hybrid{mem: NewMem(), spillThreshold: spillThreshold, diskPath: diskPath, diskOpts: opts}
}

func (h *Hybrid) Insert(bytes []byte) (bool, error) {
	isNew, _ := h.mem.Insert(bytes)
	if !isNew {
		return false, nil
	}

	if h.disk == nil {
		if h.mem.Len() > h.spillThreshold {
			if err := h.spill(); err != nil {
				delete(h.mem.set, string(bytes))
				return false, err
			}
		}
		return true, nil
	}

	ok, err := h.disk.Insert(bytes)
	if err != nil {
		delete(h.mem.set, string(bytes))
		return false, err
	}
	return ok, nil
}

func (h *Hybrid) spill() error {
	if err := ensureFresh(h.diskPath); err != nil {
		return err
	}
	disk, err := OpenDisk(h.diskPath, h.diskOpts)
	if err != nil {
		return err
	}
	for key := range h.mem.set {
		if _, err := disk.Insert([]byte(key)); err != nil {
			disk.Close()
			return err
		}
	}
	h.disk = disk
	return nil
}

func ensureFresh(path string) error {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for _, suffix := range []string{".log", ".idx", ".lock"} {
		if _, err := os.Stat(base + suffix); err == nil {
			return fmt.Errorf("store: hybrid spill target already exists: %s", base+suffix)
		}
	}
	return nil
}

func (h *Hybrid) Len() int {
	if h.disk != nil {
		return h.disk.Len()
	}
	return h.mem.Len()
}

// Close releases the underlying disk store, if one was opened.
func (h *Hybrid) Close() error {
	if h.disk != nil {
		return h.disk.Close()
	}
	return nil
}
