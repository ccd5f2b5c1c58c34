package store

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cspx/cspx/internal/statecodec"
)

const indexMagic = "cspx-disk-index-v1"

// DiskOptions configures lock-contention retry and index flush cadence.
type DiskOptions struct {
	LockRetryCount   int
	LockRetryBackoff time.Duration
	IndexFlushEvery  int // must be >= 1
}

func DefaultDiskOptions() DiskOptions {
	return DiskOptions{LockRetryCount: 0, LockRetryBackoff: 0, IndexFlushEvery: 1}
}

// DiskMetrics records the counters spec.md's resource model calls for:
// lock contention and retry counts, alongside basic I/O tallies.
type DiskMetrics struct {
	LockContentionEvents int
	LockRetries          int
	IndexEntriesLoaded   int
	IndexEntriesRebuilt  int
	InsertCalls          int
	InsertCollisions     int
	LogWriteOps          int
	IndexWriteOps        int
}

// Disk is an append-only log of hex-encoded canonical byte records plus a
// side-car index file, guarded by an exclusive lock file.
type Disk struct {
	logPath, idxPath, lockPath string
	lockFile                   *os.File
	logFile                    *os.File

	index          map[string]struct{}
	currentLogLen  int64
	flushEvery     int
	pendingUpdates int
	metrics        DiskMetrics
}

// OpenDisk acquires the store at path (its log file; idx/lock are derived by
// extension) per spec.md §4.E's open protocol.
func OpenDisk(path string, opts DiskOptions) (*Disk, error) {
	if opts.IndexFlushEvery < 1 {
		return nil, fmt.Errorf("store: IndexFlushEvery must be >= 1")
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	d := &Disk{
		logPath:    base + ".log",
		idxPath:    base + ".idx",
		lockPath:   base + ".lock",
		index:      map[string]struct{}{},
		flushEvery: opts.IndexFlushEvery,
	}

	if dir := filepath.Dir(d.logPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	if err := d.acquireLock(opts); err != nil {
		return nil, err
	}

	logFile, err := os.OpenFile(d.logPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		d.releaseLock()
		return nil, err
	}
	d.logFile = logFile

	info, err := logFile.Stat()
	if err != nil {
		d.Close()
		return nil, err
	}
	logLen := info.Size()

	index, currentLen, err := d.openIndex(logLen)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.index = index
	d.currentLogLen = currentLen
	return d, nil
}

func (d *Disk) acquireLock(opts DiskOptions) error {
	retries := 0
	for {
		f, err := os.OpenFile(d.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "pid=%d\n", os.Getpid())
			d.lockFile = f
			return nil
		}
		if !os.IsExist(err) || retries >= opts.LockRetryCount {
			return fmt.Errorf("store: state store is already open: %s", d.lockPath)
		}
		d.metrics.LockContentionEvents++
		d.metrics.LockRetries++
		retries++
		if opts.LockRetryBackoff > 0 {
			time.Sleep(opts.LockRetryBackoff)
		}
	}
}

func (d *Disk) releaseLock() {
	if d.lockFile != nil {
		d.lockFile.Close()
		os.Remove(d.lockPath)
		d.lockFile = nil
	}
}

// openIndex loads the side-car index if its header's log_len matches the
// log's actual size, else rebuilds from the log itself, truncating any
// trailing unterminated line.
func (d *Disk) openIndex(logLen int64) (map[string]struct{}, int64, error) {
	if index, ok, err := d.loadIndexFile(logLen); err != nil {
		return nil, 0, err
	} else if ok {
		return index, logLen, nil
	}

	index, normalizedLen, err := d.rebuildFromLog()
	if err != nil {
		return nil, 0, err
	}
	if err := d.writeIndexFile(index, normalizedLen); err != nil {
		return nil, 0, err
	}
	return index, normalizedLen, nil
}

func (d *Disk) loadIndexFile(expectedLogLen int64) (map[string]struct{}, bool, error) {
	f, err := os.Open(d.idxPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, false, nil
	}
	header := strings.TrimSuffix(scanner.Text(), "\r")
	rest, ok := strings.CutPrefix(header, indexMagic+" log_len=")
	if !ok {
		return nil, false, nil
	}
	logLen, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return nil, false, nil
	}
	if logLen != expectedLogLen {
		return nil, false, nil
	}

	index := map[string]struct{}{}
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		bytes, ok := decodeValidatedRecord(line)
		if !ok {
			return nil, false, fmt.Errorf("store: invalid index record in %s", d.idxPath)
		}
		index[string(bytes)] = struct{}{}
		d.metrics.IndexEntriesLoaded++
	}
	if err := scanner.Err(); err != nil {
		return nil, false, err
	}
	return index, true, nil
}

// rebuildFromLog walks the log byte-for-byte, validating each complete
// newline-terminated record, and returns the normalized (truncated) length.
func (d *Disk) rebuildFromLog() (map[string]struct{}, int64, error) {
	data, err := os.ReadFile(d.logPath)
	if err != nil {
		return nil, 0, err
	}
	index := map[string]struct{}{}
	lineStart := 0
	normalizedLen := 0
	for cursor, b := range data {
		if b != '\n' {
			continue
		}
		line := data[lineStart:cursor]
		text := strings.TrimSuffix(string(line), "\r")
		if text != "" {
			bytes, ok := decodeValidatedRecord(text)
			if !ok {
				return nil, 0, fmt.Errorf("store: invalid log record")
			}
			index[string(bytes)] = struct{}{}
			d.metrics.IndexEntriesRebuilt++
		}
		lineStart = cursor + 1
		normalizedLen = lineStart
	}
	if lineStart < len(data) {
		if err := d.logFile.Truncate(int64(normalizedLen)); err != nil {
			return nil, 0, err
		}
	} else {
		normalizedLen = len(data)
	}
	return index, int64(normalizedLen), nil
}

func decodeValidatedRecord(line string) ([]byte, bool) {
	bytes, err := hex.DecodeString(line)
	if err != nil || len(bytes) == 0 {
		return nil, false
	}
	if _, err := statecodec.Decode(bytes); err != nil {
		return nil, false
	}
	return bytes, true
}

func (d *Disk) writeIndexFile(index map[string]struct{}, logLen int64) error {
	tmpPath := d.idxPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%s log_len=%d\n", indexMagic, logLen)

	records := make([]string, 0, len(index))
	for bytes := range index {
		records = append(records, hex.EncodeToString([]byte(bytes)))
	}
	sort.Strings(records)
	for _, r := range records {
		fmt.Fprintln(w, r)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	d.metrics.IndexWriteOps++
	return os.Rename(tmpPath, d.idxPath)
}

// Insert appends a new record to the log and index; reports duplicate on a
// match without touching disk. Every flushEvery inserts, the side-car index
// is rewritten atomically.
func (d *Disk) Insert(bytes []byte) (bool, error) {
	d.metrics.InsertCalls++
	key := string(bytes)
	if _, ok := d.index[key]; ok {
		d.metrics.InsertCollisions++
		return false, nil
	}

	encoded := hex.EncodeToString(bytes)
	if _, err := d.logFile.Seek(0, 2); err != nil {
		return false, err
	}
	if _, err := fmt.Fprintln(d.logFile, encoded); err != nil {
		return false, err
	}
	d.metrics.LogWriteOps++
	info, err := d.logFile.Stat()
	if err != nil {
		return false, err
	}
	d.currentLogLen = info.Size()

	d.index[key] = struct{}{}
	d.pendingUpdates++
	if d.pendingUpdates >= d.flushEvery {
		if err := d.flushIndexSnapshot(); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (d *Disk) flushIndexSnapshot() error {
	if d.pendingUpdates == 0 {
		return nil
	}
	if err := d.writeIndexFile(d.index, d.currentLogLen); err != nil {
		return err
	}
	d.pendingUpdates = 0
	return nil
}

func (d *Disk) Len() int { return len(d.index) }

func (d *Disk) Metrics() DiskMetrics { return d.metrics }

// Close flushes any pending index snapshot and releases the exclusive lock.
func (d *Disk) Close() error {
	err := d.flushIndexSnapshot()
	if d.logFile != nil {
		d.logFile.Close()
	}
	d.releaseLock()
	return err
}
