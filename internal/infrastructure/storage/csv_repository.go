package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	"TopArtistsTracker/internal/domain"
	"TopArtistsTracker/internal/ports"
)

const (
	fileSuffix   = "-TOP-SPOTIFY-ARTISTS.csv"
	lockFileName = ".topartists.lock"
	lockRetry    = 50 * time.Millisecond
)

var (
	csvHeader   = []string{"Id", "Name", "Rank"}
	fileNameExp = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})` + regexp.QuoteMeta(fileSuffix) + `$`)
)

// CSVRepository keeps one delimited file per day inside a directory.
type CSVRepository struct {
	dir  string
	loc  *time.Location
	lock *flock.Flock
}

var _ ports.SnapshotRepository = (*CSVRepository)(nil)

// NewCSVRepository stores snapshots under dir. Days read back from file names
// are placed in loc.
func NewCSVRepository(dir string, loc *time.Location) *CSVRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &CSVRepository{
		dir:  dir,
		loc:  loc,
		lock: flock.New(filepath.Join(dir, lockFileName)),
	}
}

// FileName returns the snapshot file name for day, e.g. 2024-3-9-TOP-SPOTIFY-ARTISTS.csv.
func FileName(day time.Time) string {
	return fmt.Sprintf("%d-%d-%d%s", day.Year(), int(day.Month()), day.Day(), fileSuffix)
}

// Save writes the snapshot atomically, replacing an earlier capture of the same day.
func (r *CSVRepository) Save(ctx context.Context, snapshot domain.Snapshot) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	locked, err := r.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("lock snapshot dir: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock snapshot dir: %s is held by another process", r.lock.Path())
	}
	defer r.lock.Unlock()

	path := filepath.Join(r.dir, FileName(snapshot.Day))
	tmp, err := os.CreateTemp(r.dir, ".snapshot-*.csv")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeRows(tmp, snapshot.Items); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace snapshot %s: %w", path, err)
	}
	return nil
}

func writeRows(w io.Writer, items []domain.RankedItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, item := range items {
		if err := cw.Write([]string{item.ID, item.Name, strconv.Itoa(item.Rank)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Load reads the snapshot of day. A missing file yields domain.ErrNoSnapshot;
// an unreadable one yields *domain.LoadError.
func (r *CSVRepository) Load(ctx context.Context, day time.Time) (domain.Snapshot, error) {
	day = domain.TruncateDay(day)
	f, err := os.Open(filepath.Join(r.dir, FileName(day)))
	if errors.Is(err, os.ErrNotExist) {
		return domain.Snapshot{}, domain.ErrNoSnapshot
	}
	if err != nil {
		return domain.Snapshot{}, &domain.LoadError{Day: day, Err: err}
	}
	defer f.Close()

	items, err := readRows(f)
	if err != nil {
		return domain.Snapshot{}, &domain.LoadError{Day: day, Err: err}
	}
	return domain.Snapshot{Day: day, Items: items}, nil
}

func readRows(r io.Reader) ([]domain.RankedItem, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty file")
	}
	if err != nil {
		return nil, err
	}
	for i, name := range csvHeader {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected header %v", header)
		}
	}

	items := []domain.RankedItem{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rank, err := strconv.Atoi(record[2])
		if err != nil || rank < 1 {
			line, _ := cr.FieldPos(2)
			return nil, fmt.Errorf("line %d: invalid rank %q", line, record[2])
		}
		items = append(items, domain.RankedItem{ID: record[0], Name: record[1], Rank: rank})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Rank < items[j].Rank })
	return items, nil
}

// Days lists captured days in ascending order.
func (r *CSVRepository) Days(ctx context.Context) ([]time.Time, error) {
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list snapshot dir: %w", err)
	}

	var days []time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := fileNameExp.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		dayOfMonth, _ := strconv.Atoi(m[3])
		day := time.Date(year, time.Month(month), dayOfMonth, 0, 0, 0, 0, r.loc)
		// time.Date normalizes impossible dates such as 2024-2-31
		if day.Year() != year || int(day.Month()) != month || day.Day() != dayOfMonth {
			continue
		}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}
