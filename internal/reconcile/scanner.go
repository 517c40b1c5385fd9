package reconcile

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	albumsRepo "github.com/veloria/phototheque/database/repo/albums"
	"github.com/veloria/phototheque/internal/albums"
	"github.com/veloria/phototheque/storage"
	"github.com/veloria/phototheque/utils"
	"golang.org/x/sync/errgroup"
)

// Report lists the record/file-store divergences found by one pass.
type Report struct {
	// OrphanFiles are files on disk with no record entry, keyed by
	// album folder.
	OrphanFiles map[string][]string

	// MissingFiles are record entries whose file is gone, keyed by
	// album folder.
	MissingFiles map[string][]string

	// OrphanDirs are album folders with no album record.
	OrphanDirs []string
}

// Clean reports whether the two stores agree.
func (r *Report) Clean() bool {
	return len(r.OrphanFiles) == 0 && len(r.MissingFiles) == 0 && len(r.OrphanDirs) == 0
}

// Summary renders a one-line overview for logs.
func (r *Report) Summary() string {
	orphans := 0
	for _, names := range r.OrphanFiles {
		orphans += len(names)
	}
	missing := 0
	for _, names := range r.MissingFiles {
		missing += len(names)
	}
	return fmt.Sprintf("%d orphaned files, %d missing files, %d orphaned folders", orphans, missing, len(r.OrphanDirs))
}

// Scanner periodically compares the record store against the file
// store. The write paths accept transient inconsistencies (orphaned
// files after a failed record update, orphaned folders after a failed
// folder delete); this is the repair path.
type Scanner struct {
	repo     *albumsRepo.Repository
	files    storage.Provider
	interval time.Duration
	repair   bool
	stopCh   chan struct{}
}

// NewScanner creates a reconciliation scanner. With repair set, each
// pass deletes orphaned files and folders and prunes record entries
// whose file is gone; otherwise divergences are only logged.
func NewScanner(repo *albumsRepo.Repository, files storage.Provider, interval time.Duration, repair bool) *Scanner {
	return &Scanner{
		repo:     repo,
		files:    files,
		interval: interval,
		repair:   repair,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the periodic scan loop. The first pass runs
// immediately.
func (s *Scanner) Start() {
	ticker := time.NewTicker(s.interval)
	utils.SafeGo(func() {
		s.scan()

		for {
			select {
			case <-ticker.C:
				s.scan()
			case <-s.stopCh:
				ticker.Stop()
				return
			}
		}
	})
	log.Printf("[Reconcile] Started with interval %v, repair=%t", s.interval, s.repair)
}

// Stop terminates the scan loop.
func (s *Scanner) Stop() {
	close(s.stopCh)
}

func (s *Scanner) scan() {
	report, err := s.Run(context.Background())
	if err != nil {
		log.Printf("[Reconcile] Pass failed: %v", err)
		return
	}
	if report.Clean() {
		return
	}
	log.Printf("[Reconcile] Divergences found: %s", report.Summary())
}

// Run executes one reconciliation pass and returns its report. Albums
// are compared concurrently; repairs, when enabled, happen inline.
func (s *Scanner) Run(ctx context.Context) (*Report, error) {
	repo := s.repo.WithContext(ctx)

	records, err := repo.GetAllAlbums()
	if err != nil {
		return nil, fmt.Errorf("failed to list albums: %w", err)
	}

	dirs, err := s.files.ListAlbumDirs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list album folders: %w", err)
	}

	report := &Report{
		OrphanFiles:  make(map[string][]string),
		MissingFiles: make(map[string][]string),
	}

	folders := make(map[string]bool, len(records))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, album := range records {
		album := album
		folder := albums.FolderID(album.ID)
		folders[folder] = true

		g.Go(func() error {
			orphans, missing, err := s.compareAlbum(gctx, album.ID, folder)
			if err != nil {
				return err
			}
			mu.Lock()
			if len(orphans) > 0 {
				report.OrphanFiles[folder] = orphans
			}
			if len(missing) > 0 {
				report.MissingFiles[folder] = missing
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		if !folders[dir] {
			report.OrphanDirs = append(report.OrphanDirs, dir)
		}
	}
	sort.Strings(report.OrphanDirs)

	if s.repair {
		if err := s.repairDirs(ctx, report.OrphanDirs); err != nil {
			return report, err
		}
	}

	return report, nil
}

// compareAlbum diffs one album's record entries against its folder
// contents, repairing inline when enabled.
func (s *Scanner) compareAlbum(ctx context.Context, albumID uint, folder string) (orphans, missing []string, err error) {
	repo := s.repo.WithContext(ctx)

	album, err := repo.GetAlbumByID(albumID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load album %d: %w", albumID, err)
	}

	onDisk, err := s.files.ListFiles(ctx, folder)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list folder %s: %w", folder, err)
	}

	diskSet := make(map[string]bool, len(onDisk))
	for _, name := range onDisk {
		diskSet[name] = true
	}

	recorded := make(map[string]bool, len(album.Images))
	for _, entry := range album.Images {
		recorded[entry.FileName] = true
		if diskSet[entry.FileName] {
			continue
		}
		missing = append(missing, entry.FileName)
		if s.repair {
			if _, _, err := repo.RemoveImageByKey(albumID, entry.Key); err != nil {
				return nil, nil, fmt.Errorf("failed to prune entry %s: %w", entry.Key, err)
			}
			log.Printf("[Reconcile] Pruned entry %s for missing file %s/%s", entry.Key, folder, entry.FileName)
		}
	}

	for _, name := range onDisk {
		if recorded[name] {
			continue
		}
		orphans = append(orphans, name)
		if s.repair {
			if err := s.files.Delete(ctx, folder, name); err != nil {
				return nil, nil, fmt.Errorf("failed to delete orphaned file %s/%s: %w", folder, name, err)
			}
			log.Printf("[Reconcile] Deleted orphaned file %s/%s", folder, name)
		}
	}

	sort.Strings(orphans)
	sort.Strings(missing)
	return orphans, missing, nil
}

func (s *Scanner) repairDirs(ctx context.Context, dirs []string) error {
	for _, dir := range dirs {
		if err := s.files.DeleteAlbumDir(ctx, dir); err != nil {
			return fmt.Errorf("failed to delete orphaned folder %s: %w", dir, err)
		}
		log.Printf("[Reconcile] Deleted orphaned folder %s", dir)
	}
	return nil
}

// StartScanner creates and starts a scanner.
func StartScanner(repo *albumsRepo.Repository, files storage.Provider, interval time.Duration, repair bool) *Scanner {
	scanner := NewScanner(repo, files, interval, repair)
	scanner.Start()
	return scanner
}
