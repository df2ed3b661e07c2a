// Package persistence stores identified process models in a bbolt file so
// they can be tuned and simulated later.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/san-kum/pidtune/internal/identify"
	"github.com/san-kum/pidtune/internal/model"
	"github.com/san-kum/pidtune/internal/ui"
)

const BucketModels = "models"

var ErrNotFound = errors.New("persistence: model not found")

// FitRecord is one stored identification result.
type FitRecord struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Created time.Time      `json:"created"`
	Model   model.Record   `json:"model"`
	Stats   identify.Stats `json:"stats"`
}

// NewFitRecord captures a fit under a fresh id.
func NewFitRecord(name string, fit *identify.FitResult) FitRecord {
	return FitRecord{
		ID:      uuid.New().String(),
		Name:    name,
		Created: time.Now().UTC(),
		Model:   fit.Model.Record(),
		Stats:   fit.Stats,
	}
}

type Persistence interface {
	Init() error

	SaveModel(rec FitRecord) (FitRecord, error)
	LoadModel(id string) (FitRecord, error)
	ListModels() ([]FitRecord, error)
	DeleteModel(id string) error
}

type persistence struct {
	dbPath string
}

func NewPersistence(dbPath string) Persistence {
	return &persistence{dbPath: dbPath}
}

func (p persistence) Init() error {
	parentDir := filepath.Dir(p.dbPath)
	_, err := os.Stat(parentDir)
	if errors.Is(err, os.ErrNotExist) {
		ui.Debug("Creating directory for db: %s", parentDir)
		if err := os.MkdirAll(parentDir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func (p persistence) openPersistence() (*bolt.DB, error) {
	return bolt.Open(p.dbPath, 0600, &bolt.Options{Timeout: 5 * time.Second})
}

func (p persistence) withDB(fn func(db *bolt.DB) error) error {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)
	return fn(db)
}

// SaveModel stores rec, assigning an id and creation time when missing,
// and returns the stored record.
func (p persistence) SaveModel(rec FitRecord) (FitRecord, error) {
	if _, err := model.FromRecord(rec.Model); err != nil {
		return rec, err
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	} else if _, err := uuid.Parse(rec.ID); err != nil {
		return rec, fmt.Errorf("invalid id %q: %w", rec.ID, err)
	}
	if rec.Created.IsZero() {
		rec.Created = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return rec, err
	}

	err = p.withDB(func(db *bolt.DB) error {
		return db.Update(func(tx *bolt.Tx) error {
			b, err := tx.CreateBucketIfNotExists([]byte(BucketModels))
			if err != nil {
				return fmt.Errorf("create bucket: %s", err)
			}
			return b.Put([]byte(rec.ID), data)
		})
	})
	return rec, err
}

func (p persistence) LoadModel(id string) (FitRecord, error) {
	var rec FitRecord
	err := p.withDB(func(db *bolt.DB) error {
		return db.View(func(tx *bolt.Tx) error {
			b := tx.Bucket([]byte(BucketModels))
			if b == nil {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			v := b.Get([]byte(id))
			if v == nil {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			return json.Unmarshal(v, &rec)
		})
	})
	return rec, err
}

// ListModels returns all readable records, newest first. Entries that no
// longer decode are skipped with a warning.
func (p persistence) ListModels() ([]FitRecord, error) {
	records := make([]FitRecord, 0)
	err := p.withDB(func(db *bolt.DB) error {
		return db.View(func(tx *bolt.Tx) error {
			b := tx.Bucket([]byte(BucketModels))
			if b == nil {
				return nil
			}
			return b.ForEach(func(k, v []byte) error {
				var rec FitRecord
				if err := json.Unmarshal(v, &rec); err != nil {
					ui.Warning("Unable to unmarshal saved model %s: %v", k, err)
					return nil
				}
				records = append(records, rec)
				return nil
			})
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Created.After(records[j].Created)
	})
	return records, nil
}

func (p persistence) DeleteModel(id string) error {
	return p.withDB(func(db *bolt.DB) error {
		return db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket([]byte(BucketModels))
			if b == nil || b.Get([]byte(id)) == nil {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			return b.Delete([]byte(id))
		})
	})
}
