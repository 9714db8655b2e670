package storage

import (
	"time"

	qcerrors "github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/errors"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/verdict"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// verdictRow is one complaint's verdict. Version increases on every change so
// concurrent reviewers can see which record was edited last.
type verdictRow struct {
	ComplaintNumber string `gorm:"primaryKey"`
	Quality         string `gorm:"not null"`
	Comment         string
	Version         int `gorm:"not null;default:1"`
	UpdatedAt       time.Time
}

func (verdictRow) TableName() string {
	return "verdicts"
}

// SQLite stores verdicts per record.
//
// Unlike JSONFile, Save only writes records whose verdict changed and never
// deletes rows, so two sessions saving different records do not overwrite
// each other. Two sessions saving the same record are still last-writer-wins
// for that record.
type SQLite struct {
	db     *gorm.DB
	path   string
	logger *zap.Logger
}

// OpenSQLite opens (creating if needed) the database at path and migrates the
// verdict table.
func OpenSQLite(path string, log *zap.Logger) (*SQLite, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, qcerrors.NewPersistenceError("open", path, err)
	}
	if err := db.AutoMigrate(&verdictRow{}); err != nil {
		return nil, qcerrors.NewPersistenceError("migrate", path, err)
	}

	log.Info("✓ SQLite verdict store ready", zap.String("path", path))
	return &SQLite{db: db, path: path, logger: log}, nil
}

// Load reads every stored verdict.
func (s *SQLite) Load() (map[string]verdict.Verdict, error) {
	var rows []verdictRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, qcerrors.NewPersistenceError("load", s.path, err)
	}

	out := make(map[string]verdict.Verdict, len(rows))
	for _, r := range rows {
		q, _ := verdict.ParseQuality(r.Quality)
		out[r.ComplaintNumber] = verdict.Verdict{Quality: q, Comment: r.Comment}
	}
	return out, nil
}

// Save upserts the records whose verdict differs from the stored one, bumping
// their version, inside a single transaction.
func (s *SQLite) Save(verdicts map[string]verdict.Verdict) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing []verdictRow
		if err := tx.Find(&existing).Error; err != nil {
			return err
		}
		current := make(map[string]verdictRow, len(existing))
		for _, r := range existing {
			current[r.ComplaintNumber] = r
		}

		var changed []verdictRow
		for id, v := range verdicts {
			row := verdictRow{
				ComplaintNumber: id,
				Quality:         v.Quality.String(),
				Comment:         v.Comment,
				Version:         1,
			}
			if prev, ok := current[id]; ok {
				if prev.Quality == row.Quality && prev.Comment == row.Comment {
					continue
				}
				row.Version = prev.Version + 1
			}
			changed = append(changed, row)
		}

		if len(changed) == 0 {
			return nil
		}
		s.logger.Debug("saving changed verdicts", zap.Int("changed", len(changed)))
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "complaint_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"quality", "comment", "version", "updated_at"}),
		}).CreateInBatches(changed, 200).Error
	})
	if err != nil {
		return qcerrors.NewPersistenceError("save", s.path, err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
