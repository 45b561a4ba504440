package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"comanda/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sqlKV struct{ db *gorm.DB }

// NewSQLKV keeps every key as a row of kv_entradas. Works on any GORM
// dialect; the server uses Postgres and single-terminal installs use SQLite.
func NewSQLKV(db *gorm.DB) (KV, error) {
	if err := db.AutoMigrate(&model.EntradaKV{}); err != nil {
		return nil, fmt.Errorf("migrar kv_entradas: %w", err)
	}
	return &sqlKV{db: db}, nil
}

func (s *sqlKV) Get(ctx context.Context, clave string) ([]byte, error) {
	var e model.EntradaKV
	err := s.db.WithContext(ctx).Where("clave = ?", clave).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClaveNoExiste
	}
	if err != nil {
		return nil, err
	}
	return e.Valor, nil
}

func (s *sqlKV) SetMany(ctx context.Context, valores map[string][]byte) error {
	claves := make([]string, 0, len(valores))
	for k := range valores {
		claves = append(claves, k)
	}
	// stable lock order across concurrent writers
	sort.Strings(claves)

	ahora := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, k := range claves {
			e := model.EntradaKV{Clave: k, Valor: valores[k], UpdatedAt: ahora}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "clave"}},
				DoUpdates: clause.AssignmentColumns([]string{"valor", "updated_at"}),
			}).Create(&e).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil && esDiscoLleno(err) {
		return fmt.Errorf("%w: %v", ErrCuotaExcedida, err)
	}
	return err
}

func (s *sqlKV) Delete(ctx context.Context, claves ...string) error {
	if len(claves) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Where("clave IN ?", claves).Delete(&model.EntradaKV{}).Error
}

func (s *sqlKV) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// SQLite reports SQLITE_FULL; Postgres uses SQLSTATE 53100 (disk_full).
func esDiscoLleno(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database or disk is full") ||
		strings.Contains(msg, "SQLSTATE 53100") ||
		strings.Contains(msg, "could not extend file")
}
