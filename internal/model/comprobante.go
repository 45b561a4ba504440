package model

import (
	"time"
)

// ComprobanteGuardado is a rendered receipt. The list under
// comprobantes_guardados is the first thing evicted under storage pressure.
type ComprobanteGuardado struct {
	ID    string `json:"id"`
	PDF   []byte `json:"pdf"`
	Fecha string `json:"fecha"`
	Hora  string `json:"hora"`
}

// EntradaKV is the row shape of the SQL-backed key/value store.
type EntradaKV struct {
	Clave     string `gorm:"primaryKey;type:varchar(200)"`
	Valor     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (EntradaKV) TableName() string { return "kv_entradas" }
