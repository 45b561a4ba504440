package service

import (
	"time"
)

const (
	FormatoFecha = "02/01/2006"
	FormatoHora  = "15:04"
)

// Reloj is the time source every service stamps records with. Tests pass a
// fixed clock; the server passes RelojSistema in the configured zone.
type Reloj func() time.Time

func RelojSistema(loc *time.Location) Reloj {
	return func() time.Time { return time.Now().In(loc) }
}

type sello struct {
	fecha string
	hora  string
	ms    int64
	t     time.Time
}

func (r Reloj) sello() sello {
	t := r()
	return sello{fecha: t.Format(FormatoFecha), hora: t.Format(FormatoHora), ms: t.UnixMilli(), t: t}
}
