package repository

import "time"

// Persisted keys. Names are kept from the legacy browser store so existing
// exports can be loaded as-is.
const (
	ClaveHistorial      = "historial"
	ClaveCocina         = "cocina"
	ClavePagos          = "pagos"
	ClaveReportes       = "reportes_pagos"
	ClaveGuardados      = "pedidos_guardados"
	ClaveUltimaLimpieza = "ultima_limpieza"
	ClaveComprobantes   = "comprobantes_guardados"

	prefijoRespaldoHistorial = "respaldo_historial_"
	prefijoRespaldoPagos     = "respaldo_pagos_"
	prefijoRespaldoReportes  = "respaldo_reportes_"
	prefijoSesion            = "sesion_pedido:"
)

// ClavesRespaldo returns the three backup keys for the given day.
func ClavesRespaldo(dia time.Time) (historial, pagos, reportes string) {
	sufijo := dia.Format("2006-01-02")
	return prefijoRespaldoHistorial + sufijo, prefijoRespaldoPagos + sufijo, prefijoRespaldoReportes + sufijo
}
