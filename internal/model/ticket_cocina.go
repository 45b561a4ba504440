package model

// ConteoAcompanamientos is the per-ticket side-dish tally shown to the kitchen.
type ConteoAcompanamientos struct {
	Ensaladas     int `json:"ensaladas"`
	Papas         int `json:"papas"`
	Patacones     int `json:"patacones"`
	Yucas         int `json:"yucas"`
	ArrozMenestra int `json:"arrozMenestra"`
	ArrozMoro     int `json:"arrozMoro"`
}

// TicketCocina is the kitchen projection of an order: same id, only the
// items that need preparation, plus the side tally over every item.
type TicketCocina struct {
	ID              string                `json:"id"`
	Mesa            string                `json:"mesa"`
	Cliente         string                `json:"cliente"`
	Items           []ItemPedido          `json:"items"`
	Fecha           string                `json:"fecha"`
	Hora            string                `json:"hora"`
	Timestamp       int64                 `json:"timestamp"`
	Acompanamientos ConteoAcompanamientos `json:"acompañamientos"`
	// SinClasificar lists side names that matched no bucket.
	SinClasificar []string `json:"sinClasificar,omitempty"`
}
