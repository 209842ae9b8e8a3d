package draw_api_client

const (
	// API Endpoints
	NextDrawEndpoint = "/next-draw"
	ScheduleEndpoint = "/schedule"

	// Query parameters
	DateParam = "fecha"
)

// Wire values of a schedule entry's estado field.
const (
	EstadoJugado    = "JUGADO"
	EstadoPendiente = "PENDIENTE"
	EstadoProximo   = "PROXIMO"
)
