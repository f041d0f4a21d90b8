package services

// Типы событий, рассылаемых подключённым клиентам.
const (
	EventTournamentCreated = "TOURNAMENT_CREATED"
	EventTournamentUpdated = "TOURNAMENT_UPDATED"
	EventTournamentDeleted = "TOURNAMENT_DELETED"
	EventNewsPublished     = "NEWS_PUBLISHED"
)

// EventPublisher рассылает событие всем подключённым клиентам.
// Реализуется websocket-хабом; доставка не гарантируется.
type EventPublisher interface {
	Publish(eventType string, payload interface{})
}
