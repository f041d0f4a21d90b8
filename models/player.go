package models

// Player представляет игрока клуба. Имена уникальны и сравниваются точно.
type Player struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
