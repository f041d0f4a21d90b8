package models

// Tournament представляет один игровой день клуба. ID задаётся клиентом,
// дата уникальна среди всех турниров.
type Tournament struct {
	ID          string  `json:"id" db:"id"`
	Date        Date    `json:"date" db:"date"`
	PlaylistURL *string `json:"playlist_url,omitempty" db:"playlist_url"`
	EmbedURL    *string `json:"embed_url,omitempty" db:"embed_url"`
	IsOfficial  bool    `json:"is_official" db:"is_official"`

	// Связанные группы (не мапятся напрямую)
	Ranks []RankGroup `json:"ranks" db:"-"`
}

// RankGroup — группа игроков, разделивших одну позицию сетки.
// Rating — фиксированный код позиции (1 = Cup Champion и т.д.),
// Rank — отображаемый порядок.
type RankGroup struct {
	ID           int      `json:"id" db:"id"`
	TournamentID string   `json:"tournament_id" db:"tournament_id"`
	Rank         int      `json:"rank" db:"rank"`
	Rating       int      `json:"rating" db:"rating"`
	Players      []string `json:"players" db:"-"`
}
