package models

// Achievement — новость или достижение клуба для ленты на сайте.
type Achievement struct {
	ID          int      `json:"id" db:"id"`
	Title       string   `json:"title" db:"title"`
	Description string   `json:"description" db:"description"`
	Date        Date     `json:"date" db:"date"`
	ImageURLs   []string `json:"image_urls" db:"image_urls"`
}
