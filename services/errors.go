package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден
	ErrPlayerNotFound      = errors.New("player not found")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrCostRecordNotFound  = errors.New("cost record not found for this tournament")
	ErrAchievementNotFound = errors.New("achievement not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed  = errors.New("validation failed")
	ErrPlayerNameEmpty   = errors.New("player name cannot be empty")
	ErrEmptyPlayerList   = errors.New("at least one player must be selected")
	ErrNonPositiveAmount = errors.New("amount must be greater than 0")

	// Ошибки правил турнирной сетки
	ErrDuplicatePlayer      = errors.New("a player cannot be present multiple times in the same tournament")
	ErrMissingMandatoryRank = errors.New("mandatory rank is missing")
	ErrBracketSize          = errors.New("bracket size rule violated")

	// Ошибки конфликтов
	ErrPlayerNameConflict     = errors.New("player already exists")
	ErrTournamentIDConflict   = errors.New("tournament ID already exists")
	ErrTournamentDateConflict = errors.New("a tournament already exists for this date")
	ErrCostAlreadySaved       = errors.New("tournament costs already saved for this tournament")

	// Прокси рейтинга
	ErrInvalidRankingURL = errors.New("invalid URL, only bttf.org.bd allowed")
	ErrUpstreamFetch     = errors.New("failed to fetch from upstream ranking site")

	// Загрузка файлов
	ErrUploadUnsupportedType = errors.New("unsupported file content type")
)
