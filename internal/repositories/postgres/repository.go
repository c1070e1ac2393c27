package postgres

import (
	"github.com/studyforge/srs-service/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	progress  repositories.ProgressRepository
	session   repositories.SessionRepository
	deck      repositories.DeckRepository
	flashcard repositories.FlashcardRepository
}

// NewRepository wires the PostgreSQL implementations behind the Repository
// facade.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		progress:  NewProgressPostgreSQL(db),
		session:   NewSessionPostgreSQL(db),
		deck:      NewDeckPostgreSQL(db),
		flashcard: NewFlashcardPostgreSQL(db),
	}
}

func (r *repository) Progress() repositories.ProgressRepository   { return r.progress }
func (r *repository) Session() repositories.SessionRepository     { return r.session }
func (r *repository) Deck() repositories.DeckRepository           { return r.deck }
func (r *repository) Flashcard() repositories.FlashcardRepository { return r.flashcard }
