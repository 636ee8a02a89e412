package app

import (
	"gorm.io/gorm"

	"github.com/campuslink/campuslink-backend/internal/data/repos"
	"github.com/campuslink/campuslink-backend/internal/platform/logger"
)

type Repos struct {
	Edge repos.EdgeRepo
	User repos.UserRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Edge: repos.NewEdgeRepo(db, log),
		User: repos.NewUserRepo(db, log),
	}
}
