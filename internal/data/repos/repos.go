package repos

import (
	"gorm.io/gorm"

	"github.com/campuslink/campuslink-backend/internal/data/repos/graph"
	"github.com/campuslink/campuslink-backend/internal/data/repos/user"
	"github.com/campuslink/campuslink-backend/internal/platform/logger"
)

type EdgeRepo = graph.EdgeRepo
type UserRepo = user.UserRepo

var ErrSelfEdge = graph.ErrSelfEdge

func NewEdgeRepo(db *gorm.DB, baseLog *logger.Logger) EdgeRepo {
	return graph.NewEdgeRepo(db, baseLog)
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return user.NewUserRepo(db, baseLog)
}
