package wire

import (
	"Portal/internal/api"
	"Portal/internal/api/config"
	"Portal/internal/api/handler"
	"Portal/internal/im"
	"Portal/internal/job"
	"Portal/internal/pkg/cron"
	"Portal/internal/pkg/mongo"
	"Portal/internal/repository"
	"Portal/internal/service"

	"github.com/gin-gonic/gin"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router  *gin.Engine
	DB      *gorm.DB
	Engine  *im.Engine
	UserSvc service.UserService
	CronMgr *cron.Manager
	Archive service.ArchiveService
}

// BuildApplication 组装依赖，mongoDB 为 nil 时不启用消息归档
func BuildApplication(db *gorm.DB, mongoDB *mongodrv.Database, cfg *config.Config) (*ApplicationContainer, error) {
	userRepo := repository.NewUserRepo(db)
	convRepo := repository.NewConversationRepo(db)
	messageRepo := repository.NewMessageRepo(db)

	var opts []im.Option
	var archiveService service.ArchiveService
	if mongoDB != nil {
		archiveService = service.NewArchiveService(mongo.NewMessageArchiveRepo(mongoDB), 4)
		opts = append(opts, im.WithArchiver(archiveService))
	}
	engine := im.NewEngine(im.NewRepoStore(userRepo, convRepo, messageRepo), opts...)

	userService := service.NewUserService(userRepo)
	imService := service.NewIMService(userService, convRepo, messageRepo, engine)
	authService := service.NewAuthService(userService, cfg.Admin.UserID, cfg.Auth.AdminPasswordHash)

	handlers := &api.HandlersGroup{
		AuthHandler: handler.NewAuthHandler(authService),
		IMHandler:   handler.NewIMHandler(imService),
		WSHandler:   handler.NewWsHandler(engine, authService, cfg.Realtime, cfg.Server.AllowedOrigins),
	}

	router := api.SetupRouter(handlers, cfg)

	cronMgr := cron.NewCronManager(job.NewUnreadReconcileJob(engine), cfg.Realtime.ReconcileSpec)

	return &ApplicationContainer{
		Router:  router,
		DB:      db,
		Engine:  engine,
		UserSvc: userService,
		CronMgr: cronMgr,
		Archive: archiveService,
	}, nil
}
