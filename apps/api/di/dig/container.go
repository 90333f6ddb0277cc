package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/campusdesk/apps/api/echo"
	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/core/access"
	"github.com/trezcool/campusdesk/core/admin"
	"github.com/trezcool/campusdesk/core/complaint"
	"github.com/trezcool/campusdesk/core/course"
	"github.com/trezcool/campusdesk/core/messaging"
	"github.com/trezcool/campusdesk/core/notification"
	"github.com/trezcool/campusdesk/core/request"
	"github.com/trezcool/campusdesk/core/user"
	emailsvc "github.com/trezcool/campusdesk/services/email"
	"github.com/trezcool/campusdesk/services/jobs"
	logsvc "github.com/trezcool/campusdesk/services/logger"
	"github.com/trezcool/campusdesk/services/pubsub"
	"github.com/trezcool/campusdesk/storage/database"
	sqlxrepos "github.com/trezcool/campusdesk/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// ServerParams are the dependencies of the API server.
type ServerParams struct {
	dig.In

	Conf            *core.Config
	Logger          core.Logger
	Validate        *validator.Validate
	Translator      ut.Translator
	UserSvc         user.Service
	AdminSvc        admin.Service
	CourseSvc       course.Service
	MessagingSvc    messaging.Service
	RequestSvc      request.Service
	ComplaintSvc    complaint.Service
	NotificationSvc notification.Service
	Resolver        *access.Resolver
	Redis           *redis.Client `optional:"true"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

// newPublisher returns a nil Publisher when redis is not configured.
func newPublisher(client *redis.Client) notification.Publisher {
	if client == nil {
		return nil
	}
	return pubsub.NewRedisPublisher(client)
}

func newNotificationService(repo notification.Repository, pub notification.Publisher, logger core.Logger) notification.Service {
	return notification.NewService(repo, pub, logger)
}

func newCourseService(repo course.Repository, users user.Service, validate *validator.Validate) course.Service {
	return course.NewService(repo, users, validate)
}

func newMessagingService(
	repo messaging.Repository,
	courses course.Service,
	users user.Service,
	notifs notification.Service,
	validate *validator.Validate,
	logger core.Logger,
) messaging.Service {
	return messaging.NewService(repo, courses, users, notifs, validate, logger)
}

func newRequestService(
	repo request.Repository,
	courses course.Service,
	notifs notification.Service,
	validate *validator.Validate,
) request.Service {
	return request.NewService(repo, courses, notifs, validate)
}

func newComplaintService(
	repo complaint.Repository,
	admins admin.Service,
	notifs notification.Service,
	validate *validator.Validate,
	logger core.Logger,
) complaint.Service {
	return complaint.NewService(repo, admins, notifs, validate, logger)
}

func newResolver(users user.Service, admins admin.Service) *access.Resolver {
	return access.NewResolver(users, admins)
}

func newServer(p ServerParams) *echoapi.Server {
	deps := echoapi.ServerDeps{
		Conf:            p.Conf,
		Logger:          p.Logger,
		Validate:        p.Validate,
		Translator:      p.Translator,
		UserSvc:         p.UserSvc,
		AdminSvc:        p.AdminSvc,
		CourseSvc:       p.CourseSvc,
		MessagingSvc:    p.MessagingSvc,
		RequestSvc:      p.RequestSvc,
		ComplaintSvc:    p.ComplaintSvc,
		NotificationSvc: p.NotificationSvc,
		Resolver:        p.Resolver,
	}
	if p.Redis != nil {
		deps.Subscriber = pubsub.NewRedisPublisher(p.Redis)
	}
	return echoapi.NewServer(deps)
}

func newScheduler(conf *core.Config, logger core.Logger, msgs messaging.Service) (*jobs.Scheduler, error) {
	scheduler := jobs.NewScheduler(logger)
	if err := scheduler.AddSweep("expired messages sweep", conf.Jobs.MessageSweep, msgs); err != nil {
		return nil, err
	}
	return scheduler, nil
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	// config & ambient
	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newEmailService))

	// storage
	must(c.Provide(newDB))
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewAdminRepository))
	must(c.Provide(sqlxrepos.NewCourseRepository))
	must(c.Provide(sqlxrepos.NewMessageRepository))
	must(c.Provide(sqlxrepos.NewRequestRepository))
	must(c.Provide(sqlxrepos.NewComplaintRepository))
	must(c.Provide(sqlxrepos.NewNotificationRepository))
	must(c.Provide(pubsub.NewRedisClient))
	must(c.Provide(newPublisher))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(admin.NewService))
	must(c.Provide(newNotificationService))
	must(c.Provide(newCourseService))
	must(c.Provide(newMessagingService))
	must(c.Provide(newRequestService))
	must(c.Provide(newComplaintService))
	must(c.Provide(newResolver))
	must(c.Provide(newScheduler))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
