package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

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

func startManual() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var (
		publisher  notification.Publisher
		subscriber echoapi.Subscriber
	)
	if client := pubsub.NewRedisClient(conf); client != nil {
		defer func() { _ = client.Close() }()
		redisPub := pubsub.NewRedisPublisher(client)
		publisher, subscriber = redisPub, redisPub
	}

	notifSvc := notification.NewService(sqlxrepos.NewNotificationRepository(db), publisher, logger)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf, validate)
	adminSvc := admin.NewService(sqlxrepos.NewAdminRepository(db), mailSvc, conf, validate)
	courseSvc := course.NewService(sqlxrepos.NewCourseRepository(db), usrSvc, validate)
	msgSvc := messaging.NewService(sqlxrepos.NewMessageRepository(db), courseSvc, usrSvc, notifSvc, validate, logger)
	reqSvc := request.NewService(sqlxrepos.NewRequestRepository(db), courseSvc, notifSvc, validate)
	complaintSvc := complaint.NewService(sqlxrepos.NewComplaintRepository(db), adminSvc, notifSvc, validate, logger)

	// set up jobs
	scheduler := jobs.NewScheduler(logger)
	if err = scheduler.AddSweep("expired messages sweep", conf.Jobs.MessageSweep, msgSvc); err != nil {
		logger.Fatal(fmt.Sprintf("setting up jobs: %v", err), err)
	}

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:            conf,
			Logger:          logger,
			Validate:        validate,
			Translator:      translator,
			UserSvc:         usrSvc,
			AdminSvc:        adminSvc,
			CourseSvc:       courseSvc,
			MessagingSvc:    msgSvc,
			RequestSvc:      reqSvc,
			ComplaintSvc:    complaintSvc,
			NotificationSvc: notifSvc,
			Resolver:        access.NewResolver(usrSvc, adminSvc),
			Subscriber:      subscriber,
		},
	)

	serve(conf, logger, server, scheduler)
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
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
